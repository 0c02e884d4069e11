// Package api exposes the graph engine over HTTP. Routing and status
// mapping only; every piece of graph semantics lives in internal/graph.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kgraph/internal/chat"
	"kgraph/internal/graph"
	kgerrors "kgraph/pkg/errors"
)

// Handler bundles the services the routes dispatch to. Chat may be nil when
// no LLM is configured; the chat endpoint then reports 503.
type Handler struct {
	graph  *graph.Service
	chat   *chat.Service
	logger *zap.Logger

	contextMaxChars int
}

// NewHandler creates the route handler set
func NewHandler(g *graph.Service, c *chat.Service, contextMaxChars int, log *zap.Logger) *Handler {
	return &Handler{graph: g, chat: c, logger: log, contextMaxChars: contextMaxChars}
}

// Register attaches all routes under /api/kg/:collection
func (h *Handler) Register(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	kg := router.Group("/api/kg/:collection")
	{
		kg.POST("/nodes", h.createNode)
		kg.GET("/nodes", h.listNodes)
		kg.GET("/nodes/:id", h.getNode)
		kg.PATCH("/nodes/:id", h.updateNode)
		kg.DELETE("/nodes/:id", h.deleteNode)

		kg.POST("/edges", h.createEdge)
		kg.GET("/edges", h.listEdges)
		kg.GET("/edges/:id", h.getEdge)
		kg.PATCH("/edges/:id", h.updateEdge)
		kg.DELETE("/edges/:id", h.deleteEdge)

		kg.POST("/batch/nodes", h.batchCreateNodes)
		kg.POST("/batch/edges", h.batchCreateEdges)

		kg.GET("/search", h.searchNodes)
		kg.GET("/neighbors", h.neighbors)
		kg.GET("/path", h.findPath)
		kg.GET("/stats", h.stats)

		kg.POST("/clear", h.clear)
		kg.GET("/export", h.export)
		kg.POST("/import", h.importGraph)

		kg.POST("/context", h.graphContext)
		kg.POST("/chat", h.chatTurn)
	}
}

// respondError maps engine error kinds onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case kgerrors.IsErrorType(err, kgerrors.ErrorTypeValidation):
		status = http.StatusBadRequest
	case kgerrors.IsErrorType(err, kgerrors.ErrorTypeNotFound):
		status = http.StatusNotFound
	case kgerrors.IsErrorType(err, kgerrors.ErrorTypeDuplicate):
		status = http.StatusConflict
	case kgerrors.IsErrorType(err, kgerrors.ErrorTypeEndpoint):
		status = http.StatusUnprocessableEntity
	case kgerrors.IsErrorType(err, kgerrors.ErrorTypeStore):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// GinLogger is the request-logging middleware
func GinLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
