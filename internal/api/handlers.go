package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kgraph/internal/adapter"
	"kgraph/internal/graph"
	kgerrors "kgraph/pkg/errors"
)

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, kgerrors.NewValidation(name, "must be an integer")
	}
	return n, nil
}

// Node handlers

func (h *Handler) createNode(c *gin.Context) {
	var input graph.NodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	node, err := h.graph.CreateNode(c.Request.Context(), c.Param("collection"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (h *Handler) getNode(c *gin.Context) {
	node, err := h.graph.GetNode(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *Handler) listNodes(c *gin.Context) {
	limit, err := intQuery(c, "limit", 100)
	if err != nil {
		h.respondError(c, err)
		return
	}
	nodes, err := h.graph.ListNodes(c.Request.Context(), c.Param("collection"), c.Query("type"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if nodes == nil {
		nodes = []graph.Node{}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

func (h *Handler) updateNode(c *gin.Context) {
	var update graph.NodeUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	node, err := h.graph.UpdateNode(c.Request.Context(), c.Param("collection"), c.Param("id"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *Handler) deleteNode(c *gin.Context) {
	if err := h.graph.DeleteNode(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) batchCreateNodes(c *gin.Context) {
	var req struct {
		Nodes []graph.NodeInput `json:"nodes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.graph.BatchCreateNodes(c.Request.Context(), c.Param("collection"), req.Nodes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Edge handlers

func (h *Handler) createEdge(c *gin.Context) {
	var input graph.EdgeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	edge, err := h.graph.CreateEdge(c.Request.Context(), c.Param("collection"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, edge)
}

func (h *Handler) getEdge(c *gin.Context) {
	edge, err := h.graph.GetEdge(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, edge)
}

func (h *Handler) listEdges(c *gin.Context) {
	limit, err := intQuery(c, "limit", 100)
	if err != nil {
		h.respondError(c, err)
		return
	}
	edges, err := h.graph.ListEdges(c.Request.Context(), c.Param("collection"),
		c.Query("node_id"), c.Query("relation_type"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if edges == nil {
		edges = []graph.Edge{}
	}
	c.JSON(http.StatusOK, gin.H{"edges": edges})
}

func (h *Handler) updateEdge(c *gin.Context) {
	var update graph.EdgeUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	edge, err := h.graph.UpdateEdge(c.Request.Context(), c.Param("collection"), c.Param("id"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, edge)
}

func (h *Handler) deleteEdge(c *gin.Context) {
	if err := h.graph.DeleteEdge(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) batchCreateEdges(c *gin.Context) {
	var req struct {
		Edges []graph.EdgeInput `json:"edges" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.graph.BatchCreateEdges(c.Request.Context(), c.Param("collection"), req.Edges)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Query handlers

func (h *Handler) searchNodes(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		h.respondError(c, err)
		return
	}
	nodes, err := h.graph.SearchNodes(c.Request.Context(), c.Param("collection"), c.Query("keyword"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if nodes == nil {
		nodes = []graph.Node{}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

func (h *Handler) neighbors(c *gin.Context) {
	direction, err := graph.ParseDirection(c.Query("direction"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	maxDepth, err := intQuery(c, "max_depth", 1)
	if err != nil {
		h.respondError(c, err)
		return
	}
	result, err := h.graph.Neighbors(c.Request.Context(), c.Param("collection"),
		c.Query("node_id"), direction, maxDepth)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) findPath(c *gin.Context) {
	maxLength, err := intQuery(c, "max_length", 5)
	if err != nil {
		h.respondError(c, err)
		return
	}
	result, err := h.graph.FindPath(c.Request.Context(), c.Param("collection"),
		c.Query("source"), c.Query("target"), maxLength)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.graph.Stats(c.Request.Context(), c.Param("collection"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Transfer handlers

func (h *Handler) clear(c *gin.Context) {
	if err := h.graph.Clear(c.Request.Context(), c.Param("collection")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) export(c *gin.Context) {
	doc, err := h.graph.Export(c.Request.Context(), c.Param("collection"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) importGraph(c *gin.Context) {
	var req struct {
		ClearExisting bool                 `json:"clear_existing"`
		Document      graph.ExportDocument `json:"document"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.graph.Import(c.Request.Context(), c.Param("collection"), req.Document, req.ClearExisting)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// LLM-facing handlers

func (h *Handler) graphContext(c *gin.Context) {
	var req struct {
		Query    string `json:"query" binding:"required"`
		TopK     int    `json:"top_k"`
		MaxChars int    `json:"max_chars"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TopK == 0 {
		req.TopK = 10
	}
	if req.MaxChars == 0 {
		req.MaxChars = h.contextMaxChars
	}
	result, err := h.graph.GraphContext(c.Request.Context(), c.Param("collection"), req.Query, req.TopK, req.MaxChars)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) chatTurn(c *gin.Context) {
	if h.chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no language model configured"})
		return
	}
	var req struct {
		Query   string            `json:"query" binding:"required"`
		TopK    int               `json:"top_k"`
		History []adapter.Message `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TopK == 0 {
		req.TopK = 10
	}
	result, err := h.chat.Ask(c.Request.Context(), c.Param("collection"), req.Query, req.TopK, req.History)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
