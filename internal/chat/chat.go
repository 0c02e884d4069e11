// Package chat wires the graph engine's context pipeline to a language
// model: search the collection for the query, format the hits as context,
// and ask the model to answer from that context.
package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kgraph/internal/adapter"
	"kgraph/internal/graph"
	"kgraph/pkg/logger"
)

const systemPrompt = `You are a knowledge assistant. Answer the question using the knowledge graph context below. If the context does not contain the answer, say so instead of guessing.

%s`

// ContextProvider is the slice of the graph engine this service needs
type ContextProvider interface {
	GraphContext(ctx context.Context, collection, query string, topK, maxChars int) (*graph.ContextResult, error)
}

// Completer produces a reply for a chat transcript
type Completer interface {
	Complete(ctx context.Context, messages []adapter.Message) (string, error)
}

// Service answers questions against one knowledge-graph collection
type Service struct {
	graph    ContextProvider
	llm      Completer
	maxChars int
	logger   *zap.Logger
}

// NewService creates a chat service over the engine and an LLM
func NewService(g ContextProvider, llm Completer, maxChars int) *Service {
	return &Service{
		graph:    g,
		llm:      llm,
		maxChars: maxChars,
		logger:   logger.Named("chat"),
	}
}

// Result is one answered turn, with the graph context it was grounded on
type Result struct {
	Answer  string       `json:"answer"`
	Context string       `json:"context"`
	Nodes   []graph.Node `json:"nodes"`
}

// Ask retrieves graph context for the query and asks the model to answer
// from it. History carries prior turns, oldest first.
func (s *Service) Ask(ctx context.Context, collection, query string, topK int, history []adapter.Message) (*Result, error) {
	kgContext, err := s.graph.GraphContext(ctx, collection, query, topK, s.maxChars)
	if err != nil {
		return nil, err
	}

	messages := make([]adapter.Message, 0, len(history)+2)
	messages = append(messages, adapter.Message{
		Role:    "system",
		Content: fmt.Sprintf(systemPrompt, kgContext.Context),
	})
	messages = append(messages, history...)
	messages = append(messages, adapter.Message{Role: "user", Content: query})

	answer, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Chat turn answered",
		zap.String("collection", collection),
		zap.Int("context_nodes", len(kgContext.Nodes)),
	)
	return &Result{Answer: answer, Context: kgContext.Context, Nodes: kgContext.Nodes}, nil
}
