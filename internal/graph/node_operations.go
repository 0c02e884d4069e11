package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kgraph/internal/store"
	kgerrors "kgraph/pkg/errors"
)

// CreateNode inserts a new node. An existing id in the collection is a
// duplicate error; the stored node is left untouched.
func (s *Service) CreateNode(ctx context.Context, collection string, input NodeInput) (*Node, error) {
	if err := validateNodeInput(input); err != nil {
		return nil, err
	}

	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	node, err := s.createNodeLocked(ctx, collection, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(collection)

	s.logger.Info("Node created",
		zap.String("collection", collection),
		zap.String("node_id", node.ID),
	)
	return node, nil
}

// createNodeLocked is the body of CreateNode, shared with batch create; the
// caller holds the collection write lock and handles invalidation.
func (s *Service) createNodeLocked(ctx context.Context, collection string, input NodeInput) (*Node, error) {
	existing, err := s.store.GetNode(ctx, collection, input.ID)
	if err != nil {
		return nil, kgerrors.NewStore("get node", err)
	}
	if existing != nil {
		return nil, kgerrors.NewDuplicateID("node", input.ID)
	}

	now := time.Now().UTC()
	node := Node{
		ID:         input.ID,
		Name:       input.Name,
		Type:       input.Type,
		Properties: input.Properties,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.UpsertNode(ctx, collection, node); err != nil {
		return nil, kgerrors.NewStore("upsert node", err)
	}
	return &node, nil
}

func validateNodeInput(input NodeInput) error {
	if input.ID == "" {
		return kgerrors.NewValidation("node_id", "must not be empty")
	}
	if input.Name == "" {
		return kgerrors.NewValidation("node_name", "must not be empty")
	}
	return validateProperties(input.Properties)
}

// GetNode fetches a single node
func (s *Service) GetNode(ctx context.Context, collection, id string) (*Node, error) {
	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	node, err := s.store.GetNode(ctx, collection, id)
	if err != nil {
		return nil, kgerrors.NewStore("get node", err)
	}
	if node == nil {
		return nil, kgerrors.NewNotFound("node", id)
	}
	return node, nil
}

// ListNodes lists nodes, optionally filtered by type. limit <= 0 means
// unbounded.
func (s *Service) ListNodes(ctx context.Context, collection, nodeType string, limit int) ([]Node, error) {
	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	nodes, err := s.store.ListNodes(ctx, collection, store.NodeFilter{Type: nodeType, Limit: limit})
	if err != nil {
		return nil, kgerrors.NewStore("list nodes", err)
	}
	return nodes, nil
}

// UpdateNode applies a partial update: only supplied fields replace stored
// ones. Properties, when supplied, replace the stored bag wholesale.
func (s *Service) UpdateNode(ctx context.Context, collection, id string, update NodeUpdate) (*Node, error) {
	if update.Name != nil && *update.Name == "" {
		return nil, kgerrors.NewValidation("node_name", "must not be empty")
	}
	if err := validateProperties(update.Properties); err != nil {
		return nil, err
	}

	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	node, err := s.store.GetNode(ctx, collection, id)
	if err != nil {
		return nil, kgerrors.NewStore("get node", err)
	}
	if node == nil {
		return nil, kgerrors.NewNotFound("node", id)
	}

	if update.Name != nil {
		node.Name = *update.Name
	}
	if update.Type != nil {
		node.Type = *update.Type
	}
	if update.Properties != nil {
		node.Properties = update.Properties
	}
	node.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertNode(ctx, collection, *node); err != nil {
		return nil, kgerrors.NewStore("upsert node", err)
	}
	s.invalidate(collection)
	return node, nil
}

// DeleteNode removes a node and, within the same write-lock scope, every
// edge touching it. Edges go first so no reader ever sees a dangling edge.
func (s *Service) DeleteNode(ctx context.Context, collection, id string) error {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	node, err := s.store.GetNode(ctx, collection, id)
	if err != nil {
		return kgerrors.NewStore("get node", err)
	}
	if node == nil {
		return kgerrors.NewNotFound("node", id)
	}

	removed, err := s.store.DeleteEdgesTouching(ctx, collection, id)
	if err != nil {
		return kgerrors.NewStore("delete edges", err)
	}
	if _, err := s.store.DeleteNode(ctx, collection, id); err != nil {
		return kgerrors.NewStore("delete node", err)
	}
	s.invalidate(collection)

	s.logger.Info("Node deleted",
		zap.String("collection", collection),
		zap.String("node_id", id),
		zap.Int("cascaded_edges", removed),
	)
	return nil
}

// BatchCreateNodes applies each item independently under one write-lock
// scope, reporting per-item outcomes. A failed item never aborts the rest.
func (s *Service) BatchCreateNodes(ctx context.Context, collection string, inputs []NodeInput) (*BatchResult, error) {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	result := &BatchResult{}
	for _, input := range inputs {
		if err := validateNodeInput(input); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{ID: input.ID, Reason: err.Error()})
			continue
		}
		if _, err := s.createNodeLocked(ctx, collection, input); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{ID: input.ID, Reason: err.Error()})
			continue
		}
		result.Succeeded++
	}
	if result.Succeeded > 0 {
		s.invalidate(collection)
	}

	s.logger.Info("Batch node create finished",
		zap.String("collection", collection),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// Clear irreversibly removes every node and edge in the collection.
// Clearing an empty collection succeeds.
func (s *Service) Clear(ctx context.Context, collection string) error {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	if err := s.store.Clear(ctx, collection); err != nil {
		return kgerrors.NewStore("clear collection", err)
	}
	s.invalidate(collection)

	s.logger.Info("Collection cleared", zap.String("collection", collection))
	return nil
}
