package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kgraph/internal/store"
	kgerrors "kgraph/pkg/errors"
)

// CreateEdge inserts a new directed edge. Both endpoints must be live nodes
// in the same collection. An empty id is derived from source, relation and
// target; when that derived id is already taken, a random one is used so a
// multigraph can hold parallel edges.
func (s *Service) CreateEdge(ctx context.Context, collection string, input EdgeInput) (*Edge, error) {
	if err := validateEdgeInput(input); err != nil {
		return nil, err
	}

	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	edge, err := s.createEdgeLocked(ctx, collection, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(collection)

	s.logger.Info("Edge created",
		zap.String("collection", collection),
		zap.String("edge_id", edge.ID),
		zap.String("source", edge.Source),
		zap.String("target", edge.Target),
	)
	return edge, nil
}

func (s *Service) createEdgeLocked(ctx context.Context, collection string, input EdgeInput) (*Edge, error) {
	for _, nodeID := range []string{input.Source, input.Target} {
		node, err := s.store.GetNode(ctx, collection, nodeID)
		if err != nil {
			return nil, kgerrors.NewStore("get node", err)
		}
		if node == nil {
			return nil, kgerrors.NewEndpointNotFound(input.ID, nodeID)
		}
	}

	id := input.ID
	generated := false
	if id == "" {
		id = deriveEdgeID(input.Source, input.Relation, input.Target)
		generated = true
	}
	existing, err := s.store.GetEdge(ctx, collection, id)
	if err != nil {
		return nil, kgerrors.NewStore("get edge", err)
	}
	if existing != nil {
		if !generated {
			return nil, kgerrors.NewDuplicateID("edge", id)
		}
		id = uuid.NewString()
	}

	weight := 1.0
	if input.Weight != nil {
		weight = *input.Weight
	}
	now := time.Now().UTC()
	edge := Edge{
		ID:         id,
		Source:     input.Source,
		Target:     input.Target,
		Relation:   input.Relation,
		Properties: input.Properties,
		Weight:     weight,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.UpsertEdge(ctx, collection, edge); err != nil {
		return nil, kgerrors.NewStore("upsert edge", err)
	}
	return &edge, nil
}

func validateEdgeInput(input EdgeInput) error {
	if input.Source == "" {
		return kgerrors.NewValidation("source_node_id", "must not be empty")
	}
	if input.Target == "" {
		return kgerrors.NewValidation("target_node_id", "must not be empty")
	}
	return validateProperties(input.Properties)
}

func deriveEdgeID(source, relation, target string) string {
	if relation == "" {
		relation = "related"
	}
	return fmt.Sprintf("%s_%s_%s", source, relation, target)
}

// GetEdge fetches a single edge
func (s *Service) GetEdge(ctx context.Context, collection, id string) (*Edge, error) {
	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	edge, err := s.store.GetEdge(ctx, collection, id)
	if err != nil {
		return nil, kgerrors.NewStore("get edge", err)
	}
	if edge == nil {
		return nil, kgerrors.NewNotFound("edge", id)
	}
	return edge, nil
}

// ListEdges lists edges, optionally filtered by touching node and relation
// type. limit <= 0 means unbounded.
func (s *Service) ListEdges(ctx context.Context, collection, nodeID, relation string, limit int) ([]Edge, error) {
	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	edges, err := s.store.ListEdges(ctx, collection, store.EdgeFilter{
		NodeID:   nodeID,
		Relation: relation,
		Limit:    limit,
	})
	if err != nil {
		return nil, kgerrors.NewStore("list edges", err)
	}
	return edges, nil
}

// UpdateEdge applies a partial update. Changing an endpoint revalidates
// that the new node exists.
func (s *Service) UpdateEdge(ctx context.Context, collection, id string, update EdgeUpdate) (*Edge, error) {
	if update.Source != nil && *update.Source == "" {
		return nil, kgerrors.NewValidation("source_node_id", "must not be empty")
	}
	if update.Target != nil && *update.Target == "" {
		return nil, kgerrors.NewValidation("target_node_id", "must not be empty")
	}
	if err := validateProperties(update.Properties); err != nil {
		return nil, err
	}

	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	edge, err := s.store.GetEdge(ctx, collection, id)
	if err != nil {
		return nil, kgerrors.NewStore("get edge", err)
	}
	if edge == nil {
		return nil, kgerrors.NewNotFound("edge", id)
	}

	if update.Source != nil {
		edge.Source = *update.Source
	}
	if update.Target != nil {
		edge.Target = *update.Target
	}
	if update.Source != nil || update.Target != nil {
		for _, nodeID := range []string{edge.Source, edge.Target} {
			node, err := s.store.GetNode(ctx, collection, nodeID)
			if err != nil {
				return nil, kgerrors.NewStore("get node", err)
			}
			if node == nil {
				return nil, kgerrors.NewEndpointNotFound(id, nodeID)
			}
		}
	}
	if update.Relation != nil {
		edge.Relation = *update.Relation
	}
	if update.Properties != nil {
		edge.Properties = update.Properties
	}
	if update.Weight != nil {
		edge.Weight = *update.Weight
	}
	edge.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertEdge(ctx, collection, *edge); err != nil {
		return nil, kgerrors.NewStore("upsert edge", err)
	}
	s.invalidate(collection)
	return edge, nil
}

// DeleteEdge removes a single edge; nodes are unaffected
func (s *Service) DeleteEdge(ctx context.Context, collection, id string) error {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	removed, err := s.store.DeleteEdge(ctx, collection, id)
	if err != nil {
		return kgerrors.NewStore("delete edge", err)
	}
	if !removed {
		return kgerrors.NewNotFound("edge", id)
	}
	s.invalidate(collection)

	s.logger.Info("Edge deleted",
		zap.String("collection", collection),
		zap.String("edge_id", id),
	)
	return nil
}

// BatchCreateEdges applies each item independently under one write-lock
// scope, reporting per-item outcomes.
func (s *Service) BatchCreateEdges(ctx context.Context, collection string, inputs []EdgeInput) (*BatchResult, error) {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	result := &BatchResult{}
	for _, input := range inputs {
		if err := validateEdgeInput(input); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{ID: input.ID, Reason: err.Error()})
			continue
		}
		if _, err := s.createEdgeLocked(ctx, collection, input); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{ID: input.ID, Reason: err.Error()})
			continue
		}
		result.Succeeded++
	}
	if result.Succeeded > 0 {
		s.invalidate(collection)
	}

	s.logger.Info("Batch edge create finished",
		zap.String("collection", collection),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
