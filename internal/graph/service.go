// Package graph implements the knowledge-graph engine: collection-scoped
// node/edge mutation, BFS traversal, keyword search and import/export over
// a flat record store.
package graph

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"kgraph/internal/store"
	"kgraph/pkg/logger"
)

// Service is the engine facade. One instance per deployment, parameterized
// by a record store; no process-global state.
//
// Concurrency model: a RWMutex per collection. Mutations take the write
// lock, so cascade deletes and batch items are never observed half-applied
// within a collection; reads take the read lock and may run concurrently
// with each other. Collections are independent.
type Service struct {
	store  store.RecordStore
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
	views map[string]*view

	flight singleflight.Group
}

// NewService creates an engine over the given record store
func NewService(st store.RecordStore) *Service {
	return &Service{
		store:  st,
		logger: logger.Named("graph"),
		locks:  make(map[string]*sync.RWMutex),
		views:  make(map[string]*view),
	}
}

// Store exposes the underlying record store, used by main for shutdown
func (s *Service) Store() store.RecordStore {
	return s.store
}

func (s *Service) lockFor(collection string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[collection]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[collection] = l
	}
	return l
}

// view returns the materialized graph for a collection, building it at most
// once per invalidation even under concurrent readers. The caller must hold
// the collection lock (read or write) so the store cannot change underneath
// the build.
func (s *Service) view(ctx context.Context, collection string) (*view, error) {
	s.mu.Lock()
	if v, ok := s.views[collection]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	result, err, _ := s.flight.Do(collection, func() (any, error) {
		v, err := s.materialize(ctx, collection)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.views[collection] = v
		s.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*view), nil
}

// invalidate drops the cached view. Called by every mutation before its
// write lock is released, so the next reader rebuilds from fresh records.
func (s *Service) invalidate(collection string) {
	s.mu.Lock()
	delete(s.views, collection)
	s.mu.Unlock()
	s.flight.Forget(collection)
}
