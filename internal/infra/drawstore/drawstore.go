// Package drawstore adapts the draw archive to the prediction core:
// it caches the global recent window, serves per-type histories, and
// swallows backing-store failures into empty results so the request
// path degrades instead of erroring.
package drawstore

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
)

// GlobalLimit bounds the unfiltered recent window.
const GlobalLimit = 5000

// TTL expires the cached global window.
const TTL = time.Hour

// Backend is the durable archive underneath the cache.
type Backend interface {
	RecentDraws(limit int) ([]domain.Draw, error)
	DrawsByType(drawTypeID int64) ([]domain.Draw, error)
	ListDrawTypes() ([]domain.DrawType, error)
}

// Store implements domain.DrawSource over a Backend. The unfiltered
// window is cached with a TTL and refreshed by a single writer; the
// type catalog is cached until invalidated.
type Store struct {
	backend Backend
	now     func() time.Time

	mu       sync.RWMutex
	global   []domain.Draw
	globalAt time.Time
	types    []domain.DrawType
}

// New wires a store. now defaults to time.Now.
func New(backend Backend, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{backend: backend, now: now}
}

// GetDraws returns draws oldest-first. A nil filter serves the cached
// global window; a non-nil filter reads the full per-type history from
// the backend. Failures return an empty slice.
func (s *Store) GetDraws(ctx context.Context, drawTypeID *int64) []domain.Draw {
	if drawTypeID != nil {
		draws, err := s.backend.DrawsByType(*drawTypeID)
		if err != nil {
			log.Printf("[drawstore] type %d read failed: %v", *drawTypeID, err)
			return []domain.Draw{}
		}
		return draws
	}

	s.mu.RLock()
	if s.global != nil && s.now().Sub(s.globalAt) < TTL {
		cached := s.global
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	draws, err := s.backend.RecentDraws(GlobalLimit)
	if err != nil {
		log.Printf("[drawstore] global read failed: %v", err)
		return []domain.Draw{}
	}

	s.mu.Lock()
	s.global = draws
	s.globalAt = s.now()
	s.mu.Unlock()
	return draws
}

// GetDrawTypes returns the catalog, cached after the first load.
func (s *Store) GetDrawTypes(ctx context.Context) []domain.DrawType {
	s.mu.RLock()
	if s.types != nil {
		cached := s.types
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	types, err := s.backend.ListDrawTypes()
	if err != nil {
		log.Printf("[drawstore] type catalog read failed: %v", err)
		return []domain.DrawType{}
	}

	s.mu.Lock()
	s.types = types
	s.mu.Unlock()
	return types
}

// Invalidate drops the caches; the next read hits the backend. Called
// on the new-data signal after a refresh lands rows.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.global = nil
	s.globalAt = time.Time{}
	s.types = nil
	s.mu.Unlock()
}
