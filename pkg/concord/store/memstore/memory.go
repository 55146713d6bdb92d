// Package memstore is an in-memory implementation of store.Store for tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/taxonaut/concord/pkg/concord/bridge"
	"github.com/taxonaut/concord/pkg/concord/inherit"
	"github.com/taxonaut/concord/pkg/concord/resolve"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu          sync.RWMutex
	batchOrder  []string
	rows        map[string][]bridge.Row
	skipped     map[string][]bridge.Skipped
	resolutions []resolve.Result
	attributes  []inherit.BatchRow
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		rows:    make(map[string][]bridge.Row),
		skipped: make(map[string][]bridge.Skipped),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveBridge stores a build snapshot under its batch id.
func (s *Store) SaveBridge(ctx context.Context, res bridge.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[res.BatchID]; !ok {
		s.batchOrder = append(s.batchOrder, res.BatchID)
	}
	s.rows[res.BatchID] = append([]bridge.Row(nil), res.Rows...)
	s.skipped[res.BatchID] = append([]bridge.Skipped(nil), res.Skipped...)
	return nil
}

// GetBridgeRows returns a batch's rows ordered by source id then rank.
func (s *Store) GetBridgeRows(ctx context.Context, batchID string) ([]bridge.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]bridge.Row(nil), s.rows[batchID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].Rank < out[j].Rank
	})
	return out, nil
}

// GetRowsForSource returns one source entity's ranked rows within a batch.
func (s *Store) GetRowsForSource(ctx context.Context, batchID, sourceID string) ([]bridge.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []bridge.Row
	for _, r := range s.rows[batchID] {
		if r.SourceID == sourceID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// GetSkipped returns a batch's skipped-entity diagnostics.
func (s *Store) GetSkipped(ctx context.Context, batchID string) ([]bridge.Skipped, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]bridge.Skipped(nil), s.skipped[batchID]...), nil
}

// LatestBatchID returns the most recently saved batch id, if any.
func (s *Store) LatestBatchID(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.batchOrder) == 0 {
		return "", false, nil
	}
	return s.batchOrder[len(s.batchOrder)-1], true, nil
}

// SaveResolutions appends resolution results.
func (s *Store) SaveResolutions(ctx context.Context, results []resolve.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolutions = append(s.resolutions, results...)
	return nil
}

// GetResolutions returns resolutions for one context id.
func (s *Store) GetResolutions(ctx context.Context, contextID string) ([]resolve.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []resolve.Result
	for _, r := range s.resolutions {
		if r.ContextID == contextID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EntityTitle < out[j].EntityTitle })
	return out, nil
}

// SaveImputedAttributes appends materialized attribute rows.
func (s *Store) SaveImputedAttributes(ctx context.Context, rows []inherit.BatchRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributes = append(s.attributes, rows...)
	return nil
}

// GetImputedAttributes returns materialized attributes for one entity.
func (s *Store) GetImputedAttributes(ctx context.Context, entityID string) ([]inherit.BatchRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []inherit.BatchRow
	for _, r := range s.attributes {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AttributeName < out[j].AttributeName })
	return out, nil
}
