package memory

import (
	"context"
	"slices"
	"sync"

	"pawco/internal/core"
	ports "pawco/internal/sheets"
)

var _ ports.RecordMirror = (*Store)(nil)

// Store is an in-process mirror, used when no spreadsheet is configured and
// in tests.
type Store struct {
	mu    sync.Mutex
	rows  map[int64]core.DailyRecord
	syncs int
}

func New() *Store {
	return &Store{rows: map[int64]core.DailyRecord{}}
}

// Upsert stores rec under its ID.
func (s *Store) Upsert(_ context.Context, rec core.DailyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.ID] = rec
	s.syncs++
	return nil
}

// ReplaceAll drops every row and stores recs.
func (s *Store) ReplaceAll(_ context.Context, recs []core.DailyRecord) error {
	for _, r := range recs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[int64]core.DailyRecord, len(recs))
	for _, r := range recs {
		s.rows[r.ID] = r
	}
	s.syncs++
	return nil
}

// Records returns the mirrored rows ordered by ID.
func (s *Store) Records() []core.DailyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DailyRecord, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b core.DailyRecord) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Syncs counts successful writes.
func (s *Store) Syncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs
}
