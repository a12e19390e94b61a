package metric

import (
	"context"
	"sort"
	"time"

	"dialog-agent/corpus"
)

// SnapshotEntry is the persisted form of one entry.
type SnapshotEntry struct {
	Table       corpus.TableID `json:"table"`
	Row         string         `json:"row"`
	AnswerIndex int            `json:"answer_index"`
	Weariness   float32        `json:"weariness"`
	Jitter      float32        `json:"jitter"`
}

// Snapshot is every entry of one relationship at SavedAt.
type Snapshot struct {
	Key     string          `json:"key"`
	SavedAt time.Time       `json:"saved_at"`
	Entries []SnapshotEntry `json:"entries"`
}

// SnapshotStore persists snapshots between process restarts.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	// LoadSnapshot returns ErrNotFound when nothing was saved for key.
	LoadSnapshot(ctx context.Context, key string) (Snapshot, error)
	DeleteSnapshot(ctx context.Context, key string) error
}

// Snapshot copies every entry, ordered by table, row and answer.
func (s *Store) Snapshot() []SnapshotEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SnapshotEntry, 0)
	for table, entries := range s.tables {
		for key, e := range entries {
			out = append(out, SnapshotEntry{
				Table:       table,
				Row:         key.row,
				AnswerIndex: key.answer,
				Weariness:   e.Weariness,
				Jitter:      e.Jitter,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.AnswerIndex < b.AnswerIndex
	})
	return out
}

// Restore overwrites entries that exist in the store with saved values and
// returns how many were applied. Saved entries of tables or answers that are
// no longer registered are ignored.
func (s *Store) Restore(entries []SnapshotEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, saved := range entries {
		e := s.lookup(saved.Table, saved.Row, saved.AnswerIndex)
		if e == nil {
			continue
		}
		e.Weariness = clamp(saved.Weariness, MinWeariness, MaxWeariness)
		if saved.Jitter > 0 {
			e.Jitter = saved.Jitter
		}
		applied++
	}
	return applied
}
