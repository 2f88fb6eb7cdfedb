// Package state maintains the latest-value-per-key tables that back the
// derived views. Incoming batches are change-data-capture style: unordered,
// possibly duplicated, at-least-once delivery.
package state

import (
	"sort"
	"time"

	"fx-market-risk/internal/model"
)

// Keyed is satisfied by records that carry a merge key and an ingestion
// timestamp used for conflict resolution.
type Keyed interface {
	Key() model.Key
	Ingested() time.Time
}

// Table is the current-state mapping for one entity type.
type Table[T Keyed] struct {
	rows map[model.Key]T
}

// NewTable builds an empty state table.
func NewTable[T Keyed]() *Table[T] {
	return &Table[T]{rows: make(map[model.Key]T)}
}

// Merge applies an incoming batch. Within the batch, records are grouped by
// key and the one with the greatest ingestion time is selected; on equal
// ingestion times the record later in the input sequence wins. The selected
// record replaces current state only when its ingestion time is strictly
// greater than the stored row's (or the key is absent). Stale and duplicate
// deliveries are ignored, making Merge idempotent: re-applying any batch,
// in any delivery order, converges to the same table.
func (t *Table[T]) Merge(incoming []T) MergeStats {
	var stats MergeStats

	selected := make(map[model.Key]T, len(incoming))
	for _, rec := range incoming {
		key := rec.Key()
		prev, ok := selected[key]
		if !ok || !rec.Ingested().Before(prev.Ingested()) {
			selected[key] = rec
		}
	}

	for key, rec := range selected {
		current, ok := t.rows[key]
		if ok && !rec.Ingested().After(current.Ingested()) {
			stats.Stale++
			continue
		}
		if ok {
			stats.Updated++
		} else {
			stats.Inserted++
		}
		t.rows[key] = rec
	}

	return stats
}

// MergeStats summarises one merge application.
type MergeStats struct {
	Inserted int
	Updated  int
	Stale    int
}

// Applied returns the number of rows that changed state.
func (s MergeStats) Applied() int { return s.Inserted + s.Updated }

// Get returns the current row for a key.
func (t *Table[T]) Get(key model.Key) (T, bool) {
	rec, ok := t.rows[key]
	return rec, ok
}

// Len returns the number of keyed rows.
func (t *Table[T]) Len() int { return len(t.rows) }

// Snapshot returns all rows ordered by (pair, date). The slice is a copy;
// mutating it does not affect the table.
func (t *Table[T]) Snapshot() []T {
	out := make([]T, 0, len(t.rows))
	for _, rec := range t.rows {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].Key(), out[j].Key()
		if ki.Pair != kj.Pair {
			return ki.Pair < kj.Pair
		}
		return ki.Date.Before(kj.Date)
	})
	return out
}

// Clone copies the table. Used to stage a cycle so a failed recomputation
// leaves committed state untouched.
func (t *Table[T]) Clone() *Table[T] {
	rows := make(map[model.Key]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return &Table[T]{rows: rows}
}
