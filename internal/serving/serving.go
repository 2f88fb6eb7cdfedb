// Package serving exposes the risk engine output as a stable read-only view.
package serving

import (
	"sort"
	"time"

	"fx-market-risk/internal/model"
)

// ViewKey identifies one serving row.
type ViewKey struct {
	Date time.Time
	Pair string
	Desk string
}

// View is an immutable projection of VaR records for downstream consumers.
// It carries no business logic.
type View struct {
	rows map[ViewKey]model.VaRRecord
}

// NewView indexes a batch of VaR records. Later records win on duplicate
// keys, matching the derived-view rebuild semantics.
func NewView(records []model.VaRRecord) *View {
	rows := make(map[ViewKey]model.VaRRecord, len(records))
	for _, rec := range records {
		rows[ViewKey{Date: model.Day(rec.Date), Pair: rec.Pair, Desk: rec.Desk}] = rec
	}
	return &View{rows: rows}
}

// Get returns the record for a key.
func (v *View) Get(key ViewKey) (model.VaRRecord, bool) {
	rec, ok := v.rows[key]
	return rec, ok
}

// Len returns the number of rows.
func (v *View) Len() int { return len(v.rows) }

// List returns all rows ordered by (date, pair, desk).
func (v *View) List() []model.VaRRecord {
	out := make([]model.VaRRecord, 0, len(v.rows))
	for _, rec := range v.rows {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Pair != out[j].Pair {
			return out[i].Pair < out[j].Pair
		}
		return out[i].Desk < out[j].Desk
	})
	return out
}

// ListPair returns the rows for one currency pair ordered by date.
func (v *View) ListPair(pair string) []model.VaRRecord {
	out := make([]model.VaRRecord, 0)
	for key, rec := range v.rows {
		if key.Pair == pair {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
