// Package window materialises per-pair lookback distributions for
// historical-simulation VaR. The reference dataflow built these with an
// O(n^2) self-join; here each pair keeps an ordered buffer of its trailing
// returns, advanced as anchors arrive in date order.
package window

import (
	"time"

	"github.com/shopspring/decimal"

	"fx-market-risk/internal/model"
)

// Lookback is the comparison distribution for one anchor (date, pair).
// Values holds the prior daily returns, most recent first; the anchor's own
// return is excluded. Short windows (fewer than the configured size) are
// emitted as-is; consumers decide whether to suppress them.
type Lookback struct {
	Date   time.Time
	Pair   string
	Values []decimal.Decimal
}

// Builder assembles lookback windows.
type Builder struct {
	size         int
	calendarDays int
	cutoff       time.Time
}

// NewBuilder configures a Builder. size caps the number of prior returns per
// window (rank by recency); calendarDays bounds how far back an eligible
// return may lie, wide enough to guarantee `size` trading observations
// across weekend and holiday gaps.
func NewBuilder(size, calendarDays int, cutoff time.Time) *Builder {
	return &Builder{size: size, calendarDays: calendarDays, cutoff: model.Day(cutoff)}
}

type buffered struct {
	date  time.Time
	value decimal.Decimal
}

// Build emits one Lookback per (date, pair) at or after the cutoff date.
// Input must be ordered by (pair, date) ascending. A return enters the
// comparison set of an anchor when its date lies in
// [anchor - calendarDays, anchor) and it ranks within the most recent
// `size` such returns. Nil returns never enter a comparison set.
func (b *Builder) Build(observations []model.ReturnObservation) []Lookback {
	out := make([]Lookback, 0, len(observations))

	var pair string
	var buf []buffered
	for _, obs := range observations {
		if obs.Pair != pair {
			pair = obs.Pair
			buf = buf[:0]
		}

		anchor := model.Day(obs.Date)
		earliest := anchor.AddDate(0, 0, -b.calendarDays)

		// Evict entries that fell out of the calendar bound.
		trim := 0
		for trim < len(buf) && buf[trim].date.Before(earliest) {
			trim++
		}
		if trim > 0 {
			buf = append(buf[:0], buf[trim:]...)
		}

		if !anchor.Before(b.cutoff) {
			out = append(out, Lookback{
				Date:   anchor,
				Pair:   obs.Pair,
				Values: recentValues(buf, b.size),
			})
		}

		if obs.DailyReturn != nil {
			buf = append(buf, buffered{date: anchor, value: *obs.DailyReturn})
			if len(buf) > b.size {
				buf = append(buf[:0], buf[len(buf)-b.size:]...)
			}
		}
	}

	return out
}

// recentValues copies up to n buffered values, most recent first.
func recentValues(buf []buffered, n int) []decimal.Decimal {
	start := 0
	if len(buf) > n {
		start = len(buf) - n
	}
	vals := make([]decimal.Decimal, 0, len(buf)-start)
	for i := len(buf) - 1; i >= start; i-- {
		vals = append(vals, buf[i].value)
	}
	return vals
}
