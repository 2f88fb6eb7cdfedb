package window

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-market-risk/internal/model"
)

func day(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t
}

func obs(date, pair string, ret *string) model.ReturnObservation {
	o := model.ReturnObservation{Date: day(date), Pair: pair, Close: decimal.NewFromInt(1)}
	if ret != nil {
		r := decimal.RequireFromString(*ret)
		o.DailyReturn = &r
		prev := decimal.NewFromInt(1)
		o.PrevClose = &prev
	}
	return o
}

func ret(v string) *string { return &v }

// dailySeries builds consecutive calendar-day observations for one pair,
// first return nil, the rest 0.001, 0.002, ...
func dailySeries(pair string, start string, n int) []model.ReturnObservation {
	out := make([]model.ReturnObservation, 0, n)
	d := day(start)
	for i := 0; i < n; i++ {
		var r *string
		if i > 0 {
			v := decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(1000)).String()
			r = &v
		}
		out = append(out, obs(d.Format("2006-01-02"), pair, r))
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func TestBuildExcludesAnchorOwnReturn(t *testing.T) {
	b := NewBuilder(30, 35, day("2025-01-01"))

	out := b.Build([]model.ReturnObservation{
		obs("2025-06-02", "EURUSD", nil),
		obs("2025-06-03", "EURUSD", ret("0.01")),
		obs("2025-06-04", "EURUSD", ret("-0.02")),
	})
	require.Len(t, out, 3)

	// First anchor has no prior returns at all.
	assert.Empty(t, out[0].Values)
	// Second anchor sees nothing either: the first observation's return is nil.
	assert.Empty(t, out[1].Values)
	// Third anchor sees only the 0.01 from the prior day, not its own -0.02.
	require.Len(t, out[2].Values, 1)
	assert.True(t, out[2].Values[0].Equal(decimal.RequireFromString("0.01")))
}

func TestBuildCapsWindowByRecency(t *testing.T) {
	b := NewBuilder(30, 35, day("2025-01-01"))

	series := dailySeries("EURUSD", "2025-05-01", 36)
	out := b.Build(series)
	require.Len(t, out, 36)

	last := out[len(out)-1]
	// 34 prior non-nil returns are available; only the most recent 30 are kept.
	require.Len(t, last.Values, 30)
	// Most recent first: the previous day's return leads.
	assert.True(t, last.Values[0].Equal(decimal.RequireFromString("0.034")))
	// The oldest retained value is rank 30 by recency.
	assert.True(t, last.Values[29].Equal(decimal.RequireFromString("0.005")))
}

func TestBuildEvictsBeyondCalendarBound(t *testing.T) {
	b := NewBuilder(30, 35, day("2025-01-01"))

	// Two old observations, then a long gap, then a fresh anchor: the old
	// returns fall outside the 35-calendar-day lookback.
	out := b.Build([]model.ReturnObservation{
		obs("2025-01-02", "EURUSD", nil),
		obs("2025-01-03", "EURUSD", ret("0.01")),
		obs("2025-03-01", "EURUSD", ret("0.02")),
		obs("2025-03-02", "EURUSD", ret("0.03")),
	})
	require.Len(t, out, 4)

	anchor := out[3]
	require.Len(t, anchor.Values, 1)
	assert.True(t, anchor.Values[0].Equal(decimal.RequireFromString("0.02")))
}

func TestBuildRespectsCutoff(t *testing.T) {
	b := NewBuilder(30, 35, day("2025-06-03"))

	out := b.Build([]model.ReturnObservation{
		obs("2025-06-02", "EURUSD", nil),
		obs("2025-06-03", "EURUSD", ret("0.01")),
		obs("2025-06-04", "EURUSD", ret("0.02")),
	})

	// The pre-cutoff anchor is not emitted but its return still feeds
	// later windows.
	require.Len(t, out, 2)
	assert.Equal(t, day("2025-06-03"), out[0].Date)
	require.Len(t, out[1].Values, 1)
	assert.True(t, out[1].Values[0].Equal(decimal.RequireFromString("0.01")))
}

func TestBuildPartitionsByPair(t *testing.T) {
	b := NewBuilder(30, 35, day("2025-01-01"))

	out := b.Build([]model.ReturnObservation{
		obs("2025-06-02", "EURUSD", nil),
		obs("2025-06-03", "EURUSD", ret("0.01")),
		obs("2025-06-02", "GBPUSD", nil),
		obs("2025-06-03", "GBPUSD", ret("-0.04")),
	})
	require.Len(t, out, 4)

	// GBPUSD windows never see EURUSD returns.
	gbp := out[3]
	assert.Equal(t, "GBPUSD", gbp.Pair)
	require.Len(t, gbp.Values, 0)
}
