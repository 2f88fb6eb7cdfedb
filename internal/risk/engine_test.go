package risk

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-market-risk/internal/model"
	"fx-market-risk/internal/window"
)

type rateMap map[model.Key]model.RateObservation

func (m rateMap) Get(key model.Key) (model.RateObservation, bool) {
	r, ok := m[key]
	return r, ok
}

type positionMap map[model.Key]model.PositionRecord

func (m positionMap) Get(key model.Key) (model.PositionRecord, bool) {
	p, ok := m[key]
	return p, ok
}

func day(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t
}

func testEngine() *Engine {
	return NewEngine(Params{
		PercentileLong:   0.05,
		PercentileShort:  0.95,
		VolatilityWindow: 30,
	}, zerolog.Nop())
}

func lookback(date, pair string, values ...string) window.Lookback {
	lb := window.Lookback{Date: day(date), Pair: pair}
	for _, v := range values {
		lb.Values = append(lb.Values, decimal.RequireFromString(v))
	}
	return lb
}

func position(date, pair, desk string, dir model.Direction, size string) (model.Key, model.PositionRecord) {
	return model.KeyOf(day(date), pair), model.PositionRecord{
		Date:         day(date),
		Pair:         pair,
		Desk:         desk,
		Direction:    dir,
		PositionSize: decimal.RequireFromString(size),
	}
}

func rate(date, pair, close string) (model.Key, model.RateObservation) {
	return model.KeyOf(day(date), pair), model.RateObservation{
		Date:  day(date),
		Pair:  pair,
		Close: decimal.RequireFromString(close),
	}
}

func TestComputeLongVaRConvertsToUSD(t *testing.T) {
	pk, pos := position("2025-06-04", "EURUSD", "G10 FX", model.DirectionLong, "10000000")
	rk, rt := rate("2025-06-04", "EURUSD", "1.0950")

	out := testEngine().Compute(
		[]window.Lookback{lookback("2025-06-04", "EURUSD", "-0.021")},
		nil,
		rateMap{rk: rt},
		positionMap{pk: pos},
	)
	require.Len(t, out, 1)

	rec := out[0]
	assert.Equal(t, "G10 FX", rec.Desk)
	require.NotNil(t, rec.VaR95Base)
	require.NotNil(t, rec.VaR95USD)
	// LONG takes the downside tail: 10,000,000 * |-0.021| = 210,000 EUR,
	// then * 1.0950 = 229,950 USD since the base currency is not USD.
	assert.True(t, rec.VaR95Base.Equal(decimal.RequireFromString("210000")), "base = %s", rec.VaR95Base)
	assert.True(t, rec.VaR95USD.Equal(decimal.RequireFromString("229950")), "usd = %s", rec.VaR95USD)
}

func TestComputeShortVaRUSDBasePassthrough(t *testing.T) {
	pk, pos := position("2025-06-04", "USDJPY", "Asia FX", model.DirectionShort, "5000000")
	rk, rt := rate("2025-06-04", "USDJPY", "147.25")

	out := testEngine().Compute(
		[]window.Lookback{lookback("2025-06-04", "USDJPY", "0.018")},
		nil,
		rateMap{rk: rt},
		positionMap{pk: pos},
	)
	require.Len(t, out, 1)

	rec := out[0]
	require.NotNil(t, rec.VaR95Base)
	require.NotNil(t, rec.VaR95USD)
	// SHORT takes the absolute upside tail: 5,000,000 * 0.018 = 90,000 USD.
	// USD is already the base currency, so no rate conversion applies.
	assert.True(t, rec.VaR95Base.Equal(decimal.RequireFromString("90000")))
	assert.True(t, rec.VaR95USD.Equal(decimal.RequireFromString("90000")))
}

func TestComputeFlatPositionZeroVaR(t *testing.T) {
	pk, pos := position("2025-06-04", "EURUSD", "G10 FX", model.DirectionFlat, "0")
	rk, rt := rate("2025-06-04", "EURUSD", "1.0950")

	out := testEngine().Compute(
		[]window.Lookback{lookback("2025-06-04", "EURUSD", "-0.021", "0.01")},
		nil,
		rateMap{rk: rt},
		positionMap{pk: pos},
	)
	require.Len(t, out, 1)

	rec := out[0]
	require.NotNil(t, rec.VaR95Base)
	assert.True(t, rec.VaR95Base.IsZero())
	assert.True(t, rec.VaR95USD.IsZero())
	// The tails are still reported even though the position carries no risk.
	assert.NotNil(t, rec.P05Return)
}

func TestComputeEmptyWindowNullTails(t *testing.T) {
	pk, pos := position("2025-06-04", "EURUSD", "G10 FX", model.DirectionLong, "10000000")
	rk, rt := rate("2025-06-04", "EURUSD", "1.0950")

	out := testEngine().Compute(
		[]window.Lookback{lookback("2025-06-04", "EURUSD")},
		nil,
		rateMap{rk: rt},
		positionMap{pk: pos},
	)
	require.Len(t, out, 1)

	rec := out[0]
	assert.Nil(t, rec.P05Return)
	assert.Nil(t, rec.P95Return)
	assert.Nil(t, rec.VaR95Base)
	assert.Nil(t, rec.VaR95USD)
	assert.True(t, rec.CurrentRate.Equal(decimal.RequireFromString("1.0950")))
}

func TestComputeSkipsJoinGaps(t *testing.T) {
	pk, pos := position("2025-06-04", "EURUSD", "G10 FX", model.DirectionLong, "10000000")
	rk, rt := rate("2025-06-05", "EURUSD", "1.0950")

	// Position exists for 06-04 but the rate row does not; the reverse holds
	// for 06-05. Neither anchor joins fully, so no records come out.
	out := testEngine().Compute(
		[]window.Lookback{
			lookback("2025-06-04", "EURUSD", "-0.01"),
			lookback("2025-06-05", "EURUSD", "-0.01"),
		},
		nil,
		rateMap{rk: rt},
		positionMap{pk: pos},
	)
	assert.Empty(t, out)
}

func TestRollingVolatility(t *testing.T) {
	returns := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}
	obs := []model.ReturnObservation{
		{Date: day("2025-06-02"), Pair: "EURUSD"},
		{Date: day("2025-06-03"), Pair: "EURUSD", DailyReturn: returns("0.01")},
		{Date: day("2025-06-04"), Pair: "EURUSD", DailyReturn: returns("0.02")},
		{Date: day("2025-06-05"), Pair: "EURUSD", DailyReturn: returns("0.03")},
	}

	vol := testEngine().rollingVolatility(obs)

	// First row has a nil return, second has a single value: both below the
	// two-observation minimum.
	assert.Nil(t, vol[model.KeyOf(day("2025-06-02"), "EURUSD")])
	assert.Nil(t, vol[model.KeyOf(day("2025-06-03"), "EURUSD")])

	// Sample stddev of {0.01, 0.02} is about 0.00707.
	second := vol[model.KeyOf(day("2025-06-04"), "EURUSD")]
	require.NotNil(t, second)
	assert.InDelta(t, 0.007071, second.InexactFloat64(), 1e-5)

	// Sample stddev of {0.01, 0.02, 0.03} is 0.01.
	third := vol[model.KeyOf(day("2025-06-05"), "EURUSD")]
	require.NotNil(t, third)
	assert.InDelta(t, 0.01, third.InexactFloat64(), 1e-9)
}

func TestRollingVolatilityWindowSlides(t *testing.T) {
	e := NewEngine(Params{PercentileLong: 0.05, PercentileShort: 0.95, VolatilityWindow: 2}, zerolog.Nop())

	returns := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}
	obs := []model.ReturnObservation{
		{Date: day("2025-06-02"), Pair: "EURUSD", DailyReturn: returns("0.50")},
		{Date: day("2025-06-03"), Pair: "EURUSD", DailyReturn: returns("0.01")},
		{Date: day("2025-06-04"), Pair: "EURUSD", DailyReturn: returns("0.03")},
	}

	vol := e.rollingVolatility(obs)

	// With a window of two, the 06-04 value only sees {0.01, 0.03}: the
	// 0.50 outlier has slid out. Sample stddev is about 0.01414.
	last := vol[model.KeyOf(day("2025-06-04"), "EURUSD")]
	require.NotNil(t, last)
	assert.InDelta(t, 0.014142, last.InexactFloat64(), 1e-5)
}
