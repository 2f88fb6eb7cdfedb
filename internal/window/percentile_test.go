package window

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(vals))
	for _, v := range vals {
		out = append(out, decimal.RequireFromString(v))
	}
	return out
}

func TestPercentileContInterpolation(t *testing.T) {
	values := decimals("-0.05", "-0.03", "-0.01", "0.0", "0.02", "0.04")

	p05, ok := Percentile(values, 0.05)
	require.True(t, ok)
	assert.True(t, p05.Equal(decimal.RequireFromString("-0.045")), "p05 = %s", p05)

	p95, ok := Percentile(values, 0.95)
	require.True(t, ok)
	assert.True(t, p95.Equal(decimal.RequireFromString("0.035")), "p95 = %s", p95)
}

func TestPercentileSortsInput(t *testing.T) {
	values := decimals("0.04", "-0.05", "0.0", "-0.01", "0.02", "-0.03")

	p05, ok := Percentile(values, 0.05)
	require.True(t, ok)
	assert.True(t, p05.Equal(decimal.RequireFromString("-0.045")))
}

func TestPercentileMedianExactRank(t *testing.T) {
	// Odd count: p=0.5 lands exactly on the middle order statistic.
	values := decimals("0.01", "0.03", "0.02")

	med, ok := Percentile(values, 0.5)
	require.True(t, ok)
	assert.True(t, med.Equal(decimal.RequireFromString("0.02")))
}

func TestPercentileSingleValue(t *testing.T) {
	v, ok := Percentile(decimals("-0.0123"), 0.05)
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.RequireFromString("-0.0123")))
}

func TestPercentileEmpty(t *testing.T) {
	_, ok := Percentile(nil, 0.05)
	assert.False(t, ok)
}

func TestPercentileExtremes(t *testing.T) {
	values := decimals("-0.05", "-0.03", "0.01")

	lo, ok := Percentile(values, 0)
	require.True(t, ok)
	assert.True(t, lo.Equal(decimal.RequireFromString("-0.05")))

	hi, ok := Percentile(values, 1)
	require.True(t, ok)
	assert.True(t, hi.Equal(decimal.RequireFromString("0.01")))
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := decimals("0.04", "-0.05", "0.0")
	_, ok := Percentile(values, 0.5)
	require.True(t, ok)
	assert.True(t, values[0].Equal(decimal.RequireFromString("0.04")))
}
