package window

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Percentile estimates the p-th percentile (0 <= p <= 1) of values using
// continuous linear interpolation between order statistics: for n sorted
// values the estimate sits at position p*(n-1). This matches SQL
// percentile_cont. Returns false when values is empty.
func Percentile(values []decimal.Decimal, p float64) (decimal.Decimal, bool) {
	n := len(values)
	if n == 0 {
		return decimal.Zero, false
	}
	if n == 1 {
		return values[0], true
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	sorted := make([]decimal.Decimal, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	pos := p * float64(n-1)
	lower := int(pos)
	if lower >= n-1 {
		return sorted[n-1], true
	}
	frac := pos - float64(lower)
	if frac == 0 {
		return sorted[lower], true
	}

	span := sorted[lower+1].Sub(sorted[lower])
	return sorted[lower].Add(span.Mul(decimal.NewFromFloat(frac))), true
}
