// Package returns derives day-over-day returns from the rate state table.
package returns

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fx-market-risk/internal/model"
)

// ErrOutOfBounds marks a return whose magnitude exceeds the sanity threshold.
// It fails the whole recomputation rather than dropping the row: a move that
// large is a bad tick, and silently excluding it would understate risk.
type ErrOutOfBounds struct {
	Date      time.Time
	Pair      string
	Return    decimal.Decimal
	Threshold decimal.Decimal
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("returns: %s %s daily return %s exceeds sanity threshold %s",
		e.Pair, e.Date.Format("2006-01-02"), e.Return.String(), e.Threshold.String())
}

// Calculator computes per-pair daily returns.
type Calculator struct {
	threshold decimal.Decimal
	now       func() time.Time
}

// NewCalculator builds a Calculator with the given sanity threshold, e.g.
// 0.15 for a hard 15% daily move bound.
func NewCalculator(threshold decimal.Decimal) *Calculator {
	return &Calculator{threshold: threshold, now: time.Now}
}

// Compute lags each rate observation against the previous present
// observation of the same pair, not the previous calendar day, so weekends
// and data gaps are skipped naturally. Input must be ordered by (pair, date)
// ascending, as produced by the state table snapshot. The first observation
// of each pair yields a nil previous close and nil return.
//
// A non-nil return with magnitude strictly greater than the threshold
// aborts the computation; a return of exactly the threshold is accepted.
func (c *Calculator) Compute(rates []model.RateObservation) ([]model.ReturnObservation, error) {
	processed := c.now().UTC()
	out := make([]model.ReturnObservation, 0, len(rates))

	var prev *model.RateObservation
	for i := range rates {
		rate := rates[i]
		obs := model.ReturnObservation{
			Date:          model.Day(rate.Date),
			Pair:          rate.Pair,
			Close:         rate.Close,
			ProcessedTime: processed,
		}

		if prev != nil && prev.Pair == rate.Pair {
			prevClose := prev.Close
			obs.PrevClose = &prevClose
			if prevClose.IsZero() {
				return nil, fmt.Errorf("returns: %s %s has zero previous close",
					rate.Pair, rate.Date.Format("2006-01-02"))
			}
			ret := rate.Close.Div(prevClose).Sub(decimal.NewFromInt(1))
			if ret.Abs().GreaterThan(c.threshold) {
				return nil, &ErrOutOfBounds{
					Date:      obs.Date,
					Pair:      obs.Pair,
					Return:    ret,
					Threshold: c.threshold,
				}
			}
			obs.DailyReturn = &ret
		}

		out = append(out, obs)
		prev = &rates[i]
	}

	return out, nil
}
