package validate

import (
	"fx-market-risk/internal/model"
)

// RateRules are the ingest constraints for rate observations.
func RateRules() []Rule[model.RateObservation] {
	return []Rule[model.RateObservation]{
		{
			Name:   "currency_pair_present",
			Action: Drop,
			Predicate: func(r model.RateObservation) bool {
				return r.Pair != ""
			},
		},
		{
			Name:   "close_positive",
			Action: Drop,
			Predicate: func(r model.RateObservation) bool {
				return r.Close.IsPositive()
			},
		},
		{
			Name:   "date_present",
			Action: Drop,
			Predicate: func(r model.RateObservation) bool {
				return !r.Date.IsZero()
			},
		},
	}
}

// PositionRules are the ingest constraints for position records.
func PositionRules() []Rule[model.PositionRecord] {
	return []Rule[model.PositionRecord]{
		{
			Name:   "currency_pair_present",
			Action: Drop,
			Predicate: func(p model.PositionRecord) bool {
				return p.Pair != ""
			},
		},
		{
			Name:   "position_size_present",
			Action: Drop,
			Predicate: func(p model.PositionRecord) bool {
				return !p.PositionSize.IsNegative()
			},
		},
		{
			Name:   "direction_known",
			Action: Warn,
			Predicate: func(p model.PositionRecord) bool {
				return p.Direction.Valid()
			},
		},
	}
}
