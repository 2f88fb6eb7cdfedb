// Package model defines the domain records flowing through the risk pipeline.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction classifies the net exposure of a position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionFlat  Direction = "FLAT"
)

// Valid reports whether d is one of the known direction values.
func (d Direction) Valid() bool {
	switch d {
	case DirectionLong, DirectionShort, DirectionFlat:
		return true
	}
	return false
}

// Key is the natural business key shared by rate and position state:
// one row per trading date per currency pair.
type Key struct {
	Date time.Time
	Pair string
}

// KeyOf builds a Key with the date normalized to UTC midnight.
func KeyOf(date time.Time, pair string) Key {
	return Key{Date: Day(date), Pair: pair}
}

// Day truncates a timestamp to its UTC calendar date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RateObservation is one daily OHLC observation for a currency pair.
type RateObservation struct {
	Date          time.Time
	Pair          string
	Open          decimal.Decimal
	Close         decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	VWAP          decimal.Decimal
	Transactions  int64
	Volume        int64
	SourceFile    string
	IngestionTime time.Time
}

// Key returns the merge key for the observation.
func (r RateObservation) Key() Key { return KeyOf(r.Date, r.Pair) }

// Ingested returns the conflict-resolution sequencing field.
func (r RateObservation) Ingested() time.Time { return r.IngestionTime }

// PositionRecord is the net desk position for a pair on a given date.
type PositionRecord struct {
	Date          time.Time
	Pair          string
	Desk          string
	Direction     Direction
	PositionSize  decimal.Decimal
	SourceFile    string
	IngestionTime time.Time
}

// Key returns the merge key for the position.
func (p PositionRecord) Key() Key { return KeyOf(p.Date, p.Pair) }

// Ingested returns the conflict-resolution sequencing field.
func (p PositionRecord) Ingested() time.Time { return p.IngestionTime }

// ReturnObservation is the day-over-day return derived from rate state.
// PrevClose and DailyReturn are nil for the first observation of a pair;
// DailyReturn is nil only when PrevClose is nil.
type ReturnObservation struct {
	Date          time.Time
	Pair          string
	Close         decimal.Decimal
	PrevClose     *decimal.Decimal
	DailyReturn   *decimal.Decimal
	ProcessedTime time.Time
}

// VaRRecord is the output row of the risk engine. Tail percentiles and the
// derived VaR figures are nil when the anchor has no prior return history.
type VaRRecord struct {
	Date          time.Time
	Pair          string
	Desk          string
	PositionSize  decimal.Decimal
	Direction     Direction
	P05Return     *decimal.Decimal
	P95Return     *decimal.Decimal
	VaR95Base     *decimal.Decimal
	VaR95USD      *decimal.Decimal
	Volatility30D *decimal.Decimal
	CurrentRate   decimal.Decimal
}

// BaseCurrency returns the leading three letters of a six-letter pair code,
// e.g. "EUR" for "EURUSD". Returns "" for malformed codes.
func BaseCurrency(pair string) string {
	if len(pair) < 6 {
		return ""
	}
	return pair[:3]
}

// QuoteCurrency returns the trailing three letters of a six-letter pair code.
func QuoteCurrency(pair string) string {
	if len(pair) < 6 {
		return ""
	}
	return pair[3:6]
}
