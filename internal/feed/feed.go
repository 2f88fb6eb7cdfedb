// Package feed decodes the raw batches delivered by the upstream market
// data provider and the position file producer. It performs no validation
// beyond shape decoding; constraint checks belong to the validator.
package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fx-market-risk/internal/model"
)

// rateBatch mirrors the aggregate-bars payload of the market data provider:
// one ticker, one result row per trading day.
type rateBatch struct {
	Ticker  string      `json:"ticker"`
	Status  string      `json:"status"`
	Results []rateAgg   `json:"results"`
	Count   json.Number `json:"resultsCount"`
}

type rateAgg struct {
	Timestamp    int64       `json:"t"`
	Open         json.Number `json:"o"`
	Close        json.Number `json:"c"`
	High         json.Number `json:"h"`
	Low          json.Number `json:"l"`
	VWAP         json.Number `json:"vw"`
	Transactions int64       `json:"n"`
	Volume       json.Number `json:"v"`
}

// DecodeRates parses one raw rate batch. The ticker carries the pair as the
// component after the asset-class prefix, e.g. "C:EURUSD" -> "EURUSD".
func DecodeRates(r io.Reader, sourceFile string, ingested time.Time) ([]model.RateObservation, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var batch rateBatch
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("feed: decode rate batch %s: %w", sourceFile, err)
	}

	pair := pairFromTicker(batch.Ticker)

	out := make([]model.RateObservation, 0, len(batch.Results))
	for i, agg := range batch.Results {
		obs := model.RateObservation{
			Date:          model.Day(time.UnixMilli(agg.Timestamp).UTC()),
			Pair:          pair,
			Transactions:  agg.Transactions,
			SourceFile:    sourceFile,
			IngestionTime: ingested,
		}

		var err error
		if obs.Open, err = parseDecimal(agg.Open); err != nil {
			return nil, fmt.Errorf("feed: %s result %d open: %w", sourceFile, i, err)
		}
		if obs.Close, err = parseDecimal(agg.Close); err != nil {
			return nil, fmt.Errorf("feed: %s result %d close: %w", sourceFile, i, err)
		}
		if obs.High, err = parseDecimal(agg.High); err != nil {
			return nil, fmt.Errorf("feed: %s result %d high: %w", sourceFile, i, err)
		}
		if obs.Low, err = parseDecimal(agg.Low); err != nil {
			return nil, fmt.Errorf("feed: %s result %d low: %w", sourceFile, i, err)
		}
		if obs.VWAP, err = parseDecimal(agg.VWAP); err != nil {
			return nil, fmt.Errorf("feed: %s result %d vwap: %w", sourceFile, i, err)
		}
		obs.Volume, err = parseVolume(agg.Volume)
		if err != nil {
			return nil, fmt.Errorf("feed: %s result %d volume: %w", sourceFile, i, err)
		}

		out = append(out, obs)
	}

	return out, nil
}

// positionLine is one JSON-lines row from the position producer.
type positionLine struct {
	Date         string      `json:"date"`
	CurrencyPair string      `json:"currency_pair"`
	Desk         string      `json:"desk"`
	Direction    string      `json:"direction"`
	PositionSize json.Number `json:"position_size"`
}

// DecodePositions parses a JSON-lines position file. The producer encodes
// pairs either as "EURUSD" or "EUR/USD"; the slash form is collapsed.
func DecodePositions(r io.Reader, sourceFile string, ingested time.Time) ([]model.PositionRecord, error) {
	var out []model.PositionRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row positionLine
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("feed: %s line %d: %w", sourceFile, lineNo, err)
		}

		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			return nil, fmt.Errorf("feed: %s line %d date: %w", sourceFile, lineNo, err)
		}
		size, err := parseDecimal(row.PositionSize)
		if err != nil {
			return nil, fmt.Errorf("feed: %s line %d position_size: %w", sourceFile, lineNo, err)
		}

		out = append(out, model.PositionRecord{
			Date:          model.Day(date),
			Pair:          strings.ReplaceAll(row.CurrencyPair, "/", ""),
			Desk:          row.Desk,
			Direction:     model.Direction(row.Direction),
			PositionSize:  size,
			SourceFile:    sourceFile,
			IngestionTime: ingested,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("feed: scan %s: %w", sourceFile, err)
	}

	return out, nil
}

func pairFromTicker(ticker string) string {
	if _, rest, found := strings.Cut(ticker, ":"); found {
		return rest
	}
	return ticker
}

func parseDecimal(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}

func parseVolume(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	// Some deliveries encode volume as a float.
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
