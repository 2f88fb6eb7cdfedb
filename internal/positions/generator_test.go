package positions

import (
	"testing"
	"time"

	"fx-market-risk/internal/config"
	"fx-market-risk/internal/model"
)

func testPairs() []config.PairConfig {
	return []config.PairConfig{
		{Symbol: "EURUSD", BaseCurrency: "EUR", QuoteCurrency: "USD", BasePositionSize: 10000000},
		{Symbol: "USDJPY", BaseCurrency: "USD", QuoteCurrency: "JPY", BasePositionSize: 5000000},
		{Symbol: "GBPUSD", BaseCurrency: "GBP", QuoteCurrency: "USD", BasePositionSize: 8000000},
	}
}

func testPositionsConfig() config.PositionsConfig {
	return config.PositionsConfig{
		Desk:             "FX_TRADING",
		LongProbability:  0.70,
		ShortProbability: 0.30,
		FlatProbability:  0.05,
		MaxDeviation:     0.20,
	}
}

func TestGenerateOnePerPair(t *testing.T) {
	g := NewGenerator(testPairs(), testPositionsConfig(), 42)
	date := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)

	out := g.Generate(date)
	if len(out) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(out))
	}

	seen := map[string]bool{}
	for _, rec := range out {
		seen[rec.Pair] = true
		if rec.Desk != "FX_TRADING" {
			t.Errorf("unexpected desk %q", rec.Desk)
		}
		if !rec.Date.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected date truncated to UTC midnight, got %s", rec.Date)
		}
		if rec.SourceFile != "generated" {
			t.Errorf("unexpected source file %q", rec.SourceFile)
		}
	}
	if !seen["EURUSD"] || !seen["USDJPY"] || !seen["GBPUSD"] {
		t.Errorf("missing pairs in output: %v", seen)
	}
}

func TestGenerateSizeWithinDeviation(t *testing.T) {
	g := NewGenerator(testPairs(), testPositionsConfig(), 7)

	for i := 0; i < 50; i++ {
		date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		for _, rec := range g.Generate(date) {
			if rec.Direction == model.DirectionFlat {
				if !rec.PositionSize.IsZero() {
					t.Fatalf("flat position must be zero-sized, got %s", rec.PositionSize)
				}
				continue
			}
			var base float64
			for _, p := range testPairs() {
				if p.Symbol == rec.Pair {
					base = p.BasePositionSize
				}
			}
			size := rec.PositionSize.InexactFloat64()
			if size < base*0.8-1 || size > base*1.2+1 {
				t.Fatalf("size %s for %s outside ±20%% of base %.0f", rec.PositionSize, rec.Pair, base)
			}
		}
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	a := NewGenerator(testPairs(), testPositionsConfig(), 99).Generate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	b := NewGenerator(testPairs(), testPositionsConfig(), 99).Generate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Direction != b[i].Direction || !a[i].PositionSize.Equal(b[i].PositionSize) {
			t.Fatalf("same seed produced different output at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateDirectionsKnown(t *testing.T) {
	g := NewGenerator(testPairs(), testPositionsConfig(), 1)

	for i := 0; i < 100; i++ {
		date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		for _, rec := range g.Generate(date) {
			if !rec.Direction.Valid() {
				t.Fatalf("unknown direction %q", rec.Direction)
			}
		}
	}
}
