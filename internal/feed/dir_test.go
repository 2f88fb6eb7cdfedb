package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadRatesDir(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("eurusd.json", `{"ticker": "C:EURUSD", "results": [{"t": 1748822400000, "c": 1.0920}]}`)
	write("usdjpy.json", `{"ticker": "C:USDJPY", "results": [{"t": 1748822400000, "c": 147.25}]}`)
	write("notes.txt", "not a drop file")

	out, err := ReadRatesDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(out))
	}
	// Files are read in sorted name order.
	if out[0].Pair != "EURUSD" || out[1].Pair != "USDJPY" {
		t.Errorf("unexpected order: %s, %s", out[0].Pair, out[1].Pair)
	}
	if out[0].SourceFile != "eurusd.json" {
		t.Errorf("expected base name as source, got %q", out[0].SourceFile)
	}
	if out[0].IngestionTime.IsZero() {
		t.Error("expected mod time as ingestion time")
	}
}

func TestReadRatesDirMissing(t *testing.T) {
	out, err := ReadRatesDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing dir must not error: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil for missing dir, got %v", out)
	}
}

func TestReadPositionsDir(t *testing.T) {
	dir := t.TempDir()
	body := `{"date": "2025-06-02", "currency_pair": "EURUSD", "desk": "G10 FX", "direction": "LONG", "position_size": 1000000}`
	if err := os.WriteFile(filepath.Join(dir, "positions.json"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := ReadPositionsDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(out) != 1 || out[0].Pair != "EURUSD" {
		t.Fatalf("unexpected output %+v", out)
	}
}
