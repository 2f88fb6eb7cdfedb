package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"fx-market-risk/internal/model"
)

// Export renders one pair's VaR history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Pair == "" {
		return errors.New("--pair must be provided")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := model.Day(time.Now().UTC()).AddDate(0, 0, 1)
	if opts.To != nil {
		to = model.Day(*opts.To)
	}

	from := to.AddDate(0, 0, -opts.MaxPoints)
	if opts.From != nil {
		from = model.Day(*opts.From)
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListVaRSeries(ctx, opts.Pair, from, to)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Str("pair", opts.Pair).Msg("no var records found for export window")
		return nil
	}

	downsampled := downsampleRecords(records, opts.MaxPoints)
	a.Logger.Info().Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting var records")

	if opts.CSVPath != "" {
		if err := writeRecordsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRecordsPNG(opts.PNGPath, opts.Pair, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRecords(records []model.VaRRecord, max int) []model.VaRRecord {
	if max <= 0 || len(records) <= max {
		return records
	}

	result := make([]model.VaRRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeRecordsCSV(path string, records []model.VaRRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "currency_pair", "desk", "position_size", "direction", "p05_return", "p95_return", "var_95_base_currency", "var_95_usd", "volatility_30d", "current_rate"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.Date.Format("2006-01-02"),
			rec.Pair,
			rec.Desk,
			rec.PositionSize.String(),
			string(rec.Direction),
			optionalString(rec.P05Return),
			optionalString(rec.P95Return),
			optionalString(rec.VaR95Base),
			optionalString(rec.VaR95USD),
			optionalString(rec.Volatility30D),
			rec.CurrentRate.String(),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRecordsPNG(path, pair string, records []model.VaRRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(records))
	varUSD := make([]float64, 0, len(records))
	volatility := make([]float64, 0, len(records))

	for _, rec := range records {
		if rec.VaR95USD == nil {
			continue
		}
		x = append(x, rec.Date)
		varUSD = append(varUSD, rec.VaR95USD.InexactFloat64())
		if rec.Volatility30D != nil {
			volatility = append(volatility, rec.Volatility30D.InexactFloat64()*100)
		} else {
			volatility = append(volatility, 0)
		}
	}
	if len(x) == 0 {
		return errors.New("no records with computed var to chart")
	}

	usdFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Title:  pair + " 1-day 95% VaR",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "VaR (USD)",
			ValueFormatter: usdFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "Volatility 30d (%)",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "VaR 95 (USD)",
				XValues: x,
				YValues: varUSD,
			},
			chart.TimeSeries{
				Name:    "Volatility 30d",
				XValues: x,
				YValues: volatility,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func optionalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
