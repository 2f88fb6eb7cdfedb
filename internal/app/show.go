package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// Show prints recent VaR records.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show var records")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentVaRRecords(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no var records found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tPair\tDesk\tDir\tSize\tP05\tP95\tVaR\tVaR(USD)\tVol30d\tRate")

	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Date.Format("2006-01-02"),
			rec.Pair,
			rec.Desk,
			rec.Direction,
			rec.PositionSize.StringFixed(0),
			formatOptional(rec.P05Return, 6),
			formatOptional(rec.P95Return, 6),
			formatOptional(rec.VaR95Base, 2),
			formatOptional(rec.VaR95USD, 2),
			formatOptional(rec.Volatility30D, 6),
			rec.CurrentRate.StringFixed(4),
		)
	}

	writer.Flush()
	return nil
}

func formatOptional(d *decimal.Decimal, places int32) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(places)
}
