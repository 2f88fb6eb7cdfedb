package app

import (
	"context"
	"time"

	"fx-market-risk/internal/service"
)

// Ingest runs a single recomputation cycle over the raw drop directories
// and exits. With DryRun nothing is persisted; the cycle result is only
// logged.
func (a *App) Ingest(ctx context.Context, opts IngestOptions) error {
	ratesDir := a.Config.Feed.RatesDir
	if opts.RatesDir != "" {
		ratesDir = opts.RatesDir
	}
	positionsDir := a.Config.Feed.PositionsDir
	if opts.PositionsDir != "" {
		positionsDir = opts.PositionsDir
	}

	var stores service.Stores
	if !opts.DryRun {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			a.Logger.Warn().Msg("database.dsn not configured; ingest will not persist")
		}
		if closeStore != nil {
			defer closeStore()
		}
		stores = storesFor(store)
	} else {
		a.Logger.Warn().Msg("dry-run: nothing will be persisted")
	}

	pipe, err := a.newPipeline()
	if err != nil {
		return err
	}

	svc := service.New(pipe, nil, stores, ratesDir, positionsDir,
		a.Config.Scheduler.AdvisoryLockKey, a.Logger)

	if err := svc.Restore(ctx); err != nil {
		return err
	}

	return svc.ProcessCycle(ctx, time.Now().UTC())
}
