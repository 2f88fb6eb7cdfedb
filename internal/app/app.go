package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fx-market-risk/internal/config"
	"fx-market-risk/internal/logging"
	"fx-market-risk/internal/pipeline"
	"fx-market-risk/internal/scheduler"
	"fx-market-risk/internal/service"
	"fx-market-risk/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.WithComponent(logger, "app")}
}

func (a *App) pipelineParams() (pipeline.Params, error) {
	minDate, err := a.Config.Pipeline.MinimumDate()
	if err != nil {
		return pipeline.Params{}, err
	}
	return pipeline.Params{
		WindowSize:            a.Config.Pipeline.WindowSize,
		LookbackCalendarDays:  a.Config.Pipeline.LookbackCalendarDays,
		MinimumDataDate:       minDate,
		ReturnSanityThreshold: decimal.NewFromFloat(a.Config.Pipeline.ReturnSanityThreshold),
		PercentileLong:        a.Config.Pipeline.PercentileLong,
		PercentileShort:       a.Config.Pipeline.PercentileShort,
	}, nil
}

func (a *App) newPipeline() (*pipeline.Pipeline, error) {
	params, err := a.pipelineParams()
	if err != nil {
		return nil, err
	}
	return pipeline.New(params, a.Logger), nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func storesFor(store *storage.Store) service.Stores {
	if store == nil {
		return service.Stores{}
	}
	return service.Stores{State: store, Derived: store, Locker: store}
}

// Run executes the long-running scheduled recomputation service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	pipe, err := a.newPipeline()
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := service.New(pipe, sched, storesFor(store),
		a.Config.Feed.RatesDir, a.Config.Feed.PositionsDir,
		a.Config.Scheduler.AdvisoryLockKey, a.Logger)

	if err := svc.Restore(ctx); err != nil {
		return err
	}

	a.Logger.Info().Msg("starting recomputation service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("recomputation service stopped")
	return nil
}

// IngestOptions configure a one-shot ingest cycle.
type IngestOptions struct {
	RatesDir     string
	PositionsDir string
	DryRun       bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting a pair's VaR history.
type ExportOptions struct {
	Pair      string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// GenPositionsOptions configure the position generator command.
type GenPositionsOptions struct {
	Date time.Time
	Out  string
	Seed int64
}
