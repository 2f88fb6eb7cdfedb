package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fx-market-risk/internal/feed"
	"fx-market-risk/internal/logging"
	"fx-market-risk/internal/pipeline"
	"fx-market-risk/internal/scheduler"
	"fx-market-risk/internal/storage"
)

// Stores groups the optional persistence interfaces. All fields may be nil,
// in which case the service runs purely in memory.
type Stores struct {
	State   storage.StateStore
	Derived storage.DerivedStore
	Locker  storage.AdvisoryLocker
}

// Service orchestrates ingestion, recomputation, and persistence.
type Service struct {
	scheduler *scheduler.Scheduler
	pipe      *pipeline.Pipeline
	stores    Stores
	logger    zerolog.Logger

	ratesDir     string
	positionsDir string
	lockKey      int64
}

// New constructs the recomputation service.
func New(pipe *pipeline.Pipeline, sched *scheduler.Scheduler, stores Stores, ratesDir, positionsDir string, lockKey int64, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:    sched,
		pipe:         pipe,
		stores:       stores,
		logger:       logging.WithComponent(logger, "service"),
		ratesDir:     ratesDir,
		positionsDir: positionsDir,
		lockKey:      lockKey,
	}
}

// Run begins the aligned recomputation loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes one recomputation cycle: read the raw drop
// directories, apply the delta through the pipeline, and persist the merged
// state and rebuilt views. The advisory lock keeps concurrent runners from
// interleaving cycles; losing the lock skips the cycle rather than queueing.
func (s *Service) ProcessCycle(ctx context.Context, cycle time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", cycle).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeCycle(ctx, cycle)
}

func (s *Service) executeCycle(ctx context.Context, cycle time.Time) error {
	delta, err := s.readDelta()
	if err != nil {
		return err
	}

	result, err := s.pipe.Cycle(delta)
	if err != nil {
		return fmt.Errorf("recompute cycle: %w", err)
	}

	if err := s.persist(ctx, result); err != nil {
		return err
	}

	s.logger.Info().Time("cycle", cycle).
		Str("run_id", result.RunID.String()).
		Int("rates_in", len(delta.Rates)).
		Int("positions_in", len(delta.Positions)).
		Int("var_records", result.VaRRecordCount).
		Msg("cycle processed")

	return nil
}

// Restore seeds the pipeline from durable state, typically before the first
// cycle after a restart.
func (s *Service) Restore(ctx context.Context) error {
	if s.stores.State == nil {
		return nil
	}

	rates, err := s.stores.State.LoadRateState(ctx)
	if err != nil {
		return fmt.Errorf("load rate state: %w", err)
	}
	positions, err := s.stores.State.LoadPositionState(ctx)
	if err != nil {
		return fmt.Errorf("load position state: %w", err)
	}

	s.pipe.Restore(rates, positions)
	s.logger.Info().Int("rates", len(rates)).Int("positions", len(positions)).Msg("state restored")
	return nil
}

func (s *Service) readDelta() (pipeline.Delta, error) {
	rates, err := feed.ReadRatesDir(s.ratesDir)
	if err != nil {
		return pipeline.Delta{}, fmt.Errorf("read rates delta: %w", err)
	}
	positions, err := feed.ReadPositionsDir(s.positionsDir)
	if err != nil {
		return pipeline.Delta{}, fmt.Errorf("read positions delta: %w", err)
	}
	return pipeline.Delta{Rates: rates, Positions: positions}, nil
}

// persist writes the committed cycle output. The merge-table upserts carry
// the same ingestion-time guard as the in-memory merge, so re-persisting a
// snapshot is a no-op.
func (s *Service) persist(ctx context.Context, result *pipeline.Result) error {
	if s.stores.State != nil {
		if err := s.stores.State.UpsertRates(ctx, s.pipe.RateState()); err != nil {
			return fmt.Errorf("persist rate state: %w", err)
		}
		if err := s.stores.State.UpsertPositions(ctx, s.pipe.PositionState()); err != nil {
			return fmt.Errorf("persist position state: %w", err)
		}
	}
	if s.stores.Derived != nil {
		if err := s.stores.Derived.ReplaceDerived(ctx, s.pipe.Returns(), result.Records); err != nil {
			return fmt.Errorf("persist derived views: %w", err)
		}
	}
	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.stores.Locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.stores.Locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
