// Package pipeline wires the analytics stages into an explicit task graph:
//
//	validate(rates)   -> merge(rate state)   \
//	validate(positions)-> merge(position state) \
//	                      returns -> lookback windows -> var engine -> view
//
// Rate and position ingestion are independent of each other; everything
// downstream reads the merged state of the same cycle. Each cycle stages
// its work on cloned state and commits all-or-nothing, so a failed
// recomputation leaves previously committed state and views untouched and
// a retry of the same (or a superset) delta is idempotent.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fx-market-risk/internal/logging"
	"fx-market-risk/internal/model"
	"fx-market-risk/internal/returns"
	"fx-market-risk/internal/risk"
	"fx-market-risk/internal/serving"
	"fx-market-risk/internal/state"
	"fx-market-risk/internal/validate"
	"fx-market-risk/internal/window"
)

// Params collect the model parameters for one pipeline instance.
type Params struct {
	WindowSize            int
	LookbackCalendarDays  int
	MinimumDataDate       time.Time
	ReturnSanityThreshold decimal.Decimal
	PercentileLong        float64
	PercentileShort       float64
}

// Delta is the newly arrived raw data for one cycle.
type Delta struct {
	Rates     []model.RateObservation
	Positions []model.PositionRecord
}

// Result reports one committed cycle.
type Result struct {
	RunID          uuid.UUID
	StartedAt      time.Time
	RateMerge      state.MergeStats
	PositionMerge  state.MergeStats
	RatesRejected  int
	PosRejected    int
	ReturnCount    int
	VaRRecordCount int
	Records        []model.VaRRecord
}

// Pipeline owns the persistent state tables and the derived views.
type Pipeline struct {
	params Params
	logger zerolog.Logger

	rateRules     *validate.Validator[model.RateObservation]
	positionRules *validate.Validator[model.PositionRecord]
	calculator    *returns.Calculator
	builder       *window.Builder
	engine        *risk.Engine

	rates     *state.Table[model.RateObservation]
	positions *state.Table[model.PositionRecord]
	returns   []model.ReturnObservation
	view      *serving.View
}

// New constructs a Pipeline with empty state.
func New(params Params, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		params:        params,
		logger:        logging.WithComponent(logger, "pipeline"),
		rateRules:     validate.New(validate.RateRules(), logger),
		positionRules: validate.New(validate.PositionRules(), logger),
		calculator:    returns.NewCalculator(params.ReturnSanityThreshold),
		builder:       window.NewBuilder(params.WindowSize, params.LookbackCalendarDays, params.MinimumDataDate),
		engine: risk.NewEngine(risk.Params{
			PercentileLong:   params.PercentileLong,
			PercentileShort:  params.PercentileShort,
			VolatilityWindow: params.WindowSize,
		}, logger),
		rates:     state.NewTable[model.RateObservation](),
		positions: state.NewTable[model.PositionRecord](),
		view:      serving.NewView(nil),
	}
}

// Restore seeds the state tables from previously persisted rows, typically
// on startup before the first cycle.
func (p *Pipeline) Restore(rates []model.RateObservation, positions []model.PositionRecord) {
	p.rates.Merge(rates)
	p.positions.Merge(positions)
}

// Cycle applies one delta and recomputes the derived views. On error no
// state is committed.
func (p *Pipeline) Cycle(delta Delta) (*Result, error) {
	result := &Result{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}
	log := p.logger.With().Str("run_id", result.RunID.String()).Logger()

	acceptedRates, rejectedRates, err := p.rateRules.Apply(delta.Rates)
	if err != nil {
		return nil, err
	}
	acceptedPositions, rejectedPositions, err := p.positionRules.Apply(delta.Positions)
	if err != nil {
		return nil, err
	}
	result.RatesRejected = len(rejectedRates)
	result.PosRejected = len(rejectedPositions)

	// Stage merges on clones so a downstream failure cannot leak
	// half-applied state.
	stagedRates := p.rates.Clone()
	stagedPositions := p.positions.Clone()
	result.RateMerge = stagedRates.Merge(acceptedRates)
	result.PositionMerge = stagedPositions.Merge(acceptedPositions)

	observations, err := p.calculator.Compute(stagedRates.Snapshot())
	if err != nil {
		log.Error().Err(err).Msg("recomputation failed; cycle not committed")
		return nil, err
	}
	result.ReturnCount = len(observations)

	lookbacks := p.builder.Build(observations)
	records := p.engine.Compute(lookbacks, observations, stagedRates, stagedPositions)
	result.VaRRecordCount = len(records)
	result.Records = records

	// Commit point: everything below must be infallible.
	p.rates = stagedRates
	p.positions = stagedPositions
	p.returns = observations
	p.view = serving.NewView(records)

	log.Info().
		Int("rates_applied", result.RateMerge.Applied()).
		Int("rates_stale", result.RateMerge.Stale).
		Int("positions_applied", result.PositionMerge.Applied()).
		Int("returns", result.ReturnCount).
		Int("var_records", result.VaRRecordCount).
		Msg("cycle committed")

	return result, nil
}

// View returns the serving view of the last committed cycle.
func (p *Pipeline) View() *serving.View { return p.view }

// Returns returns the committed return series ordered by (pair, date).
func (p *Pipeline) Returns() []model.ReturnObservation { return p.returns }

// RateState returns the committed rate table snapshot.
func (p *Pipeline) RateState() []model.RateObservation { return p.rates.Snapshot() }

// PositionState returns the committed position table snapshot.
func (p *Pipeline) PositionState() []model.PositionRecord { return p.positions.Snapshot() }
