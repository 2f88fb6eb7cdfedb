package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fx-market-risk/internal/model"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertRateStateSQL = `INSERT INTO rate_state (
        date,
        currency_pair,
        open_rate,
        close_rate,
        high_rate,
        low_rate,
        vwap,
        transactions,
        trading_volume,
        source_file,
        ingestion_time
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (date, currency_pair) DO UPDATE
    SET
        open_rate      = EXCLUDED.open_rate,
        close_rate     = EXCLUDED.close_rate,
        high_rate      = EXCLUDED.high_rate,
        low_rate       = EXCLUDED.low_rate,
        vwap           = EXCLUDED.vwap,
        transactions   = EXCLUDED.transactions,
        trading_volume = EXCLUDED.trading_volume,
        source_file    = EXCLUDED.source_file,
        ingestion_time = EXCLUDED.ingestion_time
    WHERE rate_state.ingestion_time < EXCLUDED.ingestion_time;`

	listRateStateSQL = `SELECT
        date,
        currency_pair,
        open_rate,
        close_rate,
        high_rate,
        low_rate,
        vwap,
        transactions,
        trading_volume,
        source_file,
        ingestion_time
    FROM rate_state
    ORDER BY currency_pair, date;`

	upsertPositionStateSQL = `INSERT INTO position_state (
        date,
        currency_pair,
        desk,
        direction,
        position_size,
        source_file,
        ingestion_time
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (date, currency_pair) DO UPDATE
    SET
        desk           = EXCLUDED.desk,
        direction      = EXCLUDED.direction,
        position_size  = EXCLUDED.position_size,
        source_file    = EXCLUDED.source_file,
        ingestion_time = EXCLUDED.ingestion_time
    WHERE position_state.ingestion_time < EXCLUDED.ingestion_time;`

	listPositionStateSQL = `SELECT
        date,
        currency_pair,
        desk,
        direction,
        position_size,
        source_file,
        ingestion_time
    FROM position_state
    ORDER BY currency_pair, date;`

	deleteReturnsSQL = `DELETE FROM fx_returns;`

	insertReturnSQL = `INSERT INTO fx_returns (
        date,
        currency_pair,
        close_rate,
        prev_close_rate,
        daily_return,
        processed_time
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	deleteVaRRecordsSQL = `DELETE FROM var_records;`

	insertVaRRecordSQL = `INSERT INTO var_records (
        date,
        currency_pair,
        desk,
        position_size,
        direction,
        p05_return,
        p95_return,
        var_95_base_currency,
        var_95_usd,
        volatility_30d,
        current_rate
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    );`

	listRecentVaRRecordsSQL = `SELECT
        date,
        currency_pair,
        desk,
        position_size,
        direction,
        p05_return,
        p95_return,
        var_95_base_currency,
        var_95_usd,
        volatility_30d,
        current_rate
    FROM var_records
    ORDER BY date DESC, currency_pair
    LIMIT $1;`

	listVaRSeriesSQL = `SELECT
        date,
        currency_pair,
        desk,
        position_size,
        direction,
        p05_return,
        p95_return,
        var_95_base_currency,
        var_95_usd,
        volatility_30d,
        current_rate
    FROM var_records
    WHERE currency_pair = $1
      AND date >= $2
      AND date < $3
    ORDER BY date;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// StateStore persists the merge tables.
type StateStore interface {
	UpsertRates(ctx context.Context, rates []model.RateObservation) error
	UpsertPositions(ctx context.Context, positions []model.PositionRecord) error
	LoadRateState(ctx context.Context) ([]model.RateObservation, error)
	LoadPositionState(ctx context.Context) ([]model.PositionRecord, error)
}

// DerivedStore replaces the recomputed views.
type DerivedStore interface {
	ReplaceDerived(ctx context.Context, returns []model.ReturnObservation, records []model.VaRRecord) error
	ListRecentVaRRecords(ctx context.Context, limit int) ([]model.VaRRecord, error)
	ListVaRSeries(ctx context.Context, pair string, from, to time.Time) ([]model.VaRRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to state tables and derived views.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best-effort release; the lock dies with the session anyway.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// UpsertRates applies a batch of rate rows. The ingestion-time guard in the
// upsert keeps the durable table consistent with the in-memory merge: stale
// deliveries update nothing.
func (s *Store) UpsertRates(ctx context.Context, rates []model.RateObservation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, r := range rates {
		batch.Queue(upsertRateStateSQL,
			r.Date,
			r.Pair,
			r.Open.String(),
			r.Close.String(),
			r.High.String(),
			r.Low.String(),
			r.VWAP.String(),
			r.Transactions,
			r.Volume,
			r.SourceFile,
			r.IngestionTime,
		)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert rate state: %w", err)
	}
	return nil
}

// UpsertPositions applies a batch of position rows under the same
// ingestion-time guard.
func (s *Store) UpsertPositions(ctx context.Context, positions []model.PositionRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(upsertPositionStateSQL,
			p.Date,
			p.Pair,
			p.Desk,
			string(p.Direction),
			p.PositionSize.String(),
			p.SourceFile,
			p.IngestionTime,
		)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert position state: %w", err)
	}
	return nil
}

// LoadRateState reads the whole rate table ordered by (pair, date).
func (s *Store) LoadRateState(ctx context.Context) ([]model.RateObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRateStateSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list rate state: %w", queryErr)
	}
	defer rows.Close()

	out := make([]model.RateObservation, 0)
	for rows.Next() {
		obs, scanErr := scanRateObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// LoadPositionState reads the whole position table ordered by (pair, date).
func (s *Store) LoadPositionState(ctx context.Context) ([]model.PositionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPositionStateSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list position state: %w", queryErr)
	}
	defer rows.Close()

	out := make([]model.PositionRecord, 0)
	for rows.Next() {
		var rec model.PositionRecord
		var direction, sizeStr string
		if err := rows.Scan(
			&rec.Date,
			&rec.Pair,
			&rec.Desk,
			&direction,
			&sizeStr,
			&rec.SourceFile,
			&rec.IngestionTime,
		); err != nil {
			return nil, err
		}
		rec.Direction = model.Direction(direction)
		size, convErr := decimal.NewFromString(sizeStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse position size: %w", convErr)
		}
		rec.PositionSize = size
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ReplaceDerived rebuilds the derived view tables inside one transaction,
// matching the all-or-nothing cycle commit of the in-memory pipeline.
func (s *Store) ReplaceDerived(ctx context.Context, returns []model.ReturnObservation, records []model.VaRRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin derived replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteReturnsSQL); err != nil {
		return fmt.Errorf("clear fx returns: %w", err)
	}
	if _, err := tx.Exec(ctx, deleteVaRRecordsSQL); err != nil {
		return fmt.Errorf("clear var records: %w", err)
	}

	batch := &pgx.Batch{}
	for _, r := range returns {
		batch.Queue(insertReturnSQL,
			r.Date,
			r.Pair,
			r.Close.String(),
			decimalPtrString(r.PrevClose),
			decimalPtrString(r.DailyReturn),
			r.ProcessedTime,
		)
	}
	for _, rec := range records {
		batch.Queue(insertVaRRecordSQL,
			rec.Date,
			rec.Pair,
			rec.Desk,
			rec.PositionSize.String(),
			string(rec.Direction),
			decimalPtrString(rec.P05Return),
			decimalPtrString(rec.P95Return),
			decimalPtrString(rec.VaR95Base),
			decimalPtrString(rec.VaR95USD),
			decimalPtrString(rec.Volatility30D),
			rec.CurrentRate.String(),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert derived rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit derived replace: %w", err)
	}
	return nil
}

// ListRecentVaRRecords lists the most recent VaR records.
func (s *Store) ListRecentVaRRecords(ctx context.Context, limit int) ([]model.VaRRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentVaRRecordsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent var records: %w", queryErr)
	}
	defer rows.Close()

	return collectVaRRecords(rows)
}

// ListVaRSeries lists one pair's records within [from, to).
func (s *Store) ListVaRSeries(ctx context.Context, pair string, from, to time.Time) ([]model.VaRRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listVaRSeriesSQL, pair, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list var series: %w", queryErr)
	}
	defer rows.Close()

	return collectVaRRecords(rows)
}

func collectVaRRecords(rows pgx.Rows) ([]model.VaRRecord, error) {
	out := make([]model.VaRRecord, 0)
	for rows.Next() {
		rec, scanErr := scanVaRRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanRateObservation(rows pgx.Rows) (model.RateObservation, error) {
	var (
		obs                                         model.RateObservation
		openStr, closeStr, highStr, lowStr, vwapStr string
	)

	if err := rows.Scan(
		&obs.Date,
		&obs.Pair,
		&openStr,
		&closeStr,
		&highStr,
		&lowStr,
		&vwapStr,
		&obs.Transactions,
		&obs.Volume,
		&obs.SourceFile,
		&obs.IngestionTime,
	); err != nil {
		return model.RateObservation{}, err
	}

	var err error
	if obs.Open, err = decimal.NewFromString(openStr); err != nil {
		return model.RateObservation{}, fmt.Errorf("parse open rate: %w", err)
	}
	if obs.Close, err = decimal.NewFromString(closeStr); err != nil {
		return model.RateObservation{}, fmt.Errorf("parse close rate: %w", err)
	}
	if obs.High, err = decimal.NewFromString(highStr); err != nil {
		return model.RateObservation{}, fmt.Errorf("parse high rate: %w", err)
	}
	if obs.Low, err = decimal.NewFromString(lowStr); err != nil {
		return model.RateObservation{}, fmt.Errorf("parse low rate: %w", err)
	}
	if obs.VWAP, err = decimal.NewFromString(vwapStr); err != nil {
		return model.RateObservation{}, fmt.Errorf("parse vwap: %w", err)
	}

	return obs, nil
}

func scanVaRRecord(rows pgx.Rows) (model.VaRRecord, error) {
	var (
		rec                                     model.VaRRecord
		direction, sizeStr, rateStr             string
		p05Str, p95Str, baseStr, usdStr, volStr *string
	)

	if err := rows.Scan(
		&rec.Date,
		&rec.Pair,
		&rec.Desk,
		&sizeStr,
		&direction,
		&p05Str,
		&p95Str,
		&baseStr,
		&usdStr,
		&volStr,
		&rateStr,
	); err != nil {
		return model.VaRRecord{}, err
	}

	rec.Direction = model.Direction(direction)

	var err error
	if rec.PositionSize, err = decimal.NewFromString(sizeStr); err != nil {
		return model.VaRRecord{}, fmt.Errorf("parse position size: %w", err)
	}
	if rec.CurrentRate, err = decimal.NewFromString(rateStr); err != nil {
		return model.VaRRecord{}, fmt.Errorf("parse current rate: %w", err)
	}
	if rec.P05Return, err = parseDecimalPtr(p05Str); err != nil {
		return model.VaRRecord{}, fmt.Errorf("parse p05 return: %w", err)
	}
	if rec.P95Return, err = parseDecimalPtr(p95Str); err != nil {
		return model.VaRRecord{}, fmt.Errorf("parse p95 return: %w", err)
	}
	if rec.VaR95Base, err = parseDecimalPtr(baseStr); err != nil {
		return model.VaRRecord{}, fmt.Errorf("parse var base: %w", err)
	}
	if rec.VaR95USD, err = parseDecimalPtr(usdStr); err != nil {
		return model.VaRRecord{}, fmt.Errorf("parse var usd: %w", err)
	}
	if rec.Volatility30D, err = parseDecimalPtr(volStr); err != nil {
		return model.VaRRecord{}, fmt.Errorf("parse volatility: %w", err)
	}

	return rec, nil
}

func decimalPtrString(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
