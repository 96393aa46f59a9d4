package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yieldSpace/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	run_id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	kind TEXT NOT NULL,
	pool_address TEXT NOT NULL,
	maturity BIGINT NOT NULL,
	ts BIGINT NOT NULL,
	time_till_maturity BIGINT NOT NULL,
	action TEXT NOT NULL,
	from_address TEXT NOT NULL,
	to_address TEXT NOT NULL,
	base_delta NUMERIC NOT NULL,
	maturing_delta NUMERIC NOT NULL,
	token_delta NUMERIC,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS pool_snapshots (
	pool_address TEXT NOT NULL,
	run_id TEXT NOT NULL,
	maturity BIGINT NOT NULL,
	ts BIGINT NOT NULL,
	state TEXT NOT NULL,
	base_reserves NUMERIC NOT NULL,
	maturing_reserves NUMERIC NOT NULL,
	virtual_reserves NUMERIC NOT NULL,
	total_supply NUMERIC NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_address, run_id)
);

CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_address TEXT NOT NULL,
	maturity BIGINT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts TIMESTAMPTZ NOT NULL,
	window_end_ts TIMESTAMPTZ NOT NULL,
	trade_count BIGINT NOT NULL,
	liquidity_count BIGINT NOT NULL,
	base_volume NUMERIC NOT NULL,
	maturing_volume NUMERIC NOT NULL,
	net_supply NUMERIC NOT NULL,
	price NUMERIC,
	implied_rate NUMERIC,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_address, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS processing_state (
	name TEXT PRIMARY KEY,
	last_processed_ts BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for events, snapshots and metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutEvents implements storage.Storage.
func (s *Store) PutEvents(ctx context.Context, records []model.EventRecord) error {
	return s.InsertEvents(ctx, records)
}

// InsertEvents stores event records. Re-inserting a (run_id, seq) is a no-op.
func (s *Store) InsertEvents(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		var tokenDelta *string
		if r.TokenDelta != "" {
			v := r.TokenDelta
			tokenDelta = &v
		}
		batch.Queue(`
			INSERT INTO pool_events (
				run_id, seq, kind, pool_address, maturity, ts, time_till_maturity,
				action, from_address, to_address, base_delta, maturing_delta, token_delta
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::numeric,$12::numeric,$13::numeric)
			ON CONFLICT (run_id, seq) DO NOTHING
		`,
			r.RunID,
			int64(r.Seq),
			r.Kind,
			r.Pool,
			int64(r.Maturity),
			int64(r.Timestamp),
			int64(r.TimeTillMaturity),
			r.Action,
			r.From,
			r.To,
			r.BaseDelta,
			r.MaturingDelta,
			tokenDelta,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSnapshot inserts or replaces the snapshot of a pool for a run.
func (s *Store) UpsertSnapshot(ctx context.Context, snap model.PoolSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_snapshots (
			pool_address, run_id, maturity, ts, state,
			base_reserves, maturing_reserves, virtual_reserves, total_supply, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8::numeric,$9::numeric,now())
		ON CONFLICT (pool_address, run_id)
		DO UPDATE SET
			maturity = EXCLUDED.maturity,
			ts = EXCLUDED.ts,
			state = EXCLUDED.state,
			base_reserves = EXCLUDED.base_reserves,
			maturing_reserves = EXCLUDED.maturing_reserves,
			virtual_reserves = EXCLUDED.virtual_reserves,
			total_supply = EXCLUDED.total_supply,
			updated_at = now()
	`,
		snap.Pool,
		snap.RunID,
		int64(snap.Maturity),
		int64(snap.Timestamp),
		snap.State,
		snap.BaseReserves,
		snap.MaturingReserves,
		snap.VirtualReserves,
		snap.TotalSupply,
	)
	return err
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.WindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_address, maturity, window_size_seconds, window_start_ts, window_end_ts,
				trade_count, liquidity_count, base_volume, maturing_volume, net_supply,
				price, implied_rate, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9::numeric,$10::numeric,$11::numeric,$12::numeric,now(),now())
			ON CONFLICT (pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				trade_count = EXCLUDED.trade_count,
				liquidity_count = EXCLUDED.liquidity_count,
				base_volume = EXCLUDED.base_volume,
				maturing_volume = EXCLUDED.maturing_volume,
				net_supply = EXCLUDED.net_supply,
				price = EXCLUDED.price,
				implied_rate = EXCLUDED.implied_rate,
				updated_at = now()
		`,
			m.Pool,
			int64(m.Maturity),
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.TradeCount),
			int64(m.LiquidityCount),
			m.BaseVolume,
			m.MaturingVolume,
			m.NetSupply,
			m.Price,
			m.ImpliedRate,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM processing_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processing_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
