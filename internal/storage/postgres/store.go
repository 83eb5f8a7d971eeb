package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS met_daily_metrics (
	network_id BIGINT NOT NULL,
	day DATE NOT NULL,
	from_block BIGINT NOT NULL,
	to_block BIGINT NOT NULL,
	aggregate_volume DOUBLE PRECISION NOT NULL,
	transfer_count INTEGER NOT NULL,
	average_transfer_value DOUBLE PRECISION NOT NULL,
	unique_account_count INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (network_id, day)
);
CREATE TABLE IF NOT EXISTS metrics_state (
	name TEXT PRIMARY KEY,
	last_processed_ts BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for daily metrics.
type Store struct {
	pool      *pgxpool.Pool
	networkID uint64
}

func NewStore(ctx context.Context, dsn string, networkID uint64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, networkID: networkID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutDays inserts or updates daily rows.
func (s *Store) PutDays(ctx context.Context, rows []model.DayStats) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO met_daily_metrics (
				network_id, day, from_block, to_block, aggregate_volume,
				transfer_count, average_transfer_value, unique_account_count, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (network_id, day)
			DO UPDATE SET
				from_block = EXCLUDED.from_block,
				to_block = EXCLUDED.to_block,
				aggregate_volume = EXCLUDED.aggregate_volume,
				transfer_count = EXCLUDED.transfer_count,
				average_transfer_value = EXCLUDED.average_transfer_value,
				unique_account_count = EXCLUDED.unique_account_count,
				updated_at = now()
		`,
			int64(s.networkID),
			row.Date.UTC(),
			int64(row.Blocks.From),
			int64(row.Blocks.To),
			row.AggregateVolume,
			row.TransferCount,
			row.AverageTransferValue,
			row.UniqueAccountCount,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
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
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM metrics_state WHERE name=$1`, name)
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
		INSERT INTO metrics_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
