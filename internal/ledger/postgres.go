package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"SignalSentinel/internal/model"
)

// PostgresLedger persists predictions to PostgreSQL. Postgres serializes
// concurrent single-row writes itself, so no process lock is held.
type PostgresLedger struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewPostgresLedger(dsn string, log zerolog.Logger) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(3)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	l := &PostgresLedger{db: db, log: log.With().Str("component", "ledger").Str("driver", "postgres").Logger()}
	if err := l.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.log.Info().Msg("postgres ledger opened")
	return l, nil
}

func (l *PostgresLedger) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id              BIGSERIAL PRIMARY KEY,
			instrument      TEXT NOT NULL,
			signal          TEXT NOT NULL,
			predicted_price DOUBLE PRECISION NOT NULL,
			actual_price    DOUBLE PRECISION,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_instrument ON predictions(instrument, created_at)`,
	}
	for _, s := range stmts {
		if _, err := l.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (l *PostgresLedger) Insert(ctx context.Context, instrument string, signal model.Signal, predictedPrice float64) (int64, error) {
	var id int64
	err := l.db.QueryRowContext(ctx, `INSERT INTO predictions (instrument, signal, predicted_price)
		VALUES ($1, $2, $3) RETURNING id`, instrument, string(signal), predictedPrice).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert prediction: %w", err)
	}
	return id, nil
}

func (l *PostgresLedger) PatchActualPrice(ctx context.Context, id int64, actual float64) (*model.PredictionRecord, error) {
	row := l.db.QueryRowContext(ctx, `UPDATE predictions SET actual_price = $1 WHERE id = $2
		RETURNING id, instrument, signal, predicted_price, actual_price, created_at`, actual, id)
	rec, err := scanPostgres(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("patch prediction %d: %w", id, err)
	}
	return &rec, nil
}

func (l *PostgresLedger) Get(ctx context.Context, id int64) (*model.PredictionRecord, error) {
	row := l.db.QueryRowContext(ctx, `SELECT id, instrument, signal, predicted_price, actual_price, created_at
		FROM predictions WHERE id = $1`, id)
	rec, err := scanPostgres(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction %d: %w", id, err)
	}
	return &rec, nil
}

func (l *PostgresLedger) ListRecent(ctx context.Context, limit int) ([]model.PredictionRecord, error) {
	return l.query(ctx, `SELECT id, instrument, signal, predicted_price, actual_price, created_at
		FROM predictions ORDER BY created_at DESC, id DESC LIMIT $1`, pgLimit(limit))
}

func (l *PostgresLedger) ListPending(ctx context.Context, instrument string, since time.Time) ([]model.PredictionRecord, error) {
	return l.query(ctx, `SELECT id, instrument, signal, predicted_price, actual_price, created_at
		FROM predictions
		WHERE instrument = $1 AND actual_price IS NULL AND created_at >= $2
		ORDER BY created_at DESC, id DESC`, instrument, since)
}

func (l *PostgresLedger) ListEvaluated(ctx context.Context, limit int) ([]model.PredictionRecord, error) {
	return l.query(ctx, `SELECT id, instrument, signal, predicted_price, actual_price, created_at
		FROM predictions WHERE actual_price IS NOT NULL
		ORDER BY created_at DESC, id DESC LIMIT $1`, pgLimit(limit))
}

// pgLimit maps "no limit" to NULL, which LIMIT treats as unbounded.
func pgLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func (l *PostgresLedger) query(ctx context.Context, q string, args ...any) ([]model.PredictionRecord, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := make([]model.PredictionRecord, 0)
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func scanPostgres(s rowScanner) (model.PredictionRecord, error) {
	var (
		rec    model.PredictionRecord
		signal string
		actual sql.NullFloat64
	)
	if err := s.Scan(&rec.ID, &rec.Instrument, &signal, &rec.PredictedPrice, &actual, &rec.CreatedAt); err != nil {
		return rec, err
	}
	rec.Signal = model.Signal(signal)
	if actual.Valid {
		v := actual.Float64
		rec.ActualPrice = &v
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (l *PostgresLedger) Close() error {
	l.log.Info().Msg("closing postgres ledger")
	return l.db.Close()
}
