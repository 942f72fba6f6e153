package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"SignalSentinel/internal/model"
)

// SQLiteLedger persists predictions to a SQLite database.
type SQLiteLedger struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteLedger opens (or creates) the SQLite database and runs migrations.
func NewSQLiteLedger(dbPath string, log zerolog.Logger) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets history and accuracy reads run while a cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	l := &SQLiteLedger{db: db, log: log.With().Str("component", "ledger").Str("driver", "sqlite").Logger(), now: time.Now}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	l.log.Info().Str("path", dbPath).Msg("sqlite ledger opened")
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			instrument      TEXT NOT NULL,
			signal          TEXT NOT NULL,
			predicted_price REAL NOT NULL,
			actual_price    REAL,
			created_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_instrument ON predictions(instrument, created_at)`,
	}

	for _, s := range stmts {
		if _, err := l.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (l *SQLiteLedger) Insert(ctx context.Context, instrument string, signal model.Signal, predictedPrice float64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.db.ExecContext(ctx, `INSERT INTO predictions
		(instrument, signal, predicted_price, actual_price, created_at)
		VALUES (?,?,?,NULL,?)`,
		instrument, string(signal), predictedPrice, l.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert prediction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert prediction: %w", err)
	}
	return id, nil
}

func (l *SQLiteLedger) PatchActualPrice(ctx context.Context, id int64, actual float64) (*model.PredictionRecord, error) {
	l.mu.Lock()
	res, err := l.db.ExecContext(ctx, `UPDATE predictions SET actual_price = ? WHERE id = ?`, actual, id)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("patch prediction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("patch prediction %d: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return l.Get(ctx, id)
}

func (l *SQLiteLedger) Get(ctx context.Context, id int64) (*model.PredictionRecord, error) {
	row := l.db.QueryRowContext(ctx, `SELECT id, instrument, signal, predicted_price, actual_price, created_at
		FROM predictions WHERE id = ?`, id)
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction %d: %w", id, err)
	}
	return &rec, nil
}

func (l *SQLiteLedger) ListRecent(ctx context.Context, limit int) ([]model.PredictionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return l.query(ctx, `SELECT id, instrument, signal, predicted_price, actual_price, created_at
		FROM predictions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (l *SQLiteLedger) ListPending(ctx context.Context, instrument string, since time.Time) ([]model.PredictionRecord, error) {
	return l.query(ctx, `SELECT id, instrument, signal, predicted_price, actual_price, created_at
		FROM predictions
		WHERE instrument = ? AND actual_price IS NULL AND created_at >= ?
		ORDER BY created_at DESC, id DESC`, instrument, since.UnixMilli())
}

func (l *SQLiteLedger) ListEvaluated(ctx context.Context, limit int) ([]model.PredictionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return l.query(ctx, `SELECT id, instrument, signal, predicted_price, actual_price, created_at
		FROM predictions WHERE actual_price IS NOT NULL
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (l *SQLiteLedger) query(ctx context.Context, q string, args ...any) ([]model.PredictionRecord, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := make([]model.PredictionRecord, 0)
	for rows.Next() {
		rec, err := scanSQLite(rows)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(s rowScanner) (model.PredictionRecord, error) {
	var (
		rec       model.PredictionRecord
		signal    string
		actual    sql.NullFloat64
		createdMs int64
	)
	if err := s.Scan(&rec.ID, &rec.Instrument, &signal, &rec.PredictedPrice, &actual, &createdMs); err != nil {
		return rec, err
	}
	rec.Signal = model.Signal(signal)
	if actual.Valid {
		v := actual.Float64
		rec.ActualPrice = &v
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	return rec, nil
}

func (l *SQLiteLedger) Close() error {
	l.log.Info().Msg("closing sqlite ledger")
	return l.db.Close()
}
