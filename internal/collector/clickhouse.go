package collector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"SignalSentinel/internal/model"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ClickHouseFetcher reads candles previously stored in ClickHouse. The
// table must have columns (bucket DateTime, symbol String, open, high, low,
// close, vol Float64).
type ClickHouseFetcher struct {
	db    *sql.DB
	table string
}

// NewClickHouseFetcher opens a pooled connection and pings it.
func NewClickHouseFetcher(dsn, table string) (*ClickHouseFetcher, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("clickhouse: invalid table name %q", table)
	}
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &ClickHouseFetcher{db: db, table: table}, nil
}

func (f *ClickHouseFetcher) Name() string { return "clickhouse" }

func latestBarsQuery(table string) string {
	return fmt.Sprintf(`
		SELECT bucket, open, high, low, close, vol
		FROM %s
		WHERE symbol = ?
		ORDER BY bucket DESC
		LIMIT ?`, table)
}

func (f *ClickHouseFetcher) FetchBars(ctx context.Context, instrument string, count int) ([]model.OHLCV, error) {
	if count <= 0 {
		return nil, fmt.Errorf("clickhouse: count must be positive, got %d", count)
	}
	rows, err := f.db.QueryContext(ctx, latestBarsQuery(f.table), instrument, count)
	if err != nil {
		return nil, unavailable(f.Name(), fmt.Errorf("latest bars: %w", err))
	}
	defer rows.Close()

	bars := make([]model.OHLCV, 0, count)
	for rows.Next() {
		var b model.OHLCV
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, unavailable(f.Name(), fmt.Errorf("scan bar: %w", err))
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(f.Name(), fmt.Errorf("rows: %w", err))
	}
	reverseBars(bars)
	return bars, nil
}

func (f *ClickHouseFetcher) Close() error {
	return f.db.Close()
}

// reverseBars turns newest-first query output into chronological order.
func reverseBars(bars []model.OHLCV) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
