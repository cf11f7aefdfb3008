package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/pkg/database"
)

// Coverage 저장된 일봉 범위
type Coverage struct {
	First time.Time
	Last  time.Time
	Count int
}

// Repository 일봉 히스토리 저장소 (data.index_bars)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(db *database.DB) *Repository {
	return &Repository{pool: db.Pool}
}

// UpsertBars 일봉 일괄 저장
func (r *Repository) UpsertBars(ctx context.Context, symbol string, bars []contracts.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO data.index_bars (symbol, trade_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			updated_at = NOW()`

	for _, b := range bars {
		batch.Queue(query, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range bars {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert bar %s: %w", bars[i].Date.Format(contracts.DateLayout), err)
		}
	}

	return nil
}

// GetBars 날짜 범위 일봉 조회 (오래된 순)
func (r *Repository) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT trade_date, open, high, low, close, volume
		FROM data.index_bars
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}

	return bars, rows.Err()
}

// Coverage 심볼별 저장 범위 조회
func (r *Repository) Coverage(ctx context.Context, symbol string) (Coverage, error) {
	query := `
		SELECT MIN(trade_date), MAX(trade_date), COUNT(*)
		FROM data.index_bars
		WHERE symbol = $1`

	var (
		first, last *time.Time
		cov         Coverage
	)
	if err := r.pool.QueryRow(ctx, query, symbol).Scan(&first, &last, &cov.Count); err != nil {
		return Coverage{}, fmt.Errorf("query coverage: %w", err)
	}
	if first != nil {
		cov.First = *first
	}
	if last != nil {
		cov.Last = *last
	}
	return cov, nil
}
