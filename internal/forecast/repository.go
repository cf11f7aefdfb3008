package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/pkg/database"
)

// ErrNoRuns no archived run for the symbol
var ErrNoRuns = errors.New("no archived forecast run")

// StoredRun 아카이브된 실행 결과
type StoredRun struct {
	RunID      uuid.UUID         `json:"run_id"`
	Symbol     string            `json:"symbol"`
	ConfigHash string            `json:"config_hash"`
	AsOf       time.Time         `json:"as_of"`
	Direction  string            `json:"direction"`
	Report     *contracts.Report `json:"report"`
	DurationMs int64             `json:"duration_ms"`
	CreatedAt  time.Time         `json:"created_at"`
}

// RunStore 실행 아카이브
type RunStore interface {
	SaveRun(ctx context.Context, o *Outcome) (uuid.UUID, error)
	GetLatestRun(ctx context.Context, symbol string) (*StoredRun, error)
}

// Repository forecast 실행 저장소 (analytics.forecast_runs)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(db *database.DB) *Repository {
	return &Repository{pool: db.Pool}
}

// SaveRun 실행 결과 저장
func (r *Repository) SaveRun(ctx context.Context, o *Outcome) (uuid.UUID, error) {
	if o == nil || o.Report == nil {
		return uuid.Nil, fmt.Errorf("save run: empty outcome")
	}

	payload, err := json.Marshal(o.Report)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal report: %w", err)
	}

	asOf, err := time.Parse(contracts.DateLayout, o.Report.AsOf)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse as_of: %w", err)
	}

	runID := uuid.New()
	query := `
		INSERT INTO analytics.forecast_runs
			(run_id, symbol, config_hash, as_of, direction, report, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.pool.Exec(ctx, query,
		runID, o.Report.Symbol, o.ConfigHash, asOf,
		o.Report.TomorrowPrediction, payload, o.Duration.Milliseconds(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert forecast run: %w", err)
	}

	return runID, nil
}

// GetLatestRun 심볼별 최신 실행 조회
func (r *Repository) GetLatestRun(ctx context.Context, symbol string) (*StoredRun, error) {
	query := `
		SELECT run_id, symbol, config_hash, as_of, direction, report, duration_ms, created_at
		FROM analytics.forecast_runs
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		run     StoredRun
		payload []byte
	)
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&run.RunID, &run.Symbol, &run.ConfigHash, &run.AsOf,
		&run.Direction, &payload, &run.DurationMs, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoRuns, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	var rep contracts.Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, fmt.Errorf("decode archived report: %w", err)
	}
	run.Report = &rep

	return &run, nil
}

// PruneRuns 보존 기간이 지난 실행 삭제
func (r *Repository) PruneRuns(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM analytics.forecast_runs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune forecast runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
