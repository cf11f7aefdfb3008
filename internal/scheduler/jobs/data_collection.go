package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/indexcast/pkg/logger"
)

// DefaultCollectionSchedule 장 마감 직후 (평일)
const DefaultCollectionSchedule = "CRON_TZ=America/New_York 0 10 16 * * 1-5"

// HistoryRefresher 일봉 수집 + 저장 (history.CachedProvider)
type HistoryRefresher interface {
	Refresh(ctx context.Context, symbol string, from, to time.Time) (int, error)
}

// ReportInvalidator 새 일봉 반영 후 캐시된 리포트 제거 (forecast.Service)
type ReportInvalidator interface {
	Invalidate(ctx context.Context, symbol string) error
}

// DataCollectionJob collects recent daily bars into the history store
// ⭐ SSOT: 일봉 수집 스케줄은 이 Job에서만
type DataCollectionJob struct {
	refresher   HistoryRefresher
	invalidator ReportInvalidator // nil 가능
	symbol      string
	lookback    int // days
	clock       func() time.Time
	logger      *logger.Logger
}

// NewDataCollectionJob creates a new data collection job
func NewDataCollectionJob(refresher HistoryRefresher, symbol string, lookbackDays int, log *logger.Logger) *DataCollectionJob {
	if lookbackDays <= 0 {
		lookbackDays = 10
	}
	return &DataCollectionJob{
		refresher: refresher,
		symbol:    symbol,
		lookback:  lookbackDays,
		clock:     time.Now,
		logger:    log,
	}
}

// WithInvalidator drops the cached report whenever new bars were stored
func (j *DataCollectionJob) WithInvalidator(inv ReportInvalidator) *DataCollectionJob {
	j.invalidator = inv
	return j
}

// Name returns the job name
func (j *DataCollectionJob) Name() string {
	return "data_collection"
}

// Schedule returns the cron schedule
func (j *DataCollectionJob) Schedule() string {
	return DefaultCollectionSchedule
}

// Run executes the data collection
func (j *DataCollectionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled data collection")

	// Calculate date range
	to := j.clock().UTC()
	from := to.AddDate(0, 0, -j.lookback)

	n, err := j.refresher.Refresh(ctx, j.symbol, from, to)
	if err != nil {
		return fmt.Errorf("refresh %s history: %w", j.symbol, err)
	}

	if n > 0 && j.invalidator != nil {
		if err := j.invalidator.Invalidate(ctx, j.symbol); err != nil {
			j.logger.WithError(err).Warn("Failed to invalidate cached report")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"symbol": j.symbol,
		"bars":   n,
	}).Info("Data collection completed")

	return nil
}
