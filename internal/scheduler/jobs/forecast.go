package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/forecast"
	"github.com/wonny/indexcast/internal/scheduler"
	"github.com/wonny/indexcast/pkg/logger"
)

// DefaultForecastSchedule 미국 장 마감 30분 후 (평일)
const DefaultForecastSchedule = "CRON_TZ=America/New_York 0 30 16 * * 1-5"

// Refresher 리포트 재계산 (forecast.Service)
type Refresher interface {
	Refresh(ctx context.Context, symbol string) (*forecast.Outcome, []byte, error)
}

// ForecastJob runs the forecast pipeline after the US close
// 결과는 서비스가 아카이브/캐시/websocket 으로 전달
type ForecastJob struct {
	service  Refresher
	symbol   string
	schedule string
	logger   *logger.Logger
}

// NewForecastJob creates a new forecast job; empty schedule uses DefaultForecastSchedule
func NewForecastJob(service Refresher, symbol, schedule string, log *logger.Logger) *ForecastJob {
	if schedule == "" {
		schedule = DefaultForecastSchedule
	}
	return &ForecastJob{
		service:  service,
		symbol:   symbol,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ForecastJob) Name() string {
	return "forecast_pipeline"
}

// Schedule returns the cron schedule
func (j *ForecastJob) Schedule() string {
	return j.schedule
}

// Run executes the forecast pipeline
func (j *ForecastJob) Run(ctx context.Context) error {
	j.logger.Symbol(j.symbol).Info("Starting scheduled forecast")

	outcome, _, err := j.service.Refresh(ctx, j.symbol)
	if err != nil {
		err = fmt.Errorf("forecast %s: %w", j.symbol, err)
		// 데이터 형태 오류는 재시도해도 같음
		if contracts.IsDataShapeError(err) {
			return scheduler.Permanent(err)
		}
		return err
	}

	rep := outcome.Report
	j.logger.WithFields(map[string]interface{}{
		"symbol":    j.symbol,
		"as_of":     rep.AsOf,
		"tomorrow":  rep.TomorrowPrediction,
		"precision": rep.PrecisionScore.String(),
		"duration":  outcome.Duration,
	}).Info("Scheduled forecast completed")

	return nil
}
