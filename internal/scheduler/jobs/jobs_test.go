package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/forecast"
	"github.com/wonny/indexcast/internal/scheduler"
	"github.com/wonny/indexcast/pkg/logger"
)

type fakeRefresher struct {
	err     error
	symbols []string
}

func (f *fakeRefresher) Refresh(_ context.Context, symbol string) (*forecast.Outcome, []byte, error) {
	f.symbols = append(f.symbols, symbol)
	if f.err != nil {
		return nil, nil, f.err
	}
	return &forecast.Outcome{Report: &contracts.Report{Symbol: symbol, TomorrowPrediction: "Increase"}}, []byte(`{}`), nil
}

func TestForecastJob(t *testing.T) {
	ref := &fakeRefresher{}
	job := NewForecastJob(ref, "^GSPC", "", logger.NewNop())

	assert.Equal(t, "forecast_pipeline", job.Name())
	assert.Equal(t, DefaultForecastSchedule, job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"^GSPC"}, ref.symbols)
}

func TestForecastJobErrors(t *testing.T) {
	t.Run("data shape is permanent", func(t *testing.T) {
		job := NewForecastJob(&fakeRefresher{err: contracts.ErrInsufficientHistory}, "^GSPC", "", logger.NewNop())
		err := job.Run(context.Background())
		require.Error(t, err)
		assert.True(t, scheduler.IsPermanent(err))
		assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)
	})

	t.Run("provider is retried", func(t *testing.T) {
		job := NewForecastJob(&fakeRefresher{err: fmt.Errorf("%w: 503", contracts.ErrProvider)}, "^GSPC", "", logger.NewNop())
		err := job.Run(context.Background())
		require.Error(t, err)
		assert.False(t, scheduler.IsPermanent(err))
	})
}

func TestForecastJobSchedulesWithScheduler(t *testing.T) {
	s := scheduler.New(logger.NewNop(), scheduler.WithRetry(0, time.Millisecond))
	require.NoError(t, s.AddJob(NewForecastJob(&fakeRefresher{}, "^GSPC", "", logger.NewNop())))

	result, err := s.RunJobSync(context.Background(), "forecast_pipeline")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

type fakeHistory struct {
	from, to time.Time
	err      error
}

func (f *fakeHistory) Refresh(_ context.Context, _ string, from, to time.Time) (int, error) {
	f.from, f.to = from, to
	return 7, f.err
}

func TestDataCollectionJob(t *testing.T) {
	h := &fakeHistory{}
	job := NewDataCollectionJob(h, "^GSPC", 14, logger.NewNop())
	now := time.Date(2024, 3, 15, 21, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now, h.to)
	assert.Equal(t, now.AddDate(0, 0, -14), h.from)

	h.err = errors.New("yahoo down")
	assert.Error(t, job.Run(context.Background()))
}

type fakeInvalidator struct {
	symbols []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, symbol string) error {
	f.symbols = append(f.symbols, symbol)
	return nil
}

func TestDataCollectionJobInvalidatesReport(t *testing.T) {
	inv := &fakeInvalidator{}
	job := NewDataCollectionJob(&fakeHistory{}, "^GSPC", 5, logger.NewNop()).WithInvalidator(inv)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"^GSPC"}, inv.symbols)

	// 수집 실패 시 캐시 유지
	failing := NewDataCollectionJob(&fakeHistory{err: errors.New("yahoo down")}, "^GSPC", 5, logger.NewNop()).WithInvalidator(inv)
	assert.Error(t, failing.Run(context.Background()))
	assert.Len(t, inv.symbols, 1)
}

type fakePruner struct {
	before time.Time
}

func (f *fakePruner) PruneRuns(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 3, nil
}

func TestArchivePruneJob(t *testing.T) {
	p := &fakePruner{}
	job := NewArchivePruneJob(p, 30*24*time.Hour, logger.NewNop())
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -30), p.before)
	assert.Equal(t, "archive_prune", job.Name())
}
