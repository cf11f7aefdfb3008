package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexcast/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	calls    int32
	failures int32 // 처음 N 번 실패
	err      error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failures {
		return j.err
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.NewNop(), WithRetry(2, time.Millisecond), WithJobTimeout(time.Second))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&stubJob{name: "b", schedule: "0 30 16 * * 1-5"}))
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "CRON_TZ=America/New_York 0 30 16 * * 1-5"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	err := s.AddJob(&stubJob{name: "a", schedule: "@daily"})
	assert.Error(t, err)
}

func TestAddJobInvalidSchedule(t *testing.T) {
	s := newTestScheduler()
	err := s.AddJob(&stubJob{name: "bad", schedule: "not a cron"})
	require.Error(t, err)
	assert.Empty(t, s.GetAllJobs())
}

func TestRunJobSyncRetries(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "flaky", schedule: "@daily", failures: 2, err: errors.New("temporary")}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
}

func TestRunJobSyncExhaustsRetries(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "broken", schedule: "@daily", failures: 100, err: errors.New("down")}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "down", result.Error)

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJobSyncPermanent(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "bad-data", schedule: "@daily", failures: 100, err: Permanent(errors.New("malformed"))}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync(context.Background(), "bad-data")
	require.Error(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.calls))
}

func TestRunJobSyncContextCanceled(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(5, time.Hour))
	job := &stubJob{name: "slow-retry", schedule: "@daily", failures: 100, err: errors.New("down")}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := s.RunJobSync(ctx, "slow-retry")
	require.Error(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Contains(t, result.Error, "deadline")
}

func TestRunJobUnknown(t *testing.T) {
	s := newTestScheduler()
	assert.Error(t, s.RunJob("missing"))
	_, err := s.RunJobSync(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunJobAsync(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "async", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("async"))
	assert.Eventually(t, func() bool {
		h, _ := s.GetJobHistory("async")
		return len(h.Results) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "x", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("x"))
	assert.Empty(t, s.GetAllJobs())
	assert.Empty(t, s.GetJobStats())
	assert.Error(t, s.RemoveJob("x"))
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "close", schedule: "CRON_TZ=America/New_York 0 30 16 * * 1-5"}))

	next, err := s.NextRun("close")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	local := next.In(ny)
	assert.Equal(t, 16, local.Hour())
	assert.Equal(t, 30, local.Minute())
	assert.NotEqual(t, time.Saturday, local.Weekday())
	assert.NotEqual(t, time.Sunday, local.Weekday())

	_, err = s.NextRun("missing")
	assert.Error(t, err)
}

func TestPermanent(t *testing.T) {
	base := errors.New("x")
	assert.Nil(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.ErrorIs(t, Permanent(base), base)
	assert.False(t, IsPermanent(base))
}

func TestJobHistoryKeepsLast100(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 120; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
}
