package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/pkg/logger"
	"github.com/wonny/indexcast/pkg/redis"
)

type fetchCall struct {
	from, to time.Time
}

type fakeUpstream struct {
	bars  []contracts.Bar
	err   error
	calls []fetchCall
}

func (f *fakeUpstream) FetchDaily(_ context.Context, _ string, from, to time.Time) ([]contracts.Bar, error) {
	f.calls = append(f.calls, fetchCall{from: from, to: to})
	if f.err != nil {
		return nil, f.err
	}
	var out []contracts.Bar
	for _, b := range f.bars {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memStore struct {
	mu   sync.Mutex
	bars map[time.Time]contracts.Bar
}

func newMemStore(bars ...contracts.Bar) *memStore {
	s := &memStore{bars: map[time.Time]contracts.Bar{}}
	for _, b := range bars {
		s.bars[b.Date] = b
	}
	return s
}

func (s *memStore) UpsertBars(_ context.Context, _ string, bars []contracts.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bars {
		s.bars[b.Date] = b
	}
	return nil
}

func (s *memStore) GetBars(_ context.Context, _ string, from, to time.Time) ([]contracts.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.Bar
	for d, b := range s.bars {
		if !d.Before(from) && !d.After(to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *memStore) Coverage(_ context.Context, _ string) (Coverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cov Coverage
	for d := range s.bars {
		if cov.Count == 0 || d.Before(cov.First) {
			cov.First = d
		}
		if cov.Count == 0 || d.After(cov.Last) {
			cov.Last = d
		}
		cov.Count++
	}
	return cov, nil
}

func date(s string) time.Time {
	t, _ := time.Parse(contracts.DateLayout, s)
	return t
}

// weekdays 연속 평일 일봉
func weekdays(from string, n int) []contracts.Bar {
	bars := make([]contracts.Bar, 0, n)
	d := date(from)
	for len(bars) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			c := 100 + float64(len(bars))
			bars = append(bars, contracts.Bar{Date: d, Open: c, High: c, Low: c, Close: c, Volume: 1})
		}
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func TestCachedProviderPassThroughWithoutStore(t *testing.T) {
	up := &fakeUpstream{bars: weekdays("2024-01-01", 10)}
	p := NewCachedProvider(up, nil, nil, logger.NewNop())

	bars, err := p.FetchDaily(context.Background(), "^GSPC", date("2024-01-01"), date("2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, bars, 10)
	assert.Len(t, up.calls, 1)
}

func TestCachedProviderFullFetchStores(t *testing.T) {
	up := &fakeUpstream{bars: weekdays("2024-01-01", 10)}
	store := newMemStore()
	p := NewCachedProvider(up, store, nil, logger.NewNop())

	bars, err := p.FetchDaily(context.Background(), "^GSPC", date("2024-01-01"), date("2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, bars, 10)

	cov, err := store.Coverage(context.Background(), "^GSPC")
	require.NoError(t, err)
	assert.Equal(t, 10, cov.Count)
}

func TestCachedProviderIncrementalFetch(t *testing.T) {
	all := weekdays("2024-01-01", 20)
	store := newMemStore(all[:15]...)
	up := &fakeUpstream{bars: all}
	p := NewCachedProvider(up, store, nil, logger.NewNop())

	bars, err := p.FetchDaily(context.Background(), "^GSPC", date("2024-01-01"), date("2024-02-29"))
	require.NoError(t, err)
	assert.Len(t, bars, 20)
	assert.NoError(t, contracts.ValidateBars(bars))

	require.Len(t, up.calls, 1)
	assert.Equal(t, all[14].Date, up.calls[0].from, "refetch starts at last stored bar")
}

func TestCachedProviderServesStoredOnUpstreamFailure(t *testing.T) {
	all := weekdays("2024-01-01", 15)
	store := newMemStore(all...)
	up := &fakeUpstream{err: contracts.ErrProvider}
	p := NewCachedProvider(up, store, nil, logger.NewNop())

	bars, err := p.FetchDaily(context.Background(), "^GSPC", date("2024-01-01"), date("2024-03-31"))
	require.NoError(t, err)
	assert.Len(t, bars, 15)
}

func TestCachedProviderFullFetchError(t *testing.T) {
	up := &fakeUpstream{err: errors.New("boom")}
	p := NewCachedProvider(up, newMemStore(), nil, logger.NewNop())

	_, err := p.FetchDaily(context.Background(), "^GSPC", date("2024-01-01"), date("2024-01-31"))
	require.Error(t, err)
}

func TestCachedProviderStoreMissingStart(t *testing.T) {
	all := weekdays("2024-01-01", 40)
	// 저장소는 2월부터만 보유
	store := newMemStore(all[25:]...)
	up := &fakeUpstream{bars: all}
	p := NewCachedProvider(up, store, nil, logger.NewNop())

	bars, err := p.FetchDaily(context.Background(), "^GSPC", date("2024-01-01"), date("2024-03-31"))
	require.NoError(t, err)
	assert.Len(t, bars, 40)
	require.Len(t, up.calls, 1)
	assert.Equal(t, date("2024-01-01"), up.calls[0].from)
}

func TestCachedProviderDisabledCache(t *testing.T) {
	up := &fakeUpstream{bars: weekdays("2024-01-01", 5)}
	cache := redis.NewCache(redis.Disabled(), "indexcast")
	p := NewCachedProvider(up, nil, cache, logger.NewNop())

	for i := 0; i < 2; i++ {
		bars, err := p.FetchDaily(context.Background(), "^GSPC", date("2024-01-01"), date("2024-01-31"))
		require.NoError(t, err)
		assert.Equal(t, up.bars, bars)
	}
	assert.Len(t, up.calls, 2, "disabled cache never serves")
}

func TestRefresh(t *testing.T) {
	up := &fakeUpstream{bars: weekdays("2024-01-01", 8)}
	store := newMemStore()
	p := NewCachedProvider(up, store, nil, logger.NewNop())

	n, err := p.Refresh(context.Background(), "^GSPC", date("2024-01-01"), date("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Len(t, store.bars, 8)
}
