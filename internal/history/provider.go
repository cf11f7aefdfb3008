package history

import (
	"context"
	"time"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/pkg/logger"
	"github.com/wonny/indexcast/pkg/redis"
)

// startGraceDays 요청 시작일 직후 휴장일 허용 폭
const startGraceDays = 7

// BarStore 일봉 영속 저장소
type BarStore interface {
	UpsertBars(ctx context.Context, symbol string, bars []contracts.Bar) error
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error)
	Coverage(ctx context.Context, symbol string) (Coverage, error)
}

// CachedProvider Redis → Postgres → 업스트림 순으로 히스토리 제공
// ⭐ SSOT: 파이프라인은 이 Provider 로만 히스토리 조회
type CachedProvider struct {
	upstream contracts.HistoryProvider
	store    BarStore
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewCachedProvider store, cache 는 nil 가능 (비활성)
func NewCachedProvider(upstream contracts.HistoryProvider, store BarStore, cache *redis.Cache, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		store:    store,
		cache:    cache,
		logger:   log.Component("history"),
	}
}

// FetchDaily implements contracts.HistoryProvider
func (p *CachedProvider) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	from, to = truncateDay(from), truncateDay(to)
	key := redis.HistoryKey(symbol, from.Format(contracts.DateLayout), to.Format(contracts.DateLayout))

	if p.cache == nil {
		return p.load(ctx, symbol, from, to)
	}

	var bars []contracts.Bar
	err := p.cache.GetOrSet(ctx, key, &bars, redis.TTLMedium, func() (interface{}, error) {
		return p.load(ctx, symbol, from, to)
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// Refresh 업스트림에서 받아 저장소에 반영, 저장된 개수 반환
func (p *CachedProvider) Refresh(ctx context.Context, symbol string, from, to time.Time) (int, error) {
	bars, err := p.fetchAndStore(ctx, symbol, truncateDay(from), truncateDay(to))
	if err != nil {
		return 0, err
	}
	return len(bars), nil
}

func (p *CachedProvider) load(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	if p.store == nil {
		return p.upstream.FetchDaily(ctx, symbol, from, to)
	}

	log := p.logger.Symbol(symbol)

	cov, err := p.store.Coverage(ctx, symbol)
	if err != nil {
		log.WithError(err).Warn("Coverage lookup failed, fetching upstream")
		return p.fetchAndStore(ctx, symbol, from, to)
	}

	if cov.Count == 0 || cov.First.After(from.AddDate(0, 0, startGraceDays)) {
		log.WithField("stored", cov.Count).Info("Stored history does not cover range, full fetch")
		return p.fetchAndStore(ctx, symbol, from, to)
	}

	if cov.Last.Before(to) {
		// 마지막 저장일부터 다시 받아 장중 부분 바를 덮어씀
		if _, err := p.fetchAndStore(ctx, symbol, cov.Last, to); err != nil {
			log.WithError(err).Warn("Incremental fetch failed, serving stored history")
		}
	}

	return p.store.GetBars(ctx, symbol, from, to)
}

func (p *CachedProvider) fetchAndStore(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	bars, err := p.upstream.FetchDaily(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	if p.store != nil {
		if err := p.store.UpsertBars(ctx, symbol, bars); err != nil {
			p.logger.WithError(err).Warn("Failed to store history")
		}
	}

	return bars, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
