package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/indexcast/pkg/metrics"
	"github.com/wonny/indexcast/pkg/redis"
)

// ErrArchiveDisabled 데이터베이스 없이 아카이브 조회
var ErrArchiveDisabled = errors.New("forecast archive disabled")

// Publisher 새 리포트 브로드캐스트 (websocket hub)
type Publisher interface {
	Publish(symbol string, payload []byte)
}

// Service 캐시 + 아카이브 + 파이프라인
// ⭐ SSOT: API 와 스케줄러는 이 서비스로만 리포트 생성
type Service struct {
	pipeline  *Pipeline
	cache     *redis.Cache
	runs      RunStore
	publisher Publisher
	ttl       time.Duration
	timeout   time.Duration
	metrics   *metrics.Recorder
	group     singleflight.Group
	log       zerolog.Logger
}

// ServiceOptions 선택 의존성 (nil 허용)
type ServiceOptions struct {
	Cache     *redis.Cache
	Runs      RunStore
	Publisher Publisher
	CacheTTL  time.Duration
	Timeout   time.Duration // 공유 실행 제한 시간 (0 → DefaultRunTimeout)
	Metrics   *metrics.Recorder
}

// DefaultRunTimeout 요청과 분리된 공유 실행의 제한 시간
const DefaultRunTimeout = 20 * time.Minute

// NewService creates a forecast service
func NewService(pipeline *Pipeline, opts ServiceOptions, log zerolog.Logger) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = redis.TTLLong
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &Service{
		pipeline:  pipeline,
		cache:     opts.Cache,
		runs:      opts.Runs,
		publisher: opts.Publisher,
		ttl:       ttl,
		timeout:   timeout,
		metrics:   opts.Metrics,
		log:       log.With().Str("component", "forecast.service").Logger(),
	}
}

// SetPublisher attaches the broadcast target after construction
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// Pipeline returns the underlying pipeline
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

// CacheKey report cache key for symbol
func (s *Service) CacheKey(symbol string) string {
	return redis.ReportKey(symbol, s.pipeline.ConfigHash())
}

// Forecast returns the report JSON for symbol, from cache when possible
// 동시 요청은 심볼당 한 번만 계산
func (s *Service) Forecast(ctx context.Context, symbol string) ([]byte, error) {
	if s.cache != nil {
		data, found, err := s.cache.GetRaw(ctx, s.CacheKey(symbol))
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("report cache read failed")
		}
		if found {
			s.metrics.RecordCache(true)
			return data, nil
		}
		s.metrics.RecordCache(false)
	}

	// 공유 실행은 특정 요청의 취소와 분리, 각 호출자는 자기 ctx 만 기다림
	ch := s.group.DoChan(symbol, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		_, data, err := s.Refresh(runCtx, symbol)
		return data, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug().Str("symbol", symbol).Msg("forecast shared with in-flight run")
		}
		return res.Val.([]byte), nil
	}
}

// Refresh runs the pipeline, archives, caches and publishes the report
func (s *Service) Refresh(ctx context.Context, symbol string) (*Outcome, []byte, error) {
	outcome, err := s.pipeline.Run(ctx, symbol)
	if err != nil {
		return nil, nil, err
	}

	data, err := json.Marshal(outcome.Report)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal report: %w", err)
	}

	if s.runs != nil {
		runID, err := s.runs.SaveRun(ctx, outcome)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to archive run")
		} else {
			s.log.Info().Str("run_id", runID.String()).Str("symbol", symbol).Msg("run archived")
		}
	}

	if s.cache != nil {
		if err := s.cache.SetRaw(ctx, s.CacheKey(symbol), data, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("report cache write failed")
		}
	}

	if s.publisher != nil {
		s.publisher.Publish(symbol, data)
	}

	return outcome, data, nil
}

// Invalidate drops the cached report so the next Forecast recomputes
func (s *Service) Invalidate(ctx context.Context, symbol string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, s.CacheKey(symbol)); err != nil {
		return fmt.Errorf("invalidate report cache: %w", err)
	}
	return nil
}

// Latest returns the most recent archived run
func (s *Service) Latest(ctx context.Context, symbol string) (*StoredRun, error) {
	if s.runs == nil {
		return nil, ErrArchiveDisabled
	}
	return s.runs.GetLatestRun(ctx, symbol)
}
