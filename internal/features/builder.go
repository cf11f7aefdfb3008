package features

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/indexcast/internal/contracts"
)

// DefaultHorizons 기본 롤링 구간 (2일, 1주, 1분기, 1년, 4년)
var DefaultHorizons = []int{2, 5, 60, 250, 1000}

// DefaultStartDate 초기 노이즈 구간을 잘라내는 기본 시작일
var DefaultStartDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// Config Feature Builder 설정
type Config struct {
	Horizons  []int
	StartDate time.Time // zero = 제한 없음
}

// DefaultConfig returns the default horizons and 1990-01-01 start date
func DefaultConfig() Config {
	return Config{
		Horizons:  append([]int(nil), DefaultHorizons...),
		StartDate: DefaultStartDate,
	}
}

// Builder 일봉 → LabeledSeries 변환기
// ⭐ SSOT: 라벨(Tomorrow/Target)과 피처(Close_Ratio/Trend)는 여기서만 계산
type Builder struct {
	horizons  []int
	maxH      int
	startDate time.Time
	columns   contracts.FeatureColumns
	log       zerolog.Logger
}

// NewBuilder 설정 검증 후 빌더 생성
func NewBuilder(cfg Config, log zerolog.Logger) (*Builder, error) {
	if err := ValidateHorizons(cfg.Horizons); err != nil {
		return nil, err
	}

	horizons := append([]int(nil), cfg.Horizons...)
	maxH := 0
	for _, h := range horizons {
		if h > maxH {
			maxH = h
		}
	}

	return &Builder{
		horizons:  horizons,
		maxH:      maxH,
		startDate: cfg.StartDate,
		columns:   contracts.ColumnsFor(horizons),
		log:       log.With().Str("component", "features.builder").Logger(),
	}, nil
}

// ValidateHorizons checks that horizons are non-empty, positive and unique
func ValidateHorizons(horizons []int) error {
	if len(horizons) == 0 {
		return fmt.Errorf("%w: at least one horizon required", contracts.ErrInvalidHorizons)
	}
	seen := make(map[int]struct{}, len(horizons))
	for _, h := range horizons {
		if h <= 0 {
			return fmt.Errorf("%w: horizon %d must be positive", contracts.ErrInvalidHorizons, h)
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("%w: duplicate horizon %d", contracts.ErrInvalidHorizons, h)
		}
		seen[h] = struct{}{}
	}
	return nil
}

// Columns returns the feature column names in horizon order
func (b *Builder) Columns() contracts.FeatureColumns {
	return append(contracts.FeatureColumns(nil), b.columns...)
}

// MinBars returns the minimum restricted series length that yields one labeled row
func (b *Builder) MinBars() int {
	return b.maxH + 2
}

// Build 라벨/피처 계산
//
// 1. Tomorrow/Target 은 시작일 제한 전에 전체 시리즈로 계산 (제한 경계의 마지막 라벨 보존)
// 2. 시작일 이후 바만 남긴 뒤 롤링 피처 계산
// 3. 피처 또는 라벨이 정의되지 않은 행 제거, 마지막 바는 Latest 로 분리
func (b *Builder) Build(bars []contracts.Bar) (*contracts.LabeledSeries, error) {
	if err := contracts.ValidateBars(bars); err != nil {
		return nil, err
	}

	n := len(bars)
	tomorrow := make([]float64, n)
	target := make([]int, n)
	for i := 0; i+1 < n; i++ {
		tomorrow[i] = bars[i+1].Close
		if bars[i+1].Close > bars[i].Close {
			target[i] = 1
		}
	}

	first := 0
	if !b.startDate.IsZero() {
		for first < n && bars[first].Date.Before(b.startDate) {
			first++
		}
	}

	restricted := bars[first:]
	m := len(restricted)
	if m < b.MinBars() {
		return nil, fmt.Errorf("%w: %d bars after %s, need at least %d for horizon %d",
			contracts.ErrInsufficientHistory, m, b.startLabel(), b.MinBars(), b.maxH)
	}

	// prefix sums: closeSum[k] = sum(close[0..k-1]), targetSum 동일
	closeSum := make([]float64, m+1)
	targetSum := make([]int, m+1)
	for k, bar := range restricted {
		closeSum[k+1] = closeSum[k] + bar.Close
		targetSum[k+1] = targetSum[k] + target[first+k]
	}

	featureAt := func(k int) []float64 {
		vec := make([]float64, 0, len(b.columns))
		for _, h := range b.horizons {
			mean := (closeSum[k+1] - closeSum[k+1-h]) / float64(h)
			// Trend_h: 행 k 이전 h 개 라벨 합 (k 자신의 라벨 제외)
			trend := targetSum[k] - targetSum[k-h]
			vec = append(vec, restricted[k].Close/mean, float64(trend))
		}
		return vec
	}

	series := &contracts.LabeledSeries{
		Columns: b.Columns(),
		Rows:    make([]contracts.Row, 0, m-1-b.maxH),
	}

	// 피처 정의 구간: k >= maxH, 라벨 정의 구간: k <= m-2
	for k := b.maxH; k < m-1; k++ {
		series.Rows = append(series.Rows, contracts.Row{
			Bar:      restricted[k],
			Tomorrow: tomorrow[first+k],
			Target:   target[first+k],
			Labeled:  true,
			Features: featureAt(k),
		})
	}

	last := m - 1
	series.Latest = &contracts.Row{
		Bar:      restricted[last],
		Features: featureAt(last),
	}

	b.log.Debug().
		Int("bars", n).
		Int("restricted", m).
		Int("rows", len(series.Rows)).
		Ints("horizons", b.horizons).
		Str("latest", series.Latest.Date.Format(contracts.DateLayout)).
		Msg("labeled series built")

	return series, nil
}

func (b *Builder) startLabel() string {
	if b.startDate.IsZero() {
		return "series start"
	}
	return b.startDate.Format(contracts.DateLayout)
}
