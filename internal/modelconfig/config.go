package modelconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/indexcast/internal/classifier"
	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/decision"
	"github.com/wonny/indexcast/internal/features"
)

// NoStartDate disables the start-date restriction
const NoStartDate = "none"

// Model 모델/파이프라인 설정 (YAML)
// ⭐ SSOT: horizon, 윈도우, 임계값, 분류기 파라미터는 이 구조체에서만 읽음
type Model struct {
	Meta       Meta              `yaml:"meta" json:"meta"`
	Features   FeatureSection    `yaml:"features" json:"features"`
	Backtest   BacktestSection   `yaml:"backtest" json:"backtest"`
	Decision   DecisionSection   `yaml:"decision" json:"decision"`
	Classifier classifier.Config `yaml:"classifier" json:"classifier"`
}

// Meta 모델 식별 정보
type Meta struct {
	ModelID     string `yaml:"model_id" json:"model_id" default:"sp500_direction_v1" validate:"required"`
	Description string `yaml:"description" json:"description"`
}

// FeatureSection Feature Builder 설정
type FeatureSection struct {
	Horizons  []int  `yaml:"horizons" json:"horizons" default:"[2,5,60,250,1000]" validate:"min=1,unique,dive,gt=0"`
	StartDate string `yaml:"start_date" json:"start_date" default:"1990-01-01"` // YYYY-MM-DD or "none"
}

// BacktestSection 워크포워드 설정
type BacktestSection struct {
	Start       int `yaml:"start" json:"start" default:"2500" validate:"gt=0"`
	Step        int `yaml:"step" json:"step" default:"250" validate:"gt=0"`
	Parallelism int `yaml:"parallelism" json:"-" default:"1" validate:"gte=1,lte=64"` // 결과에 영향 없음 → 해시 제외
}

// DecisionSection 임계값 설정
type DecisionSection struct {
	Threshold float64 `yaml:"threshold" json:"threshold" default:"0.6" validate:"gte=0,lte=1"`
}

// FeatureConfig converts the section into a features.Config
func (m *Model) FeatureConfig() features.Config {
	cfg := features.Config{Horizons: append([]int(nil), m.Features.Horizons...)}
	if start, ok := m.startDate(); ok {
		cfg.StartDate = start
	}
	return cfg
}

// Rule returns the decision rule
func (m *Model) Rule() decision.Rule {
	return decision.Rule{Threshold: m.Decision.Threshold}
}

// Columns returns the feature columns implied by the horizons
func (m *Model) Columns() contracts.FeatureColumns {
	return contracts.ColumnsFor(m.Features.Horizons)
}

func (m *Model) startDate() (time.Time, bool) {
	s := strings.TrimSpace(m.Features.StartDate)
	if s == "" || strings.EqualFold(s, NoStartDate) {
		return time.Time{}, false
	}
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
