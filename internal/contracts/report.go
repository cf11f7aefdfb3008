package contracts

import (
	"encoding/json"
	"fmt"
	"math"
)

// 라이브 예측 라벨
const (
	DirectionIncrease = "Increase"
	DirectionDecrease = "Decrease"
)

// Precision precision 또는 "undefined" 센티넬
type Precision struct {
	Value   float64
	Defined bool
}

// DefinedPrecision wraps a computed precision
func DefinedPrecision(v float64) Precision {
	return Precision{Value: v, Defined: true}
}

// Err returns ErrUndefinedPrecision when no positives were predicted
func (p Precision) Err() error {
	if p.Defined {
		return nil
	}
	return ErrUndefinedPrecision
}

// Float returns the value, or NaN when undefined
func (p Precision) Float() float64 {
	if !p.Defined {
		return math.NaN()
	}
	return p.Value
}

// String formats the precision for CLI output
func (p Precision) String() string {
	if !p.Defined {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", p.Value)
}

// MarshalJSON encodes a number or the string "undefined"
func (p Precision) MarshalJSON() ([]byte, error) {
	if !p.Defined {
		return []byte(`"undefined"`), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON accepts a number or the string "undefined"
func (p *Precision) UnmarshalJSON(data []byte) error {
	if string(data) == `"undefined"` || string(data) == "null" {
		*p = Precision{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("precision must be a number or \"undefined\": %w", err)
	}
	*p = DefinedPrecision(v)
	return nil
}

// ResultEntry all_results 항목
type ResultEntry struct {
	Timestamp  string `json:"timestamp"` // YYYY-MM-DD
	Target     int    `json:"target"`
	Prediction int    `json:"prediction"`
}

// Report 외부로 나가는 요약 리포트
// ⭐ SSOT: 벽시계 필드 없음 (동일 입력 → 바이트 동일 JSON)
type Report struct {
	Symbol              string        `json:"symbol,omitempty"`
	PredictionCounts    map[int]int   `json:"prediction_counts"`
	PrecisionScore      Precision     `json:"precision_score"`
	AllResults          []ResultEntry `json:"all_results"`
	TomorrowPrediction  string        `json:"tomorrow_prediction"`
	TomorrowProbability float64       `json:"tomorrow_probability"`
	Threshold           float64       `json:"threshold"`
	Windows             int           `json:"windows"`
	Rows                int           `json:"rows"`
	AsOf                string        `json:"as_of"` // 라이브 예측에 사용한 바 날짜
}

// Positives returns the number of predicted-positive records
func (r *Report) Positives() int {
	return r.PredictionCounts[1]
}
