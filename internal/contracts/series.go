package contracts

import (
	"fmt"
	"strconv"
	"time"
)

// FeatureColumns 순서가 고정된 피처 컬럼 이름 목록
// 백테스트와 라이브 예측이 같은 값을 공유해야 함
type FeatureColumns []string

// CloseRatioColumn returns the name of the close-ratio feature for a horizon
func CloseRatioColumn(h int) string {
	return "Close_Ratio_" + strconv.Itoa(h)
}

// TrendColumn returns the name of the trend feature for a horizon
func TrendColumn(h int) string {
	return "Trend_" + strconv.Itoa(h)
}

// ColumnsFor returns Close_Ratio_h, Trend_h pairs in horizon order
func ColumnsFor(horizons []int) FeatureColumns {
	cols := make(FeatureColumns, 0, len(horizons)*2)
	for _, h := range horizons {
		cols = append(cols, CloseRatioColumn(h), TrendColumn(h))
	}
	return cols
}

// Index returns the position of name or -1
func (c FeatureColumns) Index(name string) int {
	for i, col := range c {
		if col == name {
			return i
		}
	}
	return -1
}

// Row 라벨과 피처가 붙은 일봉
type Row struct {
	Bar
	Tomorrow float64   `json:"tomorrow"` // 다음 바 종가 (Latest 는 0)
	Target   int       `json:"target"`   // Tomorrow > Close 이면 1
	Labeled  bool      `json:"labeled"`  // Latest 는 false
	Features []float64 `json:"features"` // LabeledSeries.Columns 순서
}

// LabeledSeries Feature Builder 결과
// ⭐ SSOT: 생성 이후 어떤 컴포넌트도 수정하지 않음 (Evaluator 는 읽기 전용 슬라이스만 사용)
type LabeledSeries struct {
	Columns FeatureColumns `json:"columns"`
	Rows    []Row          `json:"rows"`   // 라벨/피처가 모두 정의된 행
	Latest  *Row           `json:"latest"` // 마지막 바 (피처 정의, 라벨 없음)
}

// Len returns the number of labeled rows
func (s *LabeledSeries) Len() int {
	return len(s.Rows)
}

// Projection maps requested columns to positions in the series feature vector
func (s *LabeledSeries) Projection(columns FeatureColumns) ([]int, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns requested", ErrFeatureMismatch)
	}
	idx := make([]int, len(columns))
	for i, name := range columns {
		j := s.Columns.Index(name)
		if j < 0 {
			return nil, fmt.Errorf("%w: unknown column %q", ErrFeatureMismatch, name)
		}
		idx[i] = j
	}
	return idx, nil
}

// Matrix returns the feature matrix and labels of rows [from, to)
func (s *LabeledSeries) Matrix(from, to int, columns FeatureColumns) ([][]float64, []int, error) {
	if from < 0 || to > len(s.Rows) || from > to {
		return nil, nil, fmt.Errorf("row range [%d,%d) out of bounds (len %d)", from, to, len(s.Rows))
	}
	idx, err := s.Projection(columns)
	if err != nil {
		return nil, nil, err
	}

	X := make([][]float64, 0, to-from)
	y := make([]int, 0, to-from)
	for _, row := range s.Rows[from:to] {
		X = append(X, project(row.Features, idx))
		y = append(y, row.Target)
	}
	return X, y, nil
}

// Vector returns the projected feature vector of a single row
func (s *LabeledSeries) Vector(row *Row, columns FeatureColumns) ([]float64, error) {
	if row == nil {
		return nil, fmt.Errorf("%w: no row", ErrInsufficientHistory)
	}
	idx, err := s.Projection(columns)
	if err != nil {
		return nil, err
	}
	return project(row.Features, idx), nil
}

// Window 워크포워드 윈도우 (반열린 구간)
// 학습 = [0, TrainEnd), 테스트 = [TestStart, TestEnd)
type Window struct {
	Index     int `json:"index"`
	TrainEnd  int `json:"train_end"`
	TestStart int `json:"test_start"`
	TestEnd   int `json:"test_end"`
}

// TrainSize returns the number of training rows
func (w Window) TrainSize() int { return w.TrainEnd }

// TestSize returns the number of test rows
func (w Window) TestSize() int { return w.TestEnd - w.TestStart }

// PredictionRecord 테스트 행 1개의 실제 라벨과 결정
type PredictionRecord struct {
	Date        time.Time `json:"date"`
	Target      int       `json:"target"`
	Prediction  int       `json:"prediction"`
	Probability float64   `json:"probability"`
}

func project(features []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = features[j]
	}
	return out
}
