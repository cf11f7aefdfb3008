package classifier

import (
	"fmt"
	"math"
)

// LogisticConfig 로지스틱 회귀 하이퍼파라미터
type LogisticConfig struct {
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate" default:"0.1" validate:"gt=0"`
	Epochs       int     `yaml:"epochs" json:"epochs" default:"300" validate:"gte=1"`
	L2           float64 `yaml:"l2" json:"l2" default:"0.001" validate:"gte=0"`
}

// DefaultLogisticConfig returns lr=0.1, 300 epochs, l2=0.001
func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{LearningRate: 0.1, Epochs: 300, L2: 0.001}
}

func (c LogisticConfig) validate() error {
	if c.LearningRate <= 0 || c.Epochs < 1 || c.L2 < 0 {
		return fmt.Errorf("logistic requires learning_rate > 0, epochs >= 1, l2 >= 0")
	}
	return nil
}

// Logistic 표준화된 피처 위 배치 경사하강 로지스틱 회귀
// 가중치 0 에서 시작하므로 시드 없이 결정적
type Logistic struct {
	cfg    LogisticConfig
	mean   []float64
	scale  []float64
	w      []float64
	b      float64
	fitted bool
}

// NewLogistic creates an unfitted logistic model
func NewLogistic(cfg LogisticConfig) *Logistic {
	return &Logistic{cfg: cfg}
}

// Fit minimizes L2-regularized cross-entropy with full-batch gradient descent
func (m *Logistic) Fit(X [][]float64, y []int) error {
	if err := m.cfg.validate(); err != nil {
		return err
	}
	width, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}

	n := float64(len(X))
	m.mean = make([]float64, width)
	m.scale = make([]float64, width)
	for _, row := range X {
		for j, v := range row {
			m.mean[j] += v
		}
	}
	for j := range m.mean {
		m.mean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - m.mean[j]
			m.scale[j] += d * d
		}
	}
	for j := range m.scale {
		m.scale[j] = math.Sqrt(m.scale[j] / n)
		if m.scale[j] == 0 {
			m.scale[j] = 1
		}
	}

	Z := make([][]float64, len(X))
	for i, row := range X {
		Z[i] = m.standardize(row)
	}

	m.w = make([]float64, width)
	m.b = 0
	grad := make([]float64, width)

	for epoch := 0; epoch < m.cfg.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradB := 0.0
		for i, z := range Z {
			diff := m.linear(z) - float64(y[i])
			for j, v := range z {
				grad[j] += diff * v
			}
			gradB += diff
		}
		for j := range m.w {
			m.w[j] -= m.cfg.LearningRate * (grad[j]/n + m.cfg.L2*m.w[j])
		}
		m.b -= m.cfg.LearningRate * gradB / n
	}

	m.fitted = true
	return nil
}

// PredictProba returns sigmoid(w·z + b) per row
func (m *Logistic) PredictProba(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredictSet(X, len(m.w)); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = m.linear(m.standardize(row))
	}
	return out, nil
}

// Weights returns a copy of the fitted coefficients on standardized features
func (m *Logistic) Weights() []float64 {
	return append([]float64(nil), m.w...)
}

func (m *Logistic) standardize(row []float64) []float64 {
	z := make([]float64, len(row))
	for j, v := range row {
		z[j] = (v - m.mean[j]) / m.scale[j]
	}
	return z
}

func (m *Logistic) linear(z []float64) float64 {
	s := m.b
	for j, v := range z {
		s += m.w[j] * v
	}
	return sigmoid(s)
}

// sigmoid with clamping for numerical stability
func sigmoid(x float64) float64 {
	if x > 35 {
		return 1
	}
	if x < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}
