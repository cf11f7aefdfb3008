package classifier

import (
	"errors"
	"fmt"

	"github.com/wonny/indexcast/internal/contracts"
)

// 분류기 종류
const (
	KindRandomForest = "random_forest"
	KindLogistic     = "logistic"
)

var (
	// ErrNotFitted PredictProba before Fit
	ErrNotFitted = errors.New("classifier not fitted")
	// ErrBadInput empty matrix, ragged rows, non-binary labels or width mismatch
	ErrBadInput = errors.New("invalid classifier input")
)

// Config 분류기 설정 (modelconfig YAML 의 classifier 섹션)
type Config struct {
	Kind     string         `yaml:"kind" json:"kind" default:"random_forest" validate:"oneof=random_forest logistic"`
	Seed     int64          `yaml:"seed" json:"seed" default:"1"`
	Forest   ForestConfig   `yaml:"forest" json:"forest"`
	Logistic LogisticConfig `yaml:"logistic" json:"logistic"`
}

// DefaultConfig mirrors a 200-tree forest with min_samples_split=50 and seed 1
func DefaultConfig() Config {
	return Config{
		Kind:     KindRandomForest,
		Seed:     1,
		Forest:   DefaultForestConfig(),
		Logistic: DefaultLogisticConfig(),
	}
}

// WindowSeed derives a per-window seed from the configured seed only
// 스케줄링 순서와 무관하게 같은 윈도우는 같은 시드를 받음
func WindowSeed(seed int64, window int) int64 {
	return seed + int64(window+1)*7919
}

// NewFactory returns a factory producing fresh classifiers per window
func NewFactory(cfg Config) (contracts.ClassifierFactory, error) {
	switch cfg.Kind {
	case KindRandomForest, "":
		forest := cfg.Forest
		if err := forest.validate(); err != nil {
			return nil, err
		}
		return func(window int) contracts.Classifier {
			fc := forest
			fc.Seed = WindowSeed(cfg.Seed, window)
			return NewRandomForest(fc)
		}, nil
	case KindLogistic:
		logistic := cfg.Logistic
		if err := logistic.validate(); err != nil {
			return nil, err
		}
		return func(int) contracts.Classifier {
			return NewLogistic(logistic)
		}, nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", cfg.Kind)
	}
}

// checkTrainingSet validates X/y and returns the feature width
func checkTrainingSet(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: empty training set", ErrBadInput)
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows but %d labels", ErrBadInput, len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return 0, fmt.Errorf("%w: zero features", ErrBadInput)
	}
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrBadInput, i, len(row), width)
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("%w: label %d at row %d is not binary", ErrBadInput, y[i], i)
		}
	}
	return width, nil
}

// checkPredictSet validates rows against the fitted width
func checkPredictSet(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, fitted on %d", ErrBadInput, i, len(row), width)
		}
	}
	return nil
}
