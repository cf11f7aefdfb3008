package classifier

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// thresholdData: y = 1 iff x0 > 0.5, x1 is noise
func thresholdData(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64()}
		if X[i][0] > 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func smallForest(seed int64, workers int) *RandomForest {
	return NewRandomForest(ForestConfig{Trees: 30, MinSamplesSplit: 4, Workers: workers, Seed: seed})
}

func TestRandomForest_LearnsThreshold(t *testing.T) {
	X, y := thresholdData(400, 7)
	f := smallForest(1, 0)
	require.NoError(t, f.Fit(X, y))

	probs, err := f.PredictProba([][]float64{{0.05, 0.5}, {0.95, 0.5}, {0.1, 0.9}, {0.9, 0.1}})
	require.NoError(t, err)

	assert.Less(t, probs[0], 0.2)
	assert.Greater(t, probs[1], 0.8)
	assert.Less(t, probs[2], 0.2)
	assert.Greater(t, probs[3], 0.8)
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := thresholdData(300, 11)
	query, _ := thresholdData(50, 12)

	predict := func(workers int) []float64 {
		f := smallForest(42, workers)
		require.NoError(t, f.Fit(X, y))
		p, err := f.PredictProba(query)
		require.NoError(t, err)
		return p
	}

	sequential := predict(1)
	assert.Equal(t, sequential, predict(1))
	assert.Equal(t, sequential, predict(8), "tree scheduling must not change results")
	assert.Equal(t, sequential, predict(64), "more workers than trees")
}

func TestRandomForest_SingleClass(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []int{1, 1, 1, 1}

	f := smallForest(1, 1)
	require.NoError(t, f.Fit(X, y))
	probs, err := f.PredictProba([][]float64{{0}, {10}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, probs)
}

func TestRandomForest_MinSamplesSplitLimitsGrowth(t *testing.T) {
	X, y := thresholdData(40, 3)

	f := NewRandomForest(ForestConfig{Trees: 5, MinSamplesSplit: 1000, Seed: 1})
	require.NoError(t, f.Fit(X, y))
	for _, tree := range f.trees {
		assert.Equal(t, -1, tree.feature, "root must stay a leaf")
	}
}

func TestRandomForest_MaxDepth(t *testing.T) {
	X, y := thresholdData(200, 5)

	f := NewRandomForest(ForestConfig{Trees: 3, MinSamplesSplit: 2, MaxDepth: 1, Seed: 1})
	require.NoError(t, f.Fit(X, y))
	for _, tree := range f.trees {
		if tree.feature >= 0 {
			assert.Equal(t, -1, tree.left.feature)
			assert.Equal(t, -1, tree.right.feature)
		}
	}
}

func TestRandomForest_Errors(t *testing.T) {
	f := smallForest(1, 1)

	_, err := f.PredictProba([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrNotFitted)

	tests := []struct {
		name string
		X    [][]float64
		y    []int
	}{
		{"empty", nil, nil},
		{"length mismatch", [][]float64{{1}, {2}}, []int{1}},
		{"ragged", [][]float64{{1, 2}, {3}}, []int{0, 1}},
		{"non binary", [][]float64{{1}, {2}}, []int{0, 2}},
		{"no features", [][]float64{{}, {}}, []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.Fit(tt.X, tt.y), ErrBadInput)
		})
	}

	X, y := thresholdData(50, 1)
	require.NoError(t, f.Fit(X, y))
	_, err = f.PredictProba([][]float64{{0.5}})
	assert.ErrorIs(t, err, ErrBadInput)

	bad := NewRandomForest(ForestConfig{Trees: 0, MinSamplesSplit: 2})
	assert.Error(t, bad.Fit(X, y))
}

func TestLogistic_LearnsDirection(t *testing.T) {
	X, y := thresholdData(500, 21)
	m := NewLogistic(DefaultLogisticConfig())
	require.NoError(t, m.Fit(X, y))

	probs, err := m.PredictProba([][]float64{{0.02, 0.5}, {0.98, 0.5}})
	require.NoError(t, err)
	assert.Less(t, probs[0], 0.2)
	assert.Greater(t, probs[1], 0.8)

	w := m.Weights()
	require.Len(t, w, 2)
	assert.Greater(t, w[0], w[1])
}

func TestLogistic_ConstantFeature(t *testing.T) {
	X := [][]float64{{1, 0}, {1, 1}, {1, 0}, {1, 1}}
	y := []int{0, 1, 0, 1}

	m := NewLogistic(DefaultLogisticConfig())
	require.NoError(t, m.Fit(X, y))
	probs, err := m.PredictProba(X)
	require.NoError(t, err)
	assert.Less(t, probs[0], 0.5)
	assert.Greater(t, probs[1], 0.5)
}

func TestLogistic_Errors(t *testing.T) {
	m := NewLogistic(DefaultLogisticConfig())
	_, err := m.PredictProba([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.ErrorIs(t, m.Fit([][]float64{{1}}, []int{3}), ErrBadInput)

	bad := NewLogistic(LogisticConfig{LearningRate: 0, Epochs: 10})
	assert.Error(t, bad.Fit([][]float64{{1}}, []int{1}))
}

func TestNewFactory(t *testing.T) {
	factory, err := NewFactory(DefaultConfig())
	require.NoError(t, err)

	a := factory(0).(*RandomForest)
	b := factory(0).(*RandomForest)
	c := factory(1).(*RandomForest)
	assert.NotSame(t, a, b, "each call returns a fresh classifier")
	assert.Equal(t, a.cfg.Seed, b.cfg.Seed)
	assert.NotEqual(t, a.cfg.Seed, c.cfg.Seed)
	assert.Equal(t, 200, a.cfg.Trees)
	assert.Equal(t, 50, a.cfg.MinSamplesSplit)

	cfg := DefaultConfig()
	cfg.Kind = KindLogistic
	factory, err = NewFactory(cfg)
	require.NoError(t, err)
	_, ok := factory(3).(*Logistic)
	assert.True(t, ok)

	cfg.Kind = "svm"
	_, err = NewFactory(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Forest.Trees = 0
	_, err = NewFactory(cfg)
	assert.Error(t, err)
}

func TestWindowSeed(t *testing.T) {
	assert.Equal(t, WindowSeed(1, 4), WindowSeed(1, 4))
	assert.NotEqual(t, WindowSeed(1, 4), WindowSeed(1, 5))
	assert.NotEqual(t, WindowSeed(1, -1), WindowSeed(1, 0))
}
