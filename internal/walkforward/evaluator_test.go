package walkforward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/decision"
)

// indexSeries builds n rows whose single feature is the row index
func indexSeries(n int) *contracts.LabeledSeries {
	s := &contracts.LabeledSeries{Columns: contracts.FeatureColumns{"Close_Ratio_2", "Trend_2"}}
	base := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Rows = append(s.Rows, contracts.Row{
			Bar:      contracts.Bar{Date: base.AddDate(0, 0, i), Close: float64(100 + i)},
			Target:   i % 2,
			Labeled:  true,
			Features: []float64{float64(i), float64(i % 2)},
		})
	}
	return s
}

// stubClassifier predicts 0.6 on even indices and 0.59 on odd ones
type stubClassifier struct {
	mu        *sync.Mutex
	trainMax  map[int]float64
	window    int
	fitErr    error
	shortPred bool
}

func (s *stubClassifier) Fit(X [][]float64, y []int) error {
	if s.fitErr != nil {
		return s.fitErr
	}
	hi := -1.0
	for _, row := range X {
		if row[0] > hi {
			hi = row[0]
		}
	}
	s.mu.Lock()
	s.trainMax[s.window] = hi
	s.mu.Unlock()
	return nil
}

func (s *stubClassifier) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		if int(row[0])%2 == 0 {
			out[i] = 0.6
		} else {
			out[i] = 0.59
		}
	}
	if s.shortPred {
		return out[:len(out)-1], nil
	}
	return out, nil
}

type stubFactory struct {
	mu       sync.Mutex
	trainMax map[int]float64
	fitErr   error
	short    bool
}

func newStubFactory() *stubFactory {
	return &stubFactory{trainMax: map[int]float64{}}
}

func (f *stubFactory) New(window int) contracts.Classifier {
	return &stubClassifier{mu: &f.mu, trainMax: f.trainMax, window: window, fitErr: f.fitErr, shortPred: f.short}
}

func TestWindows_Geometry(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		start, step int
		want        []contracts.Window
	}{
		{
			name: "exact multiple", total: 3000, start: 2500, step: 250,
			want: []contracts.Window{
				{Index: 0, TrainEnd: 2500, TestStart: 2500, TestEnd: 2750},
				{Index: 1, TrainEnd: 2750, TestStart: 2750, TestEnd: 3000},
			},
		},
		{
			name: "last window truncated", total: 3039, start: 2500, step: 250,
			want: []contracts.Window{
				{Index: 0, TrainEnd: 2500, TestStart: 2500, TestEnd: 2750},
				{Index: 1, TrainEnd: 2750, TestStart: 2750, TestEnd: 3000},
				{Index: 2, TrainEnd: 3000, TestStart: 3000, TestEnd: 3039},
			},
		},
		{
			name: "single short window", total: 10, start: 9, step: 250,
			want: []contracts.Window{{Index: 0, TrainEnd: 9, TestStart: 9, TestEnd: 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Windows(tt.total, tt.start, tt.step)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			covered := 0
			for _, w := range got {
				assert.LessOrEqual(t, w.TrainEnd, w.TestStart)
				assert.Greater(t, w.TestSize(), 0)
				covered += w.TestSize()
			}
			assert.Equal(t, tt.total-tt.start, covered)
		})
	}
}

func TestWindows_Errors(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		start, step int
		want        error
	}{
		{"zero step", 100, 50, 0, contracts.ErrEmptyWindow},
		{"negative step", 100, 50, -1, contracts.ErrEmptyWindow},
		{"start beyond rows", 100, 150, 10, contracts.ErrInsufficientTrainingData},
		{"start equals rows", 100, 100, 10, contracts.ErrInsufficientTrainingData},
		{"no training rows", 100, 0, 10, contracts.ErrInsufficientTrainingData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Windows(tt.total, tt.start, tt.step)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBacktest_RecordsAndNoLeakage(t *testing.T) {
	series := indexSeries(1000)
	factory := newStubFactory()
	ev := NewEvaluator(decision.Default(), 1, zerolog.Nop())

	records, err := ev.Backtest(context.Background(), series, factory.New, series.Columns, 700, 100)
	require.NoError(t, err)
	require.Len(t, records, 300)

	for i, rec := range records {
		row := series.Rows[700+i]
		assert.Equal(t, row.Date, rec.Date)
		assert.Equal(t, row.Target, rec.Target)
		// 0.6 (짝수) → 1, 0.59 (홀수) → 0
		assert.Equal(t, 1-(700+i)%2, rec.Prediction)
	}

	// 각 윈도우 학습 데이터의 최대 인덱스 = TestStart - 1
	assert.Equal(t, map[int]float64{0: 699, 1: 799, 2: 899}, factory.trainMax)
}

func TestBacktest_ParallelMatchesSequential(t *testing.T) {
	series := indexSeries(2000)

	seq, err := NewEvaluator(decision.Default(), 1, zerolog.Nop()).
		Evaluate(context.Background(), series, newStubFactory().New, series.Columns, 500, 97)
	require.NoError(t, err)

	par, err := NewEvaluator(decision.Default(), 8, zerolog.Nop()).
		Evaluate(context.Background(), series, newStubFactory().New, series.Columns, 500, 97)
	require.NoError(t, err)

	assert.Equal(t, seq.Records, par.Records)
	require.Len(t, par.Windows, len(seq.Windows))
	for i := range seq.Windows {
		assert.Equal(t, seq.Windows[i].Window, par.Windows[i].Window)
		assert.Equal(t, seq.Windows[i].Positives, par.Windows[i].Positives)
	}
	for i := 1; i < len(par.Records); i++ {
		assert.True(t, par.Records[i].Date.After(par.Records[i-1].Date))
	}
}

func TestEvaluate_WindowStats(t *testing.T) {
	series := indexSeries(1000)

	result, err := NewEvaluator(decision.Default(), 2, zerolog.Nop()).
		Evaluate(context.Background(), series, newStubFactory().New, series.Columns, 900, 60)
	require.NoError(t, err)
	require.Len(t, result.Windows, 2)

	first := result.Windows[0]
	assert.Equal(t, 60, first.TestSize())
	assert.Equal(t, 30, first.Positives)
	// 짝수 인덱스는 Target 0 → 적중 없음
	assert.Equal(t, 0, first.Hits)
	assert.Equal(t, series.Rows[900].Date, first.TestFrom)
	assert.Equal(t, series.Rows[959].Date, first.TestTo)
	assert.Equal(t, 40, result.Windows[1].TestSize())
}

func TestBacktest_Errors(t *testing.T) {
	series := indexSeries(100)
	ev := NewEvaluator(decision.Default(), 1, zerolog.Nop())
	ctx := context.Background()

	_, err := ev.Backtest(ctx, series, newStubFactory().New, series.Columns, 200, 10)
	assert.ErrorIs(t, err, contracts.ErrInsufficientTrainingData)

	_, err = ev.Backtest(ctx, series, newStubFactory().New, series.Columns, 50, 0)
	assert.ErrorIs(t, err, contracts.ErrEmptyWindow)

	_, err = ev.Backtest(ctx, series, newStubFactory().New, contracts.FeatureColumns{"Trend_1000"}, 50, 10)
	assert.ErrorIs(t, err, contracts.ErrFeatureMismatch)

	_, err = ev.Backtest(ctx, nil, newStubFactory().New, series.Columns, 50, 10)
	assert.ErrorIs(t, err, contracts.ErrInsufficientTrainingData)

	failing := newStubFactory()
	failing.fitErr = errors.New("single class")
	_, err = ev.Backtest(ctx, series, failing.New, series.Columns, 50, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fit: single class")

	short := newStubFactory()
	short.short = true
	_, err = ev.Backtest(ctx, series, short.New, series.Columns, 50, 10)
	assert.ErrorContains(t, err, "probabilities")
}

func TestBacktest_ContextCanceled(t *testing.T) {
	series := indexSeries(500)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEvaluator(decision.Default(), 4, zerolog.Nop()).
		Backtest(ctx, series, newStubFactory().New, series.Columns, 100, 50)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEvaluator_ClampsParallelism(t *testing.T) {
	ev := NewEvaluator(decision.Rule{Threshold: 0.7}, 0, zerolog.Nop())
	assert.Equal(t, 1, ev.parallelism)
	assert.Equal(t, 0.7, ev.Rule().Threshold)
}
