package walkforward

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/decision"
)

// 기본 윈도우 설정
const (
	DefaultStart = 2500 // 첫 테스트 이전 최소 학습 행 수 (약 10년)
	DefaultStep  = 250  // 테스트 블록 크기 (약 1년)
)

// Windows 확장 윈도우 목록 생성
// i = start, start+step, ... (i < total), 학습 [0,i), 테스트 [i, min(i+step,total))
func Windows(total, start, step int) ([]contracts.Window, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step %d yields no test rows", contracts.ErrEmptyWindow, step)
	}
	if start <= 0 {
		return nil, fmt.Errorf("%w: start %d leaves no training rows", contracts.ErrInsufficientTrainingData, start)
	}
	if start >= total {
		return nil, fmt.Errorf("%w: start %d >= %d available rows", contracts.ErrInsufficientTrainingData, start, total)
	}

	windows := make([]contracts.Window, 0, (total-start+step-1)/step)
	for i := start; i < total; i += step {
		end := i + step
		if end > total {
			end = total
		}
		windows = append(windows, contracts.Window{
			Index:     len(windows),
			TrainEnd:  i,
			TestStart: i,
			TestEnd:   end,
		})
	}
	return windows, nil
}

// WindowStat 윈도우별 요약
type WindowStat struct {
	contracts.Window
	TrainFrom time.Time     `json:"train_from"`
	TestFrom  time.Time     `json:"test_from"`
	TestTo    time.Time     `json:"test_to"`
	Positives int           `json:"positives"` // 예측 양성 수
	Hits      int           `json:"hits"`      // 예측 양성 중 실제 상승
	Duration  time.Duration `json:"duration"`
}

// Result 백테스트 결과
type Result struct {
	Records []contracts.PredictionRecord
	Windows []WindowStat
}

// Evaluator 워크포워드 평가기
// ⭐ SSOT: 윈도우별 학습은 항상 [0, TestStart) 만 사용
type Evaluator struct {
	rule        decision.Rule
	parallelism int
	log         zerolog.Logger
}

// NewEvaluator creates an evaluator; parallelism < 1 runs windows sequentially
func NewEvaluator(rule decision.Rule, parallelism int, log zerolog.Logger) *Evaluator {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Evaluator{
		rule:        rule,
		parallelism: parallelism,
		log:         log.With().Str("component", "walkforward.evaluator").Logger(),
	}
}

// Rule returns the decision rule applied to every window
func (e *Evaluator) Rule() decision.Rule {
	return e.rule
}

// Backtest returns prediction records for every test row in chronological order
func (e *Evaluator) Backtest(
	ctx context.Context,
	series *contracts.LabeledSeries,
	factory contracts.ClassifierFactory,
	columns contracts.FeatureColumns,
	start, step int,
) ([]contracts.PredictionRecord, error) {
	result, err := e.Evaluate(ctx, series, factory, columns, start, step)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Evaluate runs the walk-forward loop and keeps per-window statistics
func (e *Evaluator) Evaluate(
	ctx context.Context,
	series *contracts.LabeledSeries,
	factory contracts.ClassifierFactory,
	columns contracts.FeatureColumns,
	start, step int,
) (*Result, error) {
	if series == nil {
		return nil, fmt.Errorf("%w: nil series", contracts.ErrInsufficientTrainingData)
	}
	if _, err := series.Projection(columns); err != nil {
		return nil, err
	}

	windows, err := Windows(series.Len(), start, step)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	e.log.Info().
		Int("rows", series.Len()).
		Int("windows", len(windows)).
		Int("start", start).
		Int("step", step).
		Int("parallelism", e.parallelism).
		Msg("walk-forward started")

	// 윈도우 인덱스 위치에 기록 → 실행 순서와 무관하게 시간순 결합
	perWindow := make([][]contracts.PredictionRecord, len(windows))
	stats := make([]WindowStat, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for _, w := range windows {
		w := w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, stat, err := e.runWindow(series, factory(w.Index), columns, w)
			if err != nil {
				return err
			}
			perWindow[w.Index] = records
			stats[w.Index] = stat
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.log.Error().Err(err).Msg("walk-forward aborted")
		return nil, err
	}

	total := 0
	for _, recs := range perWindow {
		total += len(recs)
	}
	records := make([]contracts.PredictionRecord, 0, total)
	for _, recs := range perWindow {
		records = append(records, recs...)
	}

	e.log.Info().
		Int("records", len(records)).
		Dur("duration", time.Since(startTime)).
		Msg("walk-forward completed")

	return &Result{Records: records, Windows: stats}, nil
}

// runWindow fits on [0, TrainEnd) and predicts [TestStart, TestEnd)
func (e *Evaluator) runWindow(
	series *contracts.LabeledSeries,
	clf contracts.Classifier,
	columns contracts.FeatureColumns,
	w contracts.Window,
) ([]contracts.PredictionRecord, WindowStat, error) {
	stat := WindowStat{Window: w}

	if w.TrainEnd > w.TestStart {
		return nil, stat, fmt.Errorf("%w: window %d trains to %d, tests from %d",
			contracts.ErrLeakage, w.Index, w.TrainEnd, w.TestStart)
	}
	if w.TestSize() <= 0 {
		return nil, stat, fmt.Errorf("%w: window %d", contracts.ErrEmptyWindow, w.Index)
	}
	if clf == nil {
		return nil, stat, fmt.Errorf("window %d: factory returned nil classifier", w.Index)
	}

	began := time.Now()

	trainX, trainY, err := series.Matrix(0, w.TrainEnd, columns)
	if err != nil {
		return nil, stat, fmt.Errorf("window %d train matrix: %w", w.Index, err)
	}
	testX, _, err := series.Matrix(w.TestStart, w.TestEnd, columns)
	if err != nil {
		return nil, stat, fmt.Errorf("window %d test matrix: %w", w.Index, err)
	}

	if err := clf.Fit(trainX, trainY); err != nil {
		return nil, stat, fmt.Errorf("window %d fit: %w", w.Index, err)
	}
	probs, err := clf.PredictProba(testX)
	if err != nil {
		return nil, stat, fmt.Errorf("window %d predict: %w", w.Index, err)
	}
	if len(probs) != len(testX) {
		return nil, stat, fmt.Errorf("window %d: classifier returned %d probabilities for %d rows",
			w.Index, len(probs), len(testX))
	}

	rows := series.Rows[w.TestStart:w.TestEnd]
	records := make([]contracts.PredictionRecord, len(rows))
	for i, row := range rows {
		pred := decision.Label(e.rule.Decide(probs[i]))
		records[i] = contracts.PredictionRecord{
			Date:        row.Date,
			Target:      row.Target,
			Prediction:  pred,
			Probability: probs[i],
		}
		if pred == 1 {
			stat.Positives++
			if row.Target == 1 {
				stat.Hits++
			}
		}
	}

	stat.TrainFrom = series.Rows[0].Date
	stat.TestFrom = rows[0].Date
	stat.TestTo = rows[len(rows)-1].Date
	stat.Duration = time.Since(began)

	e.log.Debug().
		Int("window", w.Index).
		Int("train_rows", w.TrainSize()).
		Int("test_rows", w.TestSize()).
		Int("positives", stat.Positives).
		Dur("duration", stat.Duration).
		Msg("window evaluated")

	return records, stat, nil
}
