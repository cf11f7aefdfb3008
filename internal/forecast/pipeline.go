package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/indexcast/internal/classifier"
	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/features"
	"github.com/wonny/indexcast/internal/modelconfig"
	"github.com/wonny/indexcast/internal/report"
	"github.com/wonny/indexcast/internal/walkforward"
	"github.com/wonny/indexcast/pkg/metrics"
)

// DefaultHistoryStart ^GSPC 일봉 최초 거래일
var DefaultHistoryStart = time.Date(1927, 12, 30, 0, 0, 0, 0, time.UTC)

// 파이프라인 단계 (메트릭 라벨)
const (
	StageFetch     = "fetch"
	StageBuild     = "build"
	StageBacktest  = "backtest"
	StageFit       = "fit"
	StageSummarize = "summarize"
)

// Options 파이프라인 명시적 입력
// ⭐ SSOT: 전역 상태 없이 모든 파라미터를 여기로 전달
type Options struct {
	Model        *modelconfig.Model
	HistoryStart time.Time        // 프로바이더 요청 시작일 (zero → DefaultHistoryStart)
	Parallelism  int              // 0 → Model.Backtest.Parallelism
	Metrics      *metrics.Recorder // nil 가능
	Clock        func() time.Time // nil → time.Now
}

// Outcome 1회 실행 결과
type Outcome struct {
	Report     *contracts.Report
	Records    []contracts.PredictionRecord // 백테스트 예측 (시간순)
	Windows    []walkforward.WindowStat
	ConfigHash string
	Bars       int
	Duration   time.Duration
}

// Pipeline fetch → build → backtest → fit → summarize
type Pipeline struct {
	provider     contracts.HistoryProvider
	model        *modelconfig.Model
	builder      *features.Builder
	evaluator    *walkforward.Evaluator
	assembler    *report.Assembler
	factory      contracts.ClassifierFactory
	columns      contracts.FeatureColumns
	configHash   string
	historyStart time.Time
	metrics      *metrics.Recorder
	clock        func() time.Time
	log          zerolog.Logger
}

// NewPipeline wires the core components from a validated model config
func NewPipeline(provider contracts.HistoryProvider, opts Options, log zerolog.Logger) (*Pipeline, error) {
	model := opts.Model
	if model == nil {
		model = modelconfig.Default()
	}
	if err := modelconfig.Validate(model); err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}

	builder, err := features.NewBuilder(model.FeatureConfig(), log)
	if err != nil {
		return nil, err
	}

	factory, err := classifier.NewFactory(model.Classifier)
	if err != nil {
		return nil, err
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = model.Backtest.Parallelism
	}

	historyStart := opts.HistoryStart
	if historyStart.IsZero() {
		historyStart = DefaultHistoryStart
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	rule := model.Rule()
	return &Pipeline{
		provider:     provider,
		model:        model,
		builder:      builder,
		evaluator:    walkforward.NewEvaluator(rule, parallelism, log),
		assembler:    report.NewAssembler(rule, log),
		factory:      factory,
		columns:      builder.Columns(),
		configHash:   modelconfig.ShortHash(model),
		historyStart: historyStart,
		metrics:      opts.Metrics,
		clock:        clock,
		log:          log.With().Str("component", "forecast.pipeline").Logger(),
	}, nil
}

// ConfigHash identifies the model config used by every run
func (p *Pipeline) ConfigHash() string {
	return p.configHash
}

// Model returns the model config
func (p *Pipeline) Model() *modelconfig.Model {
	return p.model
}

// Run fetches history for symbol and produces a report
func (p *Pipeline) Run(ctx context.Context, symbol string) (*Outcome, error) {
	started := time.Now()

	bars, err := p.fetch(ctx, symbol)
	if err != nil {
		p.fail(symbol, err)
		return nil, err
	}

	outcome, err := p.run(ctx, symbol, bars)
	if err != nil {
		p.fail(symbol, err)
		return nil, err
	}
	outcome.Duration = time.Since(started)

	p.succeed(symbol, outcome)
	return outcome, nil
}

// RunBars runs the pipeline on bars already in hand
func (p *Pipeline) RunBars(ctx context.Context, symbol string, bars []contracts.Bar) (*Outcome, error) {
	started := time.Now()

	outcome, err := p.run(ctx, symbol, bars)
	if err != nil {
		p.fail(symbol, err)
		return nil, err
	}
	outcome.Duration = time.Since(started)

	p.succeed(symbol, outcome)
	return outcome, nil
}

func (p *Pipeline) fetch(ctx context.Context, symbol string) ([]contracts.Bar, error) {
	defer p.stage(StageFetch, time.Now())

	to := p.clock().UTC()
	bars, err := p.provider.FetchDaily(ctx, symbol, p.historyStart, to)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return bars, nil
}

func (p *Pipeline) run(ctx context.Context, symbol string, bars []contracts.Bar) (*Outcome, error) {
	series, err := p.build(bars)
	if err != nil {
		return nil, err
	}

	result, err := p.backtest(ctx, series)
	if err != nil {
		return nil, err
	}

	final, err := p.fit(ctx, series)
	if err != nil {
		return nil, err
	}

	rep, err := p.summarize(result, series, final)
	if err != nil {
		return nil, err
	}
	rep.Symbol = symbol
	rep.Windows = len(result.Windows)

	return &Outcome{
		Report:     rep,
		Records:    result.Records,
		Windows:    result.Windows,
		ConfigHash: p.configHash,
		Bars:       len(bars),
	}, nil
}

func (p *Pipeline) build(bars []contracts.Bar) (*contracts.LabeledSeries, error) {
	defer p.stage(StageBuild, time.Now())
	return p.builder.Build(bars)
}

func (p *Pipeline) backtest(ctx context.Context, series *contracts.LabeledSeries) (*walkforward.Result, error) {
	defer p.stage(StageBacktest, time.Now())
	return p.evaluator.Evaluate(ctx, series, p.factory, p.columns, p.model.Backtest.Start, p.model.Backtest.Step)
}

// fit 라이브 예측용 최종 분류기, 라벨이 있는 전체 행으로 학습
func (p *Pipeline) fit(ctx context.Context, series *contracts.LabeledSeries) (contracts.Classifier, error) {
	defer p.stage(StageFit, time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	X, y, err := series.Matrix(0, series.Len(), p.columns)
	if err != nil {
		return nil, err
	}

	final := p.factory(contracts.FinalWindow)
	if err := final.Fit(X, y); err != nil {
		return nil, fmt.Errorf("fit final classifier: %w", err)
	}
	return final, nil
}

func (p *Pipeline) summarize(result *walkforward.Result, series *contracts.LabeledSeries, final contracts.Classifier) (*contracts.Report, error) {
	defer p.stage(StageSummarize, time.Now())
	return p.assembler.Summarize(result.Records, series, final, p.columns)
}

func (p *Pipeline) stage(name string, started time.Time) {
	p.metrics.RecordStage(name, time.Since(started).Seconds())
}

func (p *Pipeline) succeed(symbol string, o *Outcome) {
	rep := o.Report
	p.metrics.RecordRun(symbol, true)
	p.metrics.RecordWindows(symbol, rep.Windows)
	p.metrics.RecordReport(symbol, rep.PrecisionScore.Float(), rep.TomorrowProbability, o.Bars)

	p.log.Info().
		Str("symbol", symbol).
		Str("config_hash", o.ConfigHash).
		Int("bars", o.Bars).
		Int("rows", rep.Rows).
		Int("windows", rep.Windows).
		Str("precision", rep.PrecisionScore.String()).
		Str("tomorrow", rep.TomorrowPrediction).
		Str("as_of", rep.AsOf).
		Dur("duration", o.Duration).
		Msg("forecast completed")
}

func (p *Pipeline) fail(symbol string, err error) {
	kind := contracts.ErrorKind(err)
	p.metrics.RecordRun(symbol, false)
	p.metrics.RecordError(kind)

	p.log.Error().
		Err(err).
		Str("symbol", symbol).
		Str("kind", kind).
		Msg("forecast failed")
}
