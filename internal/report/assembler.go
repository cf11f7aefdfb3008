package report

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/decision"
)

// Counts returns decision → count for the decisions that occur
func Counts(records []contracts.PredictionRecord) map[int]int {
	counts := make(map[int]int, 2)
	for _, r := range records {
		counts[r.Prediction]++
	}
	return counts
}

// Precision returns TP / predicted positives, or an undefined value when nothing was predicted up
func Precision(records []contracts.PredictionRecord) contracts.Precision {
	positives, hits := 0, 0
	for _, r := range records {
		if r.Prediction == 1 {
			positives++
			if r.Target == 1 {
				hits++
			}
		}
	}
	if positives == 0 {
		return contracts.Precision{}
	}
	return contracts.DefinedPrecision(float64(hits) / float64(positives))
}

// Results converts records to (timestamp, target, prediction) entries in order
func Results(records []contracts.PredictionRecord) []contracts.ResultEntry {
	out := make([]contracts.ResultEntry, len(records))
	for i, r := range records {
		out[i] = contracts.ResultEntry{
			Timestamp:  r.Date.Format(contracts.DateLayout),
			Target:     r.Target,
			Prediction: r.Prediction,
		}
	}
	return out
}

// Assembler 백테스트 결과 + 라이브 예측 → Report
// ⭐ SSOT: Report 필드는 여기서만 채움 (Symbol/Windows 는 파이프라인이 설정)
type Assembler struct {
	rule decision.Rule
	log  zerolog.Logger
}

// NewAssembler creates an assembler sharing the evaluator's decision rule
func NewAssembler(rule decision.Rule, log zerolog.Logger) *Assembler {
	return &Assembler{
		rule: rule,
		log:  log.With().Str("component", "report.assembler").Logger(),
	}
}

// Summarize builds the report
// clf 는 모든 라벨 행으로 학습된 최종 분류기, series.Latest 의 피처로 다음 세션 방향 예측
// precision 이 정의되지 않아도 실패하지 않음
func (a *Assembler) Summarize(
	records []contracts.PredictionRecord,
	series *contracts.LabeledSeries,
	clf contracts.Classifier,
	columns contracts.FeatureColumns,
) (*contracts.Report, error) {
	if series == nil || series.Latest == nil {
		return nil, fmt.Errorf("%w: no latest row for live forecast", contracts.ErrInsufficientHistory)
	}
	if clf == nil {
		return nil, fmt.Errorf("summarize: nil classifier")
	}

	latest, err := series.Vector(series.Latest, columns)
	if err != nil {
		return nil, err
	}
	probs, err := clf.PredictProba([][]float64{latest})
	if err != nil {
		return nil, fmt.Errorf("live forecast: %w", err)
	}
	if len(probs) != 1 {
		return nil, fmt.Errorf("live forecast: classifier returned %d probabilities for 1 row", len(probs))
	}
	up := a.rule.Decide(probs[0])

	rep := &contracts.Report{
		PredictionCounts:    Counts(records),
		PrecisionScore:      Precision(records),
		AllResults:          Results(records),
		TomorrowPrediction:  decision.Direction(up),
		TomorrowProbability: probs[0],
		Threshold:           a.rule.Threshold,
		Rows:                series.Len(),
		AsOf:                series.Latest.Date.Format(contracts.DateLayout),
	}

	ev := a.log.Info().
		Int("records", len(records)).
		Int("positives", rep.Positives()).
		Str("precision", rep.PrecisionScore.String()).
		Str("tomorrow", rep.TomorrowPrediction).
		Float64("probability", rep.TomorrowProbability)
	if err := rep.PrecisionScore.Err(); err != nil {
		ev = ev.AnErr("precision_note", err)
	}
	ev.Msg("report assembled")

	return rep, nil
}
