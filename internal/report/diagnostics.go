package report

import (
	"math"

	"github.com/wonny/indexcast/internal/contracts"
)

// =============================================================================
// Accuracy
// =============================================================================

// Accuracy 백테스트 전체 정확도 요약 (Report 필드에는 포함되지 않음)
type Accuracy struct {
	SampleCount int     `json:"sample_count"`
	HitRate     float64 `json:"hit_rate"`  // 결정 == 실제 비율
	BaseRate    float64 `json:"base_rate"` // 실제 상승 비율
	MeanProb    float64 `json:"mean_prob"` // 평균 예측 확률 (편향 확인)
	Brier       float64 `json:"brier"`     // mean((p - y)^2)
}

// CalculateAccuracy summarizes decisions and probabilities against targets; nil for no records
func CalculateAccuracy(records []contracts.PredictionRecord) *Accuracy {
	if len(records) == 0 {
		return nil
	}

	var hits, ups int
	var sumProb, sumSq float64
	for _, r := range records {
		if r.Prediction == r.Target {
			hits++
		}
		if r.Target == 1 {
			ups++
		}
		sumProb += r.Probability
		diff := r.Probability - float64(r.Target)
		sumSq += diff * diff
	}

	n := float64(len(records))
	return &Accuracy{
		SampleCount: len(records),
		HitRate:     float64(hits) / n,
		BaseRate:    float64(ups) / n,
		MeanProb:    sumProb / n,
		Brier:       sumSq / n,
	}
}

// =============================================================================
// Calibration
// =============================================================================

// CalibrationBin 확률 구간별 실제 상승 비율 (신뢰도 다이어그램용)
type CalibrationBin struct {
	Bin          int     `json:"bin"`   // 0 .. numBins-1
	Lower        float64 `json:"lower"` // [Lower, Upper)
	Upper        float64 `json:"upper"`
	SampleCount  int     `json:"sample_count"`
	AvgPredicted float64 `json:"avg_predicted"`
	AvgActual    float64 `json:"avg_actual"`
}

// CalculateCalibrationBins buckets records by predicted probability; empty bins are skipped
func CalculateCalibrationBins(records []contracts.PredictionRecord, numBins int) []CalibrationBin {
	if len(records) == 0 || numBins <= 0 {
		return nil
	}

	counts := make([]int, numBins)
	sumPred := make([]float64, numBins)
	sumActual := make([]float64, numBins)

	for _, r := range records {
		p := math.Min(math.Max(r.Probability, 0), 1)
		idx := int(p * float64(numBins))
		if idx >= numBins {
			idx = numBins - 1 // p == 1
		}
		counts[idx]++
		sumPred[idx] += r.Probability
		sumActual[idx] += float64(r.Target)
	}

	width := 1 / float64(numBins)
	var result []CalibrationBin
	for i := 0; i < numBins; i++ {
		if counts[i] == 0 {
			continue
		}
		n := float64(counts[i])
		result = append(result, CalibrationBin{
			Bin:          i,
			Lower:        float64(i) * width,
			Upper:        float64(i+1) * width,
			SampleCount:  counts[i],
			AvgPredicted: sumPred[i] / n,
			AvgActual:    sumActual[i] / n,
		})
	}

	return result
}
