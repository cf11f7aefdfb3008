package decision

import (
	"fmt"

	"github.com/wonny/indexcast/internal/contracts"
)

// DefaultThreshold 상승 판정 최소 확률
// p >= 0.6 이면 상승
const DefaultThreshold = 0.6

// Rule 확률 → 이진 결정
// ⭐ SSOT: 백테스트와 라이브 예측이 같은 Rule 값을 사용
type Rule struct {
	Threshold float64 `json:"threshold"`
}

// Default returns the rule with the 0.6 threshold
func Default() Rule {
	return Rule{Threshold: DefaultThreshold}
}

// Validate checks that the threshold is a probability
func (r Rule) Validate() error {
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("threshold %v must be within [0,1]", r.Threshold)
	}
	return nil
}

// Decide returns true iff p >= Threshold (경계값 포함)
func (r Rule) Decide(p float64) bool {
	return p >= r.Threshold
}

// Label maps a decision to 1/0
func Label(up bool) int {
	if up {
		return 1
	}
	return 0
}

// Direction maps a decision to "Increase"/"Decrease"
func Direction(up bool) string {
	if up {
		return contracts.DirectionIncrease
	}
	return contracts.DirectionDecrease
}

// Apply decides a whole probability vector
func (r Rule) Apply(probs []float64) []int {
	out := make([]int, len(probs))
	for i, p := range probs {
		out[i] = Label(r.Decide(p))
	}
	return out
}
