package contracts

// Classifier 확률 분류기
// ⭐ SSOT: 코어는 구체 알고리즘을 모름 (fit / predict_proba 계약만 사용)
type Classifier interface {
	// Fit trains on X (rows × features) against binary labels y
	Fit(X [][]float64, y []int) error
	// PredictProba returns P(y=1) in [0,1] for each row of X, in order
	PredictProba(X [][]float64) ([]float64, error)
}

// ClassifierFactory returns a fresh, unfitted classifier for a walk-forward window.
// window = -1 requests the final classifier fitted on every labeled row.
type ClassifierFactory func(window int) Classifier

// FinalWindow is the window index passed to a factory for the live classifier
const FinalWindow = -1
