package contracts

import "errors"

// 파이프라인 오류 분류
// ⭐ SSOT: 모든 도메인 오류는 여기서 정의하고 errors.Is 로 판별
var (
	// ErrMalformedSeries 시계열이 시간순이 아니거나 중복 날짜 포함
	ErrMalformedSeries = errors.New("malformed series")

	// ErrInsufficientHistory 최대 horizon 대비 바 개수 부족
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInsufficientTrainingData start 가 전체 행 수 이상이라 윈도우를 만들 수 없음
	ErrInsufficientTrainingData = errors.New("insufficient training data")

	// ErrEmptyWindow 테스트 행이 0개인 윈도우 (step <= 0 등)
	ErrEmptyWindow = errors.New("empty window")

	// ErrUndefinedPrecision 예측 양성이 0건이라 precision 정의 불가
	ErrUndefinedPrecision = errors.New("undefined precision: no predicted positives")

	// ErrInvalidHorizons horizon 이 비었거나 0 이하 또는 중복
	ErrInvalidHorizons = errors.New("invalid horizons")

	// ErrLeakage 학습 구간이 테스트 구간과 겹침
	ErrLeakage = errors.New("train range overlaps test range")

	// ErrFeatureMismatch 요청한 피처 컬럼이 시리즈에 없음
	ErrFeatureMismatch = errors.New("feature column mismatch")

	// ErrProvider 히스토리 제공자(외부 API) 실패
	ErrProvider = errors.New("history provider failure")
)

// IsDataShapeError reports whether err stems from the shape of the input data
// rather than from an infrastructure failure
func IsDataShapeError(err error) bool {
	return errors.Is(err, ErrMalformedSeries) ||
		errors.Is(err, ErrInsufficientHistory) ||
		errors.Is(err, ErrInsufficientTrainingData) ||
		errors.Is(err, ErrEmptyWindow) ||
		errors.Is(err, ErrInvalidHorizons) ||
		errors.Is(err, ErrFeatureMismatch)
}

// ErrorKind returns a short, low-cardinality label for metrics and API payloads
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedSeries):
		return "malformed_series"
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, ErrInsufficientTrainingData):
		return "insufficient_training_data"
	case errors.Is(err, ErrEmptyWindow):
		return "empty_window"
	case errors.Is(err, ErrInvalidHorizons):
		return "invalid_horizons"
	case errors.Is(err, ErrFeatureMismatch):
		return "feature_mismatch"
	case errors.Is(err, ErrLeakage):
		return "leakage"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrUndefinedPrecision):
		return "undefined_precision"
	default:
		return "internal"
	}
}
