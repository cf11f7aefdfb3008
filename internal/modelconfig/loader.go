package modelconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/features"
)

var validate = newValidator()

// newValidator reports yaml field names instead of Go field names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Default returns the built-in model configuration
func Default() *Model {
	var m Model
	// 태그 기본값만 사용하므로 실패하지 않음
	_ = defaults.Set(&m)
	return &m
}

// Load reads YAML file and returns Model with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Model, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	m, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return m, data, nil
}

// LoadOrDefault loads path, or returns Default() when path is empty
func LoadOrDefault(path string) (*Model, error) {
	if path == "" {
		return Default(), nil
	}
	m, _, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load model config %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes YAML, fills defaults and validates
func Parse(data []byte) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if err := defaults.Set(&m); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate runs struct tag rules, then cross-field checks
func Validate(m *Model) error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{Field: fieldPath(fe.Namespace()), Message: ruleMessage(fe)}
		}
		return err
	}

	if err := features.ValidateHorizons(m.Features.Horizons); err != nil {
		return ValidationError{"features.horizons", err.Error()}
	}

	s := strings.TrimSpace(m.Features.StartDate)
	if s != "" && !strings.EqualFold(s, NoStartDate) {
		if _, err := time.Parse(contracts.DateLayout, s); err != nil {
			return ValidationError{"features.start_date", "must be YYYY-MM-DD or \"none\""}
		}
	}

	// 첫 윈도우 학습 행 수는 트리 분할 최소 샘플 이상이어야 함
	if m.Classifier.Kind == "random_forest" && m.Backtest.Start < m.Classifier.Forest.MinSamplesSplit {
		return ValidationError{"backtest.start", fmt.Sprintf("must be >= classifier.forest.min_samples_split (%d)",
			m.Classifier.Forest.MinSamplesSplit)}
	}

	return nil
}

// Hash generates SHA256 hash from Model (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(m *Model) (string, error) {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// ShortHash returns the first 12 hex characters of Hash
func ShortHash(m *Model) string {
	h, err := Hash(m)
	if err != nil || len(h) < 12 {
		return "unknown"
	}
	return h[:12]
}

// fieldPath converts "Model.backtest.start" to "backtest.start"
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be > " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " item(s)"
	case "unique":
		return "must not contain duplicates"
	default:
		return "failed validation: " + fe.Tag()
	}
}
