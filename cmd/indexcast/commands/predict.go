package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "다음 거래일 방향 예측",
	Long: `파이프라인을 실행하고 다음 거래일 예측을 출력합니다.

Redis 가 켜져 있으면 캐시된 리포트를 사용하고, 새로 계산한 결과는 캐시/저장합니다.

Example:
  go run ./cmd/indexcast predict
  go run ./cmd/indexcast predict --json`,
	RunE: runPredict,
}

var (
	predictJSON    bool
	predictTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "리포트 JSON 전체 출력")
	predictCmd.Flags().DurationVar(&predictTimeout, "timeout", 30*time.Minute, "전체 실행 제한 시간")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(predictTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.service.Forecast(ctx, a.symbol)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	if predictJSON {
		fmt.Fprintln(out, string(data))
		return nil
	}

	var report struct {
		TomorrowPrediction  string          `json:"tomorrow_prediction"`
		TomorrowProbability float64         `json:"tomorrow_probability"`
		PrecisionScore      json.RawMessage `json:"precision_score"`
		AsOf                string          `json:"as_of"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}

	PrintHeader(fmt.Sprintf("%s next session", a.symbol))
	PrintKeyValue("As of", report.AsOf, 12)
	PrintKeyValue("Direction", report.TomorrowPrediction, 12)
	PrintKeyValue("Probability", fmt.Sprintf("%.4f", report.TomorrowProbability), 12)
	PrintKeyValue("Precision", string(report.PrecisionScore), 12)
	PrintSeparator()
	return nil
}
