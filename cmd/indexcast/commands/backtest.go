package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexcast/internal/forecast"
	"github.com/wonny/indexcast/internal/report"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "워크포워드 백테스트 실행",
	Long: `전체 히스토리로 워크포워드 백테스트를 실행하고 윈도우별 결과를 출력합니다.

결과는 저장되지 않습니다 (저장/캐시/발행은 scheduler 의 forecast 작업).

Example:
  go run ./cmd/indexcast backtest
  go run ./cmd/indexcast backtest --model config/model/sp500_direction.yaml --parallelism 4`,
	RunE: runBacktest,
}

var backtestTimeout time.Duration

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().DurationVar(&backtestTimeout, "timeout", 30*time.Minute, "전체 실행 제한 시간")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(backtestTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	model := a.pipeline.Model()
	PrintHeader("Walk-Forward Backtest")
	PrintKeyValue("Symbol", a.symbol, 12)
	PrintKeyValue("Model", model.Meta.ModelID, 12)
	PrintKeyValue("Config", a.pipeline.ConfigHash(), 12)
	PrintKeyValue("Horizons", fmt.Sprint(model.Features.Horizons), 12)
	PrintKeyValue("Start/Step", fmt.Sprintf("%d / %d", model.Backtest.Start, model.Backtest.Step), 12)
	PrintKeyValue("Threshold", strconv.FormatFloat(model.Decision.Threshold, 'f', -1, 64), 12)
	PrintSeparator()

	outcome, err := a.pipeline.Run(ctx, a.symbol)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	printWindows(outcome)
	printCalibration(outcome)
	printSummary(outcome)
	return nil
}

// printWindows 윈도우별 결과 테이블
func printWindows(o *forecast.Outcome) {
	columns := []string{"#", "Train", "Test From", "Test To", "Rows", "Pos", "Hits", "Precision"}
	widths := []int{4, 7, 10, 10, 5, 5, 5, 9}

	fmt.Fprintln(out)
	PrintTableHeader(columns, widths)
	for _, w := range o.Windows {
		precision := "-"
		if w.Positives > 0 {
			precision = formatPercent(float64(w.Hits) / float64(w.Positives))
		}
		PrintTableRow([]string{
			strconv.Itoa(w.Index),
			strconv.Itoa(w.TrainEnd),
			w.TestFrom.Format("2006-01-02"),
			w.TestTo.Format("2006-01-02"),
			strconv.Itoa(w.TestEnd - w.TestStart),
			strconv.Itoa(w.Positives),
			strconv.Itoa(w.Hits),
			precision,
		}, widths)
	}
}

// printCalibration 확률 구간별 실제 상승 비율
func printCalibration(o *forecast.Outcome) {
	bins := report.CalculateCalibrationBins(o.Records, 10)
	if len(bins) == 0 {
		return
	}

	columns := []string{"Prob", "Samples", "Avg P", "Actual Up"}
	widths := []int{11, 7, 7, 9}

	fmt.Fprintln(out)
	PrintTableHeader(columns, widths)
	for _, b := range bins {
		PrintTableRow([]string{
			fmt.Sprintf("%.1f-%.1f", b.Lower, b.Upper),
			strconv.Itoa(b.SampleCount),
			fmt.Sprintf("%.3f", b.AvgPredicted),
			formatPercent(b.AvgActual),
		}, widths)
	}
}

// printSummary 전체 요약
func printSummary(o *forecast.Outcome) {
	r := o.Report
	fmt.Fprintln(out)
	PrintSeparator()
	PrintKeyValue("Bars", strconv.Itoa(o.Bars), 12)
	PrintKeyValue("Rows", strconv.Itoa(r.Rows), 12)
	PrintKeyValue("Windows", strconv.Itoa(r.Windows), 12)
	PrintKeyValue("Predictions", fmt.Sprintf("0=%d 1=%d", r.PredictionCounts[0], r.PredictionCounts[1]), 12)
	PrintKeyValue("Precision", r.PrecisionScore.String(), 12)
	if acc := report.CalculateAccuracy(o.Records); acc != nil {
		PrintKeyValue("Hit Rate", formatPercent(acc.HitRate), 12)
		PrintKeyValue("Base Rate", formatPercent(acc.BaseRate), 12)
		PrintKeyValue("Brier", fmt.Sprintf("%.4f", acc.Brier), 12)
	}
	PrintKeyValue("Tomorrow", fmt.Sprintf("%s (p=%.4f, as of %s)", r.TomorrowPrediction, r.TomorrowProbability, r.AsOf), 12)
	PrintKeyValue("Duration", o.Duration.Round(time.Millisecond).String(), 12)
	PrintSeparator()

	if !r.PrecisionScore.Defined {
		PrintWarning("No positive predictions in the backtest; precision is undefined")
	}
}
