package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	modelPath   string
	symbol      string
	parallelism int
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "indexcast",
	Short: "indexcast - S&P 500 next-session direction forecaster",
	Long: `indexcast CLI

일봉 히스토리로 다음 거래일 지수 방향을 예측합니다.
Feature Builder → Walk-Forward 백테스트 → 임계값 0.6 → 리포트.

Usage:
  go run ./cmd/indexcast [command]

Examples:
  go run ./cmd/indexcast api
  go run ./cmd/indexcast backtest --model config/model/sp500_direction.yaml
  go run ./cmd/indexcast predict
  go run ./cmd/indexcast fetch
  go run ./cmd/indexcast scheduler start
  go run ./cmd/indexcast test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "model config YAML (default: FORECAST_MODEL_CONFIG or built-in)")
	rootCmd.PersistentFlags().StringVar(&symbol, "symbol", "", "index symbol (default: FORECAST_SYMBOL)")
	rootCmd.PersistentFlags().IntVar(&parallelism, "parallelism", 0, "concurrent walk-forward windows (default: FORECAST_PARALLELISM)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
