package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexcast/internal/contracts"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "일봉 히스토리 수집",
	Long: `Yahoo 에서 일봉을 받아 히스토리 저장소(data.index_bars)에 반영합니다.

DATABASE_URL 이 없으면 받아온 개수만 출력합니다.

Example:
  go run ./cmd/indexcast fetch
  go run ./cmd/indexcast fetch --from 2024-01-01`,
	RunE: runFetch,
}

var (
	fetchFrom string
	fetchTo   string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "시작일 YYYY-MM-DD (default: FORECAST_HISTORY_START)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "종료일 YYYY-MM-DD (default: today)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(10 * time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	from := a.cfg.HistoryStartDate()
	to := time.Now().UTC()
	if fetchFrom != "" {
		if from, err = time.Parse(contracts.DateLayout, fetchFrom); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	if fetchTo != "" {
		if to, err = time.Parse(contracts.DateLayout, fetchTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	PrintHeader("History Fetch")
	PrintKeyValue("Symbol", a.symbol, 8)
	PrintKeyValue("Period", fmt.Sprintf("%s ~ %s", from.Format(contracts.DateLayout), to.Format(contracts.DateLayout)), 8)
	PrintSeparator()

	started := time.Now()
	n, err := a.history.Refresh(ctx, a.symbol, from, to)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	if a.db == nil {
		PrintInfo("DATABASE_URL not set, bars were not stored")
	}
	if n > 0 {
		if err := a.service.Invalidate(ctx, a.symbol); err != nil {
			a.log.WithError(err).Warn("Failed to invalidate cached report")
		}
	}
	PrintSuccess(fmt.Sprintf("%d bars fetched in %.2fs", n, time.Since(started).Seconds()))
	return nil
}
