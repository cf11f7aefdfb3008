package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexcast/internal/scheduler"
	"github.com/wonny/indexcast/internal/scheduler/jobs"
)

// archiveRetention 저장 리포트 보관 기간
const archiveRetention = 365 * 24 * time.Hour

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/indexcast scheduler start
  go run ./cmd/indexcast scheduler list
  go run ./cmd/indexcast scheduler run forecast_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (America/New_York):
- data_collection: 평일 16:10 (최근 일봉 수집, DB 필요)
- forecast_pipeline: 평일 16:30 (리포트 계산, 저장, 캐시)
- archive_prune: 일요일 03:00 (오래된 리포트 삭제, DB 필요)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(out, "=== indexcast Scheduler ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	fmt.Fprintln(out)
	PrintSuccess("Scheduler started successfully")
	printJobs(sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Fprintf(out, "Running job: %s\n", jobName)

	ctx, cancel := withTimeout(30 * time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s (%d attempt(s))",
		jobName, result.Duration.Round(time.Millisecond), result.Attempts))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Job Statistics:")
	fmt.Fprintln(out)

	for _, jobName := range names {
		stat := stats[jobName]
		fmt.Fprintf(out, "📊 %s\n", jobName)
		PrintKeyValue("Schedule", stat.Schedule, 12)
		if next, err := sched.NextRun(jobName); err == nil {
			PrintKeyValue("Next Run", next.Format(time.RFC3339), 12)
		}
		PrintKeyValue("Total Runs", fmt.Sprint(stat.TotalRuns), 12)
		PrintKeyValue("Success", fmt.Sprintf("%d (%.1f%%)", stat.SuccessCount, stat.SuccessRate*100), 12)
		PrintKeyValue("Failures", fmt.Sprint(stat.FailureCount), 12)
		if stat.LastRun != nil {
			PrintKeyValue("Last Run", stat.LastRun.Format("2006-01-02 15:04:05"), 12)
		}
		fmt.Fprintln(out)
	}

	return nil
}

// printJobs 등록된 작업과 다음 실행 시각
func printJobs(sched *scheduler.Scheduler) {
	fmt.Fprintln(out, "Registered jobs:")
	columns := []string{"Job", "Next Run"}
	widths := []int{18, 25}
	PrintTableHeader(columns, widths)
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(name); err == nil {
			next = t.Format(time.RFC3339)
		}
		PrintTableRow([]string{name, next}, widths)
	}
}

// initScheduler registers the jobs that the wired app can support
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log,
		scheduler.WithRetry(3, time.Minute),
		scheduler.WithJobTimeout(20*time.Minute),
	)

	toRegister := []scheduler.Job{
		jobs.NewForecastJob(a.service, a.symbol, a.cfg.Forecast.ScheduleCron, a.log),
	}
	if a.db != nil {
		toRegister = append(toRegister,
			jobs.NewDataCollectionJob(a.history, a.symbol, 10, a.log).WithInvalidator(a.service),
			jobs.NewArchivePruneJob(a.runs, archiveRetention, a.log),
		)
	}

	for _, job := range toRegister {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
