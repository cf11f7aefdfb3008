package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexcast/internal/api"
	"github.com/wonny/indexcast/internal/api/handlers"
	"github.com/wonny/indexcast/internal/api/ws"
	"github.com/wonny/indexcast/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 리포트 조회 엔드포인트 제공
- websocket 으로 스케줄 리포트 스트리밍

Endpoints:
  GET  /health                        - Health check
  GET  /predict                       - 기본 심볼 리포트
  GET  /api/forecast/{symbol}         - 심볼 리포트
  GET  /api/forecast/{symbol}/latest  - 마지막 저장 리포트
  GET  /ws/forecast                   - 리포트 스트림
  GET  /metrics                       - Prometheus

Example:
  go run ./cmd/indexcast api
  go run ./cmd/indexcast api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "스케줄러를 같은 프로세스에서 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(out, "=== indexcast API Server ===")

	// 1. Build application
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 2. Websocket hub
	hub := ws.NewHub(a.log)
	defer hub.Close()
	a.service.SetPublisher(hub)

	// 3. Handlers + router
	forecastHandler := handlers.NewForecastHandler(a.service, a.symbol, a.log)
	deps := api.RouterDeps{
		Forecast: forecastHandler,
		Hub:      hub,
		Limiter:  redis.NewRateLimiter(a.redis, "indexcast"),
		Logger:   a.log,
	}
	if a.cfg.MetricsEnabled {
		deps.Metrics = a.metrics
	}
	if a.db != nil {
		deps.Database = a.db
	}
	router := api.NewRouter(deps)

	// 4. Optional scheduler
	if withScheduler {
		sched, err := initScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 5. Create server
	server := api.New(":"+a.cfg.Port, router, a.log)
	server.OnShutdown(hub.Close)

	// 6. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	a.log.Info("API server started successfully")
	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(out, "\nAvailable endpoints:")
	PrintList([]string{
		"GET  /health",
		"GET  /predict",
		"GET  /api/forecast/{symbol}",
		"GET  /api/forecast/{symbol}/latest",
		"GET  /ws/forecast",
		"GET  /metrics",
	})
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
