package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/indexcast/internal/api/handlers"
	"github.com/wonny/indexcast/internal/api/ws"
	"github.com/wonny/indexcast/pkg/logger"
	"github.com/wonny/indexcast/pkg/metrics"
	"github.com/wonny/indexcast/pkg/redis"
)

// HealthChecker 선택 의존성 헬스 체크 (DB 등)
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterDeps 라우터 의존성 (Hub, Metrics, Limiter, Database 는 nil 허용)
type RouterDeps struct {
	Forecast *handlers.ForecastHandler
	Hub      *ws.Hub
	Metrics  *metrics.Recorder
	Limiter  *redis.RateLimiter
	Database HealthChecker
	Logger   *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	log := deps.Logger

	// Health check
	r.HandleFunc("/health", healthCheckHandler(deps.Database)).Methods("GET")

	// Prometheus
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	// Report streaming
	if deps.Hub != nil {
		r.Handle("/ws/forecast", deps.Hub).Methods("GET")
	}

	// Report endpoints (rate limited)
	reports := r.NewRoute().Subrouter()
	reports.Use(rateLimitMiddleware(deps.Limiter, redis.ForecastAPIRateLimit, log))
	reports.HandleFunc("/predict", deps.Forecast.Predict).Methods("GET", "OPTIONS")

	api := reports.PathPrefix("/api").Subrouter()
	api.HandleFunc("/forecast/{symbol}", deps.Forecast.GetForecast).Methods("GET", "OPTIONS")
	api.HandleFunc("/forecast/{symbol}/latest", deps.Forecast.GetLatest).Methods("GET", "OPTIONS")

	// Apply middleware
	r.Use(loggingMiddleware(log, deps.Metrics))
	r.Use(recoveryMiddleware(log))
	r.Use(corsMiddleware)

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{
			"status":  "ok",
			"service": "indexcast-api",
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["database"] = err.Error()
			} else {
				body["database"] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
