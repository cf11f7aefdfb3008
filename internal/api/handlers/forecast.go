package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/forecast"
	"github.com/wonny/indexcast/pkg/logger"
)

// ForecastService 리포트 생성/조회
type ForecastService interface {
	Forecast(ctx context.Context, symbol string) ([]byte, error)
	Latest(ctx context.Context, symbol string) (*forecast.StoredRun, error)
}

// ForecastHandler handles forecast API endpoints
// ⭐ SSOT: Forecast API 핸들러는 이 구조체에서만
type ForecastHandler struct {
	service       ForecastService
	defaultSymbol string
	logger        *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(service ForecastService, defaultSymbol string, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{
		service:       service,
		defaultSymbol: defaultSymbol,
		logger:        log,
	}
}

// Predict returns the report for the default symbol
// GET /predict?symbol=^GSPC
func (h *ForecastHandler) Predict(w http.ResponseWriter, r *http.Request) {
	symbol := contracts.CanonicalSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		symbol = h.defaultSymbol
	}
	h.serveForecast(w, r, symbol)
}

// GetForecast returns the report for a symbol
// GET /api/forecast/{symbol}
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	symbol := contracts.CanonicalSymbol(mux.Vars(r)["symbol"])
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	h.serveForecast(w, r, symbol)
}

// GetLatest returns the last archived run
// GET /api/forecast/{symbol}/latest
func (h *ForecastHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	symbol := contracts.CanonicalSymbol(mux.Vars(r)["symbol"])
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	run, err := h.service.Latest(r.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).Symbol(symbol).Warn("Failed to get latest run")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func (h *ForecastHandler) serveForecast(w http.ResponseWriter, r *http.Request, symbol string) {
	data, err := h.service.Forecast(r.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": symbol,
			"status": StatusFor(err),
		}).Error("Failed to build forecast")
		respondDomainError(w, err)
		return
	}

	respondRaw(w, http.StatusOK, data)
}
