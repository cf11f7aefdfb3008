package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/forecast"
)

// ErrorResponse 오류 응답 본문
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondRaw writes pre-encoded JSON as-is so cached reports stay byte-identical
func respondRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondDomainError maps pipeline errors to HTTP status codes
func respondDomainError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	kind := contracts.ErrorKind(err)
	if status == http.StatusNotFound || status == http.StatusServiceUnavailable {
		kind = ""
	}
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

// StatusFor returns the HTTP status for a forecast error
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case contracts.IsDataShapeError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contracts.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, forecast.ErrNoRuns):
		return http.StatusNotFound
	case errors.Is(err, forecast.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
