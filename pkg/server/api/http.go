// Package api exposes the oracle's read and operator endpoints over HTTP,
// plus an optional WebSocket stream of accepted updates.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/logging"
	"tc.com/consensus-oracle/pkg/oracle/alert"
	"tc.com/consensus-oracle/pkg/oracle/controller"
)

// Server represents the HTTP API server.
type Server struct {
	addr   string
	ctrl   *controller.Controller
	server *http.Server
	logger *logging.Logger
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, ctrl *controller.Controller, logger *logging.Logger) *Server {
	return &Server{
		addr:   addr,
		ctrl:   ctrl,
		logger: logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/convert", s.handleConvert)
	mux.HandleFunc("/v1/history", s.handleHistory)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/alerts", s.handleAlerts)
	mux.HandleFunc("/v1/override", s.handleOverride)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePrice handles /v1/price. Serves the last accepted consensus result,
// possibly stale; 404 only before the first accepted cycle.
func (s *Server) handlePrice(w http.ResponseWriter, _ *http.Request) {
	result := s.ctrl.CurrentPrices()
	if result == nil {
		s.sendError(w, http.StatusNotFound, "no price data available yet")
		return
	}
	s.sendJSON(w, result)
}

// handleConvert handles /v1/convert?amount=N.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	amountParam := r.URL.Query().Get("amount")
	if amountParam == "" {
		s.sendError(w, http.StatusBadRequest, "amount parameter is required")
		return
	}

	amount, err := decimal.NewFromString(amountParam)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid amount: "+amountParam)
		return
	}

	conversion, err := s.ctrl.Convert(amount)
	switch {
	case errors.Is(err, controller.ErrInvalidAmount):
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, controller.ErrNoPriceData):
		s.sendError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.sendJSON(w, conversion)
}

// handleHistory handles /v1/history?since=24h&resolution=raw|hourly.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	since := 24 * time.Hour
	if sinceParam := r.URL.Query().Get("since"); sinceParam != "" {
		d, err := time.ParseDuration(sinceParam)
		if err != nil || d <= 0 {
			s.sendError(w, http.StatusBadRequest, "invalid since duration: "+sinceParam)
			return
		}
		since = d
	}

	switch r.URL.Query().Get("resolution") {
	case "", "raw":
		s.sendJSON(w, s.ctrl.History(since))
	case "hourly":
		s.sendJSON(w, s.ctrl.HistoryHourly(since))
	default:
		s.sendError(w, http.StatusBadRequest, "resolution must be 'raw' or 'hourly'")
	}
}

// handleStatus handles /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, s.ctrl.Status())
}

// alertRequest is the POST body for /v1/alerts.
type alertRequest struct {
	Thresholds   map[string]alert.Threshold `json:"thresholds"`
	NotifyTarget string                     `json:"notify_target"`
}

// handleAlerts handles POST /v1/alerts.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rule, err := s.ctrl.CreateAlertRule(req.Thresholds, req.NotifyTarget)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	s.sendJSON(w, rule)
}

// overrideRequest is the POST body for /v1/override.
type overrideRequest struct {
	Prices map[string]decimal.Decimal `json:"prices"`
	Reason string                     `json:"reason"`
}

// handleOverride handles POST /v1/override. Operator-only side door; the
// value still passes plausibility validation and the full accept path.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Prices) == 0 {
		s.sendError(w, http.StatusBadRequest, "prices are required")
		return
	}
	if req.Reason == "" {
		s.sendError(w, http.StatusBadRequest, "reason is required")
		return
	}

	result, err := s.ctrl.ForceOverride(r.Context(), req.Prices, req.Reason)
	if err != nil {
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.sendJSON(w, result)
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// sendError sends a JSON error response.
func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
