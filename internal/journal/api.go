package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"trade-journal-go/internal/calc"

	"go.uber.org/zap"
)

// APIServer exposes the journal over HTTP. It owns routing and JSON
// encoding only; all trade semantics live in Service.
type APIServer struct {
	server  *http.Server
	service *Service
	logger  *zap.Logger
}

// NewAPIServer creates an APIServer listening on the given port.
func NewAPIServer(service *Service, port int, corsOrigin string, logger *zap.Logger) *APIServer {
	s := &APIServer{
		service: service,
		logger:  logger.Named("api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.healthHandler)

	mux.HandleFunc("GET /api/trades", s.listTradesHandler)
	mux.HandleFunc("POST /api/trades", s.createTradeHandler)
	mux.HandleFunc("GET /api/trades/open", s.openPositionsHandler)
	mux.HandleFunc("GET /api/trades/closed", s.closedTradesHandler)
	mux.HandleFunc("GET /api/trades/{id}", s.getTradeHandler)
	mux.HandleFunc("PUT /api/trades/{id}", s.updateTradeHandler)
	mux.HandleFunc("DELETE /api/trades/{id}", s.deleteTradeHandler)
	mux.HandleFunc("POST /api/trades/{id}/close", s.closeTradeHandler)

	mux.HandleFunc("GET /api/analytics", s.analyticsHandler)
	mux.HandleFunc("GET /api/risk-management", s.getRiskSettingsHandler)
	mux.HandleFunc("PUT /api/risk-management", s.updateRiskSettingsHandler)
	mux.HandleFunc("GET /api/risk-management/open-risk", s.openRiskHandler)

	handler := s.requestIDMiddleware(corsMiddleware(mux, corsOrigin))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// --- handlers ---

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *APIServer) listTradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := s.service.ListTrades()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *APIServer) createTradeHandler(w http.ResponseWriter, r *http.Request) {
	var in CreateTradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	trade, err := s.service.CreateTrade(in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (s *APIServer) getTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	trade, err := s.service.GetTrade(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *APIServer) updateTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var in UpdateTradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	trade, err := s.service.UpdateTrade(id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *APIServer) deleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.service.DeleteTrade(id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Trade deleted successfully"})
}

func (s *APIServer) closeTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var body struct {
		ExitPrice float64 `json:"exitPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	trade, err := s.service.CloseTrade(id, body.ExitPrice)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *APIServer) openPositionsHandler(w http.ResponseWriter, r *http.Request) {
	positions, err := s.service.OpenPositions(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *APIServer) closedTradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := s.service.ClosedTrades()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// analyticsResponse shadows ProfitFactor so an infinite factor (no losing
// trades yet) serializes as null instead of breaking JSON encoding.
type analyticsResponse struct {
	calc.Metrics
	ProfitFactor *float64 `json:"profitFactor"`
}

func (s *APIServer) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.service.Analytics()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := analyticsResponse{Metrics: metrics}
	if !math.IsInf(metrics.ProfitFactor, 0) {
		resp.ProfitFactor = &metrics.ProfitFactor
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) getRiskSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.GetRiskSettings()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *APIServer) updateRiskSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var in UpdateRiskSettingsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settings, err := s.service.UpdateRiskSettings(in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *APIServer) openRiskHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.OpenRisk()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- helpers ---

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return 0, false
	}
	return uint(id), true
}

func (s *APIServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
