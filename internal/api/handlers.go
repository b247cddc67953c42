// Package api implements the HTTP surface: auth, strategy CRUD,
// notification and recommendation feeds, and the advisory endpoints.
package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coinpilot/coinpilot/internal/database"
)

// errorResponse is the uniform error envelope. Provider error bodies are
// never forwarded verbatim.
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message, errorType string) {
	writeJSON(w, logger, status, errorResponse{Success: false, Error: message, ErrorType: errorType})
}

// HealthHandler reports service and database health.
type HealthHandler struct {
	db        *sql.DB
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db *sql.DB, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger, startTime: time.Now()}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ok"
	httpStatus := http.StatusOK
	if err := database.HealthCheck(r.Context(), h.db); err != nil {
		h.logger.Error("database health check failed", "error", err)
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, httpStatus, map[string]any{
		"status":         status,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"database":       database.Stats(h.db),
	})
}
