package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coinpilot/coinpilot/internal/auth"
	"github.com/coinpilot/coinpilot/internal/database"
	"github.com/coinpilot/coinpilot/internal/models"
)

// StrategyHandler handles strategy CRUD plus the per-strategy notification
// and recommendation feeds.
type StrategyHandler struct {
	strategies      *database.StrategyRepository
	recommendations *database.RecommendationRepository
	notifications   *database.NotificationRepository
	logger          *slog.Logger
}

// NewStrategyHandler creates a strategy handler.
func NewStrategyHandler(
	strategies *database.StrategyRepository,
	recommendations *database.RecommendationRepository,
	notifications *database.NotificationRepository,
	logger *slog.Logger,
) *StrategyHandler {
	return &StrategyHandler{
		strategies:      strategies,
		recommendations: recommendations,
		notifications:   notifications,
		logger:          logger,
	}
}

// requireUser extracts the authenticated user ID or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, logger, http.StatusUnauthorized, "authentication required", "validation_error")
	}
	return userID, ok
}

// List handles GET /api/strategies.
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	strategies, err := h.strategies.ListStrategies(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list strategies", "user_id", userID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list strategies", "internal_error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, strategies)
}

// Create handles POST /api/strategies.
func (h *StrategyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req models.CreateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_error")
		return
	}

	strategy, err := h.strategies.CreateStrategy(r.Context(), userID, req)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	h.logger.Info("strategy created", "strategy_id", strategy.ID, "user_id", userID)
	writeJSON(w, h.logger, http.StatusCreated, strategy)
}

// Get handles GET /api/strategies/{id}.
func (h *StrategyHandler) Get(w http.ResponseWriter, r *http.Request, strategyID string) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	strategy, err := h.strategies.GetStrategy(r.Context(), strategyID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "strategy not found", "validation_error")
			return
		}
		h.logger.Error("failed to get strategy", "strategy_id", strategyID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to get strategy", "internal_error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, strategy)
}

// Update handles PUT /api/strategies/{id}.
func (h *StrategyHandler) Update(w http.ResponseWriter, r *http.Request, strategyID string) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req models.CreateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_error")
		return
	}

	strategy, err := h.strategies.UpdateStrategy(r.Context(), strategyID, userID, req)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "strategy not found", "validation_error")
			return
		}
		writeError(w, h.logger, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, strategy)
}

// Delete handles DELETE /api/strategies/{id}.
func (h *StrategyHandler) Delete(w http.ResponseWriter, r *http.Request, strategyID string) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.strategies.DeleteStrategy(r.Context(), strategyID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "strategy not found", "validation_error")
			return
		}
		h.logger.Error("failed to delete strategy", "strategy_id", strategyID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to delete strategy", "internal_error")
		return
	}

	h.logger.Info("strategy deleted", "strategy_id", strategyID, "user_id", userID)
	writeJSON(w, h.logger, http.StatusOK, map[string]bool{"success": true})
}

// Recommendations handles GET /api/strategies/{id}/recommendations.
func (h *StrategyHandler) Recommendations(w http.ResponseWriter, r *http.Request, strategyID string) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if !h.ownsStrategy(w, r, strategyID, userID) {
		return
	}

	recs, err := h.recommendations.ListByStrategy(r.Context(), strategyID, queryLimit(r))
	if err != nil {
		h.logger.Error("failed to list recommendations", "strategy_id", strategyID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list recommendations", "internal_error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, recs)
}

// Notifications handles GET /api/strategies/{id}/notifications.
func (h *StrategyHandler) Notifications(w http.ResponseWriter, r *http.Request, strategyID string) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if !h.ownsStrategy(w, r, strategyID, userID) {
		return
	}

	notifications, err := h.notifications.ListByStrategy(r.Context(), strategyID, queryLimit(r))
	if err != nil {
		h.logger.Error("failed to list notifications", "strategy_id", strategyID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list notifications", "internal_error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, notifications)
}

// MarkNotificationRead handles POST /api/notifications/{id}/read.
func (h *StrategyHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request, notificationID string) {
	if _, ok := requireUser(w, r, h.logger); !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), notificationID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "notification not found", "validation_error")
			return
		}
		h.logger.Error("failed to mark notification read", "notification_id", notificationID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to mark notification read", "internal_error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]bool{"success": true})
}

// ownsStrategy verifies the strategy belongs to the caller, writing the
// error response when it does not.
func (h *StrategyHandler) ownsStrategy(w http.ResponseWriter, r *http.Request, strategyID, userID string) bool {
	_, err := h.strategies.GetStrategy(r.Context(), strategyID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "strategy not found", "validation_error")
		} else {
			h.logger.Error("failed to get strategy", "strategy_id", strategyID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to get strategy", "internal_error")
		}
		return false
	}
	return true
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}
