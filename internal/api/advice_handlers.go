package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/coinpilot/coinpilot/internal/advisor"
	"github.com/coinpilot/coinpilot/internal/database"
	"github.com/coinpilot/coinpilot/internal/models"
)

// adviceTimeout bounds a single pipeline run regardless of transport.
const adviceTimeout = 5 * time.Minute

// AdviceHandler runs the advisory pipeline over HTTP and websocket.
type AdviceHandler struct {
	strategies *database.StrategyRepository
	service    *advisor.Service
	logger     *slog.Logger
}

// NewAdviceHandler creates an advice handler.
func NewAdviceHandler(strategies *database.StrategyRepository, service *advisor.Service, logger *slog.Logger) *AdviceHandler {
	return &AdviceHandler{strategies: strategies, service: service, logger: logger}
}

type adviceResponse struct {
	Result         *models.WorkflowResult `json:"result"`
	Recommendation *models.Recommendation `json:"recommendation,omitempty"`
}

// Advise handles POST /api/strategies/{id}/advise. It blocks until the
// pipeline finishes and returns the full result.
func (h *AdviceHandler) Advise(w http.ResponseWriter, r *http.Request, strategyID string) {
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

	ctx, cancel := context.WithTimeout(r.Context(), adviceTimeout)
	defer cancel()

	result, rec, err := h.service.Advise(ctx, strategy, nil)
	if err != nil {
		h.logger.Error("advice persistence failed", "strategy_id", strategyID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to persist recommendation", "internal_error")
		return
	}

	status := http.StatusOK
	if !result.Success {
		// The pipeline ran but could not produce a decision. The partial
		// result still goes back so the client can show which stage broke.
		status = http.StatusBadGateway
	}
	writeJSON(w, h.logger, status, adviceResponse{Result: result, Recommendation: rec})
}

// AdviseWS handles GET /api/strategies/{id}/advise/ws. It streams progress
// events over a websocket and finishes with the full result.
func (h *AdviceHandler) AdviseWS(w http.ResponseWriter, r *http.Request, strategyID string) {
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

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "strategy_id", strategyID, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected shutdown")

	ctx, cancel := context.WithTimeout(r.Context(), adviceTimeout)
	defer cancel()

	// The sink runs on the pipeline goroutine; events cross to the
	// connection writer through a buffered channel so a slow socket never
	// blocks a stage.
	events := make(chan models.ProgressEvent, 16)
	done := make(chan adviceResponse, 1)

	go func() {
		result, rec, err := h.service.Advise(ctx, strategy, func(event models.ProgressEvent) {
			select {
			case events <- event:
			default:
				h.logger.Warn("progress event dropped", "strategy_id", strategyID, "event", event.Type)
			}
		})
		if err != nil {
			h.logger.Error("advice persistence failed", "strategy_id", strategyID, "error", err)
		}
		close(events)
		done <- adviceResponse{Result: result, Recommendation: rec}
	}()

	for event := range events {
		if err := wsjson.Write(ctx, conn, event); err != nil {
			h.logger.Warn("websocket write failed", "strategy_id", strategyID, "error", err)
			cancel()
			// Drain so the pipeline goroutine can finish.
			for range events {
			}
			break
		}
	}

	response := <-done
	if response.Result != nil {
		if err := wsjson.Write(ctx, conn, map[string]any{
			"type":           "result",
			"result":         response.Result,
			"recommendation": response.Recommendation,
		}); err != nil {
			h.logger.Warn("websocket result write failed", "strategy_id", strategyID, "error", err)
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
}
