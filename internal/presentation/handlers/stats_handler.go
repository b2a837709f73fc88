package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/application/services"
)

// StatsHandler handles HTTP requests for platform statistics
type StatsHandler struct {
	service *services.StatsService
	logger  *zap.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service *services.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the stats routes
func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.GetGlobalStats)
	r.Get("/stats/leaderboard", h.GetLeaderboard)
}

// GetGlobalStats handles GET /stats
func (h *StatsHandler) GetGlobalStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response, err := h.service.GetGlobalStats(ctx)
	if err != nil {
		h.logger.Error("Failed to get global stats", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// GetLeaderboard handles GET /stats/leaderboard
func (h *StatsHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	by := r.URL.Query().Get("by")
	switch by {
	case "", services.LeaderboardByDonated, services.LeaderboardByReceived:
	default:
		respondError(w, http.StatusBadRequest, "Invalid leaderboard dimension")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	response, err := h.service.GetLeaderboard(ctx, by, limit)
	if err != nil {
		h.logger.Error("Failed to get leaderboard", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get leaderboard")
		return
	}

	respondJSON(w, http.StatusOK, response)
}
