package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/application/services"
	"github.com/potlock/donation-indexer/internal/domain/entities"
)

// Donation sorting whitelist
var donationSortParams = map[string]bool{
	"donated_at":  true,
	"amount_usd":  true,
	"amount_near": true,
}

// DonationHandler handles HTTP requests for donations
type DonationHandler struct {
	service *services.DonationService
	logger  *zap.Logger
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(service *services.DonationService, logger *zap.Logger) *DonationHandler {
	return &DonationHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the donation routes
func (h *DonationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/donations", h.GetDonations)
	r.Get("/accounts/{accountID}/donations/sent", h.GetSentDonations)
	r.Get("/accounts/{accountID}/donations/received", h.GetReceivedDonations)
}

// GetDonations handles GET /donations
func (h *DonationHandler) GetDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	response, err := h.service.GetDonations(ctx, filter)
	if err != nil {
		h.logger.Error("Failed to get donations", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get donations")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// GetSentDonations handles GET /accounts/{accountID}/donations/sent
func (h *DonationHandler) GetSentDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")

	if !isValidAccountID(accountID) {
		respondError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	response, err := h.service.GetSentDonations(ctx, accountID, filter)
	if err != nil {
		h.logger.Error("Failed to get sent donations", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get donations")
		return
	}
	if response == nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// GetReceivedDonations handles GET /accounts/{accountID}/donations/received
func (h *DonationHandler) GetReceivedDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")

	if !isValidAccountID(accountID) {
		respondError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	response, err := h.service.GetReceivedDonations(ctx, accountID, filter)
	if err != nil {
		h.logger.Error("Failed to get received donations", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get donations")
		return
	}
	if response == nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// parseFilter builds a donation filter from query parameters, writing a
// 400 and returning false on invalid input
func (h *DonationHandler) parseFilter(w http.ResponseWriter, r *http.Request) (entities.DonationFilter, bool) {
	filter := entities.DefaultDonationFilter()
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		dt := entities.DonationType(v)
		if !dt.Valid() {
			respondError(w, http.StatusBadRequest, "Invalid donation type")
			return filter, false
		}
		filter.Type = &dt
	}
	if v := q.Get("from_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid from_time, want RFC3339")
			return filter, false
		}
		filter.FromTime = &t
	}
	if v := q.Get("to_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid to_time, want RFC3339")
			return filter, false
		}
		filter.ToTime = &t
	}
	if v := q.Get("min_amount_usd"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid min_amount_usd")
			return filter, false
		}
		filter.MinAmountUsd = &d
	}
	if v := q.Get("max_amount_usd"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid max_amount_usd")
			return filter, false
		}
		filter.MaxAmountUsd = &d
	}
	if v := q.Get("sort_by"); v != "" {
		if !donationSortParams[v] {
			respondError(w, http.StatusBadRequest, "Invalid sort_by parameter")
			return filter, false
		}
		filter.SortBy = v
	}
	if v := q.Get("sort_order"); v == "asc" || v == "desc" {
		filter.SortOrder = v
	}
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			filter.Limit = l
		}
	}
	if v := q.Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	return filter, true
}
