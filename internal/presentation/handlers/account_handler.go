package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/application/services"
)

// Account list sorting whitelist, query value to column
var accountSortParams = map[string]string{
	"total_donated_usd":  "total_donated_usd",
	"total_received_usd": "total_received_usd",
	"last_activity_at":   "last_activity_at",
	"id":                 "id",
}

// AccountHandler handles HTTP requests for accounts
type AccountHandler struct {
	service *services.AccountService
	logger  *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service *services.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the account routes
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts", h.GetAccounts)
	r.Get("/accounts/{accountID}", h.GetAccount)
	r.Get("/accounts/{accountID}/referrals", h.GetReferrals)
}

// GetAccounts handles GET /accounts
func (h *AccountHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	offset := 0
	sortBy := "total_donated_usd"
	sortOrder := "desc"

	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			offset = o
		}
	}
	if v := r.URL.Query().Get("sort_by"); v != "" {
		col, ok := accountSortParams[v]
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid sort_by parameter")
			return
		}
		sortBy = col
	}
	if v := r.URL.Query().Get("sort_order"); v == "asc" || v == "desc" {
		sortOrder = v
	}

	response, err := h.service.GetAccounts(ctx, limit, offset, sortBy, sortOrder)
	if err != nil {
		h.logger.Error("Failed to get accounts", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get accounts")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// GetAccount handles GET /accounts/{accountID}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")

	if !isValidAccountID(accountID) {
		respondError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	response, err := h.service.GetAccount(ctx, accountID)
	if err != nil {
		h.logger.Error("Failed to get account", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get account")
		return
	}
	if response == nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// GetReferrals handles GET /accounts/{accountID}/referrals
func (h *AccountHandler) GetReferrals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")

	if !isValidAccountID(accountID) {
		respondError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	response, err := h.service.GetReferralSummary(ctx, accountID)
	if err != nil {
		h.logger.Error("Failed to get referral summary", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get referral summary")
		return
	}
	if response == nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}

	respondJSON(w, http.StatusOK, response)
}
