package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/savegress/finboard/internal/database"
)

// HandleListTransactions handles GET /api/v1/transactions
func (h *Handlers) HandleListTransactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "Missing user context")
			return
		}

		start, end, err := parseDateRange(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
			return
		}

		transactions, err := h.db.ListTransactionsByDateRange(r.Context(), userID, start, end)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to list transactions")
			return
		}

		if transactions == nil {
			transactions = []*database.Transaction{}
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
			"startDate":    start.Format("2006-01-02"),
			"endDate":      end.Format("2006-01-02"),
		})
	}
}

// HandleRecategorize handles PATCH /api/v1/transactions/{id}/categorize.
//
// The category change is the user correcting the pipeline, so beyond updating
// the one transaction it feeds the rule learner. A learner failure never fails
// the request: the correction itself already succeeded.
func (h *Handlers) HandleRecategorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "Missing user context")
			return
		}

		id := chi.URLParam(r, "id")

		var req struct {
			CategoryID string `json:"categoryId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CategoryID == "" {
			respondError(w, http.StatusBadRequest, "categoryId is required")
			return
		}

		if _, err := h.db.GetCategoryByID(r.Context(), req.CategoryID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(w, http.StatusBadRequest, "Unknown category")
				return
			}
			respondError(w, http.StatusInternalServerError, "Failed to verify category")
			return
		}

		txn, err := h.db.GetTransactionByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Transaction not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "Failed to load transaction")
			return
		}
		if txn.UserID != userID {
			respondError(w, http.StatusNotFound, "Transaction not found")
			return
		}

		if err := h.db.UpdateTransactionCategory(r.Context(), id, req.CategoryID); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to update category")
			return
		}

		if err := h.learner.LearnFromManualCategorization(r.Context(), txn, req.CategoryID); err != nil {
			log.Printf("api: rule learning after recategorization of %s failed: %v", id, err)
		} else {
			h.ruleCache.InvalidateRules(r.Context())
		}

		txn.CategoryID = req.CategoryID
		respondJSON(w, http.StatusOK, txn)
	}
}
