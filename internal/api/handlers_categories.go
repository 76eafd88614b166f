package api

import (
	"encoding/json"
	"net/http"

	"github.com/savegress/finboard/internal/database"
)

// HandleListCategories handles GET /api/v1/categories
func (h *Handlers) HandleListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.db.ListCategories(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to list categories")
			return
		}

		if categories == nil {
			categories = []*database.Category{}
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"categories": categories,
			"count":      len(categories),
		})
	}
}

// HandleCreateCategory handles POST /api/v1/categories
func (h *Handlers) HandleCreateCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			respondError(w, http.StatusBadRequest, "name is required")
			return
		}

		category, err := h.db.CreateCategory(r.Context(), req.Name, req.Color)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to create category")
			return
		}

		respondJSON(w, http.StatusCreated, category)
	}
}

// HandleListRules handles GET /api/v1/rules. Rules are returned in match
// order, oldest first.
func (h *Handlers) HandleListRules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules, err := h.db.ListRules(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to list rules")
			return
		}

		if rules == nil {
			rules = []database.Rule{}
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"rules": rules,
			"count": len(rules),
		})
	}
}

// HandleCategorySummary handles GET /api/v1/reports/summary
func (h *Handlers) HandleCategorySummary() http.HandlerFunc {
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

		summary, err := h.db.GetCategorySummary(r.Context(), userID, start, end)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to build summary")
			return
		}

		if summary == nil {
			summary = []*database.CategorySummary{}
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"summary":   summary,
			"startDate": start.Format("2006-01-02"),
			"endDate":   end.Format("2006-01-02"),
		})
	}
}
