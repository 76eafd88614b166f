// Package api exposes the HTTP surface: the Belvo webhook intake and the
// authenticated dashboard endpoints.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/savegress/finboard/internal/belvo"
	"github.com/savegress/finboard/internal/categorizer"
	"github.com/savegress/finboard/internal/database"
	"github.com/savegress/finboard/internal/ingest"
)

// DB is the persistence surface the handlers need
type DB interface {
	CreateRawRecord(ctx context.Context, r *database.RawRecord) (bool, error)
	GetRawRecordByID(ctx context.Context, id int64) (*database.RawRecord, error)
	GetRawRecordByProviderID(ctx context.Context, providerID string) (*database.RawRecord, error)
	ListRawRecordsByStatus(ctx context.Context, status string, limit int) ([]*database.RawRecord, error)
	GetUserIDByLink(ctx context.Context, linkID string) (string, error)
	UpsertBankLink(ctx context.Context, linkID, userID, institution string) (*database.BankLink, error)
	GetTransactionByID(ctx context.Context, id string) (*database.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, categoryID string) error
	ListTransactionsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]*database.Transaction, error)
	GetCategoryByID(ctx context.Context, id string) (*database.Category, error)
	ListCategories(ctx context.Context) ([]*database.Category, error)
	CreateCategory(ctx context.Context, name, color string) (*database.Category, error)
	ListRules(ctx context.Context) ([]database.Rule, error)
	GetCategorySummary(ctx context.Context, userID string, start, end time.Time) ([]*database.CategorySummary, error)
}

// RuleCache invalidates the cached rule list after the rule set changes
type RuleCache interface {
	InvalidateRules(ctx context.Context)
}

// Aggregator is the Belvo surface the handlers need
type Aggregator interface {
	VerifyWebhook(payload []byte, signature string) (*belvo.WebhookEvent, error)
	CreateWidgetToken(ctx context.Context) (*belvo.WidgetToken, error)
}

// Handlers holds the dependencies shared by all endpoint handlers
type Handlers struct {
	db         DB
	processor  *ingest.Processor
	learner    *categorizer.Learner
	ruleCache  RuleCache
	aggregator Aggregator
}

// NewHandlers creates the handler set
func NewHandlers(db DB, processor *ingest.Processor, learner *categorizer.Learner, ruleCache RuleCache, aggregator Aggregator) *Handlers {
	return &Handlers{
		db:         db,
		processor:  processor,
		learner:    learner,
		ruleCache:  ruleCache,
		aggregator: aggregator,
	}
}

// HandleHealth handles GET /health
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "finboard-api",
			"version": "0.1.0",
		})
	}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// parseDateRange reads startDate/endDate query params (YYYY-MM-DD). Both
// default to the current month.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	if s := r.URL.Query().Get("startDate"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if s := r.URL.Query().Get("endDate"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}

	return start, end, nil
}
