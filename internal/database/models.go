package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// Raw record processing statuses. A record moves PENDING -> PROCESSED on
// success or PENDING -> ERROR on a definite application failure. Transient
// failures leave it PENDING so the aggregator's redelivery retries it.
const (
	StatusPending   = "PENDING"
	StatusProcessed = "PROCESSED"
	StatusError     = "ERROR"
)

// Rule kinds. Only substring matching exists today.
const RuleKindContains = "CONTAINS"

// RawRecord is an unprocessed transaction as delivered by the aggregator.
// Immutable except for Status, which only the ingest processor advances.
type RawRecord struct {
	ID              int64           `json:"id"`
	ProviderID      string          `json:"providerId"`
	RawDescription  *string         `json:"rawDescription"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transactionDate"`
	AccountID       *string         `json:"accountId,omitempty"`
	UserID          string          `json:"userId"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Transaction is the normalized, categorized record shown to the user.
type Transaction struct {
	ID                 string          `json:"id"`
	Description        string          `json:"description"`
	CleanedDescription string          `json:"cleanedDescription"`
	Amount             decimal.Decimal `json:"amount"`
	CategoryID         string          `json:"categoryId"`
	Date               time.Time       `json:"date"`
	UserID             string          `json:"userId"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Category is a spending/income label. Categories are global; the fallback
// category referenced by DEFAULT_CATEGORY_ID must always exist.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rule associates a keyword with a category. Keywords are unique; rules are
// global and ordered by creation time, oldest first. That order is the match
// priority for the categorization engine.
type Rule struct {
	ID                    string    `json:"id"`
	Keyword               string    `json:"keyword"`
	CategoryID            string    `json:"categoryId"`
	RuleKind              string    `json:"ruleKind"`
	NormalizedDescription *string   `json:"normalizedDescription,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// BankLink ties an aggregator link to the user who connected it. Webhook
// deliveries only carry the link id; this is how raw records find their owner.
type BankLink struct {
	ID          string    `json:"id"`
	LinkID      string    `json:"linkId"`
	UserID      string    `json:"userId"`
	Institution string    `json:"institution"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CategorySummary is a per-category total over a date range.
type CategorySummary struct {
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
}
