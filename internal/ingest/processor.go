// Package ingest converts raw aggregator records into normalized, categorized
// transactions, exactly once per record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/savegress/finboard/internal/categorizer"
	"github.com/savegress/finboard/internal/database"
	"github.com/savegress/finboard/internal/normalizer"
)

var (
	// ErrDefaultCategoryMissing means the configured fallback category does
	// not exist. This is an operator-fixable precondition; processing aborts
	// before any write and the record stays PENDING for redelivery.
	ErrDefaultCategoryMissing = errors.New("default category does not exist")

	// ErrInvalidRecord marks a raw record that is missing required fields.
	// The record moves to ERROR and is not retried.
	ErrInvalidRecord = errors.New("invalid raw record")
)

// Processing outcomes.
const (
	ActionProcessed = "processed"
	ActionSkipped   = "skipped"
)

// Store is the persistence surface the processor needs.
type Store interface {
	GetCategoryByID(ctx context.Context, id string) (*database.Category, error)
	GetTransactionByUserAndDescription(ctx context.Context, userID, description string) (*database.Transaction, error)
	InsertTransaction(ctx context.Context, t *database.Transaction) error
	UpdateRawRecordStatus(ctx context.Context, id int64, status string) error
}

// RuleSource loads the ordered rule list.
type RuleSource interface {
	ListRules(ctx context.Context) ([]database.Rule, error)
}

// Processor is the ingestion orchestrator. Each invocation handles one raw
// record; invocations for different records are independent and may run
// concurrently, sharing no state beyond the store.
type Processor struct {
	store  Store
	rules  RuleSource
	engine *categorizer.Engine
}

// NewProcessor creates an ingestion processor.
func NewProcessor(store Store, rules RuleSource, engine *categorizer.Engine) *Processor {
	return &Processor{store: store, rules: rules, engine: engine}
}

// Result describes the outcome of processing one raw record.
type Result struct {
	Action             string `json:"action"`
	TransactionID      string `json:"transactionId"`
	CategoryID         string `json:"categoryId,omitempty"`
	CleanedDescription string `json:"cleanedDescription,omitempty"`
}

// Process converts one raw record into one transaction.
//
// Status bookkeeping: success marks the record PROCESSED, a definite
// application failure marks it ERROR, and transient failures (timeouts,
// unreachable store, missing fallback category) leave it PENDING so the
// aggregator's at-least-once redelivery retries it. Duplicate delivery is a
// normal skipped outcome, decided first by a pre-check and authoritatively by
// the dedup unique constraint on insert.
func (p *Processor) Process(ctx context.Context, raw *database.RawRecord) (*Result, error) {
	if err := validateRecord(raw); err != nil {
		p.markStatus(raw.ID, database.StatusError)
		return nil, err
	}

	// Precondition check before any write: a missing fallback category is a
	// system misconfiguration, not a per-record failure.
	if _, err := p.store.GetCategoryByID(ctx, p.engine.DefaultCategoryID()); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrDefaultCategoryMissing, p.engine.DefaultCategoryID())
		}
		return nil, fmt.Errorf("failed to verify default category: %w", err)
	}

	description := recordDescription(raw)

	// Idempotence pre-check for redelivered records.
	existing, err := p.store.GetTransactionByUserAndDescription(ctx, raw.UserID, description)
	if err == nil {
		return &Result{Action: ActionSkipped, TransactionID: existing.ID}, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing transaction: %w", err)
	}

	cleaned := normalizer.Clean(description)

	rules, err := p.rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	categorized := p.engine.Categorize(cleaned, rules)

	now := time.Now().UTC()
	txn := &database.Transaction{
		ID:                 uuid.NewString(),
		Description:        description,
		CleanedDescription: categorized.FinalDescription,
		Amount:             raw.Amount,
		CategoryID:         categorized.CategoryID,
		Date:               raw.TransactionDate,
		UserID:             raw.UserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := p.store.InsertTransaction(ctx, txn); err != nil {
		if errors.Is(err, database.ErrDuplicateTransaction) {
			// Lost a race with a concurrent delivery of the same record; the
			// constraint is the arbiter and the other invocation won.
			return &Result{Action: ActionSkipped}, nil
		}
		if isTransient(ctx, err) {
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
		p.markStatus(raw.ID, database.StatusError)
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	// The transaction exists; a failed status update is an operational
	// nuisance, not an ingestion failure.
	if err := p.store.UpdateRawRecordStatus(ctx, raw.ID, database.StatusProcessed); err != nil {
		log.Printf("ingest: raw record %d processed but status update failed: %v", raw.ID, err)
	}

	return &Result{
		Action:             ActionProcessed,
		TransactionID:      txn.ID,
		CategoryID:         txn.CategoryID,
		CleanedDescription: txn.CleanedDescription,
	}, nil
}

func validateRecord(raw *database.RawRecord) error {
	switch {
	case raw.ProviderID == "":
		return fmt.Errorf("%w: missing provider id", ErrInvalidRecord)
	case raw.UserID == "":
		return fmt.Errorf("%w: missing user id", ErrInvalidRecord)
	case raw.TransactionDate.IsZero():
		return fmt.Errorf("%w: missing transaction date", ErrInvalidRecord)
	}
	return nil
}

// recordDescription is the dedup key: the raw description when the bank sent
// one, otherwise a stable placeholder derived from the provider id.
func recordDescription(raw *database.RawRecord) string {
	if raw.RawDescription != nil && *raw.RawDescription != "" {
		return *raw.RawDescription
	}
	return fmt.Sprintf("Transaction %s", raw.ProviderID)
}

// markStatus is best-effort: status bookkeeping after a definite failure must
// not mask the original error.
func (p *Processor) markStatus(id int64, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.store.UpdateRawRecordStatus(ctx, id, status); err != nil {
		log.Printf("ingest: failed to mark raw record %d as %s: %v", id, status, err)
	}
}

// isTransient reports whether a failure should leave the record PENDING for
// redelivery instead of marking it ERROR.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
