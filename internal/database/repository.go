package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateKeyword     = errors.New("rule keyword already exists")
	ErrDuplicateTransaction = errors.New("transaction already exists")
)

// =============================================================================
// Raw Record Repository
// =============================================================================

// CreateRawRecord stores a raw record delivered by the aggregator. The
// provider id is unique; redelivered records are ignored and created=false is
// returned so the webhook handler can skip reprocessing.
func (db *DB) CreateRawRecord(ctx context.Context, r *RawRecord) (bool, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO raw_transactions (provider_id, raw_description, amount, transaction_date, account_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_id) DO NOTHING
		RETURNING id, created_at
	`

	err := db.pool.QueryRow(ctx, query,
		r.ProviderID, r.RawDescription, r.Amount.String(), r.TransactionDate,
		r.AccountID, r.UserID, StatusPending, now,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create raw record: %w", err)
	}

	r.Status = StatusPending
	return true, nil
}

// GetRawRecordByID retrieves a raw record by ID
func (db *DB) GetRawRecordByID(ctx context.Context, id int64) (*RawRecord, error) {
	query := `
		SELECT id, provider_id, raw_description, amount::text, transaction_date, account_id, user_id, status, created_at
		FROM raw_transactions WHERE id = $1
	`

	r := &RawRecord{}
	var amount string
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.ProviderID, &r.RawDescription, &amount, &r.TransactionDate,
		&r.AccountID, &r.UserID, &r.Status, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get raw record: %w", err)
	}

	r.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse raw record amount: %w", err)
	}

	return r, nil
}

// GetRawRecordByProviderID retrieves a raw record by its aggregator-assigned
// id. Used on webhook redelivery to find the stored record for a provider id
// that already exists.
func (db *DB) GetRawRecordByProviderID(ctx context.Context, providerID string) (*RawRecord, error) {
	query := `
		SELECT id, provider_id, raw_description, amount::text, transaction_date, account_id, user_id, status, created_at
		FROM raw_transactions WHERE provider_id = $1
	`

	r := &RawRecord{}
	var amount string
	err := db.pool.QueryRow(ctx, query, providerID).Scan(
		&r.ID, &r.ProviderID, &r.RawDescription, &amount, &r.TransactionDate,
		&r.AccountID, &r.UserID, &r.Status, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get raw record: %w", err)
	}

	r.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse raw record amount: %w", err)
	}

	return r, nil
}

// ListRawRecordsByStatus retrieves raw records in a given processing status,
// oldest first. Used operationally to inspect stuck or failed records.
func (db *DB) ListRawRecordsByStatus(ctx context.Context, status string, limit int) ([]*RawRecord, error) {
	query := `
		SELECT id, provider_id, raw_description, amount::text, transaction_date, account_id, user_id, status, created_at
		FROM raw_transactions WHERE status = $1 ORDER BY created_at ASC LIMIT $2
	`

	rows, err := db.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw records: %w", err)
	}
	defer rows.Close()

	var records []*RawRecord
	for rows.Next() {
		r := &RawRecord{}
		var amount string
		if err := rows.Scan(&r.ID, &r.ProviderID, &r.RawDescription, &amount, &r.TransactionDate,
			&r.AccountID, &r.UserID, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse raw record amount: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// UpdateRawRecordStatus advances a raw record's processing status
func (db *DB) UpdateRawRecordStatus(ctx context.Context, id int64, status string) error {
	tag, err := db.pool.Exec(ctx, `UPDATE raw_transactions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update raw record status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Transaction Repository
// =============================================================================

// GetTransactionByID retrieves a transaction by ID
func (db *DB) GetTransactionByID(ctx context.Context, id string) (*Transaction, error) {
	query := `
		SELECT id, description, cleaned_description, amount::text, category_id, transaction_date, user_id, created_at, updated_at
		FROM transactions WHERE id = $1
	`
	return db.scanTransaction(db.pool.QueryRow(ctx, query, id))
}

// GetTransactionByUserAndDescription looks up a transaction by its dedup key.
// Used as the pre-check before inserting; the unique constraint on
// (user_id, description) remains the authoritative guard.
func (db *DB) GetTransactionByUserAndDescription(ctx context.Context, userID, description string) (*Transaction, error) {
	query := `
		SELECT id, description, cleaned_description, amount::text, category_id, transaction_date, user_id, created_at, updated_at
		FROM transactions WHERE user_id = $1 AND description = $2
	`
	return db.scanTransaction(db.pool.QueryRow(ctx, query, userID, description))
}

func (db *DB) scanTransaction(row pgx.Row) (*Transaction, error) {
	t := &Transaction{}
	var amount string
	err := row.Scan(
		&t.ID, &t.Description, &t.CleanedDescription, &amount, &t.CategoryID,
		&t.Date, &t.UserID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction amount: %w", err)
	}

	return t, nil
}

// InsertTransaction persists a normalized transaction. A unique violation on
// the dedup key surfaces as ErrDuplicateTransaction, which callers treat as
// "already processed" rather than a failure.
func (db *DB) InsertTransaction(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions (id, description, cleaned_description, amount, category_id, transaction_date, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := db.pool.Exec(ctx, query,
		t.ID, t.Description, t.CleanedDescription, t.Amount.String(), t.CategoryID,
		t.Date, t.UserID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// UpdateTransactionCategory reassigns a transaction's category
func (db *DB) UpdateTransactionCategory(ctx context.Context, id, categoryID string) error {
	query := `UPDATE transactions SET category_id = $2, updated_at = $3 WHERE id = $1`
	tag, err := db.pool.Exec(ctx, query, id, categoryID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTransactionsByDateRange retrieves a user's transactions within a range,
// newest first
func (db *DB) ListTransactionsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]*Transaction, error) {
	query := `
		SELECT id, description, cleaned_description, amount::text, category_id, transaction_date, user_id, created_at, updated_at
		FROM transactions
		WHERE user_id = $1 AND transaction_date >= $2 AND transaction_date <= $3
		ORDER BY transaction_date DESC, created_at DESC
	`

	rows, err := db.pool.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		t := &Transaction{}
		var amount string
		if err := rows.Scan(&t.ID, &t.Description, &t.CleanedDescription, &amount, &t.CategoryID,
			&t.Date, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse transaction amount: %w", err)
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

// =============================================================================
// Rule Repository
// =============================================================================

// GetRuleByKeyword retrieves a rule by its exact keyword
func (db *DB) GetRuleByKeyword(ctx context.Context, keyword string) (*Rule, error) {
	query := `
		SELECT id, keyword, category_id, rule_kind, normalized_description, created_at, updated_at
		FROM categorization_rules WHERE keyword = $1
	`

	rule := &Rule{}
	err := db.pool.QueryRow(ctx, query, keyword).Scan(
		&rule.ID, &rule.Keyword, &rule.CategoryID, &rule.RuleKind,
		&rule.NormalizedDescription, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// CreateRule persists a new categorization rule. Keywords are unique; a
// concurrent create for the same keyword returns ErrDuplicateKeyword and the
// existing rule wins.
func (db *DB) CreateRule(ctx context.Context, keyword, categoryID, ruleKind string) (*Rule, error) {
	id := generateID("rule")
	now := time.Now().UTC()

	query := `
		INSERT INTO categorization_rules (id, keyword, category_id, rule_kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, keyword, category_id, rule_kind, normalized_description, created_at, updated_at
	`

	rule := &Rule{}
	err := db.pool.QueryRow(ctx, query, id, keyword, categoryID, ruleKind, now).Scan(
		&rule.ID, &rule.Keyword, &rule.CategoryID, &rule.RuleKind,
		&rule.NormalizedDescription, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKeyword
		}
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	return rule, nil
}

// ListRules retrieves all rules in match-priority order: creation time
// ascending, id as tie-break. The categorization engine is first-match-wins,
// so this ordering is part of the store's contract.
func (db *DB) ListRules(ctx context.Context) ([]Rule, error) {
	query := `
		SELECT id, keyword, category_id, rule_kind, normalized_description, created_at, updated_at
		FROM categorization_rules ORDER BY created_at ASC, id ASC
	`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.Keyword, &r.CategoryID, &r.RuleKind,
			&r.NormalizedDescription, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// =============================================================================
// Category Repository
// =============================================================================

// GetCategoryByID retrieves a category by ID
func (db *DB) GetCategoryByID(ctx context.Context, id string) (*Category, error) {
	query := `SELECT id, name, color, created_at, updated_at FROM categories WHERE id = $1`

	c := &Category{}
	err := db.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return c, nil
}

// ListCategories retrieves all categories ordered by name
func (db *DB) ListCategories(ctx context.Context) ([]*Category, error) {
	query := `SELECT id, name, color, created_at, updated_at FROM categories ORDER BY name ASC`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// CreateCategory creates a new category
func (db *DB) CreateCategory(ctx context.Context, name, color string) (*Category, error) {
	id := generateID("cat")
	now := time.Now().UTC()

	query := `
		INSERT INTO categories (id, name, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, name, color, created_at, updated_at
	`

	c := &Category{}
	err := db.pool.QueryRow(ctx, query, id, name, color, now).Scan(
		&c.ID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return c, nil
}

// =============================================================================
// Bank Link Repository
// =============================================================================

// UpsertBankLink registers an aggregator link for a user. Re-registering the
// same link updates the owner.
func (db *DB) UpsertBankLink(ctx context.Context, linkID, userID, institution string) (*BankLink, error) {
	id := generateID("lnk")
	now := time.Now().UTC()

	query := `
		INSERT INTO bank_links (id, link_id, user_id, institution, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (link_id) DO UPDATE SET user_id = $3, institution = $4
		RETURNING id, link_id, user_id, institution, created_at
	`

	l := &BankLink{}
	err := db.pool.QueryRow(ctx, query, id, linkID, userID, institution, now).Scan(
		&l.ID, &l.LinkID, &l.UserID, &l.Institution, &l.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert bank link: %w", err)
	}

	return l, nil
}

// GetUserIDByLink resolves the owner of an aggregator link
func (db *DB) GetUserIDByLink(ctx context.Context, linkID string) (string, error) {
	query := `SELECT user_id FROM bank_links WHERE link_id = $1`

	var userID string
	err := db.pool.QueryRow(ctx, query, linkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve bank link: %w", err)
	}

	return userID, nil
}

// =============================================================================
// Report Repository
// =============================================================================

// GetCategorySummary aggregates a user's transactions per category over a
// date range
func (db *DB) GetCategorySummary(ctx context.Context, userID string, start, end time.Time) ([]*CategorySummary, error) {
	query := `
		SELECT t.category_id, c.name, SUM(t.amount)::text, COUNT(*)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.transaction_date >= $2 AND t.transaction_date <= $3
		GROUP BY t.category_id, c.name
		ORDER BY SUM(t.amount) ASC
	`

	rows, err := db.pool.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get category summary: %w", err)
	}
	defer rows.Close()

	var summaries []*CategorySummary
	for rows.Next() {
		s := &CategorySummary{}
		var total string
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &total, &s.Count); err != nil {
			return nil, err
		}
		if s.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("failed to parse summary total: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// =============================================================================
// Helper functions
// =============================================================================

func generateID(prefix string) string {
	b := make([]byte, 12)
	rand.Read(b)
	return prefix + "_" + hex.EncodeToString(b)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
