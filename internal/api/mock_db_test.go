package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/savegress/finboard/internal/database"
)

// mockDB implements DB plus the ingest and learner store interfaces, with
// targeted error injection.
type mockDB struct {
	categories   map[string]*database.Category
	transactions map[string]*database.Transaction // by transaction id
	rawRecords   map[string]*database.RawRecord   // by provider id
	statuses     map[int64]string
	rules        []database.Rule
	links        map[string]string // link id -> user id
	summaries    []*database.CategorySummary

	nextRawID     int64
	invalidations int

	listTxnErr     error
	updateCatErr   error
	ruleLookupErr  error
	createRuleErr  error
	resolveLinkErr error
}

func newMockDB() *mockDB {
	return &mockDB{
		categories: map[string]*database.Category{
			"cat_uncategorized": {ID: "cat_uncategorized", Name: "Other"},
		},
		transactions: make(map[string]*database.Transaction),
		rawRecords:   make(map[string]*database.RawRecord),
		statuses:     make(map[int64]string),
		links:        make(map[string]string),
	}
}

func (m *mockDB) CreateRawRecord(ctx context.Context, r *database.RawRecord) (bool, error) {
	if _, ok := m.rawRecords[r.ProviderID]; ok {
		return false, nil
	}
	m.nextRawID++
	r.ID = m.nextRawID
	m.rawRecords[r.ProviderID] = r
	return true, nil
}

func (m *mockDB) GetRawRecordByID(ctx context.Context, id int64) (*database.RawRecord, error) {
	for _, r := range m.rawRecords {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockDB) GetRawRecordByProviderID(ctx context.Context, providerID string) (*database.RawRecord, error) {
	r, ok := m.rawRecords[providerID]
	if !ok {
		return nil, database.ErrNotFound
	}
	if s, ok := m.statuses[r.ID]; ok {
		r.Status = s
	}
	return r, nil
}

func (m *mockDB) ListRawRecordsByStatus(ctx context.Context, status string, limit int) ([]*database.RawRecord, error) {
	var out []*database.RawRecord
	for _, r := range m.rawRecords {
		if len(out) == limit {
			break
		}
		if m.statuses[r.ID] == status || (m.statuses[r.ID] == "" && r.Status == status) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockDB) GetUserIDByLink(ctx context.Context, linkID string) (string, error) {
	if m.resolveLinkErr != nil {
		return "", m.resolveLinkErr
	}
	userID, ok := m.links[linkID]
	if !ok {
		return "", database.ErrNotFound
	}
	return userID, nil
}

func (m *mockDB) UpsertBankLink(ctx context.Context, linkID, userID, institution string) (*database.BankLink, error) {
	m.links[linkID] = userID
	return &database.BankLink{ID: "lnk_1", LinkID: linkID, UserID: userID, Institution: institution}, nil
}

func (m *mockDB) GetTransactionByID(ctx context.Context, id string) (*database.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return t, nil
}

func (m *mockDB) UpdateTransactionCategory(ctx context.Context, id, categoryID string) error {
	if m.updateCatErr != nil {
		return m.updateCatErr
	}
	t, ok := m.transactions[id]
	if !ok {
		return database.ErrNotFound
	}
	t.CategoryID = categoryID
	return nil
}

func (m *mockDB) ListTransactionsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]*database.Transaction, error) {
	if m.listTxnErr != nil {
		return nil, m.listTxnErr
	}
	var out []*database.Transaction
	for _, t := range m.transactions {
		if t.UserID != userID {
			continue
		}
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockDB) GetCategoryByID(ctx context.Context, id string) (*database.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return c, nil
}

func (m *mockDB) ListCategories(ctx context.Context) ([]*database.Category, error) {
	var out []*database.Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockDB) CreateCategory(ctx context.Context, name, color string) (*database.Category, error) {
	c := &database.Category{ID: fmt.Sprintf("cat_%d", len(m.categories)+1), Name: name, Color: color}
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockDB) ListRules(ctx context.Context) ([]database.Rule, error) {
	return m.rules, nil
}

func (m *mockDB) GetCategorySummary(ctx context.Context, userID string, start, end time.Time) ([]*database.CategorySummary, error) {
	return m.summaries, nil
}

// ingest.Store

func (m *mockDB) GetTransactionByUserAndDescription(ctx context.Context, userID, description string) (*database.Transaction, error) {
	for _, t := range m.transactions {
		if t.UserID == userID && t.Description == description {
			return t, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockDB) InsertTransaction(ctx context.Context, t *database.Transaction) error {
	if _, err := m.GetTransactionByUserAndDescription(ctx, t.UserID, t.Description); err == nil {
		return database.ErrDuplicateTransaction
	}
	m.transactions[t.ID] = t
	return nil
}

func (m *mockDB) UpdateRawRecordStatus(ctx context.Context, id int64, status string) error {
	m.statuses[id] = status
	return nil
}

// categorizer.RuleStore

func (m *mockDB) GetRuleByKeyword(ctx context.Context, keyword string) (*database.Rule, error) {
	if m.ruleLookupErr != nil {
		return nil, m.ruleLookupErr
	}
	for i := range m.rules {
		if m.rules[i].Keyword == keyword {
			return &m.rules[i], nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockDB) CreateRule(ctx context.Context, keyword, categoryID, ruleKind string) (*database.Rule, error) {
	if m.createRuleErr != nil {
		return nil, m.createRuleErr
	}
	for i := range m.rules {
		if m.rules[i].Keyword == keyword {
			return nil, database.ErrDuplicateKeyword
		}
	}
	rule := database.Rule{
		ID:         fmt.Sprintf("rule_%d", len(m.rules)+1),
		Keyword:    keyword,
		CategoryID: categoryID,
		RuleKind:   ruleKind,
	}
	m.rules = append(m.rules, rule)
	return &rule, nil
}

// RuleCache

func (m *mockDB) InvalidateRules(ctx context.Context) {
	m.invalidations++
}

var errMockDB = errors.New("mock db error")
