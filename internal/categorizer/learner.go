package categorizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/savegress/finboard/internal/database"
)

// Generic tokens that never identify a merchant. Stripped before keyword
// extraction.
var genericWords = map[string]bool{
	"compra":    true,
	"pagamento": true,
	"fatura":    true,
	"brasil":    true,
	"ltda":      true,
	"s.a.":      true,
}

// RuleStore is the subset of the rule repository the learner needs.
type RuleStore interface {
	GetRuleByKeyword(ctx context.Context, keyword string) (*database.Rule, error)
	CreateRule(ctx context.Context, keyword, categoryID, ruleKind string) (*database.Rule, error)
}

// Learner turns manual recategorizations into new rules so future ingestion
// benefits from corrections.
type Learner struct {
	rules RuleStore
}

// NewLearner creates a learner backed by the given rule store.
func NewLearner(rules RuleStore) *Learner {
	return &Learner{rules: rules}
}

// ExtractKeyword derives a candidate rule keyword from a transaction
// description: lowercase, drop generic filler words, take the first token
// longer than two characters. Falls back to the whole cleaned string when no
// token qualifies.
//
// The heuristic is intentionally simple and can pick noisy keywords for
// merchants whose first token is truncated; it is kept for compatibility with
// the rules already learned.
func ExtractKeyword(description string) string {
	lowered := strings.ToLower(strings.TrimSpace(description))
	if lowered == "" {
		return ""
	}

	var kept []string
	for _, word := range strings.Fields(lowered) {
		if genericWords[word] {
			continue
		}
		kept = append(kept, word)
	}

	for _, word := range kept {
		if len(word) > 2 {
			return word
		}
	}

	return strings.Join(kept, " ")
}

// LearnFromManualCategorization creates a CONTAINS rule mapping the
// transaction's extracted keyword to the user-chosen category. If a rule for
// the keyword already exists it is left alone: a single correction must not
// overwrite learned associations. Safe to call repeatedly with the same
// inputs.
//
// The category reassignment itself is the caller's write; a failure here is
// degraded learning, never a reason to roll back the correction.
func (l *Learner) LearnFromManualCategorization(ctx context.Context, txn *database.Transaction, newCategoryID string) error {
	keyword := ExtractKeyword(txn.Description)
	if keyword == "" {
		return nil
	}

	_, err := l.rules.GetRuleByKeyword(ctx, keyword)
	if err == nil {
		// Existing rule wins.
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to look up rule for keyword %q: %w", keyword, err)
	}

	_, err = l.rules.CreateRule(ctx, keyword, newCategoryID, database.RuleKindContains)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateKeyword) {
			// Lost a race with a concurrent correction; benign.
			return nil
		}
		return fmt.Errorf("failed to create rule for keyword %q: %w", keyword, err)
	}

	return nil
}
