// Package categorizer assigns spending categories to transaction
// descriptions using keyword rules, and learns new rules from manual
// corrections.
package categorizer

import (
	"strings"

	"github.com/savegress/finboard/internal/database"
)

// Engine applies keyword rules to a cleaned description.
//
// Matching is first-match-wins over the rule list in the order given; the
// caller controls priority through that order (the rule store returns rules
// in creation order). Longest-match or best-match semantics are deliberately
// not implemented.
type Engine struct {
	defaultCategoryID string
}

// NewEngine creates an engine with the configured fallback category. The
// fallback is returned whenever no rule matches, so categorization itself
// never fails.
func NewEngine(defaultCategoryID string) *Engine {
	return &Engine{defaultCategoryID: defaultCategoryID}
}

// DefaultCategoryID returns the configured fallback category id.
func (e *Engine) DefaultCategoryID() string {
	return e.defaultCategoryID
}

// Result is the outcome of categorizing one description.
type Result struct {
	CategoryID string
	// FinalDescription is the description to persist: the matched rule's
	// normalized-description override when present, otherwise the input.
	FinalDescription string
	// MatchedRuleID is empty when the fallback category was used.
	MatchedRuleID string
}

// Categorize returns the category for a cleaned description. A rule matches
// when its keyword is a case-insensitive substring of the description; the
// first matching rule wins. With no match (or no rules) the fallback
// category is returned.
func (e *Engine) Categorize(description string, rules []database.Rule) Result {
	lowerDescription := strings.ToLower(description)

	for _, rule := range rules {
		keyword := strings.ToLower(rule.Keyword)
		if keyword == "" {
			continue
		}

		if strings.Contains(lowerDescription, keyword) {
			final := description
			if rule.NormalizedDescription != nil && *rule.NormalizedDescription != "" {
				final = *rule.NormalizedDescription
			}
			return Result{
				CategoryID:       rule.CategoryID,
				FinalDescription: final,
				MatchedRuleID:    rule.ID,
			}
		}
	}

	return Result{
		CategoryID:       e.defaultCategoryID,
		FinalDescription: description,
	}
}
