package cache

import (
	"context"
	"time"

	"github.com/savegress/finboard/internal/database"
)

// RuleLister loads the ordered rule list from the backing store.
type RuleLister interface {
	ListRules(ctx context.Context) ([]database.Rule, error)
}

// RuleSource serves the ordered rule list through the cache. Order is
// preserved as stored: the cached value is the exact slice the repository
// returned, so match priority survives the round trip.
type RuleSource struct {
	store RuleLister
	cache *Cache
	ttl   time.Duration
}

// NewRuleSource wraps a rule store with caching.
func NewRuleSource(store RuleLister, c *Cache, ttl time.Duration) *RuleSource {
	return &RuleSource{store: store, cache: c, ttl: ttl}
}

// ListRules returns the ordered rule list, from cache when fresh. Cache
// failures fall through to the store; a stale-by-TTL rule list only delays
// when a newly learned rule takes effect.
func (s *RuleSource) ListRules(ctx context.Context) ([]database.Rule, error) {
	var rules []database.Rule
	if err := s.cache.Get(ctx, keyRules, &rules); err == nil {
		return rules, nil
	}

	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, keyRules, rules, s.ttl)
	return rules, nil
}

// InvalidateRules drops the cached rule list. Called after a new rule is
// learned so corrections take effect without waiting out the TTL.
func (s *RuleSource) InvalidateRules(ctx context.Context) {
	_ = s.cache.Delete(ctx, keyRules)
}
