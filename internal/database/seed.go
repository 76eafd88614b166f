package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SeedFile describes initial categories and rules loaded at startup. The
// fallback category (DEFAULT_CATEGORY_ID) is expected to be declared here on
// a fresh database.
type SeedFile struct {
	Categories []SeedCategory `yaml:"categories"`
	Rules      []SeedRule     `yaml:"rules"`
}

type SeedCategory struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type SeedRule struct {
	Keyword    string `yaml:"keyword"`
	CategoryID string `yaml:"category_id"`
}

// Seed loads a YAML seed file and inserts any categories and rules that do
// not exist yet. Existing rows are left untouched so seeding is safe to run
// on every startup.
func (db *DB) Seed(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	now := time.Now().UTC()

	for _, c := range seed.Categories {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("seed category requires id and name: %+v", c)
		}
		_, err := db.pool.Exec(ctx, `
			INSERT INTO categories (id, name, color, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (id) DO NOTHING
		`, c.ID, c.Name, c.Color, now)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.ID, err)
		}
	}

	for _, r := range seed.Rules {
		if r.Keyword == "" || r.CategoryID == "" {
			return fmt.Errorf("seed rule requires keyword and category_id: %+v", r)
		}
		_, err := db.pool.Exec(ctx, `
			INSERT INTO categorization_rules (id, keyword, category_id, rule_kind, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (keyword) DO NOTHING
		`, generateID("rule"), r.Keyword, r.CategoryID, RuleKindContains, now)
		if err != nil {
			return fmt.Errorf("failed to seed rule %q: %w", r.Keyword, err)
		}
	}

	return nil
}
