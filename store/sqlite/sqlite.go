/*
Package sqlite persists promotion configuration in SQLite.

PURPOSE:
  Backs the two read-only collaborators the engine consults on every pass:
  promo.CatalogLookup (per-product promotion flags and caps) and
  promo.StoreConfig (store-wide enablement, caps, customer groups, active
  window, owed divisor). Admin surfaces write through the rule CRUD below;
  the engine only ever reads.

TABLES:
  product_promotions: one row per product (enabled, max_free)
  global_promotion:   a single row (id = 1) of store-wide settings

CAP ENCODING:
  max_free <= 0 means uncapped. Store configuration has always used zero
  for "no limit", and the Cap constructors preserve that reading.

FAIL CLOSED:
  A missing product row or missing global row yields a disabled config
  with a nil error. Only real storage failures return errors, and the
  resolver treats those as "not eligible" for the pass.

WAL MODE:
  SQLite is opened with WAL so concurrent readers don't block. Use
  ":memory:" for tests.

SEE ALSO:
  - promo/cart.go: the interfaces implemented here
  - factory: JSON/YAML documents that load into this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/promo-engine/promo"
)

// Store implements promo.CatalogLookup and promo.StoreConfig over SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ promo.CatalogLookup = (*Store)(nil)
	_ promo.StoreConfig   = (*Store)(nil)
)

// New opens (and migrates) a store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Per-product promotion settings
	CREATE TABLE IF NOT EXISTS product_promotions (
		product_id TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		max_free REAL NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	-- Store-wide promotion settings (single row, id = 1)
	CREATE TABLE IF NOT EXISTS global_promotion (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		max_free REAL NOT NULL DEFAULT 0,
		divisor INTEGER NOT NULL DEFAULT 1,
		customer_groups TEXT NOT NULL DEFAULT '',
		active_from TEXT,
		active_to TEXT,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PRODUCT RULES
// =============================================================================

// ProductRule is a stored per-product promotion setting.
type ProductRule struct {
	ProductID promo.ProductID
	Enabled   bool
	MaxFree   float64 // <= 0 means uncapped
	UpdatedAt time.Time
}

// SaveProductRule inserts or updates a product rule.
func (s *Store) SaveProductRule(ctx context.Context, rule ProductRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO product_promotions (product_id, enabled, max_free, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			enabled = excluded.enabled,
			max_free = excluded.max_free,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rule.ProductID, rule.Enabled, rule.MaxFree,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ProductRule retrieves a product rule. Returns nil when absent.
func (s *Store) ProductRule(ctx context.Context, productID promo.ProductID) (*ProductRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rule      ProductRule
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT product_id, enabled, max_free, updated_at FROM product_promotions WHERE product_id = ?",
		productID,
	).Scan(&rule.ProductID, &rule.Enabled, &rule.MaxFree, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rule.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rule, nil
}

// ListProductRules returns all product rules.
func (s *Store) ListProductRules(ctx context.Context) ([]ProductRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT product_id, enabled, max_free, updated_at FROM product_promotions ORDER BY product_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []ProductRule
	for rows.Next() {
		var (
			rule      ProductRule
			updatedAt string
		)
		if err := rows.Scan(&rule.ProductID, &rule.Enabled, &rule.MaxFree, &updatedAt); err != nil {
			return nil, err
		}
		rule.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteProductRule removes a product rule.
func (s *Store) DeleteProductRule(ctx context.Context, productID promo.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM product_promotions WHERE product_id = ?", productID)
	return err
}

// =============================================================================
// GLOBAL RULE
// =============================================================================

// GlobalRule is the stored store-wide promotion setting.
type GlobalRule struct {
	Enabled        bool
	MaxFree        float64 // <= 0 means uncapped
	Divisor        int
	CustomerGroups []promo.GroupID
	ActiveFrom     *time.Time
	ActiveTo       *time.Time
	UpdatedAt      time.Time
}

// SaveGlobalRule inserts or updates the single global row.
func (s *Store) SaveGlobalRule(ctx context.Context, rule GlobalRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.Divisor < 1 {
		rule.Divisor = 1
	}

	query := `
		INSERT INTO global_promotion
			(id, enabled, max_free, divisor, customer_groups, active_from, active_to, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled,
			max_free = excluded.max_free,
			divisor = excluded.divisor,
			customer_groups = excluded.customer_groups,
			active_from = excluded.active_from,
			active_to = excluded.active_to,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rule.Enabled, rule.MaxFree, rule.Divisor,
		joinGroups(rule.CustomerGroups),
		nullTime(rule.ActiveFrom), nullTime(rule.ActiveTo),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GlobalRule retrieves the global row. Returns nil when never configured.
func (s *Store) GlobalRule(ctx context.Context) (*GlobalRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rule       GlobalRule
		groups     string
		activeFrom sql.NullString
		activeTo   sql.NullString
		updatedAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, max_free, divisor, customer_groups, active_from, active_to, updated_at
		 FROM global_promotion WHERE id = 1`,
	).Scan(&rule.Enabled, &rule.MaxFree, &rule.Divisor, &groups, &activeFrom, &activeTo, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rule.CustomerGroups = splitGroups(groups)
	rule.ActiveFrom = parseNullTime(activeFrom)
	rule.ActiveTo = parseNullTime(activeTo)
	rule.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rule, nil
}

// =============================================================================
// ENGINE COLLABORATOR INTERFACES
// =============================================================================

// PromotionConfig implements promo.CatalogLookup. An unconfigured product
// is a disabled config, not an error.
func (s *Store) PromotionConfig(ctx context.Context, productID promo.ProductID) (promo.ProductConfig, error) {
	rule, err := s.ProductRule(ctx, productID)
	if err != nil {
		return promo.ProductConfig{}, err
	}
	if rule == nil {
		return promo.ProductConfig{}, nil
	}
	return promo.ProductConfig{
		Enabled:           rule.Enabled,
		PerProductFreeCap: promo.CapOf(rule.MaxFree),
	}, nil
}

// GlobalConfig implements promo.StoreConfig. Group filtering happens in
// the resolver; the stored groups list rides along in the config.
func (s *Store) GlobalConfig(ctx context.Context, _ promo.GroupID) (promo.GlobalConfig, error) {
	rule, err := s.GlobalRule(ctx)
	if err != nil {
		return promo.GlobalConfig{}, err
	}
	if rule == nil {
		return promo.GlobalConfig{}, nil
	}
	return promo.GlobalConfig{
		Enabled:        rule.Enabled,
		GlobalFreeCap:  promo.CapOf(rule.MaxFree),
		EligibleGroups: rule.CustomerGroups,
		ActiveFrom:     rule.ActiveFrom,
		ActiveTo:       rule.ActiveTo,
		Divisor:        rule.Divisor,
	}, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all configuration (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"product_promotions", "global_promotion"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func joinGroups(groups []promo.GroupID) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = string(g)
	}
	return strings.Join(parts, ",")
}

func splitGroups(s string) []promo.GroupID {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	groups := make([]promo.GroupID, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			groups = append(groups, promo.GroupID(p))
		}
	}
	return groups
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
