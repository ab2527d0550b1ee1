/*
Package factory converts promotion-config documents into engine types.

PURPOSE:
  Admins describe the promotion in a JSON or YAML document; the factory
  validates it and produces the store-wide and per-product settings the
  engine consumes. Configuration changes require no code changes.

DOCUMENT SCHEMA (YAML shown; JSON is isomorphic):

  global:
    enabled: true
    max_free: 5            # <= 0 or absent means uncapped
    divisor: 1             # 1 = one free per paid unit, 2 = per two units
    customer_groups:       # absent/empty means all groups
      - retail
    active_from: "2026-01-01"            # date or RFC3339; absent = open
    active_to: "2026-12-31T23:59:59Z"
  products:
    - product_id: sku-10
      enabled: true
      max_free: 3

KEY FEATURES:
  - Validates structure and value ranges, with field-level errors
  - Defaults: divisor 1, caps uncapped, window open on absent bounds
  - Static() adapts a parsed document into the engine's CatalogLookup and
    StoreConfig collaborators, for hosts that don't persist config

USAGE:
  cfg, err := factory.ParseYAML(doc)
  engine := promo.NewEngine(cfg.Static(), cfg.Static())

SEE ALSO:
  - store/sqlite: persistent alternative to Static()
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/promo-engine/promo"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Config is a validated promotion configuration.
type Config struct {
	Global   GlobalRule
	Products []ProductRule
}

// GlobalRule mirrors the document's global section with parsed times.
type GlobalRule struct {
	Enabled        bool
	MaxFree        float64
	Divisor        int
	CustomerGroups []promo.GroupID
	ActiveFrom     *time.Time
	ActiveTo       *time.Time
}

// ProductRule mirrors one entry of the document's products section.
type ProductRule struct {
	ProductID promo.ProductID
	Enabled   bool
	MaxFree   float64
}

// GlobalConfig converts the rule into the engine's config type.
func (g GlobalRule) GlobalConfig() promo.GlobalConfig {
	return promo.GlobalConfig{
		Enabled:        g.Enabled,
		GlobalFreeCap:  promo.CapOf(g.MaxFree),
		EligibleGroups: g.CustomerGroups,
		ActiveFrom:     g.ActiveFrom,
		ActiveTo:       g.ActiveTo,
		Divisor:        g.Divisor,
	}
}

// ProductConfig converts the rule into the engine's config type.
func (p ProductRule) ProductConfig() promo.ProductConfig {
	return promo.ProductConfig{
		Enabled:           p.Enabled,
		PerProductFreeCap: promo.CapOf(p.MaxFree),
	}
}

// =============================================================================
// PARSING
// =============================================================================

type document struct {
	Global   globalDoc    `json:"global" yaml:"global"`
	Products []productDoc `json:"products" yaml:"products"`
}

type globalDoc struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	MaxFree        float64  `json:"max_free" yaml:"max_free"`
	Divisor        int      `json:"divisor" yaml:"divisor"`
	CustomerGroups []string `json:"customer_groups" yaml:"customer_groups"`
	ActiveFrom     string   `json:"active_from" yaml:"active_from"`
	ActiveTo       string   `json:"active_to" yaml:"active_to"`
}

type productDoc struct {
	ProductID string  `json:"product_id" yaml:"product_id"`
	Enabled   bool    `json:"enabled" yaml:"enabled"`
	MaxFree   float64 `json:"max_free" yaml:"max_free"`
}

// ParseJSON parses and validates a JSON promotion-config document.
func ParseJSON(data []byte) (*Config, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return build(doc)
}

// ParseYAML parses and validates a YAML promotion-config document.
func ParseYAML(data []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return build(doc)
}

func build(doc document) (*Config, error) {
	cfg := &Config{
		Global: GlobalRule{
			Enabled: doc.Global.Enabled,
			MaxFree: doc.Global.MaxFree,
			Divisor: doc.Global.Divisor,
		},
	}

	if cfg.Global.Divisor == 0 {
		cfg.Global.Divisor = 1
	}
	if cfg.Global.Divisor < 1 {
		return nil, fmt.Errorf("global.divisor must be >= 1, got %d", doc.Global.Divisor)
	}

	for _, g := range doc.Global.CustomerGroups {
		if g == "" {
			return nil, fmt.Errorf("global.customer_groups contains an empty group")
		}
		cfg.Global.CustomerGroups = append(cfg.Global.CustomerGroups, promo.GroupID(g))
	}

	var err error
	if cfg.Global.ActiveFrom, err = parseTime("global.active_from", doc.Global.ActiveFrom); err != nil {
		return nil, err
	}
	if cfg.Global.ActiveTo, err = parseTime("global.active_to", doc.Global.ActiveTo); err != nil {
		return nil, err
	}
	if cfg.Global.ActiveFrom != nil && cfg.Global.ActiveTo != nil &&
		cfg.Global.ActiveTo.Before(*cfg.Global.ActiveFrom) {
		return nil, fmt.Errorf("global.active_to precedes global.active_from")
	}

	seen := make(map[string]bool)
	for i, p := range doc.Products {
		if p.ProductID == "" {
			return nil, fmt.Errorf("products[%d].product_id is required", i)
		}
		if seen[p.ProductID] {
			return nil, fmt.Errorf("products[%d]: duplicate product_id %q", i, p.ProductID)
		}
		seen[p.ProductID] = true
		cfg.Products = append(cfg.Products, ProductRule{
			ProductID: promo.ProductID(p.ProductID),
			Enabled:   p.Enabled,
			MaxFree:   p.MaxFree,
		})
	}

	return cfg, nil
}

// parseTime accepts RFC3339 or a bare date; empty means open-ended.
func parseTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: unrecognized time %q (want RFC3339 or YYYY-MM-DD)", field, value)
}

// =============================================================================
// STATIC ADAPTER - Config as engine collaborators
// =============================================================================

// Static serves a parsed Config as the engine's two lookup collaborators.
// For hosts that load config from a file instead of a database.
type Static struct {
	global   promo.GlobalConfig
	products map[promo.ProductID]promo.ProductConfig
}

var (
	_ promo.CatalogLookup = (*Static)(nil)
	_ promo.StoreConfig   = (*Static)(nil)
)

// Static builds the adapter. The result is immutable and safe for
// concurrent reads.
func (c *Config) Static() *Static {
	s := &Static{
		global:   c.Global.GlobalConfig(),
		products: make(map[promo.ProductID]promo.ProductConfig, len(c.Products)),
	}
	for _, p := range c.Products {
		s.products[p.ProductID] = p.ProductConfig()
	}
	return s
}

// PromotionConfig implements promo.CatalogLookup.
func (s *Static) PromotionConfig(_ context.Context, productID promo.ProductID) (promo.ProductConfig, error) {
	return s.products[productID], nil
}

// GlobalConfig implements promo.StoreConfig.
func (s *Static) GlobalConfig(_ context.Context, _ promo.GroupID) (promo.GlobalConfig, error) {
	return s.global, nil
}
