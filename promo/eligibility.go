/*
eligibility.go - Who participates in the promotion

PURPOSE:
  Decides whether a product participates in the promotion for the current
  customer, from two read-only sources: the store-wide configuration
  (enabled flag, active window, allowed customer groups, global cap) and
  the product's own settings (enabled flag, per-product cap).

FAIL CLOSED:
  Absent or malformed configuration degrades to "not eligible", never to
  an exception. A failed lookup is recorded as ErrConfigUnavailable and the
  product simply gets no free line this pass.

ACTIVE WINDOW:
  Open-ended bounds are unbounded on that side; both bounds absent means
  always active; both bounds are inclusive.

SEE ALSO:
  - policy.go: caps referenced by the configs here
  - engine.go: consumes Decision per product, per pass
*/
package promo

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// CONFIGURATION - Read-only facts from external collaborators
// =============================================================================

// GlobalConfig holds store-wide promotion settings. It is re-read on every
// reconciliation pass; the window and flags may change between requests.
type GlobalConfig struct {
	Enabled       bool
	GlobalFreeCap Cap

	// EligibleGroups lists the customer groups the promotion applies to.
	// Empty means all groups.
	EligibleGroups []GroupID

	// ActiveFrom/ActiveTo bound the promotion window. Nil is unbounded.
	ActiveFrom *time.Time
	ActiveTo   *time.Time

	// Divisor for the owed formula (see Policy). Zero acts as 1.
	Divisor int
}

// ActiveAt reports whether the promotion window covers t.
func (g GlobalConfig) ActiveAt(t time.Time) bool {
	if g.ActiveFrom != nil && t.Before(*g.ActiveFrom) {
		return false
	}
	if g.ActiveTo != nil && t.After(*g.ActiveTo) {
		return false
	}
	return true
}

// AllowsGroup reports whether the group may receive the promotion.
func (g GlobalConfig) AllowsGroup(group GroupID) bool {
	if len(g.EligibleGroups) == 0 {
		return true
	}
	for _, allowed := range g.EligibleGroups {
		if allowed == group {
			return true
		}
	}
	return false
}

// Policy returns the owed-quantity policy this configuration selects.
func (g GlobalConfig) Policy() Policy {
	d := g.Divisor
	if d < 1 {
		d = 1
	}
	return Policy{Divisor: d}
}

// ProductConfig holds a product's promotion facts from the catalog.
type ProductConfig struct {
	Enabled           bool
	PerProductFreeCap Cap
}

// =============================================================================
// ELIGIBILITY - Pure predicate + lookup-backed resolver
// =============================================================================

// Eligible is the promotion predicate. No side effects, no error
// conditions: every disqualifying condition simply returns false.
func Eligible(product ProductConfig, global GlobalConfig, group GroupID, now time.Time) bool {
	if !global.Enabled {
		return false
	}
	if !global.ActiveAt(now) {
		return false
	}
	if !global.AllowsGroup(group) {
		return false
	}
	return product.Enabled
}

// Decision is one product's resolved eligibility for one pass, bundled
// with the configs the engine needs to size the free line.
type Decision struct {
	Eligible bool
	Product  ProductConfig
	Global   GlobalConfig
}

// Resolver evaluates eligibility against the external configuration
// collaborators. Stateless beyond its dependencies.
type Resolver struct {
	Catalog CatalogLookup
	Config  StoreConfig

	// Clock supplies "now" for the active-window check. Nil means
	// time.Now; tests inject a fixed clock.
	Clock func() time.Time
}

func (r *Resolver) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

// Resolve looks up both configs and applies the predicate. Lookup failures
// fail closed: the decision is "not eligible" and the wrapped
// ErrConfigUnavailable is returned so the engine can record it.
func (r *Resolver) Resolve(ctx context.Context, productID ProductID, group GroupID) (Decision, error) {
	global, err := r.Config.GlobalConfig(ctx, group)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: global config: %v", ErrConfigUnavailable, err)
	}

	product, err := r.Catalog.PromotionConfig(ctx, productID)
	if err != nil {
		return Decision{Global: global}, fmt.Errorf("%w: product %s: %v", ErrConfigUnavailable, productID, err)
	}

	return Decision{
		Eligible: Eligible(product, global, group, r.now()),
		Product:  product,
		Global:   global,
	}, nil
}
