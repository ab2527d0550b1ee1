/*
Package promo provides the buy-N-get-N cart reconciliation engine.

PURPOSE:
  This package keeps a cart's promotion-generated free lines consistent with
  its paid lines. Every eligible paid line is paired with a correctly-sized
  free line, across any sequence of cart mutations (add, change quantity,
  remove, recalculate), without duplicate free lines and without the engine
  re-triggering itself through its own writes.

KEY CONCEPTS IN THIS FILE (types.go):
  - Qty: A decimal quantity (avoids floating-point drift)
  - CartLine: One cart entry, tagged paid or free
  - NewFreeLine: The ONLY way a free line comes into existence
  - Report: Per-pass outcome (created/updated/removed lines, errors)

DESIGN PRINCIPLES:
  1. Explicit tagging: free lines carry IsFree; price is never used as a
     free-item signal (a paid line may legitimately cost zero)
  2. Single ownership: free lines are created, resized, and removed only
     by the Engine - no other component mutates them
  3. Precision: quantities use decimal.Decimal
  4. Reporting over throwing: business outcomes land in the Report,
     not in returned errors

USAGE:
  engine := promo.NewEngine(catalog, config)
  report := engine.Reconcile(ctx, cart, "retail", "sku-10")
  for _, c := range report.Created {
      // a free line was added
  }

SEE ALSO:
  - policy.go: Owed-quantity arithmetic and caps
  - eligibility.go: Who participates in the promotion
  - engine.go: The reconciliation state machine
*/
package promo

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// QTY - Decimal quantity
// =============================================================================

type Qty struct {
	Value decimal.Decimal
}

func NewQty(value float64) Qty {
	return Qty{Value: decimal.NewFromFloat(value)}
}

func NewQtyFromInt(value int) Qty {
	return Qty{Value: decimal.NewFromInt(int64(value))}
}

func ZeroQty() Qty {
	return Qty{Value: decimal.Zero}
}

func MustParseQty(s string) Qty {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroQty()
	}
	return Qty{Value: d}
}

func (q Qty) Add(o Qty) Qty          { return Qty{Value: q.Value.Add(o.Value)} }
func (q Qty) Sub(o Qty) Qty          { return Qty{Value: q.Value.Sub(o.Value)} }
func (q Qty) IsZero() bool           { return q.Value.IsZero() }
func (q Qty) IsPositive() bool       { return q.Value.IsPositive() }
func (q Qty) IsNegative() bool       { return q.Value.IsNegative() }
func (q Qty) Equal(o Qty) bool       { return q.Value.Equal(o.Value) }
func (q Qty) GreaterThan(o Qty) bool { return q.Value.GreaterThan(o.Value) }
func (q Qty) LessThan(o Qty) bool    { return q.Value.LessThan(o.Value) }
func (q Qty) String() string         { return q.Value.String() }

// DivFloor returns floor(q / n). Used for "one free per N paid" policies.
func (q Qty) DivFloor(n int64) Qty {
	return Qty{Value: q.Value.Div(decimal.NewFromInt(n)).Floor()}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type CartID string
type GroupID string

// LineID identifies a cart line for its whole lifetime. The host cart
// assigns IDs monotonically, so a lower ID means an earlier-created line.
// The engine relies on this for deterministic duplicate resolution.
type LineID int64

// =============================================================================
// CART LINE
// =============================================================================

// CartLine is one entry in the cart.
//
// INVARIANT: at most one free CartLine exists per ProductID at any settled
// state. Transient duplicates may appear mid-reconciliation (concurrent
// triggers) but are merged before Reconcile returns.
type CartLine struct {
	LineID    LineID
	ProductID ProductID
	Quantity  Qty
	UnitPrice Qty

	// IsFree marks a promotion-generated line. This tag is the ONLY
	// discriminator between paid and free lines.
	IsFree bool

	// ExcludedFromDiscount is set on free lines so other promotions skip them.
	ExcludedFromDiscount bool

	// Hidden lines (cancelled, child items) are ignored by the index.
	Hidden bool
}

// NewFreeLine builds the free-line template for a product. Pricing fields are
// forced to zero and the discount exclusion is set; nothing is carried over
// from the paid line it mirrors. LineID is assigned by the cart on AddLine.
func NewFreeLine(productID ProductID, qty Qty) CartLine {
	return CartLine{
		ProductID:            productID,
		Quantity:             qty,
		UnitPrice:            ZeroQty(),
		IsFree:               true,
		ExcludedFromDiscount: true,
	}
}

// =============================================================================
// RECONCILIATION REPORT
// =============================================================================

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

// LineChange records one free-line mutation applied during a pass.
type LineChange struct {
	Kind      ChangeKind
	LineID    LineID
	ProductID ProductID
	Quantity  Qty
}

// Report is the outcome of one reconciliation pass. Business-level failures
// (rejected mutations, out-of-bounds quantities, unavailable configuration)
// are collected per product; they never abort the pass for other products.
type Report struct {
	CartID  CartID
	Created []LineChange
	Updated []LineChange
	Removed []LineChange
	Errors  []ProductError

	// Blocked is true when the pass was refused because a reconciliation
	// for the same cart was already in progress. Not an error.
	Blocked bool
}

// Empty reports whether the pass applied no mutations.
func (r Report) Empty() bool {
	return len(r.Created) == 0 && len(r.Updated) == 0 && len(r.Removed) == 0
}

// Changed returns the total number of mutations applied.
func (r Report) Changed() int {
	return len(r.Created) + len(r.Updated) + len(r.Removed)
}

// ErrorFor returns the recorded error for a product, or nil.
func (r Report) ErrorFor(productID ProductID) *ProductError {
	for i := range r.Errors {
		if r.Errors[i].ProductID == productID {
			return &r.Errors[i]
		}
	}
	return nil
}
