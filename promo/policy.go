/*
policy.go - Owed-quantity arithmetic and caps

PURPOSE:
  Computes the free quantity owed for a paid quantity, under a per-product
  cap and a store-wide cap. Pure, total, deterministic: the engine calls
  this repeatedly within a pass and must see no drift.

CAP SEMANTICS:
  A Cap is either a finite limit or uncapped. The effective cap is the
  minimum of whichever caps are finite; uncapped on both sides means no
  limit. CapOf(0) and negative values mean uncapped - store configuration
  historically used zero for "no limit".

DIVISOR:
  The "owed" formula is configurable: divisor 1 grants one free unit per
  paid unit, divisor 2 grants one free unit per two paid units
  (floor(paid/2)), and so on. Divisor values below 1 are treated as 1.

EXAMPLE:
  p := promo.Policy{Divisor: 1}
  p.FreeQtyOwed(promo.NewQtyFromInt(10), promo.CapOf(3), promo.CapOf(5))
  // => 3
*/
package promo

// =============================================================================
// CAP - Optional upper bound on free quantity
// =============================================================================

type Cap struct {
	limit  Qty
	capped bool
}

// Uncapped returns a cap that imposes no limit.
func Uncapped() Cap {
	return Cap{}
}

// CapOf returns a finite cap, or an uncapped Cap for values <= 0.
func CapOf(limit float64) Cap {
	if limit <= 0 {
		return Uncapped()
	}
	return Cap{limit: NewQty(limit), capped: true}
}

// CapOfQty returns a finite cap for a positive quantity.
func CapOfQty(limit Qty) Cap {
	if !limit.IsPositive() {
		return Uncapped()
	}
	return Cap{limit: limit, capped: true}
}

func (c Cap) IsCapped() bool { return c.capped }
func (c Cap) Limit() Qty     { return c.limit }

// Min combines two caps: the tighter finite limit wins, uncapped is identity.
func (c Cap) Min(o Cap) Cap {
	switch {
	case !c.capped:
		return o
	case !o.capped:
		return c
	case o.limit.LessThan(c.limit):
		return o
	default:
		return c
	}
}

// Apply clamps q to the cap.
func (c Cap) Apply(q Qty) Qty {
	if c.capped && q.GreaterThan(c.limit) {
		return c.limit
	}
	return q
}

// =============================================================================
// POLICY - Free quantity owed for a paid quantity
// =============================================================================

// DefaultMaxLineQty is the sanity ceiling on a single paid line's quantity.
// Lines above it are rejected with a validation error rather than silently
// processed, bounding the cost of a pass against input abuse.
var DefaultMaxLineQty = NewQtyFromInt(1000)

type Policy struct {
	// Divisor selects the owed formula: 1 => one free unit per paid unit,
	// 2 => one per two paid units (floored). Values below 1 act as 1.
	Divisor int
}

// FreeQtyOwed computes the free quantity currently due for paidQty.
// Pure and total: paidQty <= 0 yields zero, never an error.
func (p Policy) FreeQtyOwed(paidQty Qty, perProduct, global Cap) Qty {
	if !paidQty.IsPositive() {
		return ZeroQty()
	}
	owed := paidQty
	if p.Divisor > 1 {
		owed = paidQty.DivFloor(int64(p.Divisor))
	}
	return perProduct.Min(global).Apply(owed)
}
