/*
engine.go - The reconciliation state machine

PURPOSE:
  Brings the cart's free lines in line with its paid lines. Each product is
  evaluated independently and idempotently against five observed states:

    NotEligible               delete all free lines for the product
    EligibleNoFreeLine        create one free line sized to the owed qty
    EligibleHasFreeLine       resize the free line when owed differs
    EligibleDuplicateFreeLines keep the lowest LineID, resize it, delete
                              the rest
    EligibleZeroOwed          delete all free lines for the product

GUARANTEES:
  After Reconcile returns, freeQty(product) == FreeQtyOwed(paidQty, caps)
  for every eligible product, and at most one free line per product
  remains. A second pass with no intervening cart change produces an empty
  report.

FAILURE ISOLATION:
  A rejected mutation or invalid quantity is recorded per product in the
  Report; the remaining products still reconcile. Within one product,
  quantity-bearing writes happen before deletions, so a rejected write
  leaves the product's prior quantities untouched.

SEE ALSO:
  - guard.go: why Reconcile can refuse to run
  - adapter.go: who calls Reconcile, and when
*/
package promo

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine reconciles free lines against paid lines. Safe for use across
// concurrent carts; passes for the same cart are serialized by the Guard.
type Engine struct {
	Resolver *Resolver
	Guard    *Guard

	// MaxLineQty is the sanity ceiling on a single paid line. Zero value
	// means DefaultMaxLineQty.
	MaxLineQty Qty
}

// NewEngine wires an engine against the two configuration collaborators.
func NewEngine(catalog CatalogLookup, config StoreConfig) *Engine {
	return &Engine{
		Resolver: &Resolver{Catalog: catalog, Config: config},
		Guard:    NewGuard(),
	}
}

func (e *Engine) ceiling() Qty {
	if e.MaxLineQty.IsPositive() {
		return e.MaxLineQty
	}
	return DefaultMaxLineQty
}

// Reconcile runs one pass for the given products; an empty product list
// means a full resync over every product in the snapshot. It never returns
// an error: business failures are reported per product, and a pass that
// finds a reconciliation already in progress for the cart returns
// immediately with Blocked set and zero mutations performed.
func (e *Engine) Reconcile(ctx context.Context, cart Cart, group GroupID, products ...ProductID) Report {
	report := Report{CartID: cart.ID()}

	release, ok := e.Guard.Enter(cart.ID())
	if !ok {
		report.Blocked = true
		return report
	}
	defer release()

	lines, err := cart.Lines(ctx)
	if err != nil {
		report.Errors = append(report.Errors, ProductError{Op: "snapshot", Err: err})
		return report
	}
	ix := BuildIndex(lines)

	targets := products
	if len(targets) == 0 {
		targets = ix.Products()
	}

	seen := make(map[ProductID]bool, len(targets))
	for _, productID := range targets {
		if seen[productID] {
			continue
		}
		seen[productID] = true
		e.reconcileProduct(ctx, cart, ix, productID, group, &report)
	}
	return report
}

// =============================================================================
// PER-PRODUCT STATE MACHINE
// =============================================================================

func (e *Engine) reconcileProduct(ctx context.Context, cart Cart, ix Index, productID ProductID, group GroupID, report *Report) {
	// Sanity ceiling: skip the product rather than process abusive input.
	ceiling := e.ceiling()
	for _, line := range ix.PaidLines(productID) {
		if line.Quantity.GreaterThan(ceiling) {
			report.Errors = append(report.Errors, ProductError{
				ProductID: productID,
				Op:        "validate",
				Err: &QuantityOutOfBoundsError{
					LineID:   line.LineID,
					Quantity: line.Quantity,
					Ceiling:  ceiling,
				},
			})
			return
		}
	}

	decision, err := e.Resolver.Resolve(ctx, productID, group)
	if err != nil {
		// Fail closed without destroying state: the product gets no free
		// line this pass, and existing free lines are left alone until
		// configuration is readable again.
		report.Errors = append(report.Errors, ProductError{ProductID: productID, Op: "config", Err: err})
		return
	}

	free := ix.FreeLines(productID)

	if !decision.Eligible {
		e.removeFreeLines(ctx, cart, productID, free, report)
		return
	}

	paidQty := ix.PaidQty(productID)
	owed := decision.Global.Policy().FreeQtyOwed(paidQty,
		decision.Product.PerProductFreeCap, decision.Global.GlobalFreeCap)

	switch {
	case owed.IsZero():
		e.removeFreeLines(ctx, cart, productID, free, report)

	case len(free) == 0:
		lineID, err := cart.AddLine(ctx, NewFreeLine(productID, owed))
		if err != nil {
			report.Errors = append(report.Errors, ProductError{
				ProductID: productID, Op: "create", Err: rejected(err),
			})
			return
		}
		report.Created = append(report.Created, LineChange{
			Kind: ChangeCreated, LineID: lineID, ProductID: productID, Quantity: owed,
		})

	default:
		// The earliest-created free line is canonical; resize it first so
		// a rejected write leaves quantities untouched, then drop the rest.
		canonical := free[0]
		if !canonical.Quantity.Equal(owed) {
			if err := cart.SetLineQty(ctx, canonical.LineID, owed); err != nil {
				report.Errors = append(report.Errors, ProductError{
					ProductID: productID, Op: "resize", Err: rejected(err),
				})
				return
			}
			report.Updated = append(report.Updated, LineChange{
				Kind: ChangeUpdated, LineID: canonical.LineID, ProductID: productID, Quantity: owed,
			})
		}
		e.removeFreeLines(ctx, cart, productID, free[1:], report)
	}
}

func (e *Engine) removeFreeLines(ctx context.Context, cart Cart, productID ProductID, lines []CartLine, report *Report) {
	for _, line := range lines {
		if err := cart.RemoveLine(ctx, line.LineID); err != nil {
			report.Errors = append(report.Errors, ProductError{
				ProductID: productID, Op: "remove", Err: rejected(err),
			})
			return
		}
		report.Removed = append(report.Removed, LineChange{
			Kind: ChangeRemoved, LineID: line.LineID, ProductID: productID, Quantity: line.Quantity,
		})
	}
}

// rejected classifies a host-cart mutation failure.
func rejected(err error) error {
	if errors.Is(err, ErrLineMutationRejected) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrLineMutationRejected, err)
}
