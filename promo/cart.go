/*
cart.go - Collaborator interfaces

PURPOSE:
  The engine has no storage, no catalog, and no event bus of its own; it is
  a library invoked by a host cart system. These interfaces are the narrow
  seams through which it talks to that host.

OWNERSHIP:
  Paid lines are created and destroyed by the cart owner. Free lines are
  created, resized, and destroyed exclusively by the Engine through the
  Cart interface below. No other component may touch a free line's
  quantity or price.

SEE ALSO:
  - cart/memory.go: in-memory reference implementation
  - store/sqlite: CatalogLookup/StoreConfig backed by SQLite
*/
package promo

import "context"

// =============================================================================
// CART - Snapshot reads and line mutations
// =============================================================================

// Cart is the host cart the engine reconciles. All mutations are
// synchronous; the host may reject any of them (stock, validation), which
// the engine reports per product as ErrLineMutationRejected.
type Cart interface {
	// ID returns the stable cart identity the Guard keys on.
	ID() CartID

	// Lines returns a snapshot of the cart's current lines. The engine
	// re-reads this fresh on every pass; it never caches.
	Lines(ctx context.Context) ([]CartLine, error)

	// AddLine appends a line and returns its assigned LineID.
	AddLine(ctx context.Context, line CartLine) (LineID, error)

	// SetLineQty resizes an existing line.
	SetLineQty(ctx context.Context, id LineID, qty Qty) error

	// RemoveLine deletes an existing line.
	RemoveLine(ctx context.Context, id LineID) error
}

// =============================================================================
// CONFIGURATION LOOKUPS - Read-only, external
// =============================================================================

// CatalogLookup resolves per-product promotion facts from the catalog.
type CatalogLookup interface {
	// PromotionConfig returns the product's promotion settings. An unknown
	// product yields a disabled config with a nil error; transport or
	// storage failures return an error and the resolver fails closed.
	PromotionConfig(ctx context.Context, productID ProductID) (ProductConfig, error)
}

// StoreConfig resolves store-wide promotion settings. Re-evaluated on every
// reconciliation pass because the active window and flags may change
// between requests.
type StoreConfig interface {
	GlobalConfig(ctx context.Context, group GroupID) (GlobalConfig, error)
}

// =============================================================================
// CART LISTENER - The four lifecycle trigger points
// =============================================================================

// CartListener receives cart lifecycle notifications. The Adapter
// implements this and maps each notification to a Reconcile call; host
// carts dispatch the notifications synchronously on the mutating
// goroutine, including for mutations made by the engine itself - which is
// exactly why the Guard exists.
type CartListener interface {
	OnLineAdded(ctx context.Context, cart Cart, line CartLine)
	OnLineQtyChanged(ctx context.Context, cart Cart, line CartLine)
	OnLineRemoved(ctx context.Context, cart Cart, line CartLine)
	OnTotalsRecalculated(ctx context.Context, cart Cart)
}
