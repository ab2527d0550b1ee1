/*
guard.go - Reentrancy control

PURPOSE:
  Applying free-line mutations raises the same cart notifications the
  Adapter listens for. Without a guard, every free-line write would
  re-trigger Reconcile and recurse without bound. The Guard makes a pass
  for a cart refuse to start while another pass for the same cart is in
  progress.

SCOPE:
  Keyed by cart identity, not process-wide. A shared "already processed"
  flag would leak suppression across unrelated concurrent carts; scoping
  the token to the cart keeps independent carts independent.

DISCIPLINE:
  Enter returns a release closure; the engine defers it so the token is
  released on every exit path - success, early return, or error.
*/
package promo

import "sync"

// Guard is a scoped reentrancy lock keyed by cart identity.
type Guard struct {
	mu     sync.Mutex
	active map[CartID]bool
}

func NewGuard() *Guard {
	return &Guard{active: make(map[CartID]bool)}
}

// Enter acquires the token for a cart. If a pass for the same cart is
// already in progress, ok is false and the caller must no-op immediately.
// On success the returned release function must run on every exit path.
func (g *Guard) Enter(cartID CartID) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active[cartID] {
		return nil, false
	}
	g.active[cartID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, cartID)
			g.mu.Unlock()
		})
	}, true
}

// Held reports whether a pass is in progress for the cart.
func (g *Guard) Held(cartID CartID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[cartID]
}
