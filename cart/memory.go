/*
Package cart provides an in-memory host cart.

PURPOSE:
  A reference implementation of promo.Cart for tests and the demo server.
  It behaves like a real host: every mutation dispatches the matching
  lifecycle notification synchronously on the mutating goroutine -
  including mutations made by the reconciliation engine itself. That
  feedback loop is deliberate; it is what the engine's guard exists for.

CONCURRENCY:
  A mutex protects the line map. Notifications are dispatched after the
  mutex is released so listeners can read the cart (and mutate it) without
  deadlocking.

SEE ALSO:
  - promo/cart.go: the interfaces implemented here
*/
package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/promo-engine/promo"
)

// =============================================================================
// MEMORY CART
// =============================================================================

type Memory struct {
	mu        sync.Mutex
	id        promo.CartID
	seq       promo.LineID
	lines     map[promo.LineID]promo.CartLine
	listeners []promo.CartListener

	// RejectMutation, when set, is consulted before every mutation and can
	// veto it. Tests use this to simulate downstream stock or validation
	// failures. op is "add", "setqty", or "remove".
	RejectMutation func(op string, line promo.CartLine) error
}

func NewMemory() *Memory {
	return &Memory{
		id:    promo.CartID(uuid.NewString()),
		lines: make(map[promo.LineID]promo.CartLine),
	}
}

// Subscribe registers a listener for the four lifecycle notifications.
func (m *Memory) Subscribe(l promo.CartListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Memory) ID() promo.CartID {
	return m.id
}

// Lines returns a snapshot ordered by LineID.
func (m *Memory) Lines(_ context.Context) ([]promo.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]promo.CartLine, 0, len(m.lines))
	for _, line := range m.lines {
		snapshot = append(snapshot, line)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].LineID < snapshot[j].LineID
	})
	return snapshot, nil
}

// AddLine stores the line under a fresh monotonic LineID and notifies.
func (m *Memory) AddLine(ctx context.Context, line promo.CartLine) (promo.LineID, error) {
	m.mu.Lock()
	if err := m.veto("add", line); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.seq++
	line.LineID = m.seq
	m.lines[line.LineID] = line
	m.mu.Unlock()

	m.notify(func(l promo.CartListener) { l.OnLineAdded(ctx, m, line) })
	return line.LineID, nil
}

// SetLineQty resizes an existing line and notifies.
func (m *Memory) SetLineQty(ctx context.Context, id promo.LineID, qty promo.Qty) error {
	m.mu.Lock()
	line, ok := m.lines[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", promo.ErrUnknownLine, id)
	}
	if err := m.veto("setqty", line); err != nil {
		m.mu.Unlock()
		return err
	}
	line.Quantity = qty
	m.lines[id] = line
	m.mu.Unlock()

	m.notify(func(l promo.CartListener) { l.OnLineQtyChanged(ctx, m, line) })
	return nil
}

// RemoveLine deletes an existing line and notifies with the removed line.
func (m *Memory) RemoveLine(ctx context.Context, id promo.LineID) error {
	m.mu.Lock()
	line, ok := m.lines[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", promo.ErrUnknownLine, id)
	}
	if err := m.veto("remove", line); err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.lines, id)
	m.mu.Unlock()

	m.notify(func(l promo.CartListener) { l.OnLineRemoved(ctx, m, line) })
	return nil
}

// Recalculate simulates the host's totals collection, the ambiguous bulk
// trigger that maps to a full resync.
func (m *Memory) Recalculate(ctx context.Context) {
	m.notify(func(l promo.CartListener) { l.OnTotalsRecalculated(ctx, m) })
}

// =============================================================================
// INTERNALS
// =============================================================================

// veto is called with the mutex held.
func (m *Memory) veto(op string, line promo.CartLine) error {
	if m.RejectMutation == nil {
		return nil
	}
	return m.RejectMutation(op, line)
}

func (m *Memory) notify(fn func(promo.CartListener)) {
	m.mu.Lock()
	listeners := make([]promo.CartListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		fn(l)
	}
}
