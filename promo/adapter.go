/*
adapter.go - Cart lifecycle notifications to Reconcile calls

PURPOSE:
  The host cart raises four notifications; each maps to exactly one
  Reconcile call. No business logic lives here - the original sin this
  replaces was four independent handlers each re-implementing the full
  add/update/remove logic and cascading into each other.

MAPPING:
  line added / quantity changed  -> targeted pass for that product
  paid line removed              -> targeted pass (shrink or delete its
                                    free line)
  free line removed              -> no action (removal is terminal)
  totals recalculated            -> full resync (the trigger is ambiguous)
*/
package promo

import "context"

// Adapter subscribes the engine to a host cart's lifecycle notifications.
// One adapter serves one customer group's session.
type Adapter struct {
	Engine *Engine
	Group  GroupID

	// OnReport, when set, receives every settled pass that changed the
	// cart or recorded errors. Blocked passes and empty passes are not
	// reported. Hosts use this to render notices; the engine never does.
	OnReport func(Report)
}

var _ CartListener = (*Adapter)(nil)

func NewAdapter(engine *Engine, group GroupID) *Adapter {
	return &Adapter{Engine: engine, Group: group}
}

func (a *Adapter) OnLineAdded(ctx context.Context, cart Cart, line CartLine) {
	if line.IsFree {
		return
	}
	a.publish(a.Engine.Reconcile(ctx, cart, a.Group, line.ProductID))
}

func (a *Adapter) OnLineQtyChanged(ctx context.Context, cart Cart, line CartLine) {
	if line.IsFree {
		return
	}
	a.publish(a.Engine.Reconcile(ctx, cart, a.Group, line.ProductID))
}

func (a *Adapter) OnLineRemoved(ctx context.Context, cart Cart, line CartLine) {
	if line.IsFree {
		return
	}
	a.publish(a.Engine.Reconcile(ctx, cart, a.Group, line.ProductID))
}

func (a *Adapter) OnTotalsRecalculated(ctx context.Context, cart Cart) {
	a.publish(a.Engine.Reconcile(ctx, cart, a.Group))
}

func (a *Adapter) publish(r Report) {
	if a.OnReport == nil || r.Blocked {
		return
	}
	if r.Empty() && len(r.Errors) == 0 {
		return
	}
	a.OnReport(r)
}
