/*
index.go - Read view over the cart snapshot

PURPOSE:
  Partitions the cart's lines into paid and free per product. The partition
  key is the explicit IsFree tag, never the price: a paid line can
  legitimately carry a zero price for unrelated reasons.

FRESHNESS:
  The index is rebuilt from a fresh snapshot on every reconciliation pass
  and never cached incrementally. Stale-state bugs cost more than the
  rebuild does.

SEE ALSO:
  - engine.go: the only consumer
*/
package promo

import "sort"

// =============================================================================
// INDEX - Per-product paid/free partition
// =============================================================================

// ProductLines groups one product's visible cart lines.
type ProductLines struct {
	Paid []CartLine
	Free []CartLine
}

type Index struct {
	byProduct map[ProductID]*ProductLines
}

// BuildIndex partitions a cart snapshot. Hidden lines are excluded; free
// lines are ordered by ascending LineID so the canonical free line (the
// earliest-created) is always Free[0], regardless of snapshot order.
func BuildIndex(lines []CartLine) Index {
	ix := Index{byProduct: make(map[ProductID]*ProductLines)}
	for _, line := range lines {
		if line.Hidden {
			continue
		}
		pl := ix.byProduct[line.ProductID]
		if pl == nil {
			pl = &ProductLines{}
			ix.byProduct[line.ProductID] = pl
		}
		if line.IsFree {
			pl.Free = append(pl.Free, line)
		} else {
			pl.Paid = append(pl.Paid, line)
		}
	}
	for _, pl := range ix.byProduct {
		sort.Slice(pl.Free, func(i, j int) bool {
			return pl.Free[i].LineID < pl.Free[j].LineID
		})
	}
	return ix
}

// Products returns every product in the snapshot, sorted for deterministic
// iteration during a full resync.
func (ix Index) Products() []ProductID {
	ids := make([]ProductID, 0, len(ix.byProduct))
	for id := range ix.byProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PaidQty sums the paid quantities for a product (visible lines only).
func (ix Index) PaidQty(productID ProductID) Qty {
	total := ZeroQty()
	if pl := ix.byProduct[productID]; pl != nil {
		for _, line := range pl.Paid {
			total = total.Add(line.Quantity)
		}
	}
	return total
}

// FreeQty sums the free quantities for a product.
func (ix Index) FreeQty(productID ProductID) Qty {
	total := ZeroQty()
	for _, line := range ix.FreeLines(productID) {
		total = total.Add(line.Quantity)
	}
	return total
}

// PaidLines returns the product's paid lines.
func (ix Index) PaidLines(productID ProductID) []CartLine {
	if pl := ix.byProduct[productID]; pl != nil {
		return pl.Paid
	}
	return nil
}

// FreeLines returns the product's free lines, lowest LineID first.
func (ix Index) FreeLines(productID ProductID) []CartLine {
	if pl := ix.byProduct[productID]; pl != nil {
		return pl.Free
	}
	return nil
}
