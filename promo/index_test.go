package promo_test

import (
	"testing"

	"github.com/warp/promo-engine/promo"
)

func paidLine(id promo.LineID, product promo.ProductID, qty int) promo.CartLine {
	return promo.CartLine{
		LineID:    id,
		ProductID: product,
		Quantity:  promo.NewQtyFromInt(qty),
		UnitPrice: promo.NewQtyFromInt(10),
	}
}

func freeLine(id promo.LineID, product promo.ProductID, qty int) promo.CartLine {
	line := promo.NewFreeLine(product, promo.NewQtyFromInt(qty))
	line.LineID = id
	return line
}

func TestBuildIndex_PartitionsOnTagNotPrice(t *testing.T) {
	// GIVEN: A zero-priced paid line (giveaway priced by a different rule)
	//        and a promotion free line for the same product
	// WHEN: Building the index
	// THEN: Only the tagged line lands in the free partition

	zeroPricedPaid := promo.CartLine{
		LineID:    1,
		ProductID: "sku-10",
		Quantity:  promo.NewQtyFromInt(2),
		UnitPrice: promo.ZeroQty(),
	}
	ix := promo.BuildIndex([]promo.CartLine{
		zeroPricedPaid,
		freeLine(2, "sku-10", 2),
	})

	if n := len(ix.PaidLines("sku-10")); n != 1 {
		t.Errorf("expected 1 paid line, got %d", n)
	}
	if n := len(ix.FreeLines("sku-10")); n != 1 {
		t.Errorf("expected 1 free line, got %d", n)
	}
	if !ix.PaidQty("sku-10").Equal(promo.NewQtyFromInt(2)) {
		t.Errorf("expected paid qty 2, got %v", ix.PaidQty("sku-10"))
	}
}

func TestBuildIndex_HiddenLinesExcluded(t *testing.T) {
	hidden := paidLine(1, "sku-10", 5)
	hidden.Hidden = true

	ix := promo.BuildIndex([]promo.CartLine{hidden, paidLine(2, "sku-10", 3)})

	if !ix.PaidQty("sku-10").Equal(promo.NewQtyFromInt(3)) {
		t.Errorf("expected paid qty 3 (hidden excluded), got %v", ix.PaidQty("sku-10"))
	}
}

func TestBuildIndex_FreeLinesSortedByLineID(t *testing.T) {
	// GIVEN: Duplicate free lines arriving in arbitrary snapshot order
	// WHEN: Building the index
	// THEN: Free[0] is the lowest LineID (the earliest-created, canonical line)

	ix := promo.BuildIndex([]promo.CartLine{
		freeLine(9, "sku-10", 1),
		freeLine(3, "sku-10", 1),
		freeLine(7, "sku-10", 1),
	})

	free := ix.FreeLines("sku-10")
	if len(free) != 3 {
		t.Fatalf("expected 3 free lines, got %d", len(free))
	}
	for i, want := range []promo.LineID{3, 7, 9} {
		if free[i].LineID != want {
			t.Errorf("free[%d]: expected LineID %d, got %d", i, want, free[i].LineID)
		}
	}
}

func TestBuildIndex_PaidQtySumsAcrossLines(t *testing.T) {
	// Split shipments put the same product on several paid lines.
	ix := promo.BuildIndex([]promo.CartLine{
		paidLine(1, "sku-10", 2),
		paidLine(2, "sku-10", 3),
		paidLine(3, "sku-20", 1),
	})

	if !ix.PaidQty("sku-10").Equal(promo.NewQtyFromInt(5)) {
		t.Errorf("expected paid qty 5, got %v", ix.PaidQty("sku-10"))
	}
	if !ix.PaidQty("sku-20").Equal(promo.NewQtyFromInt(1)) {
		t.Errorf("expected paid qty 1, got %v", ix.PaidQty("sku-20"))
	}
}

func TestIndex_ProductsSortedForDeterministicResync(t *testing.T) {
	ix := promo.BuildIndex([]promo.CartLine{
		paidLine(1, "sku-30", 1),
		paidLine(2, "sku-10", 1),
		paidLine(3, "sku-20", 1),
	})

	products := ix.Products()
	want := []promo.ProductID{"sku-10", "sku-20", "sku-30"}
	if len(products) != len(want) {
		t.Fatalf("expected %d products, got %d", len(want), len(products))
	}
	for i := range want {
		if products[i] != want[i] {
			t.Errorf("products[%d]: expected %s, got %s", i, want[i], products[i])
		}
	}
}

func TestIndex_UnknownProductIsEmpty(t *testing.T) {
	ix := promo.BuildIndex(nil)

	if !ix.PaidQty("missing").IsZero() {
		t.Error("unknown product should have zero paid qty")
	}
	if ix.FreeLines("missing") != nil {
		t.Error("unknown product should have no free lines")
	}
}
