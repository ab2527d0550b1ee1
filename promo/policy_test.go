package promo_test

import (
	"testing"

	"github.com/warp/promo-engine/promo"
)

// =============================================================================
// CAP COMBINATION TESTS
// =============================================================================

func TestCap_Min_TighterFiniteLimitWins(t *testing.T) {
	// GIVEN: A per-product cap of 3 and a global cap of 5
	// WHEN: Combining them
	// THEN: The effective cap is 3

	combined := promo.CapOf(3).Min(promo.CapOf(5))

	if !combined.IsCapped() {
		t.Fatal("expected combined cap to be finite")
	}
	if !combined.Limit().Equal(promo.NewQtyFromInt(3)) {
		t.Errorf("expected limit 3, got %v", combined.Limit())
	}
}

func TestCap_Min_UncappedIsIdentity(t *testing.T) {
	// GIVEN: One uncapped side
	// WHEN: Combining with a finite cap
	// THEN: The finite cap wins, in either order

	if got := promo.Uncapped().Min(promo.CapOf(4)); !got.Limit().Equal(promo.NewQtyFromInt(4)) {
		t.Errorf("uncapped.Min(4): expected 4, got %v", got.Limit())
	}
	if got := promo.CapOf(4).Min(promo.Uncapped()); !got.Limit().Equal(promo.NewQtyFromInt(4)) {
		t.Errorf("4.Min(uncapped): expected 4, got %v", got.Limit())
	}
}

func TestCap_Min_BothUncapped(t *testing.T) {
	// GIVEN: Both sides uncapped
	// WHEN: Combining
	// THEN: The result imposes no limit

	combined := promo.Uncapped().Min(promo.Uncapped())

	if combined.IsCapped() {
		t.Error("expected combined cap to be uncapped")
	}
	q := promo.NewQtyFromInt(1000000)
	if !combined.Apply(q).Equal(q) {
		t.Errorf("uncapped cap clamped %v", q)
	}
}

func TestCapOf_ZeroAndNegativeMeanUncapped(t *testing.T) {
	// Store configuration has always encoded "no limit" as zero.
	if promo.CapOf(0).IsCapped() {
		t.Error("CapOf(0) should be uncapped")
	}
	if promo.CapOf(-1).IsCapped() {
		t.Error("CapOf(-1) should be uncapped")
	}
	if !promo.CapOf(0.5).IsCapped() {
		t.Error("CapOf(0.5) should be capped")
	}
}

// =============================================================================
// OWED QUANTITY TESTS
// =============================================================================

func TestFreeQtyOwed_PerProductCapBindsFirst(t *testing.T) {
	// GIVEN: 10 paid units, per-product cap 3, global cap 5
	// WHEN: Computing the owed free quantity
	// THEN: 3 units are owed

	p := promo.Policy{Divisor: 1}
	owed := p.FreeQtyOwed(promo.NewQtyFromInt(10), promo.CapOf(3), promo.CapOf(5))

	if !owed.Equal(promo.NewQtyFromInt(3)) {
		t.Errorf("expected 3, got %v", owed)
	}
}

func TestFreeQtyOwed_GlobalCapBindsWhenProductUncapped(t *testing.T) {
	// GIVEN: 10 paid units, no per-product cap, global cap 4
	// WHEN: Computing the owed free quantity
	// THEN: 4 units are owed

	p := promo.Policy{Divisor: 1}
	owed := p.FreeQtyOwed(promo.NewQtyFromInt(10), promo.Uncapped(), promo.CapOf(4))

	if !owed.Equal(promo.NewQtyFromInt(4)) {
		t.Errorf("expected 4, got %v", owed)
	}
}

func TestFreeQtyOwed_UncappedMatchesPaidQuantity(t *testing.T) {
	// GIVEN: 7 paid units and no caps
	// WHEN: Computing the owed free quantity
	// THEN: 7 units are owed (one free per paid unit)

	p := promo.Policy{Divisor: 1}
	owed := p.FreeQtyOwed(promo.NewQtyFromInt(7), promo.Uncapped(), promo.Uncapped())

	if !owed.Equal(promo.NewQtyFromInt(7)) {
		t.Errorf("expected 7, got %v", owed)
	}
}

func TestFreeQtyOwed_DivisorFloors(t *testing.T) {
	// GIVEN: Divisor 2 (one free per two paid units)
	// WHEN: Computing owed for odd paid quantities
	// THEN: The result is floored, and 1 paid unit earns nothing

	p := promo.Policy{Divisor: 2}

	cases := []struct {
		paid int
		want int
	}{
		{1, 0},
		{2, 1},
		{5, 2},
		{10, 5},
	}
	for _, c := range cases {
		owed := p.FreeQtyOwed(promo.NewQtyFromInt(c.paid), promo.Uncapped(), promo.Uncapped())
		if !owed.Equal(promo.NewQtyFromInt(c.want)) {
			t.Errorf("divisor 2, paid %d: expected %d, got %v", c.paid, c.want, owed)
		}
	}
}

func TestFreeQtyOwed_NonPositivePaidYieldsZero(t *testing.T) {
	// Pure and total: no error path for empty or negative input.
	p := promo.Policy{Divisor: 1}

	if got := p.FreeQtyOwed(promo.ZeroQty(), promo.Uncapped(), promo.Uncapped()); !got.IsZero() {
		t.Errorf("paid 0: expected 0, got %v", got)
	}
	if got := p.FreeQtyOwed(promo.NewQtyFromInt(-3), promo.Uncapped(), promo.Uncapped()); !got.IsZero() {
		t.Errorf("paid -3: expected 0, got %v", got)
	}
}

func TestFreeQtyOwed_FractionalQuantities(t *testing.T) {
	// GIVEN: A weighed product sold in fractional quantities
	// WHEN: Computing owed with a fractional cap
	// THEN: Decimal arithmetic holds exactly, no float drift

	p := promo.Policy{Divisor: 1}
	owed := p.FreeQtyOwed(promo.MustParseQty("2.5"), promo.Uncapped(), promo.CapOf(1.5))

	if !owed.Equal(promo.MustParseQty("1.5")) {
		t.Errorf("expected 1.5, got %v", owed)
	}
}
