package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/promo-engine/promo"
	"github.com/warp/promo-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// PRODUCT RULE TESTS
// =============================================================================

func TestProductRule_SaveAndRetrieve(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveProductRule(ctx, sqlite.ProductRule{
		ProductID: "sku-10",
		Enabled:   true,
		MaxFree:   3,
	})
	require.NoError(t, err)

	rule, err := store.ProductRule(ctx, "sku-10")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.Enabled)
	assert.Equal(t, 3.0, rule.MaxFree)
}

func TestProductRule_UpsertOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProductRule(ctx, sqlite.ProductRule{
		ProductID: "sku-10", Enabled: true, MaxFree: 3,
	}))
	require.NoError(t, store.SaveProductRule(ctx, sqlite.ProductRule{
		ProductID: "sku-10", Enabled: false, MaxFree: 0,
	}))

	rule, err := store.ProductRule(ctx, "sku-10")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.False(t, rule.Enabled)
	assert.Equal(t, 0.0, rule.MaxFree)
}

func TestProductRule_MissingRowIsNilNotError(t *testing.T) {
	store := newTestStore(t)

	rule, err := store.ProductRule(context.Background(), "never-configured")
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestListProductRules_OrderedByProductID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []promo.ProductID{"sku-30", "sku-10", "sku-20"} {
		require.NoError(t, store.SaveProductRule(ctx, sqlite.ProductRule{ProductID: id, Enabled: true}))
	}

	rules, err := store.ListProductRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, promo.ProductID("sku-10"), rules[0].ProductID)
	assert.Equal(t, promo.ProductID("sku-30"), rules[2].ProductID)
}

func TestDeleteProductRule(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProductRule(ctx, sqlite.ProductRule{ProductID: "sku-10", Enabled: true}))
	require.NoError(t, store.DeleteProductRule(ctx, "sku-10"))

	rule, err := store.ProductRule(ctx, "sku-10")
	require.NoError(t, err)
	assert.Nil(t, rule)
}

// =============================================================================
// GLOBAL RULE TESTS
// =============================================================================

func TestGlobalRule_RoundTripWithWindowAndGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveGlobalRule(ctx, sqlite.GlobalRule{
		Enabled:        true,
		MaxFree:        5,
		Divisor:        2,
		CustomerGroups: []promo.GroupID{"retail", "wholesale"},
		ActiveFrom:     &from,
		ActiveTo:       &to,
	}))

	rule, err := store.GlobalRule(ctx)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.Enabled)
	assert.Equal(t, 5.0, rule.MaxFree)
	assert.Equal(t, 2, rule.Divisor)
	assert.Equal(t, []promo.GroupID{"retail", "wholesale"}, rule.CustomerGroups)
	require.NotNil(t, rule.ActiveFrom)
	assert.True(t, rule.ActiveFrom.Equal(from))
	require.NotNil(t, rule.ActiveTo)
	assert.True(t, rule.ActiveTo.Equal(to))
}

func TestGlobalRule_OpenWindowAndEmptyGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGlobalRule(ctx, sqlite.GlobalRule{Enabled: true}))

	rule, err := store.GlobalRule(ctx)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Nil(t, rule.ActiveFrom)
	assert.Nil(t, rule.ActiveTo)
	assert.Empty(t, rule.CustomerGroups)
	assert.Equal(t, 1, rule.Divisor, "divisor should default to 1")
}

func TestGlobalRule_NeverConfiguredIsNil(t *testing.T) {
	store := newTestStore(t)

	rule, err := store.GlobalRule(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rule)
}

// =============================================================================
// ENGINE COLLABORATOR TESTS
// =============================================================================

func TestPromotionConfig_MissingProductIsDisabledNotError(t *testing.T) {
	// Fail closed: an unconfigured product never earns free lines, and the
	// lookup itself does not fail.
	store := newTestStore(t)

	cfg, err := store.PromotionConfig(context.Background(), "never-configured")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.PerProductFreeCap.IsCapped())
}

func TestPromotionConfig_ZeroMaxFreeMeansUncapped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProductRule(ctx, sqlite.ProductRule{
		ProductID: "sku-10", Enabled: true, MaxFree: 0,
	}))

	cfg, err := store.PromotionConfig(ctx, "sku-10")
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.PerProductFreeCap.IsCapped())
}

func TestGlobalConfig_UnconfiguredStoreIsDisabled(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.GlobalConfig(context.Background(), "retail")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
}

func TestGlobalConfig_FeedsEngineEligibility(t *testing.T) {
	// GIVEN: A stored promotion restricted to the vip group
	// WHEN: Converting to the engine config
	// THEN: The engine predicate honors the stored groups

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGlobalRule(ctx, sqlite.GlobalRule{
		Enabled:        true,
		CustomerGroups: []promo.GroupID{"vip"},
	}))
	require.NoError(t, store.SaveProductRule(ctx, sqlite.ProductRule{
		ProductID: "sku-10", Enabled: true,
	}))

	global, err := store.GlobalConfig(ctx, "vip")
	require.NoError(t, err)
	product, err := store.PromotionConfig(ctx, "sku-10")
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, promo.Eligible(product, global, "vip", now))
	assert.False(t, promo.Eligible(product, global, "retail", now))
}

func TestReset_ClearsAllConfiguration(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGlobalRule(ctx, sqlite.GlobalRule{Enabled: true}))
	require.NoError(t, store.SaveProductRule(ctx, sqlite.ProductRule{ProductID: "sku-10", Enabled: true}))

	require.NoError(t, store.Reset(ctx))

	rule, err := store.GlobalRule(ctx)
	require.NoError(t, err)
	assert.Nil(t, rule)
	rules, err := store.ListProductRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
