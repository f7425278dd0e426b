package checkout

import (
	"context"
	"testing"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customer(id int64) models.Buyer {
	return models.Buyer{CustomerID: &id, Email: "buyer@example.com", Phone: "0100"}
}

func guest() models.Buyer {
	return models.Buyer{Email: "guest@example.com", Phone: "0200"}
}

func TestResolvePrefersShopCouponOverPlatform(t *testing.T) {
	reader := scenarioReader()
	reader.shopCodes[10] = []models.Coupon{{ID: 1, ShopID: ptr(10), Code: "HELLO", Type: models.DiscountTypeFixed, Discount: dec("7")}}
	reader.platform[10] = []models.Coupon{{ID: 2, Code: "HELLO", Type: models.DiscountTypeFixed, Discount: dec("9")}}
	resolver := NewCouponResolver(reader, reader)

	d, err := resolver.Resolve(context.Background(), guest(), 10, dec("100"), "HELLO", fixedNow)
	require.NoError(t, err)

	require.True(t, d.Applied())
	assert.Equal(t, int64(1), d.Coupon.ID)
	assertAmount(t, "7", d.Amount, "discount")
}

func TestResolveFallsBackToPlatformCoupon(t *testing.T) {
	reader := scenarioReader()
	reader.platform[10] = []models.Coupon{{ID: 2, Code: "HELLO", Type: models.DiscountTypeFixed, Discount: dec("9")}}
	resolver := NewCouponResolver(reader, reader)

	d, err := resolver.Resolve(context.Background(), guest(), 10, dec("100"), "HELLO", fixedNow)
	require.NoError(t, err)

	require.True(t, d.Applied())
	assert.Equal(t, int64(2), d.Coupon.ID)
}

func TestResolveUnknownCodeIsNotAnError(t *testing.T) {
	resolver := NewCouponResolver(scenarioReader(), scenarioReader())

	d, err := resolver.Resolve(context.Background(), guest(), 10, dec("100"), "NOPE", fixedNow)
	require.NoError(t, err)

	assert.False(t, d.Applied())
	assert.True(t, d.Amount.IsZero())
}

func TestResolveUnknownShop(t *testing.T) {
	reader := newFakeReader()
	resolver := NewCouponResolver(reader, reader)

	_, err := resolver.Resolve(context.Background(), guest(), 99, dec("100"), "", fixedNow)

	assert.ErrorIs(t, err, database.ErrShopNotFound)
}

func TestResolveCollectedFirstUsableWins(t *testing.T) {
	reader := scenarioReader()
	reader.collected[7] = []models.Coupon{
		{ID: 1, ShopID: ptr(10), Type: models.DiscountTypeFixed, Discount: dec("10"), MinAmount: dec("500")},
		{ID: 2, ShopID: ptr(10), Type: models.DiscountTypeFixed, Discount: dec("4")},
		{ID: 3, ShopID: ptr(10), Type: models.DiscountTypeFixed, Discount: dec("8")},
	}
	resolver := NewCouponResolver(reader, reader)

	d, err := resolver.Resolve(context.Background(), customer(7), 10, dec("100"), "", fixedNow)
	require.NoError(t, err)

	require.True(t, d.Applied())
	assert.Equal(t, int64(2), d.Coupon.ID)

	d, err = resolver.Resolve(context.Background(), guest(), 10, dec("100"), "", fixedNow)
	require.NoError(t, err)
	assert.False(t, d.Applied(), "guests have no collected coupons")
}

func TestResolveRespectsUsageLimit(t *testing.T) {
	limit := 1
	reader := scenarioReader()
	reader.shopCodes[10] = []models.Coupon{{
		ID: 1, ShopID: ptr(10), Code: "ONCE", Type: models.DiscountTypeFixed, Discount: dec("5"), LimitForUser: &limit,
	}}
	reader.applied[1] = 1
	resolver := NewCouponResolver(reader, reader)

	d, err := resolver.Resolve(context.Background(), customer(7), 10, dec("100"), "ONCE", fixedNow)
	require.NoError(t, err)

	assert.False(t, d.Applied())
}
