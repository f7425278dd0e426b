package pricing

import (
	"testing"
	"time"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msg)
}

func vat(pct string) models.VatTax {
	return models.VatTax{Name: "VAT", Percentage: dec(pct), Deduction: models.DeductionExclusive}
}

func ptr(v int64) *int64 { return &v }

func TestResolveUnitPriceWithAddOnsAndStackedVat(t *testing.T) {
	product := &models.Product{
		Price:    dec("100"),
		Sizes:    map[int64]models.ProductOption{7: {ID: 7, Name: "XL", Price: dec("10")}},
		Colors:   map[int64]models.ProductOption{3: {ID: 3, Name: "Red", Price: dec("5")}},
		VatTaxes: []models.VatTax{vat("10"), vat("5")},
	}

	got := ResolveUnitPrice(product, ptr(7), ptr(3), now)

	assertDecimal(t, "115", got.PreTaxPrice)
	assertDecimal(t, "17.25", got.TaxAmount)
	assertDecimal(t, "132.25", got.UnitPrice)
	assertDecimal(t, "132.25", got.MainPrice)
	assertDecimal(t, "0", got.DiscountPercentage)
	assert.Nil(t, got.FlashSale)
	assert.False(t, got.Discounted())
}

func TestResolveUnitPriceIgnoresUnknownOptionsAndZeroRules(t *testing.T) {
	product := &models.Product{
		Price:    dec("40"),
		VatTaxes: []models.VatTax{vat("0"), vat("-5")},
	}

	got := ResolveUnitPrice(product, ptr(99), nil, now)

	assertDecimal(t, "40", got.UnitPrice)
	assertDecimal(t, "0", got.TaxAmount)
}

func TestResolveUnitPriceUsesDiscountPrice(t *testing.T) {
	product := &models.Product{Price: dec("200"), DiscountPrice: dec("150")}

	got := ResolveUnitPrice(product, nil, nil, now)

	assertDecimal(t, "150", got.UnitPrice)
	assertDecimal(t, "200", got.MainPrice)
	assertDecimal(t, "25", got.DiscountPercentage)
	assert.True(t, got.Discounted())
}

func TestResolveUnitPriceFlashSaleOverridesDiscount(t *testing.T) {
	product := &models.Product{
		Price:         dec("100"),
		DiscountPrice: dec("90"),
		VatTaxes:      []models.VatTax{vat("10")},
		FlashSales: []models.FlashSale{{
			ID: 4, IsActive: true, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour),
			Price: dec("70"), Discount: dec("30"), Quantity: 10, SoldQuantity: 2,
		}},
	}

	got := ResolveUnitPrice(product, nil, nil, now)

	require.NotNil(t, got.FlashSale)
	assert.Equal(t, int64(4), got.FlashSale.ID)
	assertDecimal(t, "77", got.UnitPrice)
	assertDecimal(t, "110", got.MainPrice)
	assertDecimal(t, "30", got.DiscountPercentage)
}

func TestResolveUnitPriceExhaustedFlashSaleFallsBack(t *testing.T) {
	product := &models.Product{
		Price:         dec("100"),
		DiscountPrice: dec("80"),
		FlashSales: []models.FlashSale{{
			ID: 4, IsActive: true, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour),
			Price: dec("50"), Quantity: 6, SoldQuantity: 6,
		}},
	}

	got := ResolveUnitPrice(product, nil, nil, now)

	assert.Nil(t, got.FlashSale)
	assertDecimal(t, "80", got.UnitPrice)
}

func TestResolveUnitPriceNoDiscountIsListPlusAddOnsPlusTax(t *testing.T) {
	cases := []struct {
		price, size, color, pct, want string
	}{
		{"100", "0", "0", "10", "110"},
		{"19.99", "1.01", "0", "0", "21"},
		{"50", "5", "2.5", "20", "69"},
	}

	for _, tc := range cases {
		product := &models.Product{
			Price:    dec(tc.price),
			Sizes:    map[int64]models.ProductOption{1: {Price: dec(tc.size)}},
			Colors:   map[int64]models.ProductOption{1: {Price: dec(tc.color)}},
			VatTaxes: []models.VatTax{vat(tc.pct)},
		}
		got := ResolveUnitPrice(product, ptr(1), ptr(1), now)
		assertDecimal(t, tc.want, got.UnitPrice, tc)
	}
}

func TestLineTotals(t *testing.T) {
	product := &models.Product{Price: dec("100"), VatTaxes: []models.VatTax{vat("10")}}

	got := ResolveUnitPrice(product, nil, nil, now)

	assertDecimal(t, "220", got.LineTotal(2))
	assertDecimal(t, "20", got.LineTax(2))
}

func TestOrderBaseVat(t *testing.T) {
	subtotal := dec("200")

	assertDecimal(t, "10", OrderBaseVat(subtotal, &models.VatTax{Percentage: dec("5"), Deduction: models.DeductionExclusive}))
	assertDecimal(t, "0", OrderBaseVat(subtotal, &models.VatTax{Percentage: dec("5"), Deduction: models.DeductionInclusive}))
	assertDecimal(t, "0", OrderBaseVat(subtotal, &models.VatTax{Percentage: dec("0"), Deduction: models.DeductionExclusive}))
	assertDecimal(t, "0", OrderBaseVat(subtotal, nil))
}

func TestCouponDiscount(t *testing.T) {
	limit := 2
	percent := models.Coupon{Type: models.DiscountTypePercentage, Discount: dec("35")}
	capped := models.Coupon{Type: models.DiscountTypePercentage, Discount: dec("35"), MaxDiscountAmount: dec("20")}
	minimum := models.Coupon{Type: models.DiscountTypeFixed, Discount: dec("10"), MinAmount: dec("50")}
	limited := models.Coupon{Type: models.DiscountTypeFixed, Discount: dec("10"), LimitForUser: &limit}
	large := models.Coupon{Type: models.DiscountTypeFixed, Discount: dec("80")}

	assertDecimal(t, "35", CouponDiscount(percent, dec("100"), 0))
	assertDecimal(t, "20", CouponDiscount(capped, dec("100"), 0))
	assertDecimal(t, "0", CouponDiscount(minimum, dec("40"), 0))
	assertDecimal(t, "10", CouponDiscount(minimum, dec("50"), 0))
	assertDecimal(t, "10", CouponDiscount(limited, dec("100"), 1))
	assertDecimal(t, "0", CouponDiscount(limited, dec("100"), 2))
	assertDecimal(t, "30", CouponDiscount(large, dec("30"), 0))
}

func TestCouponDiscountDefaultLimit(t *testing.T) {
	coupon := models.Coupon{Type: models.DiscountTypeFixed, Discount: dec("5")}

	assertDecimal(t, "5", CouponDiscount(coupon, dec("100"), models.DefaultCouponLimit-1))
	assertDecimal(t, "0", CouponDiscount(coupon, dec("100"), models.DefaultCouponLimit))
}

func TestTieredDelivery(t *testing.T) {
	policy := NewTieredDelivery(config.DeliveryConfig{
		BaseCharge:   dec("15"),
		PerExtraItem: dec("5"),
		FreeQuantity: 2,
	})

	assertDecimal(t, "0", policy.Charge(0))
	assertDecimal(t, "15", policy.Charge(1))
	assertDecimal(t, "15", policy.Charge(2))
	assertDecimal(t, "25", policy.Charge(4))
}

func TestRound2(t *testing.T) {
	assertDecimal(t, "10.13", Round2(dec("10.125")))
	assertDecimal(t, "0.33", Round2(dec("1").Div(dec("3"))))
}
