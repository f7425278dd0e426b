package pricing

import (
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// CouponDiscount is the discount coupon grants on amount for a buyer who has
// already used it appliedCount times. It is zero when the per-user limit is
// reached or amount is below the coupon minimum. The result never exceeds
// the coupon cap or amount itself.
func CouponDiscount(coupon models.Coupon, amount decimal.Decimal, appliedCount int) decimal.Decimal {
	if appliedCount >= coupon.UsageLimit() || amount.LessThan(coupon.MinAmount) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch coupon.Type {
	case models.DiscountTypePercentage:
		discount = amount.Mul(coupon.Discount).Div(hundred)
	default:
		discount = coupon.Discount
	}

	if coupon.MaxDiscountAmount.IsPositive() && discount.GreaterThan(coupon.MaxDiscountAmount) {
		discount = coupon.MaxDiscountAmount
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
