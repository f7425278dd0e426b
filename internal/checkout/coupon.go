package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// Discount is a resolved coupon. Coupon is nil when nothing applies.
type Discount struct {
	Coupon *models.Coupon
	Amount decimal.Decimal
}

func (d Discount) Applied() bool {
	return d.Coupon != nil && d.Amount.IsPositive()
}

type CouponResolver struct {
	catalog Catalog
	coupons CouponSource
}

func NewCouponResolver(catalog Catalog, coupons CouponSource) *CouponResolver {
	return &CouponResolver{catalog: catalog, coupons: coupons}
}

// Resolve picks the coupon for one shop's subtotal. With a code it tries
// the shop's own coupon, then a platform coupon mapped to the shop. Without
// one it walks the buyer's collected coupons in collection order and takes
// the first that yields a discount. A coupon that yields nothing is not
// applied and is not an error.
func (r *CouponResolver) Resolve(ctx context.Context, buyer models.Buyer, shopID int64, amount decimal.Decimal, code string, now time.Time) (Discount, error) {
	if _, err := r.catalog.Shop(ctx, shopID); err != nil {
		return Discount{}, err
	}

	if code != "" {
		coupon, err := r.coupons.ShopCoupon(ctx, shopID, code, now)
		if err != nil {
			return Discount{}, err
		}
		if coupon == nil {
			coupon, err = r.coupons.PlatformCoupon(ctx, shopID, code, now)
			if err != nil {
				return Discount{}, err
			}
		}
		if coupon == nil {
			return Discount{}, nil
		}
		return r.discount(ctx, *coupon, buyer, amount)
	}

	if buyer.IsGuest() {
		return Discount{}, nil
	}

	collected, err := r.coupons.CollectedCoupons(ctx, *buyer.CustomerID, shopID, now)
	if err != nil {
		return Discount{}, err
	}
	for _, coupon := range collected {
		d, err := r.discount(ctx, coupon, buyer, amount)
		if err != nil {
			return Discount{}, err
		}
		if d.Applied() {
			return d, nil
		}
	}
	return Discount{}, nil
}

func (r *CouponResolver) discount(ctx context.Context, coupon models.Coupon, buyer models.Buyer, amount decimal.Decimal) (Discount, error) {
	applied, err := r.coupons.AppliedCount(ctx, coupon.ID, buyer)
	if err != nil {
		return Discount{}, fmt.Errorf("coupon %d usage: %w", coupon.ID, err)
	}

	value := pricing.Round2(pricing.CouponDiscount(coupon, amount, applied))
	if !value.IsPositive() {
		return Discount{}, nil
	}
	return Discount{Coupon: &coupon, Amount: value}, nil
}
