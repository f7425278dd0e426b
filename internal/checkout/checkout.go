// Package checkout turns cart lines into a priced breakdown and, on
// placement, into orders sharing one payment.
package checkout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/safar/storefront/internal/checkout")

type Catalog interface {
	Product(ctx context.Context, id int64) (*models.Product, error)
	Shop(ctx context.Context, id int64) (*models.Shop, error)
}

// CouponSource finds coupons. Lookups return nil when nothing matches.
type CouponSource interface {
	ShopCoupon(ctx context.Context, shopID int64, code string, now time.Time) (*models.Coupon, error)
	PlatformCoupon(ctx context.Context, shopID int64, code string, now time.Time) (*models.Coupon, error)
	CollectedCoupons(ctx context.Context, customerID, shopID int64, now time.Time) ([]models.Coupon, error)
	AppliedCount(ctx context.Context, couponID int64, buyer models.Buyer) (int, error)
}

type TaxSettings interface {
	OrderBaseTax(ctx context.Context) (*models.VatTax, error)
}

// Reader is everything pricing reads from storage.
type Reader interface {
	Catalog
	CouponSource
	TaxSettings
}

type CheckoutRequest struct {
	Buyer      models.Buyer
	Lines      []models.CartLine
	AddressID  *int64
	CouponCode string
}

type ShopBreakdown struct {
	ShopID         int64           `json:"shop_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	OrderTaxAmount decimal.Decimal `json:"order_tax_amount"`
	GiftCharge     decimal.Decimal `json:"gift_charge"`
	PayableAmount  decimal.Decimal `json:"payable_amount"`
	CouponID       *int64          `json:"coupon_id,omitempty"`
	Orders         int             `json:"orders"`
}

// Breakdown is the checkout preview. Every amount has two decimals.
type Breakdown struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	OrderTaxAmount decimal.Decimal `json:"order_tax_amount"`
	PayableAmount  decimal.Decimal `json:"payable_amount"`
	GiftCharge     decimal.Decimal `json:"gift_charge"`
	ApplyCoupon    bool            `json:"apply_coupon"`
	Shops          []ShopBreakdown `json:"shops"`
}

func (s ShopBreakdown) MarshalJSON() ([]byte, error) {
	type plain ShopBreakdown
	return json.Marshal(struct {
		plain
		TotalAmount    models.Money `json:"total_amount"`
		TaxAmount      models.Money `json:"tax_amount"`
		DeliveryCharge models.Money `json:"delivery_charge"`
		CouponDiscount models.Money `json:"coupon_discount"`
		OrderTaxAmount models.Money `json:"order_tax_amount"`
		GiftCharge     models.Money `json:"gift_charge"`
		PayableAmount  models.Money `json:"payable_amount"`
	}{
		plain:          plain(s),
		TotalAmount:    models.Money(s.TotalAmount),
		TaxAmount:      models.Money(s.TaxAmount),
		DeliveryCharge: models.Money(s.DeliveryCharge),
		CouponDiscount: models.Money(s.CouponDiscount),
		OrderTaxAmount: models.Money(s.OrderTaxAmount),
		GiftCharge:     models.Money(s.GiftCharge),
		PayableAmount:  models.Money(s.PayableAmount),
	})
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	type plain Breakdown
	shops := b.Shops
	if shops == nil {
		shops = []ShopBreakdown{}
	}
	return json.Marshal(struct {
		plain
		TotalAmount    models.Money    `json:"total_amount"`
		DeliveryCharge models.Money    `json:"delivery_charge"`
		CouponDiscount models.Money    `json:"coupon_discount"`
		OrderTaxAmount models.Money    `json:"order_tax_amount"`
		PayableAmount  models.Money    `json:"payable_amount"`
		GiftCharge     models.Money    `json:"gift_charge"`
		Shops          []ShopBreakdown `json:"shops"`
	}{
		plain:          plain(b),
		TotalAmount:    models.Money(b.TotalAmount),
		DeliveryCharge: models.Money(b.DeliveryCharge),
		CouponDiscount: models.Money(b.CouponDiscount),
		OrderTaxAmount: models.Money(b.OrderTaxAmount),
		PayableAmount:  models.Money(b.PayableAmount),
		GiftCharge:     models.Money(b.GiftCharge),
		Shops:          shops,
	})
}
