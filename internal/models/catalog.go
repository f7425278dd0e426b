package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Shop struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID            int64                   `json:"id"`
	ShopID        int64                   `json:"shop_id"`
	Name          string                  `json:"name"`
	Unit          string                  `json:"unit,omitempty"`
	Price         decimal.Decimal         `json:"price"`
	DiscountPrice decimal.Decimal         `json:"discount_price"`
	Quantity      int                     `json:"quantity"`
	Sizes         map[int64]ProductOption `json:"sizes,omitempty"`
	Colors        map[int64]ProductOption `json:"colors,omitempty"`
	VatTaxes      []VatTax                `json:"vat_taxes,omitempty"`
	FlashSales    []FlashSale             `json:"flash_sales,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Version       int                     `json:"version"`
}

// ProductOption is a size or color attached to a product with its surcharge.
type ProductOption struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// SizeSurcharge returns the surcharge for sizeID, zero when absent.
func (p *Product) SizeSurcharge(sizeID *int64) decimal.Decimal {
	return optionPrice(p.Sizes, sizeID)
}

func (p *Product) ColorSurcharge(colorID *int64) decimal.Decimal {
	return optionPrice(p.Colors, colorID)
}

func (p *Product) SizeName(sizeID *int64) string {
	return optionName(p.Sizes, sizeID)
}

func (p *Product) ColorName(colorID *int64) string {
	return optionName(p.Colors, colorID)
}

func (p *Product) HasDiscount() bool {
	return p.DiscountPrice.IsPositive()
}

// ActiveFlashSale returns the first flash sale active at now, in the order
// the catalog loaded them (start time, then id). Nil when none qualifies.
func (p *Product) ActiveFlashSale(now time.Time) *FlashSale {
	for i := range p.FlashSales {
		if p.FlashSales[i].ActiveAt(now) {
			return &p.FlashSales[i]
		}
	}
	return nil
}

// AvailableQuantity is the most a cart line may hold: the product stock,
// further capped by the remaining flash allocation while a sale runs.
func (p *Product) AvailableQuantity(now time.Time) int {
	if fs := p.ActiveFlashSale(now); fs != nil {
		return min(fs.Remaining(), p.Quantity)
	}
	return p.Quantity
}

func optionPrice(options map[int64]ProductOption, id *int64) decimal.Decimal {
	if id == nil {
		return decimal.Zero
	}
	if opt, ok := options[*id]; ok {
		return opt.Price
	}
	return decimal.Zero
}

func optionName(options map[int64]ProductOption, id *int64) string {
	if id == nil {
		return ""
	}
	return options[*id].Name
}

// FlashSale carries the sale window plus the per-product pivot values.
type FlashSale struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	StartsAt     time.Time       `json:"starts_at"`
	EndsAt       time.Time       `json:"ends_at"`
	IsActive     bool            `json:"is_active"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	Quantity     int             `json:"quantity"`
	SoldQuantity int             `json:"sold_quantity"`
}

func (f FlashSale) Remaining() int {
	return f.Quantity - f.SoldQuantity
}

// ActiveAt reports whether the sale is switched on, now lies inside
// [StartsAt, EndsAt) and allocation is left.
func (f FlashSale) ActiveAt(now time.Time) bool {
	if !f.IsActive || f.Remaining() <= 0 {
		return false
	}
	return !now.Before(f.StartsAt) && now.Before(f.EndsAt)
}

type Deduction string

const (
	DeductionInclusive Deduction = "inclusive"
	DeductionExclusive Deduction = "exclusive"
)

type VatTax struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Deduction  Deduction       `json:"deduction"`
}

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID                int64           `json:"id"`
	ShopID            *int64          `json:"shop_id,omitempty"`
	Code              string          `json:"code"`
	Type              DiscountType    `json:"type"`
	Discount          decimal.Decimal `json:"discount"`
	MinAmount         decimal.Decimal `json:"min_amount"`
	MaxDiscountAmount decimal.Decimal `json:"max_discount_amount"`
	LimitForUser      *int            `json:"limit_for_user,omitempty"`
	StartsAt          time.Time       `json:"starts_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
	IsActive          bool            `json:"is_active"`
}

// DefaultCouponLimit applies when a coupon has no per-user limit configured.
const DefaultCouponLimit = 500

func (c Coupon) UsageLimit() int {
	if c.LimitForUser == nil {
		return DefaultCouponLimit
	}
	return *c.LimitForUser
}
