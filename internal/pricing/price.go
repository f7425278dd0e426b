// Package pricing holds the pure money rules of checkout: unit price
// resolution, coupon discount math and the delivery charge policy. Nothing
// here touches storage and nothing here rounds; callers round with Round2
// when presenting or persisting amounts.
package pricing

import (
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PriceResolution is the per-unit price of one cart line.
type PriceResolution struct {
	// MainPrice is the undiscounted list price with add-ons and VAT.
	MainPrice decimal.Decimal
	// PreTaxPrice is the effective price with add-ons, before VAT.
	PreTaxPrice decimal.Decimal
	// TaxAmount is the VAT owed on one unit.
	TaxAmount decimal.Decimal
	// UnitPrice is what one unit costs the buyer: PreTaxPrice + TaxAmount.
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	// FlashSale is the sale whose pivot price was used, nil otherwise.
	FlashSale *models.FlashSale
}

func (r PriceResolution) LineTotal(quantity int) decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func (r PriceResolution) LineTax(quantity int) decimal.Decimal {
	return r.TaxAmount.Mul(decimal.NewFromInt(int64(quantity)))
}

func (r PriceResolution) Discounted() bool {
	return r.UnitPrice.LessThan(r.MainPrice)
}

// ResolveUnitPrice prices one unit of product with the chosen size and
// color. The base is the discount price when set, else the list price; a
// running flash sale replaces the base with its pivot price. Size and color
// surcharges are added before VAT, and every product VAT rule with a
// positive percentage adds to the tax on that pre-tax price without
// compounding.
func ResolveUnitPrice(product *models.Product, sizeID, colorID *int64, now time.Time) PriceResolution {
	extra := product.SizeSurcharge(sizeID).Add(product.ColorSurcharge(colorID))

	base := product.Price
	discountPercentage := decimal.Zero
	discounted := false
	if product.HasDiscount() {
		base = product.DiscountPrice
		discounted = true
		if product.Price.IsPositive() {
			discountPercentage = product.Price.Sub(product.DiscountPrice).Div(product.Price).Mul(hundred)
		}
	}

	flashSale := product.ActiveFlashSale(now)
	if flashSale != nil {
		base = flashSale.Price
		discountPercentage = flashSale.Discount
		discounted = true
	}

	preTax := base.Add(extra)
	tax := VatOn(preTax, product.VatTaxes)
	unit := preTax.Add(tax)

	mainPreTax := product.Price.Add(extra)
	main := mainPreTax.Add(VatOn(mainPreTax, product.VatTaxes))

	if discounted && main.IsPositive() {
		discountPercentage = main.Sub(unit).Div(main).Mul(hundred)
	}

	return PriceResolution{
		MainPrice:          main,
		PreTaxPrice:        preTax,
		TaxAmount:          tax,
		UnitPrice:          unit,
		DiscountPercentage: discountPercentage,
		FlashSale:          flashSale,
	}
}

// VatOn sums amount × percentage/100 over every rule with a positive
// percentage.
func VatOn(amount decimal.Decimal, taxes []models.VatTax) decimal.Decimal {
	total := decimal.Zero
	for _, tax := range taxes {
		if !tax.Percentage.IsPositive() {
			continue
		}
		total = total.Add(amount.Mul(tax.Percentage).Div(hundred))
	}
	return total
}

// OrderBaseVat applies the platform order tax to a shop subtotal. Only an
// exclusive tax with a positive percentage adds anything.
func OrderBaseVat(subtotal decimal.Decimal, tax *models.VatTax) decimal.Decimal {
	if tax == nil || tax.Deduction != models.DeductionExclusive || !tax.Percentage.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Mul(tax.Percentage).Div(hundred)
}

// Round2 is the presentation rounding for every monetary output.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
