package checkout

import (
	"context"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

type fakeReader struct {
	products  map[int64]*models.Product
	shops     map[int64]*models.Shop
	shopCodes map[int64][]models.Coupon
	platform  map[int64][]models.Coupon
	collected map[int64][]models.Coupon
	applied   map[int64]int
	orderTax  *models.VatTax
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		products:  map[int64]*models.Product{},
		shops:     map[int64]*models.Shop{},
		shopCodes: map[int64][]models.Coupon{},
		platform:  map[int64][]models.Coupon{},
		collected: map[int64][]models.Coupon{},
		applied:   map[int64]int{},
	}
}

func (f *fakeReader) addProduct(p *models.Product) {
	f.products[p.ID] = p
	if _, ok := f.shops[p.ShopID]; !ok {
		f.shops[p.ShopID] = &models.Shop{ID: p.ShopID, Name: "shop"}
	}
}

func (f *fakeReader) Product(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeReader) Shop(_ context.Context, id int64) (*models.Shop, error) {
	s, ok := f.shops[id]
	if !ok {
		return nil, database.ErrShopNotFound
	}
	return s, nil
}

func (f *fakeReader) ShopCoupon(_ context.Context, shopID int64, code string, _ time.Time) (*models.Coupon, error) {
	for _, c := range f.shopCodes[shopID] {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeReader) PlatformCoupon(_ context.Context, shopID int64, code string, _ time.Time) (*models.Coupon, error) {
	for _, c := range f.platform[shopID] {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeReader) CollectedCoupons(_ context.Context, customerID, shopID int64, _ time.Time) ([]models.Coupon, error) {
	var out []models.Coupon
	for _, c := range f.collected[customerID] {
		if c.ShopID == nil || *c.ShopID == shopID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeReader) AppliedCount(_ context.Context, couponID int64, _ models.Buyer) (int, error) {
	return f.applied[couponID], nil
}

func (f *fakeReader) OrderBaseTax(context.Context) (*models.VatTax, error) {
	return f.orderTax, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(v int64) *int64 { return &v }

func exclusiveVat(pct string) models.VatTax {
	return models.VatTax{Name: "VAT", Percentage: dec(pct), Deduction: models.DeductionExclusive}
}
