package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is an amount as it leaves the API, always with two decimals.
// Arithmetic stays on decimal.Decimal.
type Money decimal.Decimal

func (m Money) String() string {
	return decimal.Decimal(m).StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		TotalAmount     Money `json:"total_amount"`
		TaxAmount       Money `json:"tax_amount"`
		DeliveryCharge  Money `json:"delivery_charge"`
		CouponDiscount  Money `json:"coupon_discount"`
		GiftCharge      Money `json:"gift_charge"`
		PayableAmount   Money `json:"payable_amount"`
		AdminCommission Money `json:"admin_commission"`
	}{
		plain:           plain(o),
		TotalAmount:     Money(o.TotalAmount),
		TaxAmount:       Money(o.TaxAmount),
		DeliveryCharge:  Money(o.DeliveryCharge),
		CouponDiscount:  Money(o.CouponDiscount),
		GiftCharge:      Money(o.GiftCharge),
		PayableAmount:   Money(o.PayableAmount),
		AdminCommission: Money(o.AdminCommission),
	})
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type plain OrderItem
	var flash *Money
	if i.FlashPrice != nil {
		m := Money(*i.FlashPrice)
		flash = &m
	}
	return json.Marshal(struct {
		plain
		Price      Money  `json:"price"`
		FlashPrice *Money `json:"flash_price,omitempty"`
	}{
		plain:      plain(i),
		Price:      Money(i.Price),
		FlashPrice: flash,
	})
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	return json.Marshal(struct {
		plain
		Amount Money `json:"amount"`
	}{
		plain:  plain(p),
		Amount: Money(p.Amount),
	})
}
