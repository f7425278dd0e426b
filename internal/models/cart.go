package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is the single typed form of a cart entry, whether it was loaded
// from the carts table or decoded from a guest session.
type CartLine struct {
	ID         int64     `json:"id,omitempty"`
	CustomerID *int64    `json:"customer_id,omitempty"`
	ProductID  int64     `json:"product_id"`
	ShopID     int64     `json:"shop_id"`
	Quantity   int       `json:"quantity"`
	SizeID     *int64    `json:"size,omitempty"`
	ColorID    *int64    `json:"color,omitempty"`
	Unit       string    `json:"unit,omitempty"`
	IsBuyNow   bool      `json:"is_buy_now"`
	Gift       *CartGift `json:"gift,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

type CartGift struct {
	GiftID       int64           `json:"gift_id"`
	Price        decimal.Decimal `json:"price"`
	AddressID    *int64          `json:"address_id,omitempty"`
	SenderName   string          `json:"sender_name,omitempty"`
	ReceiverName string          `json:"receiver_name,omitempty"`
	Note         string          `json:"note,omitempty"`
}

// ShipsSeparately reports whether the line is a gift going to an address
// other than mainAddressID; such lines become their own order.
func (l CartLine) ShipsSeparately(mainAddressID *int64) bool {
	if l.Gift == nil || l.Gift.AddressID == nil {
		return false
	}
	return mainAddressID == nil || *mainAddressID != *l.Gift.AddressID
}

func (l CartLine) GiftCharge() decimal.Decimal {
	if l.Gift == nil {
		return decimal.Zero
	}
	return l.Gift.Price
}
