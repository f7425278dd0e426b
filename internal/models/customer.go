package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	ReferralCode string    `json:"referral_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// Customer is the buyer profile of a user.
type Customer struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Buyer returns the checkout identity of the customer.
func (c *Customer) Buyer() Buyer {
	id, userID := c.ID, c.UserID
	return Buyer{CustomerID: &id, UserID: &userID, Email: c.Email, Phone: c.Phone}
}

type Gift struct {
	ID     int64           `json:"id"`
	ShopID int64           `json:"shop_id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

type Referral struct {
	ID             int64  `json:"id"`
	ReferrerID     int64  `json:"referrer_id"`
	ReferredUserID int64  `json:"referred_user_id"`
	ReferralCode   string `json:"referral_code"`
	Rewarded       bool   `json:"rewarded"`
}
