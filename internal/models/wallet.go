package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

type Transaction struct {
	ID        int64           `json:"id"`
	WalletID  int64           `json:"wallet_id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type"`
	Purpose   string          `json:"purpose"`
	Memo      string          `json:"memo,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Driver struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"user_id"`
	TotalCashCollected decimal.Decimal `json:"total_cash_collected"`
}

// DriverOrder links a rider to an order; its flags move independently of
// the order status.
type DriverOrder struct {
	ID          int64 `json:"id"`
	OrderID     int64 `json:"order_id"`
	DriverID    int64 `json:"driver_id"`
	IsAccept    bool  `json:"is_accept"`
	IsCompleted bool  `json:"is_completed"`
	CashCollect bool  `json:"cash_collect"`
}

type CommissionCharge string

const (
	CommissionPerOrder CommissionCharge = "per_order"
	CommissionMonthly  CommissionCharge = "monthly"
)

type CommissionType string

const (
	CommissionPercentage CommissionType = "percentage"
	CommissionFixed      CommissionType = "fixed"
)

type PlatformSettings struct {
	CommissionCharge CommissionCharge `json:"commission_charge"`
	CommissionType   CommissionType   `json:"commission_type"`
	Commission       decimal.Decimal  `json:"commission"`
	ReferralReward   decimal.Decimal  `json:"referral_reward"`
}

// CommissionFor computes the admin commission owed on a delivered order.
// Monthly billing settles outside the order flow, so it yields zero here.
func (s PlatformSettings) CommissionFor(totalAmount decimal.Decimal) decimal.Decimal {
	if s.CommissionCharge == CommissionMonthly {
		return decimal.Zero
	}
	if s.CommissionType == CommissionFixed {
		return s.Commission
	}
	return totalAmount.Mul(s.Commission).Div(decimal.NewFromInt(100))
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
