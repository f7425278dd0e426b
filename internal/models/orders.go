package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirm    OrderStatus = "confirm"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnTheWay   OrderStatus = "on_the_way"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"

	// Rider signals. Neither is ever stored on an order.
	OrderStatusPickup           OrderStatus = "pickup"
	OrderStatusDeliveredAndPaid OrderStatus = "delivered_and_paid"
)

// ParseOrderStatus accepts stored statuses and rider signals.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case OrderStatusPending, OrderStatusConfirm, OrderStatusProcessing,
		OrderStatusOnTheWay, OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusPickup, OrderStatusDeliveredAndPaid:
		return status, nil
	case "deliveredandpaid":
		return OrderStatusDeliveredAndPaid, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Stored maps a rider signal onto the status persisted on the order.
func (s OrderStatus) Stored() OrderStatus {
	switch s {
	case OrderStatusPickup:
		return OrderStatusOnTheWay
	case OrderStatusDeliveredAndPaid:
		return OrderStatusDelivered
	}
	return s
}

// CanTransitionTo is the only transition table for orders.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusConfirm || next == OrderStatusCancelled
	case OrderStatusConfirm:
		return next == OrderStatusProcessing
	case OrderStatusProcessing:
		return next == OrderStatusOnTheWay
	case OrderStatusOnTheWay:
		return next == OrderStatusDelivered
	default:
		return false
	}
}

// IsRiderSignal reports whether a rider may send s. Cancelling and
// confirming belong to the buyer and the shop.
func (s OrderStatus) IsRiderSignal() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusPickup, OrderStatusOnTheWay,
		OrderStatusDelivered, OrderStatusDeliveredAndPaid:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodPaypal PaymentMethod = "paypal"
)

// gatewayIDs maps each payment method to the identifier the payment
// gateway integration expects.
var gatewayIDs = map[PaymentMethod]string{
	PaymentMethodCash:   "cash_on_delivery",
	PaymentMethodCard:   "stripe",
	PaymentMethodWallet: "wallet",
	PaymentMethodPaypal: "paypal",
}

// ParsePaymentMethod is case-insensitive and rejects unknown methods.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := gatewayIDs[method]; !ok {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return method, nil
}

func (m PaymentMethod) GatewayID() string {
	return gatewayIDs[m]
}

func (m PaymentMethod) IsCash() bool {
	return m == PaymentMethodCash
}

// Buyer identifies who is checking out: a customer, or a guest keyed by
// email and phone.
type Buyer struct {
	CustomerID *int64 `json:"customer_id,omitempty"`
	UserID     *int64 `json:"user_id,omitempty"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

func (b Buyer) IsGuest() bool {
	return b.CustomerID == nil
}

type Order struct {
	ID              int64           `json:"id"`
	ShopID          int64           `json:"shop_id"`
	PaymentID       int64           `json:"payment_id"`
	CustomerID      *int64          `json:"customer_id,omitempty"`
	Email           string          `json:"email,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Prefix          string          `json:"prefix"`
	OrderCode       string          `json:"order_code"`
	CouponID        *int64          `json:"coupon_id,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	DeliveryCharge  decimal.Decimal `json:"delivery_charge"`
	CouponDiscount  decimal.Decimal `json:"coupon_discount"`
	GiftCharge      decimal.Decimal `json:"gift_charge"`
	PayableAmount   decimal.Decimal `json:"payable_amount"`
	AdminCommission decimal.Decimal `json:"admin_commission"`
	OrderStatus     OrderStatus     `json:"order_status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	OrderGiftID     *int64          `json:"order_gift_id,omitempty"`
	AddressID       *int64          `json:"address_id,omitempty"`
	Instruction     string          `json:"instruction,omitempty"`
	ReferralCode    string          `json:"referral_code,omitempty"`
	PickDate        *time.Time      `json:"pick_date,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// Code is the customer-facing order number, e.g. RC000042.
func (o *Order) Code() string {
	return o.Prefix + o.OrderCode
}

type OrderItem struct {
	ID          int64            `json:"id"`
	OrderID     int64            `json:"order_id"`
	ProductID   int64            `json:"product_id"`
	Quantity    int              `json:"quantity"`
	Size        string           `json:"size,omitempty"`
	Color       string           `json:"color,omitempty"`
	Unit        string           `json:"unit,omitempty"`
	IsGift      bool             `json:"is_gift"`
	Price       decimal.Decimal  `json:"price"`
	FlashSaleID *int64           `json:"flash_sale_id,omitempty"`
	FlashPrice  *decimal.Decimal `json:"flash_price,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type Payment struct {
	ID            int64           `json:"id"`
	Reference     uuid.UUID       `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	OrderIDs      []int64         `json:"order_ids"`
	CreatedAt     time.Time       `json:"created_at"`
}

type OrderGift struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	GiftID       int64           `json:"gift_id"`
	AddressID    *int64          `json:"address_id,omitempty"`
	SenderName   string          `json:"sender_name"`
	ReceiverName string          `json:"receiver_name"`
	Note         string          `json:"note,omitempty"`
	Price        decimal.Decimal `json:"price"`
}
