package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	if errors.Is(err, ErrLockTimeout) {
		return ErrorClassTransient
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsCheckViolation reports whether err is a CHECK constraint failure, which
// the schema uses to keep stock and flash-sale counters non-negative.
func IsCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514"
}

var (
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrShopNotFound         = errors.New("shop not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrDriverOrderNotFound  = errors.New("driver order not found")
	ErrDriverNotFound       = errors.New("driver not found")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrCartLineNotFound     = errors.New("product not found in cart")
	ErrGiftNotFound         = errors.New("gift not found")
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrInsufficientStock    = errors.New("product cart quantity is limited, no more stock")
	ErrFlashSaleExhausted   = errors.New("flash sale quantity is limited")
	ErrEmptyCart            = errors.New("shop cart is empty")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrCashRepayment        = errors.New("cannot re-pay an order paid in cash")
	ErrReorderNotDelivered  = errors.New("cannot re-order because order is not delivered")
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
	ErrLockTimeout          = errors.New("lock timeout")
)

// InvalidTransitionError is returned when an order status change is not
// allowed from the order's current status.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order cannot move from %s to %s", e.From, e.To)
}
