package lifecycle

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReOrder places a delivered order again: same shop, amounts and items,
// with a new pending payment using the order's latest payment method.
// Stock is taken again and the whole re-order fails if any item ran out.
func (c *Controller) ReOrder(ctx context.Context, orderID int64, buyer models.Buyer) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.ReOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	var reorder *models.Order
	err := database.WithRetry(ctx, c.db, c.txOpts, func(tx *sql.Tx) error {
		original, err := buyerOrder(ctx, tx, orderID, buyer)
		if err != nil {
			return err
		}
		if original.OrderStatus != models.OrderStatusDelivered {
			return database.ErrReorderNotDelivered
		}

		method, err := store.LatestPaymentMethod(ctx, tx, original.ID)
		if err != nil {
			return err
		}
		payment, err := store.CreatePayment(ctx, tx, method)
		if err != nil {
			return err
		}

		reorder = &models.Order{
			ShopID:         original.ShopID,
			PaymentID:      payment.ID,
			CustomerID:     original.CustomerID,
			Email:          original.Email,
			Phone:          original.Phone,
			Prefix:         original.Prefix,
			CouponID:       original.CouponID,
			TotalAmount:    original.TotalAmount,
			TaxAmount:      original.TaxAmount,
			DeliveryCharge: original.DeliveryCharge,
			CouponDiscount: original.CouponDiscount,
			GiftCharge:     original.GiftCharge,
			PayableAmount:  original.PayableAmount,
			OrderStatus:    models.OrderStatusPending,
			PaymentStatus:  models.PaymentStatusPending,
			PaymentMethod:  method,
			AddressID:      original.AddressID,
			Instruction:    original.Instruction,
		}
		if err := store.InsertOrder(ctx, tx, reorder); err != nil {
			return err
		}

		for _, item := range original.Items {
			if err := store.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			copied := models.OrderItem{
				OrderID:   reorder.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Size:      item.Size,
				Color:     item.Color,
				Unit:      item.Unit,
				IsGift:    item.IsGift,
				Price:     item.Price,
			}
			if err := store.InsertOrderItem(ctx, tx, &copied); err != nil {
				return err
			}
			reorder.Items = append(reorder.Items, copied)
		}

		return store.SetPaymentAmount(ctx, tx, payment.ID, reorder.PayableAmount)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	c.logger.Info("order placed again",
		zap.Int64("order_id", orderID),
		zap.Int64("reorder_id", reorder.ID),
		zap.Int64("payment_id", reorder.PaymentID))
	return reorder, nil
}

// RequestPayment opens a new payment attempt for an unpaid order that is
// still open. Cash orders are settled on delivery and cannot be paid again.
func (c *Controller) RequestPayment(ctx context.Context, orderID int64, buyer models.Buyer, paymentMethod string) (*models.Payment, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.RequestPayment")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	method, err := models.ParsePaymentMethod(paymentMethod)
	if err != nil {
		return nil, fail(span, fmt.Errorf("%w: %q", database.ErrInvalidPaymentMethod, paymentMethod))
	}
	if method.IsCash() {
		return nil, fail(span, database.ErrCashRepayment)
	}

	var payment *models.Payment
	err = database.WithRetry(ctx, c.db, c.txOpts, func(tx *sql.Tx) error {
		order, err := buyerOrder(ctx, tx, orderID, buyer)
		if err != nil {
			return err
		}
		if order.PaymentStatus == models.PaymentStatusPaid {
			return &database.InvalidTransitionError{From: string(order.PaymentStatus), To: "repayment"}
		}
		if order.OrderStatus.IsTerminal() {
			return &database.InvalidTransitionError{From: string(order.OrderStatus), To: "repayment"}
		}

		payment, err = store.CreatePayment(ctx, tx, method)
		if err != nil {
			return err
		}
		if err := store.SetPaymentAmount(ctx, tx, payment.ID, order.PayableAmount); err != nil {
			return err
		}
		if err := store.AttachPayment(ctx, tx, payment.ID, order.ID); err != nil {
			return err
		}
		payment.Amount = order.PayableAmount
		payment.OrderIDs = []int64{order.ID}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return payment, nil
}

// OrderHistory is one page of a buyer's orders plus per-status counts.
type OrderHistory struct {
	Page   *store.CursorPage          `json:"page"`
	Counts map[models.OrderStatus]int `json:"counts"`
}

func (c *Controller) ListOrders(ctx context.Context, buyer models.Buyer, status models.OrderStatus, cursor string, limit int) (*OrderHistory, error) {
	filter := store.OrderFilter{
		CustomerID: buyer.CustomerID,
		Email:      buyer.Email,
		Phone:      buyer.Phone,
		Status:     status,
	}

	page, err := store.ListOrdersCursor(ctx, c.db, filter, cursor, limit)
	if err != nil {
		return nil, err
	}
	counts, err := store.CountOrdersByStatus(ctx, c.db, filter)
	if err != nil {
		return nil, err
	}
	return &OrderHistory{Page: page, Counts: counts}, nil
}

// Order returns one of buyer's orders with its items.
func (c *Controller) Order(ctx context.Context, orderID int64, buyer models.Buyer) (*models.Order, error) {
	order, err := store.GetOrder(ctx, c.db, orderID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(order, buyer) {
		return nil, database.ErrOrderNotFound
	}
	return order, nil
}
