// Package lifecycle moves placed orders through their statuses: buyer
// cancellation, shop confirmation, rider updates with delivery settlement,
// re-ordering and re-payment.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/notify"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/safar/storefront/internal/lifecycle")

const statusUpdateTitle = "Order Status Update"

type Controller struct {
	db     *sql.DB
	sender notify.Sender
	logger *zap.Logger
	txOpts database.TxOptions
	now    func() time.Time
}

func NewController(db *sql.DB, sender notify.Sender, cfg config.OrderConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := database.DefaultTxOptions()
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	opts.OnRetry = database.RetryLogger(logger)
	return &Controller{
		db:     db,
		sender: sender,
		logger: logger,
		txOpts: opts,
		now:    time.Now,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// ownedBy reports whether order was placed by buyer. Guests match on the
// email and phone they checked out with.
func ownedBy(order *models.Order, buyer models.Buyer) bool {
	if buyer.CustomerID != nil {
		return order.CustomerID != nil && *order.CustomerID == *buyer.CustomerID
	}
	return order.CustomerID == nil && order.Email == buyer.Email && order.Phone == buyer.Phone
}

func buyerOrder(ctx context.Context, tx *sql.Tx, orderID int64, buyer models.Buyer) (*models.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(order, buyer) {
		return nil, database.ErrOrderNotFound
	}
	return order, nil
}

func transition(ctx context.Context, tx *sql.Tx, order *models.Order, signal models.OrderStatus) error {
	next := signal.Stored()
	if !order.OrderStatus.CanTransitionTo(next) {
		return &database.InvalidTransitionError{From: string(order.OrderStatus), To: string(signal)}
	}
	if err := store.TransitionOrder(ctx, tx, order.ID, next, order.Version); err != nil {
		return err
	}
	order.OrderStatus = next
	order.Version++
	return nil
}

// CancelOrder cancels a pending order of buyer and puts its units back into
// stock. Flash-sale units go back to their sale only while the sale still
// sells at the price the order paid.
func (c *Controller) CancelOrder(ctx context.Context, orderID int64, buyer models.Buyer) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	var order *models.Order
	err := database.WithRetry(ctx, c.db, c.txOpts, func(tx *sql.Tx) error {
		var err error
		order, err = buyerOrder(ctx, tx, orderID, buyer)
		if err != nil {
			return err
		}
		if !order.OrderStatus.CanTransitionTo(models.OrderStatusCancelled) {
			return &database.InvalidTransitionError{From: string(order.OrderStatus), To: string(models.OrderStatusCancelled)}
		}

		for _, item := range order.Items {
			if err := store.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			if item.FlashSaleID == nil || item.FlashPrice == nil {
				continue
			}
			restored, err := store.RestoreFlashSold(ctx, tx, *item.FlashSaleID, item.ProductID, item.Quantity, *item.FlashPrice)
			if err != nil {
				return err
			}
			if !restored {
				c.logger.Info("flash sale allocation not restored",
					zap.Int64("order_id", order.ID),
					zap.Int64("flash_sale_id", *item.FlashSaleID),
					zap.Int64("product_id", item.ProductID))
			}
		}

		return transition(ctx, tx, order, models.OrderStatusCancelled)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	c.logger.Info("order cancelled", zap.Int64("order_id", order.ID), zap.String("order_code", order.Code()))
	return order, nil
}

// ConfirmOrder is the shop accepting one of its pending orders.
func (c *Controller) ConfirmOrder(ctx context.Context, orderID, shopID int64) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.ConfirmOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.Int64("shop.id", shopID))

	var order *models.Order
	err := database.WithRetry(ctx, c.db, c.txOpts, func(tx *sql.Tx) error {
		var err error
		order, err = store.GetOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.ShopID != shopID {
			return database.ErrOrderNotFound
		}
		return transition(ctx, tx, order, models.OrderStatusConfirm)
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return order, nil
}

type pendingPush struct {
	message string
	devices []string
}

// UpdateOrderStatus applies a rider signal to the order the driver order
// belongs to. Reaching delivered settles the order: the shop owner is paid
// the order total minus the admin commission and the rider is paid the
// delivery charge. The buyer is then told about the new status.
func (c *Controller) UpdateOrderStatus(ctx context.Context, orderID, driverOrderID int64, status models.OrderStatus) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("driver_order.id", driverOrderID),
		attribute.String("order.signal", string(status)),
	)

	if !status.IsRiderSignal() {
		return nil, fail(span, &database.InvalidTransitionError{From: "rider", To: string(status)})
	}

	var (
		order *models.Order
		push  *pendingPush
	)
	err := database.WithRetry(ctx, c.db, c.txOpts, func(tx *sql.Tx) error {
		push = nil

		var err error
		order, err = store.GetOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		driverOrder, err := store.GetDriverOrder(ctx, tx, driverOrderID)
		if err != nil {
			return err
		}
		if driverOrder.OrderID != order.ID {
			return database.ErrDriverOrderNotFound
		}

		if err := transition(ctx, tx, order, status); err != nil {
			return err
		}

		now := c.now()
		switch {
		case status == models.OrderStatusProcessing:
			if err := store.AcceptDriverOrder(ctx, tx, driverOrder.ID); err != nil {
				return err
			}
		case status == models.OrderStatusPickup:
			if err := store.SetOrderPicked(ctx, tx, order.ID, now); err != nil {
				return err
			}
			order.PickDate = &now
		case order.OrderStatus == models.OrderStatusDelivered:
			if err := c.settle(ctx, tx, order, driverOrder, now); err != nil {
				return err
			}
		}

		push, err = c.recordNotification(ctx, tx, order, status)
		return err
	})
	if err != nil {
		return nil, fail(span, err)
	}

	if push != nil {
		notify.Dispatch(ctx, c.sender, c.logger, push.message, push.devices, statusUpdateTitle)
	}

	c.logger.Info("order status updated",
		zap.Int64("order_id", order.ID),
		zap.String("signal", string(status)),
		zap.String("order_status", string(order.OrderStatus)))

	return order, nil
}

func (c *Controller) settle(ctx context.Context, tx *sql.Tx, order *models.Order, driverOrder *models.DriverOrder, now time.Time) error {
	cash := order.PaymentMethod.IsCash()
	if err := store.CompleteDriverOrder(ctx, tx, driverOrder.ID, cash); err != nil {
		return err
	}
	if cash {
		if err := store.AddDriverCash(ctx, tx, driverOrder.DriverID, order.PayableAmount); err != nil {
			return err
		}
	}

	settings, err := store.GetPlatformSettings(ctx, tx)
	if err != nil {
		return err
	}
	commission := pricing.Round2(settings.CommissionFor(order.TotalAmount))

	if err := store.SetOrderDelivered(ctx, tx, order.ID, commission, now); err != nil {
		return err
	}
	order.DeliveredAt = &now
	order.PaymentStatus = models.PaymentStatusPaid
	order.AdminCommission = commission

	shop, err := store.GetShop(ctx, tx, order.ShopID)
	if err != nil {
		return err
	}
	code := order.Code()
	if _, err := store.CreditWallet(ctx, tx, shop.UserID, order.TotalAmount, store.PurposeOrderEarning, "order "+code); err != nil {
		return err
	}
	if commission.IsPositive() {
		if _, err := store.DebitWallet(ctx, tx, shop.UserID, commission, store.PurposeAdminCommission, "admin commission for order "+code); err != nil {
			return err
		}
	}

	driver, err := store.GetDriver(ctx, tx, driverOrder.DriverID)
	if err != nil {
		return err
	}
	if order.DeliveryCharge.IsPositive() {
		if _, err := store.CreditWallet(ctx, tx, driver.UserID, order.DeliveryCharge, store.PurposeDeliveryCharge, "delivery of order "+code); err != nil {
			return err
		}
	}

	return nil
}

// recordNotification stores the in-app notification for a customer order
// and returns the push to send once the transaction has committed. Guest
// orders have no user to notify.
func (c *Controller) recordNotification(ctx context.Context, tx *sql.Tx, order *models.Order, status models.OrderStatus) (*pendingPush, error) {
	if order.CustomerID == nil {
		return nil, nil
	}
	customer, err := store.GetCustomer(ctx, tx, *order.CustomerID)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Hello %s. Your order status is %s. OrderID: %s", customer.Name, status, order.Code())
	err = store.InsertNotification(ctx, tx, &models.Notification{
		UserID:  customer.UserID,
		Title:   statusUpdateTitle,
		Content: message,
		URL:     strconv.FormatInt(order.ID, 10),
		Type:    "order",
	})
	if err != nil {
		return nil, err
	}

	devices, err := store.DeviceKeys(ctx, tx, customer.UserID)
	if err != nil {
		return nil, err
	}
	return &pendingPush{message: message, devices: devices}, nil
}
