package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type PlaceOrderRequest struct {
	CheckoutRequest
	PaymentMethod string
	Instruction   string
	ReferralCode  string
	// BuyNow selects which of the customer's stored lines are cleared once
	// the orders exist.
	BuyNow bool
}

// Service runs checkout against Postgres.
type Service struct {
	db       *sql.DB
	delivery pricing.DeliveryPolicy
	logger   *zap.Logger
	prefix   string
	txOpts   database.TxOptions
	now      func() time.Time
}

func NewService(db *sql.DB, delivery pricing.DeliveryPolicy, cfg config.OrderConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := database.DefaultTxOptions()
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	opts.OnRetry = database.RetryLogger(logger)
	prefix := cfg.DefaultPrefix
	if prefix == "" {
		prefix = "RC"
	}
	return &Service{
		db:       db,
		delivery: delivery,
		logger:   logger,
		prefix:   prefix,
		txOpts:   opts,
		now:      time.Now,
	}
}

func (s *Service) aggregator(reader Reader) *Aggregator {
	return NewAggregator(reader, s.delivery, s.logger).withClock(s.now)
}

func (s *Service) ComputeCheckout(ctx context.Context, req CheckoutRequest) (*Breakdown, error) {
	ctx, span := tracer.Start(ctx, "checkout.ComputeCheckout")
	defer span.End()
	span.SetAttributes(attribute.Int("checkout.lines", len(req.Lines)))

	breakdown, err := s.aggregator(store.New(s.db)).Compute(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return breakdown, nil
}

// PlaceOrder turns the lines into one order per shop, plus one per gift
// line shipping elsewhere, all sharing a single payment. Everything runs in
// one transaction: a missing product, exhausted stock or an exhausted
// flash sale leaves nothing behind.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Payment, error) {
	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	payment, err := s.placeOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("payment.id", payment.ID),
		attribute.Int("payment.orders", len(payment.OrderIDs)),
	)
	s.logger.Info("order placed",
		zap.Int64("payment_id", payment.ID),
		zap.Int64s("order_ids", payment.OrderIDs),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("payment_method", string(payment.PaymentMethod)))

	return payment, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*models.Payment, error) {
	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidPaymentMethod, req.PaymentMethod)
	}
	if len(req.Lines) == 0 {
		return nil, database.ErrEmptyCart
	}

	var payment *models.Payment
	err = database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		reader := store.NewLocking(tx)

		quotes, err := s.aggregator(reader).quote(ctx, req.CheckoutRequest, true)
		if err != nil {
			return err
		}
		if len(quotes) == 0 {
			return database.ErrEmptyCart
		}

		firstOrder, err := s.isFirstOrder(ctx, tx, req.Buyer)
		if err != nil {
			return err
		}

		payment, err = store.CreatePayment(ctx, tx, method)
		if err != nil {
			return err
		}

		amount := decimal.Zero
		shopIDs := make([]int64, 0, len(quotes))
		for _, q := range quotes {
			shop, err := reader.Shop(ctx, q.shopID)
			if err != nil {
				return err
			}
			shopIDs = append(shopIDs, shop.ID)

			for _, plan := range q.plans {
				order, err := s.createOrder(ctx, tx, req, payment, shop, plan, q.discount)
				if err != nil {
					return err
				}
				payment.OrderIDs = append(payment.OrderIDs, order.ID)
				amount = amount.Add(order.PayableAmount)
			}
		}

		if err := store.SetPaymentAmount(ctx, tx, payment.ID, amount); err != nil {
			return err
		}
		payment.Amount = amount

		if !req.Buyer.IsGuest() {
			if _, err := store.ClearCartLines(ctx, tx, *req.Buyer.CustomerID, shopIDs, req.BuyNow); err != nil {
				return err
			}
		}

		if firstOrder {
			return s.rewardReferral(ctx, tx, req.Buyer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *Service) createOrder(ctx context.Context, tx *sql.Tx, req PlaceOrderRequest, payment *models.Payment, shop *models.Shop, plan orderPlan, discount Discount) (*models.Order, error) {
	prefix := shop.Prefix
	if prefix == "" {
		prefix = s.prefix
	}

	order := &models.Order{
		ShopID:         shop.ID,
		PaymentID:      payment.ID,
		CustomerID:     req.Buyer.CustomerID,
		Email:          req.Buyer.Email,
		Phone:          req.Buyer.Phone,
		Prefix:         prefix,
		TotalAmount:    plan.total(),
		TaxAmount:      plan.itemTax.Add(plan.orderTax),
		DeliveryCharge: plan.delivery,
		CouponDiscount: plan.coupon,
		GiftCharge:     plan.gift,
		PayableAmount:  plan.payable(),
		OrderStatus:    models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		PaymentMethod:  payment.PaymentMethod,
		AddressID:      req.AddressID,
		Instruction:    req.Instruction,
		ReferralCode:   req.ReferralCode,
	}
	if plan.coupon.IsPositive() && discount.Coupon != nil {
		order.CouponID = &discount.Coupon.ID
	}
	if plan.separate {
		gift := plan.lines[0].Gift
		order.AddressID = gift.AddressID
		order.Instruction = gift.Note
	}

	if err := store.InsertOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	for _, l := range plan.lines {
		item, err := s.bookLine(ctx, tx, order.ID, l)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, *item)

		if l.Gift == nil {
			continue
		}
		err = store.InsertOrderGift(ctx, tx, &models.OrderGift{
			OrderID:      order.ID,
			GiftID:       l.Gift.GiftID,
			AddressID:    l.Gift.AddressID,
			SenderName:   l.Gift.SenderName,
			ReceiverName: l.Gift.ReceiverName,
			Note:         l.Gift.Note,
			Price:        l.Gift.Price,
		})
		if err != nil {
			return nil, err
		}
	}

	return order, nil
}

// bookLine takes the line's units out of stock, and out of the flash sale
// it was priced with, then records the order item.
func (s *Service) bookLine(ctx context.Context, tx *sql.Tx, orderID int64, l pricedLine) (*models.OrderItem, error) {
	if err := store.DecrementStock(ctx, tx, l.ProductID, l.Quantity); err != nil {
		return nil, fmt.Errorf("product %d: %w", l.ProductID, err)
	}

	item := &models.OrderItem{
		OrderID:   orderID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		Size:      l.product.SizeName(l.SizeID),
		Color:     l.product.ColorName(l.ColorID),
		Unit:      l.Unit,
		IsGift:    l.Gift != nil,
		Price:     pricing.Round2(l.price.UnitPrice),
	}
	if item.Unit == "" {
		item.Unit = l.product.Unit
	}

	if fs := l.price.FlashSale; fs != nil {
		if err := store.IncrementFlashSold(ctx, tx, fs.ID, l.ProductID, l.Quantity); err != nil {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, err)
		}
		flashSaleID, flashPrice := fs.ID, fs.Price
		item.FlashSaleID = &flashSaleID
		item.FlashPrice = &flashPrice
	}

	if err := store.InsertOrderItem(ctx, tx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) isFirstOrder(ctx context.Context, tx *sql.Tx, buyer models.Buyer) (bool, error) {
	if buyer.IsGuest() || buyer.UserID == nil {
		return false, nil
	}
	count, err := store.CountCustomerOrders(ctx, tx, *buyer.CustomerID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// rewardReferral credits the referrer of a customer placing their first
// order, once.
func (s *Service) rewardReferral(ctx context.Context, tx *sql.Tx, buyer models.Buyer) error {
	referral, err := store.PendingReferral(ctx, tx, *buyer.UserID)
	if err != nil || referral == nil {
		return err
	}

	settings, err := store.GetPlatformSettings(ctx, tx)
	if err != nil {
		return err
	}
	if settings.ReferralReward.IsPositive() {
		memo := fmt.Sprintf("referral %s", referral.ReferralCode)
		if _, err := store.CreditWallet(ctx, tx, referral.ReferrerID, settings.ReferralReward, store.PurposeReferralReward, memo); err != nil {
			return err
		}
	}

	return store.MarkReferralRewarded(ctx, tx, referral.ID)
}
