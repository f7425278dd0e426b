package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, shop_id, payment_id, customer_id, email, phone, prefix, order_code,
	coupon_id, total_amount, tax_amount, delivery_charge, coupon_discount, gift_charge,
	payable_amount, admin_commission, order_status, payment_status, payment_method,
	order_gift_id, address_id, instruction, referral_code, pick_date, delivered_at,
	created_at, updated_at, version`

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order       models.Order
		customerID  sql.NullInt64
		couponID    sql.NullInt64
		orderGiftID sql.NullInt64
		addressID   sql.NullInt64
		pickDate    sql.NullTime
		deliveredAt sql.NullTime
	)
	err := row.Scan(
		&order.ID,
		&order.ShopID,
		&order.PaymentID,
		&customerID,
		&order.Email,
		&order.Phone,
		&order.Prefix,
		&order.OrderCode,
		&couponID,
		&order.TotalAmount,
		&order.TaxAmount,
		&order.DeliveryCharge,
		&order.CouponDiscount,
		&order.GiftCharge,
		&order.PayableAmount,
		&order.AdminCommission,
		&order.OrderStatus,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&orderGiftID,
		&addressID,
		&order.Instruction,
		&order.ReferralCode,
		&pickDate,
		&deliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}
	order.CustomerID = nullInt64Ptr(customerID)
	order.CouponID = nullInt64Ptr(couponID)
	order.OrderGiftID = nullInt64Ptr(orderGiftID)
	order.AddressID = nullInt64Ptr(addressID)
	if pickDate.Valid {
		order.PickDate = &pickDate.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}
	return &order, nil
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// CreatePayment opens a payment with a zero amount; the amount is written
// once every order of the checkout exists.
func CreatePayment(ctx context.Context, db database.DBTX, method models.PaymentMethod) (*models.Payment, error) {
	payment := &models.Payment{
		Reference:     uuid.New(),
		PaymentMethod: method,
		Amount:        decimal.Zero,
	}

	err := db.QueryRowContext(ctx,
		`INSERT INTO payments (reference, amount, payment_method, created_at)
		 VALUES ($1, 0, $2, NOW())
		 RETURNING id, created_at`,
		payment.Reference, method).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	return payment, nil
}

func SetPaymentAmount(ctx context.Context, db database.DBTX, paymentID int64, amount decimal.Decimal) error {
	_, err := db.ExecContext(ctx, `UPDATE payments SET amount = $1 WHERE id = $2`, amount, paymentID)
	if err != nil {
		return fmt.Errorf("set payment amount: %w", err)
	}
	return nil
}

func GetPayment(ctx context.Context, db database.DBTX, id int64) (*models.Payment, error) {
	payment := &models.Payment{}

	err := db.QueryRowContext(ctx,
		`SELECT id, reference, amount, payment_method, created_at FROM payments WHERE id = $1`,
		id).Scan(
		&payment.ID,
		&payment.Reference,
		&payment.Amount,
		&payment.PaymentMethod,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT order_id FROM order_payments WHERE payment_id = $1 ORDER BY order_id`, id)
	if err != nil {
		return nil, fmt.Errorf("list payment orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		if err := rows.Scan(&orderID); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		payment.OrderIDs = append(payment.OrderIDs, orderID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return payment, nil
}

// NextOrderCode draws the next global order number, zero padded to six
// digits.
func NextOrderCode(ctx context.Context, db database.DBTX) (string, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT nextval('order_code_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next order code: %w", err)
	}
	return fmt.Sprintf("%06d", n), nil
}

// InsertOrder stores order, attaches it to order.PaymentID and fills in its
// id, code and timestamps.
func InsertOrder(ctx context.Context, db database.DBTX, order *models.Order) error {
	code, err := NextOrderCode(ctx, db)
	if err != nil {
		return err
	}
	order.OrderCode = code

	err = db.QueryRowContext(ctx, `
		INSERT INTO orders (shop_id, payment_id, customer_id, email, phone, prefix, order_code,
		                    coupon_id, total_amount, tax_amount, delivery_charge, coupon_discount,
		                    gift_charge, payable_amount, admin_commission, order_status,
		                    payment_status, payment_method, address_id, instruction, referral_code,
		                    created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, $15, $16, $17,
		        $18, $19, $20, NOW(), NOW(), 1)
		RETURNING id, created_at, updated_at, version`,
		order.ShopID, order.PaymentID, order.CustomerID, order.Email, order.Phone,
		order.Prefix, order.OrderCode, order.CouponID, order.TotalAmount, order.TaxAmount,
		order.DeliveryCharge, order.CouponDiscount, order.GiftCharge, order.PayableAmount,
		order.OrderStatus, order.PaymentStatus, order.PaymentMethod, order.AddressID,
		order.Instruction, order.ReferralCode,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	return AttachPayment(ctx, db, order.PaymentID, order.ID)
}

func InsertOrderItem(ctx context.Context, db database.DBTX, item *models.OrderItem) error {
	var flashPrice decimal.NullDecimal
	if item.FlashPrice != nil {
		flashPrice = decimal.NullDecimal{Decimal: *item.FlashPrice, Valid: true}
	}

	err := db.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, size, color, unit, is_gift,
		                         price, flash_sale_id, flash_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at`,
		item.OrderID, item.ProductID, item.Quantity, item.Size, item.Color, item.Unit,
		item.IsGift, item.Price, item.FlashSaleID, flashPrice,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order item: %w", err)
	}
	return nil
}

// InsertOrderGift stores gift and links it back to its order.
func InsertOrderGift(ctx context.Context, db database.DBTX, gift *models.OrderGift) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO order_gifts (order_id, gift_id, address_id, sender_name, receiver_name, note, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		gift.OrderID, gift.GiftID, gift.AddressID, gift.SenderName, gift.ReceiverName,
		gift.Note, gift.Price,
	).Scan(&gift.ID)
	if err != nil {
		return fmt.Errorf("create order gift: %w", err)
	}

	_, err = db.ExecContext(ctx, `UPDATE orders SET order_gift_id = $1 WHERE id = $2`, gift.ID, gift.OrderID)
	if err != nil {
		return fmt.Errorf("link order gift: %w", err)
	}
	return nil
}

func GetOrder(ctx context.Context, db database.DBTX, id int64) (*models.Order, error) {
	return getOrder(ctx, db, id, false)
}

// GetOrderForUpdate is GetOrder with the order row locked until the
// surrounding transaction ends.
func GetOrderForUpdate(ctx context.Context, db database.DBTX, id int64) (*models.Order, error) {
	return getOrder(ctx, db, id, true)
}

func getOrder(ctx context.Context, db database.DBTX, id int64, lock bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := listOrderItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func listOrderItems(ctx context.Context, db database.DBTX, orderID int64) ([]models.OrderItem, error) {
	itemsQuery := `
		SELECT id, order_id, product_id, quantity, size, color, unit, is_gift, price,
		       flash_sale_id, flash_price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := db.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var (
			item        models.OrderItem
			flashSaleID sql.NullInt64
			flashPrice  decimal.NullDecimal
		)
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Size,
			&item.Color,
			&item.Unit,
			&item.IsGift,
			&item.Price,
			&flashSaleID,
			&flashPrice,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.FlashSaleID = nullInt64Ptr(flashSaleID)
		if flashPrice.Valid {
			price := flashPrice.Decimal
			item.FlashPrice = &price
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func GetOrderGift(ctx context.Context, db database.DBTX, id int64) (*models.OrderGift, error) {
	gift := &models.OrderGift{}
	var addressID sql.NullInt64

	err := db.QueryRowContext(ctx, `
		SELECT id, order_id, gift_id, address_id, sender_name, receiver_name, note, price
		FROM order_gifts WHERE id = $1`, id).Scan(
		&gift.ID,
		&gift.OrderID,
		&gift.GiftID,
		&addressID,
		&gift.SenderName,
		&gift.ReceiverName,
		&gift.Note,
		&gift.Price,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrGiftNotFound
		}
		return nil, fmt.Errorf("get order gift: %w", err)
	}
	gift.AddressID = nullInt64Ptr(addressID)

	return gift, nil
}

// TransitionOrder moves the order to status using its version as an
// optimistic lock. A concurrent change yields ErrOptimisticLockFailed.
func TransitionOrder(ctx context.Context, db database.DBTX, id int64, status models.OrderStatus, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET order_status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		status, id, version)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}

func SetOrderPicked(ctx context.Context, db database.DBTX, id int64, at time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE orders SET pick_date = $1, updated_at = NOW() WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("set pick date: %w", err)
	}
	return nil
}

// SetOrderDelivered records delivery time, payment and the admin commission.
func SetOrderDelivered(ctx context.Context, db database.DBTX, id int64, commission decimal.Decimal, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET delivered_at = $1, payment_status = $2, admin_commission = $3, updated_at = NOW()
		 WHERE id = $4`,
		at, models.PaymentStatusPaid, commission, id)
	if err != nil {
		return fmt.Errorf("set order delivered: %w", err)
	}
	return nil
}

// AttachPayment records paymentID as a payment attempt for orderID.
func AttachPayment(ctx context.Context, db database.DBTX, paymentID, orderID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO order_payments (payment_id, order_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		paymentID, orderID)
	if err != nil {
		return fmt.Errorf("attach payment: %w", err)
	}
	return nil
}

// LatestPaymentMethod is the method of the newest payment attached to the
// order, falling back to cash when none is recorded.
func LatestPaymentMethod(ctx context.Context, db database.DBTX, orderID int64) (models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := db.QueryRowContext(ctx, `
		SELECT p.payment_method
		FROM payments p
		JOIN order_payments op ON op.payment_id = p.id
		WHERE op.order_id = $1
		ORDER BY p.id DESC
		LIMIT 1`, orderID).Scan(&method)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PaymentMethodCash, nil
		}
		return "", fmt.Errorf("latest payment method: %w", err)
	}
	return method, nil
}

func CountCustomerOrders(ctx context.Context, db database.DBTX, customerID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count customer orders: %w", err)
	}
	return count, nil
}

// OrderFilter selects a buyer's orders: by customer, or by guest email and
// phone. An empty Status matches every status.
type OrderFilter struct {
	CustomerID *int64
	Email      string
	Phone      string
	Status     models.OrderStatus
}

func (f OrderFilter) where(args []any) (string, []any) {
	var conds []string
	if f.CustomerID != nil {
		args = append(args, *f.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	} else {
		args = append(args, f.Email, f.Phone)
		conds = append(conds, fmt.Sprintf("customer_id IS NULL AND email = $%d AND phone = $%d", len(args)-1, len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("order_status = $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func ListOrdersCursor(ctx context.Context, db database.DBTX, filter OrderFilter, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	where, args := filter.where([]any{cursorData.CreatedAt, cursorData.ID, limit + 1})
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE (created_at, id) < ($1, $2) AND ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// CountOrdersByStatus ignores filter.Status and counts every status.
func CountOrdersByStatus(ctx context.Context, db database.DBTX, filter OrderFilter) (map[models.OrderStatus]int, error) {
	filter.Status = ""
	where, args := filter.where(nil)

	rows, err := db.QueryContext(ctx,
		`SELECT order_status, COUNT(*) FROM orders WHERE `+where+` GROUP BY order_status`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.OrderStatus]int)
	for rows.Next() {
		var (
			status models.OrderStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan order count: %w", err)
		}
		counts[status] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return counts, nil
}
