package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const cartColumns = `c.id, c.customer_id, c.product_id, c.shop_id, c.quantity, c.size_id,
	c.color_id, c.unit, c.is_buy_now, c.gift_id, g.price, c.gift_address_id,
	c.gift_sender_name, c.gift_receiver_name, c.gift_note, c.created_at`

const cartFrom = `FROM carts c LEFT JOIN gifts g ON g.id = c.gift_id`

func scanCartLine(row rowScanner) (*models.CartLine, error) {
	var (
		line       models.CartLine
		customerID int64
		sizeID     sql.NullInt64
		colorID    sql.NullInt64
		giftID     sql.NullInt64
		giftPrice  decimal.NullDecimal
		addressID  sql.NullInt64
		sender     string
		receiver   string
		note       string
	)
	err := row.Scan(
		&line.ID,
		&customerID,
		&line.ProductID,
		&line.ShopID,
		&line.Quantity,
		&sizeID,
		&colorID,
		&line.Unit,
		&line.IsBuyNow,
		&giftID,
		&giftPrice,
		&addressID,
		&sender,
		&receiver,
		&note,
		&line.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	line.CustomerID = &customerID
	line.SizeID = nullInt64Ptr(sizeID)
	line.ColorID = nullInt64Ptr(colorID)
	if giftID.Valid {
		line.Gift = &models.CartGift{
			GiftID:       giftID.Int64,
			Price:        giftPrice.Decimal,
			AddressID:    nullInt64Ptr(addressID),
			SenderName:   sender,
			ReceiverName: receiver,
			Note:         note,
		}
	}
	return &line, nil
}

// CartFilter narrows a customer's cart. Lines always match on the buy-now
// flag; an empty ShopIDs matches every shop.
type CartFilter struct {
	ShopIDs []int64
	BuyNow  bool
}

func ListCartLines(ctx context.Context, db database.DBTX, customerID int64, filter CartFilter) ([]models.CartLine, error) {
	query := `SELECT ` + cartColumns + ` ` + cartFrom + `
		WHERE c.customer_id = $1 AND c.is_buy_now = $2
		  AND (COALESCE(cardinality($3::bigint[]), 0) = 0 OR c.shop_id = ANY($3))
		ORDER BY c.shop_id, c.id`

	rows, err := db.QueryContext(ctx, query, customerID, filter.BuyNow, pq.Array(filter.ShopIDs))
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, *line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

func GetCartLine(ctx context.Context, db database.DBTX, customerID, lineID int64) (*models.CartLine, error) {
	query := `SELECT ` + cartColumns + ` ` + cartFrom + ` WHERE c.id = $1 AND c.customer_id = $2`

	line, err := scanCartLine(db.QueryRowContext(ctx, query, lineID, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartLineNotFound
		}
		return nil, fmt.Errorf("get cart line: %w", err)
	}
	return line, nil
}

// FindCartLine returns the customer's line for the same product, size,
// color and buy-now flag, or nil.
func FindCartLine(ctx context.Context, db database.DBTX, customerID, productID int64, sizeID, colorID *int64, buyNow bool) (*models.CartLine, error) {
	query := `SELECT ` + cartColumns + ` ` + cartFrom + `
		WHERE c.customer_id = $1 AND c.product_id = $2
		  AND c.size_id IS NOT DISTINCT FROM $3
		  AND c.color_id IS NOT DISTINCT FROM $4
		  AND c.is_buy_now = $5
		ORDER BY c.id
		LIMIT 1`

	line, err := scanCartLine(db.QueryRowContext(ctx, query, customerID, productID, sizeID, colorID, buyNow))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cart line: %w", err)
	}
	return line, nil
}

func InsertCartLine(ctx context.Context, db database.DBTX, line *models.CartLine) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO carts (customer_id, product_id, shop_id, quantity, size_id, color_id, unit, is_buy_now, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at`,
		line.CustomerID, line.ProductID, line.ShopID, line.Quantity, line.SizeID,
		line.ColorID, line.Unit, line.IsBuyNow,
	).Scan(&line.ID, &line.CreatedAt)
	if err != nil {
		return fmt.Errorf("create cart line: %w", err)
	}
	return nil
}

func SetCartQuantity(ctx context.Context, db database.DBTX, customerID, lineID int64, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE carts SET quantity = $1 WHERE id = $2 AND customer_id = $3`,
		quantity, lineID, customerID)
	if err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}
	return expectRow(result, database.ErrCartLineNotFound)
}

func DeleteCartLine(ctx context.Context, db database.DBTX, customerID, lineID int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM carts WHERE id = $1 AND customer_id = $2`, lineID, customerID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return expectRow(result, database.ErrCartLineNotFound)
}

// ClearCartLines deletes the customer's lines with the given buy-now flag
// in the listed shops. An empty shopIDs clears every shop.
func ClearCartLines(ctx context.Context, db database.DBTX, customerID int64, shopIDs []int64, buyNow bool) (int64, error) {
	result, err := db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE customer_id = $1 AND is_buy_now = $2
		  AND (COALESCE(cardinality($3::bigint[]), 0) = 0 OR shop_id = ANY($3))`,
		customerID, buyNow, pq.Array(shopIDs))
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return result.RowsAffected()
}

// SetCartGift attaches gift to the line, or detaches any gift when gift is
// nil.
func SetCartGift(ctx context.Context, db database.DBTX, customerID, lineID int64, gift *models.CartGift) error {
	var (
		giftID    *int64
		addressID *int64
		sender    string
		receiver  string
		note      string
	)
	if gift != nil {
		giftID = &gift.GiftID
		addressID = gift.AddressID
		sender, receiver, note = gift.SenderName, gift.ReceiverName, gift.Note
	}

	result, err := db.ExecContext(ctx, `
		UPDATE carts
		SET gift_id = $1, gift_address_id = $2, gift_sender_name = $3,
		    gift_receiver_name = $4, gift_note = $5
		WHERE id = $6 AND customer_id = $7`,
		giftID, addressID, sender, receiver, note, lineID, customerID)
	if err != nil {
		return fmt.Errorf("set cart gift: %w", err)
	}
	return expectRow(result, database.ErrCartLineNotFound)
}

func expectRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
