package store

import (
	"context"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/shopspring/decimal"
)

// DecrementStock takes quantity units off the product only if that many are
// left; otherwise nothing changes and ErrInsufficientStock is returned.
func DecrementStock(ctx context.Context, db database.DBTX, productID int64, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET quantity = quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND quantity >= $1`,
		quantity, productID)
	if err != nil {
		if database.IsCheckViolation(err) {
			return database.ErrInsufficientStock
		}
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func RestoreStock(ctx context.Context, db database.DBTX, productID int64, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET quantity = quantity + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// IncrementFlashSold books quantity units against the flash sale allocation
// of the product, failing with ErrFlashSaleExhausted when fewer remain.
func IncrementFlashSold(ctx context.Context, db database.DBTX, flashSaleID, productID int64, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE flash_sale_products
		 SET sold_quantity = sold_quantity + $1
		 WHERE flash_sale_id = $2
		   AND product_id = $3
		   AND quantity - sold_quantity >= $1`,
		quantity, flashSaleID, productID)
	if err != nil {
		if database.IsCheckViolation(err) {
			return database.ErrFlashSaleExhausted
		}
		return fmt.Errorf("increment flash sold: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrFlashSaleExhausted
	}

	return nil
}

// RestoreFlashSold gives quantity units back to the flash sale, but only
// while its pivot price still equals flashPrice and at least quantity units
// are booked. It reports whether anything was restored.
func RestoreFlashSold(ctx context.Context, db database.DBTX, flashSaleID, productID int64, quantity int, flashPrice decimal.Decimal) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE flash_sale_products
		 SET sold_quantity = sold_quantity - $1
		 WHERE flash_sale_id = $2
		   AND product_id = $3
		   AND price = $4
		   AND sold_quantity >= $1`,
		quantity, flashSaleID, productID, flashPrice)
	if err != nil {
		return false, fmt.Errorf("restore flash sold: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func GetProductQuantity(ctx context.Context, db database.DBTX, productID int64) (int, error) {
	var quantity int
	err := db.QueryRowContext(ctx, `SELECT quantity FROM products WHERE id = $1`, productID).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("get product quantity: %w", err)
	}
	return quantity, nil
}

func GetFlashSold(ctx context.Context, db database.DBTX, flashSaleID, productID int64) (int, error) {
	var sold int
	err := db.QueryRowContext(ctx,
		`SELECT sold_quantity FROM flash_sale_products WHERE flash_sale_id = $1 AND product_id = $2`,
		flashSaleID, productID).Scan(&sold)
	if err != nil {
		return 0, fmt.Errorf("get flash sold: %w", err)
	}
	return sold, nil
}
