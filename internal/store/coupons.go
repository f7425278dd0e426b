package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const couponColumns = `c.id, c.shop_id, c.code, c.type, c.discount, c.min_amount,
	c.max_discount_amount, c.limit_for_user, c.starts_at, c.expires_at, c.is_active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	var (
		coupon models.Coupon
		shopID sql.NullInt64
		limit  sql.NullInt64
	)
	err := row.Scan(
		&coupon.ID,
		&shopID,
		&coupon.Code,
		&coupon.Type,
		&coupon.Discount,
		&coupon.MinAmount,
		&coupon.MaxDiscountAmount,
		&limit,
		&coupon.StartsAt,
		&coupon.ExpiresAt,
		&coupon.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if shopID.Valid {
		coupon.ShopID = &shopID.Int64
	}
	if limit.Valid {
		l := int(limit.Int64)
		coupon.LimitForUser = &l
	}
	return &coupon, nil
}

func lockClause(lock bool) string {
	if lock {
		return "FOR UPDATE OF c"
	}
	return ""
}

func CreateCoupon(ctx context.Context, db database.DBTX, c models.Coupon) (*models.Coupon, error) {
	var limit sql.NullInt64
	if c.LimitForUser != nil {
		limit = sql.NullInt64{Int64: int64(*c.LimitForUser), Valid: true}
	}

	err := db.QueryRowContext(ctx,
		`INSERT INTO coupons (shop_id, code, type, discount, min_amount, max_discount_amount,
		                      limit_for_user, starts_at, expires_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		c.ShopID, c.Code, c.Type, c.Discount, c.MinAmount, c.MaxDiscountAmount,
		limit, c.StartsAt, c.ExpiresAt, c.IsActive).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return &c, nil
}

// MapPlatformCoupon makes a platform coupon usable at shopID.
func MapPlatformCoupon(ctx context.Context, db database.DBTX, couponID, shopID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO admin_coupons (coupon_id, shop_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		couponID, shopID)
	if err != nil {
		return fmt.Errorf("map platform coupon: %w", err)
	}
	return nil
}

func CollectCoupon(ctx context.Context, db database.DBTX, customerID, couponID int64) error {
	result, err := db.ExecContext(ctx,
		`INSERT INTO coupon_collects (customer_id, coupon_id, created_at)
		 SELECT $1, id, NOW() FROM coupons WHERE id = $2
		 ON CONFLICT (customer_id, coupon_id) DO NOTHING`,
		customerID, couponID)
	if err != nil {
		return fmt.Errorf("collect coupon: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM coupons WHERE id = $1)`, couponID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check coupon exists: %w", err)
		}
		if !exists {
			return database.ErrCouponNotFound
		}
	}
	return nil
}

// GetShopCoupon finds an active, in-window coupon owned by shopID. It
// returns nil when none matches.
func GetShopCoupon(ctx context.Context, db database.DBTX, shopID int64, code string, now time.Time, lock bool) (*models.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons c
		WHERE c.shop_id = $1 AND c.code = $2
		  AND c.is_active AND c.starts_at <= $3 AND c.expires_at >= $3
		ORDER BY c.id
		LIMIT 1 ` + lockClause(lock)

	coupon, err := scanCoupon(db.QueryRowContext(ctx, query, shopID, code, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shop coupon: %w", err)
	}
	return coupon, nil
}

// GetPlatformCoupon finds an active, in-window platform coupon mapped to
// shopID. It returns nil when none matches.
func GetPlatformCoupon(ctx context.Context, db database.DBTX, shopID int64, code string, now time.Time, lock bool) (*models.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons c
		JOIN admin_coupons ac ON ac.coupon_id = c.id
		WHERE ac.shop_id = $1 AND c.shop_id IS NULL AND c.code = $2
		  AND c.is_active AND c.starts_at <= $3 AND c.expires_at >= $3
		ORDER BY c.id
		LIMIT 1 ` + lockClause(lock)

	coupon, err := scanCoupon(db.QueryRowContext(ctx, query, shopID, code, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get platform coupon: %w", err)
	}
	return coupon, nil
}

// ListCollectedCoupons returns the customer's collected coupons usable at
// shopID, in collection order.
func ListCollectedCoupons(ctx context.Context, db database.DBTX, customerID, shopID int64, now time.Time, lock bool) ([]models.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupon_collects cc
		JOIN coupons c ON c.id = cc.coupon_id
		WHERE cc.customer_id = $1
		  AND c.is_active AND c.starts_at <= $3 AND c.expires_at >= $3
		  AND (c.shop_id = $2 OR (c.shop_id IS NULL AND EXISTS (
		       SELECT 1 FROM admin_coupons ac WHERE ac.coupon_id = c.id AND ac.shop_id = $2)))
		ORDER BY cc.created_at, cc.id ` + lockClause(lock)

	rows, err := db.QueryContext(ctx, query, customerID, shopID, now)
	if err != nil {
		return nil, fmt.Errorf("list collected coupons: %w", err)
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *coupon)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return coupons, nil
}

// CouponAppliedCount counts the buyer's orders carrying the coupon, one per
// shop order, cancelled ones included. Guests are matched on email and
// phone.
func CouponAppliedCount(ctx context.Context, db database.DBTX, couponID int64, buyer models.Buyer) (int, error) {
	var (
		count int
		err   error
	)

	if buyer.IsGuest() {
		err = db.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM orders
			WHERE coupon_id = $1 AND customer_id IS NULL AND email = $2 AND phone = $3`,
			couponID, buyer.Email, buyer.Phone).Scan(&count)
	} else {
		err = db.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM orders
			WHERE coupon_id = $1 AND customer_id = $2`,
			couponID, *buyer.CustomerID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count coupon usage: %w", err)
	}

	return count, nil
}
