// Package store is the Postgres persistence layer. Functions take a
// database.DBTX so the same query runs on the pool or inside a
// transaction; Store wraps them behind the read interfaces checkout needs.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type Store struct {
	db          database.DBTX
	lockCoupons bool
}

func New(db database.DBTX) *Store {
	return &Store{db: db}
}

// NewLocking binds a Store to tx and makes every coupon read take a row
// lock, so a usage count read afterwards cannot be raced by another
// checkout of the same coupon.
func NewLocking(tx *sql.Tx) *Store {
	return &Store{db: tx, lockCoupons: true}
}

func (s *Store) Product(ctx context.Context, id int64) (*models.Product, error) {
	return GetCatalogProduct(ctx, s.db, id)
}

func (s *Store) Shop(ctx context.Context, id int64) (*models.Shop, error) {
	return GetShop(ctx, s.db, id)
}

func (s *Store) Gift(ctx context.Context, id int64) (*models.Gift, error) {
	return GetGift(ctx, s.db, id)
}

func (s *Store) Customer(ctx context.Context, id int64) (*models.Customer, error) {
	return GetCustomer(ctx, s.db, id)
}

func (s *Store) ShopProducts(ctx context.Context, shopID int64, page, pageSize int) (*OffsetPage, error) {
	return ListShopProducts(ctx, s.db, shopID, page, pageSize)
}

func (s *Store) ShopCoupon(ctx context.Context, shopID int64, code string, now time.Time) (*models.Coupon, error) {
	return GetShopCoupon(ctx, s.db, shopID, code, now, s.lockCoupons)
}

func (s *Store) PlatformCoupon(ctx context.Context, shopID int64, code string, now time.Time) (*models.Coupon, error) {
	return GetPlatformCoupon(ctx, s.db, shopID, code, now, s.lockCoupons)
}

func (s *Store) CollectedCoupons(ctx context.Context, customerID, shopID int64, now time.Time) ([]models.Coupon, error) {
	return ListCollectedCoupons(ctx, s.db, customerID, shopID, now, s.lockCoupons)
}

func (s *Store) AppliedCount(ctx context.Context, couponID int64, buyer models.Buyer) (int, error) {
	return CouponAppliedCount(ctx, s.db, couponID, buyer)
}

func (s *Store) OrderBaseTax(ctx context.Context) (*models.VatTax, error) {
	return GetOrderBaseTax(ctx, s.db)
}
