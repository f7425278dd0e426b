// Package cart keeps buyers' cart lines. Customer carts live in Postgres,
// guest carts in a SessionStore keyed by an opaque token; both are handled
// through the same Lines interface.
package cart

import (
	"context"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

// Lines is one buyer's cart.
type Lines interface {
	List(ctx context.Context, filter store.CartFilter) ([]models.CartLine, error)
	Get(ctx context.Context, lineID int64) (*models.CartLine, error)
	// Find returns the line for the same product variant and buy-now flag,
	// or nil.
	Find(ctx context.Context, productID int64, sizeID, colorID *int64, buyNow bool) (*models.CartLine, error)
	Insert(ctx context.Context, line *models.CartLine) error
	SetQuantity(ctx context.Context, lineID int64, quantity int) error
	Delete(ctx context.Context, lineID int64) error
	Clear(ctx context.Context, filter store.CartFilter) error
	SetGift(ctx context.Context, lineID int64, gift *models.CartGift) error
}

type customerLines struct {
	db         database.DBTX
	customerID int64
}

// CustomerLines is the persisted cart of a customer.
func CustomerLines(db database.DBTX, customerID int64) Lines {
	return &customerLines{db: db, customerID: customerID}
}

func (c *customerLines) List(ctx context.Context, filter store.CartFilter) ([]models.CartLine, error) {
	return store.ListCartLines(ctx, c.db, c.customerID, filter)
}

func (c *customerLines) Get(ctx context.Context, lineID int64) (*models.CartLine, error) {
	return store.GetCartLine(ctx, c.db, c.customerID, lineID)
}

func (c *customerLines) Find(ctx context.Context, productID int64, sizeID, colorID *int64, buyNow bool) (*models.CartLine, error) {
	return store.FindCartLine(ctx, c.db, c.customerID, productID, sizeID, colorID, buyNow)
}

func (c *customerLines) Insert(ctx context.Context, line *models.CartLine) error {
	line.CustomerID = &c.customerID
	return store.InsertCartLine(ctx, c.db, line)
}

func (c *customerLines) SetQuantity(ctx context.Context, lineID int64, quantity int) error {
	return store.SetCartQuantity(ctx, c.db, c.customerID, lineID, quantity)
}

func (c *customerLines) Delete(ctx context.Context, lineID int64) error {
	return store.DeleteCartLine(ctx, c.db, c.customerID, lineID)
}

func (c *customerLines) Clear(ctx context.Context, filter store.CartFilter) error {
	_, err := store.ClearCartLines(ctx, c.db, c.customerID, filter.ShopIDs, filter.BuyNow)
	return err
}

func (c *customerLines) SetGift(ctx context.Context, lineID int64, gift *models.CartGift) error {
	return store.SetCartGift(ctx, c.db, c.customerID, lineID, gift)
}
