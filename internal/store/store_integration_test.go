package store_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, db *sql.DB, quantity int) *models.Product {
	t.Helper()
	ctx := context.Background()

	owner, err := store.CreateUser(ctx, db, "Owner", "owner@example.com", "0100")
	require.NoError(t, err)
	shop, err := store.CreateShop(ctx, db, owner.ID, "Lamps", "LM")
	require.NoError(t, err)
	product, err := store.CreateProduct(ctx, db, store.CreateProductParams{
		ShopID:   shop.ID,
		Name:     "Desk lamp",
		Price:    decimal.NewFromInt(100),
		Quantity: quantity,
	})
	require.NoError(t, err)
	return product
}

func TestConcurrentDecrementStock(t *testing.T) {
	db := testdb.Setup(t)
	ctx := context.Background()
	product := seedProduct(t, db, 10)

	concurrency := 8
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
				return store.DecrementStock(ctx, tx, product.ID, 2)
			})
		}()
	}

	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, database.ErrInsufficientStock)
	}
	assert.Equal(t, 5, succeeded)

	left, err := store.GetProductQuantity(ctx, db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestFlashSoldGuards(t *testing.T) {
	db := testdb.Setup(t)
	ctx := context.Background()
	product := seedProduct(t, db, 50)

	now := time.Now()
	saleID, err := store.CreateFlashSale(ctx, db, "Weekend", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.AddFlashSaleProduct(ctx, db, saleID, product.ID, decimal.NewFromInt(60), decimal.Zero, 3))

	require.NoError(t, store.IncrementFlashSold(ctx, db, saleID, product.ID, 2))
	assert.ErrorIs(t, store.IncrementFlashSold(ctx, db, saleID, product.ID, 2), database.ErrFlashSaleExhausted)

	// a repriced sale no longer owns the units booked at the old price
	restored, err := store.RestoreFlashSold(ctx, db, saleID, product.ID, 2, decimal.NewFromInt(55))
	require.NoError(t, err)
	assert.False(t, restored)

	restored, err = store.RestoreFlashSold(ctx, db, saleID, product.ID, 2, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.True(t, restored)

	sold, err := store.GetFlashSold(ctx, db, saleID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sold)
}

func TestWalletLedger(t *testing.T) {
	db := testdb.Setup(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, db, "Owner", "owner@example.com", "0100")
	require.NoError(t, err)

	_, err = store.CreditWallet(ctx, db, user.ID, decimal.NewFromInt(200), store.PurposeOrderEarning, "order LM1")
	require.NoError(t, err)
	_, err = store.DebitWallet(ctx, db, user.ID, decimal.NewFromInt(20), store.PurposeAdminCommission, "admin commission")
	require.NoError(t, err)

	wallet, err := store.GetWallet(ctx, db, user.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(180).Equal(wallet.Balance), "balance %s", wallet.Balance)

	txns, err := store.ListTransactions(ctx, db, wallet.ID)
	require.NoError(t, err)
	require.Len(t, txns, 2)
}

func TestListOrdersCursor(t *testing.T) {
	db := testdb.Setup(t)
	ctx := context.Background()
	product := seedProduct(t, db, 100)

	payment, err := store.CreatePayment(ctx, db, models.PaymentMethodCash)
	require.NoError(t, err)

	for range 15 {
		order := &models.Order{
			ShopID:        product.ShopID,
			PaymentID:     payment.ID,
			Email:         "guest@example.com",
			Phone:         "0199",
			Prefix:        "LM",
			TotalAmount:   decimal.NewFromInt(100),
			PayableAmount: decimal.NewFromInt(100),
			OrderStatus:   models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusPending,
			PaymentMethod: models.PaymentMethodCash,
		}
		require.NoError(t, store.InsertOrder(ctx, db, order))
	}

	filter := store.OrderFilter{Email: "guest@example.com", Phone: "0199"}
	page1, err := store.ListOrdersCursor(ctx, db, filter, "", 10)
	require.NoError(t, err)
	assert.True(t, page1.HasMore)
	assert.Len(t, page1.Items, 10)
	require.NotEmpty(t, page1.NextCursor)

	page2, err := store.ListOrdersCursor(ctx, db, filter, page1.NextCursor, 10)
	require.NoError(t, err)
	assert.False(t, page2.HasMore)
	assert.Len(t, page2.Items, 5)

	first := page1.Items.([]models.Order)
	second := page2.Items.([]models.Order)
	assert.Greater(t, first[len(first)-1].ID, second[0].ID)

	counts, err := store.CountOrdersByStatus(ctx, db, store.OrderFilter{Email: "guest@example.com", Phone: "0199", Status: models.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, 15, counts[models.OrderStatusPending])

	other, err := store.ListOrdersCursor(ctx, db, store.OrderFilter{Email: "guest@example.com", Phone: "0000"}, "", 10)
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}
