package lifecycle_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/lifecycle"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSender) Send(_ context.Context, message string, _ []string, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

type world struct {
	db         *sql.DB
	checkout   *checkout.Service
	controller *lifecycle.Controller
	sender     *recordingSender
	owner      *models.User
	shop       *models.Shop
	product    *models.Product
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	db := testdb.Setup(t)

	owner, err := store.CreateUser(ctx, db, "Owner", "owner@example.com", "0100")
	require.NoError(t, err)
	shop, err := store.CreateShop(ctx, db, owner.ID, "Lamps", "LM")
	require.NoError(t, err)
	product, err := store.CreateProduct(ctx, db, store.CreateProductParams{
		ShopID:   shop.ID,
		Name:     "Desk lamp",
		Price:    decimal.NewFromInt(100),
		Quantity: 20,
	})
	require.NoError(t, err)

	cfg := config.OrderConfig{DefaultPrefix: "RC", MaxRetries: 3}
	delivery := pricing.NewTieredDelivery(config.DeliveryConfig{
		BaseCharge:   decimal.NewFromInt(15),
		PerExtraItem: decimal.NewFromInt(5),
		FreeQuantity: 2,
	})
	logger := zaptest.NewLogger(t)
	sender := &recordingSender{}

	return &world{
		db:         db,
		checkout:   checkout.NewService(db, delivery, cfg, logger),
		controller: lifecycle.NewController(db, sender, cfg, logger),
		sender:     sender,
		owner:      owner,
		shop:       shop,
		product:    product,
	}
}

func (w *world) place(t *testing.T, buyer models.Buyer, quantity int, method string) *models.Order {
	t.Helper()
	payment, err := w.checkout.PlaceOrder(context.Background(), checkout.PlaceOrderRequest{
		CheckoutRequest: checkout.CheckoutRequest{
			Buyer: buyer,
			Lines: []models.CartLine{{ID: 1, ProductID: w.product.ID, ShopID: w.shop.ID, Quantity: quantity}},
		},
		PaymentMethod: method,
	})
	require.NoError(t, err)
	require.Len(t, payment.OrderIDs, 1)

	order, err := store.GetOrder(context.Background(), w.db, payment.OrderIDs[0])
	require.NoError(t, err)
	return order
}

func TestCancelRestoresStockAndFlashSale(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	now := time.Now()
	saleID, err := store.CreateFlashSale(ctx, w.db, "Weekend", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.AddFlashSaleProduct(ctx, w.db, saleID, w.product.ID, decimal.NewFromInt(60), decimal.Zero, 5))

	guest := models.Buyer{Email: "guest@example.com", Phone: "0199"}
	order := w.place(t, guest, 2, "cash")
	assert.True(t, decimal.NewFromInt(120).Equal(order.TotalAmount), "total %s", order.TotalAmount)

	sold, err := store.GetFlashSold(ctx, w.db, saleID, w.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sold)

	_, err = w.controller.CancelOrder(ctx, order.ID, models.Buyer{Email: "guest@example.com", Phone: "0000"})
	require.ErrorIs(t, err, database.ErrOrderNotFound)

	cancelled, err := w.controller.CancelOrder(ctx, order.ID, guest)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.OrderStatus)

	left, err := store.GetProductQuantity(ctx, w.db, w.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, left)
	sold, err = store.GetFlashSold(ctx, w.db, saleID, w.product.ID)
	require.NoError(t, err)
	assert.Zero(t, sold)

	_, err = w.controller.CancelOrder(ctx, order.ID, guest)
	var invalid *database.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestRiderCannotCancelOrConfirm(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	order := w.place(t, models.Buyer{Email: "guest@example.com", Phone: "0199"}, 4, "cash")

	riderUser, err := store.CreateUser(ctx, w.db, "Rider", "rider@example.com", "0122")
	require.NoError(t, err)
	driver, err := store.CreateDriver(ctx, w.db, riderUser.ID)
	require.NoError(t, err)
	assignment, err := store.AssignDriver(ctx, w.db, order.ID, driver.ID)
	require.NoError(t, err)

	for _, signal := range []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusConfirm, models.OrderStatusPending} {
		_, err := w.controller.UpdateOrderStatus(ctx, order.ID, assignment.ID, signal)
		var invalid *database.InvalidTransitionError
		require.ErrorAs(t, err, &invalid, string(signal))
	}

	stored, err := store.GetOrder(ctx, w.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.OrderStatus)

	left, err := store.GetProductQuantity(ctx, w.db, w.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, left)
	assert.Empty(t, w.sender.messages)
}

func TestDeliverySettlesWallets(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	require.NoError(t, store.UpdatePlatformSettings(ctx, w.db, models.PlatformSettings{
		CommissionCharge: models.CommissionPerOrder,
		CommissionType:   models.CommissionPercentage,
		Commission:       decimal.NewFromInt(10),
	}))

	user, err := store.CreateUser(ctx, w.db, "Buyer", "buyer@example.com", "0111")
	require.NoError(t, err)
	require.NoError(t, store.AddDeviceKey(ctx, w.db, user.ID, "device-1"))
	created, err := store.CreateCustomer(ctx, w.db, user.ID)
	require.NoError(t, err)
	customer, err := store.GetCustomer(ctx, w.db, created.ID)
	require.NoError(t, err)

	order := w.place(t, customer.Buyer(), 3, "cash")
	require.True(t, decimal.NewFromInt(300).Equal(order.TotalAmount))
	require.True(t, decimal.NewFromInt(20).Equal(order.DeliveryCharge))

	riderUser, err := store.CreateUser(ctx, w.db, "Rider", "rider@example.com", "0122")
	require.NoError(t, err)
	driver, err := store.CreateDriver(ctx, w.db, riderUser.ID)
	require.NoError(t, err)
	assignment, err := store.AssignDriver(ctx, w.db, order.ID, driver.ID)
	require.NoError(t, err)

	_, err = w.controller.UpdateOrderStatus(ctx, order.ID, assignment.ID, models.OrderStatusProcessing)
	var invalid *database.InvalidTransitionError
	require.ErrorAs(t, err, &invalid, "a pending order must be confirmed first")

	_, err = w.controller.ConfirmOrder(ctx, order.ID, w.shop.ID)
	require.NoError(t, err)

	for _, signal := range []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusPickup, models.OrderStatusDeliveredAndPaid} {
		_, err := w.controller.UpdateOrderStatus(ctx, order.ID, assignment.ID, signal)
		require.NoError(t, err, string(signal))
	}

	delivered, err := store.GetOrder(ctx, w.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, delivered.OrderStatus)
	assert.Equal(t, models.PaymentStatusPaid, delivered.PaymentStatus)
	assert.True(t, decimal.NewFromInt(30).Equal(delivered.AdminCommission), "commission %s", delivered.AdminCommission)
	assert.NotNil(t, delivered.PickDate)
	assert.NotNil(t, delivered.DeliveredAt)

	shopWallet, err := store.GetWallet(ctx, w.db, w.owner.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(270).Equal(shopWallet.Balance), "shop balance %s", shopWallet.Balance)

	riderWallet, err := store.GetWallet(ctx, w.db, riderUser.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(riderWallet.Balance), "rider balance %s", riderWallet.Balance)

	rider, err := store.GetDriver(ctx, w.db, driver.ID)
	require.NoError(t, err)
	assert.True(t, delivered.PayableAmount.Equal(rider.TotalCashCollected))

	notes, err := store.ListNotifications(ctx, w.db, user.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 3)
	assert.Len(t, w.sender.messages, 3)

	_, err = w.controller.UpdateOrderStatus(ctx, order.ID, assignment.ID, models.OrderStatusDelivered)
	assert.ErrorAs(t, err, &invalid, "settlement runs once")

	_, err = w.controller.RequestPayment(ctx, order.ID, customer.Buyer(), "card")
	assert.ErrorAs(t, err, &invalid, "paid orders cannot be paid again")
}

func TestReOrderAndRepayment(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	guest := models.Buyer{Email: "guest@example.com", Phone: "0199"}
	order := w.place(t, guest, 1, "card")

	_, err := w.controller.ReOrder(ctx, order.ID, guest)
	require.ErrorIs(t, err, database.ErrReorderNotDelivered)

	payment, err := w.controller.RequestPayment(ctx, order.ID, guest, "wallet")
	require.NoError(t, err)
	assert.True(t, order.PayableAmount.Equal(payment.Amount))

	_, err = w.controller.RequestPayment(ctx, order.ID, guest, "cash")
	require.ErrorIs(t, err, database.ErrCashRepayment)

	cancelled := w.place(t, guest, 1, "card")
	_, err = w.controller.CancelOrder(ctx, cancelled.ID, guest)
	require.NoError(t, err)
	_, err = w.controller.RequestPayment(ctx, cancelled.ID, guest, "wallet")
	var invalid *database.InvalidTransitionError
	require.ErrorAs(t, err, &invalid, "cancelled orders cannot be paid")

	history, err := w.controller.ListOrders(ctx, guest, "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, history.Counts[models.OrderStatusPending])
	assert.Equal(t, 1, history.Counts[models.OrderStatusCancelled])

	got, err := w.controller.Order(ctx, order.ID, guest)
	require.NoError(t, err)
	assert.Equal(t, order.Code(), got.Code())
}
