// Package api exposes checkout, order and cart operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/lifecycle"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

type Checkout interface {
	ComputeCheckout(ctx context.Context, req checkout.CheckoutRequest) (*checkout.Breakdown, error)
	PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*models.Payment, error)
}

type Orders interface {
	CancelOrder(ctx context.Context, orderID int64, buyer models.Buyer) (*models.Order, error)
	ConfirmOrder(ctx context.Context, orderID, shopID int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, driverOrderID int64, status models.OrderStatus) (*models.Order, error)
	ReOrder(ctx context.Context, orderID int64, buyer models.Buyer) (*models.Order, error)
	RequestPayment(ctx context.Context, orderID int64, buyer models.Buyer, paymentMethod string) (*models.Payment, error)
	ListOrders(ctx context.Context, buyer models.Buyer, status models.OrderStatus, cursor string, limit int) (*lifecycle.OrderHistory, error)
	Order(ctx context.Context, orderID int64, buyer models.Buyer) (*models.Order, error)
}

// Directory is the read side the handlers need beyond checkout.
type Directory interface {
	Customer(ctx context.Context, id int64) (*models.Customer, error)
	ShopProducts(ctx context.Context, shopID int64, page, pageSize int) (*store.OffsetPage, error)
}

type Deps struct {
	Checkout  Checkout
	Orders    Orders
	Directory Directory
	Carts     *cart.Service
	// CustomerCart opens the persisted cart of a customer.
	CustomerCart func(customerID int64) cart.Lines
	Sessions     cart.SessionStore
	Logger       *zap.Logger
}

type Handler struct {
	Deps
}

func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &Handler{Deps: deps}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(deps.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.GET("/shops/:id/products", h.listShopProducts)
		v1.POST("/shops/:id/orders/:order/confirm", h.confirmOrder)
		v1.POST("/rider/orders/:id/status", h.updateOrderStatus)

		customer := v1.Group("")
		customer.Use(h.requireCustomer)
		{
			customer.GET("/carts", h.listCart)
			customer.POST("/carts", h.addToCart)
			customer.POST("/carts/:id/increment", h.incrementCart)
			customer.POST("/carts/:id/decrement", h.decrementCart)
			customer.DELETE("/carts/:id", h.removeFromCart)
			customer.POST("/carts/:id/gift", h.attachGift)
			customer.DELETE("/carts/:id/gift", h.removeGift)

			customer.POST("/checkout", h.computeCheckout)
			customer.POST("/orders", h.placeOrder)
			customer.GET("/orders", h.listOrders)
			customer.GET("/orders/:id", h.getOrder)
			customer.POST("/orders/:id/cancel", h.cancelOrder)
			customer.POST("/orders/:id/reorder", h.reOrder)
			customer.POST("/orders/:id/payment", h.requestPayment)
		}

		guest := v1.Group("/guest")
		guest.Use(h.guestSession)
		{
			guest.GET("/carts", h.listCart)
			guest.POST("/carts", h.addToCart)
			guest.POST("/carts/:id/increment", h.incrementCart)
			guest.POST("/carts/:id/decrement", h.decrementCart)
			guest.DELETE("/carts/:id", h.removeFromCart)
			guest.POST("/carts/:id/gift", h.attachGift)
			guest.DELETE("/carts/:id/gift", h.removeGift)

			guest.POST("/checkout", h.computeCheckout)
			guest.POST("/orders", h.placeOrder)
			guest.GET("/orders", h.listOrders)
			guest.GET("/orders/:id", h.getOrder)
			guest.POST("/orders/:id/cancel", h.cancelOrder)
			guest.POST("/orders/:id/payment", h.requestPayment)
		}
	}

	return router
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
