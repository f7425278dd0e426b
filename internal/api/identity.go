package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/models"
)

const (
	// CustomerHeader carries the authenticated customer id, set by the
	// gateway in front of this service.
	CustomerHeader = "X-Customer-ID"
	// CartTokenHeader carries a guest's cart session token.
	CartTokenHeader = "X-Cart-Token"

	buyerKey = "buyer"
	linesKey = "cart_lines"
	guestKey = "guest"
)

func (h *Handler) requireCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.GetHeader(CustomerHeader), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	customer, err := h.Directory.Customer(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.Set(buyerKey, customer.Buyer())
	c.Set(linesKey, h.CustomerCart(customer.ID))
	c.Next()
}

// guestSession binds the guest's cart session, opening a new one when the
// request carries no token. The token is echoed on every response.
func (h *Handler) guestSession(c *gin.Context) {
	token := c.GetHeader(CartTokenHeader)
	if token == "" {
		token = cart.NewToken()
	}
	c.Header(CartTokenHeader, token)

	c.Set(guestKey, true)
	c.Set(linesKey, cart.GuestLines(h.Sessions, token))
	c.Next()
}

func isGuest(c *gin.Context) bool {
	return c.GetBool(guestKey)
}

func cartLines(c *gin.Context) cart.Lines {
	return c.MustGet(linesKey).(cart.Lines)
}

// buyerOf returns the customer bound by requireCustomer, or a guest
// identified by email and phone.
func buyerOf(c *gin.Context, email, phone string) models.Buyer {
	if b, ok := c.Get(buyerKey); ok {
		return b.(models.Buyer)
	}
	return models.Buyer{Email: email, Phone: phone}
}
