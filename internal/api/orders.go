package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type identity struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type checkoutBody struct {
	identity
	ShopIDs    []int64 `json:"shop_ids"`
	BuyNow     bool    `json:"is_buy_now"`
	AddressID  *int64  `json:"address_id"`
	CouponCode string  `json:"coupon_code"`
	// Items lets a guest check out lines held by the client instead of the
	// session cart.
	Items []cart.GuestItem `json:"items"`
}

type placeOrderBody struct {
	checkoutBody
	PaymentMethod string `json:"payment_method" binding:"required"`
	Instruction   string `json:"instruction"`
	ReferralCode  string `json:"referral_code"`
}

func (h *Handler) checkoutRequest(c *gin.Context, body checkoutBody) (checkout.CheckoutRequest, error) {
	ctx := c.Request.Context()
	req := checkout.CheckoutRequest{
		Buyer:      buyerOf(c, body.Email, body.Phone),
		AddressID:  body.AddressID,
		CouponCode: body.CouponCode,
	}

	if isGuest(c) && len(body.Items) > 0 {
		req.Lines = cart.FromGuestItems(body.Items)
		return req, h.Carts.PriceGifts(ctx, req.Lines)
	}

	lines, err := cartLines(c).List(ctx, store.CartFilter{ShopIDs: body.ShopIDs, BuyNow: body.BuyNow})
	if err != nil {
		return req, err
	}
	req.Lines = lines
	return req, nil
}

func (h *Handler) computeCheckout(c *gin.Context) {
	var body checkoutBody
	if !bindJSON(c, &body) {
		return
	}

	req, err := h.checkoutRequest(c, body)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	breakdown, err := h.Checkout.ComputeCheckout(c.Request.Context(), req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func (h *Handler) placeOrder(c *gin.Context) {
	var body placeOrderBody
	if !bindJSON(c, &body) {
		return
	}
	if isGuest(c) && (body.Email == "" || body.Phone == "") {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "email and phone are required"})
		return
	}

	req, err := h.checkoutRequest(c, body.checkoutBody)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	payment, err := h.Checkout.PlaceOrder(c.Request.Context(), checkout.PlaceOrderRequest{
		CheckoutRequest: req,
		PaymentMethod:   body.PaymentMethod,
		Instruction:     body.Instruction,
		ReferralCode:    body.ReferralCode,
		BuyNow:          body.BuyNow,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *Handler) listOrders(c *gin.Context) {
	var status models.OrderStatus
	if s := c.Query("status"); s != "" {
		parsed, err := models.ParseOrderStatus(s)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		status = parsed
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	_, limit = store.ClampPage(1, limit, 100)

	buyer := buyerOf(c, c.Query("email"), c.Query("phone"))
	history, err := h.Orders.ListOrders(c.Request.Context(), buyer, status, c.Query("cursor"), limit)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.Order(c.Request.Context(), id, buyerOf(c, c.Query("email"), c.Query("phone")))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var who identity
	if isGuest(c) && !bindJSON(c, &who) {
		return
	}

	order, err := h.Orders.CancelOrder(c.Request.Context(), id, buyerOf(c, who.Email, who.Phone))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) reOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.ReOrder(c.Request.Context(), id, buyerOf(c, "", ""))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) requestPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		identity
		PaymentMethod string `json:"payment_method" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}

	payment, err := h.Orders.RequestPayment(c.Request.Context(), id, buyerOf(c, body.Email, body.Phone), body.PaymentMethod)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *Handler) confirmOrder(c *gin.Context) {
	shopID, ok := pathID(c, "id")
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order")
	if !ok {
		return
	}

	order, err := h.Orders.ConfirmOrder(c.Request.Context(), orderID, shopID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		DriverOrderID int64  `json:"driver_order_id" binding:"required"`
		Status        string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	status, err := models.ParseOrderStatus(body.Status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.UpdateOrderStatus(c.Request.Context(), orderID, body.DriverOrderID, status)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
