package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/store"
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) listCart(c *gin.Context) {
	buyNow, _ := strconv.ParseBool(c.Query("is_buy_now"))

	lines, err := cartLines(c).List(c.Request.Context(), store.CartFilter{BuyNow: buyNow})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	shops, err := h.Carts.ShopWise(c.Request.Context(), lines)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": len(lines), "shops": shops})
}

func (h *Handler) addToCart(c *gin.Context) {
	var req cart.AddRequest
	if !bindJSON(c, &req) {
		return
	}

	line, err := h.Carts.Add(c.Request.Context(), cartLines(c), req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

func (h *Handler) incrementCart(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	line, err := h.Carts.Increment(c.Request.Context(), cartLines(c), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *Handler) decrementCart(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	line, err := h.Carts.Decrement(c.Request.Context(), cartLines(c), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if line == nil {
		c.JSON(http.StatusOK, gin.H{"removed": true})
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *Handler) removeFromCart(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.Carts.Remove(c.Request.Context(), cartLines(c), id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) attachGift(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cart.GiftRequest
	if !bindJSON(c, &req) {
		return
	}

	line, err := h.Carts.AttachGift(c.Request.Context(), cartLines(c), id, req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *Handler) removeGift(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.Carts.RemoveGift(c.Request.Context(), cartLines(c), id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listShopProducts(c *gin.Context) {
	shopID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	page, pageSize = store.ClampPage(page, pageSize, 100)

	result, err := h.Directory.ShopProducts(c.Request.Context(), shopID, page, pageSize)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
