package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/database"
	"go.uber.org/zap"
)

var notFound = []error{
	database.ErrCustomerNotFound,
	database.ErrShopNotFound,
	database.ErrProductNotFound,
	database.ErrOrderNotFound,
	database.ErrDriverOrderNotFound,
	database.ErrDriverNotFound,
	database.ErrCartLineNotFound,
	database.ErrGiftNotFound,
	database.ErrPaymentNotFound,
	database.ErrWalletNotFound,
	database.ErrCouponNotFound,
}

var unprocessable = []error{
	database.ErrInsufficientStock,
	database.ErrFlashSaleExhausted,
	database.ErrEmptyCart,
	database.ErrInvalidQuantity,
	database.ErrInvalidPaymentMethod,
	database.ErrCashRepayment,
	database.ErrReorderNotDelivered,
}

func statusFor(err error) int {
	var transition *database.InvalidTransitionError
	switch {
	case errors.As(err, &transition), errors.Is(err, database.ErrOptimisticLockFailed):
		return http.StatusConflict
	case matchesAny(err, notFound):
		return http.StatusNotFound
	case matchesAny(err, unprocessable):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
