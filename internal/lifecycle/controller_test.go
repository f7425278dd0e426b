package lifecycle

import (
	"testing"

	"github.com/safar/storefront/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestOwnedBy(t *testing.T) {
	customerID, other := int64(7), int64(8)
	customerOrder := &models.Order{CustomerID: &customerID, Email: "a@example.com", Phone: "1"}
	guestOrder := &models.Order{Email: "g@example.com", Phone: "2"}

	tests := []struct {
		name  string
		order *models.Order
		buyer models.Buyer
		want  bool
	}{
		{"same customer", customerOrder, models.Buyer{CustomerID: &customerID}, true},
		{"other customer", customerOrder, models.Buyer{CustomerID: &other}, false},
		{"guest cannot claim customer order", customerOrder, models.Buyer{Email: "a@example.com", Phone: "1"}, false},
		{"matching guest", guestOrder, models.Buyer{Email: "g@example.com", Phone: "2"}, true},
		{"guest with other phone", guestOrder, models.Buyer{Email: "g@example.com", Phone: "3"}, false},
		{"customer cannot claim guest order", guestOrder, models.Buyer{CustomerID: &customerID, Email: "g@example.com", Phone: "2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ownedBy(tt.order, tt.buyer))
		})
	}
}
