package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusConfirm, OrderStatusCancelled},
		OrderStatusConfirm:    {OrderStatusProcessing},
		OrderStatusProcessing: {OrderStatusOnTheWay},
		OrderStatusOnTheWay:   {OrderStatusDelivered},
	}
	all := []OrderStatus{
		OrderStatusPending, OrderStatusConfirm, OrderStatusProcessing,
		OrderStatusOnTheWay, OrderStatusDelivered, OrderStatusCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestRiderSignalsMapToStoredStatus(t *testing.T) {
	assert.Equal(t, OrderStatusOnTheWay, OrderStatusPickup.Stored())
	assert.Equal(t, OrderStatusDelivered, OrderStatusDeliveredAndPaid.Stored())
	assert.Equal(t, OrderStatusProcessing, OrderStatusProcessing.Stored())

	status, err := ParseOrderStatus("deliveredAndPaid")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusDeliveredAndPaid, status)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
}

func TestRiderSignals(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusProcessing, OrderStatusPickup, OrderStatusOnTheWay, OrderStatusDelivered, OrderStatusDeliveredAndPaid} {
		assert.True(t, s.IsRiderSignal(), s)
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusConfirm, OrderStatusCancelled} {
		assert.False(t, s.IsRiderSignal(), s)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	method, err := ParsePaymentMethod(" CASH ")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCash, method)
	assert.Equal(t, "cash_on_delivery", method.GatewayID())

	_, err = ParsePaymentMethod("bitcoin")
	assert.Error(t, err)

	_, err = ParsePaymentMethod("")
	assert.Error(t, err)
}

func TestFlashSaleActiveAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sale := FlashSale{
		IsActive:     true,
		StartsAt:     start,
		EndsAt:       start.Add(2 * time.Hour),
		Quantity:     10,
		SoldQuantity: 4,
	}

	assert.True(t, sale.ActiveAt(start))
	assert.False(t, sale.ActiveAt(start.Add(-time.Second)))
	assert.False(t, sale.ActiveAt(start.Add(2*time.Hour)))

	sale.SoldQuantity = 10
	assert.False(t, sale.ActiveAt(start.Add(time.Minute)), "exhausted allocation")

	sale.SoldQuantity = 0
	sale.IsActive = false
	assert.False(t, sale.ActiveAt(start.Add(time.Minute)))
}

func TestActiveFlashSaleFirstMatchWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	window := func(id int64, price int64, sold int) FlashSale {
		return FlashSale{
			ID: id, IsActive: true, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour),
			Price: decimal.NewFromInt(price), Quantity: 5, SoldQuantity: sold,
		}
	}
	product := &Product{
		Quantity:   50,
		FlashSales: []FlashSale{window(1, 70, 5), window(2, 80, 1), window(3, 60, 0)},
	}

	fs := product.ActiveFlashSale(now)
	require.NotNil(t, fs)
	assert.Equal(t, int64(2), fs.ID)
	assert.Equal(t, 4, product.AvailableQuantity(now))
}

func TestCartLineShipsSeparately(t *testing.T) {
	main := int64(1)
	other := int64(2)

	assert.False(t, CartLine{}.ShipsSeparately(&main))
	assert.False(t, CartLine{Gift: &CartGift{GiftID: 1}}.ShipsSeparately(&main))
	assert.False(t, CartLine{Gift: &CartGift{GiftID: 1, AddressID: &main}}.ShipsSeparately(&main))
	assert.True(t, CartLine{Gift: &CartGift{GiftID: 1, AddressID: &other}}.ShipsSeparately(&main))
}

func TestCommissionFor(t *testing.T) {
	total := decimal.NewFromInt(200)

	pct := PlatformSettings{CommissionCharge: CommissionPerOrder, CommissionType: CommissionPercentage, Commission: decimal.NewFromInt(10)}
	assert.True(t, pct.CommissionFor(total).Equal(decimal.NewFromInt(20)))

	fixed := PlatformSettings{CommissionCharge: CommissionPerOrder, CommissionType: CommissionFixed, Commission: decimal.NewFromInt(7)}
	assert.True(t, fixed.CommissionFor(total).Equal(decimal.NewFromInt(7)))

	monthly := PlatformSettings{CommissionCharge: CommissionMonthly, CommissionType: CommissionFixed, Commission: decimal.NewFromInt(7)}
	assert.True(t, monthly.CommissionFor(total).IsZero())
}
