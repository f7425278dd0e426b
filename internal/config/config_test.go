package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, decimal.NewFromInt(15).Equal(cfg.Delivery.BaseCharge))
	assert.True(t, decimal.NewFromInt(5).Equal(cfg.Delivery.PerExtraItem))
	assert.Equal(t, 2, cfg.Delivery.FreeQuantity)
	assert.Equal(t, "RC", cfg.Order.DefaultPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Order.GuestCartTTL)
	assert.Equal(t, 3, cfg.Order.MaxRetries)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DELIVERY_BASE_CHARGE", "12.50")
	t.Setenv("GUEST_CART_TTL", "2h")
	t.Setenv("ORDER_DEFAULT_PREFIX", "SF")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "12.5", cfg.Delivery.BaseCharge.String())
	assert.Equal(t, 2*time.Hour, cfg.Order.GuestCartTTL)
	assert.Equal(t, "SF", cfg.Order.DefaultPrefix)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("charge", func(t *testing.T) {
		t.Setenv("DELIVERY_PER_EXTRA_ITEM", "five")
		_, err := Load()
		assert.ErrorContains(t, err, "DELIVERY_PER_EXTRA_ITEM")
	})

	t.Run("free quantity", func(t *testing.T) {
		t.Setenv("DELIVERY_FREE_QUANTITY", "-1")
		_, err := Load()
		assert.Error(t, err)
	})
}
