package pricing

import (
	"github.com/safar/storefront/internal/config"
	"github.com/shopspring/decimal"
)

// DeliveryPolicy prices delivery from the number of units shipped together.
type DeliveryPolicy interface {
	Charge(quantity int) decimal.Decimal
}

// DeliveryFunc adapts a plain function to DeliveryPolicy.
type DeliveryFunc func(quantity int) decimal.Decimal

func (f DeliveryFunc) Charge(quantity int) decimal.Decimal {
	return f(quantity)
}

// TieredDelivery charges BaseCharge for up to FreeQuantity units and
// PerExtraItem for every unit beyond that.
type TieredDelivery struct {
	BaseCharge   decimal.Decimal
	PerExtraItem decimal.Decimal
	FreeQuantity int
}

func NewTieredDelivery(cfg config.DeliveryConfig) TieredDelivery {
	return TieredDelivery{
		BaseCharge:   cfg.BaseCharge,
		PerExtraItem: cfg.PerExtraItem,
		FreeQuantity: cfg.FreeQuantity,
	}
}

func (d TieredDelivery) Charge(quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	charge := d.BaseCharge
	if extra := quantity - d.FreeQuantity; extra > 0 {
		charge = charge.Add(d.PerExtraItem.Mul(decimal.NewFromInt(int64(extra))))
	}
	return charge
}
