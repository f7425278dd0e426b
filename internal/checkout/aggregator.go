package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Aggregator prices a cart. It only reads, so computing the same request
// twice gives the same Breakdown.
type Aggregator struct {
	reader   Reader
	coupons  *CouponResolver
	delivery pricing.DeliveryPolicy
	logger   *zap.Logger
	now      func() time.Time
}

func NewAggregator(reader Reader, delivery pricing.DeliveryPolicy, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		reader:   reader,
		coupons:  NewCouponResolver(reader, reader),
		delivery: delivery,
		logger:   logger,
		now:      time.Now,
	}
}

func (a *Aggregator) withClock(now func() time.Time) *Aggregator {
	cp := *a
	cp.now = now
	return &cp
}

type pricedLine struct {
	models.CartLine
	product *models.Product
	price   pricing.PriceResolution
}

// amounts are the monetary parts of one order, each rounded to cents.
type amounts struct {
	subtotal decimal.Decimal
	itemTax  decimal.Decimal
	gift     decimal.Decimal
	delivery decimal.Decimal
	orderTax decimal.Decimal
	coupon   decimal.Decimal
}

func (m amounts) total() decimal.Decimal {
	return m.subtotal.Add(m.gift)
}

// due is what the order costs before the coupon.
func (m amounts) due() decimal.Decimal {
	return m.total().Add(m.delivery).Add(m.orderTax)
}

func (m amounts) payable() decimal.Decimal {
	return m.due().Sub(m.coupon)
}

func (m amounts) add(o amounts) amounts {
	return amounts{
		subtotal: m.subtotal.Add(o.subtotal),
		itemTax:  m.itemTax.Add(o.itemTax),
		gift:     m.gift.Add(o.gift),
		delivery: m.delivery.Add(o.delivery),
		orderTax: m.orderTax.Add(o.orderTax),
		coupon:   m.coupon.Add(o.coupon),
	}
}

// orderPlan is one order to be created for a shop: either the shop's
// regular lines, or a single gift line shipping to its own address.
type orderPlan struct {
	lines    []pricedLine
	separate bool
	amounts
}

type shopQuote struct {
	shopID   int64
	plans    []orderPlan
	discount Discount
}

func (q shopQuote) sum() amounts {
	var total amounts
	for _, p := range q.plans {
		total = total.add(p.amounts)
	}
	return total
}

// Compute prices req. Lines with a quantity below one or an unknown
// product are logged and left out; a cart with nothing valid yields an
// all-zero Breakdown.
func (a *Aggregator) Compute(ctx context.Context, req CheckoutRequest) (*Breakdown, error) {
	quotes, err := a.quote(ctx, req, false)
	if err != nil {
		return nil, err
	}

	out := &Breakdown{Shops: []ShopBreakdown{}}
	var grand amounts
	for _, q := range quotes {
		sum := q.sum()
		grand = grand.add(sum)

		sb := ShopBreakdown{
			ShopID:         q.shopID,
			TotalAmount:    sum.total(),
			TaxAmount:      sum.itemTax,
			DeliveryCharge: sum.delivery,
			CouponDiscount: sum.coupon,
			OrderTaxAmount: sum.orderTax,
			GiftCharge:     sum.gift,
			PayableAmount:  sum.payable(),
			Orders:         len(q.plans),
		}
		if q.discount.Applied() {
			out.ApplyCoupon = true
			sb.CouponID = &q.discount.Coupon.ID
		}
		out.Shops = append(out.Shops, sb)
	}

	out.TotalAmount = pricing.Round2(grand.total())
	out.DeliveryCharge = pricing.Round2(grand.delivery)
	out.CouponDiscount = pricing.Round2(grand.coupon)
	out.OrderTaxAmount = pricing.Round2(grand.orderTax)
	out.GiftCharge = pricing.Round2(grand.gift)
	out.PayableAmount = pricing.Round2(grand.payable())

	return out, nil
}

// quote prices and plans every shop of req in ascending shop id order.
// With strict set, a line that cannot be priced fails the whole quote.
func (a *Aggregator) quote(ctx context.Context, req CheckoutRequest, strict bool) ([]shopQuote, error) {
	now := a.now()

	priced, err := a.priceLines(ctx, req.Lines, now, strict)
	if err != nil {
		return nil, err
	}
	if len(priced) == 0 {
		return nil, nil
	}

	tax, err := a.reader.OrderBaseTax(ctx)
	if err != nil {
		return nil, fmt.Errorf("order base tax: %w", err)
	}

	var quotes []shopQuote
	for _, group := range groupByShop(priced) {
		plans := a.planShop(group.lines, req.AddressID, tax)

		base := decimal.Zero
		for _, p := range plans {
			base = base.Add(p.total())
		}

		discount, err := a.coupons.Resolve(ctx, req.Buyer, group.shopID, base, req.CouponCode, now)
		if err != nil {
			return nil, fmt.Errorf("shop %d coupon: %w", group.shopID, err)
		}
		allocateCoupon(plans, discount.Amount)

		quotes = append(quotes, shopQuote{shopID: group.shopID, plans: plans, discount: discount})
	}

	return quotes, nil
}

func (a *Aggregator) priceLines(ctx context.Context, lines []models.CartLine, now time.Time, strict bool) ([]pricedLine, error) {
	priced := make([]pricedLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			if strict {
				return nil, fmt.Errorf("product %d: %w", line.ProductID, database.ErrInvalidQuantity)
			}
			a.logger.Warn("skipping cart line",
				zap.Int64("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.String("reason", "quantity below one"))
			continue
		}

		product, err := a.reader.Product(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) && !strict {
				a.logger.Warn("skipping cart line",
					zap.Int64("product_id", line.ProductID),
					zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("product %d: %w", line.ProductID, err)
		}

		line.ShopID = product.ShopID
		priced = append(priced, pricedLine{
			CartLine: line,
			product:  product,
			price:    pricing.ResolveUnitPrice(product, line.SizeID, line.ColorID, now),
		})
	}
	return priced, nil
}

type shopLines struct {
	shopID int64
	lines  []pricedLine
}

func groupByShop(lines []pricedLine) []shopLines {
	index := make(map[int64]int)
	var groups []shopLines
	for _, l := range lines {
		i, ok := index[l.ShopID]
		if !ok {
			i = len(groups)
			index[l.ShopID] = i
			groups = append(groups, shopLines{shopID: l.ShopID})
		}
		groups[i].lines = append(groups[i].lines, l)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].shopID < groups[j].shopID })
	return groups
}

// planShop splits a shop's lines into orders: regular lines first, then
// one order per gift line going to an address other than addressID.
func (a *Aggregator) planShop(lines []pricedLine, addressID *int64, tax *models.VatTax) []orderPlan {
	var (
		regular  []pricedLine
		separate []orderPlan
	)
	for _, l := range lines {
		if l.ShipsSeparately(addressID) {
			separate = append(separate, orderPlan{lines: []pricedLine{l}, separate: true})
			continue
		}
		regular = append(regular, l)
	}

	var plans []orderPlan
	if len(regular) > 0 {
		plans = append(plans, orderPlan{lines: regular})
	}
	plans = append(plans, separate...)

	for i := range plans {
		plans[i].amounts = a.measure(plans[i].lines, tax)
	}
	return plans
}

func (a *Aggregator) measure(lines []pricedLine, tax *models.VatTax) amounts {
	var (
		m        amounts
		quantity int
	)
	for _, l := range lines {
		m.subtotal = m.subtotal.Add(l.price.LineTotal(l.Quantity))
		m.itemTax = m.itemTax.Add(l.price.LineTax(l.Quantity))
		m.gift = m.gift.Add(l.GiftCharge())
		quantity += l.Quantity
	}

	m.subtotal = pricing.Round2(m.subtotal)
	m.itemTax = pricing.Round2(m.itemTax)
	m.gift = pricing.Round2(m.gift)
	if quantity > 0 {
		m.delivery = pricing.Round2(a.delivery.Charge(quantity))
	}
	m.orderTax = pricing.Round2(pricing.OrderBaseVat(m.total(), tax))
	return m
}

// allocateCoupon spreads a shop discount over its orders in plan order,
// never giving an order more than it costs.
func allocateCoupon(plans []orderPlan, discount decimal.Decimal) {
	remaining := discount
	for i := range plans {
		if !remaining.IsPositive() {
			return
		}
		share := decimal.Min(remaining, plans[i].due())
		if !share.IsPositive() {
			continue
		}
		plans[i].coupon = share
		remaining = remaining.Sub(share)
	}
}
