package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Catalog interface {
	Product(ctx context.Context, id int64) (*models.Product, error)
	Shop(ctx context.Context, id int64) (*models.Shop, error)
	Gift(ctx context.Context, id int64) (*models.Gift, error)
}

type Service struct {
	catalog Catalog
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, logger: logger, now: time.Now}
}

type AddRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	SizeID    *int64 `json:"size,omitempty"`
	ColorID   *int64 `json:"color,omitempty"`
	Unit      string `json:"unit,omitempty"`
	BuyNow    bool   `json:"is_buy_now"`
}

// Add puts req into the cart, merging with an existing line for the same
// variant. A buy-now add first empties the buy-now cart, so it always holds
// a single line. The resulting quantity may not exceed what the product
// has available.
func (s *Service) Add(ctx context.Context, lines Lines, req AddRequest) (*models.CartLine, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, database.ErrInvalidQuantity
	}

	product, err := s.catalog.Product(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	if req.BuyNow {
		if err := lines.Clear(ctx, store.CartFilter{BuyNow: true}); err != nil {
			return nil, err
		}
	}

	existing, err := lines.Find(ctx, product.ID, req.SizeID, req.ColorID, req.BuyNow)
	if err != nil {
		return nil, err
	}

	current := 0
	if existing != nil {
		current = existing.Quantity
	}
	if current+quantity > product.AvailableQuantity(s.now()) {
		return nil, database.ErrInsufficientStock
	}

	if existing != nil {
		if err := lines.SetQuantity(ctx, existing.ID, current+quantity); err != nil {
			return nil, err
		}
		existing.Quantity = current + quantity
		return existing, nil
	}

	unit := req.Unit
	if unit == "" {
		unit = product.Unit
	}
	line := &models.CartLine{
		ProductID: product.ID,
		ShopID:    product.ShopID,
		Quantity:  quantity,
		SizeID:    req.SizeID,
		ColorID:   req.ColorID,
		Unit:      unit,
		IsBuyNow:  req.BuyNow,
	}
	if err := lines.Insert(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// Increment adds one unit while the product, or its running flash sale,
// still has more than the line holds.
func (s *Service) Increment(ctx context.Context, lines Lines, lineID int64) (*models.CartLine, error) {
	line, err := lines.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}
	product, err := s.catalog.Product(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if product.AvailableQuantity(s.now()) <= line.Quantity {
		return nil, database.ErrInsufficientStock
	}

	if err := lines.SetQuantity(ctx, line.ID, line.Quantity+1); err != nil {
		return nil, err
	}
	line.Quantity++
	return line, nil
}

// Decrement takes one unit off the line; the last unit removes the line.
// The returned line is nil once removed.
func (s *Service) Decrement(ctx context.Context, lines Lines, lineID int64) (*models.CartLine, error) {
	line, err := lines.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.Quantity <= 1 {
		return nil, lines.Delete(ctx, line.ID)
	}

	if err := lines.SetQuantity(ctx, line.ID, line.Quantity-1); err != nil {
		return nil, err
	}
	line.Quantity--
	return line, nil
}

func (s *Service) Remove(ctx context.Context, lines Lines, lineID int64) error {
	return lines.Delete(ctx, lineID)
}

type GiftRequest struct {
	GiftID       int64  `json:"gift_id" binding:"required"`
	AddressID    *int64 `json:"address_id,omitempty"`
	SenderName   string `json:"sender_name"`
	ReceiverName string `json:"receiver_name" binding:"required"`
	Note         string `json:"note"`
}

// AttachGift wraps the line as a gift. The gift must belong to the shop
// selling the line.
func (s *Service) AttachGift(ctx context.Context, lines Lines, lineID int64, req GiftRequest) (*models.CartLine, error) {
	line, err := lines.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}
	gift, err := s.catalog.Gift(ctx, req.GiftID)
	if err != nil {
		return nil, err
	}
	if gift.ShopID != line.ShopID {
		return nil, fmt.Errorf("%w: gift %d is not sold by shop %d", database.ErrGiftNotFound, gift.ID, line.ShopID)
	}

	line.Gift = &models.CartGift{
		GiftID:       gift.ID,
		Price:        gift.Price,
		AddressID:    req.AddressID,
		SenderName:   req.SenderName,
		ReceiverName: req.ReceiverName,
		Note:         req.Note,
	}
	if err := lines.SetGift(ctx, line.ID, line.Gift); err != nil {
		return nil, err
	}
	return line, nil
}

// PriceGifts sets every gift line's charge from the catalog, so a client
// supplied cart cannot choose its own gift price.
func (s *Service) PriceGifts(ctx context.Context, lines []models.CartLine) error {
	for i := range lines {
		if lines[i].Gift == nil {
			continue
		}
		gift, err := s.catalog.Gift(ctx, lines[i].Gift.GiftID)
		if err != nil {
			return err
		}
		g := *lines[i].Gift
		g.Price = gift.Price
		lines[i].Gift = &g
	}
	return nil
}

func (s *Service) RemoveGift(ctx context.Context, lines Lines, lineID int64) error {
	return lines.SetGift(ctx, lineID, nil)
}

// LineView is a cart line as shown to the buyer.
type LineView struct {
	LineID             int64            `json:"line_id"`
	ProductID          int64            `json:"product_id"`
	Name               string           `json:"name"`
	Quantity           int              `json:"quantity"`
	Price              decimal.Decimal  `json:"price"`
	DiscountPrice      decimal.Decimal  `json:"discount_price"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	Size               string           `json:"size,omitempty"`
	Color              string           `json:"color,omitempty"`
	Unit               string           `json:"unit,omitempty"`
	Gift               *models.CartGift `json:"gift,omitempty"`
}

type ShopCart struct {
	ShopID   int64      `json:"shop_id"`
	ShopName string     `json:"shop_name"`
	Lines    []LineView `json:"products"`
}

// ShopWise groups lines by shop in ascending shop id order and prices each
// line for display. DiscountPrice is zero when the line sells at list
// price. Lines whose product is gone are left out.
func (s *Service) ShopWise(ctx context.Context, lines []models.CartLine) ([]ShopCart, error) {
	now := s.now()
	byShop := make(map[int64]*ShopCart)
	var order []int64

	for _, l := range lines {
		product, err := s.catalog.Product(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				s.logger.Warn("cart line without product", zap.Int64("product_id", l.ProductID))
				continue
			}
			return nil, err
		}

		sc, ok := byShop[product.ShopID]
		if !ok {
			shop, err := s.catalog.Shop(ctx, product.ShopID)
			if err != nil {
				return nil, err
			}
			sc = &ShopCart{ShopID: shop.ID, ShopName: shop.Name, Lines: []LineView{}}
			byShop[shop.ID] = sc
			order = append(order, shop.ID)
		}

		price := pricing.ResolveUnitPrice(product, l.SizeID, l.ColorID, now)
		view := LineView{
			LineID:             l.ID,
			ProductID:          product.ID,
			Name:               product.Name,
			Quantity:           l.Quantity,
			Price:              pricing.Round2(price.MainPrice),
			DiscountPrice:      decimal.Zero,
			DiscountPercentage: pricing.Round2(price.DiscountPercentage),
			Size:               product.SizeName(l.SizeID),
			Color:              product.ColorName(l.ColorID),
			Unit:               l.Unit,
			Gift:               l.Gift,
		}
		if price.Discounted() {
			view.DiscountPrice = pricing.Round2(price.UnitPrice)
		}
		sc.Lines = append(sc.Lines, view)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]ShopCart, 0, len(order))
	for _, id := range order {
		out = append(out, *byShop[id])
	}
	return out, nil
}
