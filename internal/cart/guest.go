package cart

import "github.com/safar/storefront/internal/models"

// GuestItem is a cart entry as a guest client sends it.
type GuestItem struct {
	ProductID int64      `json:"product_id"`
	ShopID    int64      `json:"shop_id"`
	Quantity  int        `json:"quantity"`
	Size      *int64     `json:"size,omitempty"`
	Color     *int64     `json:"color,omitempty"`
	Unit      string     `json:"unit,omitempty"`
	IsBuyNow  bool       `json:"is_buy_now"`
	Gift      *GuestGift `json:"gift,omitempty"`
}

type GuestGift struct {
	ID           int64  `json:"id"`
	AddressID    *int64 `json:"address_id,omitempty"`
	SenderName   string `json:"sender_name,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
	Note         string `json:"note,omitempty"`
}

// FromGuestItems converts a guest payload to cart lines, numbered from 1 in
// payload order. Gift prices are left unset; Service.PriceGifts fills them
// from the catalog.
func FromGuestItems(items []GuestItem) []models.CartLine {
	lines := make([]models.CartLine, 0, len(items))
	for i, item := range items {
		line := models.CartLine{
			ID:        int64(i + 1),
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Quantity:  item.Quantity,
			SizeID:    item.Size,
			ColorID:   item.Color,
			Unit:      item.Unit,
			IsBuyNow:  item.IsBuyNow,
		}
		if g := item.Gift; g != nil {
			line.Gift = &models.CartGift{
				GiftID:       g.ID,
				AddressID:    g.AddressID,
				SenderName:   g.SenderName,
				ReceiverName: g.ReceiverName,
				Note:         g.Note,
			}
		}
		lines = append(lines, line)
	}
	return lines
}
