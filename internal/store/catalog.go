package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

func CreateShop(ctx context.Context, db database.DBTX, ownerUserID int64, name, prefix string) (*models.Shop, error) {
	shop := &models.Shop{}

	query := `
		INSERT INTO shops (user_id, name, prefix, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, name, prefix, created_at`

	err := db.QueryRowContext(ctx, query, ownerUserID, name, prefix).Scan(
		&shop.ID,
		&shop.UserID,
		&shop.Name,
		&shop.Prefix,
		&shop.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create shop: %w", err)
	}

	return shop, nil
}

func GetShop(ctx context.Context, db database.DBTX, id int64) (*models.Shop, error) {
	shop := &models.Shop{}

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, name, prefix, created_at FROM shops WHERE id = $1`,
		id).Scan(
		&shop.ID,
		&shop.UserID,
		&shop.Name,
		&shop.Prefix,
		&shop.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrShopNotFound
		}
		return nil, fmt.Errorf("get shop: %w", err)
	}

	return shop, nil
}

type CreateProductParams struct {
	ShopID        int64
	Name          string
	Unit          string
	Price         decimal.Decimal
	DiscountPrice decimal.Decimal
	Quantity      int
}

func CreateProduct(ctx context.Context, db database.DBTX, p CreateProductParams) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (shop_id, name, unit, price, discount_price, quantity, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
		RETURNING id, shop_id, name, unit, price, discount_price, quantity, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query,
		p.ShopID, p.Name, p.Unit, p.Price, p.DiscountPrice, p.Quantity).Scan(
		&product.ID,
		&product.ShopID,
		&product.Name,
		&product.Unit,
		&product.Price,
		&product.DiscountPrice,
		&product.Quantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// OptionKind selects the add-on table for AddProductOption.
type OptionKind string

const (
	OptionSize  OptionKind = "size"
	OptionColor OptionKind = "color"
)

func AddProductOption(ctx context.Context, db database.DBTX, kind OptionKind, productID int64, name string, price decimal.Decimal) (int64, error) {
	table := "product_sizes"
	if kind == OptionColor {
		table = "product_colors"
	}

	var id int64
	err := db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (product_id, name, price) VALUES ($1, $2, $3) RETURNING id`, table),
		productID, name, price).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add product %s: %w", kind, err)
	}
	return id, nil
}

// CreateVatTax stores a tax rule. scope is "product" for per-product VAT or
// "order" for the platform order-base tax.
func CreateVatTax(ctx context.Context, db database.DBTX, tax models.VatTax, scope string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO vat_taxes (name, percentage, deduction, scope, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id`,
		tax.Name, tax.Percentage, tax.Deduction, scope).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create vat tax: %w", err)
	}
	return id, nil
}

func AttachProductVat(ctx context.Context, db database.DBTX, productID, vatTaxID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO product_vat_taxes (product_id, vat_tax_id) VALUES ($1, $2)`,
		productID, vatTaxID)
	if err != nil {
		return fmt.Errorf("attach product vat: %w", err)
	}
	return nil
}

func CreateFlashSale(ctx context.Context, db database.DBTX, name string, startsAt, endsAt time.Time) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO flash_sales (name, starts_at, ends_at, is_active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id`,
		name, startsAt, endsAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create flash sale: %w", err)
	}
	return id, nil
}

func AddFlashSaleProduct(ctx context.Context, db database.DBTX, flashSaleID, productID int64, price, discount decimal.Decimal, quantity int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO flash_sale_products (flash_sale_id, product_id, price, discount, quantity, sold_quantity)
		 VALUES ($1, $2, $3, $4, $5, 0)`,
		flashSaleID, productID, price, discount, quantity)
	if err != nil {
		return fmt.Errorf("add flash sale product: %w", err)
	}
	return nil
}

func CreateGift(ctx context.Context, db database.DBTX, shopID int64, name string, price decimal.Decimal) (*models.Gift, error) {
	gift := &models.Gift{ShopID: shopID, Name: name, Price: price}
	err := db.QueryRowContext(ctx,
		`INSERT INTO gifts (shop_id, name, price) VALUES ($1, $2, $3) RETURNING id`,
		shopID, name, price).Scan(&gift.ID)
	if err != nil {
		return nil, fmt.Errorf("create gift: %w", err)
	}
	return gift, nil
}

func GetGift(ctx context.Context, db database.DBTX, id int64) (*models.Gift, error) {
	gift := &models.Gift{}
	err := db.QueryRowContext(ctx,
		`SELECT id, shop_id, name, price FROM gifts WHERE id = $1`, id).Scan(
		&gift.ID, &gift.ShopID, &gift.Name, &gift.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrGiftNotFound
		}
		return nil, fmt.Errorf("get gift: %w", err)
	}
	return gift, nil
}

// GetCatalogProduct loads a product with everything pricing needs: size and
// color surcharges, active product VAT rules and its flash sales ordered by
// start time then id.
func GetCatalogProduct(ctx context.Context, db database.DBTX, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, shop_id, name, unit, price, discount_price, quantity, created_at, updated_at, version
		FROM products
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.ShopID,
		&product.Name,
		&product.Unit,
		&product.Price,
		&product.DiscountPrice,
		&product.Quantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if product.Sizes, err = listOptions(ctx, db, "product_sizes", id); err != nil {
		return nil, err
	}
	if product.Colors, err = listOptions(ctx, db, "product_colors", id); err != nil {
		return nil, err
	}
	if product.VatTaxes, err = listProductVat(ctx, db, id); err != nil {
		return nil, err
	}
	if product.FlashSales, err = listFlashSales(ctx, db, id); err != nil {
		return nil, err
	}

	return product, nil
}

func listOptions(ctx context.Context, db database.DBTX, table string, productID int64) (map[int64]models.ProductOption, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, name, price FROM %s WHERE product_id = $1`, table),
		productID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	options := make(map[int64]models.ProductOption)
	for rows.Next() {
		var opt models.ProductOption
		if err := rows.Scan(&opt.ID, &opt.Name, &opt.Price); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		options[opt.ID] = opt
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return options, nil
}

func listProductVat(ctx context.Context, db database.DBTX, productID int64) ([]models.VatTax, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT v.id, v.name, v.percentage, v.deduction
		FROM vat_taxes v
		JOIN product_vat_taxes pv ON pv.vat_tax_id = v.id
		WHERE pv.product_id = $1 AND v.is_active AND v.scope = 'product'
		ORDER BY v.id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list product vat: %w", err)
	}
	defer rows.Close()

	var taxes []models.VatTax
	for rows.Next() {
		var tax models.VatTax
		if err := rows.Scan(&tax.ID, &tax.Name, &tax.Percentage, &tax.Deduction); err != nil {
			return nil, fmt.Errorf("scan product vat: %w", err)
		}
		taxes = append(taxes, tax)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return taxes, nil
}

func listFlashSales(ctx context.Context, db database.DBTX, productID int64) ([]models.FlashSale, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT f.id, f.name, f.starts_at, f.ends_at, f.is_active,
		       fp.price, fp.discount, fp.quantity, fp.sold_quantity
		FROM flash_sales f
		JOIN flash_sale_products fp ON fp.flash_sale_id = f.id
		WHERE fp.product_id = $1
		ORDER BY f.starts_at, f.id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list flash sales: %w", err)
	}
	defer rows.Close()

	var sales []models.FlashSale
	for rows.Next() {
		var fs models.FlashSale
		err := rows.Scan(
			&fs.ID,
			&fs.Name,
			&fs.StartsAt,
			&fs.EndsAt,
			&fs.IsActive,
			&fs.Price,
			&fs.Discount,
			&fs.Quantity,
			&fs.SoldQuantity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan flash sale: %w", err)
		}
		sales = append(sales, fs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sales, nil
}

// ListShopProducts pages through a shop's products, newest first.
func ListShopProducts(ctx context.Context, db database.DBTX, shopID int64, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE shop_id = $1`, shopID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, shop_id, name, unit, price, discount_price, quantity, created_at, updated_at, version
		FROM products
		WHERE shop_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, shopID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.ShopID,
			&product.Name,
			&product.Unit,
			&product.Price,
			&product.DiscountPrice,
			&product.Quantity,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
