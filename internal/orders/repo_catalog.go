package orders

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UnitPrice resolves the price an order line freezes: sale_price when set,
// list price otherwise. When a variant is given, it must exist and belong
// to the product. Prices are read server-side so client-supplied values
// never enter an order.
func (r *Repo) UnitPrice(ctx context.Context, productID string, attributeID *string) (int64, error) {
	var price int64
	var sale *int64
	err := r.DB.QueryRow(ctx,
		`SELECT price, sale_price FROM products WHERE id=$1`, productID).Scan(&price, &sale)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: product %s not found", ErrValidation, productID)
	}
	if err != nil {
		return 0, errors.Wrap(err, "select price")
	}

	if attributeID != nil {
		var n int
		if err := r.DB.QueryRow(ctx,
			`SELECT COUNT(*) FROM product_attributes WHERE id=$1 AND product_id=$2`,
			*attributeID, productID).Scan(&n); err != nil {
			return 0, errors.Wrap(err, "check attribute")
		}
		if n == 0 {
			return 0, fmt.Errorf("%w: attribute %s not found for product %s", ErrValidation, *attributeID, productID)
		}
	}

	if sale != nil {
		return *sale, nil
	}
	return price, nil
}

func (r *Repo) Product(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, sku, name, image_url, price, sale_price, stock, created_at, updated_at
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.SKU, &p.Name, &p.ImageURL, &p.Price, &p.SalePrice, &p.Stock,
			&p.CreatedAt, &p.UpdatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %s not found", ErrValidation, productID)
	}
	if err != nil {
		return Product{}, errors.Wrap(err, "select product")
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, sku, name, image_url, price, sale_price, stock, created_at, updated_at
		FROM products ORDER BY sku`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.ImageURL, &p.Price, &p.SalePrice,
			&p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) CartFor(ctx context.Context, userID string) ([]CartItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, product_id, product_attribute_id, quantity, created_at
		FROM cart_items WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	defer rows.Close()

	var out []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.AttributeID,
			&it.Quantity, &it.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan cart item")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) AddCartItem(ctx context.Context, it CartItem) (CartItem, error) {
	if it.Quantity <= 0 {
		return CartItem{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	// Validates product/attribute existence as a side effect.
	if _, err := r.UnitPrice(ctx, it.ProductID, it.AttributeID); err != nil {
		return CartItem{}, err
	}

	it.ID = uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO cart_items(id, user_id, product_id, product_attribute_id, quantity)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		it.ID, it.UserID, it.ProductID, it.AttributeID, it.Quantity)
	if err := row.Scan(&it.CreatedAt); err != nil {
		return CartItem{}, errors.Wrap(err, "insert cart item")
	}
	return it, nil
}
