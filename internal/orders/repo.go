package orders

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const pgUniqueViolation = "23505"

type Repo struct{ DB *pgxpool.Pool }

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// CreateOrderTx persists the whole checkout in one transaction: address
// snapshot -> order header -> line items -> cart clear for the user.
// Any failure rolls the whole sequence back; the caller sees ErrConflict
// on a code collision (retryable) or ErrPersistence otherwise.
func (r *Repo) CreateOrderTx(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return persistErr(errors.Wrap(err, "begin"))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Address.ID = uuid.NewString()

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_addresses(id, full_name, phone, street, ward, district, city)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.Address.ID, o.Address.FullName, o.Address.Phone, o.Address.Street,
		o.Address.Ward, o.Address.District, o.Address.City,
	); err != nil {
		return persistErr(errors.Wrap(err, "insert address snapshot"))
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, code, user_id, address_id, order_status, payment_status,
		                   payment_method, total_amount, shipping_fee, discount_amount,
		                   final_amount, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.Code, o.UserID, o.Address.ID, o.OrderStatus, o.PaymentStatus,
		o.PaymentMethod, o.TotalAmount, o.ShippingFee, o.DiscountAmount,
		o.FinalAmount, o.Note,
	); err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: code=%s", ErrConflict, o.Code)
		}
		return persistErr(errors.Wrap(err, "insert order header"))
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_attribute_id,
			                        name, sku, image_url, unit_price, quantity, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			it.ID, it.OrderID, it.ProductID, it.AttributeID,
			it.Name, it.SKU, it.ImageURL, it.UnitPrice, it.Quantity, it.LineTotal,
		); err != nil {
			return persistErr(errors.Wrap(err, "insert order item"))
		}
	}

	// Cart clear rides the same transaction: "order committed, cart kept"
	// is not a state this system can be observed in.
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, o.UserID); err != nil {
		return persistErr(errors.Wrap(err, "clear cart"))
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: code=%s", ErrConflict, o.Code)
		}
		return persistErr(errors.Wrap(err, "commit"))
	}
	return nil
}

// GetByCode loads the full order view. Header+address and items are two
// independent queries, so they run in parallel.
func (r *Repo) GetByCode(ctx context.Context, code string) (*Order, error) {
	var o Order
	var items []OrderItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		row := r.DB.QueryRow(gctx, `
			SELECT o.id, o.code, o.user_id, o.order_status, o.payment_status,
			       o.payment_method, o.total_amount, o.shipping_fee, o.discount_amount,
			       o.final_amount, o.note, o.created_at, o.updated_at,
			       a.id, a.full_name, a.phone, a.street, a.ward, a.district, a.city
			FROM orders o JOIN order_addresses a ON a.id = o.address_id
			WHERE o.code = $1`, code)
		err := row.Scan(&o.ID, &o.Code, &o.UserID, &o.OrderStatus, &o.PaymentStatus,
			&o.PaymentMethod, &o.TotalAmount, &o.ShippingFee, &o.DiscountAmount,
			&o.FinalAmount, &o.Note, &o.CreatedAt, &o.UpdatedAt,
			&o.Address.ID, &o.Address.FullName, &o.Address.Phone, &o.Address.Street,
			&o.Address.Ward, &o.Address.District, &o.Address.City)
		if stderrors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: code=%s", ErrNotFound, code)
		}
		return errors.Wrap(err, "select order")
	})
	g.Go(func() error {
		rows, err := r.DB.Query(gctx, `
			SELECT id, order_id, product_id, product_attribute_id, name, sku,
			       image_url, unit_price, quantity, line_total
			FROM order_items WHERE order_id = (SELECT id FROM orders WHERE code=$1)`, code)
		if err != nil {
			return errors.Wrap(err, "select items")
		}
		defer rows.Close()
		for rows.Next() {
			var it OrderItem
			if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.AttributeID,
				&it.Name, &it.SKU, &it.ImageURL, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
				return errors.Wrap(err, "scan item")
			}
			items = append(items, it)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.Items = items
	return &o, nil
}

// List returns order headers for a user, newest first, optionally filtered
// by order status.
func (r *Repo) List(ctx context.Context, userID string, status Status) ([]Order, error) {
	q := psql.Select("id", "code", "user_id", "order_status", "payment_status",
		"payment_method", "total_amount", "shipping_fee", "discount_amount",
		"final_amount", "created_at", "updated_at").
		From("orders").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC")
	if status != "" {
		q = q.Where(squirrel.Eq{"order_status": status})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list query")
	}

	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Code, &o.UserID, &o.OrderStatus, &o.PaymentStatus,
			&o.PaymentMethod, &o.TotalAmount, &o.ShippingFee, &o.DiscountAmount,
			&o.FinalAmount, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ApplySettlement moves an order to the pair SettleTarget allows for the
// verified gateway verdict. The row is locked by code for the duration, so
// concurrent gateway retries serialize on it; the assignment itself is
// deterministic, which is what makes replays harmless.
func (r *Repo) ApplySettlement(ctx context.Context, code string, success bool) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := lockByCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	next, nextPay, err := SettleTarget(o.OrderStatus, o.PaymentStatus, success)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET order_status=$2, payment_status=$3, updated_at=now()
		WHERE code=$1`, code, next, nextPay); err != nil {
		return nil, errors.Wrap(err, "update settlement")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	o.OrderStatus, o.PaymentStatus = next, nextPay
	return o, nil
}

// Cancel is user-initiated and only allowed while the order is pending.
func (r *Repo) Cancel(ctx context.Context, code, userID string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := lockByCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, fmt.Errorf("%w: code=%s", ErrNotFound, code)
	}
	if !CanTransition(o.OrderStatus, StatusCancelled) {
		return nil, fmt.Errorf("%w: cancel %s order", ErrInvalidTransition, o.OrderStatus)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET order_status=$2, updated_at=now() WHERE code=$1`,
		code, StatusCancelled); err != nil {
		return nil, errors.Wrap(err, "update cancel")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	o.OrderStatus = StatusCancelled
	return o, nil
}

func lockByCode(ctx context.Context, tx pgx.Tx, code string) (*Order, error) {
	var o Order
	row := tx.QueryRow(ctx, `
		SELECT id, code, user_id, order_status, payment_status, payment_method,
		       total_amount, shipping_fee, discount_amount, final_amount,
		       created_at, updated_at
		FROM orders WHERE code=$1 FOR UPDATE`, code)
	err := row.Scan(&o.ID, &o.Code, &o.UserID, &o.OrderStatus, &o.PaymentStatus,
		&o.PaymentMethod, &o.TotalAmount, &o.ShippingFee, &o.DiscountAmount,
		&o.FinalAmount, &o.CreatedAt, &o.UpdatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: code=%s", ErrNotFound, code)
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock order")
	}
	return &o, nil
}

func persistErr(err error) error {
	return fmt.Errorf("%w: %s", ErrPersistence, err)
}
