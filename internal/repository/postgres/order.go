package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/storefront-core/internal/entity"
	"github.com/egannguyen/storefront-core/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// UpdateOrderProjection applies a domain event to the read model. Inserts use
// ON CONFLICT so redelivered messages stay idempotent.
func (r *orderRepository) UpdateOrderProjection(ctx context.Context, event entity.Event) error {
	switch e := event.(type) {
	case entity.OrderPlaced:
		return r.projectOrderPlaced(ctx, e)
	case *entity.OrderPlaced:
		return r.projectOrderPlaced(ctx, *e)
	case entity.OrderStatusChanged:
		return r.projectStatusChanged(ctx, e)
	case *entity.OrderStatusChanged:
		return r.projectStatusChanged(ctx, *e)
	default:
		return fmt.Errorf("unknown event type for order projection: %s", event.EventType())
	}
}

func (r *orderRepository) projectOrderPlaced(ctx context.Context, e entity.OrderPlaced) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var inserted bool
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, status, subtotal, discount, shipping, tax, total, promo_code,
			ship_name, ship_address, ship_city, ship_postal_code, ship_country, payment_method, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING RETURNING true`,
		e.OrderID, string(entity.StatusProcessing), e.Subtotal, e.Discount, e.Shipping, e.Tax, e.Total, e.PromoCode,
		e.ShippingInfo.Name, e.ShippingInfo.Address, e.ShippingInfo.City, e.ShippingInfo.PostalCode, e.ShippingInfo.Country,
		e.PaymentMethod, e.Notes, e.PlacedAt,
	).Scan(&inserted)
	if err == sql.ErrNoRows {
		// Order already projected, skip (idempotent).
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range e.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, line_item_id, product_id, name, unit_price, original_unit_price, quantity, size, color) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
			e.OrderID, item.ID, item.ProductID, item.Name, item.UnitPrice, item.OriginalUnitPrice, item.Quantity, item.Size, item.Color,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_timeline (order_id, status, date, completed, description) VALUES ($1, $2, $3, $4, $5), ($1, $6, $3, $7, $8)",
		e.OrderID,
		"Order Placed", e.PlacedAt, true, "Your order has been received",
		entity.StatusProcessing.Label(), false, "We are preparing your order",
	)
	if err != nil {
		return fmt.Errorf("failed to insert order timeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *orderRepository) projectStatusChanged(ctx context.Context, e entity.OrderStatusChanged) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2 AND status = $3",
		string(e.To), e.OrderID, string(e.From),
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already projected or out-of-order delivery; skip (idempotent).
		return nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE order_timeline SET completed = TRUE WHERE order_id = $1 AND completed = FALSE",
		e.OrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to close pending timeline entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_timeline (order_id, status, date, completed, description) VALUES ($1, $2, $3, $4, $5)",
		e.OrderID, e.To.Label(), e.ChangedAt, e.To.IsTerminal(), e.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert timeline entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *orderRepository) FindAll(ctx context.Context) ([]entity.Order, error) {
	return r.findOrders(ctx, "SELECT id, status, subtotal, discount, shipping, tax, total, promo_code, ship_name, ship_address, ship_city, ship_postal_code, ship_country, payment_method, notes, created_at FROM orders ORDER BY created_at DESC")
}

func (r *orderRepository) FindRecent(ctx context.Context, limit int) ([]entity.Order, error) {
	return r.findOrders(ctx, "SELECT id, status, subtotal, discount, shipping, tax, total, promo_code, ship_name, ship_address, ship_city, ship_postal_code, ship_country, payment_method, notes, created_at FROM orders ORDER BY created_at DESC LIMIT $1", limit)
}

func (r *orderRepository) FindByID(ctx context.Context, orderID string) (*entity.Order, error) {
	orders, err := r.findOrders(ctx, "SELECT id, status, subtotal, discount, shipping, tax, total, promo_code, ship_name, ship_address, ship_city, ship_postal_code, ship_country, payment_method, notes, created_at FROM orders WHERE id = $1", orderID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrOrderNotFound, orderID)
	}
	return &orders[0], nil
}

func (r *orderRepository) findOrders(ctx context.Context, query string, args ...any) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		var o entity.Order
		var status string
		if err := rows.Scan(&o.ID, &status, &o.Subtotal, &o.Discount, &o.Shipping, &o.Tax, &o.Total, &o.PromoCode,
			&o.ShippingInfo.Name, &o.ShippingInfo.Address, &o.ShippingInfo.City, &o.ShippingInfo.PostalCode, &o.ShippingInfo.Country,
			&o.PaymentMethod, &o.Notes, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = entity.OrderStatus(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
		if err := r.loadTimeline(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, o *entity.Order) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT line_item_id, product_id, name, unit_price, original_unit_price, quantity, size, color FROM order_items WHERE order_id = $1 ORDER BY id",
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item entity.LineItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.UnitPrice, &item.OriginalUnitPrice, &item.Quantity, &item.Size, &item.Color); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (r *orderRepository) loadTimeline(ctx context.Context, o *entity.Order) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, date, completed, description FROM order_timeline WHERE order_id = $1 ORDER BY id",
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query order timeline: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry entity.TimelineEntry
		if err := rows.Scan(&entry.Status, &entry.Date, &entry.Completed, &entry.Description); err != nil {
			return fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		o.Timeline = append(o.Timeline, entry)
	}
	return rows.Err()
}
