package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/pkg/database"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

const orderColumns = `id, order_number, user_id, user_email, status, personal, address, payment,
	coupon, shipping, newsletter, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
// The personal, address, payment, coupon and shipping snapshots are JSONB
// columns; items live in order_items.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

type orderJSON struct {
	personal, address, payment, coupon, shipping []byte
}

func marshalOrder(o *domain.Order) (*orderJSON, error) {
	var (
		out orderJSON
		err error
	)
	if out.personal, err = json.Marshal(o.Personal); err != nil {
		return nil, fmt.Errorf("marshal personal data: %w", err)
	}
	if out.address, err = json.Marshal(o.Address); err != nil {
		return nil, fmt.Errorf("marshal address: %w", err)
	}
	if out.payment, err = json.Marshal(o.Payment); err != nil {
		return nil, fmt.Errorf("marshal payment: %w", err)
	}
	if o.Coupon != nil {
		if out.coupon, err = json.Marshal(o.Coupon); err != nil {
			return nil, fmt.Errorf("marshal coupon: %w", err)
		}
	}
	if o.Shipping != nil {
		if out.shipping, err = json.Marshal(o.Shipping); err != nil {
			return nil, fmt.Errorf("marshal shipping: %w", err)
		}
	}
	return &out, nil
}

func (j *orderJSON) decode(o *domain.Order) error {
	if err := json.Unmarshal(j.personal, &o.Personal); err != nil {
		return fmt.Errorf("unmarshal personal data: %w", err)
	}
	if err := json.Unmarshal(j.address, &o.Address); err != nil {
		return fmt.Errorf("unmarshal address: %w", err)
	}
	if err := json.Unmarshal(j.payment, &o.Payment); err != nil {
		return fmt.Errorf("unmarshal payment: %w", err)
	}
	var coupon domain.AppliedCoupon
	if ok, err := unmarshalOptional(j.coupon, &coupon); err != nil {
		return fmt.Errorf("unmarshal coupon: %w", err)
	} else if ok {
		o.Coupon = &coupon
	}
	var shipping domain.ShippingOption
	if ok, err := unmarshalOptional(j.shipping, &shipping); err != nil {
		return fmt.Errorf("unmarshal shipping: %w", err)
	} else if ok {
		o.Shipping = &shipping
	}
	return nil
}

func orderDest(o *domain.Order, j *orderJSON) []any {
	return []any{
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.UserEmail,
		&o.Status,
		&j.personal,
		&j.address,
		&j.payment,
		&j.coupon,
		&j.shipping,
		&o.Newsletter,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

// Create inserts a new order and its items atomically within a transaction.
// Item IDs are assigned here.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	encoded, err := marshalOrder(o)
	if err != nil {
		return err
	}

	orderQuery := `
		INSERT INTO orders (` + orderColumns + `, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := database.TraceQuery(ctx, "orders.Create", orderQuery)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.UserEmail,
		o.Status,
		encoded.personal,
		encoded.address,
		encoded.payment,
		encoded.coupon,
		encoded.shipping,
		o.Newsletter,
		o.CreatedAt,
		o.UpdatedAt,
		o.Payment.Totals.Total,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "order_number", o.OrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, image_url, quantity, unit_price, total, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i := range o.Items {
		item := &o.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = o.ID
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.ImageURL,
			item.Quantity,
			item.UnitPrice,
			item.Total,
			i,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID together with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, "orders.GetByID", `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByNumber retrieves an order by its human-facing number.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getOne(ctx, "orders.GetByNumber", `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
}

func (r *OrderRepository) getOne(ctx context.Context, op, query, key string) (_ *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var (
		o       domain.Order
		encoded orderJSON
	)
	if err = r.pool.QueryRow(ctx, query, key).Scan(orderDest(&o, &encoded)...); err != nil {
		return nil, notFound(err, "order", key, "scan order")
	}
	if err = encoded.decode(&o); err != nil {
		return nil, err
	}

	orders := []domain.Order{o}
	if err = r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) (_ []domain.Order, total int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, filter.UserID)
		argIndex++
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause(conditions), argIndex, argIndex+1,
	)
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	ctx, end := database.TraceQuery(ctx, "orders.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			o       domain.Order
			encoded orderJSON
		)
		if err = rows.Scan(append(orderDest(&o, &encoded), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		if err = encoded.decode(&o); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	if err = r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// loadItems batch-loads the items of orders in a single query.
func (r *OrderRepository) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, name, image_url, quantity, unit_price, total
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.OrderItem, len(orders))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.Name,
			&it.ImageURL,
			&it.Quantity,
			&it.UnitPrice,
			&it.Total,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}

	for i := range orders {
		if items, ok := byOrder[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}
	return nil
}

// UpdateStatus moves the order from one status to another. The WHERE on the
// current status makes a concurrent change surface as a conflict.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, from, to string, at time.Time) (err error) {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	ctx, end := database.TraceQuery(ctx, "orders.UpdateStatus", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, to, at, id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err = r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current); err != nil {
		return notFound(err, "order", id, "read order status")
	}
	return apperrors.Conflict("ORDER_STATUS_CHANGED",
		fmt.Sprintf("order is %s, not %s", current, from))
}

// Stats gathers the dashboard counters in one round trip. Revenue skips
// cancelled orders.
func (r *OrderRepository) Stats(ctx context.Context, since time.Time) (_ *domain.DashboardStats, err error) {
	query := `
		SELECT
			(SELECT count(*) FROM products),
			(SELECT count(*) FROM categories),
			(SELECT count(*) FROM orders),
			(SELECT count(*) FROM orders WHERE created_at >= $1),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE created_at >= $1 AND status <> $2)`

	ctx, end := database.TraceQuery(ctx, "orders.Stats", query)
	defer func() { end(err) }()

	var s domain.DashboardStats
	if err = r.pool.QueryRow(ctx, query, since, domain.OrderStatusCancelled).Scan(
		&s.Products,
		&s.Categories,
		&s.Orders,
		&s.OrdersToday,
		&s.RevenueToday,
	); err != nil {
		return nil, fmt.Errorf("read dashboard stats: %w", err)
	}
	return &s, nil
}
