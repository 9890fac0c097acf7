package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/rxstore/internal/domain"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

var orderCols = []string{
	"id", "order_number", "user_id", "user_email", "status", "personal", "address", "payment",
	"coupon", "shipping", "newsletter", "created_at", "updated_at",
}

var orderItemCols = []string{"id", "order_id", "product_id", "name", "image_url", "quantity", "unit_price", "total"}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:          "o1",
		OrderNumber: "RX1750000000000",
		UserID:      "u1",
		UserEmail:   "maria@example.com",
		Status:      domain.OrderStatusPendingPayment,
		Personal:    domain.PersonalData{Name: "Maria", Email: "maria@example.com", Phone: "11999990000", CPF: "12345678909"},
		Address:     domain.AddressData{PostalCode: "01310100", Street: "Av. Paulista", Number: "1000", District: "Bela Vista", City: "São Paulo", State: "SP"},
		Payment: domain.PaymentData{
			Method:   domain.PaymentMethodPIX,
			ProofURL: "http://cdn/p.png",
			Totals:   domain.Totals{Subtotal: 10000, CouponDiscount: 1000, PixDiscount: 500, ShippingPrice: 1999, Total: 10499},
		},
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Vitamina C", Quantity: 2, UnitPrice: 5000, Total: 10000},
		},
		Coupon:    &domain.AppliedCoupon{Code: "PROMO10", Type: domain.CouponPercentage, Value: decimal.NewFromInt(10)},
		Shipping:  &domain.ShippingOption{ID: domain.ShippingStandard, Name: "Entrega Padrão", Price: 1999},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func orderRow(t *testing.T, o domain.Order) []any {
	return []any{
		o.ID, o.OrderNumber, o.UserID, o.UserEmail, o.Status,
		mustJSON(t, o.Personal), mustJSON(t, o.Address), mustJSON(t, o.Payment),
		mustJSON(t, o.Coupon), mustJSON(t, o.Shipping), o.Newsletter, o.CreatedAt, o.UpdatedAt,
	}
}

func TestOrderRepository_Create_InsertsOrderAndItemsInOneTransaction(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.OrderNumber, o.UserID, o.UserEmail, o.Status,
			mustJSON(t, o.Personal), mustJSON(t, o.Address), mustJSON(t, o.Payment),
			mustJSON(t, o.Coupon), mustJSON(t, o.Shipping), o.Newsletter, o.CreatedAt, o.UpdatedAt,
			int64(10499)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), "o1", "p1", "Vitamina C", "", 2, int64(5000), int64(10000), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), &o))
	assert.NotEmpty(t, o.Items[0].ID)
	assert.Equal(t, "o1", o.Items[0].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_ItemFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WithArgs(anyArgs(14)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").WithArgs(anyArgs(9)...).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_BeginError(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), &o)
	assert.ErrorContains(t, err, "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByNumber_LoadsSnapshotsAndItems(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectQuery("FROM orders WHERE order_number").
		WithArgs(o.OrderNumber).
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(orderRow(t, o)...))
	mock.ExpectQuery("FROM order_items").
		WithArgs([]string{"o1"}).
		WillReturnRows(pgxmock.NewRows(orderItemCols).
			AddRow("i1", "o1", "p1", "Vitamina C", "", 2, int64(5000), int64(10000)))

	got, err := repo.GetByNumber(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "Maria", got.Personal.Name)
	assert.Equal(t, "01310100", got.Address.PostalCode)
	assert.Equal(t, int64(10499), got.Payment.Totals.Total)
	require.NotNil(t, got.Coupon)
	assert.Equal(t, "PROMO10", got.Coupon.Code)
	require.NotNil(t, got.Shipping)
	assert.Equal(t, int64(1999), got.Shipping.Price)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "i1", got.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders WHERE id").WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_ByUser(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()
	o.Coupon = nil
	o.Shipping = nil

	mock.ExpectQuery(`FROM orders\s+WHERE user_id = \$1\s+ORDER BY created_at DESC`).
		WithArgs("u1", 10, 0).
		WillReturnRows(pgxmock.NewRows(append(orderCols, "total_count")).
			AddRow(append(orderRow(t, o), 1)...))
	mock.ExpectQuery("FROM order_items").
		WithArgs([]string{"o1"}).
		WillReturnRows(pgxmock.NewRows(orderItemCols))

	orders, total, err := repo.List(context.Background(), domain.OrderFilter{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Nil(t, orders[0].Coupon)
	assert.Nil(t, orders[0].Shipping)
	assert.NotNil(t, orders[0].Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusProcessing, now, "o1", domain.OrderStatusPendingPayment).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateStatus(context.Background(), "o1", domain.OrderStatusPendingPayment, domain.OrderStatusProcessing, now)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_ConcurrentChange(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders SET status").WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM orders").WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(domain.OrderStatusCancelled))

	err := repo.UpdateStatus(context.Background(), "o1", domain.OrderStatusPendingPayment, domain.OrderStatusProcessing, now)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_Missing(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders SET status").WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM orders").WithArgs("o1").
		WillReturnError(pgx.ErrNoRows)

	err := repo.UpdateStatus(context.Background(), "o1", domain.OrderStatusPendingPayment, domain.OrderStatusProcessing, now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Stats(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	since := now.Truncate(24 * time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM products`).
		WithArgs(since, domain.OrderStatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"products", "categories", "orders", "orders_today", "revenue_today"}).
			AddRow(40, 6, 120, 3, int64(25990)))

	stats, err := repo.Stats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, &domain.DashboardStats{Products: 40, Categories: 6, Orders: 120, OrdersToday: 3, RevenueToday: 25990}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
