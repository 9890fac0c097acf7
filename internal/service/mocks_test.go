package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/event"
	"github.com/utafrali/rxstore/internal/storage"
	pkgkafka "github.com/utafrali/rxstore/pkg/kafka"
)

// --- Mock Repositories ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCouponRepository struct {
	mock.Mock
}

func (m *mockCouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCouponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) Update(ctx context.Context, c *domain.Coupon) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCouponRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockZoneRepository struct {
	mock.Mock
}

func (m *mockZoneRepository) Create(ctx context.Context, z *domain.ShippingZone) error {
	return m.Called(ctx, z).Error(0)
}

func (m *mockZoneRepository) GetByID(ctx context.Context, id string) (*domain.ShippingZone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShippingZone), args.Error(1)
}

func (m *mockZoneRepository) List(ctx context.Context) ([]domain.ShippingZone, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ShippingZone), args.Error(1)
}

func (m *mockZoneRepository) Update(ctx context.Context, z *domain.ShippingZone) error {
	return m.Called(ctx, z).Error(0)
}

func (m *mockZoneRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, from, to string, at time.Time) error {
	return m.Called(ctx, id, from, to, at).Error(0)
}

func (m *mockOrderRepository) Stats(ctx context.Context, since time.Time) (*domain.DashboardStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}

func (m *mockSessionRepository) Save(ctx context.Context, sess *domain.CheckoutSession) error {
	return m.Called(ctx, sess).Error(0)
}

func (m *mockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

// --- Mock Storage and Postal Lookup ---

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStorage) GetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type mockPostalLookup struct {
	mock.Mock
}

func (m *mockPostalLookup) Lookup(ctx context.Context, cep string) (*domain.AddressData, error) {
	args := m.Called(ctx, cep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AddressData), args.Error(1)
}

// --- Test Helpers ---

// recordingWriter captures what the producer hands to Kafka.
type recordingWriter struct {
	topics []string
	err    error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	for _, m := range msgs {
		w.topics = append(w.topics, m.Topic)
	}
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer() (*event.Producer, *recordingWriter) {
	w := &recordingWriter{}
	logger := newTestLogger()
	return event.NewProducer(pkgkafka.NewProducerWithWriter(w, []string{"localhost:9092"}, logger), logger), w
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func vitaminC() *domain.Product {
	return &domain.Product{
		ID:       "7f3c1a52-0d7e-4a4e-9a55-7b1f4b2c9e01",
		Name:     "Vitamina C 500mg",
		Slug:     "vitamina-c-500mg",
		Price:    5000,
		Category: "vitaminas",
		InStock:  true,
	}
}

func cartWith(sessionID string, items ...domain.CartItem) *domain.Cart {
	cart := domain.NewCart(sessionID)
	cart.Items = append(cart.Items, items...)
	return cart
}
