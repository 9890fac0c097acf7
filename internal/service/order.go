package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/event"
	"github.com/utafrali/rxstore/internal/repository"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

// CodeInvalidTransition rejects a status change the lifecycle does not allow.
const CodeInvalidTransition = "INVALID_STATUS_TRANSITION"

// UpdateStatusInput holds the parameters for an order status change.
type UpdateStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending_payment processing shipped delivered cancelled"`
}

// OrderService serves order history to shoppers and order management to the
// back-office.
type OrderService struct {
	repo     repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		producer: producer,
		logger:   logger,
		now:      utcNow,
	}
}

// ListUserOrders returns a shopper's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("authentication required")
	}
	orders, total, err := s.repo.List(ctx, domain.OrderFilter{UserID: userID, Offset: offset, Limit: limit})
	if err != nil {
		return nil, 0, fmt.Errorf("list user orders: %w", err)
	}
	return orders, total, nil
}

// GetUserOrder returns one of the shopper's orders by number. Orders of
// other shoppers are reported as missing.
func (s *OrderService) GetUserOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	order, err := s.repo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order", orderNumber)
	}
	return order, nil
}

// ListOrders returns orders for the back-office.
func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	if filter.Status != "" && !domain.IsValidStatus(filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", filter.Status))
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrder returns an order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// UpdateStatus moves an order along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", status))
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}
	if !order.CanTransitionTo(status) {
		return nil, apperrors.Conflict(CodeInvalidTransition,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
	}

	from := order.Status
	now := s.now()
	if err := s.repo.UpdateStatus(ctx, id, from, status, now); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = status
	order.UpdatedAt = now
	orderStatusChanges.WithLabelValues(status).Inc()

	logPublishError(ctx, s.logger, event.TopicOrderStatusChanged,
		s.producer.PublishOrderStatusChanged(ctx, order, from), slog.String("order_id", id))

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("from", from),
		slog.String("to", status),
	)
	return order, nil
}

// Dashboard summarizes the store. "Today" starts at midnight store time.
func (s *OrderService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	local := s.now().In(storeLocation)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, storeLocation)

	stats, err := s.repo.Stats(ctx, midnight.UTC())
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}
