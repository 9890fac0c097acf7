package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/event"
	"github.com/utafrali/rxstore/internal/repository"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

// CodeOutOfStock rejects adding a product that is not available.
const CodeOutOfStock = "OUT_OF_STOCK"

// MaxQuantityPerItem caps a single cart line.
const MaxQuantityPerItem = 99

// UpdateQuantityInput holds the parameters for updating an item quantity.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity" validate:"lte=99"`
}

// AddItemInput holds the parameters for adding an item to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
}

// CartService implements the cart ledger of a shopper session.
type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		producer: producer,
		logger:   logger,
		now:      utcNow,
	}
}

// GetCart returns the session's cart, or an empty one.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(sessionID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem puts one unit of the product in the cart. The line keeps the price
// the product had when it was first added.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string) (*domain.Cart, domain.CartItem, error) {
	if productID == "" {
		return nil, domain.CartItem{}, apperrors.InvalidInput("product id is required")
	}
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, domain.CartItem{}, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, domain.CartItem{}, fmt.Errorf("get product for cart: %w", err)
	}
	if !product.InStock {
		return nil, domain.CartItem{}, apperrors.Rejected(CodeOutOfStock, "Produto indisponível no momento")
	}

	item := cart.Add(*product)
	if item.Quantity > MaxQuantityPerItem {
		return nil, domain.CartItem{}, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, domain.CartItem{}, err
	}
	cartItemsAdded.Inc()

	logPublishError(ctx, s.logger, event.TopicCartItemAdded,
		s.producer.PublishCartItemAdded(ctx, cart, item), slog.String("session_id", sessionID))

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
		slog.Int("quantity", item.Quantity),
	)
	return cart, item, nil
}

// UpdateItemQuantity overwrites a line's quantity. Zero or less removes it.
func (s *CartService) UpdateItemQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cart.SetQuantity(productID, quantity) {
		return nil, apperrors.NotFound("cart item", productID)
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return cart, nil
}

// RemoveItem drops a product's line.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cart.Remove(productID) {
		return nil, apperrors.NotFound("cart item", productID)
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
	)
	return cart, nil
}

// ClearCart empties the session's cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.logger.InfoContext(ctx, "cart cleared", slog.String("session_id", sessionID))
	return nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
