package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/pricing"
	"github.com/utafrali/rxstore/internal/repository"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

// Rejection codes raised while pricing a cart.
const (
	CodeCartEmpty              = "CART_EMPTY"
	CodeShippingNotQuoted      = "SHIPPING_NOT_QUOTED"
	CodeShippingOptionNotFound = "SHIPPING_OPTION_NOT_FOUND"
)

// PostalLookup resolves a CEP into a partial address.
type PostalLookup interface {
	Lookup(ctx context.Context, cep string) (*domain.AddressData, error)
}

// PricingSummary is the priced state of a session: the cart totals plus the
// coupon and shipping choices they were computed from.
type PricingSummary struct {
	Totals   domain.Totals         `json:"totals"`
	Coupon   *domain.AppliedCoupon `json:"coupon,omitempty"`
	Shipping domain.ShippingQuote  `json:"shipping"`
	Message  string                `json:"message,omitempty"`
}

// PricingService applies coupons and shipping to a session's cart, and
// serves the back-office coupon and shipping zone editors.
type PricingService struct {
	carts    repository.CartRepository
	sessions repository.CheckoutSessionRepository
	coupons  repository.CouponRepository
	zones    repository.ShippingZoneRepository
	postal   PostalLookup
	logger   *slog.Logger
	now      func() time.Time
}

// NewPricingService creates a new pricing service.
func NewPricingService(
	carts repository.CartRepository,
	sessions repository.CheckoutSessionRepository,
	coupons repository.CouponRepository,
	zones repository.ShippingZoneRepository,
	postal PostalLookup,
	logger *slog.Logger,
) *PricingService {
	return &PricingService{
		carts:    carts,
		sessions: sessions,
		coupons:  coupons,
		zones:    zones,
		postal:   postal,
		logger:   logger,
		now:      utcNow,
	}
}

// Summary prices the session's cart with whatever coupon and shipping it
// currently holds.
func (s *PricingService) Summary(ctx context.Context, sessionID string) (*PricingSummary, error) {
	cart, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return summarize(cart, sess), nil
}

// ApplyCoupon validates code against the current subtotal and keeps the
// accepted coupon on the session, replacing any previous one.
func (s *PricingService) ApplyCoupon(ctx context.Context, sessionID, code string) (summary *PricingSummary, err error) {
	defer func() { couponAttempts.WithLabelValues(couponResult(err)).Inc() }()

	code, err = pricing.NormalizeCouponCode(code)
	if err != nil {
		return nil, err
	}
	cart, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.Rejected(CodeCartEmpty, "Seu carrinho está vazio")
	}

	coupon, err := notFoundAsNil(s.coupons.GetActiveByCode(ctx, code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	applied, err := pricing.CheckCoupon(coupon, pricing.Subtotal(cart.Items), s.now())
	if err != nil {
		return nil, err
	}

	sess.Coupon = applied
	if err = s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "coupon applied",
		slog.String("session_id", sessionID),
		slog.String("code", code),
	)
	summary = summarize(cart, sess)
	summary.Message = pricing.AppliedMessage(coupon)
	return summary, nil
}

func couponResult(err error) string {
	if err == nil {
		return "applied"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperrors.ErrRejected) {
		return appErr.Code
	}
	return "error"
}

// RemoveCoupon drops the session's coupon, if any.
func (s *PricingService) RemoveCoupon(ctx context.Context, sessionID string) (*PricingSummary, error) {
	cart, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Coupon != nil {
		sess.Coupon = nil
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "coupon removed", slog.String("session_id", sessionID))
	}
	return summarize(cart, sess), nil
}

// QuoteShipping computes the options for a CEP. A new quote always clears
// the previous selection.
func (s *PricingService) QuoteShipping(ctx context.Context, sessionID, cep string) (*PricingSummary, error) {
	digits, err := pricing.NormalizePostalCode(cep)
	if err != nil {
		return nil, err
	}
	cart, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shipping zones: %w", err)
	}
	sess.Shipping = domain.ShippingQuote{
		PostalCode: digits,
		Options:    pricing.ResolveShipping(zones, digits),
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shipping quoted",
		slog.String("session_id", sessionID),
		slog.String("postal_code", digits),
		slog.String("zone_id", sess.Shipping.Options[0].ZoneID),
	)
	return summarize(cart, sess), nil
}

// SelectShipping picks one of the options of the last quote.
func (s *PricingService) SelectShipping(ctx context.Context, sessionID string, optionID domain.ShippingTier) (*PricingSummary, error) {
	cart, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sess.Shipping.Options) == 0 {
		return nil, apperrors.Rejected(CodeShippingNotQuoted, "Calcule o frete antes de escolher uma opção")
	}
	opt, ok := pricing.FindOption(sess.Shipping.Options, optionID)
	if !ok {
		return nil, apperrors.Rejected(CodeShippingOptionNotFound, "Opção de frete inválida")
	}

	sess.Shipping.Selected = opt
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "shipping selected",
		slog.String("session_id", sessionID),
		slog.String("option", string(opt.ID)),
		slog.Int64("price", opt.Price),
	)
	return summarize(cart, sess), nil
}

// LookupPostalCode pre-fills a delivery address from a CEP.
func (s *PricingService) LookupPostalCode(ctx context.Context, cep string) (*domain.AddressData, error) {
	addr, err := s.postal.Lookup(ctx, cep)
	if err != nil {
		if apperrors.IsTransient(err) {
			s.logger.WarnContext(ctx, "postal lookup unavailable", slog.String("error", err.Error()))
		}
		return nil, err
	}
	return addr, nil
}

// load reads the cart and the checkout session, creating empty ones in
// memory when missing.
func (s *PricingService) load(ctx context.Context, sessionID string) (*domain.Cart, *domain.CheckoutSession, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, nil, err
	}
	cart, err := notFoundAsNil(s.carts.Get(ctx, sessionID))
	if err != nil {
		return nil, nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		cart = domain.NewCart(sessionID)
	}
	sess, err := loadCheckoutSession(ctx, s.sessions, sessionID, s.now())
	if err != nil {
		return nil, nil, err
	}
	return cart, sess, nil
}

func (s *PricingService) save(ctx context.Context, sess *domain.CheckoutSession) error {
	sess.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save checkout session: %w", err)
	}
	return nil
}

// loadCheckoutSession returns the stored session or a fresh, unsaved one.
func loadCheckoutSession(ctx context.Context, repo repository.CheckoutSessionRepository, sessionID string, now time.Time) (*domain.CheckoutSession, error) {
	sess, err := notFoundAsNil(repo.Get(ctx, sessionID))
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	if sess == nil {
		sess = domain.NewCheckoutSession(sessionID, now)
	}
	return sess, nil
}

// runningTotals prices items with the session's choices. PIX only counts once
// the payment step has fixed the method.
func runningTotals(items []domain.CartItem, sess *domain.CheckoutSession) domain.Totals {
	if sess == nil {
		return pricing.ComputeTotals(items, nil, nil, "")
	}
	method := ""
	if sess.Payment != nil {
		method = sess.Payment.Method
	}
	return pricing.ComputeTotals(items, sess.Coupon, sess.Shipping.Selected, method)
}

func summarize(cart *domain.Cart, sess *domain.CheckoutSession) *PricingSummary {
	return &PricingSummary{
		Totals:   runningTotals(cart.Items, sess),
		Coupon:   sess.Coupon,
		Shipping: sess.Shipping,
	}
}
