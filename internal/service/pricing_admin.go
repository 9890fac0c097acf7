package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/pricing"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
	"github.com/utafrali/rxstore/pkg/validator"
)

var maxPercentage = decimal.NewFromInt(100)

// CouponInput is the editable part of a coupon. Value is a percentage for
// percentage coupons and reais for fixed ones.
type CouponInput struct {
	Code        string            `json:"code" validate:"required,max=50"`
	Description string            `json:"description" validate:"max=255"`
	Type        domain.CouponType `json:"type" validate:"required,oneof=percentage fixed"`
	Value       decimal.Decimal   `json:"value"`
	MinPurchase int64             `json:"min_purchase" validate:"gte=0"`
	UsageLimit  *int              `json:"usage_limit" validate:"omitempty,gte=1"`
	Active      bool              `json:"active"`
	ExpiresAt   *time.Time        `json:"expires_at"`
}

func (in *CouponInput) validate() error {
	if err := validator.Validate(in); err != nil {
		return err
	}
	if !in.Value.IsPositive() {
		return apperrors.InvalidInput("coupon value must be greater than zero")
	}
	if in.Type == domain.CouponPercentage && in.Value.GreaterThan(maxPercentage) {
		return apperrors.InvalidInput("percentage coupons must not exceed 100")
	}
	return nil
}

func (in *CouponInput) apply(c *domain.Coupon) {
	c.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	c.Description = strings.TrimSpace(in.Description)
	c.Type = in.Type
	c.Value = in.Value
	c.MinPurchase = in.MinPurchase
	c.UsageLimit = in.UsageLimit
	c.Active = in.Active
	c.ExpiresAt = in.ExpiresAt
}

// ShippingZoneInput is the editable part of a shipping zone.
type ShippingZoneInput struct {
	Name                string               `json:"name" validate:"required,max=120"`
	States              []string             `json:"states"`
	PostalRanges        []domain.PostalRange `json:"postal_ranges" validate:"required,min=1"`
	StandardPrice       int64                `json:"standard_price" validate:"gte=0"`
	ExpressPrice        int64                `json:"express_price" validate:"gte=0"`
	StandardDays        string               `json:"standard_days"`
	ExpressDays         string               `json:"express_days"`
	FreeShippingMinimum int64                `json:"free_shipping_minimum" validate:"gte=0"`
	Position            int                  `json:"position"`
}

// validate normalizes the ranges to bare digits and checks their bounds.
func (in *ShippingZoneInput) validate() error {
	if err := validator.Validate(in); err != nil {
		return err
	}
	for i, r := range in.PostalRanges {
		start, err := pricing.NormalizePostalCode(r.Start)
		if err != nil {
			return apperrors.InvalidInput(fmt.Sprintf("postal_ranges[%d].start must have 8 digits", i))
		}
		end, err := pricing.NormalizePostalCode(r.End)
		if err != nil {
			return apperrors.InvalidInput(fmt.Sprintf("postal_ranges[%d].end must have 8 digits", i))
		}
		if start > end {
			return apperrors.InvalidInput(fmt.Sprintf("postal_ranges[%d] starts after it ends", i))
		}
		in.PostalRanges[i] = domain.PostalRange{Start: start, End: end}
	}
	for i, st := range in.States {
		in.States[i] = strings.ToUpper(strings.TrimSpace(st))
	}
	return nil
}

func (in *ShippingZoneInput) apply(z *domain.ShippingZone) {
	z.Name = strings.TrimSpace(in.Name)
	z.States = in.States
	if z.States == nil {
		z.States = []string{}
	}
	z.PostalRanges = in.PostalRanges
	z.StandardPrice = in.StandardPrice
	z.ExpressPrice = in.ExpressPrice
	z.StandardDays = in.StandardDays
	z.ExpressDays = in.ExpressDays
	z.FreeShippingMinimum = in.FreeShippingMinimum
	z.Position = in.Position
}

// ListCoupons returns every coupon, active or not.
func (s *PricingService) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// GetCoupon returns a coupon by id.
func (s *PricingService) GetCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	c, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

// CreateCoupon stores a new coupon. Codes are unique once upper-cased.
func (s *PricingService) CreateCoupon(ctx context.Context, input *CouponInput) (*domain.Coupon, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	c := &domain.Coupon{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	input.apply(c)

	if err := s.coupons.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	s.logger.InfoContext(ctx, "coupon created",
		slog.String("coupon_id", c.ID),
		slog.String("code", c.Code),
	)
	return c, nil
}

// UpdateCoupon replaces the editable fields of a coupon. The usage count is
// left alone.
func (s *PricingService) UpdateCoupon(ctx context.Context, id string, input *CouponInput) (*domain.Coupon, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	c, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon for update: %w", err)
	}
	input.apply(c)
	c.UpdatedAt = s.now()

	if err := s.coupons.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	s.logger.InfoContext(ctx, "coupon updated", slog.String("coupon_id", c.ID))
	return c, nil
}

// DeleteCoupon removes a coupon. Sessions that already hold it keep their
// snapshot.
func (s *PricingService) DeleteCoupon(ctx context.Context, id string) error {
	if err := s.coupons.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	s.logger.InfoContext(ctx, "coupon deleted", slog.String("coupon_id", id))
	return nil
}

// ListShippingZones returns the zones in match order.
func (s *PricingService) ListShippingZones(ctx context.Context) ([]domain.ShippingZone, error) {
	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shipping zones: %w", err)
	}
	return zones, nil
}

// CreateShippingZone stores a new zone.
func (s *PricingService) CreateShippingZone(ctx context.Context, input *ShippingZoneInput) (*domain.ShippingZone, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	z := &domain.ShippingZone{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	input.apply(z)

	if err := s.zones.Create(ctx, z); err != nil {
		return nil, fmt.Errorf("create shipping zone: %w", err)
	}
	s.logger.InfoContext(ctx, "shipping zone created",
		slog.String("zone_id", z.ID),
		slog.String("name", z.Name),
	)
	return z, nil
}

// UpdateShippingZone replaces the editable fields of a zone.
func (s *PricingService) UpdateShippingZone(ctx context.Context, id string, input *ShippingZoneInput) (*domain.ShippingZone, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	z, err := s.zones.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shipping zone for update: %w", err)
	}
	input.apply(z)
	z.UpdatedAt = s.now()

	if err := s.zones.Update(ctx, z); err != nil {
		return nil, fmt.Errorf("update shipping zone: %w", err)
	}
	s.logger.InfoContext(ctx, "shipping zone updated", slog.String("zone_id", z.ID))
	return z, nil
}

// DeleteShippingZone removes a zone.
func (s *PricingService) DeleteShippingZone(ctx context.Context, id string) error {
	if err := s.zones.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete shipping zone: %w", err)
	}
	s.logger.InfoContext(ctx, "shipping zone deleted", slog.String("zone_id", id))
	return nil
}
