package pricing

import (
	"strings"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

// Rejection codes for coupon checks.
const (
	CodeCouponRequired     = "COUPON_REQUIRED"
	CodeCouponInvalid      = "COUPON_INVALID"
	CodeCouponExpired      = "COUPON_EXPIRED"
	CodeCouponBelowMinimum = "COUPON_BELOW_MINIMUM"
)

// NormalizeCouponCode trims and upper-cases a code typed by the shopper.
func NormalizeCouponCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", apperrors.Rejected(CodeCouponRequired, "Digite um código de cupom")
	}
	return code, nil
}

// CheckCoupon decides whether c may be applied to a cart worth subtotal at
// now. c is the result of an active-only lookup and is nil when nothing
// matched. The usage limit is not consulted.
func CheckCoupon(c *domain.Coupon, subtotal int64, now time.Time) (*domain.AppliedCoupon, error) {
	if c == nil || !c.Active {
		return nil, apperrors.Rejected(CodeCouponInvalid, "Cupom inválido ou expirado")
	}
	if c.IsExpired(now) {
		return nil, apperrors.Rejected(CodeCouponExpired, "Cupom expirado")
	}
	if c.MinPurchase > 0 && subtotal < c.MinPurchase {
		return nil, apperrors.Rejected(CodeCouponBelowMinimum,
			"Valor mínimo para este cupom: "+FormatBRL(c.MinPurchase)).
			WithDetail("min_purchase", c.MinPurchase)
	}
	return &domain.AppliedCoupon{
		Code:        c.Code,
		Type:        c.Type,
		Value:       c.Value,
		Description: DescribeCoupon(c),
	}, nil
}

// DescribeCoupon returns the coupon's own description or a generated one
// such as "10% de desconto".
func DescribeCoupon(c *domain.Coupon) string {
	if c.Description != "" {
		return c.Description
	}
	suffix := ""
	if c.Type == domain.CouponPercentage {
		suffix = "%"
	}
	return c.Value.String() + suffix + " de desconto"
}

// AppliedMessage is the confirmation shown after a coupon is accepted.
func AppliedMessage(c *domain.Coupon) string {
	if c.Description != "" {
		return "Cupom aplicado: " + c.Description
	}
	return "Cupom aplicado: " + c.Code
}
