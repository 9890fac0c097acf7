package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

func (t CouponType) Valid() bool {
	return t == CouponPercentage || t == CouponFixed
}

// Coupon is a discount code. Value is a percentage for percentage coupons
// and an amount in reais for fixed ones. MinPurchase is in cents, zero when
// there is no threshold.
//
// UsageLimit and UsageCount are recorded for the back-office only: nothing
// checks the limit and redemption does not increment the count.
type Coupon struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Type        CouponType      `json:"type"`
	Value       decimal.Decimal `json:"value"`
	MinPurchase int64           `json:"min_purchase"`
	UsageLimit  *int            `json:"usage_limit,omitempty"`
	UsageCount  int             `json:"usage_count"`
	Active      bool            `json:"active"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsExpired reports whether the coupon has an expiry strictly before now.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// AppliedCoupon is the snapshot kept on a checkout session once a code has
// been accepted.
type AppliedCoupon struct {
	Code        string          `json:"code"`
	Type        CouponType      `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}
