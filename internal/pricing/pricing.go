// Package pricing turns a cart, an applied coupon and a selected shipping
// option into totals. Every amount is an int64 number of cents; coupon values
// are decimals and are rounded half away from zero to whole cents once, when
// they become a discount.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/rxstore/internal/domain"
)

// PixDiscountPercent is the reduction granted for paying by PIX. It stacks
// with any coupon.
const PixDiscountPercent = 5

var hundred = decimal.NewFromInt(100)

// Subtotal is the sum of price × quantity over the lines.
func Subtotal(items []domain.CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}

// DiscountAmount is what the coupon takes off subtotal. A fixed coupon is
// not clamped to the subtotal, so a misconfigured one can exceed it.
func DiscountAmount(c *domain.AppliedCoupon, subtotal int64) int64 {
	if c == nil {
		return 0
	}
	switch c.Type {
	case domain.CouponPercentage:
		return percentOf(subtotal, c.Value)
	case domain.CouponFixed:
		return c.Value.Mul(hundred).Round(0).IntPart()
	default:
		return 0
	}
}

// PixDiscount is the PIX reduction on subtotal for the given payment method.
func PixDiscount(subtotal int64, method string) int64 {
	if method != domain.PaymentMethodPIX {
		return 0
	}
	return percentOf(subtotal, decimal.NewFromInt(PixDiscountPercent))
}

func percentOf(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Round(0).IntPart()
}

// ComputeTotals prices items. method is empty until the shopper reaches the
// payment step; from then on it is the payment method and PIX applies. The
// total is not floored at zero.
func ComputeTotals(items []domain.CartItem, coupon *domain.AppliedCoupon, shipping *domain.ShippingOption, method string) domain.Totals {
	t := domain.Totals{Subtotal: Subtotal(items), ShippingPending: shipping == nil}
	t.CouponDiscount = DiscountAmount(coupon, t.Subtotal)
	t.PixDiscount = PixDiscount(t.Subtotal, method)
	if shipping != nil {
		t.ShippingPrice = shipping.Price
	}
	t.Total = t.Subtotal - t.CouponDiscount - t.PixDiscount + t.ShippingPrice
	return t
}

// FormatBRL renders cents the way pt-BR currency formatting does, e.g.
// 123456 -> "R$ 1.234,56".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), cents%100)
}
