package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/pricing"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

type pricingFixture struct {
	svc      *PricingService
	carts    *mockCartRepository
	sessions *mockSessionRepository
	coupons  *mockCouponRepository
	zones    *mockZoneRepository
	postal   *mockPostalLookup
}

func newPricingFixture() *pricingFixture {
	f := &pricingFixture{
		carts:    new(mockCartRepository),
		sessions: new(mockSessionRepository),
		coupons:  new(mockCouponRepository),
		zones:    new(mockZoneRepository),
		postal:   new(mockPostalLookup),
	}
	f.svc = NewPricingService(f.carts, f.sessions, f.coupons, f.zones, f.postal, newTestLogger())
	f.svc.now = fixedClock
	return f
}

// hundredReais is a cart worth R$ 100,00.
func hundredReais(sid string) *domain.Cart {
	return cartWith(sid, domain.CartItem{ProductID: "p1", Name: "Vitamina C", Price: 5000, Quantity: 2})
}

func promo10() *domain.Coupon {
	return &domain.Coupon{
		ID:     "c1",
		Code:   "PROMO10",
		Type:   domain.CouponPercentage,
		Value:  decimal.NewFromInt(10),
		Active: true,
	}
}

func rejectionCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.ErrorIs(t, err, apperrors.ErrRejected)
	return appErr.Code
}

func TestPricingService_Summary_FreshSession(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("checkout session", "s1"))

	summary, err := f.svc.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), summary.Totals.Subtotal)
	assert.Equal(t, int64(10000), summary.Totals.Total)
	assert.True(t, summary.Totals.ShippingPending)
	assert.Nil(t, summary.Coupon)
	f.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPricingService_ApplyCoupon(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("checkout session", "s1"))
	f.coupons.On("GetActiveByCode", ctx, "PROMO10").Return(promo10(), nil)
	f.sessions.On("Save", ctx, mock.MatchedBy(func(s *domain.CheckoutSession) bool {
		return s.Coupon != nil && s.Coupon.Code == "PROMO10" && s.UpdatedAt.Equal(testNow)
	})).Return(nil)

	summary, err := f.svc.ApplyCoupon(ctx, "s1", "  promo10 ")
	require.NoError(t, err)
	assert.Equal(t, "Cupom aplicado: PROMO10", summary.Message)
	assert.Equal(t, int64(1000), summary.Totals.CouponDiscount)
	assert.Equal(t, int64(0), summary.Totals.PixDiscount)
	assert.Equal(t, int64(9000), summary.Totals.Total)
	f.sessions.AssertExpectations(t)
}

func TestPricingService_ApplyCoupon_ReplacesPrevious(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	sess := domain.NewCheckoutSession("s1", testNow)
	sess.Coupon = &domain.AppliedCoupon{Code: "OLD", Type: domain.CouponFixed, Value: decimal.NewFromInt(5)}

	fixed := &domain.Coupon{Code: "FRETE20", Description: "R$ 20 off", Type: domain.CouponFixed, Value: decimal.NewFromInt(20), Active: true}
	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(sess, nil)
	f.coupons.On("GetActiveByCode", ctx, "FRETE20").Return(fixed, nil)
	f.sessions.On("Save", ctx, sess).Return(nil)

	summary, err := f.svc.ApplyCoupon(ctx, "s1", "frete20")
	require.NoError(t, err)
	assert.Equal(t, "FRETE20", sess.Coupon.Code)
	assert.Equal(t, int64(2000), summary.Totals.CouponDiscount)
	assert.Equal(t, "Cupom aplicado: R$ 20 off", summary.Message)
}

func TestPricingService_ApplyCoupon_Rejections(t *testing.T) {
	past := testNow.Add(-time.Hour)

	tests := []struct {
		name   string
		code   string
		coupon *domain.Coupon
		want   string
	}{
		{name: "blank code", code: "   ", want: pricing.CodeCouponRequired},
		{name: "unknown code", code: "NOPE", want: pricing.CodeCouponInvalid},
		{
			name:   "expired",
			code:   "PROMO10",
			coupon: func() *domain.Coupon { c := promo10(); c.ExpiresAt = &past; return c }(),
			want:   pricing.CodeCouponExpired,
		},
		{
			name:   "below minimum",
			code:   "PROMO10",
			coupon: func() *domain.Coupon { c := promo10(); c.MinPurchase = 15000; return c }(),
			want:   pricing.CodeCouponBelowMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPricingFixture()
			ctx := context.Background()
			f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
			f.sessions.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("checkout session", "s1"))
			if tt.coupon != nil {
				f.coupons.On("GetActiveByCode", ctx, tt.code).Return(tt.coupon, nil)
			} else {
				f.coupons.On("GetActiveByCode", ctx, tt.code).Return(nil, apperrors.NotFound("coupon", tt.code))
			}

			_, err := f.svc.ApplyCoupon(ctx, "s1", tt.code)
			assert.Equal(t, tt.want, rejectionCode(t, err))
			f.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestPricingService_ApplyCoupon_EmptyCart(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	f.carts.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("cart", "s1"))
	f.sessions.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("checkout session", "s1"))

	_, err := f.svc.ApplyCoupon(ctx, "s1", "PROMO10")
	assert.Equal(t, CodeCartEmpty, rejectionCode(t, err))
	f.coupons.AssertNotCalled(t, "GetActiveByCode", mock.Anything, mock.Anything)
}

func TestPricingService_ApplyCoupon_LookupFailure(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("checkout session", "s1"))
	f.coupons.On("GetActiveByCode", ctx, "PROMO10").Return(nil, apperrors.Unavailable("postgres", errors.New("timeout")))

	_, err := f.svc.ApplyCoupon(ctx, "s1", "PROMO10")
	assert.True(t, apperrors.IsTransient(err))
}

func TestPricingService_RemoveCoupon(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	sess := domain.NewCheckoutSession("s1", testNow)
	sess.Coupon = &domain.AppliedCoupon{Code: "PROMO10", Type: domain.CouponPercentage, Value: decimal.NewFromInt(10)}

	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(sess, nil)
	f.sessions.On("Save", ctx, sess).Return(nil)

	summary, err := f.svc.RemoveCoupon(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, summary.Coupon)
	assert.Equal(t, int64(10000), summary.Totals.Total)
}

func TestPricingService_RemoveCoupon_NothingToRemove(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("checkout session", "s1"))

	_, err := f.svc.RemoveCoupon(ctx, "s1")
	require.NoError(t, err)
	f.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPricingService_QuoteShipping_ResetsSelection(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	sess := domain.NewCheckoutSession("s1", testNow)
	sess.Shipping = domain.ShippingQuote{
		PostalCode: "20000000",
		Options:    []domain.ShippingOption{{ID: domain.ShippingStandard, Price: 1999}},
		Selected:   &domain.ShippingOption{ID: domain.ShippingStandard, Price: 1999},
	}
	zones := []domain.ShippingZone{{
		ID:            "z-sp",
		Name:          "São Paulo capital",
		PostalRanges:  []domain.PostalRange{{Start: "01000000", End: "05999999"}},
		StandardPrice: 990,
	}}

	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(sess, nil)
	f.zones.On("List", ctx).Return(zones, nil)
	f.sessions.On("Save", ctx, sess).Return(nil)

	summary, err := f.svc.QuoteShipping(ctx, "s1", "01310-100")
	require.NoError(t, err)
	assert.Equal(t, "01310100", summary.Shipping.PostalCode)
	assert.Nil(t, summary.Shipping.Selected)
	assert.True(t, summary.Totals.ShippingPending)
	require.Len(t, summary.Shipping.Options, 2)
	assert.Equal(t, int64(990), summary.Shipping.Options[0].Price)
	assert.Equal(t, "z-sp", summary.Shipping.Options[0].ZoneID)
	assert.Equal(t, int64(2999), summary.Shipping.Options[1].Price)
}

func TestPricingService_QuoteShipping_InvalidCEP(t *testing.T) {
	f := newPricingFixture()

	_, err := f.svc.QuoteShipping(context.Background(), "s1", "1234")
	assert.Equal(t, pricing.CodeInvalidPostalCode, rejectionCode(t, err))
	f.zones.AssertNotCalled(t, "List", mock.Anything)
}

func TestPricingService_SelectShipping(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	sess := domain.NewCheckoutSession("s1", testNow)
	sess.Shipping = domain.ShippingQuote{
		PostalCode: "01310100",
		Options:    pricing.ResolveShipping(nil, "01310100"),
	}

	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(sess, nil)
	f.sessions.On("Save", ctx, sess).Return(nil)

	summary, err := f.svc.SelectShipping(ctx, "s1", domain.ShippingExpress)
	require.NoError(t, err)
	require.NotNil(t, summary.Shipping.Selected)
	assert.Equal(t, domain.ShippingExpress, summary.Shipping.Selected.ID)
	assert.False(t, summary.Totals.ShippingPending)
	assert.Equal(t, int64(10000+3999), summary.Totals.Total)
}

func TestPricingService_SelectShipping_NotQuoted(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("checkout session", "s1"))

	_, err := f.svc.SelectShipping(ctx, "s1", domain.ShippingStandard)
	assert.Equal(t, CodeShippingNotQuoted, rejectionCode(t, err))
}

func TestPricingService_SelectShipping_UnknownOption(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	sess := domain.NewCheckoutSession("s1", testNow)
	sess.Shipping.Options = pricing.ResolveShipping(nil, "01310100")

	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(sess, nil)

	_, err := f.svc.SelectShipping(ctx, "s1", "drone")
	assert.Equal(t, CodeShippingOptionNotFound, rejectionCode(t, err))
}

func TestPricingService_Summary_PixAppliesAfterPayment(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	sess := domain.NewCheckoutSession("s1", testNow)
	sess.Payment = &domain.PaymentData{Method: domain.PaymentMethodPIX}

	f.carts.On("Get", ctx, "s1").Return(hundredReais("s1"), nil)
	f.sessions.On("Get", ctx, "s1").Return(sess, nil)

	summary, err := f.svc.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), summary.Totals.PixDiscount)
	assert.Equal(t, int64(9500), summary.Totals.Total)
}

func TestPricingService_LookupPostalCode(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	addr := &domain.AddressData{PostalCode: "01310100", Street: "Avenida Paulista", City: "São Paulo", State: "SP"}
	f.postal.On("Lookup", ctx, "01310-100").Return(addr, nil)
	f.postal.On("Lookup", ctx, "99999999").Return(nil, apperrors.Unavailable("postal lookup", errors.New("timeout")))

	got, err := f.svc.LookupPostalCode(ctx, "01310-100")
	require.NoError(t, err)
	assert.Equal(t, "Avenida Paulista", got.Street)

	_, err = f.svc.LookupPostalCode(ctx, "99999999")
	assert.True(t, apperrors.IsTransient(err))
}

func TestPricingService_CreateCoupon(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	f.coupons.On("Create", ctx, mock.AnythingOfType("*domain.Coupon")).Return(nil)

	c, err := f.svc.CreateCoupon(ctx, &CouponInput{
		Code:   " bemvindo ",
		Type:   domain.CouponPercentage,
		Value:  decimal.RequireFromString("12.5"),
		Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "BEMVINDO", c.Code)
	assert.Equal(t, testNow, c.CreatedAt)
}

func TestPricingService_CreateCoupon_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CouponInput
	}{
		{"missing code", CouponInput{Type: domain.CouponFixed, Value: decimal.NewFromInt(5)}},
		{"unknown type", CouponInput{Code: "X", Type: "bogo", Value: decimal.NewFromInt(5)}},
		{"zero value", CouponInput{Code: "X", Type: domain.CouponFixed}},
		{"percentage over 100", CouponInput{Code: "X", Type: domain.CouponPercentage, Value: decimal.NewFromInt(101)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPricingFixture()
			_, err := f.svc.CreateCoupon(context.Background(), &tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			f.coupons.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestPricingService_UpdateCoupon_KeepsUsageCount(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	existing := promo10()
	existing.UsageCount = 7
	f.coupons.On("GetByID", ctx, "c1").Return(existing, nil)
	f.coupons.On("Update", ctx, existing).Return(nil)

	c, err := f.svc.UpdateCoupon(ctx, "c1", &CouponInput{Code: "promo15", Type: domain.CouponPercentage, Value: decimal.NewFromInt(15)})
	require.NoError(t, err)
	assert.Equal(t, "PROMO15", c.Code)
	assert.Equal(t, 7, c.UsageCount)
	assert.False(t, c.Active)
}

func TestPricingService_CreateShippingZone_NormalizesRanges(t *testing.T) {
	f := newPricingFixture()
	ctx := context.Background()
	f.zones.On("Create", ctx, mock.AnythingOfType("*domain.ShippingZone")).Return(nil)

	z, err := f.svc.CreateShippingZone(ctx, &ShippingZoneInput{
		Name:         "Grande SP",
		States:       []string{" sp "},
		PostalRanges: []domain.PostalRange{{Start: "01000-000", End: "09999-999"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"SP"}, z.States)
	assert.Equal(t, domain.PostalRange{Start: "01000000", End: "09999999"}, z.PostalRanges[0])
}

func TestPricingService_CreateShippingZone_InvertedRange(t *testing.T) {
	f := newPricingFixture()

	_, err := f.svc.CreateShippingZone(context.Background(), &ShippingZoneInput{
		Name:         "Errada",
		PostalRanges: []domain.PostalRange{{Start: "09999999", End: "01000000"}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPricingService_CreateShippingZone_NeedsRange(t *testing.T) {
	f := newPricingFixture()

	_, err := f.svc.CreateShippingZone(context.Background(), &ShippingZoneInput{Name: "Vazia"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
