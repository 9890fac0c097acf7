package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/rxstore/internal/checkout"
	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/event"
	"github.com/utafrali/rxstore/internal/storage"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

type checkoutFixture struct {
	svc      *CheckoutService
	carts    *mockCartRepository
	sessions *mockSessionRepository
	orders   *mockOrderRepository
	store    *mockStorage
	writer   *recordingWriter
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		carts:    new(mockCartRepository),
		sessions: new(mockSessionRepository),
		orders:   new(mockOrderRepository),
		store:    new(mockStorage),
	}
	var producer *event.Producer
	producer, f.writer = newTestProducer()
	f.svc = NewCheckoutService(f.carts, f.sessions, f.orders, f.store, producer, newTestLogger(), checkout.DefaultProofMaxBytes)
	f.svc.now = fixedClock
	return f
}

var ana = Shopper{SessionID: "s1", UserID: "u1", UserEmail: "ana@example.com"}

func anaPersonal() domain.PersonalData {
	return domain.PersonalData{Name: "Ana Souza", Email: "ana@example.com", Phone: "11 98888-7777", CPF: "123.456.789-09"}
}

func paulista() domain.AddressData {
	return domain.AddressData{
		PostalCode: "01310-100",
		Street:     "Avenida Paulista",
		Number:     "1000",
		District:   "Bela Vista",
		City:       "São Paulo",
		State:      "sp",
	}
}

// sessionAt returns a session filled in up to (but not including) step.
func sessionAt(step checkout.Step) *domain.CheckoutSession {
	sess := domain.NewCheckoutSession("s1", testNow)
	sess.UserID = "u1"
	sess.UserEmail = "ana@example.com"
	standard := domain.ShippingOption{ID: domain.ShippingStandard, Name: "Entrega Padrão", Price: 1999}
	sess.Shipping = domain.ShippingQuote{PostalCode: "01310100", Options: []domain.ShippingOption{standard}, Selected: &standard}
	if step == checkout.StepIdentification {
		return sess
	}
	p := anaPersonal()
	sess.Personal = &p
	if step == checkout.StepDelivery {
		return sess
	}
	a := paulista()
	sess.Address = &a
	if step == checkout.StepPayment {
		return sess
	}
	sess.Payment = &domain.PaymentData{
		Method:   domain.PaymentMethodPIX,
		ProofURL: "http://files/pix-proofs/s1/old.png",
		ProofKey: "pix-proofs/s1/old.png",
		Totals:   domain.Totals{Subtotal: 10000, PixDiscount: 500, ShippingPrice: 1999, Total: 11499},
	}
	return sess
}

// given stubs the reads. Confirm runs under a tracing span, so the context
// is not matched.
func (f *checkoutFixture) given(cart *domain.Cart, sess *domain.CheckoutSession) {
	ctx := mock.Anything
	if cart == nil {
		f.carts.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("cart", "s1"))
	} else {
		f.carts.On("Get", ctx, "s1").Return(cart, nil)
	}
	if sess == nil {
		f.sessions.On("Get", ctx, "s1").Return(nil, apperrors.NotFound("checkout session", "s1"))
	} else {
		f.sessions.On("Get", ctx, "s1").Return(sess, nil)
	}
}

func redirectOf(t *testing.T, err error) string {
	t.Helper()
	target, ok := checkout.RedirectTarget(err)
	require.True(t, ok, "expected a redirect, got %v", err)
	return target
}

func TestCheckoutService_Current(t *testing.T) {
	tests := []struct {
		name string
		cart *domain.Cart
		sess *domain.CheckoutSession
		want checkout.Step
	}{
		{"empty cart", nil, sessionAt(checkout.StepSummary), checkout.StepCart},
		{"no session", hundredReais("s1"), nil, checkout.StepIdentification},
		{"identified", hundredReais("s1"), sessionAt(checkout.StepDelivery), checkout.StepDelivery},
		{"addressed", hundredReais("s1"), sessionAt(checkout.StepPayment), checkout.StepPayment},
		{"paid", hundredReais("s1"), sessionAt(checkout.StepSummary), checkout.StepSummary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()
			f.given(tt.cart, tt.sess)

			view, err := f.svc.Current(context.Background(), ana)
			require.NoError(t, err)
			assert.Equal(t, tt.want, view.Current)
			assert.Equal(t, tt.want, view.Step)
		})
	}
}

func TestCheckoutService_EnterStep_Unauthenticated(t *testing.T) {
	f := newCheckoutFixture()
	f.given(hundredReais("s1"), nil)

	_, err := f.svc.EnterStep(context.Background(), Shopper{SessionID: "s1"}, checkout.StepIdentification)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, checkout.RedirectLogin, redirectOf(t, err))
}

func TestCheckoutService_EnterStep_RedirectsToCurrent(t *testing.T) {
	f := newCheckoutFixture()
	f.given(hundredReais("s1"), sessionAt(checkout.StepDelivery))

	_, err := f.svc.EnterStep(context.Background(), ana, checkout.StepSummary)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, string(checkout.StepDelivery), redirectOf(t, err))
}

func TestCheckoutService_EnterStep_EmptyCartGoesBackToCart(t *testing.T) {
	f := newCheckoutFixture()
	f.given(nil, nil)

	_, err := f.svc.EnterStep(context.Background(), ana, checkout.StepIdentification)
	assert.Equal(t, string(checkout.StepCart), redirectOf(t, err))
}

func TestCheckoutService_EnterStep_EarlierStepAllowed(t *testing.T) {
	f := newCheckoutFixture()
	f.given(hundredReais("s1"), sessionAt(checkout.StepSummary))

	view, err := f.svc.EnterStep(context.Background(), ana, checkout.StepDelivery)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepDelivery, view.Step)
	assert.Equal(t, checkout.StepSummary, view.Current)
	assert.Equal(t, int64(500), view.Totals.PixDiscount)
}

func TestCheckoutService_SubmitIdentification(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.given(hundredReais("s1"), nil)
	f.sessions.On("Save", ctx, mock.MatchedBy(func(s *domain.CheckoutSession) bool {
		return s.Personal != nil && s.Personal.CPF == "12345678909" && s.UserID == "u1"
	})).Return(nil)

	view, err := f.svc.SubmitIdentification(ctx, ana, anaPersonal())
	require.NoError(t, err)
	assert.Equal(t, checkout.StepDelivery, view.Step)
	assert.Equal(t, checkout.StepDelivery, view.Current)
	assert.Equal(t, []checkout.Step{checkout.StepCart, checkout.StepIdentification}, view.Completed)
	f.sessions.AssertExpectations(t)
}

func TestCheckoutService_SubmitIdentification_Invalid(t *testing.T) {
	f := newCheckoutFixture()
	f.given(hundredReais("s1"), nil)

	p := anaPersonal()
	p.CPF = "123"
	_, err := f.svc.SubmitIdentification(context.Background(), ana, p)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCheckoutService_SubmitDelivery(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	sess := sessionAt(checkout.StepDelivery)
	f.given(hundredReais("s1"), sess)
	f.sessions.On("Save", ctx, sess).Return(nil)

	view, err := f.svc.SubmitDelivery(ctx, ana, paulista())
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, view.Step)
	assert.Equal(t, "01310100", sess.Address.PostalCode)
	assert.Equal(t, "SP", sess.Address.State)
}

func TestCheckoutService_SubmitDelivery_BeforeIdentification(t *testing.T) {
	f := newCheckoutFixture()
	f.given(hundredReais("s1"), nil)

	_, err := f.svc.SubmitDelivery(context.Background(), ana, paulista())
	assert.Equal(t, string(checkout.StepIdentification), redirectOf(t, err))
}

func TestCheckoutService_SubmitPayment(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	sess := sessionAt(checkout.StepPayment)
	f.given(hundredReais("s1"), sess)

	key := "pix-proofs/s1/1717243200000.png"
	f.store.On("Upload", ctx, mock.MatchedBy(func(in *storage.UploadInput) bool {
		return in.Key == key && in.ContentType == "image/png" && in.Size == 4
	})).Return(&storage.UploadResult{Key: key, URL: "http://files/" + key}, nil)
	f.sessions.On("Save", ctx, sess).Return(nil)

	view, err := f.svc.SubmitPayment(ctx, ana, PaymentInput{
		Proof: &checkout.Proof{Filename: "comprovante.PNG", ContentType: "image/png", Size: 4},
		Data:  strings.NewReader("data"),
		Notes: " portaria ",
	})
	require.NoError(t, err)
	assert.Equal(t, checkout.StepSummary, view.Step)
	require.NotNil(t, sess.Payment)
	assert.Equal(t, key, sess.Payment.ProofKey)
	assert.Equal(t, "portaria", sess.Payment.Notes)
	assert.Equal(t, domain.Totals{Subtotal: 10000, PixDiscount: 500, ShippingPrice: 1999, Total: 11499}, sess.Payment.Totals)
	f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCheckoutService_SubmitPayment_ReplacesPreviousProof(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	sess := sessionAt(checkout.StepSummary)
	f.given(hundredReais("s1"), sess)

	f.store.On("Upload", ctx, mock.Anything).Return(&storage.UploadResult{Key: "pix-proofs/s1/1717243200000.pdf", URL: "u"}, nil)
	f.sessions.On("Save", ctx, sess).Return(nil)
	f.store.On("Delete", ctx, "pix-proofs/s1/old.png").Return(nil)

	_, err := f.svc.SubmitPayment(ctx, ana, PaymentInput{
		Proof: &checkout.Proof{Filename: "comprovante.pdf", ContentType: "application/pdf", Size: 10},
		Data:  strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	f.store.AssertExpectations(t)
}

func TestCheckoutService_SubmitPayment_SaveFailureRemovesNewProof(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	sess := sessionAt(checkout.StepPayment)
	f.given(hundredReais("s1"), sess)

	key := "pix-proofs/s1/1717243200000.jpg"
	f.store.On("Upload", ctx, mock.Anything).Return(&storage.UploadResult{Key: key, URL: "u"}, nil)
	f.sessions.On("Save", ctx, sess).Return(apperrors.Unavailable("redis", errors.New("down")))
	f.store.On("Delete", ctx, key).Return(nil)

	_, err := f.svc.SubmitPayment(ctx, ana, PaymentInput{
		Proof: &checkout.Proof{ContentType: "image/jpeg", Size: 10},
		Data:  strings.NewReader("jpeg"),
	})
	assert.True(t, apperrors.IsTransient(err))
	f.store.AssertCalled(t, "Delete", ctx, key)
}

func TestCheckoutService_SubmitPayment_RejectsProof(t *testing.T) {
	tests := []struct {
		name  string
		proof *checkout.Proof
		code  string
	}{
		{"missing", nil, checkout.CodeProofRequired},
		{"too large", &checkout.Proof{ContentType: "image/png", Size: checkout.DefaultProofMaxBytes + 1}, checkout.CodeProofTooLarge},
		{"wrong type", &checkout.Proof{ContentType: "image/gif", Size: 10}, checkout.CodeProofTypeNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()
			f.given(hundredReais("s1"), sessionAt(checkout.StepPayment))

			_, err := f.svc.SubmitPayment(context.Background(), ana, PaymentInput{Proof: tt.proof})
			assert.Equal(t, tt.code, rejectionCode(t, err))
			f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_SubmitPayment_StorageDown(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	sess := sessionAt(checkout.StepPayment)
	f.given(hundredReais("s1"), sess)
	f.store.On("Upload", ctx, mock.Anything).Return(nil, errors.New("disk full"))

	_, err := f.svc.SubmitPayment(ctx, ana, PaymentInput{
		Proof: &checkout.Proof{ContentType: "image/png", Size: 10},
		Data:  strings.NewReader("png"),
	})
	assert.True(t, apperrors.IsTransient(err))
	assert.Nil(t, sess.Payment)
}

func TestCheckoutService_Confirm(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.given(hundredReais("s1"), sessionAt(checkout.StepSummary))

	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	f.carts.On("Delete", mock.Anything, "s1").Return(nil)
	f.sessions.On("Delete", mock.Anything, "s1").Return(nil)

	order, err := f.svc.Confirm(ctx, ana, ConfirmInput{Newsletter: true})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "RX1717243200000", order.OrderNumber)
	assert.Equal(t, domain.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, "u1", order.UserID)
	assert.True(t, order.Newsletter)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(10000), order.Items[0].Total)
	assert.Equal(t, int64(11499), order.Payment.Totals.Total)
	assert.Equal(t, []string{event.TopicOrderCreated}, f.writer.topics)
	f.carts.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
}

func TestCheckoutService_Confirm_BelongsToConfirmingUser(t *testing.T) {
	f := newCheckoutFixture()
	sess := sessionAt(checkout.StepSummary)
	sess.UserID = "u-old"
	sess.UserEmail = "old@example.com"
	f.given(hundredReais("s1"), sess)

	var stored *domain.Order
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Order) }).
		Return(nil)
	f.carts.On("Delete", mock.Anything, "s1").Return(nil)
	f.sessions.On("Delete", mock.Anything, "s1").Return(nil)

	order, err := f.svc.Confirm(context.Background(), ana, ConfirmInput{})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "ana@example.com", stored.UserEmail)
	assert.Equal(t, stored, order)
}

func TestCheckoutService_Confirm_CleanupFailureKeepsOrder(t *testing.T) {
	f := newCheckoutFixture()
	f.given(hundredReais("s1"), sessionAt(checkout.StepSummary))

	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.carts.On("Delete", mock.Anything, "s1").Return(errors.New("redis down"))
	f.sessions.On("Delete", mock.Anything, "s1").Return(errors.New("redis down"))

	order, err := f.svc.Confirm(context.Background(), ana, ConfirmInput{})
	require.NoError(t, err)
	assert.NotNil(t, order)
}

func TestCheckoutService_Confirm_OrderFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   error
		status int
	}{
		{"database down", apperrors.Unavailable("postgres", errors.New("timeout")), apperrors.ErrUnavailable, http.StatusServiceUnavailable},
		{"duplicate number", apperrors.AlreadyExists("order", "order_number", "RX1"), apperrors.ErrConflict, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()
			f.given(hundredReais("s1"), sessionAt(checkout.StepSummary))
			f.orders.On("Create", mock.Anything, mock.Anything).Return(tt.err)

			_, err := f.svc.Confirm(context.Background(), ana, ConfirmInput{})
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, CodeOrderFailed, appErr.Code)
			assert.Equal(t, tt.status, appErr.Status)
			assert.ErrorIs(t, err, tt.kind)
			f.carts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			f.sessions.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			assert.Empty(t, f.writer.topics)
		})
	}
}

func TestCheckoutService_Confirm_BeforePayment(t *testing.T) {
	f := newCheckoutFixture()
	f.given(hundredReais("s1"), sessionAt(checkout.StepPayment))

	_, err := f.svc.Confirm(context.Background(), ana, ConfirmInput{})
	assert.Equal(t, string(checkout.StepPayment), redirectOf(t, err))
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
