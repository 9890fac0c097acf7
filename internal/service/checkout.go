package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/rxstore/internal/checkout"
	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/event"
	"github.com/utafrali/rxstore/internal/repository"
	"github.com/utafrali/rxstore/internal/storage"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
	"github.com/utafrali/rxstore/pkg/tracing"
)

// CodeOrderFailed is returned when a confirmed checkout could not be saved.
const CodeOrderFailed = "ORDER_FAILED"

// CheckoutView is what the checkout screens render: where the shopper is,
// what has been captured so far, and the running totals.
type CheckoutView struct {
	Step      checkout.Step           `json:"step"`
	Current   checkout.Step           `json:"current_step"`
	Completed []checkout.Step         `json:"completed_steps"`
	Session   *domain.CheckoutSession `json:"session"`
	Items     []domain.CartItem       `json:"items"`
	Totals    domain.Totals           `json:"totals"`
}

// PaymentInput carries the uploaded PIX proof and optional notes.
type PaymentInput struct {
	Proof *checkout.Proof
	Data  io.Reader
	Notes string
}

// ConfirmInput holds the summary-step options.
type ConfirmInput struct {
	Newsletter bool `json:"newsletter"`
}

// CheckoutService runs the checkout steps for a shopper session and turns a
// completed session into an order.
type CheckoutService struct {
	carts         repository.CartRepository
	sessions      repository.CheckoutSessionRepository
	orders        repository.OrderRepository
	store         storage.Storage
	producer      *event.Producer
	logger        *slog.Logger
	proofMaxBytes int64
	now           func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	sessions repository.CheckoutSessionRepository,
	orders repository.OrderRepository,
	store storage.Storage,
	producer *event.Producer,
	logger *slog.Logger,
	proofMaxBytes int64,
) *CheckoutService {
	return &CheckoutService{
		carts:         carts,
		sessions:      sessions,
		orders:        orders,
		store:         store,
		producer:      producer,
		logger:        logger,
		proofMaxBytes: proofMaxBytes,
		now:           utcNow,
	}
}

// load builds the guard state. The session is nil until something has been
// stored for it.
func (s *CheckoutService) load(ctx context.Context, shopper Shopper) (checkout.State, *domain.Cart, error) {
	if err := requireSession(shopper.SessionID); err != nil {
		return checkout.State{}, nil, err
	}
	cart, err := notFoundAsNil(s.carts.Get(ctx, shopper.SessionID))
	if err != nil {
		return checkout.State{}, nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		cart = domain.NewCart(shopper.SessionID)
	}
	sess, err := notFoundAsNil(s.sessions.Get(ctx, shopper.SessionID))
	if err != nil {
		return checkout.State{}, nil, fmt.Errorf("get checkout session: %w", err)
	}
	return checkout.State{
		Authenticated: shopper.Authenticated(),
		CartEmpty:     cart.IsEmpty(),
		Session:       sess,
	}, cart, nil
}

func (s *CheckoutService) view(st checkout.State, step checkout.Step, cart *domain.Cart) *CheckoutView {
	completed := make([]checkout.Step, 0, len(checkout.Steps()))
	for _, candidate := range checkout.Steps() {
		if st.Completed(candidate) {
			completed = append(completed, candidate)
		}
	}
	return &CheckoutView{
		Step:      step,
		Current:   st.Current(),
		Completed: completed,
		Session:   st.Session,
		Items:     cart.Items,
		Totals:    runningTotals(cart.Items, st.Session),
	}
}

// guard counts redirects before handing the error back.
func guard(err error) error {
	if target, ok := checkout.RedirectTarget(err); ok {
		checkoutRedirects.WithLabelValues(target).Inc()
	}
	return err
}

// Current returns the view of the earliest incomplete step.
func (s *CheckoutService) Current(ctx context.Context, shopper Shopper) (*CheckoutView, error) {
	st, cart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}
	return s.view(st, st.Current(), cart), nil
}

// EnterStep checks whether step may be shown and returns its view. When it
// may not, the error carries the step to redirect to.
func (s *CheckoutService) EnterStep(ctx context.Context, shopper Shopper, step checkout.Step) (*CheckoutView, error) {
	st, cart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}
	if err := st.Enter(step); err != nil {
		return nil, guard(err)
	}
	return s.view(st, step, cart), nil
}

// SubmitIdentification stores the shopper's personal data.
func (s *CheckoutService) SubmitIdentification(ctx context.Context, shopper Shopper, input domain.PersonalData) (*CheckoutView, error) {
	st, cart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}
	sess, err := checkout.SubmitIdentification(st, shopper.SessionID, input, s.now())
	if err != nil {
		return nil, guard(err)
	}
	sess.UserID = shopper.UserID
	sess.UserEmail = shopper.UserEmail
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	st.Session = sess

	s.logger.InfoContext(ctx, "checkout identification saved", slog.String("session_id", shopper.SessionID))
	return s.view(st, checkout.StepDelivery, cart), nil
}

// SubmitDelivery stores the delivery address.
func (s *CheckoutService) SubmitDelivery(ctx context.Context, shopper Shopper, input domain.AddressData) (*CheckoutView, error) {
	st, cart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}
	sess, err := checkout.SubmitDelivery(st, input, s.now())
	if err != nil {
		return nil, guard(err)
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	st.Session = sess

	s.logger.InfoContext(ctx, "checkout delivery saved",
		slog.String("session_id", shopper.SessionID),
		slog.String("state", sess.Address.State),
	)
	return s.view(st, checkout.StepPayment, cart), nil
}

// SubmitPayment uploads the PIX proof and freezes the totals. A proof stored
// by an earlier attempt is deleted once the new one is saved.
func (s *CheckoutService) SubmitPayment(ctx context.Context, shopper Shopper, input PaymentInput) (*CheckoutView, error) {
	st, cart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}
	if err := st.Enter(checkout.StepPayment); err != nil {
		return nil, guard(err)
	}
	if err := checkout.ValidateProof(input.Proof, s.proofMaxBytes); err != nil {
		return nil, err
	}

	now := s.now()
	key := checkout.ProofKey(shopper.SessionID, input.Proof, now)
	res, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: input.Proof.ContentType,
		Size:        input.Proof.Size,
		Data:        input.Data,
	})
	if err != nil {
		return nil, apperrors.Unavailable("file storage", err)
	}

	var previousKey string
	if st.Session.Payment != nil {
		previousKey = st.Session.Payment.ProofKey
	}

	sess, err := checkout.SubmitPayment(st, cart.Items, res.URL, res.Key, input.Notes, now)
	if err != nil {
		s.removeProof(ctx, key)
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		s.removeProof(ctx, key)
		return nil, err
	}
	if previousKey != "" && previousKey != key {
		s.removeProof(ctx, previousKey)
	}
	st.Session = sess

	s.logger.InfoContext(ctx, "checkout payment proof saved",
		slog.String("session_id", shopper.SessionID),
		slog.String("key", key),
		slog.Int64("total", sess.Payment.Totals.Total),
	)
	return s.view(st, checkout.StepSummary, cart), nil
}

func (s *CheckoutService) removeProof(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete payment proof",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Confirm turns the session into an order. The cart and the session are
// discarded only after the order is stored; failing to discard them is
// logged and does not undo the order.
func (s *CheckoutService) Confirm(ctx context.Context, shopper Shopper, input ConfirmInput) (order *domain.Order, err error) {
	ctx, span := tracing.Start(ctx, "checkout.Confirm", attribute.String("session_id", shopper.SessionID))
	defer func() { tracing.End(span, err) }()

	st, cart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}
	order, err = checkout.Confirm(st, cart.Items, input.Newsletter, s.now())
	if err != nil {
		return nil, guard(err)
	}
	order.ID = uuid.New().String()
	// The order belongs to whoever is logged in when it is placed, even if
	// another account filled in the earlier steps on this session.
	order.UserID = shopper.UserID
	order.UserEmail = shopper.UserEmail

	if err = s.orders.Create(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to create order",
			slog.String("session_id", shopper.SessionID),
			slog.String("error", err.Error()),
		)
		kind := orderFailureKind(err)
		return nil, &apperrors.AppError{
			Code:    CodeOrderFailed,
			Message: "Erro ao processar pedido. Tente novamente.",
			Status:  apperrors.HTTPStatus(kind),
			Err:     errors.Join(kind, err),
		}
	}

	if delErr := s.carts.Delete(ctx, shopper.SessionID); delErr != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after order",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", delErr.Error()),
		)
	}
	if delErr := s.sessions.Delete(ctx, shopper.SessionID); delErr != nil {
		s.logger.WarnContext(ctx, "failed to discard checkout session after order",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", delErr.Error()),
		)
	}

	ordersCreated.Inc()
	orderRevenue.Add(float64(order.Payment.Totals.Total))
	logPublishError(ctx, s.logger, event.TopicOrderCreated,
		s.producer.PublishOrderCreated(ctx, order), slog.String("order_id", order.ID))

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.Int64("total", order.Payment.Totals.Total),
		slog.Int("items", len(order.Items)),
	)
	return order, nil
}

// orderFailureKind keeps a duplicate order number a conflict and reports
// everything else as a dependency failure.
func orderFailureKind(err error) error {
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		return apperrors.ErrConflict
	}
	return apperrors.ErrUnavailable
}

func (s *CheckoutService) save(ctx context.Context, sess *domain.CheckoutSession) error {
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save checkout session: %w", err)
	}
	return nil
}
