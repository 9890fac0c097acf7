package checkout

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/pricing"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
	"github.com/utafrali/rxstore/pkg/validator"
)

// DefaultProofMaxBytes bounds an uploaded payment proof.
const DefaultProofMaxBytes int64 = 5 << 20

// Rejection codes for the payment proof.
const (
	CodeProofRequired       = "PROOF_REQUIRED"
	CodeProofTooLarge       = "PROOF_TOO_LARGE"
	CodeProofTypeNotAllowed = "PROOF_TYPE_NOT_ALLOWED"
)

var proofTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// Proof describes an uploaded payment proof before it is stored.
type Proof struct {
	Filename    string
	ContentType string
	Size        int64
}

// ValidateProof checks presence, size and type of the payment proof.
func ValidateProof(p *Proof, maxBytes int64) error {
	if p == nil || p.Size == 0 {
		return apperrors.Rejected(CodeProofRequired, "Comprovante PIX é obrigatório")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultProofMaxBytes
	}
	if p.Size > maxBytes {
		return apperrors.Rejected(CodeProofTooLarge, "Arquivo muito grande. Máximo 5MB.")
	}
	if _, ok := proofTypes[mediaType(p.ContentType)]; !ok {
		return apperrors.Rejected(CodeProofTypeNotAllowed, "Tipo de arquivo não permitido. Use JPG, PNG ou PDF.")
	}
	return nil
}

// ProofKey is the object key a session's proof is stored under. The
// extension follows the validated content type; the client's filename is
// never trusted.
func ProofKey(sessionID string, p *Proof, now time.Time) string {
	ext := proofTypes[mediaType(p.ContentType)]
	return path.Join("pix-proofs", sessionID, strconv.FormatInt(now.UnixMilli(), 10)+ext)
}

func mediaType(ct string) string {
	mt, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// SubmitIdentification validates the personal data and stores it on the
// session, starting one if needed.
func SubmitIdentification(st State, sessionID string, p domain.PersonalData, now time.Time) (*domain.CheckoutSession, error) {
	if err := st.Enter(StepIdentification); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	if err := validator.Validate(&p); err != nil {
		return nil, err
	}
	p.CPF = validator.Digits(p.CPF)

	sess := st.Session
	if sess == nil {
		sess = domain.NewCheckoutSession(sessionID, now)
	}
	sess.Personal = &p
	sess.UpdatedAt = now
	return sess, nil
}

// SubmitDelivery validates the address and stores it. A payment already on
// the session is kept as is.
func SubmitDelivery(st State, a domain.AddressData, now time.Time) (*domain.CheckoutSession, error) {
	if err := st.Enter(StepDelivery); err != nil {
		return nil, err
	}
	a.State = strings.ToUpper(strings.TrimSpace(a.State))
	if err := validator.Validate(&a); err != nil {
		return nil, err
	}
	a.PostalCode = validator.Digits(a.PostalCode)

	sess := st.Session
	sess.Address = &a
	sess.UpdatedAt = now
	return sess, nil
}

// SubmitPayment freezes the totals for items into the session together with
// the stored proof. The proof must already be validated and uploaded.
func SubmitPayment(st State, items []domain.CartItem, proofURL, proofKey, notes string, now time.Time) (*domain.CheckoutSession, error) {
	if err := st.Enter(StepPayment); err != nil {
		return nil, err
	}
	sess := st.Session
	totals := pricing.ComputeTotals(items, sess.Coupon, sess.Shipping.Selected, domain.PaymentMethodPIX)
	sess.Payment = &domain.PaymentData{
		Method:    domain.PaymentMethodPIX,
		ProofURL:  proofURL,
		ProofKey:  proofKey,
		Notes:     strings.TrimSpace(notes),
		Totals:    totals,
		CreatedAt: now,
	}
	sess.UpdatedAt = now
	return sess, nil
}

// Confirm assembles the order for a session that has reached the summary.
// The caller persists it and then discards the session and the cart.
func Confirm(st State, items []domain.CartItem, newsletter bool, now time.Time) (*domain.Order, error) {
	if err := st.Enter(StepSummary); err != nil {
		return nil, err
	}
	sess := st.Session

	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		orderItems = append(orderItems, domain.NewOrderItem(it))
	}
	var shipping *domain.ShippingOption
	if sess.Shipping.Selected != nil {
		sel := *sess.Shipping.Selected
		shipping = &sel
	}

	return &domain.Order{
		OrderNumber: domain.NewOrderNumber(now),
		UserID:      sess.UserID,
		UserEmail:   sess.UserEmail,
		Status:      domain.OrderStatusPendingPayment,
		Personal:    *sess.Personal,
		Address:     *sess.Address,
		Payment:     *sess.Payment,
		Items:       orderItems,
		Coupon:      sess.Coupon,
		Shipping:    shipping,
		Newsletter:  newsletter,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
