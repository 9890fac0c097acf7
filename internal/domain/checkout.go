package domain

import "time"

// PaymentMethodPIX is the only payment instrument the storefront accepts.
const PaymentMethodPIX = "pix"

// PersonalData is captured by the identification step.
type PersonalData struct {
	Name  string `json:"name" validate:"required" message:"Nome é obrigatório"`
	Email string `json:"email" validate:"required,loosemail" message:"E-mail inválido"`
	Phone string `json:"phone" validate:"required" message:"Telefone é obrigatório"`
	CPF   string `json:"cpf" validate:"required,cpf" message:"CPF inválido"`
}

// AddressData is captured by the delivery step.
type AddressData struct {
	PostalCode string `json:"cep" validate:"required,cep" message:"CEP inválido"`
	Street     string `json:"street" validate:"required" message:"Endereço é obrigatório"`
	Number     string `json:"number" validate:"required" message:"Número é obrigatório"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district" validate:"required" message:"Bairro é obrigatório"`
	City       string `json:"city" validate:"required" message:"Cidade é obrigatória"`
	State      string `json:"state" validate:"required" message:"Estado é obrigatório"`
}

// Totals is a priced view of a cart. Amounts are in cents. ShippingPending is
// set while no shipping option has been selected.
type Totals struct {
	Subtotal        int64 `json:"subtotal"`
	CouponDiscount  int64 `json:"coupon_discount"`
	PixDiscount     int64 `json:"pix_discount"`
	ShippingPrice   int64 `json:"shipping_price"`
	Total           int64 `json:"total"`
	ShippingPending bool  `json:"shipping_pending"`
}

// PaymentData is captured by the payment step. Totals is frozen at the
// moment the proof was accepted.
type PaymentData struct {
	Method    string    `json:"method"`
	ProofURL  string    `json:"proof_url"`
	ProofKey  string    `json:"proof_key"`
	Notes     string    `json:"notes,omitempty"`
	Totals    Totals    `json:"totals"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckoutSession is the draft of an order accumulated step by step. It is
// keyed by the shopper session and discarded once the order is created.
type CheckoutSession struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	UserEmail string         `json:"user_email,omitempty"`
	Personal  *PersonalData  `json:"personal,omitempty"`
	Address   *AddressData   `json:"address,omitempty"`
	Payment   *PaymentData   `json:"payment,omitempty"`
	Coupon    *AppliedCoupon `json:"coupon,omitempty"`
	Shipping  ShippingQuote  `json:"shipping"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewCheckoutSession returns an empty draft for the session.
func NewCheckoutSession(sessionID string, now time.Time) *CheckoutSession {
	return &CheckoutSession{
		SessionID: sessionID,
		Shipping:  ShippingQuote{Options: []ShippingOption{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
