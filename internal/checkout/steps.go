// Package checkout is the step machine behind the storefront checkout:
// identification, delivery, payment and summary, in that order, ending in
// confirmed. The current step is never stored. It is derived from which
// parts of the session are filled in, so a shopper can only ever be sent
// back to the earliest incomplete step.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/utafrali/rxstore/internal/domain"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

// Step names one screen of the flow. StepCart is the place a shopper is sent
// back to when there is nothing to check out.
type Step string

const (
	StepCart           Step = "cart"
	StepIdentification Step = "identification"
	StepDelivery       Step = "delivery"
	StepPayment        Step = "payment"
	StepSummary        Step = "summary"
	StepConfirmed      Step = "confirmed"
)

// RedirectLogin is the redirect target sent to unauthenticated shoppers.
const RedirectLogin = "login"

// CodeStepRedirect marks a request for a step whose prerequisites are missing.
const CodeStepRedirect = "STEP_REDIRECT"

var order = []Step{StepCart, StepIdentification, StepDelivery, StepPayment, StepSummary, StepConfirmed}

// Steps lists every step in flow order.
func Steps() []Step {
	out := make([]Step, len(order))
	copy(out, order)
	return out
}

func (s Step) index() int {
	for i, o := range order {
		if o == s {
			return i
		}
	}
	return -1
}

// ParseStep maps a path segment onto a step.
func ParseStep(s string) (Step, error) {
	step := Step(strings.ToLower(strings.TrimSpace(s)))
	if step.index() < 0 {
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown checkout step %q", s))
	}
	return step, nil
}

// State is everything the guards look at. Session may be nil before the
// shopper has started checking out.
type State struct {
	Authenticated bool
	CartEmpty     bool
	Session       *domain.CheckoutSession
}

// Current is the earliest step whose data is still missing.
func (st State) Current() Step {
	s := st.Session
	switch {
	case st.CartEmpty:
		return StepCart
	case s == nil || s.Personal == nil:
		return StepIdentification
	case s.Address == nil:
		return StepDelivery
	case s.Payment == nil:
		return StepPayment
	default:
		return StepSummary
	}
}

// Completed reports whether step's data has been captured.
func (st State) Completed(step Step) bool {
	return step.index() < st.Current().index()
}

// Enter checks that step may be shown. Unauthenticated shoppers are sent to
// login; anyone else asking for a step past the current one is sent back to
// the current one. Confirmed is never entered directly.
func (st State) Enter(step Step) error {
	if !st.Authenticated {
		return apperrors.Unauthorized("Faça login para finalizar a compra").
			WithDetail("redirect_to", RedirectLogin)
	}
	current := st.Current()
	if step == StepConfirmed || step.index() > current.index() {
		return Redirect(current)
	}
	return nil
}

// Redirect builds the error that sends the shopper to step.
func Redirect(step Step) error {
	return apperrors.Conflict(CodeStepRedirect, fmt.Sprintf("complete the %s step first", step)).
		WithDetail("redirect_to", string(step))
}

// RedirectTarget extracts the step a redirect error points to.
func RedirectTarget(err error) (string, bool) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return "", false
	}
	target, ok := appErr.Details["redirect_to"].(string)
	return target, ok
}
