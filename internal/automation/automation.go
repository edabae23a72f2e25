package automation

import (
	"context"
	"errors"
	"fmt"

	"InvoicePayer/internal/models"
)

// Automator drives a third-party invoice payment page on the caller's behalf.
// Any new provider (another carrier's billing portal) implements the same two
// flows.
type Automator interface {
	// VerifyInvoice looks the invoice up on the payment page and stops before
	// any card data is entered.
	VerifyInvoice(ctx context.Context, inv models.Invoice) (*models.VerificationResult, error)

	// PayInvoice verifies the invoice, fills in the card and billing section
	// and submits the payment.
	PayInvoice(ctx context.Context, inv models.Invoice, card models.Card) (*models.PaymentResult, error)
}

// StepError records which UI step of a flow failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep returns the step name carried by err, if any.
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
