package models

import "errors"

var ErrNotFound = errors.New("requested resource not found")
var ErrValidation = errors.New("request validation failed")

// ErrInvoiceVerification means the payment page rejected the invoice lookup.
var ErrInvoiceVerification = errors.New("invoice verification failed")

// ErrPaymentDeclined means the payment page showed an error after submit.
var ErrPaymentDeclined = errors.New("payment failed")

// ErrNoOutcome means neither a success nor an error message appeared after submit.
var ErrNoOutcome = errors.New("payment failed: no success or error message found")

var ErrPaymentInProgress = errors.New("a payment for this invoice is already in progress")
var ErrAlreadyPaid = errors.New("invoice has already been paid")

// ErrBrowserUnavailable means no browser session could be obtained in time.
var ErrBrowserUnavailable = errors.New("no browser session available")

// ValidationError carries every failing request field. It matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + e.Fields[0].Field + ": " + e.Fields[0].Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
