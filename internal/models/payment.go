package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// PaymentRequest is the body of POST /api/v1/payments/invoice.
type PaymentRequest struct {
	InvoiceNumber  string          `json:"invoice_number" validate:"required,invoice_number"`
	PaymentDetails *PaymentDetails `json:"payment_details" validate:"required"`
}

// PaymentDetails carries the card, billing address and invoice facts the
// payment form asks for.
type PaymentDetails struct {
	CardholderName string    `json:"cardholderName" validate:"required,min=2,max=100"`
	CardNumber     string    `json:"cardNumber" validate:"required,credit_card"`
	ExpiryMonth    FlexInt   `json:"expiryMonth" validate:"required,min=1,max=12"`
	ExpiryYear     FlexInt   `json:"expiryYear" validate:"required,expiry_year"`
	CVV            string    `json:"cvv" validate:"required,cvv"`
	Address        string    `json:"address" validate:"required,max=60"`
	AddressLine2   string    `json:"addressLine2" validate:"max=60"`
	City           string    `json:"city" validate:"required,max=60"`
	State          string    `json:"state" validate:"omitempty,len=2,alpha"`
	PostalCode     string    `json:"postalCode" validate:"required,max=13"`
	Country        string    `json:"country" validate:"omitempty,len=2"`
	Email          string    `json:"email" validate:"required,email"`
	Amount         FlexFloat `json:"amount" validate:"required,gt=0,cents"`
	Date           string    `json:"date" validate:"required,datetime=2006-01-02"`
}

// VerifyRequest is the body of POST /api/v1/payments/invoice/verify.
type VerifyRequest struct {
	InvoiceNumber string         `json:"invoice_number" validate:"required,invoice_number"`
	Details       *InvoiceFields `json:"invoice" validate:"required"`
}

type InvoiceFields struct {
	Country string    `json:"country" validate:"omitempty,len=2"`
	Amount  FlexFloat `json:"amount" validate:"required,gt=0,cents"`
	Date    string    `json:"date" validate:"required,datetime=2006-01-02"`
	Email   string    `json:"email" validate:"required,email"`
}

// Invoice is what the verification step of the payment page needs.
type Invoice struct {
	Number  string
	Country string
	Amount  float64
	Date    string
	Email   string
}

// Card is the card and billing section of the payment page.
type Card struct {
	HolderName  string
	Number      string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
	Country     string
	Address1    string
	Address2    string
	City        string
	State       string
	PostalCode  string
}

// Invoice extracts the verification fields of the request.
func (r PaymentRequest) Invoice() Invoice {
	d := r.PaymentDetails
	return Invoice{
		Number:  r.InvoiceNumber,
		Country: d.Country,
		Amount:  float64(d.Amount),
		Date:    d.Date,
		Email:   d.Email,
	}
}

// Card extracts the card and billing fields of the request.
func (r PaymentRequest) Card() Card {
	d := r.PaymentDetails
	return Card{
		HolderName:  d.CardholderName,
		Number:      d.CardNumber,
		ExpiryMonth: int(d.ExpiryMonth),
		ExpiryYear:  int(d.ExpiryYear),
		CVV:         d.CVV,
		Country:     d.Country,
		Address1:    d.Address,
		Address2:    d.AddressLine2,
		City:        d.City,
		State:       d.State,
		PostalCode:  d.PostalCode,
	}
}

// Invoice converts a verification-only request.
func (r VerifyRequest) Invoice() Invoice {
	f := r.Details
	return Invoice{
		Number:  r.InvoiceNumber,
		Country: f.Country,
		Amount:  float64(f.Amount),
		Date:    f.Date,
		Email:   f.Email,
	}
}

// VerificationResult is returned once the invoice lookup passed.
type VerificationResult struct {
	Success        bool    `json:"success"`
	InvoiceNumber  string  `json:"invoice_number"`
	Amount         float64 `json:"amount"`
	VerifiedAmount float64 `json:"verified_amount,omitempty"`
	Country        string  `json:"country"`
	Date           string  `json:"date"`
	Message        string  `json:"message,omitempty"`
	AttemptID      string  `json:"attempt_id,omitempty"`
}

// PaymentResult is returned once the payment page confirmed the payment.
type PaymentResult struct {
	InvoiceNumber      string              `json:"invoice_number"`
	Status             string              `json:"status"`
	Amount             float64             `json:"amount"`
	Currency           string              `json:"currency"`
	TransactionDate    string              `json:"transaction_date"`
	ConfirmationNumber string              `json:"confirmation_number"`
	Message            string              `json:"message,omitempty"`
	AttemptID          string              `json:"attempt_id,omitempty"`
	Verification       *VerificationResult `json:"verification,omitempty"`
	Steps              []string            `json:"-"`
}

// Attempt kinds.
const (
	KindVerify = "verify"
	KindPay    = "pay"
)

// Attempt statuses.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusPaid     = "paid"
	StatusFailed   = "failed"
)

// PaymentAttempt is one stored run of the verification or payment flow.
// The full card number and the CVV are never part of it.
type PaymentAttempt struct {
	ID                 string          `json:"id" db:"id"`
	Kind               string          `json:"kind" db:"kind"`
	InvoiceNumber      string          `json:"invoice_number" db:"invoice_number"`
	CardholderName     string          `json:"cardholder_name,omitempty" db:"cardholder_name"`
	CardLast4          string          `json:"card_last4,omitempty" db:"card_last4"`
	Amount             float64         `json:"amount" db:"amount"`
	Currency           string          `json:"currency" db:"currency"`
	Country            string          `json:"country" db:"country"`
	Email              string          `json:"email" db:"email"`
	Status             string          `json:"status" db:"status"`
	Error              string          `json:"error,omitempty" db:"error"`
	FailedStep         string          `json:"failed_step,omitempty" db:"failed_step"`
	ConfirmationNumber string          `json:"confirmation_number,omitempty" db:"confirmation_number"`
	TransactionDate    string          `json:"transaction_date,omitempty" db:"transaction_date"`
	Steps              JSONStringSlice `json:"steps,omitempty" db:"steps"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// AttemptFilters holds the query parameters of the attempt listing.
type AttemptFilters struct {
	Status        string
	InvoiceNumber string
	Kind          string
	// For Pagination
	Limit  int
	Offset int
}

// JSONStringSlice is a custom type to handle JSON serialization/deserialization for []string
type JSONStringSlice []string

// Value implements the driver.Valuer interface to convert []string to JSON for database storage
func (j JSONStringSlice) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface to convert JSON from database to []string
func (j *JSONStringSlice) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("unsupported type for JSONStringSlice")
	}
	return json.Unmarshal(bytes, j)
}
