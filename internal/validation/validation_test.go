package validation

import (
	"testing"
	"time"

	"InvoicePayer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
}

func validRequest() models.PaymentRequest {
	return models.PaymentRequest{
		InvoiceNumber: "123456789",
		PaymentDetails: &models.PaymentDetails{
			CardholderName: "Dana Cohen",
			CardNumber:     "4111 1111 1111 1111",
			ExpiryMonth:    11,
			ExpiryYear:     2026,
			CVV:            "123",
			Address:        "1 Rothschild Blvd",
			City:           "Tel Aviv",
			PostalCode:     "6688101",
			Country:        "IL",
			Email:          "billing@example.com",
			Amount:         125.50,
			Date:           "2026-10-01",
		},
	}
}

func messagesByField(errs []models.FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Message
	}
	return out
}

func TestValidRequestPasses(t *testing.T) {
	v := NewWithClock(fixedClock)
	assert.Nil(t, v.Struct(validRequest()))
}

func TestFieldFailures(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(r *models.PaymentRequest)
		field   string
		message string
	}{
		{"short invoice", func(r *models.PaymentRequest) { r.InvoiceNumber = "12345" }, "invoice_number", "Invoice number must be exactly 9 digits"},
		{"missing invoice", func(r *models.PaymentRequest) { r.InvoiceNumber = "" }, "invoice_number", "Invoice number is required"},
		{"bad luhn", func(r *models.PaymentRequest) { r.PaymentDetails.CardNumber = "4111111111111112" }, "payment_details.cardNumber", "Please provide a valid credit card number"},
		{"month out of range", func(r *models.PaymentRequest) { r.PaymentDetails.ExpiryMonth = 13 }, "payment_details.expiryMonth", "Expiry month must be between 1 and 12"},
		{"expired this year", func(r *models.PaymentRequest) { r.PaymentDetails.ExpiryMonth = 9 }, "payment_details.expiryMonth", "Card has expired"},
		{"year in the past", func(r *models.PaymentRequest) { r.PaymentDetails.ExpiryYear = 2025 }, "payment_details.expiryYear", "Expiry year must be between 2026 and 2045"},
		{"year too far", func(r *models.PaymentRequest) { r.PaymentDetails.ExpiryYear = 2046 }, "payment_details.expiryYear", "Expiry year must be between 2026 and 2045"},
		{"cvv letters", func(r *models.PaymentRequest) { r.PaymentDetails.CVV = "12a" }, "payment_details.cvv", "CVV must be 3 or 4 digits"},
		{"long city", func(r *models.PaymentRequest) { r.PaymentDetails.City = string(make([]byte, 61)) }, "payment_details.city", "City name cannot exceed 60 characters"},
		{"country length", func(r *models.PaymentRequest) { r.PaymentDetails.Country = "ISR" }, "payment_details.country", "Country code must be exactly 2 characters"},
		{"bad email", func(r *models.PaymentRequest) { r.PaymentDetails.Email = "not-an-email" }, "payment_details.email", "Please provide a valid email address"},
		{"negative amount", func(r *models.PaymentRequest) { r.PaymentDetails.Amount = -5 }, "payment_details.amount", "Amount must be greater than 0"},
		{"three decimals", func(r *models.PaymentRequest) { r.PaymentDetails.Amount = 10.123 }, "payment_details.amount", "Amount cannot have more than 2 decimal places"},
		{"date format", func(r *models.PaymentRequest) { r.PaymentDetails.Date = "01/10/2026" }, "payment_details.date", "Date must be in YYYY-MM-DD format"},
	}

	v := NewWithClock(fixedClock)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			errs := v.Struct(req)
			require.NotEmpty(t, errs)
			assert.Equal(t, tc.message, messagesByField(errs)[tc.field])
		})
	}
}

func TestReportsEveryFailure(t *testing.T) {
	req := validRequest()
	req.InvoiceNumber = "abc"
	req.PaymentDetails.CVV = ""
	req.PaymentDetails.Address = ""

	errs := NewWithClock(fixedClock).Struct(req)
	got := messagesByField(errs)
	assert.Len(t, errs, 3)
	assert.Equal(t, "CVV is required", got["payment_details.cvv"])
	assert.Equal(t, "Billing address is required", got["payment_details.address"])
}

func TestMissingPaymentDetails(t *testing.T) {
	errs := NewWithClock(fixedClock).Struct(models.PaymentRequest{InvoiceNumber: "123456789"})
	require.Len(t, errs, 1)
	assert.Equal(t, "payment_details", errs[0].Field)
	assert.Equal(t, "Payment details are required", errs[0].Message)
}

func TestVerifyRequest(t *testing.T) {
	v := NewWithClock(fixedClock)

	ok := models.VerifyRequest{
		InvoiceNumber: "987654321",
		Details:       &models.InvoiceFields{Amount: 10, Date: "2026-10-01", Email: "a@b.co"},
	}
	assert.Nil(t, v.Struct(ok))

	bad := models.VerifyRequest{InvoiceNumber: "987654321", Details: &models.InvoiceFields{Amount: 10, Date: "2026-10-01"}}
	errs := v.Struct(bad)
	require.Len(t, errs, 1)
	assert.Equal(t, "invoice.email", errs[0].Field)
}
