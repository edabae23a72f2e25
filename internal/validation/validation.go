package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"

	"InvoicePayer/internal/models"

	"github.com/go-playground/validator/v10"
)

// cardValidityYears is how far ahead an expiry year may lie.
const cardValidityYears = 19

var (
	invoiceNumberRegex = regexp.MustCompile(`^\d{9}$`)
	cvvRegex           = regexp.MustCompile(`^\d{3,4}$`)
)

// Validator checks payment and verification requests and reports every
// failing field at once.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New creates a Validator that judges card expiry against the wall clock.
func New() *Validator {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Validator {
	v := &Validator{validate: validator.New(), now: now}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on empty tags or nil funcs.
	_ = v.validate.RegisterValidation("invoice_number", func(fl validator.FieldLevel) bool {
		return invoiceNumberRegex.MatchString(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("cvv", func(fl validator.FieldLevel) bool {
		return cvvRegex.MatchString(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		cents := fl.Field().Float() * 100
		return math.Abs(cents-math.Round(cents)) < 1e-6
	})
	_ = v.validate.RegisterValidation("expiry_year", func(fl validator.FieldLevel) bool {
		year := int(fl.Field().Int())
		current := v.now().Year()
		return year >= current && year <= current+cardValidityYears
	})
	v.validate.RegisterStructValidation(v.cardNotExpired, models.PaymentDetails{})

	return v
}

func (v *Validator) cardNotExpired(sl validator.StructLevel) {
	d := sl.Current().Interface().(models.PaymentDetails)
	if d.ExpiryMonth < 1 || d.ExpiryMonth > 12 {
		return
	}
	now := v.now()
	if int(d.ExpiryYear) == now.Year() && int(d.ExpiryMonth) < int(now.Month()) {
		sl.ReportError(d.ExpiryMonth, "expiryMonth", "ExpiryMonth", "not_expired", "")
	}
}

// Struct validates s and returns the failures in JSON path form, or nil.
func (v *Validator) Struct(s interface{}) []models.FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: v.message(fe),
		})
	}
	return out
}

// fieldPath drops the Go type name that leads every namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

var messages = map[string]string{
	"invoice_number:required":       "Invoice number is required",
	"invoice_number:invoice_number": "Invoice number must be exactly 9 digits",
	"payment_details:required":      "Payment details are required",
	"invoice:required":              "Invoice details are required",
	"cardholderName:required":       "Cardholder name is required",
	"cardholderName:min":            "Cardholder name must be at least 2 characters",
	"cardholderName:max":            "Cardholder name cannot exceed 100 characters",
	"cardNumber:required":           "Credit card number is required",
	"cardNumber:credit_card":        "Please provide a valid credit card number",
	"expiryMonth:required":          "Expiry month is required",
	"expiryMonth:min":               "Expiry month must be between 1 and 12",
	"expiryMonth:max":               "Expiry month must be between 1 and 12",
	"expiryMonth:not_expired":       "Card has expired",
	"expiryYear:required":           "Expiry year is required",
	"cvv:required":                  "CVV is required",
	"cvv:cvv":                       "CVV must be 3 or 4 digits",
	"address:required":              "Billing address is required",
	"address:max":                   "Billing address cannot exceed 60 characters",
	"addressLine2:max":              "Address line 2 cannot exceed 60 characters",
	"city:required":                 "City is required",
	"city:max":                      "City name cannot exceed 60 characters",
	"state:len":                     "State must be a 2-letter code",
	"state:alpha":                   "State must be a 2-letter code",
	"postalCode:required":           "Postal code is required",
	"postalCode:max":                "Postal code cannot exceed 13 characters",
	"country:len":                   "Country code must be exactly 2 characters",
	"email:required":                "Email is required",
	"email:email":                   "Please provide a valid email address",
	"amount:required":               "Amount is required",
	"amount:gt":                     "Amount must be greater than 0",
	"amount:cents":                  "Amount cannot have more than 2 decimal places",
	"date:required":                 "Date is required",
	"date:datetime":                 "Date must be in YYYY-MM-DD format",
}

func (v *Validator) message(fe validator.FieldError) string {
	if fe.Tag() == "expiry_year" {
		current := v.now().Year()
		return fmt.Sprintf("Expiry year must be between %d and %d", current, current+cardValidityYears)
	}
	if msg, ok := messages[fe.Field()+":"+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed the '%s' check", fe.Field(), fe.Tag())
}
