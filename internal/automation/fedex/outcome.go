package fedex

import (
	"regexp"
	"strings"
	"time"

	"InvoicePayer/internal/models"
	"InvoicePayer/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/currency"
)

var (
	confirmationRegex = regexp.MustCompile(`(?i)confirmation\s*(?:number|no\.?|#)?\s*(?:is\s+)?[:#]?\s*([A-Z0-9][A-Z0-9-]{5,})`)
	currencyRegex     = regexp.MustCompile(`\b([A-Z]{3})(?:\s+|\s*\$)\d|\d\s+([A-Z]{3})\b`)
	isoDateRegex      = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	usDateRegex       = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)
)

// Elements the confirmation message is known to carry its details in.
var (
	confirmationSelectors = []string{"[data-confirmation-number]", ".confirmation-number", "#confirmationNumber"}
	amountSelectors       = []string{".payment-amount", ".amount-paid", ".verified-amount"}
	dateSelectors         = []string{".transaction-date", ".payment-date"}
)

// parseConfirmation reads the payment confirmation out of the success message
// HTML. Whatever the page does not state falls back to the requested values.
func parseConfirmation(successHTML string, inv models.Invoice, defaultCurrency string, now time.Time) *models.PaymentResult {
	res := &models.PaymentResult{
		InvoiceNumber:   inv.Number,
		Status:          models.StatusPaid,
		Amount:          inv.Amount,
		Currency:        defaultCurrency,
		TransactionDate: now.Format("2006-01-02"),
		Message:         "Payment processed successfully",
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(successHTML))
	if err != nil {
		return res
	}
	text := normalizeSpace(doc.Text())

	if v, ok := doc.Find("[data-confirmation-number]").First().Attr("data-confirmation-number"); ok && v != "" {
		res.ConfirmationNumber = strings.TrimSpace(v)
	} else if v := firstText(doc, confirmationSelectors); v != "" {
		res.ConfirmationNumber = v
	} else {
		res.ConfirmationNumber = confirmationFromText(text)
	}

	amountText := firstText(doc, amountSelectors)
	if amountText != "" {
		if amount := utils.ParseAmount(amountText); amount > 0 {
			res.Amount = amount
		}
	}
	if c := currencyFromText(amountText + " " + text); c != "" {
		res.Currency = c
	}

	dateText := firstText(doc, dateSelectors)
	if dateText == "" {
		dateText = text
	}
	if d, ok := parseDate(dateText); ok {
		res.TransactionDate = d
	}

	if msg := normalizeSpace(doc.Find(selMessageSuccess).First().Text()); msg != "" {
		res.Message = msg
	} else if text != "" {
		res.Message = text
	}
	return res
}

// parseVerifiedAmount reads the amount the page echoed back after the invoice
// lookup, or 0.
func parseVerifiedAmount(fragment string) float64 {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return 0
	}
	if s := doc.Find(selVerifiedAmt); s.Length() > 0 {
		return utils.ParseAmount(s.First().Text())
	}
	return 0
}

// confirmationFromText picks the first "confirmation ..." token that holds a digit.
func confirmationFromText(text string) string {
	for _, m := range confirmationRegex.FindAllStringSubmatch(text, -1) {
		if strings.ContainsAny(m[1], "0123456789") {
			return m[1]
		}
	}
	return ""
}

// currencyFromText returns the first ISO 4217 code written next to a number.
// Other capitalised words in that position ("FDX 4455") are skipped.
func currencyFromText(text string) string {
	for _, m := range currencyRegex.FindAllStringSubmatch(text, -1) {
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			if unit, err := currency.ParseISO(g); err == nil {
				return unit.String()
			}
		}
	}
	return ""
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if v := normalizeSpace(doc.Find(sel).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

func parseDate(s string) (string, bool) {
	if m := isoDateRegex.FindStringSubmatch(s); len(m) > 1 {
		return m[1], true
	}
	if m := usDateRegex.FindStringSubmatch(s); len(m) > 1 {
		if t, err := time.Parse("1/2/2006", m[1]); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
