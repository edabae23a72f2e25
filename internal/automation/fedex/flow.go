package fedex

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"InvoicePayer/internal/automation"
	"InvoicePayer/internal/models"
	"InvoicePayer/pkg/config"
	"InvoicePayer/utils"
)

// flow runs the linear script of the payment page and remembers which steps
// completed.
type flow struct {
	page  formPage
	conf  config.FedExConfig
	now   func() time.Time
	steps []string
}

func (f *flow) step(name string, fn func() error) error {
	log.Printf("%s...", capitalize(name))
	if err := fn(); err != nil {
		return &automation.StepError{Step: name, Err: err}
	}
	f.steps = append(f.steps, name)
	return nil
}

// run executes steps in order and stops at the first failure.
func (f *flow) run(steps []flowStep) error {
	for _, s := range steps {
		if s.skip {
			continue
		}
		if err := f.step(s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

type flowStep struct {
	name string
	fn   func() error
	skip bool
}

// verify fills the invoice lookup section and waits for the page's verdict.
func (f *flow) verify(inv models.Invoice) (*models.VerificationResult, error) {
	t := f.conf.Timeouts
	p := f.page

	err := f.run([]flowStep{
		{name: "open payment page", fn: func() error {
			if err := p.Navigate(f.conf.PaymentURL, t.Navigation); err != nil {
				return err
			}
			return p.WaitVisible(selInvoiceType, t.Element)
		}},
		{name: "select invoice type", fn: func() error { return p.Select(selInvoiceType, f.conf.InvoiceType) }},
		{name: "enter invoice number", fn: func() error { return p.Fill(selInvoiceNumber, inv.Number) }},
		{name: "select country", fn: func() error { return p.Select(selCountry, inv.Country) }},
		{name: "enter amount", fn: func() error { return p.Fill(selAmount, utils.FormatAmount(inv.Amount)) }},
		{name: "enter date", fn: func() error { return p.Fill(selDate, inv.Date) }},
		{name: "enter email", fn: func() error {
			if err := p.WaitVisible(selEmail, t.EmailField); err != nil {
				return err
			}
			return p.Fill(selEmail, inv.Email)
		}},
		{name: "verify invoice", fn: func() error { return p.Click(selVerifyButton) }},
	})
	if err != nil {
		return nil, err
	}

	res := &models.VerificationResult{
		Success:       true,
		InvoiceNumber: inv.Number,
		Amount:        inv.Amount,
		Country:       inv.Country,
		Date:          inv.Date,
	}

	err = f.step("wait for verification", func() error {
		outcome, err := p.Race(t.VerifyError+t.VerifySuccess, selMessageError, selVerified)
		if errors.Is(err, errTimeout) {
			// The page does not always confirm a good invoice; the card form
			// wait that follows is the real check.
			log.Println("No verification message shown, continuing.")
			return nil
		}
		if err != nil {
			return err
		}
		if outcome.Selector == selMessageError {
			return fmt.Errorf("%w: %s", models.ErrInvoiceVerification, normalizeSpace(outcome.Text))
		}
		res.Message = normalizeSpace(outcome.Text)
		res.VerifiedAmount = parseVerifiedAmount(outcome.HTML)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// pay fills the card and billing section of an already verified invoice and
// submits it.
func (f *flow) pay(inv models.Invoice, card models.Card) (*models.PaymentResult, error) {
	t := f.conf.Timeouts
	p := f.page

	err := f.run([]flowStep{
		{name: "wait for card form", fn: func() error { return p.WaitVisible(selCardForm, t.Element) }},
		{name: "enter cardholder name", fn: func() error { return p.Fill(selCardName, card.HolderName) }},
		{name: "enter card number", fn: func() error { return p.Fill(selCardNumber, utils.DigitsOnly(card.Number)) }},
		{name: "select expiry month", fn: func() error { return p.Select(selExpiryMonth, utils.PadMonth(card.ExpiryMonth)) }},
		{name: "select expiry year", fn: func() error { return p.Select(selExpiryYear, strconv.Itoa(card.ExpiryYear)) }},
		{name: "enter cvv", fn: func() error { return p.Fill(selCVV, card.CVV) }},
		{name: "select billing country", fn: func() error { return p.Select(selBillingCountry, card.Country) }},
		{name: "enter address", fn: func() error { return p.Fill(selAddress1, card.Address1) }},
		{name: "enter address line 2", skip: card.Address2 == "", fn: func() error { return p.Fill(selAddress2, card.Address2) }},
		{name: "enter city", fn: func() error { return p.Fill(selCity, card.City) }},
		{name: "select state", skip: card.State == "", fn: func() error { return p.Select(selState, card.State) }},
		{name: "enter postal code", fn: func() error { return p.Fill(selPostalCode, card.PostalCode) }},
		{name: "accept terms", fn: func() error { return p.Check(selTerms) }},
		{name: "submit payment", fn: func() error {
			if err := p.MarkStale(selMessageSuccess, selMessageError); err != nil {
				return err
			}
			return p.Click(selSubmit)
		}},
	})
	if err != nil {
		return nil, err
	}

	var res *models.PaymentResult
	err = f.step("wait for payment outcome", func() error {
		outcome, err := p.Race(t.Outcome, selOutcomeSuccess, selOutcomeError)
		if errors.Is(err, errTimeout) {
			return models.ErrNoOutcome
		}
		if err != nil {
			return err
		}
		if outcome.Selector == selOutcomeError {
			return fmt.Errorf("%w: %s", models.ErrPaymentDeclined, normalizeSpace(outcome.Text))
		}
		res = parseConfirmation(outcome.HTML, inv, f.conf.Currency, f.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
