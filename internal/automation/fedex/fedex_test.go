package fedex

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"InvoicePayer/internal/automation"
	"InvoicePayer/internal/models"
	"InvoicePayer/internal/snapshot"
	"InvoicePayer/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoice() models.Invoice {
	return models.Invoice{Number: "123456789", Country: "US", Amount: 125.5, Date: "2026-10-01", Email: "billing@example.com"}
}

func testCard() models.Card {
	return models.Card{
		HolderName:  "Dana Cohen",
		Number:      "4111 1111 1111 1111",
		ExpiryMonth: 3,
		ExpiryYear:  2028,
		CVV:         "123",
		Country:     "US",
		Address1:    "1 Main St",
		City:        "Memphis",
		PostalCode:  "38116",
	}
}

func newTestClient(t *testing.T, opener pageOpener, debug config.DebugConfig) *Client {
	t.Helper()
	conf := config.Default().FedEx
	conf.PaymentURL = "https://pay.example/invoice"
	return &Client{
		opener:    opener,
		conf:      conf,
		snapshots: snapshot.New(debug),
		now:       func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) },
	}
}

var successRace = raceAnswer{class: "fdx-c-message--success", result: &raceResult{
	Selector: selOutcomeSuccess,
	Text:     "Payment received. Confirmation number: FX-0099-1234",
	HTML:     `<div class="fdx-c-message--success">Payment received. Confirmation number: FX-0099-1234</div>`,
}}

func TestVerifyInvoiceActionSequence(t *testing.T) {
	page := newFakePage(raceAnswer{result: &raceResult{
		Selector: selVerified,
		Text:     "Invoice found",
		HTML:     `<div><span class="verified-amount">USD 125.50</span></div>`,
	}})
	opener := &fakeOpener{page: page}
	c := newTestClient(t, opener, config.DebugConfig{})

	res, err := c.VerifyInvoice(context.Background(), testInvoice())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"navigate https://pay.example/invoice",
		"wait #invoiceType",
		"select #invoiceType=FEDEX",
		"fill #invoiceNumber=123456789",
		"select #country=US",
		"fill #amount=125.50",
		"fill #date=2026-10-01",
		"wait #email",
		"fill #email=billing@example.com",
		"click button.fdx-c-button--primary",
		"race [.fdx-c-message--error .fdx-c-message--success, .verified-amount]",
	}, page.actions)
	assert.True(t, res.Success)
	assert.Equal(t, 125.5, res.VerifiedAmount)
	assert.Equal(t, "Invoice found", res.Message)
	assert.Equal(t, []bool{true}, opener.released)
}

func TestVerifyInvoiceRejected(t *testing.T) {
	page := newFakePage(raceAnswer{result: &raceResult{
		Selector: selMessageError,
		Text:     "  Invoice not found.\n ",
	}})
	dir := t.TempDir()
	opener := &fakeOpener{page: page}
	c := newTestClient(t, opener, config.DebugConfig{Dir: dir, Snapshots: true})

	_, err := c.VerifyInvoice(context.Background(), testInvoice())
	require.ErrorIs(t, err, models.ErrInvoiceVerification)
	assert.Contains(t, err.Error(), "Invoice not found.")
	assert.Equal(t, "wait for verification", automation.FailedStep(err))

	// site refusals keep the browser
	assert.Equal(t, []bool{true}, opener.released)
	assert.Equal(t, 1, page.snapshots)
	files, _ := os.ReadDir(dir)
	assert.Len(t, files, 1)
}

func TestPayInvoiceSuccess(t *testing.T) {
	// no verification message at all, then success
	page := newFakePage(raceAnswer{err: errTimeout}, successRace)
	opener := &fakeOpener{page: page}
	c := newTestClient(t, opener, config.DebugConfig{})

	res, err := c.PayInvoice(context.Background(), testInvoice(), testCard())
	require.NoError(t, err)

	payActions := page.actions[11:]
	assert.Equal(t, []string{
		"wait #ccForm",
		"fill input#ccName=Dana Cohen",
		"fill input#ccNumber=4111111111111111",
		"select select#expMonth=03",
		"select select#expYear=2028",
		"fill input#cvv=123",
		"select select#country=US",
		"fill input#address1=1 Main St",
		"fill input#city=Memphis",
		"fill input#postalCode=38116",
		"check .fdx-c-checkbox__input",
		"mark stale [.fdx-c-message--success .fdx-c-message--error]",
		`click button[type="submit"]`,
		"race [.fdx-c-message--success:not([data-invoicepayer-stale]) .fdx-c-message--error:not([data-invoicepayer-stale])]",
	}, payActions)

	assert.Equal(t, models.StatusPaid, res.Status)
	assert.Equal(t, "FX-0099-1234", res.ConfirmationNumber)
	assert.Equal(t, 125.5, res.Amount)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, "2026-10-19", res.TransactionDate)
	require.NotNil(t, res.Verification)
	assert.Contains(t, res.Steps, "accept terms")
	assert.NotContains(t, res.Steps, "enter address line 2")
}

func TestPayInvoiceIgnoresVerificationBanner(t *testing.T) {
	// the lookup is confirmed with a success banner that stays on screen
	verified := raceAnswer{class: "fdx-c-message--success", result: &raceResult{
		Selector: selVerified,
		Text:     "Invoice found",
		HTML:     `<div class="fdx-c-message--success">Invoice found</div>`,
	}}
	page := newFakePage(verified, successRace)
	c := newTestClient(t, &fakeOpener{page: page}, config.DebugConfig{})

	res, err := c.PayInvoice(context.Background(), testInvoice(), testCard())
	require.NoError(t, err)

	assert.Equal(t, "FX-0099-1234", res.ConfirmationNumber)
	assert.Equal(t, "Invoice found", res.Verification.Message)
	submit := indexOf(page.actions, `click button[type="submit"]`)
	require.Positive(t, submit)
	assert.Equal(t, "mark stale [.fdx-c-message--success .fdx-c-message--error]", page.actions[submit-1])
}

func indexOf(actions []string, action string) int {
	for i, a := range actions {
		if a == action {
			return i
		}
	}
	return -1
}

func TestPayInvoiceOptionalFields(t *testing.T) {
	page := newFakePage(raceAnswer{err: errTimeout}, successRace)
	c := newTestClient(t, &fakeOpener{page: page}, config.DebugConfig{})

	card := testCard()
	card.Address2 = "Suite 4"
	card.State = "TN"
	_, err := c.PayInvoice(context.Background(), testInvoice(), card)
	require.NoError(t, err)

	assert.Contains(t, page.actions, "fill input#address2=Suite 4")
	assert.Contains(t, page.actions, "select select#state=TN")
}

func TestPayInvoiceDeclined(t *testing.T) {
	page := newFakePage(raceAnswer{err: errTimeout}, raceAnswer{result: &raceResult{
		Selector: selOutcomeError,
		Text:     "Card declined",
	}})
	opener := &fakeOpener{page: page}
	c := newTestClient(t, opener, config.DebugConfig{})

	_, err := c.PayInvoice(context.Background(), testInvoice(), testCard())
	require.ErrorIs(t, err, models.ErrPaymentDeclined)
	assert.Equal(t, "wait for payment outcome", automation.FailedStep(err))
	assert.Contains(t, err.Error(), "payment failed: Card declined")
	assert.Equal(t, []bool{true}, opener.released)
}

func TestPayInvoiceNoOutcome(t *testing.T) {
	page := newFakePage(raceAnswer{err: errTimeout})
	c := newTestClient(t, &fakeOpener{page: page}, config.DebugConfig{})

	_, err := c.PayInvoice(context.Background(), testInvoice(), testCard())
	require.ErrorIs(t, err, models.ErrNoOutcome)
	assert.Equal(t, "wait for payment outcome", automation.FailedStep(err))
}

func TestPayInvoiceStopsAtMissingCardForm(t *testing.T) {
	page := newFakePage(raceAnswer{err: errTimeout})
	page.failOn["wait #ccForm"] = errTimeout
	opener := &fakeOpener{page: page}
	c := newTestClient(t, opener, config.DebugConfig{})

	_, err := c.PayInvoice(context.Background(), testInvoice(), testCard())
	require.ErrorIs(t, err, errTimeout)
	assert.Equal(t, "wait for card form", automation.FailedStep(err))
	assert.NotContains(t, page.actions, "fill input#ccName=Dana Cohen")
}

func TestBrowserFailureDiscardsBrowser(t *testing.T) {
	page := newFakePage()
	page.failOn["click button.fdx-c-button--primary"] = errBrowserCrashed
	opener := &fakeOpener{page: page}
	dir := t.TempDir()
	c := newTestClient(t, opener, config.DebugConfig{Dir: dir, Snapshots: true})

	_, err := c.VerifyInvoice(context.Background(), testInvoice())
	require.ErrorIs(t, err, errBrowserCrashed)
	assert.Equal(t, []bool{false}, opener.released)

	matches, _ := filepath.Glob(filepath.Join(dir, "*-123456789-verify_invoice.html"))
	assert.Len(t, matches, 1)
}

func TestOpenFailure(t *testing.T) {
	c := newTestClient(t, &fakeOpener{err: models.ErrBrowserUnavailable}, config.DebugConfig{})

	_, err := c.PayInvoice(context.Background(), testInvoice(), testCard())
	require.ErrorIs(t, err, models.ErrBrowserUnavailable)
	assert.Equal(t, "open browser", automation.FailedStep(err))
}
