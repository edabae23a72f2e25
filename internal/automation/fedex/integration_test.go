package fedex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"InvoicePayer/internal/browser"
	"InvoicePayer/internal/models"
	"InvoicePayer/internal/snapshot"
	"InvoicePayer/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPaymentPageInBrowser drives a real Chrome against a local copy of the
// payment page. Set ROD_INTEGRATION=1 to run it.
func TestPaymentPageInBrowser(t *testing.T) {
	if os.Getenv("ROD_INTEGRATION") == "" {
		t.Skip("set ROD_INTEGRATION=1 to run browser tests")
	}

	srv := httptest.NewServer(http.FileServer(http.Dir("testdata")))
	defer srv.Close()

	cfg := config.Default()
	cfg.FedEx.PaymentURL = srv.URL + "/payment_page.html"
	cfg.FedEx.Timeouts.VerifyError = time.Second
	cfg.FedEx.Timeouts.VerifySuccess = time.Second

	pool := browser.NewPool(cfg.Browser, 1)
	defer pool.Close()
	c := New(pool, cfg.Browser, cfg.FedEx, snapshot.New(config.DebugConfig{}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	inv := testInvoice()
	res, err := c.PayInvoice(ctx, inv, testCard())
	require.NoError(t, err)
	assert.Equal(t, "FX-20261019", res.ConfirmationNumber)
	assert.Equal(t, 125.5, res.Verification.VerifiedAmount)

	inv.Number = "000000000"
	_, err = c.VerifyInvoice(ctx, inv)
	assert.ErrorIs(t, err, models.ErrInvoiceVerification)

	declined := testCard()
	declined.CVV = "000"
	_, err = c.PayInvoice(ctx, testInvoice(), declined)
	assert.ErrorIs(t, err, models.ErrPaymentDeclined)
}
