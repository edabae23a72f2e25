package fedex

import (
	"context"
	"errors"
	"log"
	"time"

	"InvoicePayer/internal/automation"
	"InvoicePayer/internal/models"
	"InvoicePayer/internal/snapshot"
	"InvoicePayer/pkg/config"
)

// Client pays FedEx invoices through the public invoice payment page.
type Client struct {
	opener    pageOpener
	conf      config.FedExConfig
	snapshots *snapshot.Writer
	now       func() time.Time
}

var _ automation.Automator = (*Client)(nil)

// New creates a Client that takes its browsers from pool.
func New(pool browserPool, browserConf config.BrowserConfig, conf config.FedExConfig, snapshots *snapshot.Writer) *Client {
	return &Client{
		opener:    &rodOpener{pool: pool, conf: browserConf, elementTimeout: conf.Timeouts.Element},
		conf:      conf,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// VerifyInvoice runs the invoice lookup only.
func (c *Client) VerifyInvoice(ctx context.Context, inv models.Invoice) (*models.VerificationResult, error) {
	log.Printf("Opening FedEx payment page to verify invoice %s...", inv.Number)

	var res *models.VerificationResult
	err := c.withPage(ctx, inv.Number, func(f *flow) error {
		var err error
		res, err = f.verify(inv)
		return err
	})
	if err != nil {
		log.Printf("Invoice verification failed: %v", err)
		return nil, err
	}
	return res, nil
}

// PayInvoice verifies the invoice and pays it in the same page session.
func (c *Client) PayInvoice(ctx context.Context, inv models.Invoice, card models.Card) (*models.PaymentResult, error) {
	log.Printf("Opening FedEx payment page to pay invoice %s...", inv.Number)

	var res *models.PaymentResult
	err := c.withPage(ctx, inv.Number, func(f *flow) error {
		verification, err := f.verify(inv)
		if err != nil {
			return err
		}
		log.Println("Invoice verified, proceeding with payment...")

		res, err = f.pay(inv, card)
		if err != nil {
			return err
		}
		res.Verification = verification
		res.Steps = f.steps
		return nil
	})
	if err != nil {
		log.Printf("Payment failed: %v", err)
		return nil, err
	}
	return res, nil
}

// withPage opens a page, runs fn against it and always gives the page back.
// A failed flow leaves a snapshot behind; the browser is only recycled when
// the failure came from the site rather than from the browser.
func (c *Client) withPage(ctx context.Context, label string, fn func(*flow) error) error {
	page, done, err := c.opener.Open(ctx)
	if err != nil {
		return &automation.StepError{Step: "open browser", Err: err}
	}

	healthy := true
	defer func() { done(healthy) }()

	f := &flow{page: page, conf: c.conf, now: c.now}
	if err := fn(f); err != nil {
		healthy = isSiteFailure(err)
		c.snapshot(page, label, err)
		return err
	}
	return nil
}

func (c *Client) snapshot(page formPage, label string, cause error) {
	if !c.snapshots.Enabled() {
		return
	}
	html, png, err := page.Snapshot(c.snapshots.Screenshots())
	if err != nil {
		log.Printf("Could not capture page for debugging: %v", err)
		if html == "" {
			return
		}
	}
	step := automation.FailedStep(cause)
	if _, err := c.snapshots.Save(label, step, html, png); err != nil {
		log.Printf("Could not save debug snapshot: %v", err)
	}
}

// isSiteFailure reports whether err is the page telling us no, as opposed to
// the browser itself misbehaving.
func isSiteFailure(err error) bool {
	return errors.Is(err, models.ErrInvoiceVerification) ||
		errors.Is(err, models.ErrPaymentDeclined) ||
		errors.Is(err, models.ErrNoOutcome) ||
		errors.Is(err, errTimeout) ||
		errors.Is(err, context.Canceled)
}
