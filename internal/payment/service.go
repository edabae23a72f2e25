package payment

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"InvoicePayer/internal/automation"
	"InvoicePayer/internal/metrics"
	"InvoicePayer/internal/models"
	"InvoicePayer/internal/validation"
	"InvoicePayer/pkg/config"
	"InvoicePayer/utils"

	"github.com/google/uuid"
)

// Store persists payment attempts.
type Store interface {
	SaveAttempt(a models.PaymentAttempt) error
	CompleteAttempt(a models.PaymentAttempt) error
	GetAttempt(id string) (*models.PaymentAttempt, error)
	ListAttempts(filters models.AttemptFilters) ([]models.PaymentAttempt, error)
	CountAttempts(filters models.AttemptFilters) (int, error)
	HasPaidInvoice(invoiceNumber string) (bool, error)
}

// Notifier is told about every finished attempt.
type Notifier interface {
	Notify(ctx context.Context, a models.PaymentAttempt) error
}

// ServiceInterface is what the HTTP layer and the CLI depend on.
type ServiceInterface interface {
	PayInvoice(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error)
	VerifyInvoice(ctx context.Context, req *models.VerifyRequest) (*models.VerificationResult, error)
	GetAttempt(ctx context.Context, id string) (*models.PaymentAttempt, error)
	ListAttempts(ctx context.Context, filters models.AttemptFilters) (*models.AttemptList, error)
}

// Service validates requests, runs the browser automation and records every
// attempt.
type Service struct {
	automator automation.Automator
	store     Store
	notifier  Notifier
	metrics   *metrics.Metrics
	validator *validation.Validator
	conf      config.FedExConfig

	mu       sync.Mutex
	inFlight map[string]struct{}
	notifyWG sync.WaitGroup

	now   func() time.Time
	newID func() string
}

var _ ServiceInterface = (*Service)(nil)

// NewService wires the service. notifier and m may be nil.
func NewService(a automation.Automator, store Store, notifier Notifier, m *metrics.Metrics, v *validation.Validator, conf config.FedExConfig) *Service {
	if v == nil {
		v = validation.New()
	}
	return &Service{
		automator: a,
		store:     store,
		notifier:  notifier,
		metrics:   m,
		validator: v,
		conf:      conf,
		inFlight:  make(map[string]struct{}),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// PayInvoice verifies and pays one invoice. Only one payment per invoice
// number runs at a time, and an invoice with a recorded payment is refused.
func (s *Service) PayInvoice(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	if fields := s.validator.Struct(req); fields != nil {
		return nil, &models.ValidationError{Fields: fields}
	}
	s.applyDefaults(req.PaymentDetails)

	if !s.acquire(req.InvoiceNumber) {
		return nil, models.ErrPaymentInProgress
	}
	defer s.release(req.InvoiceNumber)

	paid, err := s.store.HasPaidInvoice(req.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, models.ErrAlreadyPaid
	}

	d := req.PaymentDetails
	attempt := models.PaymentAttempt{
		ID:             s.newID(),
		Kind:           models.KindPay,
		InvoiceNumber:  req.InvoiceNumber,
		CardholderName: d.CardholderName,
		CardLast4:      utils.Last4(d.CardNumber),
		Amount:         float64(d.Amount),
		Currency:       s.conf.Currency,
		Country:        d.Country,
		Email:          d.Email,
		Status:         models.StatusPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.SaveAttempt(attempt); err != nil {
		return nil, err
	}
	log.Printf("Attempt %s: paying invoice %s (%s %s, card %s)",
		attempt.ID, attempt.InvoiceNumber, utils.FormatAmount(float64(d.Amount)), attempt.Currency, utils.MaskCardNumber(d.CardNumber))

	done := s.metrics.Started()
	start := s.now()
	res, runErr := s.automator.PayInvoice(ctx, req.Invoice(), req.Card())
	done()

	if runErr == nil {
		attempt.Status = models.StatusPaid
		attempt.ConfirmationNumber = res.ConfirmationNumber
		attempt.TransactionDate = res.TransactionDate
		if res.Currency != "" {
			attempt.Currency = res.Currency
		}
		attempt.Steps = res.Steps
		res.AttemptID = attempt.ID
		if res.Verification != nil {
			res.Verification.AttemptID = attempt.ID
		}
	}
	s.finish(ctx, &attempt, runErr, s.now().Sub(start))

	if runErr != nil {
		return nil, runErr
	}
	return res, nil
}

// VerifyInvoice runs only the invoice lookup.
func (s *Service) VerifyInvoice(ctx context.Context, req *models.VerifyRequest) (*models.VerificationResult, error) {
	if fields := s.validator.Struct(req); fields != nil {
		return nil, &models.ValidationError{Fields: fields}
	}
	if req.Details.Country == "" {
		req.Details.Country = s.conf.DefaultCountry
	}
	req.Details.Country = strings.ToUpper(req.Details.Country)

	f := req.Details
	attempt := models.PaymentAttempt{
		ID:            s.newID(),
		Kind:          models.KindVerify,
		InvoiceNumber: req.InvoiceNumber,
		Amount:        float64(f.Amount),
		Currency:      s.conf.Currency,
		Country:       f.Country,
		Email:         f.Email,
		Status:        models.StatusPending,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.SaveAttempt(attempt); err != nil {
		return nil, err
	}
	log.Printf("Attempt %s: verifying invoice %s", attempt.ID, attempt.InvoiceNumber)

	done := s.metrics.Started()
	start := s.now()
	res, runErr := s.automator.VerifyInvoice(ctx, req.Invoice())
	done()

	if runErr == nil {
		attempt.Status = models.StatusVerified
		res.AttemptID = attempt.ID
	}
	s.finish(ctx, &attempt, runErr, s.now().Sub(start))

	if runErr != nil {
		return nil, runErr
	}
	return res, nil
}

// GetAttempt returns one stored attempt.
func (s *Service) GetAttempt(ctx context.Context, id string) (*models.PaymentAttempt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	return s.store.GetAttempt(id)
}

// ListAttempts returns one page of attempts plus pagination info.
func (s *Service) ListAttempts(ctx context.Context, filters models.AttemptFilters) (*models.AttemptList, error) {
	if filters.Limit < 1 {
		filters.Limit = 20
	}
	total, err := s.store.CountAttempts(filters)
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(filters)
	if err != nil {
		return nil, err
	}
	return &models.AttemptList{
		Data: attempts,
		Pagination: models.Pagination{
			Total:       total,
			TotalPages:  int(math.Ceil(float64(total) / float64(filters.Limit))),
			CurrentPage: filters.Offset/filters.Limit + 1,
		},
	}, nil
}

// Wait blocks until every pending notification has been sent.
func (s *Service) Wait() {
	s.notifyWG.Wait()
}

func (s *Service) applyDefaults(d *models.PaymentDetails) {
	if d.Country == "" {
		d.Country = s.conf.DefaultCountry
	}
	d.Country = strings.ToUpper(d.Country)
	d.State = strings.ToUpper(d.State)
	d.CardNumber = utils.DigitsOnly(d.CardNumber)
}

// finish stores the outcome, updates metrics and fires the notification.
func (s *Service) finish(ctx context.Context, attempt *models.PaymentAttempt, runErr error, took time.Duration) {
	completed := s.now().UTC()
	attempt.CompletedAt = &completed
	if runErr != nil {
		attempt.Status = models.StatusFailed
		attempt.Error = utils.MaskCardNumbers(runErr.Error())
		attempt.FailedStep = automation.FailedStep(runErr)
		log.Printf("Attempt %s failed at step %q: %v", attempt.ID, attempt.FailedStep, runErr)
	} else {
		log.Printf("Attempt %s finished with status %s in %s", attempt.ID, attempt.Status, took.Round(time.Millisecond))
	}

	if err := s.store.CompleteAttempt(*attempt); err != nil {
		log.Printf("ERROR: could not store outcome of attempt %s: %v", attempt.ID, err)
	}
	s.metrics.ObserveAttempt(attempt.Kind, outcomeLabel(attempt.Status, runErr), took)

	if s.notifier == nil {
		return
	}
	a := *attempt
	nctx := context.WithoutCancel(ctx)
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		if err := s.notifier.Notify(nctx, a); err != nil {
			log.Printf("WARN: notification for attempt %s failed: %v", a.ID, err)
		}
	}()
}

func (s *Service) acquire(invoice string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[invoice]; busy {
		return false
	}
	s.inFlight[invoice] = struct{}{}
	return true
}

func (s *Service) release(invoice string) {
	s.mu.Lock()
	delete(s.inFlight, invoice)
	s.mu.Unlock()
}

func outcomeLabel(status string, err error) string {
	switch {
	case err == nil:
		return status
	case errors.Is(err, models.ErrInvoiceVerification):
		return "verification_failed"
	case errors.Is(err, models.ErrPaymentDeclined):
		return "declined"
	case errors.Is(err, models.ErrNoOutcome):
		return "no_outcome"
	case errors.Is(err, models.ErrBrowserUnavailable):
		return "browser_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
