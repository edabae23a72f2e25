package app

import (
	"InvoicePayer/internal/automation/fedex"
	"InvoicePayer/internal/browser"
	"InvoicePayer/internal/database"
	"InvoicePayer/internal/metrics"
	"InvoicePayer/internal/models"
	"InvoicePayer/internal/notifier"
	"InvoicePayer/internal/payment"
	"InvoicePayer/internal/server"
	"InvoicePayer/internal/snapshot"
	"InvoicePayer/internal/validation"
	"InvoicePayer/pkg/config"
	"InvoicePayer/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// App is the main application structure holding all dependencies.
type App struct {
	Config  *config.Config
	Repo    *database.DBRepository
	Pool    *browser.Pool
	Metrics *metrics.Metrics
	Service *payment.Service
}

// New loads the configuration and wires every component.
func New(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	repo, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	workers := utils.BrowserSessions(cfg.Browser.Workers)
	pool := browser.NewPool(cfg.Browser, workers)
	log.Printf("Browser pool sized to %d sessions.", workers)

	m := metrics.New()
	automator := fedex.New(pool, cfg.Browser, cfg.FedEx, snapshot.New(cfg.Debug))

	// Keep the interface nil when no webhook is configured.
	var n payment.Notifier
	if hook := notifier.NewWebhookClient(cfg.Notifier); hook != nil {
		n = hook
	}

	svc := payment.NewService(automator, repo, n, m, validation.New(), cfg.FedEx)

	return &App{
		Config:  cfg,
		Repo:    repo,
		Pool:    pool,
		Metrics: m,
		Service: svc,
	}, nil
}

// Close waits for pending notifications and releases the browsers and the database.
func (a *App) Close() {
	a.Service.Wait()
	a.Pool.Close()
	if err := a.Repo.Close(); err != nil {
		log.Printf("WARN: closing database: %v", err)
	}
}

// RunServer serves the HTTP API until ctx is cancelled, then shuts down gracefully.
func (a *App) RunServer(ctx context.Context) error {
	srv := server.New(a.Service, a.Metrics, a.Config.Server)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errc
}

// RunPayment pays the invoice described by the JSON request in file.
func (a *App) RunPayment(ctx context.Context, file string, out io.Writer) error {
	log.Println("--- Starting Invoice Payment Task ---")

	var req models.PaymentRequest
	if err := readRequest(file, &req); err != nil {
		return err
	}

	res, err := a.Service.PayInvoice(ctx, &req)
	if err != nil {
		return describe(err)
	}

	log.Printf("--- Payment Task Finished. Confirmation number: %s ---", res.ConfirmationNumber)
	return writeJSON(out, models.SuccessResponse{Success: true, Data: res})
}

// RunVerification only checks the invoice described by the JSON request in file.
func (a *App) RunVerification(ctx context.Context, file string, out io.Writer) error {
	log.Println("--- Starting Invoice Verification Task ---")

	var req models.VerifyRequest
	if err := readRequest(file, &req); err != nil {
		return err
	}

	res, err := a.Service.VerifyInvoice(ctx, &req)
	if err != nil {
		return describe(err)
	}

	log.Println("--- Verification Task Finished ---")
	return writeJSON(out, models.SuccessResponse{Success: true, Data: res})
}

// PrintHistory writes the most recent attempts, optionally for one invoice.
func (a *App) PrintHistory(ctx context.Context, invoiceNumber string, limit int, out io.Writer) error {
	list, err := a.Service.ListAttempts(ctx, models.AttemptFilters{InvoiceNumber: invoiceNumber, Limit: limit})
	if err != nil {
		return err
	}
	if len(list.Data) == 0 {
		log.Println("No payment attempts recorded.")
	}
	return writeJSON(out, list)
}

func readRequest(file string, v interface{}) error {
	if file == "" {
		return errors.New("a request file is required (-file request.json)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("error reading request file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error parsing request file: %w", err)
	}
	return nil
}

// describe expands validation failures into one readable error.
func describe(err error) error {
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	msg := "request is invalid:"
	for _, f := range ve.Fields {
		msg += fmt.Sprintf("\n  - %s: %s", f.Field, f.Message)
	}
	return fmt.Errorf("%w: %s", models.ErrValidation, msg)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
