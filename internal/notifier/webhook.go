package notifier

import (
	"InvoicePayer/internal/models"
	"InvoicePayer/pkg/config"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// WebhookClient posts finished attempts to a configured callback URL.
type WebhookClient struct {
	APIUrl     string
	Username   string
	Password   string
	HttpClient *http.Client
}

// AttemptEvent is the JSON body of every callback.
type AttemptEvent struct {
	Event              string     `json:"event"`
	AttemptID          string     `json:"attempt_id"`
	Kind               string     `json:"kind"`
	InvoiceNumber      string     `json:"invoice_number"`
	Status             string     `json:"status"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency"`
	CardLast4          string     `json:"card_last4,omitempty"`
	ConfirmationNumber string     `json:"confirmation_number,omitempty"`
	TransactionDate    string     `json:"transaction_date,omitempty"`
	Error              string     `json:"error,omitempty"`
	FailedStep         string     `json:"failed_step,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// NewWebhookClient returns nil when no URL is configured; a nil client
// silently drops every notification.
func NewWebhookClient(conf config.NotifierConfig) *WebhookClient {
	if conf.URL == "" {
		return nil
	}
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookClient{
		APIUrl:     conf.URL,
		Username:   conf.Username,
		Password:   conf.Password,
		HttpClient: &http.Client{Timeout: timeout},
	}
}

// Notify sends the outcome of an attempt.
func (c *WebhookClient) Notify(ctx context.Context, a models.PaymentAttempt) error {
	if c == nil {
		return nil
	}

	payload := AttemptEvent{
		Event:              "attempt." + a.Status,
		AttemptID:          a.ID,
		Kind:               a.Kind,
		InvoiceNumber:      a.InvoiceNumber,
		Status:             a.Status,
		Amount:             a.Amount,
		Currency:           a.Currency,
		CardLast4:          a.CardLast4,
		ConfirmationNumber: a.ConfirmationNumber,
		TransactionDate:    a.TransactionDate,
		Error:              a.Error,
		FailedStep:         a.FailedStep,
		CompletedAt:        a.CompletedAt,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIUrl, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned an error. Status: %s | Body: %s", resp.Status, string(bodyBytes))
	}

	log.Printf("Notified webhook about attempt %s (%s).", a.ID, a.Status)
	return nil
}
