package database

import (
	"InvoicePayer/internal/models"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DBRepository wraps the payment attempts database.
type DBRepository struct {
	DB *sql.DB
}

const attemptColumns = `id, kind, invoice_number, cardholder_name, card_last4, amount, currency,
	country, email, status, error, failed_step, confirmation_number, transaction_date,
	steps, created_at, completed_at`

// InitDB opens the SQLite file and makes sure the schema exists.
func InitDB(filepath string) (*DBRepository, error) {
	db, err := sql.Open("sqlite", filepath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	createAttemptsTableSQL := `
	CREATE TABLE IF NOT EXISTS payment_attempts (
		"id" TEXT NOT NULL PRIMARY KEY,
		"kind" TEXT NOT NULL,
		"invoice_number" TEXT NOT NULL,
		"cardholder_name" TEXT DEFAULT '',
		"card_last4" TEXT DEFAULT '',
		"amount" REAL,
		"currency" TEXT DEFAULT '',
		"country" TEXT DEFAULT '',
		"email" TEXT DEFAULT '',
		"status" TEXT DEFAULT 'pending',
		"error" TEXT DEFAULT '',
		"failed_step" TEXT DEFAULT '',
		"confirmation_number" TEXT DEFAULT '',
		"transaction_date" TEXT DEFAULT '',
		"steps" TEXT,
		"created_at" DATETIME NOT NULL,
		"completed_at" DATETIME
	);`
	if _, err = db.Exec(createAttemptsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating payment_attempts table: %w", err)
	}

	indexSQL := `CREATE INDEX IF NOT EXISTS idx_attempts_invoice ON payment_attempts (invoice_number, status);`
	if _, err = db.Exec(indexSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating payment_attempts index: %w", err)
	}

	log.Println("Database and tables initialized successfully.")
	return &DBRepository{DB: db}, nil
}

func (repo *DBRepository) Close() error {
	return repo.DB.Close()
}

// SaveAttempt inserts a new attempt, normally in the pending state.
func (repo *DBRepository) SaveAttempt(a models.PaymentAttempt) error {
	query := `
	INSERT INTO payment_attempts (` + attemptColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := repo.DB.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		a.ID, a.Kind, a.InvoiceNumber, a.CardholderName, a.CardLast4, a.Amount, a.Currency,
		a.Country, a.Email, a.Status, a.Error, a.FailedStep, a.ConfirmationNumber, a.TransactionDate,
		a.Steps, a.CreatedAt.UTC(), nullTime(a.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt %s: %w", a.ID, err)
	}
	return nil
}

// CompleteAttempt stores the outcome of a finished attempt.
func (repo *DBRepository) CompleteAttempt(a models.PaymentAttempt) error {
	query := `
	UPDATE payment_attempts SET
		status = ?,
		error = ?,
		failed_step = ?,
		confirmation_number = ?,
		transaction_date = ?,
		currency = ?,
		steps = ?,
		completed_at = ?
	WHERE id = ?;`

	completed := time.Now().UTC()
	if a.CompletedAt != nil {
		completed = a.CompletedAt.UTC()
	}

	res, err := repo.DB.Exec(query,
		a.Status, a.Error, a.FailedStep, a.ConfirmationNumber, a.TransactionDate,
		a.Currency, a.Steps, completed, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete attempt %s: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetAttempt returns the attempt with the given id or models.ErrNotFound.
func (repo *DBRepository) GetAttempt(id string) (*models.PaymentAttempt, error) {
	row := repo.DB.QueryRow("SELECT "+attemptColumns+" FROM payment_attempts WHERE id = ?", id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttempts returns attempts matching the filters, newest first.
func (repo *DBRepository) ListAttempts(filters models.AttemptFilters) ([]models.PaymentAttempt, error) {
	where, args := attemptConditions(filters)
	query := "SELECT " + attemptColumns + " FROM payment_attempts" + where + " ORDER BY created_at DESC, id"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filters.Offset)
		}
	}

	rows, err := repo.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute filtered query: %w", err)
	}
	defer rows.Close()

	attempts := []models.PaymentAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			log.Printf("Error scanning attempt row: %v", err)
			continue
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// CountAttempts returns how many attempts match the filters, ignoring pagination.
func (repo *DBRepository) CountAttempts(filters models.AttemptFilters) (int, error) {
	where, args := attemptConditions(filters)
	var total int
	if err := repo.DB.QueryRow("SELECT COUNT(*) FROM payment_attempts"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return total, nil
}

// HasPaidInvoice reports whether a successful payment is recorded for the invoice.
func (repo *DBRepository) HasPaidInvoice(invoiceNumber string) (bool, error) {
	var n int
	err := repo.DB.QueryRow(
		"SELECT COUNT(*) FROM payment_attempts WHERE invoice_number = ? AND kind = ? AND status = ?",
		invoiceNumber, models.KindPay, models.StatusPaid,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func attemptConditions(filters models.AttemptFilters) (string, []interface{}) {
	var args []interface{}
	var conditions []string

	if filters.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filters.Status)
	}
	if filters.InvoiceNumber != "" {
		conditions = append(conditions, "invoice_number = ?")
		args = append(args, filters.InvoiceNumber)
	}
	if filters.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filters.Kind)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(s scanner) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	var completed sql.NullTime
	err := s.Scan(
		&a.ID, &a.Kind, &a.InvoiceNumber, &a.CardholderName, &a.CardLast4, &a.Amount, &a.Currency,
		&a.Country, &a.Email, &a.Status, &a.Error, &a.FailedStep, &a.ConfirmationNumber, &a.TransactionDate,
		&a.Steps, &a.CreatedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		a.CompletedAt = &t
	}
	return &a, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
