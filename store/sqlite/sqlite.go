/*
Package sqlite provides a SQLite-backed implementation of billing.Store.

PURPOSE:
  Persists clients, jobs and invoices. Invoices are saved whole: the
  invoice row, its line items and its payment schedule are written in a
  single transaction, so a reader never observes a half-saved aggregate.

PERSISTED SCHEDULE SHAPE:
  The payment_schedules table stores percentages only - no amount
  column. Amounts are derived values (total * percentage / 100) and are
  re-hydrated on load via Invoice.HydrateSchedules. Persisting both
  would let the two representations drift.

KEY TABLES:
  clients:           Contact records
  jobs:              Booked work, linked to a client
  invoices:          Invoice header (number, dates, currency, status)
  invoice_items:     Line items (quantity/rate as decimal strings)
  payment_schedules: Installments in the percentage-only shape

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/types.go: Store interface definition
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/atelier/billing-engine/billing"
	"github.com/atelier/billing-engine/schedule"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_name ON clients(name);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id),
		title TEXT NOT NULL,
		location TEXT,
		date TEXT,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_client ON jobs(client_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_date ON jobs(date);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		client_id TEXT NOT NULL REFERENCES clients(id),
		job_id TEXT REFERENCES jobs(id),
		issue_date TEXT,
		due_date TEXT,
		currency TEXT NOT NULL DEFAULT 'USD',
		status TEXT NOT NULL DEFAULT 'draft',
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_client ON invoices(client_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_number ON invoices(number);

	CREATE TABLE IF NOT EXISTS invoice_items (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		description TEXT NOT NULL,
		quantity TEXT NOT NULL,
		rate TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_invoice ON invoice_items(invoice_id);

	-- Percentage-only shape: amounts are derived on load.
	CREATE TABLE IF NOT EXISTS payment_schedules (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		due_date TEXT,
		percentage TEXT NOT NULL,
		description TEXT NOT NULL,
		auto_description BOOLEAN DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'unpaid',
		payment_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_invoice ON payment_schedules(invoice_id);
	CREATE INDEX IF NOT EXISTS idx_schedules_due ON payment_schedules(status, due_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENTS
// =============================================================================

// SaveClient inserts or updates a client.
func (s *Store) SaveClient(ctx context.Context, c billing.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO clients (id, name, email, phone, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			notes = excluded.notes
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, nullString(c.Email), nullString(c.Phone), nullString(c.Notes),
		createdAt(c.CreatedAt),
	)
	return err
}

// GetClient retrieves a client by ID. Returns (nil, nil) when not found.
func (s *Store) GetClient(ctx context.Context, id string) (*billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, phone, notes, created_at FROM clients WHERE id = ?", id)

	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, phone, notes, created_at FROM clients ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []billing.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// DeleteClient removes a client.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	return err
}

func scanClient(row rowScanner) (*billing.Client, error) {
	var c billing.Client
	var email, phone, notes sql.NullString
	var created string

	if err := row.Scan(&c.ID, &c.Name, &email, &phone, &notes, &created); err != nil {
		return nil, err
	}

	c.Email = email.String
	c.Phone = phone.String
	c.Notes = notes.String
	c.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &c, nil
}

// =============================================================================
// JOBS
// =============================================================================

// SaveJob inserts or updates a job.
func (s *Store) SaveJob(ctx context.Context, j billing.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO jobs (id, client_id, title, location, date, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			title = excluded.title,
			location = excluded.location,
			date = excluded.date,
			status = excluded.status,
			notes = excluded.notes
	`

	_, err := s.db.ExecContext(ctx, query,
		j.ID, j.ClientID, j.Title, nullString(j.Location), nullString(j.Date),
		string(j.Status), nullString(j.Notes), createdAt(j.CreatedAt),
	)
	return err
}

// GetJob retrieves a job by ID. Returns (nil, nil) when not found.
func (s *Store) GetJob(ctx context.Context, id string) (*billing.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, client_id, title, location, date, status, notes, created_at FROM jobs WHERE id = ?", id)

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// ListJobs returns all jobs ordered by date.
func (s *Store) ListJobs(ctx context.Context) ([]billing.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, client_id, title, location, date, status, notes, created_at FROM jobs ORDER BY date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []billing.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	return err
}

func scanJob(row rowScanner) (*billing.Job, error) {
	var j billing.Job
	var location, date, notes sql.NullString
	var status, created string

	if err := row.Scan(&j.ID, &j.ClientID, &j.Title, &location, &date, &status, &notes, &created); err != nil {
		return nil, err
	}

	j.Location = location.String
	j.Date = date.String
	j.Status = billing.JobStatus(status)
	j.Notes = notes.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &j, nil
}

// =============================================================================
// INVOICES - saved and loaded whole
// =============================================================================

// SaveInvoice writes the invoice, its items and its schedule in one
// transaction. Items and schedules are replaced wholesale; the editor
// owns ordering and identity, the store just records them.
func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	header := `
		INSERT INTO invoices
		(id, number, client_id, job_id, issue_date, due_date, currency, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			client_id = excluded.client_id,
			job_id = excluded.job_id,
			issue_date = excluded.issue_date,
			due_date = excluded.due_date,
			currency = excluded.currency,
			status = excluded.status,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, header,
		inv.ID, inv.Number, inv.ClientID, nullString(inv.JobID),
		nullString(inv.IssueDate), nullString(inv.DueDate),
		inv.Currency, string(inv.Status), nullString(inv.Notes),
		createdAt(inv.CreatedAt), now,
	)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM invoice_items WHERE invoice_id = ?", inv.ID); err != nil {
		return err
	}
	for i, item := range inv.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO invoice_items (id, invoice_id, position, description, quantity, rate) VALUES (?, ?, ?, ?, ?, ?)",
			item.ID, inv.ID, i, item.Description, item.Quantity.String(), item.Rate.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save line item: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM payment_schedules WHERE invoice_id = ?", inv.ID); err != nil {
		return err
	}
	for i, ins := range inv.Schedules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payment_schedules
			 (id, invoice_id, position, due_date, percentage, description, auto_description, status, payment_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ins.ID, inv.ID, i, nullString(ins.DueDate), ins.Percentage.String(),
			ins.Description, ins.AutoDescription, string(ins.Status), nullString(ins.PaymentDate),
		)
		if err != nil {
			return fmt.Errorf("failed to save schedule: %w", err)
		}
	}

	return tx.Commit()
}

// GetInvoice loads an invoice with its items and hydrated schedule.
// Returns (nil, nil) when not found.
func (s *Store) GetInvoice(ctx context.Context, id string) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, err := s.loadInvoice(ctx, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices loads every invoice whole, ordered by number.
func (s *Store) ListInvoices(ctx context.Context) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM invoices ORDER BY number")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var invoices []billing.Invoice
	for _, id := range ids {
		inv, err := s.loadInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, nil
}

// DeleteInvoice removes an invoice; items and schedules cascade.
func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", id)
	return err
}

func (s *Store) loadInvoice(ctx context.Context, id string) (*billing.Invoice, error) {
	var inv billing.Invoice
	var jobID, issueDate, dueDate, notes sql.NullString
	var status, created, updated string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, number, client_id, job_id, issue_date, due_date, currency, status, notes, created_at, updated_at
		 FROM invoices WHERE id = ?`, id,
	).Scan(&inv.ID, &inv.Number, &inv.ClientID, &jobID, &issueDate, &dueDate,
		&inv.Currency, &status, &notes, &created, &updated)
	if err != nil {
		return nil, err
	}

	inv.JobID = jobID.String
	inv.IssueDate = issueDate.String
	inv.DueDate = dueDate.String
	inv.Status = billing.InvoiceStatus(status)
	inv.Notes = notes.String
	inv.CreatedAt, _ = time.Parse(time.RFC3339, created)
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updated)

	if inv.Items, err = s.loadItems(ctx, id); err != nil {
		return nil, err
	}
	if inv.Schedules, err = s.loadSchedules(ctx, id); err != nil {
		return nil, err
	}

	inv.HydrateSchedules()
	return &inv, nil
}

func (s *Store) loadItems(ctx context.Context, invoiceID string) ([]billing.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, description, quantity, rate FROM invoice_items WHERE invoice_id = ? ORDER BY position",
		invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []billing.LineItem
	for rows.Next() {
		var item billing.LineItem
		var quantity, rate string
		if err := rows.Scan(&item.ID, &item.Description, &quantity, &rate); err != nil {
			return nil, err
		}
		if item.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("bad quantity for item %s: %w", item.ID, err)
		}
		if item.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("bad rate for item %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) loadSchedules(ctx context.Context, invoiceID string) ([]schedule.Installment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, due_date, percentage, description, auto_description, status, payment_date
		 FROM payment_schedules WHERE invoice_id = ? ORDER BY position`,
		invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []schedule.Installment
	for rows.Next() {
		var ins schedule.Installment
		var dueDate, paymentDate sql.NullString
		var percentage, status string
		if err := rows.Scan(&ins.ID, &dueDate, &percentage, &ins.Description,
			&ins.AutoDescription, &status, &paymentDate); err != nil {
			return nil, err
		}
		if ins.Percentage, err = decimal.NewFromString(percentage); err != nil {
			return nil, fmt.Errorf("bad percentage for schedule %s: %w", ins.ID, err)
		}
		ins.DueDate = dueDate.String
		ins.Status = schedule.Status(status)
		ins.PaymentDate = paymentDate.String
		schedules = append(schedules, ins)
	}
	return schedules, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// rowScanner lets scan helpers work over both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// createdAt formats the record's creation time, defaulting to now for
// fresh records.
func createdAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}
