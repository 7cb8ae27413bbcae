/*
Package billing holds the client/job/invoice domain model.

PURPOSE:
  The aggregate layer around the schedule engine: clients book jobs, jobs
  get invoiced, invoices own a payment schedule. This package defines the
  records, derives invoice totals from line items, enforces save
  validation, and hydrates installment amounts from the persisted
  percentage-only shape.

SEE ALSO:
  - invoice.go: Totals, validation, hydration, editor wiring
  - overdue.go: Periodic overdue-installment sweep
  - store/memory.go: In-memory Store for tests and dev
  - ../store/sqlite: SQLite-backed Store
*/
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/billing-engine/schedule"
)

// =============================================================================
// CLIENTS AND JOBS
// =============================================================================

type Client struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Notes     string
	CreatedAt time.Time
}

type JobStatus string

const (
	JobScheduled JobStatus = "scheduled"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

type Job struct {
	ID        string
	ClientID  string
	Title     string
	Location  string
	Date      string // schedule.DateLayout
	Status    JobStatus
	Notes     string
	CreatedAt time.Time
}

// =============================================================================
// INVOICES
// =============================================================================

type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
)

// LineItem is one invoice line. Discounts are regular items with a
// negative rate.
type LineItem struct {
	ID          string
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
}

// Amount returns quantity * rate.
func (li LineItem) Amount() decimal.Decimal { return li.Quantity.Mul(li.Rate) }

// Invoice is the owning aggregate for a payment schedule. Schedules are
// created, edited and deleted only in the context of their parent
// invoice's items and total.
type Invoice struct {
	ID        string
	Number    string
	ClientID  string
	JobID     string
	IssueDate string // schedule.DateLayout
	DueDate   string // schedule.DateLayout
	Currency  string
	Status    InvoiceStatus
	Notes     string

	Items     []LineItem
	Schedules []schedule.Installment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// STORE - persistence interface (SQLite and in-memory implementations)
// =============================================================================

// Store is the persistence boundary for the billing domain. Invoices are
// saved and loaded whole (items and schedules included); implementations
// persist schedules in the percentage-only wire shape and callers
// re-hydrate amounts via HydrateSchedules after load.
type Store interface {
	SaveClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id string) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	DeleteClient(ctx context.Context, id string) error

	SaveJob(ctx context.Context, j Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
	DeleteJob(ctx context.Context, id string) error

	SaveInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
}
