/*
overdue.go - Periodic overdue-installment sweep

PURPOSE:
  Scans unpaid installments past their due date and logs a structured
  summary. Wired to a cron schedule in cmd/server; the sweep itself is
  side-effect free apart from logging, so operators can run it as often
  as they like.
*/
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/atelier/billing-engine/schedule"
)

// OverdueInstallment identifies an unpaid installment past its due date.
type OverdueInstallment struct {
	InvoiceID     string
	InvoiceNumber string
	ScheduleID    string
	Description   string
	DueDate       string
	Amount        decimal.Decimal
	DaysLate      int
}

// OverdueAsOf finds unpaid installments due strictly before asOf.
// Write-offs are excluded; they no longer expect money.
func OverdueAsOf(invoices []Invoice, asOf time.Time) []OverdueInstallment {
	day := asOf.Format(schedule.DateLayout)
	var out []OverdueInstallment
	for _, inv := range invoices {
		for _, ins := range inv.Schedules {
			if ins.Status != schedule.StatusUnpaid || ins.DueDate == "" || ins.DueDate >= day {
				continue
			}
			late := 0
			if due, err := schedule.ParseDate(ins.DueDate); err == nil {
				late = int(asOf.Sub(due).Hours() / 24)
			}
			out = append(out, OverdueInstallment{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.Number,
				ScheduleID:    ins.ID,
				Description:   ins.Description,
				DueDate:       ins.DueDate,
				Amount:        ins.Amount,
				DaysLate:      late,
			})
		}
	}
	return out
}

// Sweeper runs the overdue scan against a store.
type Sweeper struct {
	Store Store
	Log   logrus.FieldLogger
	Clock func() time.Time // defaults to time.Now
}

// Run performs one sweep, logging one entry per overdue installment and
// a summary line.
func (s *Sweeper) Run(ctx context.Context) error {
	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}

	invoices, err := s.Store.ListInvoices(ctx)
	if err != nil {
		return err
	}

	overdue := OverdueAsOf(invoices, clock())
	for _, o := range overdue {
		s.Log.WithFields(logrus.Fields{
			"invoice":   o.InvoiceNumber,
			"schedule":  o.Description,
			"due_date":  o.DueDate,
			"amount":    o.Amount.StringFixed(2),
			"days_late": o.DaysLate,
		}).Warn("installment overdue")
	}
	s.Log.WithFields(logrus.Fields{
		"invoices": len(invoices),
		"overdue":  len(overdue),
	}).Info("overdue sweep complete")
	return nil
}
