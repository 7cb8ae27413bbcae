// Package store provides an in-memory billing.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/atelier/billing-engine/billing"
	"github.com/atelier/billing-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	clients  map[string]billing.Client
	jobs     map[string]billing.Job
	invoices map[string]billing.Invoice
}

func NewMemory() *Memory {
	return &Memory{
		clients:  make(map[string]billing.Client),
		jobs:     make(map[string]billing.Job),
		invoices: make(map[string]billing.Invoice),
	}
}

// Clients

func (m *Memory) SaveClient(_ context.Context, c billing.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) GetClient(_ context.Context, id string) (*billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListClients(_ context.Context) ([]billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteClient(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
	return nil
}

// Jobs

func (m *Memory) SaveJob(_ context.Context, j billing.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*billing.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (m *Memory) ListJobs(_ context.Context) ([]billing.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *Memory) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

// Invoices

func (m *Memory) SaveInvoice(_ context.Context, inv billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id string) (*billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	out := cloneInvoice(inv)
	out.HydrateSchedules()
	return &out, nil
}

func (m *Memory) ListInvoices(_ context.Context) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		c := cloneInvoice(inv)
		c.HydrateSchedules()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Memory) DeleteInvoice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invoices, id)
	return nil
}

// cloneInvoice copies the slices so callers can't mutate stored state.
func cloneInvoice(inv billing.Invoice) billing.Invoice {
	out := inv
	out.Items = append([]billing.LineItem(nil), inv.Items...)
	out.Schedules = append([]schedule.Installment(nil), inv.Schedules...)
	return out
}
