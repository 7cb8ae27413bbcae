package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier/billing-engine/billing"
	"github.com/atelier/billing-engine/billing/store"
	"github.com/atelier/billing-engine/schedule"
)

func TestMemoryClientsAndJobs(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveClient(ctx, billing.Client{ID: "c1", Name: "Zoe"}))
	require.NoError(t, m.SaveClient(ctx, billing.Client{ID: "c2", Name: "Ada"}))

	clients, err := m.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Ada", clients[0].Name) // sorted by name

	got, err := m.GetClient(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Zoe", got.Name)

	missing, err := m.GetClient(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, m.DeleteClient(ctx, "c1"))
	clients, _ = m.ListClients(ctx)
	assert.Len(t, clients, 1)

	require.NoError(t, m.SaveJob(ctx, billing.Job{ID: "j1", ClientID: "c2", Date: "2026-05-01"}))
	job, err := m.GetJob(ctx, "j1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "c2", job.ClientID)
}

func TestMemoryInvoiceHydration(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	inv := billing.Invoice{
		ID:     "inv-1",
		Number: "INV-001",
		Items: []billing.LineItem{
			{ID: "li-1", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(2000)},
		},
		Schedules: []schedule.Installment{
			{ID: "a", Percentage: decimal.NewFromInt(25)},
			{ID: "b", Percentage: decimal.NewFromInt(75)},
		},
	}
	require.NoError(t, m.SaveInvoice(ctx, inv))

	// Amounts are recomputed from percentages on every load.
	got, err := m.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Schedules[0].Amount.Equal(decimal.NewFromInt(500)))
	assert.True(t, got.Schedules[1].Amount.Equal(decimal.NewFromInt(1500)))

	// Mutating a loaded copy must not leak into the store.
	got.Schedules[0].Percentage = decimal.NewFromInt(99)
	again, err := m.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, again.Schedules[0].Percentage.Equal(decimal.NewFromInt(25)))

	require.NoError(t, m.DeleteInvoice(ctx, "inv-1"))
	gone, err := m.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
