package billing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawdesk/internal/models"
	"lawdesk/internal/testutil"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreateTimeEntry_ClientFromMatter(t *testing.T) {
	f := newFixture(t)
	matter := testutil.Matter(t, f.db, f.tenant.ID, f.client.ID, "Despejo")

	e, err := f.svc.CreateTimeEntry(context.Background(), f.tenant.ID, f.user.ID, TimeEntryInput{
		MatterID:    &matter.ID,
		Description: strPtr("Petição"),
		Hours:       decPtr("1.25"),
	})
	require.NoError(t, err)
	require.NotNil(t, e.ClientID)
	assert.Equal(t, f.client.ID, *e.ClientID)
	assert.True(t, e.Billable)
	assert.Equal(t, f.fixedAt, e.Date)
}

func TestCreateTimeEntry_Validation(t *testing.T) {
	f := newFixture(t)
	other := testutil.Client(t, f.db, f.tenant.ID, "Other")
	matter := testutil.Matter(t, f.db, f.tenant.ID, f.client.ID, "M")
	missing := uint(9999)

	cases := []struct {
		name string
		in   TimeEntryInput
		want error
	}{
		{"no description", TimeEntryInput{Hours: decPtr("1")}, ErrInvalidInput},
		{"no hours", TimeEntryInput{Description: strPtr("x")}, ErrInvalidInput},
		{"zero hours", TimeEntryInput{Description: strPtr("x"), Hours: decPtr("0")}, ErrInvalidInput},
		{"too many hours", TimeEntryInput{Description: strPtr("x"), Hours: decPtr("25")}, ErrInvalidInput},
		{"unknown client", TimeEntryInput{Description: strPtr("x"), Hours: decPtr("1"), ClientID: &missing}, ErrClientNotFound},
		{"matter of other client", TimeEntryInput{Description: strPtr("x"), Hours: decPtr("1"), ClientID: &other.ID, MatterID: &matter.ID}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateTimeEntry(context.Background(), f.tenant.ID, f.user.ID, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateAndDeleteTimeEntry_BilledRejected(t *testing.T) {
	f := newFixture(t)
	billed := f.entry(t, "1")
	f.invoice(t, 100, billed)
	ctx := context.Background()

	_, err := f.svc.UpdateTimeEntry(ctx, f.tenant.ID, billed.ID, TimeEntryInput{Hours: decPtr("5")})
	assert.ErrorIs(t, err, ErrEntryBilled)
	assert.ErrorIs(t, f.svc.DeleteTimeEntry(ctx, f.tenant.ID, billed.ID), ErrEntryBilled)

	var reloaded models.TimeEntry
	require.NoError(t, f.db.First(&reloaded, billed.ID).Error)
	assert.True(t, decimal.NewFromInt(1).Equal(reloaded.Hours))
}

func TestUpdateAndDeleteTimeEntry_Unbilled(t *testing.T) {
	f := newFixture(t)
	e := f.entry(t, "1")
	ctx := context.Background()
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	no := false

	updated, err := f.svc.UpdateTimeEntry(ctx, f.tenant.ID, e.ID, TimeEntryInput{Hours: decPtr("2.5"), Date: &day, Billable: &no})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2.5").Equal(updated.Hours))
	assert.False(t, updated.Billable)

	unbilled, err := f.svc.UnbilledEntries(ctx, f.tenant.ID, f.client.ID)
	require.NoError(t, err)
	assert.Empty(t, unbilled, "non-billable entries are not offered for invoicing")

	require.NoError(t, f.svc.DeleteTimeEntry(ctx, f.tenant.ID, e.ID))
	assert.ErrorIs(t, f.svc.DeleteTimeEntry(ctx, f.tenant.ID, e.ID), ErrTimeEntryNotFound)
}

func TestUpdateTimeEntry_ClientMustMatchMatter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	matter := testutil.Matter(t, f.db, f.tenant.ID, f.client.ID, "Despejo")
	other := testutil.Client(t, f.db, f.tenant.ID, "Ana")

	e, err := f.svc.CreateTimeEntry(ctx, f.tenant.ID, f.user.ID, TimeEntryInput{
		MatterID:    &matter.ID,
		Description: strPtr("Audiência"),
		Hours:       decPtr("1"),
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateTimeEntry(ctx, f.tenant.ID, e.ID, TimeEntryInput{ClientID: &other.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	var reloaded models.TimeEntry
	require.NoError(t, f.db.First(&reloaded, e.ID).Error)
	require.NotNil(t, reloaded.ClientID)
	assert.Equal(t, f.client.ID, *reloaded.ClientID)

	// moving both together is allowed
	otherMatter := testutil.Matter(t, f.db, f.tenant.ID, other.ID, "Inventário")
	moved, err := f.svc.UpdateTimeEntry(ctx, f.tenant.ID, e.ID, TimeEntryInput{ClientID: &other.ID, MatterID: &otherMatter.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, *moved.ClientID)
	assert.Equal(t, otherMatter.ID, *moved.MatterID)
}
