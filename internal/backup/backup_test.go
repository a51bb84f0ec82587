package backup

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawdesk/internal/models"
	"lawdesk/internal/testutil"
)

const key = "backup-test-key"

func TestTake_OnlyTenantRows(t *testing.T) {
	db := testutil.NewDB(t)
	a := testutil.Tenant(t, db, "a")
	b := testutil.Tenant(t, db, "b")
	ua := testutil.User(t, db, a.ID, models.RoleAdmin)
	ca := testutil.Client(t, db, a.ID, "Ana")
	testutil.Client(t, db, b.ID, "Bruno")
	testutil.TimeEntry(t, db, a.ID, ua.ID, ca.ID, "1.5")

	snap, err := Take(context.Background(), db, a.ID, time.Now())
	require.NoError(t, err)

	assert.Equal(t, a.ID, snap.TenantID)
	require.Len(t, snap.Clients, 1)
	assert.Equal(t, "Ana", snap.Clients[0].Name)
	assert.Len(t, snap.Users, 1)
	assert.Len(t, snap.TimeEntries, 1)
	assert.Equal(t, a.ID, snap.Settings.TenantID)
}

func TestSealUnseal(t *testing.T) {
	in := &Snapshot{TenantID: 7, Created: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Clients: []models.Client{{ID: 1, Name: "Ana"}}}

	enc, err := Seal(key, in)
	require.NoError(t, err)
	assert.NotContains(t, string(enc), "Ana")

	out, err := Unseal(key, enc)
	require.NoError(t, err)
	assert.Equal(t, in.TenantID, out.TenantID)
	assert.True(t, in.Created.Equal(out.Created))
	require.Len(t, out.Clients, 1)
	assert.Equal(t, "Ana", out.Clients[0].Name)

	_, err = Unseal("other-key", enc)
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "acme")
	user := testutil.User(t, db, tenant.ID, models.RoleAdmin)
	dir := t.TempDir()

	b, err := Create(context.Background(), db, key, dir, tenant.ID, user.ID)
	require.NoError(t, err)

	assert.NotZero(t, b.ID)
	data, err := os.ReadFile(b.FilePath)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), b.Size)

	snap, err := Unseal(key, data)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, snap.TenantID)
}
