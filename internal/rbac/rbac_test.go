package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"lawdesk/internal/models"
	"lawdesk/internal/testutil"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role string
		perm string
		want bool
	}{
		{models.RoleAdmin, FinanceManage, true},
		{models.RoleAdmin, "anything.at.all", true},
		{models.RoleClient, FinanceView, false},
		{models.RoleClient, CasesView, true},
		{models.RoleLawyer, CasesManage, true},
		{models.RoleLawyer, SettingsManage, false},
		{models.RoleFinancial, BillingManage, true},
		{models.RoleFinancial, CasesManage, false},
		{models.RoleParalegal, DocumentsManage, true},
		{models.RoleAssistant, BillingView, false},
		{"ghost", CasesView, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+" "+tt.perm, func(t *testing.T) {
			u := &models.User{Role: tt.role, Active: true}
			assert.Equal(t, tt.want, Can(u, tt.perm))
		})
	}
}

func TestCan_InactiveUser(t *testing.T) {
	assert.False(t, Can(&models.User{Role: models.RoleAdmin}, CasesView))
	assert.False(t, Can(nil, CasesView))
}

func TestAllowed_TenantOverride(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	checker := NewChecker(db)

	tenantA := testutil.Tenant(t, db, "a")
	tenantB := testutil.Tenant(t, db, "b")
	clientA := testutil.User(t, db, tenantA.ID, models.RoleClient)
	clientB := testutil.User(t, db, tenantB.ID, models.RoleClient)

	ok, err := checker.Allowed(ctx, clientA, tenantA.ID, FinanceView)
	require.NoError(t, err)
	assert.False(t, ok, "no override yet")

	require.NoError(t, db.Create(&models.Role{
		TenantID:    tenantA.ID,
		Name:        models.RoleClient,
		Permissions: datatypes.NewJSONType(models.PermissionSet{Allowed: []string{FinanceView}}),
	}).Error)

	ok, err = checker.Allowed(ctx, clientA, tenantA.ID, FinanceView)
	require.NoError(t, err)
	assert.True(t, ok, "override grants finance.view in tenant A")

	ok, err = checker.Allowed(ctx, clientB, tenantB.ID, FinanceView)
	require.NoError(t, err)
	assert.False(t, ok, "tenant B clients are unaffected")

	ok, err = checker.Allowed(ctx, clientA, tenantA.ID, CasesView)
	require.NoError(t, err)
	assert.True(t, ok, "static table still applies when override lacks the permission")

	ok, err = checker.Allowed(ctx, clientA, tenantB.ID, CasesView)
	require.NoError(t, err)
	assert.False(t, ok, "user from another tenant")
}

func TestAllowed_LegacyArrayShape(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "legacy")
	u := testutil.User(t, db, tenant.ID, models.RoleAssistant)

	require.NoError(t, db.Exec(
		`INSERT INTO roles (tenant_id, name, permissions, created_at, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		tenant.ID, models.RoleAssistant, `["billing.view"]`,
	).Error)

	ok, err := NewChecker(db).Allowed(context.Background(), u, tenant.ID, BillingView)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEffective(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "eff")

	require.NoError(t, db.Create(&models.Role{
		TenantID:    tenant.ID,
		Name:        models.RoleClient,
		Permissions: datatypes.NewJSONType(models.PermissionSet{Allowed: []string{"billing.*"}}),
	}).Error)

	perms, err := NewChecker(db).Effective(context.Background(), tenant.ID, models.RoleClient)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{CasesView, DocumentsView, BillingView, BillingManage}, perms)
}

func TestRoles(t *testing.T) {
	roles := Roles()
	require.Len(t, roles, 6)
	assert.Equal(t, models.RoleAdmin, roles[0])
	for _, r := range roles {
		assert.True(t, KnownRole(r), r)
	}
	roles[0] = "mutated"
	assert.Equal(t, models.RoleAdmin, Roles()[0])
}
