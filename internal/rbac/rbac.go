// Package rbac answers "may this user do that" from a static role table,
// optionally overridden per tenant by a Role row.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lawdesk/internal/models"
)

// Permission names.
const (
	ClientsView     = "clients.view"
	ClientsManage   = "clients.manage"
	CasesView       = "cases.view"
	CasesManage     = "cases.manage"
	DocumentsView   = "documents.view"
	DocumentsManage = "documents.manage"
	TimeManage      = "time.manage"
	BillingView     = "billing.view"
	BillingManage   = "billing.manage"
	FinanceView     = "finance.view"
	FinanceManage   = "finance.manage"
	CalendarView    = "calendar.view"
	SettingsManage  = "settings.manage"
	UsersManage     = "users.manage"
)

// All lists every permission the application checks.
var All = []string{
	ClientsView, ClientsManage, CasesView, CasesManage, DocumentsView,
	DocumentsManage, TimeManage, BillingView, BillingManage, FinanceView,
	FinanceManage, CalendarView, SettingsManage, UsersManage,
}

var roleTable = map[string]models.PermissionSet{
	models.RoleAdmin: {Allowed: []string{"*"}},
	models.RoleLawyer: {Allowed: []string{
		"clients.*", "cases.*", "documents.*", BillingView, BillingManage,
		TimeManage, CalendarView, FinanceView,
	}},
	models.RoleParalegal: {Allowed: []string{
		ClientsView, CasesView, CasesManage, "documents.*", TimeManage, CalendarView,
	}},
	models.RoleFinancial: {Allowed: []string{
		ClientsView, "billing.*", "finance.*", TimeManage, CalendarView,
	}},
	models.RoleAssistant: {Allowed: []string{
		ClientsView, ClientsManage, CasesView, DocumentsView, CalendarView,
	}},
	models.RoleClient: {Allowed: []string{CasesView, DocumentsView}},
}

var roleOrder = []string{
	models.RoleAdmin, models.RoleLawyer, models.RoleParalegal,
	models.RoleFinancial, models.RoleAssistant, models.RoleClient,
}

// Roles lists the built-in role names, most privileged first.
func Roles() []string {
	return append([]string(nil), roleOrder...)
}

// KnownRole reports whether name is a built-in role.
func KnownRole(name string) bool {
	_, ok := roleTable[name]
	return ok
}

// Known reports whether perm is a permission the application checks.
func Known(perm string) bool {
	for _, p := range All {
		if p == perm {
			return true
		}
	}
	return false
}

// Can checks the static role table only.
func Can(user *models.User, perm string) bool {
	if user == nil || !user.Active {
		return false
	}
	return roleTable[user.Role].Has(perm)
}

// Checker consults the tenant's Role override before the static table.
// It reads the database on every call.
type Checker struct {
	DB *gorm.DB
}

func NewChecker(db *gorm.DB) *Checker {
	return &Checker{DB: db}
}

// Allowed reports whether user may perform perm inside tenantID. A tenant Role
// named after the user's role grants extra permissions; when it is absent or
// does not grant perm, the static table decides.
func (c *Checker) Allowed(ctx context.Context, user *models.User, tenantID uint, perm string) (bool, error) {
	if user == nil || !user.Active || user.TenantID != tenantID {
		return false, nil
	}

	var role models.Role
	err := c.DB.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, user.Role).
		First(&role).Error
	switch {
	case err == nil:
		if role.Permissions.Data().Has(perm) {
			return true, nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return false, fmt.Errorf("load role override: %w", err)
	}

	return Can(user, perm), nil
}

// Effective returns the union of the static and override permissions for
// role in tenantID, expanded to concrete permission names.
func (c *Checker) Effective(ctx context.Context, tenantID uint, role string) ([]string, error) {
	set := roleTable[role]

	var override models.Role
	err := c.DB.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, role).
		First(&override).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load role override: %w", err)
	}
	extra := override.Permissions.Data()

	out := make([]string, 0, len(All))
	for _, p := range All {
		if set.Has(p) || extra.Has(p) {
			out = append(out, p)
		}
	}
	return out, nil
}
