package models

import (
	"time"

	"gorm.io/datatypes"
)

// Built-in role names.
const (
	RoleAdmin     = "admin"
	RoleLawyer    = "lawyer"
	RoleParalegal = "paralegal"
	RoleFinancial = "financial"
	RoleAssistant = "assistant"
	RoleClient    = "client"
)

// User represents a member of a tenant.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"index;not null" json:"tenant_id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"size:128" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;not null" json:"role"`
	Active       bool      `gorm:"not null" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `gorm:"index" json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP         string     `gorm:"size:64" json:"-"`

	Tenant Tenant `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Role is a tenant override of a built-in role's permission list.
type Role struct {
	ID          uint                              `gorm:"primaryKey" json:"id"`
	TenantID    uint                              `gorm:"uniqueIndex:idx_role_tenant_name;not null" json:"tenant_id"`
	Name        string                            `gorm:"size:32;uniqueIndex:idx_role_tenant_name;not null" json:"name"`
	Permissions datatypes.JSONType[PermissionSet] `json:"permissions"`
	CreatedAt   time.Time                         `json:"created_at"`
	UpdatedAt   time.Time                         `json:"updated_at"`
}
