// Package testutil provides database and fixture helpers shared by package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lawdesk/internal/config"
	"lawdesk/internal/database"
	"lawdesk/internal/models"
)

// NewDB opens a migrated SQLite database in a temp dir, closed on cleanup.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Init(config.DatabaseConfig{Path: path})
	if err != nil {
		t.Fatalf("init test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// Tenant creates a tenant with empty settings.
func Tenant(t *testing.T, db *gorm.DB, name string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		Name:     name,
		Slug:     fmt.Sprintf("%s-%d", name, time.Now().UnixNano()),
		Settings: models.TenantSettings{AlertDaysAhead: 7},
	}
	mustCreate(t, db, tenant)
	return tenant
}

// User creates an active user with the given role and a throwaway password hash.
func User(t *testing.T, db *gorm.DB, tenantID uint, role string) *models.User {
	t.Helper()
	u := &models.User{
		TenantID:     tenantID,
		Email:        fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		Name:         role,
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	}
	mustCreate(t, db, u)
	return u
}

func Client(t *testing.T, db *gorm.DB, tenantID uint, name string) *models.Client {
	t.Helper()
	c := &models.Client{
		TenantID: tenantID,
		Name:     name,
		Type:     "individual",
		Status:   models.ClientStatusActive,
	}
	mustCreate(t, db, c)
	return c
}

func Matter(t *testing.T, db *gorm.DB, tenantID, clientID uint, title string) *models.Matter {
	t.Helper()
	m := &models.Matter{
		TenantID: tenantID,
		ClientID: clientID,
		Title:    title,
		Status:   models.MatterStatusOpen,
		OpenedAt: time.Now(),
	}
	mustCreate(t, db, m)
	return m
}

// TimeEntry creates an unbilled, billable entry for the client.
func TimeEntry(t *testing.T, db *gorm.DB, tenantID, userID, clientID uint, hours string) *models.TimeEntry {
	t.Helper()
	e := &models.TimeEntry{
		TenantID:    tenantID,
		UserID:      userID,
		ClientID:    &clientID,
		Description: "work " + hours + "h",
		Hours:       decimal.RequireFromString(hours),
		Date:        time.Now().Truncate(24 * time.Hour),
		Billable:    true,
	}
	mustCreate(t, db, e)
	return e
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
