package database

import (
	"fmt"

	"lawdesk/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.TenantSettings{},
		&models.User{},
		&models.Role{},
		&models.Session{},
		&models.Client{},
		&models.Contact{},
		&models.Interaction{},
		&models.Matter{},
		&models.Task{},
		&models.Deadline{},
		&models.Hearing{},
		&models.Activity{},
		&models.Document{},
		&models.TimeEntry{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Payment{},
		&models.Transaction{},
		&models.AuditLog{},
		&models.Backup{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
