// Package backup builds encrypted JSON snapshots of one tenant's data.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// Snapshot is the decrypted content of a backup file.
type Snapshot struct {
	TenantID     uint                  `json:"tenant_id"`
	Created      time.Time             `json:"created"`
	Settings     models.TenantSettings `json:"settings"`
	Users        []models.User         `json:"users"`
	Roles        []models.Role         `json:"roles"`
	Clients      []models.Client       `json:"clients"`
	Contacts     []models.Contact      `json:"contacts"`
	Interactions []models.Interaction  `json:"interactions"`
	Matters      []models.Matter       `json:"matters"`
	Tasks        []models.Task         `json:"tasks"`
	Deadlines    []models.Deadline     `json:"deadlines"`
	Hearings     []models.Hearing      `json:"hearings"`
	Activities   []models.Activity     `json:"activities"`
	Documents    []models.Document     `json:"documents"`
	TimeEntries  []models.TimeEntry    `json:"time_entries"`
	Invoices     []models.Invoice      `json:"invoices"`
	InvoiceItems []models.InvoiceItem  `json:"invoice_items"`
	Payments     []models.Payment      `json:"payments"`
	Transactions []models.Transaction  `json:"transactions"`
}

// Take reads every tenant-owned table into a Snapshot.
func Take(ctx context.Context, db *gorm.DB, tenantID uint, now time.Time) (*Snapshot, error) {
	s := &Snapshot{TenantID: tenantID, Created: now}
	db = db.WithContext(ctx)

	if err := db.Where("tenant_id = ?", tenantID).Limit(1).Find(&s.Settings).Error; err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	tables := []struct {
		name string
		dst  any
	}{
		{"users", &s.Users},
		{"roles", &s.Roles},
		{"clients", &s.Clients},
		{"contacts", &s.Contacts},
		{"interactions", &s.Interactions},
		{"matters", &s.Matters},
		{"tasks", &s.Tasks},
		{"deadlines", &s.Deadlines},
		{"hearings", &s.Hearings},
		{"activities", &s.Activities},
		{"documents", &s.Documents},
		{"time entries", &s.TimeEntries},
		{"invoices", &s.Invoices},
		{"payments", &s.Payments},
		{"transactions", &s.Transactions},
	}
	for _, t := range tables {
		if err := db.Where("tenant_id = ?", tenantID).Order("id ASC").Find(t.dst).Error; err != nil {
			return nil, fmt.Errorf("read %s: %w", t.name, err)
		}
	}
	if len(s.Invoices) > 0 {
		ids := make([]uint, 0, len(s.Invoices))
		for _, inv := range s.Invoices {
			ids = append(ids, inv.ID)
		}
		if err := db.Where("invoice_id IN ?", ids).Order("id ASC").Find(&s.InvoiceItems).Error; err != nil {
			return nil, fmt.Errorf("read invoice items: %w", err)
		}
	}
	return s, nil
}

// Seal marshals and encrypts a snapshot.
func Seal(key string, s *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	enc, err := util.EncryptAES(key, raw)
	if err != nil {
		return nil, fmt.Errorf("encrypt snapshot: %w", err)
	}
	return enc, nil
}

// Unseal decrypts and parses a sealed snapshot.
func Unseal(key string, data []byte) (*Snapshot, error) {
	raw, err := util.DecryptAES(key, data)
	if err != nil {
		return nil, fmt.Errorf("decrypt snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &s, nil
}

// Create takes, seals and writes a snapshot under dir, then records it.
func Create(ctx context.Context, db *gorm.DB, key, dir string, tenantID, userID uint) (*models.Backup, error) {
	snap, err := Take(ctx, db, tenantID, time.Now())
	if err != nil {
		return nil, err
	}
	enc, err := Seal(key, snap)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	fileName := fmt.Sprintf("backup-%d-%s-%s.bin", tenantID, snap.Created.Format("20060102T150405"), uuid.NewString()[:8])
	filePath := filepath.Join(dir, fileName)
	if err := os.WriteFile(filePath, enc, 0o600); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}

	b := models.Backup{
		TenantID:  tenantID,
		CreatedBy: userID,
		FileName:  fileName,
		FilePath:  filePath,
		Size:      int64(len(enc)),
	}
	if err := db.WithContext(ctx).Create(&b).Error; err != nil {
		_ = os.Remove(filePath)
		return nil, fmt.Errorf("record backup: %w", err)
	}
	return &b, nil
}
