package models

import "time"

// AuditLog records mutating requests. Path and action are stored encrypted.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	TenantID  uint      `gorm:"index;not null"`
	UserID    *uint     `gorm:"index"`
	PathEnc   string    `gorm:"size:1024"`
	Method    string    `gorm:"size:16;index"`
	ActionEnc string    `gorm:"size:4096"`
	Status    int
	IP        string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"index"`
}

// Backup is an encrypted JSON snapshot of one tenant's data.
type Backup struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  uint   `gorm:"index;not null"`
	CreatedBy uint   `gorm:"not null"`
	FileName  string `gorm:"size:255;not null"`
	FilePath  string `gorm:"size:1024;not null"`
	Size      int64
	CreatedAt time.Time
}
