package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenant is a law firm. Every other row carries its ID.
type Tenant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Slug      string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Settings TenantSettings `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TenantSettings holds per-tenant SMTP, alert and calendar configuration.
// SMTPPasswordEnc is AES-GCM ciphertext, base64 encoded.
type TenantSettings struct {
	ID                uint                `gorm:"primaryKey" json:"-"`
	TenantID          uint                `gorm:"uniqueIndex;not null" json:"-"`
	SMTPHost          string              `gorm:"size:255" json:"smtp_host"`
	SMTPPort          int                 `json:"smtp_port"`
	SMTPUser          string              `gorm:"size:255" json:"smtp_user"`
	SMTPPasswordEnc   string              `gorm:"size:512" json:"-"`
	SMTPFrom          string              `gorm:"size:255" json:"smtp_from"`
	EmailAlerts       bool                `gorm:"not null;default:false" json:"email_alerts"`
	AlertDaysAhead    int                 `gorm:"not null;default:7" json:"alert_days_ahead"`
	AlertRecipients   string              `gorm:"size:1024" json:"alert_recipients"` // comma separated
	CalendarToken     *string             `gorm:"size:64;uniqueIndex" json:"-"`
	DefaultHourlyRate decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"default_hourly_rate"`
	CreatedAt         time.Time           `json:"-"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// SMTPConfigured reports whether every field needed to send mail is present.
func (s *TenantSettings) SMTPConfigured() bool {
	return s.SMTPHost != "" && s.SMTPPort > 0 && s.SMTPUser != "" &&
		s.SMTPPasswordEnc != "" && s.SMTPFrom != ""
}
