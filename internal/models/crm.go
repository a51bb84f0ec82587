package models

import "time"

// Client lead stages.
const (
	ClientStatusLead     = "lead"
	ClientStatusProspect = "prospect"
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
)

type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Type      string    `gorm:"size:16;not null" json:"type"` // individual / company
	Document  string    `gorm:"size:32;index" json:"document"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Address   string    `gorm:"size:512" json:"address"`
	Status    string    `gorm:"size:16;index;not null" json:"status"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"index;not null" json:"tenant_id"`
	ClientID  uint      `gorm:"index;not null" json:"client_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Role      string    `gorm:"size:64" json:"role"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:32" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client Client `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Interaction is a logged touchpoint with a client: call, email, meeting or note.
type Interaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TenantID   uint      `gorm:"index;not null" json:"tenant_id"`
	ClientID   uint      `gorm:"index;not null" json:"client_id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	Kind       string    `gorm:"size:16;not null" json:"kind"`
	Summary    string    `gorm:"type:text" json:"summary"`
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`

	Client Client `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
