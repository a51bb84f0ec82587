package models

import "time"

const (
	MatterStatusOpen     = "open"
	MatterStatusPending  = "pending"
	MatterStatusClosed   = "closed"
	MatterStatusArchived = "archived"
)

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// Matter is a legal case tracked for a client.
type Matter struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TenantID      uint       `gorm:"index;not null" json:"tenant_id"`
	ClientID      uint       `gorm:"index;not null" json:"client_id"`
	ResponsibleID *uint      `gorm:"index" json:"responsible_id,omitempty"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Number        string     `gorm:"size:64;index" json:"number"` // court docket number
	Court         string     `gorm:"size:255" json:"court"`
	Area          string     `gorm:"size:64" json:"area"`
	Status        string     `gorm:"size:16;index;not null" json:"status"`
	Description   string     `gorm:"type:text" json:"description"`
	OpenedAt      time.Time  `json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Client Client `json:"-"`
}

type Task struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TenantID   uint       `gorm:"index;not null" json:"tenant_id"`
	MatterID   uint       `gorm:"index;not null" json:"matter_id"`
	AssigneeID *uint      `gorm:"index" json:"assignee_id,omitempty"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	Status     string     `gorm:"size:16;index;not null" json:"status"`
	Priority   string     `gorm:"size:16" json:"priority"`
	DueDate    *time.Time `gorm:"index" json:"due_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Matter Matter `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Deadline is a procedural due date on a matter.
type Deadline struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"index;not null" json:"tenant_id"`
	MatterID  uint      `gorm:"index;not null" json:"matter_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	DueDate   time.Time `gorm:"index;not null" json:"due_date"`
	Completed bool      `gorm:"index;not null" json:"completed"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Matter Matter `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Hearing struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TenantID        uint      `gorm:"index;not null" json:"tenant_id"`
	MatterID        uint      `gorm:"index;not null" json:"matter_id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Location        string    `gorm:"size:255" json:"location"`
	ScheduledAt     time.Time `gorm:"index;not null" json:"scheduled_at"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	Notes           string    `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Matter Matter `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Activity is one line of a matter's timeline.
type Activity struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"index;not null" json:"tenant_id"`
	MatterID    uint      `gorm:"index;not null" json:"matter_id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	Kind        string    `gorm:"size:32;not null" json:"kind"`
	Description string    `gorm:"type:text" json:"description"`
	OccurredAt  time.Time `gorm:"index;not null" json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`

	Matter Matter `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
