package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusPending   = "pending"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// TimeEntry is a unit of recorded work. Once InvoiceID is set the entry is
// billed and no longer editable.
type TimeEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	TenantID    uint            `gorm:"index;not null" json:"tenant_id"`
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	MatterID    *uint           `gorm:"index" json:"matter_id,omitempty"`
	ClientID    *uint           `gorm:"index" json:"client_id,omitempty"`
	Description string          `gorm:"size:1024;not null" json:"description"`
	Hours       decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"hours"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	Billable    bool            `gorm:"not null" json:"billable"`
	InvoiceID   *uint           `gorm:"index" json:"invoice_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Billed reports whether the entry is already on an invoice.
func (e *TimeEntry) Billed() bool {
	return e.InvoiceID != nil
}

type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TenantID      uint            `gorm:"index;uniqueIndex:idx_invoice_tenant_number;not null" json:"tenant_id"`
	ClientID      uint            `gorm:"index;not null" json:"client_id"`
	InvoiceNumber string          `gorm:"size:16;uniqueIndex:idx_invoice_tenant_number;not null" json:"invoice_number"`
	IssueDate     time.Time       `gorm:"not null" json:"issue_date"`
	DueDate       time.Time       `gorm:"index;not null" json:"due_date"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	Status        string          `gorm:"size:16;index;not null" json:"status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	PaymentMethod string          `gorm:"size:32" json:"payment_method,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Client   Client        `json:"-"`
	Items    []InvoiceItem `json:"items,omitempty"`
	Payments []Payment     `json:"payments,omitempty"`
}

// Overdue reports whether an unpaid invoice is past its due date at now.
// The stored status is not changed; this is a read-side view.
func (i *Invoice) Overdue(now time.Time) bool {
	if i.Status != InvoiceStatusPending && i.Status != InvoiceStatusOverdue {
		return false
	}
	return now.After(i.DueDate)
}

// InvoiceItem is a line copied from one billed time entry.
type InvoiceItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	InvoiceID   uint            `gorm:"index;not null" json:"invoice_id"`
	TimeEntryID *uint           `gorm:"index" json:"time_entry_id,omitempty"`
	Description string          `gorm:"size:1024;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Payment is money received against an invoice. Payments are never updated.
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TenantID      uint            `gorm:"index;not null" json:"tenant_id"`
	InvoiceID     uint            `gorm:"index;not null" json:"invoice_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"size:32;not null" json:"payment_method"`
	PaymentDate   time.Time       `gorm:"index;not null" json:"payment_date"`
	Notes         string          `gorm:"size:1024" json:"notes,omitempty"`
	TransactionID *uint           `gorm:"index" json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
