package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionRevenue = "revenue"
	TransactionExpense = "expense"
)

const (
	TransactionStatusCompleted = "completed"
	TransactionStatusPending   = "pending"
)

// Ledger categories written by the billing workflow.
const (
	CategoryInvoiceReceipts = "Receita - Faturas"
	CategoryFees            = "Honorários"
)

// Transaction is an accounting ledger entry. Amount is always positive; Type
// carries the direction.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	TenantID    uint            `gorm:"index;not null" json:"tenant_id"`
	Type        string          `gorm:"size:16;index;not null" json:"type"`
	Category    string          `gorm:"size:64;index;not null" json:"category"`
	Description string          `gorm:"size:1024" json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	Status      string          `gorm:"size:16;not null" json:"status"`
	InvoiceID   *uint           `gorm:"index" json:"invoice_id,omitempty"`
	PaymentID   *uint           `gorm:"index" json:"payment_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
