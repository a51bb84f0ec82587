// Package billing turns time entries into invoices and reconciles payments
// against them. Every multi-row write runs inside one database transaction.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lawdesk/internal/models"
)

// Service implements the invoice workflow on top of gorm.
type Service struct {
	DB             *gorm.DB
	DefaultRate    decimal.Decimal
	DefaultDueDays int

	now func() time.Time
}

// NewService builds a Service. defaultRate applies when neither the request nor
// the tenant settings name an hourly rate.
func NewService(db *gorm.DB, defaultRate decimal.Decimal, defaultDueDays int) *Service {
	if defaultDueDays <= 0 {
		defaultDueDays = 14
	}
	return &Service{
		DB:             db,
		DefaultRate:    defaultRate,
		DefaultDueDays: defaultDueDays,
		now:            time.Now,
	}
}

// CreateInvoiceInput describes one invoice built from selected time entries.
type CreateInvoiceInput struct {
	TenantID     uint
	ClientID     uint
	TimeEntryIDs []uint
	HourlyRate   *decimal.Decimal
	TaxRate      decimal.Decimal
	IssueDate    *time.Time
	DueDate      *time.Time
	Notes        string
}

func (in *CreateInvoiceInput) validate() error {
	if in.ClientID == 0 {
		return fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}
	if len(in.TimeEntryIDs) == 0 {
		return fmt.Errorf("%w: at least one time entry is required", ErrInvalidInput)
	}
	seen := make(map[uint]struct{}, len(in.TimeEntryIDs))
	for _, id := range in.TimeEntryIDs {
		if id == 0 {
			return fmt.Errorf("%w: time entry id must be positive", ErrInvalidInput)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: time entry %d listed twice", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	if in.HourlyRate != nil && !in.HourlyRate.IsPositive() {
		return fmt.Errorf("%w: hourly_rate must be positive", ErrInvalidInput)
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: tax_rate must be between 0 and 1", ErrInvalidInput)
	}
	return nil
}

// CreateInvoice bills the given time entries to the client. Either every entry
// is billed onto one new pending invoice, or nothing is written.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*models.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	issue := s.now()
	if in.IssueDate != nil {
		issue = *in.IssueDate
	}
	due := issue.AddDate(0, 0, s.DefaultDueDays)
	if in.DueDate != nil {
		due = *in.DueDate
	}
	if due.Before(issue) {
		return nil, fmt.Errorf("%w: due_date is before issue date", ErrInvalidInput)
	}

	var invoice models.Invoice
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.Where("id = ? AND tenant_id = ?", in.ClientID, in.TenantID).First(&client).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("load client: %w", err)
		}

		var entries []models.TimeEntry
		if err := tx.Where("tenant_id = ? AND client_id = ? AND invoice_id IS NULL AND billable = ? AND id IN ?",
			in.TenantID, in.ClientID, true, in.TimeEntryIDs).
			Order("date ASC, id ASC").
			Find(&entries).Error; err != nil {
			return fmt.Errorf("load time entries: %w", err)
		}
		if len(entries) != len(in.TimeEntryIDs) {
			return ErrEntriesUnavailable
		}

		rate, err := s.hourlyRate(tx, in.TenantID, in.HourlyRate)
		if err != nil {
			return err
		}

		number, err := nextInvoiceNumber(tx, in.TenantID)
		if err != nil {
			return err
		}

		items := make([]models.InvoiceItem, 0, len(entries))
		subtotal := decimal.Zero
		for i := range entries {
			e := &entries[i]
			line := e.Hours.Mul(rate).Round(2)
			subtotal = subtotal.Add(line)
			items = append(items, models.InvoiceItem{
				TimeEntryID: &e.ID,
				Description: e.Description,
				Quantity:    e.Hours,
				UnitPrice:   rate,
				TotalPrice:  line,
			})
		}
		tax := subtotal.Mul(in.TaxRate).Round(2)

		invoice = models.Invoice{
			TenantID:      in.TenantID,
			ClientID:      in.ClientID,
			InvoiceNumber: number,
			IssueDate:     issue,
			DueDate:       due,
			Subtotal:      subtotal,
			TaxAmount:     tax,
			TotalAmount:   subtotal.Add(tax),
			Status:        models.InvoiceStatusPending,
			Notes:         in.Notes,
		}
		if err := tx.Omit("Items", "Payments", "Client").Create(&invoice).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrNumberTaken
			}
			return fmt.Errorf("create invoice: %w", err)
		}

		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("create invoice items: %w", err)
		}
		invoice.Items = items

		// the IS NULL guard catches an entry billed by a concurrent request
		res := tx.Model(&models.TimeEntry{}).
			Where("tenant_id = ? AND id IN ? AND invoice_id IS NULL AND billable = ?", in.TenantID, in.TimeEntryIDs, true).
			Update("invoice_id", invoice.ID)
		if res.Error != nil {
			return fmt.Errorf("link time entries: %w", res.Error)
		}
		if res.RowsAffected != int64(len(in.TimeEntryIDs)) {
			return ErrEntriesUnavailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) hourlyRate(tx *gorm.DB, tenantID uint, requested *decimal.Decimal) (decimal.Decimal, error) {
	if requested != nil {
		return *requested, nil
	}

	var settings models.TenantSettings
	err := tx.Where("tenant_id = ?", tenantID).First(&settings).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, fmt.Errorf("load tenant settings: %w", err)
	}
	if settings.DefaultHourlyRate.Valid && settings.DefaultHourlyRate.Decimal.IsPositive() {
		return settings.DefaultHourlyRate.Decimal, nil
	}
	return s.DefaultRate, nil
}

// PaymentInput describes money received against an invoice.
type PaymentInput struct {
	TenantID      uint
	InvoiceID     uint
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentDate   *time.Time
	Notes         string
}

// PaymentResult is what RecordPayment wrote.
type PaymentResult struct {
	Payment     models.Payment
	Transaction models.Transaction
	Invoice     models.Invoice
	TotalPaid   decimal.Decimal
}

// RecordPayment appends a payment, its revenue ledger entry, and marks the
// invoice paid once payments cover the total. Overpayment is accepted, and a
// paid invoice never reverts here.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if in.PaymentMethod == "" {
		return nil, fmt.Errorf("%w: payment_method is required", ErrInvalidInput)
	}
	paidAt := s.now()
	if in.PaymentDate != nil {
		paidAt = *in.PaymentDate
	}

	var out PaymentResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := loadInvoice(tx, in.TenantID, in.InvoiceID)
		if err != nil {
			return err
		}

		prior, err := paidSoFar(tx, invoice.ID)
		if err != nil {
			return err
		}

		payment := models.Payment{
			TenantID:      in.TenantID,
			InvoiceID:     invoice.ID,
			Amount:        in.Amount,
			PaymentMethod: in.PaymentMethod,
			PaymentDate:   paidAt,
			Notes:         in.Notes,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		txn := models.Transaction{
			TenantID:    in.TenantID,
			Type:        models.TransactionRevenue,
			Category:    models.CategoryInvoiceReceipts,
			Description: fmt.Sprintf("Pagamento da fatura %s", invoice.InvoiceNumber),
			Amount:      in.Amount,
			Date:        paidAt,
			Status:      models.TransactionStatusCompleted,
			InvoiceID:   &invoice.ID,
			PaymentID:   &payment.ID,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return fmt.Errorf("create ledger transaction: %w", err)
		}

		if err := tx.Model(&payment).Update("transaction_id", txn.ID).Error; err != nil {
			return fmt.Errorf("link payment to transaction: %w", err)
		}
		payment.TransactionID = &txn.ID

		total := prior.Add(in.Amount)
		if total.GreaterThanOrEqual(invoice.TotalAmount) && invoice.Status != models.InvoiceStatusPaid {
			if err := tx.Model(invoice).Updates(map[string]any{
				"status":         models.InvoiceStatusPaid,
				"paid_at":        paidAt,
				"payment_method": in.PaymentMethod,
			}).Error; err != nil {
				return fmt.Errorf("mark invoice paid: %w", err)
			}
			invoice.Status = models.InvoiceStatusPaid
			invoice.PaidAt = &paidAt
			invoice.PaymentMethod = in.PaymentMethod
		}

		out = PaymentResult{Payment: payment, Transaction: txn, Invoice: *invoice, TotalPaid: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var validStatuses = map[string]bool{
	models.InvoiceStatusDraft:     true,
	models.InvoiceStatusPending:   true,
	models.InvoiceStatusPaid:      true,
	models.InvoiceStatusOverdue:   true,
	models.InvoiceStatusCancelled: true,
}

// StatusResult is what UpdateStatus wrote. Transaction is nil when no ledger
// entry was needed.
type StatusResult struct {
	Invoice     models.Invoice
	Transaction *models.Transaction
}

// UpdateStatus sets the invoice status directly. Moving to paid records a
// revenue transaction for whatever payments have not already covered, so a
// partially paid invoice is not counted twice.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, invoiceID uint, status, method string) (*StatusResult, error) {
	if !validStatuses[status] {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	var out StatusResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := loadInvoice(tx, tenantID, invoiceID)
		if err != nil {
			return err
		}

		updates := map[string]any{"status": status}
		switch {
		case status == models.InvoiceStatusPaid && invoice.Status != models.InvoiceStatusPaid:
			now := s.now()
			updates["paid_at"] = now
			if method != "" {
				updates["payment_method"] = method
			}

			paid, err := paidSoFar(tx, invoice.ID)
			if err != nil {
				return err
			}
			outstanding := invoice.TotalAmount.Sub(paid)
			if outstanding.IsPositive() {
				txn := models.Transaction{
					TenantID:    tenantID,
					Type:        models.TransactionRevenue,
					Category:    models.CategoryFees,
					Description: fmt.Sprintf("Fatura %s quitada", invoice.InvoiceNumber),
					Amount:      outstanding,
					Date:        now,
					Status:      models.TransactionStatusCompleted,
					InvoiceID:   &invoice.ID,
				}
				if err := tx.Create(&txn).Error; err != nil {
					return fmt.Errorf("create ledger transaction: %w", err)
				}
				out.Transaction = &txn
			}
		case status != models.InvoiceStatusPaid && invoice.Status == models.InvoiceStatusPaid:
			updates["paid_at"] = nil
		}

		if err := tx.Model(invoice).Updates(updates).Error; err != nil {
			return fmt.Errorf("update invoice status: %w", err)
		}

		reloaded, err := loadInvoice(tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		out.Invoice = *reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteInvoice removes an invoice without payments. Its time entries return
// to unbilled and ledger rows pointing at it are detached.
func (s *Service) DeleteInvoice(ctx context.Context, tenantID, invoiceID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := loadInvoice(tx, tenantID, invoiceID)
		if err != nil {
			return err
		}

		var payments int64
		if err := tx.Model(&models.Payment{}).Where("invoice_id = ?", invoice.ID).Count(&payments).Error; err != nil {
			return fmt.Errorf("count payments: %w", err)
		}
		if payments > 0 {
			return ErrInvoiceHasPayments
		}

		if err := tx.Model(&models.TimeEntry{}).
			Where("tenant_id = ? AND invoice_id = ?", tenantID, invoice.ID).
			Update("invoice_id", nil).Error; err != nil {
			return fmt.Errorf("unlink time entries: %w", err)
		}
		if err := tx.Model(&models.Transaction{}).
			Where("tenant_id = ? AND invoice_id = ?", tenantID, invoice.ID).
			Update("invoice_id", nil).Error; err != nil {
			return fmt.Errorf("detach transactions: %w", err)
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return fmt.Errorf("delete invoice items: %w", err)
		}
		if err := tx.Delete(invoice).Error; err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return nil
	})
}

// InvoiceView is an invoice with its items, payments and derived balances.
type InvoiceView struct {
	models.Invoice
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Balance    decimal.Decimal `json:"balance"`
	IsOverdue  bool            `json:"is_overdue"`
}

// GetInvoice loads one invoice with items and payments.
func (s *Service) GetInvoice(ctx context.Context, tenantID, invoiceID uint) (*InvoiceView, error) {
	var invoice models.Invoice
	err := s.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		Where("id = ? AND tenant_id = ?", invoiceID, tenantID).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}

	paid := decimal.Zero
	for _, p := range invoice.Payments {
		paid = paid.Add(p.Amount)
	}
	return &InvoiceView{
		Invoice:    invoice,
		AmountPaid: paid,
		Balance:    invoice.TotalAmount.Sub(paid),
		IsOverdue:  invoice.Overdue(s.now()),
	}, nil
}

// UnbilledEntries lists billable entries of the client not yet on an invoice.
func (s *Service) UnbilledEntries(ctx context.Context, tenantID, clientID uint) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ? AND billable = ? AND invoice_id IS NULL", tenantID, clientID, true).
		Order("date ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list unbilled entries: %w", err)
	}
	return entries, nil
}

func loadInvoice(tx *gorm.DB, tenantID, invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.Where("id = ? AND tenant_id = ?", invoiceID, tenantID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	return &invoice, nil
}

func paidSoFar(tx *gorm.DB, invoiceID uint) (decimal.Decimal, error) {
	var payments []models.Payment
	if err := tx.Select("amount").Where("invoice_id = ?", invoiceID).Find(&payments).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}
