package billing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"lawdesk/internal/models"
)

// nextInvoiceNumber reads the tenant's most recently created invoice and
// returns its number plus one, zero-padded to four digits. There is no lock:
// two concurrent callers can compute the same number, and the unique index
// on (tenant_id, invoice_number) rejects the second insert.
func nextInvoiceNumber(tx *gorm.DB, tenantID uint) (string, error) {
	var last models.Invoice
	err := tx.Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return formatInvoiceNumber(1), nil
	}
	if err != nil {
		return "", fmt.Errorf("read last invoice: %w", err)
	}

	digits := strings.TrimLeft(last.InvoiceNumber, "0")
	if digits == "" {
		return formatInvoiceNumber(1), nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		// non-numeric legacy number: fall back to the row count
		var count int64
		if err := tx.Model(&models.Invoice{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
			return "", fmt.Errorf("count invoices: %w", err)
		}
		n = int(count)
	}
	return formatInvoiceNumber(n + 1), nil
}

func formatInvoiceNumber(n int) string {
	return fmt.Sprintf("%04d", n)
}
