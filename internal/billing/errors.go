package billing

import "errors"

var (
	// ErrInvalidInput is returned when a request fails a shape or range rule.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClientNotFound is returned when the client is missing or belongs to another tenant.
	ErrClientNotFound = errors.New("client not found")

	// ErrEntriesUnavailable is returned when any requested time entry is missing,
	// belongs to another tenant or client, or is already billed.
	ErrEntriesUnavailable = errors.New("time entries missing, foreign or already billed")

	// ErrTimeEntryNotFound is returned when the entry is missing or belongs to another tenant.
	ErrTimeEntryNotFound = errors.New("time entry not found")

	// ErrEntryBilled is returned when a billed time entry is edited or deleted.
	ErrEntryBilled = errors.New("time entry is already billed")

	// ErrInvoiceNotFound is returned when the invoice is missing or belongs to another tenant.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvoiceHasPayments is returned when deleting an invoice that has payments.
	ErrInvoiceHasPayments = errors.New("invoice has payments and cannot be deleted")

	// ErrNumberTaken is returned when a concurrent request took the same invoice number.
	ErrNumberTaken = errors.New("invoice number already taken, retry")
)
