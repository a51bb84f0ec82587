package billing

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"lawdesk/internal/models"
)

// PDFDocument is everything printed on an invoice.
type PDFDocument struct {
	FirmName string
	Client   models.Client
	Invoice  *InvoiceView
}

// WritePDF renders the invoice as an A4 page to w.
func WritePDF(w io.Writer, doc PDFDocument) error {
	inv := doc.Invoice
	if inv == nil {
		return fmt.Errorf("%w: invoice is required", ErrInvalidInput)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(120, 10, tr(doc.FirmName))
	pdf.CellFormat(70, 10, "Invoice "+inv.InvoiceNumber, "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, "Issued: "+inv.IssueDate.Format("2006-01-02"), "", 1, "R", false, 0, "")
	pdf.CellFormat(190, 6, "Due: "+inv.DueDate.Format("2006-01-02"), "", 1, "R", false, 0, "")
	pdf.CellFormat(190, 6, "Status: "+inv.Status, "", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Bill To:")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{doc.Client.Name, doc.Client.Document, doc.Client.Address, doc.Client.Email} {
		if line == "" {
			continue
		}
		pdf.Cell(190, 6, tr(line))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(110, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Hours", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Rate", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, it := range inv.Items {
		desc := it.Description
		if len(desc) > 70 {
			desc = desc[:67] + "..."
		}
		pdf.CellFormat(110, 7, tr(desc), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, it.Quantity.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, it.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, it.TotalPrice.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	totals := []struct {
		label string
		value string
	}{
		{"Subtotal:", inv.Subtotal.StringFixed(2)},
		{"Tax:", inv.TaxAmount.StringFixed(2)},
		{"Total:", inv.TotalAmount.StringFixed(2)},
		{"Paid:", inv.AmountPaid.StringFixed(2)},
		{"Balance due:", inv.Balance.StringFixed(2)},
	}
	for i, t := range totals {
		style := ""
		if i == 2 || i == len(totals)-1 {
			style = "B"
		}
		pdf.SetFont("Arial", style, 11)
		pdf.Cell(160, 8, t.label)
		pdf.CellFormat(30, 8, t.value, "", 1, "R", false, 0, "")
	}

	if inv.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(190, 5, tr(inv.Notes), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice pdf: %w", err)
	}
	return nil
}
