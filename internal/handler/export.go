package handler

import (
	"encoding/csv"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"lawdesk/internal/models"
)

var exportHeaders = []string{"Date", "Client", "Matter", "Description", "Hours", "Billable", "Invoice"}

// exportRows loads the filtered entries and flattens them for a sheet.
func (h *TimeEntryHandler) exportRows(c *gin.Context) ([][]string, bool) {
	base, ok := h.entryFilter(c)
	if !ok {
		return nil, false
	}
	var entries []models.TimeEntry
	if err := base.Order("date ASC, id ASC").Find(&entries).Error; err != nil {
		serverError(c, err, "load time entries failed")
		return nil, false
	}

	clientNames, matterTitles, invoiceNumbers := map[uint]string{}, map[uint]string{}, map[uint]string{}
	var clients []models.Client
	if err := h.DB.Scopes(tenantScope(c)).Select("id", "name").Find(&clients).Error; err != nil {
		serverError(c, err, "load clients failed")
		return nil, false
	}
	for _, cl := range clients {
		clientNames[cl.ID] = cl.Name
	}
	var matters []models.Matter
	if err := h.DB.Scopes(tenantScope(c)).Select("id", "title").Find(&matters).Error; err != nil {
		serverError(c, err, "load matters failed")
		return nil, false
	}
	for _, m := range matters {
		matterTitles[m.ID] = m.Title
	}
	var invoices []models.Invoice
	if err := h.DB.Scopes(tenantScope(c)).Select("id", "invoice_number").Find(&invoices).Error; err != nil {
		serverError(c, err, "load invoices failed")
		return nil, false
	}
	for _, inv := range invoices {
		invoiceNumbers[inv.ID] = inv.InvoiceNumber
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		var client, matter, invoice string
		if e.ClientID != nil {
			client = clientNames[*e.ClientID]
		}
		if e.MatterID != nil {
			matter = matterTitles[*e.MatterID]
		}
		if e.InvoiceID != nil {
			invoice = invoiceNumbers[*e.InvoiceID]
		}
		billable := "no"
		if e.Billable {
			billable = "yes"
		}
		rows = append(rows, []string{
			e.Date.Format("2006-01-02"),
			client,
			matter,
			e.Description,
			e.Hours.StringFixed(2),
			billable,
			invoice,
		})
	}
	return rows, true
}

// ExportCSV writes the filtered time entries as CSV.
func (h *TimeEntryHandler) ExportCSV(c *gin.Context) {
	rows, ok := h.exportRows(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"time_entries_%s.csv\"",
		time.Now().Format("20060102")))

	// UTF-8 BOM so spreadsheet apps pick the right encoding
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeaders)
	_ = w.WriteAll(rows)
	if err := w.Error(); err != nil {
		_ = c.Error(err)
	}
}

// ExportXLSX writes the filtered time entries as a workbook.
func (h *TimeEntryHandler) ExportXLSX(c *gin.Context) {
	rows, ok := h.exportRows(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Time entries"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		serverError(c, err, "create sheet failed")
		return
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	for i, hdr := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, hdr)
	}
	for r, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "C", 28)
	_ = f.SetColWidth(sheet, "D", "D", 48)
	_ = f.SetColWidth(sheet, "E", "G", 10)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"time_entries_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
