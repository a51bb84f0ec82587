package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lawdesk/internal/billing"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// InvoiceHandler serves /api/billing/invoices on top of billing.Service.
type InvoiceHandler struct {
	DB      *gorm.DB
	Billing *billing.Service
}

func NewInvoiceHandler(db *gorm.DB, svc *billing.Service) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Billing: svc}
}

type invoiceListItem struct {
	models.Invoice
	ClientName string `json:"client_name"`
	IsOverdue  bool   `json:"is_overdue"`
}

// List pages invoices, filtered by ?status= and ?client_id=. ?status=overdue
// matches unpaid invoices past their due date.
func (h *InvoiceHandler) List(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.Invoice{}).Scopes(tenantScope(c))

	clientID, ok := optionalUintQuery(c, "client_id")
	if !ok {
		return
	}
	if clientID != nil {
		base = base.Where("client_id = ?", *clientID)
	}
	now := time.Now()
	switch s := c.Query("status"); s {
	case "":
	case models.InvoiceStatusOverdue:
		base = base.Where("(status = ? OR (status = ? AND due_date < ?))",
			models.InvoiceStatusOverdue, models.InvoiceStatusPending, now)
	default:
		base = base.Where("status = ?", s)
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	if from != nil {
		base = base.Where("issue_date >= ?", *from)
	}
	if to != nil {
		base = base.Where("issue_date < ?", *to)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count invoices failed")
		return
	}
	var list []models.Invoice
	if err := base.Preload("Client").Order("created_at DESC, id DESC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list invoices failed")
		return
	}

	items := make([]invoiceListItem, 0, len(list))
	for i := range list {
		items = append(items, invoiceListItem{
			Invoice:    list[i],
			ClientName: list[i].Client.Name,
			IsOverdue:  list[i].Overdue(now),
		})
	}
	util.Success(c, p.response(items, total))
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := h.Billing.GetInvoice(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		billingError(c, err)
		return
	}
	util.Success(c, util.Response{"invoice": view})
}

type createInvoiceReq struct {
	ClientID     uint             `json:"client_id" binding:"required"`
	TimeEntryIDs []uint           `json:"time_entry_ids" binding:"required,min=1,dive,required"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	IssueDate    string           `json:"issue_date"`
	DueDate      string           `json:"due_date"`
	Notes        string           `json:"notes" binding:"max=4000"`
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req createInvoiceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	in := billing.CreateInvoiceInput{
		TenantID:     middleware.TenantID(c),
		ClientID:     req.ClientID,
		TimeEntryIDs: req.TimeEntryIDs,
		HourlyRate:   req.HourlyRate,
		Notes:        req.Notes,
	}
	if req.TaxRate != nil {
		in.TaxRate = *req.TaxRate
	}
	if req.IssueDate != "" {
		d, err := util.ParseDate(req.IssueDate)
		if err != nil {
			invalidField(c, "issue_date", "date", err.Error())
			return
		}
		in.IssueDate = &d
	}
	if req.DueDate != "" {
		d, err := util.ParseDate(req.DueDate)
		if err != nil {
			invalidField(c, "due_date", "date", err.Error())
			return
		}
		in.DueDate = &d
	}

	inv, err := h.Billing.CreateInvoice(c.Request.Context(), in)
	if err != nil {
		billingError(c, err)
		return
	}
	util.Created(c, util.Response{"invoice": inv})
}

type invoiceStatusReq struct {
	Status        string `json:"status" binding:"required,oneof=draft pending paid overdue cancelled"`
	PaymentMethod string `json:"payment_method" binding:"max=32"`
}

// UpdateStatus handles PATCH /invoices/:id.
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req invoiceStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	res, err := h.Billing.UpdateStatus(c.Request.Context(), middleware.TenantID(c), id, req.Status, req.PaymentMethod)
	if err != nil {
		billingError(c, err)
		return
	}
	util.Success(c, util.Response{"invoice": res.Invoice, "transaction": res.Transaction})
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Billing.DeleteInvoice(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		billingError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}

type paymentReq struct {
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod string           `json:"payment_method" binding:"required,max=32"`
	PaymentDate   string           `json:"payment_date"`
	Notes         string           `json:"notes" binding:"max=1024"`
}

func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req paymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	if req.Amount == nil {
		invalidField(c, "amount", "required", "is required")
		return
	}
	if err := util.ValidateAmount(*req.Amount); err != nil {
		invalidField(c, "amount", "range", err.Error())
		return
	}

	in := billing.PaymentInput{
		TenantID:      middleware.TenantID(c),
		InvoiceID:     id,
		Amount:        *req.Amount,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	if req.PaymentDate != "" {
		d, err := util.ParseTimestamp(req.PaymentDate)
		if err != nil {
			invalidField(c, "payment_date", "datetime", err.Error())
			return
		}
		in.PaymentDate = &d
	}

	res, err := h.Billing.RecordPayment(c.Request.Context(), in)
	if err != nil {
		billingError(c, err)
		return
	}
	util.Created(c, util.Response{
		"payment":     res.Payment,
		"transaction": res.Transaction,
		"invoice":     res.Invoice,
		"total_paid":  res.TotalPaid,
	})
}

func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ok, err := belongs(h.DB, &models.Invoice{}, middleware.TenantID(c), id)
	if err != nil {
		serverError(c, err, "check invoice failed")
		return
	}
	if !ok {
		billingError(c, billing.ErrInvoiceNotFound)
		return
	}

	var list []models.Payment
	if err := h.DB.Where("invoice_id = ?", id).Order("payment_date ASC, id ASC").Find(&list).Error; err != nil {
		serverError(c, err, "list payments failed")
		return
	}
	sum := decimal.Zero
	for _, p := range list {
		sum = sum.Add(p.Amount)
	}
	util.Success(c, util.Response{"items": list, "total_paid": sum})
}

// PDF renders the invoice for download.
func (h *InvoiceHandler) PDF(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tenantID := middleware.TenantID(c)
	view, err := h.Billing.GetInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		billingError(c, err)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, view.ClientID).Error; err != nil {
		lookupError(c, err, "client")
		return
	}
	var tenant models.Tenant
	if err := h.DB.First(&tenant, tenantID).Error; err != nil {
		lookupError(c, err, "tenant")
		return
	}

	var buf bytes.Buffer
	if err := billing.WritePDF(&buf, billing.PDFDocument{FirmName: tenant.Name, Client: client, Invoice: view}); err != nil {
		serverError(c, err, "render pdf failed")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"invoice_%s.pdf\"", view.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
