package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lawdesk/internal/billing"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// TimeEntryHandler serves /api/billing/time-entries.
type TimeEntryHandler struct {
	DB      *gorm.DB
	Billing *billing.Service
}

func NewTimeEntryHandler(db *gorm.DB, svc *billing.Service) *TimeEntryHandler {
	return &TimeEntryHandler{DB: db, Billing: svc}
}

type timeEntryReq struct {
	MatterID    *uint            `json:"matter_id"`
	ClientID    *uint            `json:"client_id"`
	Description *string          `json:"description" binding:"omitempty,max=1024"`
	Hours       *decimal.Decimal `json:"hours"`
	Date        *string          `json:"date"`
	Billable    *bool            `json:"billable"`
}

func (r *timeEntryReq) input(c *gin.Context) (billing.TimeEntryInput, bool) {
	in := billing.TimeEntryInput{
		MatterID:    r.MatterID,
		ClientID:    r.ClientID,
		Description: r.Description,
		Hours:       r.Hours,
		Billable:    r.Billable,
	}
	if r.Date != nil && *r.Date != "" {
		d, err := util.ParseDate(*r.Date)
		if err != nil {
			invalidField(c, "date", "date", err.Error())
			return in, false
		}
		in.Date = &d
	}
	return in, true
}

// entryFilter applies the list/export query filters.
func (h *TimeEntryHandler) entryFilter(c *gin.Context) (*gorm.DB, bool) {
	base := h.DB.Model(&models.TimeEntry{}).Scopes(tenantScope(c))
	for _, col := range []string{"client_id", "matter_id", "user_id"} {
		id, ok := optionalUintQuery(c, col)
		if !ok {
			return nil, false
		}
		if id != nil {
			base = base.Where(col+" = ?", *id)
		}
	}
	switch c.Query("billed") {
	case "true":
		base = base.Where("invoice_id IS NOT NULL")
	case "false":
		base = base.Where("invoice_id IS NULL")
	}
	from, to, ok := dateRange(c)
	if !ok {
		return nil, false
	}
	if from != nil {
		base = base.Where("date >= ?", *from)
	}
	if to != nil {
		base = base.Where("date < ?", *to)
	}
	return base, true
}

func (h *TimeEntryHandler) List(c *gin.Context) {
	p := pagination(c)
	base, ok := h.entryFilter(c)
	if !ok {
		return
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count time entries failed")
		return
	}
	var list []models.TimeEntry
	if err := base.Order("date DESC, id DESC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list time entries failed")
		return
	}
	util.Success(c, p.response(list, total))
}

// Unbilled lists billable entries of ?client_id= not yet invoiced.
func (h *TimeEntryHandler) Unbilled(c *gin.Context) {
	clientID, ok := optionalUintQuery(c, "client_id")
	if !ok {
		return
	}
	if clientID == nil {
		invalidField(c, "client_id", "required", "is required")
		return
	}

	entries, err := h.Billing.UnbilledEntries(c.Request.Context(), middleware.TenantID(c), *clientID)
	if err != nil {
		serverError(c, err, "list unbilled entries failed")
		return
	}
	hours := decimal.Zero
	for _, e := range entries {
		hours = hours.Add(e.Hours)
	}
	util.Success(c, util.Response{"items": entries, "total_hours": hours})
}

func (h *TimeEntryHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req timeEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	in, ok := req.input(c)
	if !ok {
		return
	}

	e, err := h.Billing.CreateTimeEntry(c.Request.Context(), middleware.TenantID(c), user.ID, in)
	if err != nil {
		billingError(c, err)
		return
	}
	util.Created(c, util.Response{"time_entry": e})
}

func (h *TimeEntryHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req timeEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	in, ok := req.input(c)
	if !ok {
		return
	}

	e, err := h.Billing.UpdateTimeEntry(c.Request.Context(), middleware.TenantID(c), id, in)
	if err != nil {
		billingError(c, err)
		return
	}
	util.Success(c, util.Response{"time_entry": e})
}

func (h *TimeEntryHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Billing.DeleteTimeEntry(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		billingError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}
