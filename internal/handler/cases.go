package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// CaseHandler serves matters and everything hanging off them.
type CaseHandler struct {
	DB *gorm.DB
}

func NewCaseHandler(db *gorm.DB) *CaseHandler {
	return &CaseHandler{DB: db}
}

// addActivity appends a line to a matter's timeline.
func addActivity(tx *gorm.DB, tenantID, matterID, userID uint, kind, desc string) error {
	return tx.Create(&models.Activity{
		TenantID:    tenantID,
		MatterID:    matterID,
		UserID:      userID,
		Kind:        kind,
		Description: desc,
		OccurredAt:  time.Now(),
	}).Error
}

func invalidField(c *gin.Context, field, rule, msg string) {
	util.ValidationError(c, "invalid request", []util.Issue{{Field: field, Rule: rule, Message: msg}})
}

// parseOptionalTime parses s into dst when s is non-empty.
func parseOptionalTime(c *gin.Context, field string, s *string, dst **time.Time) bool {
	if s == nil {
		return true
	}
	if strings.TrimSpace(*s) == "" {
		*dst = nil
		return true
	}
	t, err := util.ParseTimestamp(*s)
	if err != nil {
		invalidField(c, field, "datetime", err.Error())
		return false
	}
	*dst = &t
	return true
}

// ---------- matters ----------

type matterReq struct {
	ClientID      *uint   `json:"client_id"`
	ResponsibleID *uint   `json:"responsible_id"`
	Title         *string `json:"title" binding:"omitempty,min=1,max=255"`
	Number        *string `json:"number" binding:"omitempty,max=64"`
	Court         *string `json:"court" binding:"omitempty,max=255"`
	Area          *string `json:"area" binding:"omitempty,max=64"`
	Status        *string `json:"status" binding:"omitempty,oneof=open pending closed archived"`
	Description   *string `json:"description"`
	OpenedAt      *string `json:"opened_at"`
}

// applyMatter copies the request onto m after checking tenant references.
func (h *CaseHandler) applyMatter(c *gin.Context, req *matterReq, m *models.Matter) bool {
	tenantID := middleware.TenantID(c)
	if req.ClientID != nil {
		ok, err := belongs(h.DB, &models.Client{}, tenantID, *req.ClientID)
		if err != nil {
			serverError(c, err, "check client failed")
			return false
		}
		if !ok {
			invalidField(c, "client_id", "exists", "client not found")
			return false
		}
		m.ClientID = *req.ClientID
	}
	if req.ResponsibleID != nil {
		if *req.ResponsibleID == 0 {
			m.ResponsibleID = nil
		} else {
			ok, err := belongs(h.DB, &models.User{}, tenantID, *req.ResponsibleID)
			if err != nil {
				serverError(c, err, "check user failed")
				return false
			}
			if !ok {
				invalidField(c, "responsible_id", "exists", "user not found")
				return false
			}
			id := *req.ResponsibleID
			m.ResponsibleID = &id
		}
	}
	setString(&m.Title, req.Title)
	setString(&m.Number, req.Number)
	setString(&m.Court, req.Court)
	setString(&m.Area, req.Area)
	setString(&m.Description, req.Description)
	if req.OpenedAt != nil && *req.OpenedAt != "" {
		t, err := util.ParseTimestamp(*req.OpenedAt)
		if err != nil {
			invalidField(c, "opened_at", "datetime", err.Error())
			return false
		}
		m.OpenedAt = t
	}
	if req.Status != nil && *req.Status != m.Status {
		m.Status = *req.Status
		switch m.Status {
		case models.MatterStatusClosed, models.MatterStatusArchived:
			if m.ClosedAt == nil {
				now := time.Now()
				m.ClosedAt = &now
			}
		default:
			m.ClosedAt = nil
		}
	}
	return true
}

func (h *CaseHandler) ListMatters(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.Matter{}).Scopes(tenantScope(c))

	clientID, ok := optionalUintQuery(c, "client_id")
	if !ok {
		return
	}
	if clientID != nil {
		base = base.Where("client_id = ?", *clientID)
	}
	respID, ok := optionalUintQuery(c, "responsible_id")
	if !ok {
		return
	}
	if respID != nil {
		base = base.Where("responsible_id = ?", *respID)
	}
	if s := c.Query("status"); s != "" {
		base = base.Where("status = ?", s)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := likePattern(q)
		base = base.Where("(title LIKE ? ESCAPE '\\' OR number LIKE ? ESCAPE '\\')", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count matters failed")
		return
	}
	var list []models.Matter
	if err := base.Order("opened_at DESC, id DESC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list matters failed")
		return
	}
	util.Success(c, p.response(list, total))
}

// GetMatter returns the matter with its open work and recent timeline.
func (h *CaseHandler) GetMatter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var m models.Matter
	if err := h.DB.Scopes(tenantScope(c)).First(&m, id).Error; err != nil {
		lookupError(c, err, "matter")
		return
	}

	var (
		tasks      []models.Task
		deadlines  []models.Deadline
		hearings   []models.Hearing
		activities []models.Activity
	)
	if err := h.DB.Where("matter_id = ?", m.ID).Order("due_date ASC, id ASC").Find(&tasks).Error; err != nil {
		serverError(c, err, "list tasks failed")
		return
	}
	if err := h.DB.Where("matter_id = ? AND completed = ?", m.ID, false).Order("due_date ASC").Find(&deadlines).Error; err != nil {
		serverError(c, err, "list deadlines failed")
		return
	}
	if err := h.DB.Where("matter_id = ?", m.ID).Order("scheduled_at ASC").Find(&hearings).Error; err != nil {
		serverError(c, err, "list hearings failed")
		return
	}
	if err := h.DB.Where("matter_id = ?", m.ID).Order("occurred_at DESC, id DESC").Limit(20).Find(&activities).Error; err != nil {
		serverError(c, err, "list activities failed")
		return
	}

	util.Success(c, util.Response{
		"matter":     m,
		"tasks":      tasks,
		"deadlines":  deadlines,
		"hearings":   hearings,
		"activities": activities,
	})
}

func (h *CaseHandler) CreateMatter(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req matterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	if req.ClientID == nil {
		invalidField(c, "client_id", "required", "is required")
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		invalidField(c, "title", "required", "is required")
		return
	}

	m := models.Matter{
		TenantID: middleware.TenantID(c),
		Status:   models.MatterStatusOpen,
		OpenedAt: time.Now(),
	}
	if !h.applyMatter(c, &req, &m) {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Client").Create(&m).Error; err != nil {
			return err
		}
		return addActivity(tx, m.TenantID, m.ID, user.ID, "matter_opened", "Matter opened: "+m.Title)
	})
	if err != nil {
		serverError(c, err, "create matter failed")
		return
	}
	util.Created(c, util.Response{"matter": m})
}

func (h *CaseHandler) UpdateMatter(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req matterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	var m models.Matter
	if err := h.DB.Scopes(tenantScope(c)).First(&m, id).Error; err != nil {
		lookupError(c, err, "matter")
		return
	}
	before := m.Status
	if !h.applyMatter(c, &req, &m) {
		return
	}
	if m.Title == "" {
		invalidField(c, "title", "required", "is required")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Client").Save(&m).Error; err != nil {
			return err
		}
		if before != m.Status {
			return addActivity(tx, m.TenantID, m.ID, user.ID, "status_changed",
				fmt.Sprintf("Status changed from %s to %s", before, m.Status))
		}
		return nil
	})
	if err != nil {
		serverError(c, err, "update matter failed")
		return
	}
	util.Success(c, util.Response{"matter": m})
}

// DeleteMatter refuses while time entries point at the matter. Documents are
// kept and detached.
func (h *CaseHandler) DeleteMatter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var m models.Matter
	if err := h.DB.Scopes(tenantScope(c)).First(&m, id).Error; err != nil {
		lookupError(c, err, "matter")
		return
	}

	var entries int64
	if err := h.DB.Model(&models.TimeEntry{}).Where("matter_id = ?", m.ID).Count(&entries).Error; err != nil {
		serverError(c, err, "count time entries failed")
		return
	}
	if entries > 0 {
		businessError(c, "matter has time entries and cannot be deleted")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Document{}).Where("matter_id = ?", m.ID).Update("matter_id", nil).Error; err != nil {
			return err
		}
		for _, model := range []any{&models.Task{}, &models.Deadline{}, &models.Hearing{}, &models.Activity{}} {
			if err := tx.Where("matter_id = ?", m.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&m).Error
	})
	if err != nil {
		serverError(c, err, "delete matter failed")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}

// matterForRequest loads :id as a matter of the request tenant.
func (h *CaseHandler) matterForRequest(c *gin.Context) (*models.Matter, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	var m models.Matter
	if err := h.DB.Scopes(tenantScope(c)).First(&m, id).Error; err != nil {
		lookupError(c, err, "matter")
		return nil, false
	}
	return &m, true
}

// matterRef validates a matter_id from a request body.
func (h *CaseHandler) matterRef(c *gin.Context, id *uint) (*models.Matter, bool) {
	if id == nil || *id == 0 {
		invalidField(c, "matter_id", "required", "is required")
		return nil, false
	}
	var m models.Matter
	if err := h.DB.Scopes(tenantScope(c)).First(&m, *id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			invalidField(c, "matter_id", "exists", "matter not found")
		} else {
			serverError(c, err, "load matter failed")
		}
		return nil, false
	}
	return &m, true
}

// ---------- tasks ----------

type taskReq struct {
	MatterID   *uint   `json:"matter_id"`
	AssigneeID *uint   `json:"assignee_id"`
	Title      *string `json:"title" binding:"omitempty,min=1,max=255"`
	Status     *string `json:"status" binding:"omitempty,oneof=todo in_progress done"`
	Priority   *string `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	DueDate    *string `json:"due_date"`
}

func (h *CaseHandler) applyTask(c *gin.Context, req *taskReq, t *models.Task) bool {
	if req.AssigneeID != nil {
		if *req.AssigneeID == 0 {
			t.AssigneeID = nil
		} else {
			ok, err := belongs(h.DB, &models.User{}, t.TenantID, *req.AssigneeID)
			if err != nil {
				serverError(c, err, "check user failed")
				return false
			}
			if !ok {
				invalidField(c, "assignee_id", "exists", "user not found")
				return false
			}
			id := *req.AssigneeID
			t.AssigneeID = &id
		}
	}
	setString(&t.Title, req.Title)
	setString(&t.Status, req.Status)
	setString(&t.Priority, req.Priority)
	return parseOptionalTime(c, "due_date", req.DueDate, &t.DueDate)
}

func (h *CaseHandler) ListTasks(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.Task{}).Scopes(tenantScope(c))

	matterID, ok := optionalUintQuery(c, "matter_id")
	if !ok {
		return
	}
	if matterID != nil {
		base = base.Where("matter_id = ?", *matterID)
	}
	assignee, ok := optionalUintQuery(c, "assignee_id")
	if !ok {
		return
	}
	if assignee != nil {
		base = base.Where("assignee_id = ?", *assignee)
	}
	if s := c.Query("status"); s != "" {
		base = base.Where("status = ?", s)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count tasks failed")
		return
	}
	var list []models.Task
	if err := base.Order("due_date IS NULL, due_date ASC, id ASC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list tasks failed")
		return
	}
	util.Success(c, p.response(list, total))
}

func (h *CaseHandler) CreateTask(c *gin.Context) {
	var req taskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	m, ok := h.matterRef(c, req.MatterID)
	if !ok {
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		invalidField(c, "title", "required", "is required")
		return
	}

	t := models.Task{
		TenantID: m.TenantID,
		MatterID: m.ID,
		Status:   models.TaskStatusTodo,
		Priority: "normal",
	}
	if !h.applyTask(c, &req, &t) {
		return
	}
	if err := h.DB.Omit("Matter").Create(&t).Error; err != nil {
		serverError(c, err, "create task failed")
		return
	}
	util.Created(c, util.Response{"task": t})
}

func (h *CaseHandler) UpdateTask(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req taskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	var t models.Task
	if err := h.DB.Scopes(tenantScope(c)).First(&t, id).Error; err != nil {
		lookupError(c, err, "task")
		return
	}
	if !h.applyTask(c, &req, &t) {
		return
	}
	if err := h.DB.Omit("Matter").Save(&t).Error; err != nil {
		serverError(c, err, "update task failed")
		return
	}
	util.Success(c, util.Response{"task": t})
}

func (h *CaseHandler) DeleteTask(c *gin.Context) {
	h.deleteScoped(c, &models.Task{}, "task")
}

// deleteScoped deletes :id of model inside the request tenant.
func (h *CaseHandler) deleteScoped(c *gin.Context, model any, what string) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res := h.DB.Scopes(tenantScope(c)).Delete(model, id)
	if res.Error != nil {
		serverError(c, res.Error, "delete "+what+" failed")
		return
	}
	if res.RowsAffected == 0 {
		lookupError(c, gorm.ErrRecordNotFound, what)
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}

// ---------- deadlines ----------

type deadlineReq struct {
	MatterID  *uint   `json:"matter_id"`
	Title     *string `json:"title" binding:"omitempty,min=1,max=255"`
	DueDate   *string `json:"due_date"`
	Completed *bool   `json:"completed"`
	Notes     *string `json:"notes"`
}

func (h *CaseHandler) ListDeadlines(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.Deadline{}).Scopes(tenantScope(c))

	matterID, ok := optionalUintQuery(c, "matter_id")
	if !ok {
		return
	}
	if matterID != nil {
		base = base.Where("matter_id = ?", *matterID)
	}
	if s := c.Query("completed"); s != "" {
		done, err := strconv.ParseBool(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid completed")
			return
		}
		base = base.Where("completed = ?", done)
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	if from != nil {
		base = base.Where("due_date >= ?", *from)
	}
	if to != nil {
		base = base.Where("due_date < ?", *to)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count deadlines failed")
		return
	}
	var list []models.Deadline
	if err := base.Order("due_date ASC, id ASC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list deadlines failed")
		return
	}
	util.Success(c, p.response(list, total))
}

func (h *CaseHandler) CreateDeadline(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req deadlineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	m, ok := h.matterRef(c, req.MatterID)
	if !ok {
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		invalidField(c, "title", "required", "is required")
		return
	}
	if req.DueDate == nil || *req.DueDate == "" {
		invalidField(c, "due_date", "required", "is required")
		return
	}
	due, err := util.ParseTimestamp(*req.DueDate)
	if err != nil {
		invalidField(c, "due_date", "datetime", err.Error())
		return
	}

	d := models.Deadline{
		TenantID: m.TenantID,
		MatterID: m.ID,
		Title:    strings.TrimSpace(*req.Title),
		DueDate:  due,
	}
	setString(&d.Notes, req.Notes)
	if req.Completed != nil {
		d.Completed = *req.Completed
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Matter").Create(&d).Error; err != nil {
			return err
		}
		return addActivity(tx, d.TenantID, m.ID, user.ID, "deadline_added",
			fmt.Sprintf("Deadline added: %s (%s)", d.Title, d.DueDate.Format(util.DateLayout)))
	})
	if err != nil {
		serverError(c, err, "create deadline failed")
		return
	}
	util.Created(c, util.Response{"deadline": d})
}

func (h *CaseHandler) UpdateDeadline(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req deadlineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	var d models.Deadline
	if err := h.DB.Scopes(tenantScope(c)).First(&d, id).Error; err != nil {
		lookupError(c, err, "deadline")
		return
	}
	setString(&d.Title, req.Title)
	setString(&d.Notes, req.Notes)
	if req.Completed != nil {
		d.Completed = *req.Completed
	}
	if req.DueDate != nil {
		due, err := util.ParseTimestamp(*req.DueDate)
		if err != nil {
			invalidField(c, "due_date", "datetime", err.Error())
			return
		}
		d.DueDate = due
	}
	if err := h.DB.Omit("Matter").Save(&d).Error; err != nil {
		serverError(c, err, "update deadline failed")
		return
	}
	util.Success(c, util.Response{"deadline": d})
}

func (h *CaseHandler) DeleteDeadline(c *gin.Context) {
	h.deleteScoped(c, &models.Deadline{}, "deadline")
}

// ---------- hearings ----------

type hearingReq struct {
	MatterID        *uint   `json:"matter_id"`
	Title           *string `json:"title" binding:"omitempty,min=1,max=255"`
	Location        *string `json:"location" binding:"omitempty,max=255"`
	ScheduledAt     *string `json:"scheduled_at"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,min=1,max=1440"`
	Notes           *string `json:"notes"`
}

func (h *CaseHandler) ListHearings(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.Hearing{}).Scopes(tenantScope(c))

	matterID, ok := optionalUintQuery(c, "matter_id")
	if !ok {
		return
	}
	if matterID != nil {
		base = base.Where("matter_id = ?", *matterID)
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	if from != nil {
		base = base.Where("scheduled_at >= ?", *from)
	}
	if to != nil {
		base = base.Where("scheduled_at < ?", *to)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count hearings failed")
		return
	}
	var list []models.Hearing
	if err := base.Order("scheduled_at ASC, id ASC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list hearings failed")
		return
	}
	util.Success(c, p.response(list, total))
}

func (h *CaseHandler) CreateHearing(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req hearingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	m, ok := h.matterRef(c, req.MatterID)
	if !ok {
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		invalidField(c, "title", "required", "is required")
		return
	}
	if req.ScheduledAt == nil || *req.ScheduledAt == "" {
		invalidField(c, "scheduled_at", "required", "is required")
		return
	}
	at, err := util.ParseTimestamp(*req.ScheduledAt)
	if err != nil {
		invalidField(c, "scheduled_at", "datetime", err.Error())
		return
	}

	hr := models.Hearing{
		TenantID:        m.TenantID,
		MatterID:        m.ID,
		Title:           strings.TrimSpace(*req.Title),
		ScheduledAt:     at,
		DurationMinutes: 60,
	}
	setString(&hr.Location, req.Location)
	setString(&hr.Notes, req.Notes)
	if req.DurationMinutes != nil {
		hr.DurationMinutes = *req.DurationMinutes
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Matter").Create(&hr).Error; err != nil {
			return err
		}
		return addActivity(tx, hr.TenantID, m.ID, user.ID, "hearing_scheduled",
			fmt.Sprintf("Hearing scheduled: %s (%s)", hr.Title, hr.ScheduledAt.Format(time.RFC3339)))
	})
	if err != nil {
		serverError(c, err, "create hearing failed")
		return
	}
	util.Created(c, util.Response{"hearing": hr})
}

func (h *CaseHandler) UpdateHearing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req hearingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	var hr models.Hearing
	if err := h.DB.Scopes(tenantScope(c)).First(&hr, id).Error; err != nil {
		lookupError(c, err, "hearing")
		return
	}
	setString(&hr.Title, req.Title)
	setString(&hr.Location, req.Location)
	setString(&hr.Notes, req.Notes)
	if req.DurationMinutes != nil {
		hr.DurationMinutes = *req.DurationMinutes
	}
	if req.ScheduledAt != nil {
		at, err := util.ParseTimestamp(*req.ScheduledAt)
		if err != nil {
			invalidField(c, "scheduled_at", "datetime", err.Error())
			return
		}
		hr.ScheduledAt = at
	}
	if err := h.DB.Omit("Matter").Save(&hr).Error; err != nil {
		serverError(c, err, "update hearing failed")
		return
	}
	util.Success(c, util.Response{"hearing": hr})
}

func (h *CaseHandler) DeleteHearing(c *gin.Context) {
	h.deleteScoped(c, &models.Hearing{}, "hearing")
}

// ---------- activities ----------

type activityReq struct {
	Kind        string `json:"kind" binding:"required,max=32"`
	Description string `json:"description" binding:"required,max=4000"`
	OccurredAt  string `json:"occurred_at"`
}

func (h *CaseHandler) ListActivities(c *gin.Context) {
	m, ok := h.matterForRequest(c)
	if !ok {
		return
	}
	p := pagination(c)
	base := h.DB.Model(&models.Activity{}).Where("matter_id = ?", m.ID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count activities failed")
		return
	}
	var list []models.Activity
	if err := base.Order("occurred_at DESC, id DESC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list activities failed")
		return
	}
	util.Success(c, p.response(list, total))
}

func (h *CaseHandler) CreateActivity(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	m, ok := h.matterForRequest(c)
	if !ok {
		return
	}
	var req activityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	a := models.Activity{
		TenantID:    m.TenantID,
		MatterID:    m.ID,
		UserID:      user.ID,
		Kind:        strings.TrimSpace(req.Kind),
		Description: strings.TrimSpace(req.Description),
		OccurredAt:  time.Now(),
	}
	if req.OccurredAt != "" {
		t, err := util.ParseTimestamp(req.OccurredAt)
		if err != nil {
			invalidField(c, "occurred_at", "datetime", err.Error())
			return
		}
		a.OccurredAt = t
	}
	if err := h.DB.Omit("Matter").Create(&a).Error; err != nil {
		serverError(c, err, "create activity failed")
		return
	}
	util.Created(c, util.Response{"activity": a})
}
