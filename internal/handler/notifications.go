package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/calendar"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/notify"
	"lawdesk/internal/util"
)

// SenderFactory builds a mail sender for a tenant's settings.
type SenderFactory func(s *models.TenantSettings) (notify.Sender, error)

// SMTPSenderFactory decrypts the stored password with key.
func SMTPSenderFactory(key string) SenderFactory {
	return func(s *models.TenantSettings) (notify.Sender, error) {
		sender, err := notify.SenderFromSettings(s, key)
		if err != nil {
			return nil, err
		}
		return sender, nil
	}
}

// NotificationHandler serves alert digests and the calendar feed.
type NotificationHandler struct {
	DB        *gorm.DB
	NewSender SenderFactory
	Host      string
	now       func() time.Time
}

func NewNotificationHandler(db *gorm.DB, newSender SenderFactory, host string) *NotificationHandler {
	if host == "" {
		host = "lawdesk.local"
	}
	return &NotificationHandler{DB: db, NewSender: newSender, Host: host, now: time.Now}
}

func (h *NotificationHandler) settings(c *gin.Context) (*models.TenantSettings, bool) {
	var s models.TenantSettings
	if err := h.DB.Where("tenant_id = ?", middleware.TenantID(c)).First(&s).Error; err != nil {
		lookupError(c, err, "settings")
		return nil, false
	}
	return &s, true
}

// days reads ?days=, falling back to the tenant's alert window.
func (h *NotificationHandler) days(c *gin.Context, s *models.TenantSettings) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return s.AlertDaysAhead, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > notify.MaxDaysAhead {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "days must be between 1 and 90")
		return 0, false
	}
	return n, true
}

// Alerts returns open deadlines and hearings due in the next N days.
func (h *NotificationHandler) Alerts(c *gin.Context) {
	s, ok := h.settings(c)
	if !ok {
		return
	}
	days, ok := h.days(c, s)
	if !ok {
		return
	}
	d, err := notify.Upcoming(c.Request.Context(), h.DB, s.TenantID, days, h.now())
	if err != nil {
		serverError(c, err, "load alerts failed")
		return
	}
	util.Success(c, util.Response{"alerts": d, "days": days})
}

// Send mails the digest to the configured recipients.
func (h *NotificationHandler) Send(c *gin.Context) {
	s, ok := h.settings(c)
	if !ok {
		return
	}
	if !s.SMTPConfigured() {
		businessError(c, notify.ErrNotConfigured.Error())
		return
	}
	to := notify.ParseRecipients(s.AlertRecipients)
	if len(to) == 0 {
		businessError(c, "no alert recipients configured")
		return
	}
	days, ok := h.days(c, s)
	if !ok {
		return
	}

	d, err := notify.Upcoming(c.Request.Context(), h.DB, s.TenantID, days, h.now())
	if err != nil {
		serverError(c, err, "load alerts failed")
		return
	}
	if d.Empty() {
		util.Success(c, util.Response{"sent": false, "message": "nothing due"})
		return
	}

	var tenant models.Tenant
	if err := h.DB.First(&tenant, s.TenantID).Error; err != nil {
		lookupError(c, err, "tenant")
		return
	}

	sender, err := h.NewSender(s)
	if err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			businessError(c, err.Error())
			return
		}
		serverError(c, err, "build mail sender failed")
		return
	}
	msg := notify.Message{
		From:    s.SMTPFrom,
		To:      to,
		Subject: tenant.Name + ": upcoming deadlines and hearings",
		Body:    d.Text(tenant.Name),
	}
	if err := sender.Send(msg); err != nil {
		util.Error(c, http.StatusBadGateway, util.CodeServerErr, "send mail failed: "+err.Error())
		return
	}
	util.Success(c, util.Response{
		"sent":       true,
		"recipients": to,
		"deadlines":  len(d.Deadlines),
		"hearings":   len(d.Hearings),
	})
}

// CalendarICS renders hearings and open deadlines as text/calendar.
func (h *NotificationHandler) CalendarICS(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	var tenant models.Tenant
	if err := h.DB.First(&tenant, tenantID).Error; err != nil {
		lookupError(c, err, "tenant")
		return
	}

	now := h.now()
	since := now.AddDate(0, 0, -30)
	var hearings []models.Hearing
	if err := h.DB.Where("tenant_id = ? AND scheduled_at >= ?", tenantID, since).
		Order("scheduled_at ASC").Find(&hearings).Error; err != nil {
		serverError(c, err, "load hearings failed")
		return
	}
	var deadlines []models.Deadline
	if err := h.DB.Where("tenant_id = ? AND completed = ?", tenantID, false).
		Order("due_date ASC").Find(&deadlines).Error; err != nil {
		serverError(c, err, "load deadlines failed")
		return
	}

	feed := calendar.Feed{
		Name:      tenant.Name,
		Host:      h.Host,
		Hearings:  hearings,
		Deadlines: deadlines,
		Now:       now,
	}
	c.Header("Content-Disposition", `inline; filename="lawdesk.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed.Render()))
}
