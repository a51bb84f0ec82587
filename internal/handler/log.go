package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// LogHandler lists the tenant's audit trail.
type LogHandler struct {
	DB         *gorm.DB
	EncryptKey string
}

func NewLogHandler(db *gorm.DB, encryptKey string) *LogHandler {
	return &LogHandler{DB: db, EncryptKey: encryptKey}
}

type logResp struct {
	ID        uint      `json:"id"`
	UserID    *uint     `json:"user_id,omitempty"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Action    string    `json:"action"`
	Status    int       `json:"status"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// decrypt returns the plaintext, or the stored value when it cannot be read
// with the current key.
func (h *LogHandler) decrypt(enc string) string {
	plain, err := util.DecryptString(h.EncryptKey, enc)
	if err != nil {
		return enc
	}
	return plain
}

func (h *LogHandler) view(l *models.AuditLog) logResp {
	return logResp{
		ID:        l.ID,
		UserID:    l.UserID,
		Method:    l.Method,
		Path:      h.decrypt(l.PathEnc),
		Action:    h.decrypt(l.ActionEnc),
		Status:    l.Status,
		IP:        l.IP,
		UserAgent: l.UserAgent,
		CreatedAt: l.CreatedAt,
	}
}

// ListLogs pages audit entries filtered by ?user_id=, ?method=, ?from=, ?to=.
// ?q= matches the decrypted path and action, so it is applied after
// decryption over the filtered range.
func (h *LogHandler) ListLogs(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.AuditLog{}).Scopes(tenantScope(c))

	userID, ok := optionalUintQuery(c, "user_id")
	if !ok {
		return
	}
	if userID != nil {
		base = base.Where("user_id = ?", *userID)
	}
	if m := strings.ToUpper(c.Query("method")); m != "" {
		base = base.Where("method = ?", m)
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	if from != nil {
		base = base.Where("created_at >= ?", *from)
	}
	if to != nil {
		base = base.Where("created_at < ?", *to)
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if q == "" {
		var total int64
		if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			serverError(c, err, "count audit logs failed")
			return
		}
		var logs []models.AuditLog
		if err := base.Order("created_at DESC, id DESC").Limit(p.Size).Offset(p.Offset).Find(&logs).Error; err != nil {
			serverError(c, err, "list audit logs failed")
			return
		}
		items := make([]logResp, 0, len(logs))
		for i := range logs {
			items = append(items, h.view(&logs[i]))
		}
		util.Success(c, p.response(items, total))
		return
	}

	var logs []models.AuditLog
	if err := base.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		serverError(c, err, "list audit logs failed")
		return
	}
	matched := make([]logResp, 0)
	for i := range logs {
		v := h.view(&logs[i])
		if strings.Contains(strings.ToLower(v.Path), q) || strings.Contains(strings.ToLower(v.Action), q) {
			matched = append(matched, v)
		}
	}
	total := int64(len(matched))
	start := p.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + p.Size
	if end > len(matched) {
		end = len(matched)
	}
	util.Success(c, p.response(matched[start:end], total))
}
