package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/notify"
	"lawdesk/internal/rbac"
	"lawdesk/internal/util"
)

// SettingsHandler serves tenant settings, users and role overrides.
type SettingsHandler struct {
	DB         *gorm.DB
	EncryptKey string
	BcryptCost int
	Checker    *rbac.Checker
}

func NewSettingsHandler(db *gorm.DB, encryptKey string, bcryptCost int, checker *rbac.Checker) *SettingsHandler {
	return &SettingsHandler{DB: db, EncryptKey: encryptKey, BcryptCost: bcryptCost, Checker: checker}
}

func (h *SettingsHandler) load(c *gin.Context) (*models.TenantSettings, bool) {
	var s models.TenantSettings
	err := h.DB.Where("tenant_id = ?", middleware.TenantID(c)).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = models.TenantSettings{TenantID: middleware.TenantID(c), AlertDaysAhead: notify.DefaultDaysAhead}
		err = h.DB.Create(&s).Error
	}
	if err != nil {
		serverError(c, err, "load settings failed")
		return nil, false
	}
	return &s, true
}

func settingsView(s *models.TenantSettings) gin.H {
	return gin.H{
		"settings":          s,
		"smtp_password_set": s.SMTPPasswordEnc != "",
		"smtp_configured":   s.SMTPConfigured(),
		"calendar_enabled":  s.CalendarToken != nil,
	}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	util.Success(c, util.Response(settingsView(s)))
}

type settingsReq struct {
	SMTPHost          *string          `json:"smtp_host" binding:"omitempty,max=255"`
	SMTPPort          *int             `json:"smtp_port" binding:"omitempty,min=0,max=65535"`
	SMTPUser          *string          `json:"smtp_user" binding:"omitempty,max=255"`
	SMTPPassword      *string          `json:"smtp_password" binding:"omitempty,max=255"`
	SMTPFrom          *string          `json:"smtp_from" binding:"omitempty,max=255"`
	EmailAlerts       *bool            `json:"email_alerts"`
	AlertDaysAhead    *int             `json:"alert_days_ahead" binding:"omitempty,min=1,max=90"`
	AlertRecipients   *string          `json:"alert_recipients" binding:"omitempty,max=1024"`
	DefaultHourlyRate *decimal.Decimal `json:"default_hourly_rate"`
}

// UpdateSettings applies a partial update. An empty smtp_password clears the
// stored one; an absent one keeps it.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req settingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	s, ok := h.load(c)
	if !ok {
		return
	}

	setString(&s.SMTPHost, req.SMTPHost)
	setString(&s.SMTPUser, req.SMTPUser)
	setString(&s.SMTPFrom, req.SMTPFrom)
	if req.SMTPPort != nil {
		s.SMTPPort = *req.SMTPPort
	}
	if req.EmailAlerts != nil {
		s.EmailAlerts = *req.EmailAlerts
	}
	if req.AlertDaysAhead != nil {
		s.AlertDaysAhead = *req.AlertDaysAhead
	}
	if req.AlertRecipients != nil {
		recipients := notify.ParseRecipients(*req.AlertRecipients)
		for _, r := range recipients {
			if !strings.Contains(r, "@") {
				invalidField(c, "alert_recipients", "email", "invalid address "+r)
				return
			}
		}
		s.AlertRecipients = strings.Join(recipients, ",")
	}
	if req.DefaultHourlyRate != nil {
		if req.DefaultHourlyRate.IsZero() {
			s.DefaultHourlyRate = decimal.NullDecimal{}
		} else {
			if err := util.ValidateAmount(*req.DefaultHourlyRate); err != nil {
				invalidField(c, "default_hourly_rate", "range", err.Error())
				return
			}
			s.DefaultHourlyRate = decimal.NewNullDecimal(req.DefaultHourlyRate.Round(2))
		}
	}
	if req.SMTPPassword != nil {
		enc, err := util.EncryptString(h.EncryptKey, *req.SMTPPassword)
		if err != nil {
			serverError(c, err, "encrypt smtp password failed")
			return
		}
		s.SMTPPasswordEnc = enc
	}
	if s.EmailAlerts && !s.SMTPConfigured() {
		businessError(c, "email alerts need a complete SMTP configuration")
		return
	}

	if err := h.DB.Save(s).Error; err != nil {
		serverError(c, err, "save settings failed")
		return
	}
	util.Success(c, util.Response(settingsView(s)))
}

// RotateCalendarToken issues a new feed token; the old one stops working.
func (h *SettingsHandler) RotateCalendarToken(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	token, err := util.RandomString(32)
	if err != nil {
		serverError(c, err, "generate token failed")
		return
	}
	if err := h.DB.Model(s).Update("calendar_token", token).Error; err != nil {
		serverError(c, err, "save calendar token failed")
		return
	}
	util.Success(c, util.Response{
		"token": token,
		"path":  "/api/calendar/ics?token=" + token,
	})
}

// ---------- users ----------

func (h *SettingsHandler) ListUsers(c *gin.Context) {
	var list []models.User
	if err := h.DB.Scopes(tenantScope(c)).Order("name ASC, id ASC").Find(&list).Error; err != nil {
		serverError(c, err, "list users failed")
		return
	}
	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, userView(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

type createUserReq struct {
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

func (h *SettingsHandler) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	if !rbac.KnownRole(req.Role) {
		invalidField(c, "role", "oneof", "unknown role")
		return
	}
	if !isStrongPassword(req.Password) {
		invalidField(c, "password", "strength", "must be 8-64 characters with upper case, lower case and a digit")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := h.DB.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&count).Error; err != nil {
		serverError(c, err, "check email failed")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "email already registered")
		return
	}

	hash, err := util.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		serverError(c, err, "hash password failed")
		return
	}
	u := models.User{
		TenantID:     middleware.TenantID(c),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         req.Role,
		Active:       true,
	}
	if err := h.DB.Omit("Tenant").Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "email already registered")
			return
		}
		serverError(c, err, "create user failed")
		return
	}
	util.Created(c, util.Response{"user": userView(&u)})
}

type updateUserReq struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=128"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
	Password *string `json:"password"`
}

// UpdateUser changes name, role, active flag or password. Deactivating a
// user or resetting the password revokes their sessions.
func (h *SettingsHandler) UpdateUser(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	var u models.User
	if err := h.DB.Scopes(tenantScope(c)).First(&u, id).Error; err != nil {
		lookupError(c, err, "user")
		return
	}

	updates := map[string]any{}
	revoke := false
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		if !rbac.KnownRole(*req.Role) {
			invalidField(c, "role", "oneof", "unknown role")
			return
		}
		if u.ID == me.ID && *req.Role != u.Role {
			businessError(c, "you cannot change your own role")
			return
		}
		updates["role"] = *req.Role
	}
	if req.Active != nil {
		if u.ID == me.ID && !*req.Active {
			businessError(c, "you cannot deactivate yourself")
			return
		}
		updates["active"] = *req.Active
		revoke = revoke || !*req.Active
	}
	if req.Password != nil {
		if !isStrongPassword(*req.Password) {
			invalidField(c, "password", "strength", "must be 8-64 characters with upper case, lower case and a digit")
			return
		}
		hash, err := util.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			serverError(c, err, "hash password failed")
			return
		}
		updates["password_hash"] = hash
		updates["failed_login_attempts"] = 0
		updates["locked_until"] = nil
		revoke = true
	}
	if len(updates) == 0 {
		util.Success(c, util.Response{"user": userView(&u)})
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&u).Updates(updates).Error; err != nil {
			return err
		}
		if revoke {
			return tx.Model(&models.Session{}).Where("user_id = ?", u.ID).Update("revoked", true).Error
		}
		return nil
	})
	if err != nil {
		serverError(c, err, "update user failed")
		return
	}
	if err := h.DB.First(&u, u.ID).Error; err != nil {
		serverError(c, err, "reload user failed")
		return
	}
	util.Success(c, util.Response{"user": userView(&u)})
}

func (h *SettingsHandler) DeleteUser(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if id == me.ID {
		businessError(c, "you cannot delete yourself")
		return
	}
	var u models.User
	if err := h.DB.Scopes(tenantScope(c)).First(&u, id).Error; err != nil {
		lookupError(c, err, "user")
		return
	}

	var entries int64
	if err := h.DB.Model(&models.TimeEntry{}).Where("user_id = ?", u.ID).Count(&entries).Error; err != nil {
		serverError(c, err, "count time entries failed")
		return
	}
	if entries > 0 {
		businessError(c, "user has time entries; deactivate instead")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Matter{}).Where("responsible_id = ?", u.ID).Update("responsible_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).Where("assignee_id = ?", u.ID).Update("assignee_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&u).Error
	})
	if err != nil {
		serverError(c, err, "delete user failed")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}

// ---------- roles ----------

// ListRoles returns every built-in role with its effective permissions.
func (h *SettingsHandler) ListRoles(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	var overrides []models.Role
	if err := h.DB.Where("tenant_id = ?", tenantID).Find(&overrides).Error; err != nil {
		serverError(c, err, "list roles failed")
		return
	}
	overridden := map[string]bool{}
	for _, r := range overrides {
		overridden[r.Name] = true
	}

	items := make([]gin.H, 0, len(rbac.Roles()))
	for _, name := range rbac.Roles() {
		perms, err := h.Checker.Effective(c.Request.Context(), tenantID, name)
		if err != nil {
			serverError(c, err, "load permissions failed")
			return
		}
		items = append(items, gin.H{"name": name, "permissions": perms, "overridden": overridden[name]})
	}
	util.Success(c, util.Response{"items": items, "all_permissions": rbac.All})
}

func (h *SettingsHandler) roleName(c *gin.Context) (string, bool) {
	name := c.Param("name")
	if !rbac.KnownRole(name) {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "role not found")
		return "", false
	}
	return name, true
}

func (h *SettingsHandler) GetRole(c *gin.Context) {
	name, ok := h.roleName(c)
	if !ok {
		return
	}
	tenantID := middleware.TenantID(c)

	var override models.Role
	err := h.DB.Where("tenant_id = ? AND name = ?", tenantID, name).First(&override).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		serverError(c, err, "load role failed")
		return
	}
	perms, err := h.Checker.Effective(c.Request.Context(), tenantID, name)
	if err != nil {
		serverError(c, err, "load permissions failed")
		return
	}
	util.Success(c, util.Response{
		"name":        name,
		"override":    override.Permissions.Data(),
		"overridden":  override.ID != 0,
		"permissions": perms,
	})
}

// PutRole stores the override. The body is either a bare array of
// permissions or {"allowed": [...]}.
func (h *SettingsHandler) PutRole(c *gin.Context) {
	name, ok := h.roleName(c)
	if !ok {
		return
	}
	var set models.PermissionSet
	if err := c.ShouldBindJSON(&set); err != nil {
		util.BindError(c, err)
		return
	}
	for _, p := range set.Allowed {
		if p == "*" || rbac.Known(p) || (strings.HasSuffix(p, ".*") && len(p) > 2) {
			continue
		}
		invalidField(c, "allowed", "permission", "unknown permission "+p)
		return
	}

	tenantID := middleware.TenantID(c)
	var role models.Role
	err := h.DB.Where("tenant_id = ? AND name = ?", tenantID, name).First(&role).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		role = models.Role{TenantID: tenantID, Name: name}
	case err != nil:
		serverError(c, err, "load role failed")
		return
	}
	role.Permissions = datatypes.NewJSONType(set)
	if err := h.DB.Save(&role).Error; err != nil {
		serverError(c, err, "save role failed")
		return
	}
	util.Success(c, util.Response{"role": role})
}

func (h *SettingsHandler) DeleteRole(c *gin.Context) {
	name, ok := h.roleName(c)
	if !ok {
		return
	}
	res := h.DB.Where("tenant_id = ? AND name = ?", middleware.TenantID(c), name).Delete(&models.Role{})
	if res.Error != nil {
		serverError(c, res.Error, "delete role failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "role override not found")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}
