package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"lawdesk/internal/config"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

const (
	maxFailedLogins = 5
	lockDuration    = 10 * time.Minute
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	DB         *gorm.DB
	JWT        config.JWTConfig
	BcryptCost int
	TokenTTL   time.Duration
}

func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, bcryptCost int) *AuthHandler {
	ttlHours := jwtCfg.ExpireHours
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &AuthHandler{
		DB:         db,
		JWT:        jwtCfg,
		BcryptCost: bcryptCost,
		TokenTTL:   time.Duration(ttlHours) * time.Hour,
	}
}

// ---------- register ----------

type registerReq struct {
	FirmName string `json:"firm_name" binding:"required,max=128"`
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Register creates a tenant, its settings and the first admin user.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !isStrongPassword(req.Password) {
		util.ValidationError(c, "invalid request", []util.Issue{{
			Field: "password", Rule: "strength",
			Message: "must be 8-64 characters with upper case, lower case and a digit",
		}})
		return
	}

	var count int64
	if err := h.DB.Model(&models.User{}).Where("LOWER(email) = ?", req.Email).Count(&count).Error; err != nil {
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

	var tenant models.Tenant
	var user models.User
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		tenant = models.Tenant{
			Name:     strings.TrimSpace(req.FirmName),
			Slug:     TenantSlug(req.FirmName),
			Settings: models.TenantSettings{AlertDaysAhead: 7},
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		user = models.User{
			TenantID:     tenant.ID,
			Email:        req.Email,
			Name:         strings.TrimSpace(req.Name),
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			Active:       true,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "email already registered")
			return
		}
		serverError(c, err, "register failed")
		return
	}

	util.Created(c, util.Response{
		"tenant": gin.H{"id": tenant.ID, "name": tenant.Name, "slug": tenant.Slug},
		"user":   userView(&user),
	})
}

// TenantSlug derives a unique URL slug from a firm name.
func TenantSlug(name string) string {
	base := strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(base) > 40 {
		base = base[:40]
	}
	if base == "" {
		base = "firm"
	}
	return base + "-" + uuid.NewString()[:8]
}

// isStrongPassword: 8-64 chars with upper, lower and digit.
func isStrongPassword(pwd string) bool {
	if len(pwd) < 8 || len(pwd) > 64 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// ---------- login ----------

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the password, locks the account after repeated failures and
// opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.DB.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid email or password")
		} else {
			serverError(c, err, "load user failed")
		}
		return
	}

	now := time.Now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "account locked, try again later")
		return
	}

	if !util.CheckPassword(req.Password, user.PasswordHash) {
		attempts := user.FailedLoginAttempts + 1
		updates := map[string]any{"failed_login_attempts": attempts}
		if attempts >= maxFailedLogins {
			updates["locked_until"] = now.Add(lockDuration)
			updates["failed_login_attempts"] = 0
		}
		if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
			serverError(c, err, "record failed login failed")
			return
		}
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid email or password")
		return
	}

	if !user.Active {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "account disabled")
		return
	}

	ip := c.ClientIP()
	sess := models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TenantID:  user.TenantID,
		ExpiresAt: now.Add(h.TokenTTL),
		IP:        ip,
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(map[string]any{
			"failed_login_attempts": 0,
			"locked_until":          nil,
			"last_login_at":         now,
			"last_login_ip":         ip,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&sess).Error
	})
	if err != nil {
		serverError(c, err, "create session failed")
		return
	}
	user.LastLoginAt = &now

	token, err := util.GenerateToken(h.JWT.Secret, h.JWT.Issuer, user.ID, user.TenantID, sess.ID, h.TokenTTL)
	if err != nil {
		serverError(c, err, "sign token failed")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.JWT.CookieName, token, int(h.TokenTTL.Seconds()), "/", "", h.JWT.Secure, true)

	util.Success(c, util.Response{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"user":       userView(&user),
	})
}

// ---------- logout ----------

// Logout revokes the current session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not authenticated")
		return
	}
	if err := h.DB.Model(sess).Update("revoked", true).Error; err != nil {
		serverError(c, err, "revoke session failed")
		return
	}
	c.SetCookie(h.JWT.CookieName, "", -1, "/", "", h.JWT.Secure, true)
	util.Success(c, util.Response{"message": "signed out"})
}

func userView(u *models.User) gin.H {
	return gin.H{
		"id":            u.ID,
		"tenant_id":     u.TenantID,
		"email":         u.Email,
		"name":          u.Name,
		"role":          u.Role,
		"active":        u.Active,
		"last_login_at": u.LastLoginAt,
		"created_at":    u.CreatedAt,
	}
}
