package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/config"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// Context keys set by the auth middlewares.
const (
	CurrentUserKey = "currentUser"
	SessionKey     = "currentSession"
	TenantKey      = "tenantID"
)

var errUnauthenticated = errors.New("unauthenticated")

// AuthMiddleware resolves the session token and puts the current user, the
// session and the tenant id in the gin context.
func AuthMiddleware(cfg config.JWTConfig, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, sess, status, msg := authenticate(c, cfg, db)
		if user == nil {
			util.Error(c, status, codeFor(status), msg)
			c.Abort()
			return
		}

		c.Set(CurrentUserKey, user)
		c.Set(SessionKey, sess)
		c.Set(TenantKey, user.TenantID)
		c.Next()
	}
}

// tokenFromRequest reads the bearer header first, then the session cookie.
func tokenFromRequest(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return v
		}
	}
	return ""
}

func authenticate(c *gin.Context, cfg config.JWTConfig, db *gorm.DB) (*models.User, *models.Session, int, string) {
	tokenStr := tokenFromRequest(c, cfg.CookieName)
	if tokenStr == "" {
		return nil, nil, http.StatusUnauthorized, "not authenticated"
	}

	claims, err := util.ParseToken(cfg.Secret, tokenStr)
	if err != nil {
		return nil, nil, http.StatusUnauthorized, "session expired, please sign in again"
	}

	var sess models.Session
	if err := db.WithContext(c.Request.Context()).Where("id = ?", claims.ID).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, http.StatusUnauthorized, "session not found"
		}
		return nil, nil, http.StatusInternalServerError, "load session failed"
	}
	if sess.Revoked || time.Now().After(sess.ExpiresAt) || sess.UserID != claims.UserID {
		return nil, nil, http.StatusUnauthorized, "session expired, please sign in again"
	}

	var user models.User
	if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, http.StatusUnauthorized, "user not found"
		}
		return nil, nil, http.StatusInternalServerError, "load user failed"
	}
	if !user.Active || user.TenantID != claims.TenantID {
		return nil, nil, http.StatusUnauthorized, "user disabled"
	}
	return &user, &sess, 0, ""
}

func codeFor(status int) int {
	if status == http.StatusInternalServerError {
		return util.CodeServerErr
	}
	return util.CodeAuth
}

// CurrentUser returns the user set by AuthMiddleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// CurrentSession returns the session set by AuthMiddleware, or nil.
func CurrentSession(c *gin.Context) *models.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*models.Session)
	return s
}

// TenantID returns the tenant the request is scoped to.
func TenantID(c *gin.Context) uint {
	return c.GetUint(TenantKey)
}
