package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/config"
	"lawdesk/internal/models"
	"lawdesk/internal/rbac"
	"lawdesk/internal/util"
)

// CalendarAuth admits either a ?token= matching a tenant's calendar token, so
// calendar clients can subscribe without a session, or a normal session
// holding calendar.view.
func CalendarAuth(cfg config.JWTConfig, db *gorm.DB, checker *rbac.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := c.Query("token"); token != "" {
			var settings models.TenantSettings
			err := db.WithContext(c.Request.Context()).Where("calendar_token = ?", token).First(&settings).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid calendar token")
				} else {
					util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "load calendar token failed")
				}
				c.Abort()
				return
			}
			c.Set(TenantKey, settings.TenantID)
			c.Next()
			return
		}

		user, sess, status, msg := authenticate(c, cfg, db)
		if user == nil {
			util.Error(c, status, codeFor(status), msg)
			c.Abort()
			return
		}
		c.Set(CurrentUserKey, user)
		c.Set(SessionKey, sess)
		c.Set(TenantKey, user.TenantID)

		RequirePermission(checker, rbac.CalendarView)(c)
	}
}
