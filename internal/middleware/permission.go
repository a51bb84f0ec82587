package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lawdesk/internal/logger"
	"lawdesk/internal/rbac"
	"lawdesk/internal/util"
)

// RequirePermission aborts with 403 unless the current user holds perm in
// their tenant. Must run after AuthMiddleware.
func RequirePermission(checker *rbac.Checker, perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not authenticated")
			c.Abort()
			return
		}

		ok, err := checker.Allowed(c.Request.Context(), user, TenantID(c), perm)
		if err != nil {
			l := logger.FromContext(c.Request.Context())
			l.Error().Err(err).Str("permission", perm).Msg("permission check failed")
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "permission check failed")
			c.Abort()
			return
		}
		if !ok {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, "permission denied: "+perm)
			c.Abort()
			return
		}
		c.Next()
	}
}
