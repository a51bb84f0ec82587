package handler

import (
	"github.com/gin-gonic/gin"

	"lawdesk/internal/rbac"
	"lawdesk/internal/util"
)

// GetMe returns the current user and the permissions their role has in
// their tenant.
func GetMe(checker *rbac.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		perms, err := checker.Effective(c.Request.Context(), user.TenantID, user.Role)
		if err != nil {
			serverError(c, err, "load permissions failed")
			return
		}

		util.Success(c, util.Response{
			"user":        userView(user),
			"permissions": perms,
		})
	}
}
