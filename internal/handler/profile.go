package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// UpdateProfileReq updates the caller's own display name.
type UpdateProfileReq struct {
	Name string `json:"name" binding:"required,max=128"`
}

// ChangePasswordReq changes the caller's password.
type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=64"`
}

// UpdateProfile renames the current user.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req UpdateProfileReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.BindError(c, err)
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if err := db.Model(user).Update("name", req.Name).Error; err != nil {
			serverError(c, err, "update profile failed")
			return
		}
		user.Name = req.Name

		util.Success(c, util.Response{"user": userView(user)})
	}
}

// ChangePassword verifies the old password, stores the new one and revokes
// every other session of the user.
func ChangePassword(db *gorm.DB, bcryptCost int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req ChangePasswordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.BindError(c, err)
			return
		}

		if !util.CheckPassword(req.OldPassword, user.PasswordHash) {
			util.Error(c, http.StatusBadRequest, util.CodeBusiness, "current password is incorrect")
			return
		}
		if !isStrongPassword(req.NewPassword) {
			util.ValidationError(c, "invalid request", []util.Issue{{
				Field: "new_password", Rule: "strength",
				Message: "must be 8-64 characters with upper case, lower case and a digit",
			}})
			return
		}

		hash, err := util.HashPassword(req.NewPassword, bcryptCost)
		if err != nil {
			serverError(c, err, "hash password failed")
			return
		}

		current := middleware.CurrentSession(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(user).Update("password_hash", hash).Error; err != nil {
				return err
			}
			q := tx.Model(&models.Session{}).Where("user_id = ? AND revoked = ?", user.ID, false)
			if current != nil {
				q = q.Where("id <> ?", current.ID)
			}
			return q.Update("revoked", true).Error
		})
		if err != nil {
			serverError(c, err, "update password failed")
			return
		}

		util.Success(c, util.Response{"message": "password changed"})
	}
}
