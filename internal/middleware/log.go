package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"lawdesk/internal/logger"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

const maxAuditBody = 2000

// AuditMiddleware stores an encrypted trail entry for every mutating request
// made by an authenticated user. Bodies of password and upload requests are
// not recorded.
func AuditMiddleware(db *gorm.DB, encryptKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		var bodyBytes []byte
		if c.Request.Body != nil && recordBody(c) {
			bodyBytes, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody+1))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), c.Request.Body))
		}

		c.Next()

		user := CurrentUser(c)
		if user == nil {
			return
		}

		path := c.Request.URL.Path
		action := c.Request.Method + " " + path
		if n := len(bodyBytes); n > 0 && n <= maxAuditBody {
			action += " " + string(bodyBytes)
		}

		encPath, err := util.EncryptString(encryptKey, path)
		if err != nil {
			l := logger.FromContext(c.Request.Context())
			l.Warn().Err(err).Msg("audit encrypt failed")
			return
		}
		encAction, err := util.EncryptString(encryptKey, action)
		if err != nil {
			l := logger.FromContext(c.Request.Context())
			l.Warn().Err(err).Msg("audit encrypt failed")
			return
		}

		entry := models.AuditLog{
			TenantID:  user.TenantID,
			UserID:    &user.ID,
			PathEnc:   encPath,
			Method:    c.Request.Method,
			ActionEnc: encAction,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if err := db.Create(&entry).Error; err != nil {
			l := logger.FromContext(c.Request.Context())
			l.Warn().Err(err).Msg("audit write failed")
		}
	}
}

func recordBody(c *gin.Context) bool {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return false
	}
	return !strings.Contains(c.Request.URL.Path, "password") &&
		!strings.HasPrefix(c.Request.URL.Path, "/api/auth/") &&
		!strings.HasPrefix(c.Request.URL.Path, "/api/settings")
}

// RequestLogger attaches a request-scoped zerolog logger to the request
// context and logs one line per request.
func RequestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		reqLog := base.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))

		c.Next()

		status := c.Writer.Status()
		ev := reqLog.Info()
		switch {
		case status >= 500:
			ev = reqLog.Error()
		case status >= 400:
			ev = reqLog.Warn()
		}
		if user := CurrentUser(c); user != nil {
			ev = ev.Uint("user_id", user.ID)
		}
		if tid := TenantID(c); tid != 0 {
			ev = ev.Uint("tenant_id", tid)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("remote_addr", c.ClientIP()).
			Msg("HTTP request")
	}
}

// Recovery turns a panic into a logged 500 in the standard envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l := logger.FromContext(c.Request.Context())
		l.Error().
			Interface("error", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("panic recovered")
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "internal server error")
		c.Abort()
	})
}
