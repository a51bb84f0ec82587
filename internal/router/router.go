package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lawdesk/internal/billing"
	"lawdesk/internal/config"
	"lawdesk/internal/handler"
	"lawdesk/internal/middleware"
	"lawdesk/internal/rbac"
	"lawdesk/internal/storage"
	"lawdesk/internal/util"
)

// Deps are the collaborators the router cannot build from config alone.
type Deps struct {
	Store     storage.Store
	Logger    zerolog.Logger
	NewSender handler.SenderFactory // nil means SMTP from tenant settings
}

// SetupRouter wires middleware, handlers and permissions onto a gin engine.
func SetupRouter(cfg *config.Config, db *gorm.DB, deps Deps) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	util.UseJSONFieldNames()

	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Logger), middleware.Recovery())
	r.MaxMultipartMemory = 8 << 20

	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		r.Static(cfg.Storage.PublicPrefix, cfg.Storage.LocalDir)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	key := cfg.Security.EncryptionKey
	checker := rbac.NewChecker(db)
	perm := func(p string) gin.HandlerFunc { return middleware.RequirePermission(checker, p) }

	newSender := deps.NewSender
	if newSender == nil {
		newSender = handler.SMTPSenderFactory(key)
	}
	billingSvc := billing.NewService(db, decimal.NewFromFloat(cfg.Billing.DefaultHourlyRate), cfg.Billing.DefaultDueDays)

	api := r.Group("/api")

	authHandler := handler.NewAuthHandler(db, cfg.JWT, cfg.Security.BcryptCost)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	notifications := handler.NewNotificationHandler(db, newSender, cfg.Server.Address)
	api.GET("/calendar/ics", middleware.CalendarAuth(cfg.JWT, db, checker), notifications.CalendarICS)

	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(cfg.JWT, db),
		middleware.AuditMiddleware(db, key),
	)

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/me", handler.GetMe(checker))
	protected.POST("/profile", handler.UpdateProfile(db))
	protected.POST("/profile/password", handler.ChangePassword(db, cfg.Security.BcryptCost))

	// ---------- CRM ----------
	crm := handler.NewCRMHandler(db)
	crmView := protected.Group("/crm", perm(rbac.ClientsView))
	crmView.GET("/clients", crm.ListClients)
	crmView.GET("/clients/:id", crm.GetClient)
	crmView.GET("/clients/:id/contacts", crm.ListContacts)
	crmView.GET("/clients/:id/interactions", crm.ListInteractions)

	crmManage := protected.Group("/crm", perm(rbac.ClientsManage))
	crmManage.POST("/clients", crm.CreateClient)
	crmManage.PATCH("/clients/:id", crm.UpdateClient)
	crmManage.DELETE("/clients/:id", crm.DeleteClient)
	crmManage.POST("/clients/:id/contacts", crm.CreateContact)
	crmManage.PATCH("/contacts/:contactId", crm.UpdateContact)
	crmManage.DELETE("/contacts/:contactId", crm.DeleteContact)
	crmManage.POST("/clients/:id/interactions", crm.CreateInteraction)
	crmManage.DELETE("/interactions/:interactionId", crm.DeleteInteraction)

	// ---------- cases ----------
	cases := handler.NewCaseHandler(db)
	casesView := protected.Group("/cases", perm(rbac.CasesView))
	casesView.GET("/matters", cases.ListMatters)
	casesView.GET("/matters/:id", cases.GetMatter)
	casesView.GET("/matters/:id/activities", cases.ListActivities)
	casesView.GET("/tasks", cases.ListTasks)
	casesView.GET("/deadlines", cases.ListDeadlines)
	casesView.GET("/hearings", cases.ListHearings)

	casesManage := protected.Group("/cases", perm(rbac.CasesManage))
	casesManage.POST("/matters", cases.CreateMatter)
	casesManage.PATCH("/matters/:id", cases.UpdateMatter)
	casesManage.DELETE("/matters/:id", cases.DeleteMatter)
	casesManage.POST("/matters/:id/activities", cases.CreateActivity)
	casesManage.POST("/tasks", cases.CreateTask)
	casesManage.PATCH("/tasks/:id", cases.UpdateTask)
	casesManage.DELETE("/tasks/:id", cases.DeleteTask)
	casesManage.POST("/deadlines", cases.CreateDeadline)
	casesManage.PATCH("/deadlines/:id", cases.UpdateDeadline)
	casesManage.DELETE("/deadlines/:id", cases.DeleteDeadline)
	casesManage.POST("/hearings", cases.CreateHearing)
	casesManage.PATCH("/hearings/:id", cases.UpdateHearing)
	casesManage.DELETE("/hearings/:id", cases.DeleteHearing)

	// ---------- documents ----------
	docs := handler.NewDocumentHandler(db, deps.Store, cfg.Storage.MaxUploadSizeMB)
	docsView := protected.Group("/documents", perm(rbac.DocumentsView))
	docsView.GET("", docs.List)
	docsView.GET("/:id", docs.Get)
	docsView.GET("/:id/download", docs.Download)

	docsManage := protected.Group("/documents", perm(rbac.DocumentsManage))
	docsManage.POST("", docs.Upload)
	docsManage.POST("/:id/versions", docs.NewVersion)
	docsManage.DELETE("/:id", docs.Delete)

	// ---------- billing ----------
	entries := handler.NewTimeEntryHandler(db, billingSvc)
	timeGroup := protected.Group("/billing/time-entries", perm(rbac.TimeManage))
	timeGroup.GET("", entries.List)
	timeGroup.GET("/unbilled", entries.Unbilled)
	timeGroup.GET("/export/csv", entries.ExportCSV)
	timeGroup.GET("/export/xlsx", entries.ExportXLSX)
	timeGroup.POST("", entries.Create)
	timeGroup.PATCH("/:id", entries.Update)
	timeGroup.DELETE("/:id", entries.Delete)

	invoices := handler.NewInvoiceHandler(db, billingSvc)
	billingView := protected.Group("/billing/invoices", perm(rbac.BillingView))
	billingView.GET("", invoices.List)
	billingView.GET("/:id", invoices.Get)
	billingView.GET("/:id/payments", invoices.ListPayments)
	billingView.GET("/:id/pdf", invoices.PDF)

	billingManage := protected.Group("/billing/invoices", perm(rbac.BillingManage))
	billingManage.POST("", invoices.Create)
	billingManage.PATCH("/:id", invoices.UpdateStatus)
	billingManage.DELETE("/:id", invoices.Delete)
	billingManage.POST("/:id/payments", invoices.RecordPayment)

	// ---------- finance ----------
	finance := handler.NewFinanceHandler(db)
	financeView := protected.Group("/finance", perm(rbac.FinanceView))
	financeView.GET("/transactions", finance.ListTransactions)
	financeView.GET("/transactions/:id", finance.GetTransaction)
	financeView.GET("/summary", finance.Summary)

	financeManage := protected.Group("/finance", perm(rbac.FinanceManage))
	financeManage.POST("/transactions", finance.CreateTransaction)
	financeManage.PATCH("/transactions/:id", finance.UpdateTransaction)
	financeManage.DELETE("/transactions/:id", finance.DeleteTransaction)

	// ---------- notifications ----------
	protected.GET("/notifications/alerts", perm(rbac.CalendarView), notifications.Alerts)
	protected.POST("/notifications/send", perm(rbac.SettingsManage), notifications.Send)

	// ---------- settings ----------
	settings := handler.NewSettingsHandler(db, key, cfg.Security.BcryptCost, checker)
	settingsGroup := protected.Group("/settings", perm(rbac.SettingsManage))
	settingsGroup.GET("", settings.GetSettings)
	settingsGroup.PUT("", settings.UpdateSettings)
	settingsGroup.POST("/calendar-token", settings.RotateCalendarToken)
	settingsGroup.GET("/roles", settings.ListRoles)
	settingsGroup.GET("/roles/:name", settings.GetRole)
	settingsGroup.PUT("/roles/:name", settings.PutRole)
	settingsGroup.DELETE("/roles/:name", settings.DeleteRole)

	logs := handler.NewLogHandler(db, key)
	settingsGroup.GET("/audit-logs", logs.ListLogs)

	backups := handler.NewBackupHandler(db, key, cfg.Backup.Dir)
	settingsGroup.POST("/backups", backups.CreateBackup)
	settingsGroup.GET("/backups", backups.ListBackups)
	settingsGroup.GET("/backups/:id/download", backups.DownloadBackup)
	settingsGroup.DELETE("/backups/:id", backups.DeleteBackup)

	usersGroup := protected.Group("/settings/users", perm(rbac.UsersManage))
	usersGroup.GET("", settings.ListUsers)
	usersGroup.POST("", settings.CreateUser)
	usersGroup.PATCH("/:id", settings.UpdateUser)
	usersGroup.DELETE("/:id", settings.DeleteUser)

	return r
}
