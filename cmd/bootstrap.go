package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"lawdesk/internal/database"
	"lawdesk/internal/handler"
	"lawdesk/internal/models"
	"lawdesk/internal/notify"
	"lawdesk/internal/util"
)

var (
	bootstrapTenant   string
	bootstrapName     string
	bootstrapEmail    string
	bootstrapPassword string
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create a firm and its first admin user",
	Long: `Create a tenant with default settings and an active admin user.

Example:
  lawdesk bootstrap --tenant "Silva & Souza" --email admin@silva.adv.br --password 'S3cretpass'`,
	RunE: runBootstrap,
}

func init() {
	f := bootstrapCmd.Flags()
	f.StringVar(&bootstrapTenant, "tenant", "", "firm name")
	f.StringVar(&bootstrapName, "name", "Administrator", "admin display name")
	f.StringVar(&bootstrapEmail, "email", "", "admin email")
	f.StringVar(&bootstrapPassword, "password", "", "admin password")
	_ = bootstrapCmd.MarkFlagRequired("tenant")
	_ = bootstrapCmd.MarkFlagRequired("email")
	_ = bootstrapCmd.MarkFlagRequired("password")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	email := strings.ToLower(strings.TrimSpace(bootstrapEmail))
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", bootstrapEmail)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	hash, err := util.HashPassword(bootstrapPassword, cfg.Security.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var tenant models.Tenant
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.New("email already registered")
		}
		tenant = models.Tenant{
			Name:     strings.TrimSpace(bootstrapTenant),
			Slug:     handler.TenantSlug(bootstrapTenant),
			Settings: models.TenantSettings{AlertDaysAhead: notify.DefaultDaysAhead},
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		return tx.Create(&models.User{
			TenantID:     tenant.ID,
			Email:        email,
			Name:         bootstrapName,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			Active:       true,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	log.Info().Uint("tenant_id", tenant.ID).Str("slug", tenant.Slug).Str("email", email).Msg("tenant created")
	fmt.Fprintf(cmd.OutOrStdout(), "tenant %d (%s) created, admin %s\n", tenant.ID, tenant.Slug, email)
	return nil
}
