// Package cmd holds the lawdesk command line: the HTTP server plus the
// maintenance commands that share its configuration.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"lawdesk/internal/config"
	"lawdesk/internal/database"
	"lawdesk/internal/logger"
)

var version = "dev"

var (
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lawdesk",
	Short: "Multi-tenant practice management API for law firms",
	Long: `lawdesk serves the practice management API (clients, matters,
documents, time, invoices, finance) and carries the maintenance commands
that operate on the same database.

Configuration is read from config.yaml (or --config) and can be overridden
with LAWDESK_* environment variables, e.g. LAWDESK_SERVER_PORT=9000.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if _, err := logger.Setup(cfg.Log); err != nil {
			return fmt.Errorf("setup logger: %w", err)
		}
		log = logger.WithComponent(cmd.Name())
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lawdesk: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(backupCmd)
}

// openDB creates the data directory, opens the database and migrates it.
func openDB() (*gorm.DB, error) {
	if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := database.Init(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
