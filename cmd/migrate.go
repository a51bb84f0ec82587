package cmd

import (
	"github.com/spf13/cobra"

	"lawdesk/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		log.Info().Str("path", cfg.Database.Path).Msg("schema up to date")
		return database.Close(db)
	},
}
