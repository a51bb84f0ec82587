package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lawdesk/internal/backup"
	"lawdesk/internal/database"
	"lawdesk/internal/models"
)

var backupTenant uint

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write an encrypted snapshot of one tenant to the backup dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureDir(cfg.Backup.Dir); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		var admin models.User
		if err := db.Where("tenant_id = ? AND role = ?", backupTenant, models.RoleAdmin).
			Order("id ASC").First(&admin).Error; err != nil {
			return fmt.Errorf("find tenant admin: %w", err)
		}

		b, err := backup.Create(cmd.Context(), db, cfg.Security.EncryptionKey, cfg.Backup.Dir, backupTenant, admin.ID)
		if err != nil {
			return err
		}
		log.Info().Uint("tenant_id", backupTenant).Str("file", b.FilePath).Int64("size", b.Size).Msg("backup written")
		fmt.Fprintln(cmd.OutOrStdout(), b.FilePath)
		return nil
	},
}

var backupInspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Decrypt a backup file and print its row counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		snap, err := backup.Unseal(cfg.Security.EncryptionKey, data)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "tenant\t%d\n", snap.TenantID)
		fmt.Fprintf(tw, "created\t%s\n", snap.Created.Format("2006-01-02 15:04:05"))
		for _, row := range []struct {
			name string
			n    int
		}{
			{"users", len(snap.Users)},
			{"clients", len(snap.Clients)},
			{"contacts", len(snap.Contacts)},
			{"matters", len(snap.Matters)},
			{"deadlines", len(snap.Deadlines)},
			{"hearings", len(snap.Hearings)},
			{"documents", len(snap.Documents)},
			{"time entries", len(snap.TimeEntries)},
			{"invoices", len(snap.Invoices)},
			{"payments", len(snap.Payments)},
			{"transactions", len(snap.Transactions)},
		} {
			fmt.Fprintf(tw, "%s\t%d\n", row.name, row.n)
		}
		return tw.Flush()
	},
}

func init() {
	backupCmd.Flags().UintVar(&backupTenant, "tenant", 0, "tenant id")
	_ = backupCmd.MarkFlagRequired("tenant")
	backupCmd.AddCommand(backupInspectCmd)
}
