// Package cli holds the estatectl commands.
package cli

import (
	"errors"

	"estate-backend/internal/config"
	"estate-backend/internal/infrastructure/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// openDB opens the SQLite file named by --sqlite, or the configured Postgres database.
func openDB(cmd *cobra.Command) (*gorm.DB, bool, error) {
	if path, _ := cmd.Flags().GetString("sqlite"); path != "" {
		db, err := database.OpenSQLite(path)
		return db, true, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, false, err
	}
	if cfg.DatabaseURL == "" {
		return nil, false, errors.New("no database configured: set DATABASE_URL or pass --sqlite")
	}
	db, err := database.Open(cfg.DatabaseURL)
	return db, false, err
}

// NewRootCmd builds the estatectl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "estatectl",
		Short:         "Estate backend administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("sqlite", "", "use a local SQLite file instead of Postgres")
	root.AddCommand(MigrateCmd(), SeedCmd(), ImportGitHubCmd())
	return root
}
