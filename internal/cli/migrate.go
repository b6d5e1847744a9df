package cli

import (
	"fmt"

	"estate-backend/internal/infrastructure/database"

	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}
	cmd.AddCommand(migrateUpCmd(), migrateDownCmd(), migrateStatusCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, sqlite, err := openDB(cmd)
			if err != nil {
				return err
			}
			if sqlite {
				if err := database.AutoMigrate(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "sqlite schema up to date")
				return nil
			}
			results, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s (%s)\n", r.Source.Path, r.Duration)
			}
			return nil
		},
	}
}

func migrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, sqlite, err := openDB(cmd)
			if err != nil {
				return err
			}
			if sqlite {
				return fmt.Errorf("down is not supported in sqlite mode")
			}
			r, err := database.Rollback(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", r.Source.Path)
			return nil
		},
	}
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status of all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, sqlite, err := openDB(cmd)
			if err != nil {
				return err
			}
			if sqlite {
				return fmt.Errorf("status is not supported in sqlite mode")
			}
			statuses, err := database.MigrationStatus(cmd.Context(), db)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s  %-40s  %-8s\n", "Version", "File", "Status")
			for _, s := range statuses {
				fmt.Fprintf(out, "%-10d  %-40s  %-8s\n", s.Source.Version, s.Source.Path, s.State)
			}
			return nil
		},
	}
}
