package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/paperia/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", db.Dialect())
		return nil
	},
}

var dbhealthTimeout time.Duration

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Ping the database and report recent document counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repository.HealthCheck(cmd.Context(), db, dbhealthTimeout, logger); err != nil {
			return fmt.Errorf("DB health: FAIL (%w)", err)
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, "DB health: OK")

		docs, err := db.Queries().Documents.List(cmd.Context(), repository.DocumentFilter{})
		if err != nil {
			return err
		}
		reviewed := 0
		for _, d := range docs {
			if d.Reviewed() {
				reviewed++
			}
		}
		_, _ = fmt.Fprintf(out, "documents: %d (%d reviewed)\n", len(docs), reviewed)
		return nil
	},
}

func init() {
	dbhealthCmd.Flags().DurationVar(&dbhealthTimeout, "timeout", 2*time.Second, "ping timeout")
	rootCmd.AddCommand(migrateCmd, dbhealthCmd)
}
