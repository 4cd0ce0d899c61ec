package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/paperia/internal/export"
)

var (
	exportOut  string
	exportFrom string
	exportTo   string
	exportOrg  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored invoices and their line items to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := flagDate("from", exportFrom)
		if err != nil {
			return err
		}
		to, err := flagDate("to", exportTo)
		if err != nil {
			return err
		}
		orgID := uuid.Nil
		if exportOrg != "" {
			if orgID, err = uuid.Parse(exportOrg); err != nil {
				return fmt.Errorf("--org must be a UUID: %w", err)
			}
		}

		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		xlsx, err := export.NewService(db.Queries().Invoices, logger).ExportInvoicesXLSX(cmd.Context(), orgID, from, to)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOut, xlsx, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", exportOut, len(xlsx))
		return nil
	},
}

func flagDate(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD", name)
	}
	return &t, nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "invoices.xlsx", "output file")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first invoice date, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last invoice date, YYYY-MM-DD (defaults to today when --from is set)")
	exportCmd.Flags().StringVar(&exportOrg, "org", "", "organization UUID (all organizations when empty)")
	rootCmd.AddCommand(exportCmd)
}
