package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/paperia/internal/app"
	"github.com/joseph-ayodele/paperia/internal/ingest"
)

var (
	ingestDocType    string
	ingestWorkers    int
	ingestSkipHidden bool

	watchInitialScan bool
	watchDebounce    time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "OCR every scan under a directory into documents awaiting review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		a, err := app.Open(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		results, stats, err := a.Ingestor.IngestDirectory(cmd.Context(), args[0], ingest.DirOptions{
			DocType:    ingestDocType,
			SkipHidden: ingestSkipHidden,
			Workers:    ingestWorkers,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range results {
			switch {
			case r.Err != "":
				_, _ = fmt.Fprintf(out, "FAIL  %s: %v\n", r.SourcePath, r.Err)
			case r.Deduplicated:
				_, _ = fmt.Fprintf(out, "DUP   %s -> %s\n", r.SourcePath, r.DocumentID)
			default:
				_, _ = fmt.Fprintf(out, "OK    %s -> %s\n", r.SourcePath, r.DocumentID)
			}
		}
		_, _ = fmt.Fprintf(out, "scanned=%d matched=%d succeeded=%d deduplicated=%d failed=%d\n",
			stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
		if stats.Failed > 0 {
			return fmt.Errorf("%d file(s) failed", stats.Failed)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Ingest scans as they appear under one or more directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("watching for new scans", "roots", args, "doc_type", ingestDocType)
		err = a.Ingestor.Watch(ctx, ingest.WatchConfig{
			Roots:       args,
			InitialScan: watchInitialScan,
			Debounce:    watchDebounce,
		}, ingestDocType, ingestWorkers)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{ingestCmd, watchCmd} {
		c.Flags().StringVar(&ingestDocType, "doc-type", "invoice", "document type recorded on every ingested file")
		c.Flags().IntVar(&ingestWorkers, "workers", 4, "concurrent OCR workers")
	}
	ingestCmd.Flags().BoolVar(&ingestSkipHidden, "skip-hidden", true, "skip dot-files and dot-directories")
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", true, "ingest files already present before watching")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(ingestCmd, watchCmd)
}
