package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/app"
	"github.com/joseph-ayodele/paperia/internal/imageprep"
	"github.com/joseph-ayodele/paperia/internal/textcorrect"
)

var (
	ocrPreprocess bool
	ocrCorrect    bool
	ocrFormat     string
)

type ocrOutput struct {
	File       string   `json:"file"`
	Engine     string   `json:"engine"`
	Method     string   `json:"method"`
	Pages      int      `json:"pages"`
	Confidence float32  `json:"confidence"`
	Language   string   `json:"language,omitempty"`
	Text       string   `json:"text"`
	Warnings   []string `json:"warnings,omitempty"`
}

var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Read the text of a single scan without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ocrFormat != "text" && ocrFormat != "json" {
			return fmt.Errorf("unknown format %q (text, json)", ocrFormat)
		}
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		ext, closeOCR, err := app.NewExtractor(cfg.OCR, logger)
		if err != nil {
			return err
		}
		defer func() { _ = closeOCR() }()

		path := args[0]
		if ocrPreprocess && constants.MapExtToFormat(filepath.Ext(path)) == constants.IMAGE {
			res, err := imageprep.New(imageprep.Config{
				PreprocessedDir: cfg.Upload.PreprocessedDir,
				CleanedDir:      cfg.Upload.CleanedDir,
			}, logger).Run(path)
			if err != nil {
				return err
			}
			path = res.Cleaned
		}

		res, err := ext.Extract(cmd.Context(), path)
		if err != nil {
			return err
		}
		out := ocrOutput{
			File:       args[0],
			Engine:     res.Engine,
			Method:     res.Method,
			Pages:      res.Pages,
			Confidence: res.Confidence,
			Text:       res.Text,
			Warnings:   res.Warnings,
		}
		if ocrCorrect {
			corrector, err := textcorrect.New(textcorrect.Config{
				EnglishDictionary:    cfg.Corrector.EnglishDictionary,
				IndonesianDictionary: cfg.Corrector.IndonesianDictionary,
				MaxEditDistance:      cfg.Corrector.MaxEditDistance,
			}, logger)
			if err != nil {
				return err
			}
			out.Text, out.Language = corrector.Correct(out.Text)
		}

		if ocrFormat == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Text)
		return err
	},
}

func init() {
	ocrCmd.Flags().BoolVar(&ocrPreprocess, "preprocess", true, "run the contrast/denoise/threshold stages first (images only)")
	ocrCmd.Flags().BoolVar(&ocrCorrect, "correct", false, "apply language detection and spelling correction")
	ocrCmd.Flags().StringVarP(&ocrFormat, "format", "f", "text", "output format (text, json)")
	rootCmd.AddCommand(ocrCmd)
}
