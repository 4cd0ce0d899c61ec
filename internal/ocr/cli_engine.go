package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// CLIEngine shells out to the tesseract binary and reads its TSV output.
type CLIEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewCLIEngine(cfg Config, runner Runner, logger *slog.Logger) *CLIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng+ind"
	}
	return &CLIEngine{cfg: cfg, runner: runner, logger: logger}
}

func (c *CLIEngine) Name() string { return EngineTesseractCLI }

func (c *CLIEngine) Recognize(ctx context.Context, path string) ([]string, error) {
	words, _, err := c.RecognizeScored(ctx, path)
	return words, err
}

// RecognizeScored returns the recognized words with their mean confidence.
func (c *CLIEngine) RecognizeScored(ctx context.Context, path string) ([]string, float32, error) {
	// tesseract <file> stdout -l <langs> [--psm n] [--oem n] [--tessdata-dir d] tsv
	args := []string{path, "stdout", "-l", c.cfg.Languages}
	if c.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(c.cfg.PSM))
	}
	if c.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(c.cfg.OEM))
	}
	if c.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := c.runner.Run(ctx, c.cfg.Tesseract, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(truncate(string(errb), 512)))
	}
	words, conf := parseTSV(string(out))
	c.logger.Debug("tesseract recognized words", "path", path, "words", len(words), "confidence", conf)
	return words, conf, nil
}

// parseTSV collects word rows (conf != -1, non-empty text) in output order and
// returns their mean confidence in 0..1.
func parseTSV(out string) ([]string, float32) {
	var (
		words []string
		sum   float64
	)
	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr, text := cols[10], strings.TrimSpace(cols[11])
		if text == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
		}
		words = append(words, text)
	}
	if len(words) == 0 {
		return nil, 0
	}
	return words, float32(sum / float64(len(words)) / 100.0)
}
