// Package ocr turns cleaned scans into text. The recognition itself is
// delegated to an Engine; the Extractor joins the engine's fragments and
// handles PDF inputs.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/paperia/constants"
)

const (
	EngineTesseractCLI = "tesseract-cli"
	EngineGosseract    = "gosseract"
	EngineAzure        = "azure"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"

	Languages   string // tesseract language spec, default "eng+ind"
	TessdataDir string
	PSM         int // 0 leaves tesseract's default
	OEM         int

	MaxPages         int // 0 = no limit
	ArtifactCacheDir string
}

// Engine recognizes the text fragments of a single image, in the engine's
// own scan order.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, path string) ([]string, error)
}

// scoredEngine is implemented by engines that report a mean word
// confidence in 0..1 alongside the fragments.
type scoredEngine interface {
	RecognizeScored(ctx context.Context, path string) ([]string, float32, error)
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "image-ocr" | "pdf-ocr" | "pdf-text"
	Engine     string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Extractor struct {
	cfg    Config
	engine Engine
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithEngine replaces the default tesseract CLI engine.
func WithEngine(engine Engine) Option {
	return func(e *Extractor) { e.engine = engine }
}

// WithRunner replaces the host command runner, for the CLI engine and pdftotext.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng+ind"
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = "./tmp"
	}
	e := &Extractor{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = ExecRunner{Logger: logger}
	}
	if e.engine == nil {
		e.engine = NewCLIEngine(cfg, e.runner, logger)
	}
	return e
}

// EngineName reports which engine recognizes images.
func (e *Extractor) EngineName() string { return e.engine.Name() }

// ExtractText runs the engine over a cleaned image and joins every detected
// fragment with a single space. No detections yield an empty string; engine
// errors are returned unchanged.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	fragments, err := e.engine.Recognize(ctx, path)
	if err != nil {
		return "", err
	}
	return joinFragments(fragments), nil
}

// Extract picks a strategy based on file extension and reports how the text
// was obtained.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "engine", e.engine.Name(), "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	res.Engine = e.engine.Name()
	res.Duration = time.Since(start)
	return res, err
}

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.IMAGE, Method: "image-ocr", Pages: 1}
	text, engineConf, err := e.recognize(ctx, path)
	if err != nil {
		return res, err
	}
	res.Text = text
	res.Confidence = blendConfidence(engineConf, heuristicConfidence(text))
	return res, nil
}

func (e *Extractor) recognize(ctx context.Context, path string) (string, float32, error) {
	if se, ok := e.engine.(scoredEngine); ok {
		fragments, conf, err := se.RecognizeScored(ctx, path)
		if err != nil {
			return "", 0, err
		}
		return joinFragments(fragments), conf, nil
	}
	fragments, err := e.engine.Recognize(ctx, path)
	if err != nil {
		return "", 0, err
	}
	return joinFragments(fragments), 0, nil
}

func joinFragments(fragments []string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
