// Package tesseract recognizes text in-process through libtesseract.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/paperia/internal/ocr"
)

// Engine wraps one gosseract client. The client is not safe for concurrent
// use, so recognitions are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *slog.Logger
}

// New loads the language models once; call Close when done.
func New(cfg ocr.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataDir); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	langs := strings.Split(cfg.Languages, "+")
	if cfg.Languages == "" {
		langs = []string{"eng", "ind"}
	}
	if err := c.SetLanguage(langs...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(cfg.PSM)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	logger.Info("gosseract engine ready", "languages", langs, "version", gosseract.Version())
	return &Engine{client: c, logger: logger}, nil
}

func (e *Engine) Name() string { return ocr.EngineGosseract }

func (e *Engine) Recognize(ctx context.Context, path string) ([]string, error) {
	words, _, err := e.RecognizeScored(ctx, path)
	return words, err
}

// RecognizeScored returns word-level fragments and their mean confidence.
func (e *Engine) RecognizeScored(ctx context.Context, path string) ([]string, float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImage(path); err != nil {
		return nil, 0, fmt.Errorf("set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, 0, fmt.Errorf("recognize words: %w", err)
	}

	words := make([]string, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		if w := strings.TrimSpace(b.Word); w != "" {
			words = append(words, w)
			sum += b.Confidence
		}
	}
	if len(words) == 0 {
		return nil, 0, nil
	}
	return words, float32(sum / float64(len(words)) / 100.0), nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
