// Package azure recognizes printed text with Azure Computer Vision.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/joseph-ayodele/paperia/internal/ocr"
)

// recognizer is the slice of the computervision client the engine calls.
type recognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, imageParameter io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

type Engine struct {
	client recognizer
	lang   computervision.OcrLanguages
	logger *slog.Logger
}

// New builds an engine against endpoint authenticated with a cognitive
// services key. language is an Azure OCR language code; empty means "unk"
// (auto-detect).
func New(endpoint, key, language string, logger *slog.Logger) *Engine {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(key)
	return newEngine(&client, language, logger)
}

func newEngine(client recognizer, language string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	lang := computervision.OcrLanguagesUnk
	if language != "" {
		lang = computervision.OcrLanguages(language)
	}
	return &Engine{client: client, lang: lang, logger: logger}
}

func (e *Engine) Name() string { return ocr.EngineAzure }

// Recognize returns one fragment per detected line, region by region.
func (e *Engine) Recognize(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	result, err := e.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(data)), e.lang)
	if err != nil {
		e.logger.Error("azure ocr failed", "path", path, "error", err)
		return nil, fmt.Errorf("azure ocr: %w", err)
	}
	lines := linesFromResult(result)
	e.logger.Debug("azure ocr ok", "path", path, "lines", len(lines))
	return lines, nil
}

func linesFromResult(result computervision.OcrResult) []string {
	if result.Regions == nil {
		return nil
	}
	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var b strings.Builder
			for _, word := range *line.Words {
				if word.Text == nil {
					continue
				}
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(*word.Text)
			}
			if b.Len() > 0 {
				lines = append(lines, b.String())
			}
		}
	}
	return lines
}
