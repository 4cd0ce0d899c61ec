package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/paperia/constants"
)

var rePageNum = regexp.MustCompile(`(?:page_|_)(\d+)_`)

// extractPDF OCRs the images embedded in a scanned PDF. PDFs without page
// images are handed to pdftotext.
func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF}

	if err := os.MkdirAll(e.cfg.ArtifactCacheDir, 0o755); err != nil {
		return res, err
	}
	tmpDir, err := os.MkdirTemp(e.cfg.ArtifactCacheDir, "pdf-*")
	if err != nil {
		return res, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	var images []string
	if err := api.ExtractImagesFile(path, tmpDir, nil, nil); err != nil {
		res.Warnings = append(res.Warnings, "image extraction: "+err.Error())
		e.logger.Warn("pdf image extraction failed, falling back to text", "path", path, "error", err)
	} else {
		images = collectPageImages(tmpDir)
	}
	if e.cfg.MaxPages > 0 && len(images) > e.cfg.MaxPages {
		images = images[:e.cfg.MaxPages]
	}

	if len(images) == 0 {
		return e.pdfToText(ctx, path, res)
	}

	var (
		parts   []string
		confSum float32
	)
	for _, img := range images {
		text, conf, err := e.recognize(ctx, img)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", filepath.Base(img), err))
			continue
		}
		confSum += conf
		if text != "" {
			parts = append(parts, text)
		}
	}
	res.Method = "pdf-ocr"
	res.Pages = len(images)
	res.Text = strings.Join(parts, "\n")
	res.Confidence = blendConfidence(confSum/float32(len(images)), heuristicConfidence(res.Text))
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string, res ExtractionResult) (ExtractionResult, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		res.Warnings = append(res.Warnings, string(errb))
		return res, fmt.Errorf("pdftotext: %w", err)
	}
	text := string(out)
	res.Method = "pdf-text"
	res.Pages = 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	res.Text = strings.TrimSpace(strings.ReplaceAll(text, "\f", "\n"))
	res.Confidence = heuristicConfidence(res.Text)
	return res, nil
}

// collectPageImages lists extracted images ordered by page number, then name.
func collectPageImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	type pageImage struct {
		page int
		path string
	}
	var imgs []pageImage
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		ext := constants.NormalizeExt(filepath.Ext(ent.Name()))
		if constants.MapExtToFormat(ext) != constants.IMAGE {
			continue
		}
		page := 0
		if m := rePageNum.FindStringSubmatch(ent.Name()); m != nil {
			page, _ = strconv.Atoi(m[1])
		}
		imgs = append(imgs, pageImage{page: page, path: filepath.Join(dir, ent.Name())})
	}
	sort.Slice(imgs, func(i, j int) bool {
		if imgs[i].page != imgs[j].page {
			return imgs[i].page < imgs[j].page
		}
		return imgs[i].path < imgs[j].path
	})
	out := make([]string, len(imgs))
	for i, img := range imgs {
		out[i] = img.path
	}
	return out
}
