// Package detection talks to an object-detection inference service and
// combines its boxes with OCR for item scanning and goods receipt checks.
package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/paperia/internal/common"
)

type Config struct {
	URL           string
	Timeout       time.Duration
	MinConfidence float64
}

// Detection is one labeled bounding box, in pixel coordinates of the
// submitted image: left, top, right, bottom.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
}

type Detector interface {
	Detect(ctx context.Context, imagePath string) ([]Detection, error)
}

// Client posts images as multipart field "image" and expects
// {"detections":[{"label","confidence","box"}]} back.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

var _ Detector = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

func (c *Client) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	if c.cfg.URL == "" {
		return nil, common.NewAppError("DETECTION_NOT_CONFIGURED", "detection service url is not set", common.ErrUnavailable)
	}
	start := time.Now()

	body, contentType, err := multipartImage(imagePath)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("detection.http_error", "path", imagePath, "error", err)
		return nil, common.NewAppError("DETECTION_UNAVAILABLE", err.Error(), errors.Join(common.ErrUnavailable, err))
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("detection response body close error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		c.log.Error("detection.rejected", "path", imagePath, "status", resp.StatusCode, "body", truncate(string(raw), 300))
		return nil, common.NewAppError("DETECTION_FAILED", fmt.Sprintf("detection service status %d", resp.StatusCode), common.ErrUnavailable)
	}

	var out struct {
		Detections []Detection `json:"detections"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}

	kept := out.Detections[:0]
	for _, d := range out.Detections {
		if d.Confidence >= c.cfg.MinConfidence {
			kept = append(kept, d)
		}
	}
	c.log.Info("detection.ok", "path", imagePath, "detections", len(out.Detections), "kept", len(kept),
		"elapsed_ms", time.Since(start).Milliseconds())
	return kept, nil
}

func multipartImage(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
