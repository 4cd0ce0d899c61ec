package detection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// TextReader recognizes the text in an image file.
type TextReader interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Item is a detected object with the text read from its crop.
type Item struct {
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Coordinates [4]int  `json:"coordinates"`
	Text        string  `json:"text"`
}

type Scanner struct {
	detector Detector
	reader   TextReader
	log      *slog.Logger
}

func NewScanner(detector Detector, reader TextReader, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{detector: detector, reader: reader, log: logger}
}

// ScanAndDetect crops every detected box out of the image and OCRs it.
// Boxes are clamped to the image; boxes with no area are skipped.
func (s *Scanner) ScanAndDetect(ctx context.Context, imagePath string) ([]Item, error) {
	detections, err := s.detector.Detect(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return []Item{}, nil
	}

	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", imagePath, err)
	}
	tmp, err := os.MkdirTemp("", "paperia-crops-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	items := make([]Item, 0, len(detections))
	for i, d := range detections {
		rect := image.Rect(d.Box[0], d.Box[1], d.Box[2], d.Box[3]).Intersect(img.Bounds())
		if rect.Empty() {
			s.log.Debug("detection.scan.empty_box", "label", d.Label, "box", d.Box)
			continue
		}
		crop := imaging.Crop(img, rect)
		cropPath := filepath.Join(tmp, fmt.Sprintf("crop_%02d.png", i))
		if err := imaging.Save(crop, cropPath); err != nil {
			return nil, fmt.Errorf("save crop: %w", err)
		}
		text, err := s.reader.ExtractText(ctx, cropPath)
		if err != nil {
			return nil, fmt.Errorf("ocr crop %d: %w", i, err)
		}
		items = append(items, Item{
			Label:       d.Label,
			Confidence:  d.Confidence,
			Coordinates: [4]int{rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y},
			Text:        strings.TrimSpace(text),
		})
	}
	s.log.Info("detection.scan.ok", "path", imagePath, "items", len(items))
	return items, nil
}

const (
	VerificationSuccess  = "success"
	VerificationMismatch = "mismatch"
)

// Verification is the outcome of checking a delivery against what was ordered.
type Verification struct {
	Status     string      `json:"verification_status"`
	Text       string      `json:"text_verification"`
	Detections []Detection `json:"object_detection"`
	Missing    []string    `json:"missing,omitempty"`
}

// VerifyGoodsReceipt reads the delivery note and detects goods in the same
// image. An expected item counts as received when its name appears in the
// text or equals a detection label, ignoring case.
func (s *Scanner) VerifyGoodsReceipt(ctx context.Context, imagePath string, expected []string) (*Verification, error) {
	text, err := s.reader.ExtractText(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	detections, err := s.detector.Detect(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	haystack := strings.ToLower(text)
	labels := make(map[string]struct{}, len(detections))
	for _, d := range detections {
		labels[strings.ToLower(strings.TrimSpace(d.Label))] = struct{}{}
	}

	v := &Verification{Status: VerificationSuccess, Text: text, Detections: detections}
	for _, item := range expected {
		name := strings.ToLower(strings.TrimSpace(item))
		if name == "" {
			continue
		}
		if _, ok := labels[name]; ok || strings.Contains(haystack, name) {
			continue
		}
		v.Missing = append(v.Missing, item)
	}
	if len(v.Missing) > 0 {
		v.Status = VerificationMismatch
	}
	s.log.Info("detection.verify.done", "path", imagePath, "status", v.Status,
		"expected", len(expected), "missing", len(v.Missing))
	return v, nil
}
