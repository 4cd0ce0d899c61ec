// Package imageprep normalizes uploaded scans before OCR. Every stage writes
// its output into a dedicated directory keyed by the input's base name, so
// repeated runs on the same input overwrite deterministically.
package imageprep

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

const (
	contrastGain  = 1.5
	brightnessAdd = 50
)

var (
	blurKernel  = image.Pt(5, 5)
	closeKernel = image.Pt(3, 3)

	errUnreadable = errors.New("not a readable image")
)

type Config struct {
	PreprocessedDir string
	CleanedDir      string
}

// Result holds the paths written by Run.
type Result struct {
	Preprocessed string
	Cleaned      string
}

type Preprocessor struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PreprocessedDir == "" {
		cfg.PreprocessedDir = "preprocessed_uploads"
	}
	if cfg.CleanedDir == "" {
		cfg.CleanedDir = "cleaned_uploads"
	}
	return &Preprocessor{cfg: cfg, logger: logger}
}

// Run preprocesses path and then cleans the preprocessed output.
func (p *Preprocessor) Run(path string) (Result, error) {
	pre, err := p.Preprocess(path)
	if err != nil {
		return Result{}, err
	}
	cleaned, err := p.Clean(pre)
	if err != nil {
		return Result{}, err
	}
	return Result{Preprocessed: pre, Cleaned: cleaned}, nil
}

// Preprocess converts the scan to grayscale, lifts brightness and contrast
// and equalizes the histogram.
func (p *Preprocessor) Preprocess(path string) (string, error) {
	gray, err := readGray(path)
	if err != nil {
		return "", err
	}
	defer gray.Close()

	bright := gocv.NewMat()
	defer bright.Close()
	gocv.ConvertScaleAbs(gray, &bright, contrastGain, brightnessAdd)

	out := gocv.NewMat()
	defer out.Close()
	gocv.EqualizeHist(bright, &out)

	dst, err := p.write(p.cfg.PreprocessedDir, "preprocessed_", path, out)
	if err != nil {
		return "", err
	}
	p.logger.Debug("imageprep.preprocess.ok", "input", path, "output", dst)
	return dst, nil
}

// Clean binarizes a preprocessed image: 5x5 gaussian blur, Otsu threshold
// (inverted so text is foreground), 3x3 morphological close, then back to
// dark text on a light background.
func (p *Preprocessor) Clean(path string) (string, error) {
	gray, err := readGray(path)
	if err != nil {
		return "", err
	}
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, blurKernel, 0, 0, gocv.BorderDefault)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(blurred, &mask, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, closeKernel)
	defer kernel.Close()
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(mask, &closed, gocv.MorphClose, kernel)

	out := gocv.NewMat()
	defer out.Close()
	gocv.BitwiseNot(closed, &out)

	dst, err := p.write(p.cfg.CleanedDir, "cleaned_", path, out)
	if err != nil {
		return "", err
	}
	p.logger.Debug("imageprep.clean.ok", "input", path, "output", dst)
	return dst, nil
}

// readGray loads path as a single-channel image. The caller closes it.
func readGray(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		_ = img.Close()
		return img, fmt.Errorf("open %s: %w", path, errUnreadable)
	}
	return img, nil
}

func (p *Preprocessor) write(dir, prefix, src string, img gocv.Mat) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	dst := filepath.Join(dir, prefix+filepath.Base(src))
	if ok := gocv.IMWrite(dst, img); !ok {
		p.logger.Error("failed to write image", "path", dst)
		return "", fmt.Errorf("save %s: encoder rejected image", dst)
	}
	return dst, nil
}
