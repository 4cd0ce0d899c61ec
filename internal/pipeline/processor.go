// Package pipeline runs an upload through preprocessing, OCR and spelling
// correction and stores the result as a document awaiting review.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/entity"
	"github.com/joseph-ayodele/paperia/internal/imageprep"
	"github.com/joseph-ayodele/paperia/internal/ocr"
	"github.com/joseph-ayodele/paperia/internal/repository"
)

type Preprocessor interface {
	Run(path string) (imageprep.Result, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

type Corrector interface {
	Correct(text string) (string, string)
}

type Config struct {
	UploadDir string
	AllowPDF  bool
}

// Upload is one incoming file.
type Upload struct {
	Filename string
	DocType  string
	Content  io.Reader
}

// Processor coordinates preprocessing, OCR and correction. Nothing is
// persisted until every stage succeeded, so a failed upload leaves no row.
type Processor struct {
	cfg       Config
	prep      Preprocessor
	ocr       TextExtractor
	corrector Corrector
	docs      repository.DocumentRepository
	logger    *slog.Logger
}

func NewProcessor(cfg Config, prep Preprocessor, ocr TextExtractor, corrector Corrector,
	docs repository.DocumentRepository, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	return &Processor{cfg: cfg, prep: prep, ocr: ocr, corrector: corrector, docs: docs, logger: logger}
}

// Ingest stores the upload, runs every stage inline and creates the
// document in awaiting_review.
func (p *Processor) Ingest(ctx context.Context, up Upload) (*entity.Document, error) {
	name := filepath.Base(strings.TrimSpace(up.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, common.NewAppError("INVALID_UPLOAD", "no file selected", common.ErrInvalidInput)
	}
	ext := constants.NormalizeExt(filepath.Ext(name))
	if !constants.AllowedUpload(ext, p.cfg.AllowPDF) {
		return nil, common.NewAppError("INVALID_UPLOAD", fmt.Sprintf("file type %q is not allowed", ext), common.ErrInvalidInput)
	}

	doc := &entity.Document{
		ID:       uuid.New(),
		Filename: name,
		DocType:  strings.TrimSpace(up.DocType),
	}
	stored, hash, err := p.save(doc.ID, name, up.Content)
	if err != nil {
		return nil, err
	}
	doc.StoredPath = stored
	doc.ContentHash = hash
	p.logger.Info("pipeline.upload.saved", "document_id", doc.ID, "path", stored, "doc_type", doc.DocType)

	if err := p.process(ctx, doc, ext); err != nil {
		return nil, err
	}
	if err := p.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.document.ok",
		"document_id", doc.ID,
		"language", doc.LabeledText,
		"status", doc.Status,
	)
	return doc, nil
}

// IngestFile runs a file already on disk through Ingest.
func (p *Processor) IngestFile(ctx context.Context, path, docType string) (*entity.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return p.Ingest(ctx, Upload{Filename: filepath.Base(path), DocType: docType, Content: f})
}

func (p *Processor) process(ctx context.Context, doc *entity.Document, ext string) error {
	source := doc.StoredPath
	if constants.MapExtToFormat(ext) == constants.IMAGE {
		prepared, err := p.prep.Run(doc.StoredPath)
		if err != nil {
			p.logger.Error("pipeline.preprocess.failed", "document_id", doc.ID, "err", err)
			return fmt.Errorf("preprocess: %w", err)
		}
		source = prepared.Cleaned
		p.logger.Debug("pipeline.preprocess.ok", "document_id", doc.ID, "cleaned", prepared.Cleaned)
	}

	res, err := p.ocr.Extract(ctx, source)
	if err != nil {
		p.logger.Error("pipeline.ocr.failed", "document_id", doc.ID, "err", err)
		return fmt.Errorf("ocr: %w", err)
	}
	p.logger.Info("pipeline.ocr.ok",
		"document_id", doc.ID,
		"method", res.Method,
		"engine", res.Engine,
		"pages", res.Pages,
		"confidence", res.Confidence,
		"duration", res.Duration,
	)
	if res.Confidence > 0 && res.Confidence < ocr.ImageConfidenceThreshold {
		p.logger.Warn("pipeline.ocr.low_confidence", "document_id", doc.ID, "confidence", res.Confidence)
	}

	corrected, label := p.corrector.Correct(res.Text)
	p.logger.Info("pipeline.correct.ok", "document_id", doc.ID, "language", label)

	doc.RawText = res.Text
	doc.CorrectedText = corrected
	doc.LabeledText = label
	doc.OCRConfidence = float64(res.Confidence)
	doc.Status = constants.DocumentAwaitingReview
	doc.CreatedAt = time.Now().UTC()
	return nil
}

// save copies content into the upload directory as "<id>_<name>" and
// returns the path and the sha256 of the bytes written.
func (p *Processor) save(id uuid.UUID, name string, content io.Reader) (string, string, error) {
	if err := os.MkdirAll(p.cfg.UploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(p.cfg.UploadDir, id.String()+"_"+name)
	f, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(f, io.TeeReader(content, h)); err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	return path, hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile returns the sha256 hex digest used to detect repeat ingestion.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
