package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/imageprep"
	"github.com/joseph-ayodele/paperia/internal/ocr"
	"github.com/joseph-ayodele/paperia/internal/repository"
)

type stubPrep struct {
	calls []string
	err   error
}

func (s *stubPrep) Run(path string) (imageprep.Result, error) {
	s.calls = append(s.calls, path)
	if s.err != nil {
		return imageprep.Result{}, s.err
	}
	return imageprep.Result{Preprocessed: path + ".pre", Cleaned: path + ".clean.png"}, nil
}

type stubOCR struct {
	text  string
	err   error
	paths []string
}

func (s *stubOCR) Extract(_ context.Context, path string) (ocr.ExtractionResult, error) {
	s.paths = append(s.paths, path)
	if s.err != nil {
		return ocr.ExtractionResult{}, s.err
	}
	return ocr.ExtractionResult{Text: s.text, Method: "image-ocr", Pages: 1, Confidence: 0.9}, nil
}

type upperCorrector struct{}

func (upperCorrector) Correct(text string) (string, string) {
	return strings.ToUpper(text), constants.LanguageEnglish
}

type fixture struct {
	proc *Processor
	prep *stubPrep
	ocr  *stubOCR
	db   *repository.DB
	dir  string
}

func newFixture(t *testing.T, allowPDF bool) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	db, err := repository.Open(context.Background(), repository.Config{DSN: "sqlite://" + filepath.Join(dir, "pipeline.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))

	f := &fixture{prep: &stubPrep{}, ocr: &stubOCR{text: "invoice total 10"}, db: db, dir: dir}
	f.proc = NewProcessor(Config{UploadDir: filepath.Join(dir, "uploads"), AllowPDF: allowPDF},
		f.prep, f.ocr, upperCorrector{}, db.Queries().Documents, logger)
	return f
}

func (f *fixture) documents(t *testing.T) int {
	t.Helper()
	docs, err := f.db.Queries().Documents.List(context.Background(), repository.DocumentFilter{})
	require.NoError(t, err)
	return len(docs)
}

func TestIngest_CreatesDocumentAwaitingReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	doc, err := f.proc.Ingest(ctx, Upload{Filename: "invoice_scan.jpg", DocType: "invoice", Content: strings.NewReader("fake-jpeg")})
	require.NoError(t, err)

	assert.Equal(t, constants.DocumentAwaitingReview, doc.Status)
	assert.Equal(t, "invoice total 10", doc.RawText)
	assert.Equal(t, "INVOICE TOTAL 10", doc.CorrectedText)
	assert.Equal(t, constants.LanguageEnglish, doc.LabeledText)
	assert.Empty(t, doc.ManualCorrectedText)
	assert.Len(t, doc.ContentHash, 64)

	// the cleaned image, not the upload, is what gets OCRed
	require.Len(t, f.prep.calls, 1)
	assert.Equal(t, doc.StoredPath, f.prep.calls[0])
	assert.Equal(t, []string{doc.StoredPath + ".clean.png"}, f.ocr.paths)

	saved, err := os.ReadFile(doc.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, "fake-jpeg", string(saved))

	stored, err := f.db.Queries().Documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.CorrectedText, stored.CorrectedText)
	assert.Equal(t, "invoice", stored.DocType)
	assert.Equal(t, doc.CorrectedText, stored.EffectiveText())
}

func TestIngest_RejectsAndLeavesNoRow(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		setup    func(f *fixture)
		wantErr  error
	}{
		{name: "no file", filename: "", wantErr: common.ErrInvalidInput},
		{name: "unsupported extension", filename: "notes.txt", wantErr: common.ErrInvalidInput},
		{name: "pdf disabled", filename: "scan.pdf", wantErr: common.ErrInvalidInput},
		{
			name:     "preprocess failure",
			filename: "scan.png",
			setup:    func(f *fixture) { f.prep.err = errors.New("decode failed") },
		},
		{
			name:     "ocr failure",
			filename: "scan.png",
			setup:    func(f *fixture) { f.ocr.err = errors.New("engine crashed") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.proc.Ingest(context.Background(), Upload{Filename: tt.filename, Content: strings.NewReader("x")})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Zero(t, f.documents(t))
		})
	}
}

func TestIngest_PDFSkipsImagePreprocessing(t *testing.T) {
	f := newFixture(t, true)

	doc, err := f.proc.Ingest(context.Background(), Upload{Filename: "statement.PDF", DocType: "invoice", Content: strings.NewReader("%PDF-1.4")})
	require.NoError(t, err)
	assert.Empty(t, f.prep.calls)
	assert.Equal(t, []string{doc.StoredPath}, f.ocr.paths)
}

func TestIngestFile_HashMatchesHashFile(t *testing.T) {
	f := newFixture(t, false)
	src := filepath.Join(f.dir, "receipt.png")
	require.NoError(t, os.WriteFile(src, []byte("png-bytes"), 0o600))

	doc, err := f.proc.IngestFile(context.Background(), src, "invoice")
	require.NoError(t, err)

	hash, err := HashFile(src)
	require.NoError(t, err)
	assert.Equal(t, hash, doc.ContentHash)
	assert.Equal(t, "receipt.png", doc.Filename)
}
