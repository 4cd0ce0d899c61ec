// Package ingest feeds files from the local filesystem into the upload
// pipeline, either as a one-off directory batch or by watching directories.
package ingest

import (
	"context"

	"github.com/joseph-ayodele/paperia/internal/entity"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	DocumentID   string
	Deduplicated bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// FileProcessor runs one file through preprocessing, OCR and correction and
// stores the resulting document.
type FileProcessor interface {
	IngestFile(ctx context.Context, path, docType string) (*entity.Document, error)
}

// HashLookup finds an already stored document by content hash.
type HashLookup interface {
	FindByHash(ctx context.Context, hash string) (*entity.Document, bool, error)
}
