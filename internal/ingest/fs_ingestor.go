package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/pipeline"
)

// FSIngestor reads from the local filesystem. Files whose content hash
// already belongs to a stored document are skipped.
type FSIngestor struct {
	proc     FileProcessor
	docs     HashLookup
	allowPDF bool
	logger   *slog.Logger

	// hashes currently being processed by another worker
	inflight sync.Map
}

func NewFSIngestor(proc FileProcessor, docs HashLookup, allowPDF bool, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{proc: proc, docs: docs, allowPDF: allowPDF, logger: logger}
}

// IngestPath runs a single file through the pipeline unless its content was
// ingested before.
func (i *FSIngestor) IngestPath(ctx context.Context, path, docType string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	out.SourcePath = abs

	if ext := filepath.Ext(abs); !AllowedExt(ext, i.allowPDF) {
		return out, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrInvalidInput)
	}

	hash, err := pipeline.HashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = hash

	if _, busy := i.inflight.LoadOrStore(hash, struct{}{}); busy {
		i.logger.Info("ingest.dedup", "path", abs, "hash", hash, "reason", "in_flight")
		out.Deduplicated = true
		return out, nil
	}
	defer i.inflight.Delete(hash)

	existing, found, err := i.docs.FindByHash(ctx, hash)
	if err != nil {
		return out, err
	}
	if found {
		i.logger.Info("ingest.dedup", "path", abs, "hash", hash, "document_id", existing.ID)
		out.DocumentID = existing.ID.String()
		out.Deduplicated = true
		return out, nil
	}

	doc, err := i.proc.IngestFile(ctx, abs, docType)
	if err != nil {
		i.logger.Error("ingest.file.failed", "path", abs, "err", err)
		return out, err
	}
	out.DocumentID = doc.ID.String()
	i.logger.Info("ingest.file.ok", "path", abs, "document_id", doc.ID, "doc_type", docType)
	return out, nil
}
