package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/entity"
)

// DocumentFilter narrows a document listing. Zero values disable a filter.
type DocumentFilter struct {
	From         *time.Time
	To           *time.Time
	DocType      string
	ReviewedOnly bool // only documents carrying a manual correction
	Limit        int
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	FindByHash(ctx context.Context, hash string) (*entity.Document, bool, error)
	List(ctx context.Context, filter DocumentFilter) ([]*entity.Document, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, text string, at time.Time) error
}

var documentColumns = []string{
	"id", "filename", "stored_path", "content_hash", "raw_text", "corrected_text",
	"labeled_text", "manual_corrected_text", "doc_type", "status", "ocr_confidence",
	"created_at", "reviewed_at",
}

type documentRepository struct {
	q      dialect.ExecQuerier
	b      *entsql.DialectBuilder
	logger *slog.Logger
}

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = constants.DocumentUploaded
	}

	query, args := r.b.Insert("documents").
		Columns(documentColumns...).
		Values(
			doc.ID.String(), doc.Filename, doc.StoredPath, doc.ContentHash, doc.RawText,
			doc.CorrectedText, doc.LabeledText, doc.ManualCorrectedText, doc.DocType,
			string(doc.Status), doc.OCRConfidence, doc.CreatedAt, nullTime(doc.ReviewedAt),
		).
		Query()
	if err := r.q.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create document", "filename", doc.Filename, "error", err)
		return fmt.Errorf("%w: create document: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	docs, err := r.selectDocs(ctx, r.b.Select(documentColumns...).
		From(r.b.Table("documents")).
		Where(entsql.EQ("id", id.String())).
		Limit(1))
	if err != nil {
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, err
	}
	if len(docs) == 0 {
		return nil, common.NewAppError("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %s", id), common.ErrNotFound)
	}
	return docs[0], nil
}

func (r *documentRepository) FindByHash(ctx context.Context, hash string) (*entity.Document, bool, error) {
	docs, err := r.selectDocs(ctx, r.b.Select(documentColumns...).
		From(r.b.Table("documents")).
		Where(entsql.EQ("content_hash", hash)).
		OrderBy(entsql.Asc("created_at")).
		Limit(1))
	if err != nil {
		r.logger.Error("failed to look up document by hash", "hash", hash, "error", err)
		return nil, false, err
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return docs[0], true, nil
}

func (r *documentRepository) List(ctx context.Context, filter DocumentFilter) ([]*entity.Document, error) {
	s := r.b.Select(documentColumns...).From(r.b.Table("documents"))
	if filter.From != nil {
		s.Where(entsql.GTE("created_at", *filter.From))
	}
	if filter.To != nil {
		s.Where(entsql.LTE("created_at", *filter.To))
	}
	if filter.DocType != "" {
		s.Where(entsql.EQ("doc_type", filter.DocType))
	}
	if filter.ReviewedOnly {
		s.Where(entsql.NEQ("manual_corrected_text", ""))
	}
	s.OrderBy(entsql.Desc("created_at"))
	if filter.Limit > 0 {
		s.Limit(filter.Limit)
	}

	docs, err := r.selectDocs(ctx, s)
	if err != nil {
		r.logger.Error("failed to list documents", "doc_type", filter.DocType, "error", err)
		return nil, err
	}
	return docs, nil
}

// MarkReviewed stores the manual correction and moves the document to the
// terminal state. It only succeeds from awaiting_review.
func (r *documentRepository) MarkReviewed(ctx context.Context, id uuid.UUID, text string, at time.Time) error {
	query, args := r.b.Update("documents").
		Set("manual_corrected_text", text).
		Set("status", string(constants.DocumentReviewed)).
		Set("reviewed_at", at).
		Where(entsql.And(
			entsql.EQ("id", id.String()),
			entsql.EQ("status", string(constants.DocumentAwaitingReview)),
		)).
		Query()
	n, err := execAffected(ctx, r.q, query, args)
	if err != nil {
		r.logger.Error("failed to mark document reviewed", "document_id", id, "error", err)
		return fmt.Errorf("%w: mark reviewed: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return common.NewAppError("DOCUMENT_NOT_REVIEWABLE", fmt.Sprintf("document %s is not awaiting review", id), common.ErrConflict)
	}
	return nil
}

func (r *documentRepository) selectDocs(ctx context.Context, s *entsql.Selector) ([]*entity.Document, error) {
	query, args := s.Query()
	var out []*entity.Document
	err := queryEach(ctx, r.q, query, args, func(rows *entsql.Rows) error {
		var (
			d                                    entity.Document
			corrected, labeled, docType, status *string
		)
		if err := rows.Scan(
			&d.ID, &d.Filename, &d.StoredPath, &d.ContentHash, &d.RawText, &corrected,
			&labeled, &d.ManualCorrectedText, &docType, &status, &d.OCRConfidence,
			&d.CreatedAt, &d.ReviewedAt,
		); err != nil {
			return err
		}
		d.CorrectedText = deref(corrected)
		d.LabeledText = deref(labeled)
		d.DocType = deref(docType)
		d.Status = constants.DocumentStatus(deref(status))
		out = append(out, &d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
