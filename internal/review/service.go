// Package review moves documents from awaiting_review to reviewed and hands
// the approved text to the record writer.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/entity"
	"github.com/joseph-ayodele/paperia/internal/records"
	"github.com/joseph-ayodele/paperia/internal/repository"
)

// Store is the slice of repository.DB the workflow needs.
type Store interface {
	Queries() *repository.Queries
	InTx(ctx context.Context, fn func(q *repository.Queries) error) error
}

type Service struct {
	store      Store
	writer     *records.Writer
	defaultOrg string
	now        func() time.Time
	logger     *slog.Logger
}

// NewService builds the workflow. defaultOrg names the organization records
// are written for when the request context carries none.
func NewService(store Store, writer *records.Writer, defaultOrg string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultOrg == "" {
		defaultOrg = "Default Organization"
	}
	return &Service{
		store:      store,
		writer:     writer,
		defaultOrg: defaultOrg,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Outcome reports what a successful submission wrote.
type Outcome struct {
	Document *entity.Document
	Record   *records.Result
}

// Get loads a document for the review page.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return s.store.Queries().Documents.GetByID(ctx, id)
}

// Submit approves text for document id. The text is parsed before anything
// is written; the business records and the review mark then commit together.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, text string) (*Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.NewAppError("EMPTY_TEXT", "document text is required", common.ErrInvalidInput)
	}

	doc, err := s.store.Queries().Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Reviewed() {
		return nil, common.NewAppError("ALREADY_REVIEWED", "document was already reviewed", common.ErrConflict)
	}

	rec, err := records.Parse(doc.DocType, text)
	if err != nil {
		s.logger.Warn("review.submit.rejected", "document_id", id, "doc_type", doc.DocType, "err", err)
		return nil, err
	}

	var result *records.Result
	reviewedAt := s.now()
	err = s.store.InTx(ctx, func(q *repository.Queries) error {
		orgID, err := s.organization(ctx, q)
		if err != nil {
			return err
		}
		result, err = s.writer.Write(ctx, q, orgID, rec)
		if err != nil {
			return err
		}
		return q.Documents.MarkReviewed(ctx, id, text, reviewedAt)
	})
	if err != nil {
		s.logger.Error("review.submit.failed", "document_id", id, "err", err)
		return nil, err
	}

	doc.Status = constants.DocumentReviewed
	doc.ManualCorrectedText = text
	doc.ReviewedAt = &reviewedAt
	// no foreign key links the document to its records; the log line is the trace
	s.logger.Info("review.submit.ok",
		"document_id", id,
		"kind", result.Kind,
		"record_id", result.RecordID,
		"party_created", result.PartyCreated,
		"products_created", result.ProductsCreated,
	)
	return &Outcome{Document: doc, Record: result}, nil
}

func (s *Service) organization(ctx context.Context, q *repository.Queries) (uuid.UUID, error) {
	if raw := common.OrganizationIDFromContext(ctx); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, common.NewAppError("INVALID_ORGANIZATION", fmt.Sprintf("organization id %q", raw), common.ErrInvalidInput)
		}
		org, err := q.Organizations.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		return org.ID, nil
	}
	org, err := q.Organizations.GetOrCreateByName(ctx, s.defaultOrg)
	if err != nil {
		return uuid.Nil, err
	}
	return org.ID, nil
}
