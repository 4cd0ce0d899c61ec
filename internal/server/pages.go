package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/entity"
	"github.com/joseph-ayodele/paperia/internal/pipeline"
	"github.com/joseph-ayodele/paperia/internal/records"
	"github.com/joseph-ayodele/paperia/internal/repository"
)

const dashboardLimit = 20

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Organization": s.cfg.Organization})
}

func (s *Server) uploadForm(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", gin.H{"AllowPDF": s.cfg.AllowPDF})
}

func (s *Server) upload(c *gin.Context) {
	start := time.Now()
	render := func(status int, msg string) {
		c.HTML(status, "upload.html", gin.H{"AllowPDF": s.cfg.AllowPDF, "Error": msg})
	}

	fh, err := c.FormFile("document")
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			render(http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		render(http.StatusBadRequest, "No file part")
		return
	}
	if fh.Filename == "" {
		uploadsTotal.WithLabelValues("rejected").Inc()
		render(http.StatusBadRequest, "No selected file")
		return
	}
	uploadSizeBytes.Observe(float64(fh.Size))

	f, err := fh.Open()
	if err != nil {
		uploadsTotal.WithLabelValues("failed").Inc()
		render(http.StatusInternalServerError, "Could not read upload")
		return
	}
	defer f.Close()

	doc, err := s.deps.Uploader.Ingest(c.Request.Context(), pipeline.Upload{
		Filename: filepath.Base(fh.Filename),
		DocType:  strings.TrimSpace(c.PostForm("doc_type")),
		Content:  f,
	})
	if err != nil {
		status := common.HTTPStatus(err)
		label := "failed"
		if status < 500 {
			label = "rejected"
		}
		uploadsTotal.WithLabelValues(label).Inc()
		s.logger.Warn("upload.failed", "request_id", common.RequestIDFromContext(c.Request.Context()),
			"filename", fh.Filename, "err", err)
		render(status, userMessage(err))
		return
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	uploadProcessingDuration.Observe(time.Since(start).Seconds())
	c.Redirect(http.StatusSeeOther, "/edit/"+doc.ID.String())
}

type editPage struct {
	Document *entity.Document
	Text     string
	Error    string
	Missing  []string
	Invalid  []string
}

func (s *Server) editForm(c *gin.Context) {
	id, ok := s.documentID(c)
	if !ok {
		return
	}
	doc, err := s.deps.Reviewer.Get(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "edit.html", editPage{Document: doc, Text: doc.EffectiveText()})
}

func (s *Server) submitEdit(c *gin.Context) {
	id, ok := s.documentID(c)
	if !ok {
		return
	}
	text := c.PostForm("documentText")

	out, err := s.deps.Reviewer.Submit(c.Request.Context(), id, text)
	if err != nil {
		status := common.HTTPStatus(err)
		if status == http.StatusNotFound {
			reviewsTotal.WithLabelValues("", "failed").Inc()
			s.renderError(c, err)
			return
		}
		doc, gerr := s.deps.Reviewer.Get(c.Request.Context(), id)
		if gerr != nil {
			s.renderError(c, gerr)
			return
		}
		page := editPage{Document: doc, Text: text, Error: userMessage(err)}
		var perr *records.ParseError
		if errors.As(err, &perr) {
			page.Missing, page.Invalid = perr.Missing, perr.Invalid
		}
		reviewsTotal.WithLabelValues(string(records.GrammarFor(doc.DocType).Kind), reviewOutcome(status)).Inc()
		c.HTML(status, "edit.html", page)
		return
	}

	reviewsTotal.WithLabelValues(string(out.Record.Kind), "ok").Inc()
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	docs, err := s.deps.Documents.List(ctx, repository.DocumentFilter{Limit: dashboardLimit})
	if err != nil {
		s.renderError(c, err)
		return
	}
	invoices, err := s.deps.Invoices.List(ctx, repository.InvoiceFilter{Limit: dashboardLimit})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{"Documents": docs, "Invoices": invoices})
}

func (s *Server) documentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, common.NewAppError("DOCUMENT_NOT_FOUND", "document not found", common.ErrNotFound))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) renderError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("http.error", "request_id", common.RequestIDFromContext(c.Request.Context()), "err", err)
	}
	c.HTML(status, "error.html", gin.H{"Status": status, "Message": userMessage(err)})
}

// userMessage hides internal detail on server errors.
func userMessage(err error) string {
	if common.HTTPStatus(err) >= 500 {
		return "Something went wrong, please try again"
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func reviewOutcome(status int) string {
	switch status {
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return "invalid"
	default:
		return "failed"
	}
}
