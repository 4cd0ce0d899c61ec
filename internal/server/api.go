package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/repository"
)

const maxListLimit = 500

// listDocuments answers GET /documents?from=&to=&doc_type=&reviewed=&limit=.
func (s *Server) listDocuments(c *gin.Context) {
	filter := repository.DocumentFilter{DocType: strings.TrimSpace(c.Query("doc_type"))}

	var err error
	if filter.From, err = queryDate(c, "from"); err != nil {
		s.jsonError(c, err)
		return
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		s.jsonError(c, err)
		return
	}
	if filter.To != nil {
		// inclusive of the whole day
		end := filter.To.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	if v := c.Query("reviewed"); v != "" {
		if filter.ReviewedOnly, err = strconv.ParseBool(v); err != nil {
			s.jsonError(c, common.NewAppError("INVALID_QUERY", "reviewed must be a boolean", common.ErrInvalidInput))
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.jsonError(c, common.NewAppError("INVALID_QUERY", "limit must be a non-negative integer", common.ErrInvalidInput))
			return
		}
		filter.Limit = min(n, maxListLimit)
	}

	docs, err := s.deps.Documents.List(c.Request.Context(), filter)
	if err != nil {
		s.jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// exportInvoices streams GET /exports/invoices.xlsx?from=&to=&organization_id=.
func (s *Server) exportInvoices(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		s.jsonError(c, err)
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		s.jsonError(c, err)
		return
	}

	orgID := uuid.Nil
	raw := c.Query("organization_id")
	if raw == "" {
		raw = common.OrganizationIDFromContext(c.Request.Context())
	}
	if raw != "" {
		if orgID, err = uuid.Parse(raw); err != nil {
			s.jsonError(c, common.NewAppError("INVALID_QUERY", "organization_id must be a UUID", common.ErrInvalidInput))
			return
		}
	}

	xlsx, err := s.deps.Exporter.ExportInvoicesXLSX(c.Request.Context(), orgID, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "organization_id", orgID, "err", err)
		s.jsonError(c, err)
		return
	}
	name := fmt.Sprintf("invoices_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsx)
}

func queryDate(c *gin.Context, key string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, common.NewAppError("INVALID_QUERY", key+" must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return &t, nil
}

// jsonError writes the {status:"error", message} envelope.
func (s *Server) jsonError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("http.error", "request_id", common.RequestIDFromContext(c.Request.Context()),
			"route", c.FullPath(), "err", err)
	}
	c.JSON(status, common.ErrorEnvelope{Status: "error", Message: userMessage(err)})
}
