package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/analytics"
	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/llm"
	"github.com/joseph-ayodele/paperia/internal/payment"
	"github.com/joseph-ayodele/paperia/internal/repository"
)

var errServiceDisabled = common.NewAppError("SERVICE_DISABLED", "service is not configured", common.ErrUnavailable)

func (s *Server) scanItem(c *gin.Context) {
	if s.deps.Scanner == nil {
		s.serviceError(c, "scan_item", errServiceDisabled)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		s.serviceError(c, "scan_item", common.NewAppError("NO_FILE", "No file part", common.ErrInvalidInput))
		return
	}
	path, err := s.saveScan(fh)
	if err != nil {
		s.serviceError(c, "scan_item", err)
		return
	}
	items, err := s.deps.Scanner.ScanAndDetect(c.Request.Context(), path)
	if err != nil {
		s.serviceError(c, "scan_item", err)
		return
	}
	serviceCallsTotal.WithLabelValues("scan_item", "ok").Inc()
	c.JSON(http.StatusOK, items)
}

// batchScan accepts many "images" parts; files of other types are skipped
// and each result is keyed by file name.
func (s *Server) batchScan(c *gin.Context) {
	if s.deps.Scanner == nil {
		s.serviceError(c, "batch_scan", errServiceDisabled)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		s.serviceError(c, "batch_scan", common.NewAppError("NO_FILE", "No file part", common.ErrInvalidInput))
		return
	}

	results := make([]map[string]any, 0, len(form.File["images"]))
	for _, fh := range form.File["images"] {
		if !constants.AllowedUpload(filepath.Ext(fh.Filename), false) {
			continue
		}
		path, err := s.saveScan(fh)
		if err != nil {
			s.serviceError(c, "batch_scan", err)
			return
		}
		items, err := s.deps.Scanner.ScanAndDetect(c.Request.Context(), path)
		if err != nil {
			s.serviceError(c, "batch_scan", err)
			return
		}
		results = append(results, map[string]any{filepath.Base(fh.Filename): items})
	}
	serviceCallsTotal.WithLabelValues("batch_scan", "ok").Inc()
	c.JSON(http.StatusOK, results)
}

func (s *Server) receiveGoods(c *gin.Context) {
	if s.deps.Scanner == nil {
		s.serviceError(c, "receive_goods", errServiceDisabled)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		s.serviceError(c, "receive_goods", common.NewAppError("NO_IMAGE", "No image provided", common.ErrInvalidInput))
		return
	}
	raw := c.PostForm("expected_items")
	if strings.TrimSpace(raw) == "" {
		s.serviceError(c, "receive_goods", common.NewAppError("NO_EXPECTED_ITEMS", "No expected items provided", common.ErrInvalidInput))
		return
	}
	var expected []string
	if err := json.Unmarshal([]byte(raw), &expected); err != nil {
		s.serviceError(c, "receive_goods", common.NewAppError("INVALID_EXPECTED_ITEMS", "expected_items must be a JSON array of strings", common.ErrInvalidInput))
		return
	}

	path, err := s.saveScan(fh)
	if err != nil {
		s.serviceError(c, "receive_goods", err)
		return
	}
	v, err := s.deps.Scanner.VerifyGoodsReceipt(c.Request.Context(), path, expected)
	if err != nil {
		s.serviceError(c, "receive_goods", err)
		return
	}
	serviceCallsTotal.WithLabelValues("receive_goods", v.Status).Inc()
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": v})
}

func (s *Server) createPayment(c *gin.Context) {
	if s.deps.Payments == nil {
		s.serviceError(c, "payment", errServiceDisabled)
		return
	}
	var req payment.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.serviceError(c, "payment", common.NewAppError("INVALID_JSON", "Missing required payment data", common.ErrInvalidInput))
		return
	}
	inv, err := s.deps.Payments.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		s.serviceError(c, "payment", err)
		return
	}
	serviceCallsTotal.WithLabelValues("payment", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"message":     "Payment processed successfully",
		"invoice_url": inv.InvoiceURL,
		"invoice_id":  inv.ID,
	})
}

func (s *Server) customerService(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Message) == "" {
		s.serviceError(c, "customer_service", common.NewAppError("NO_MESSAGE", "No message provided", common.ErrInvalidInput))
		return
	}
	if s.deps.Chat == nil {
		s.serviceError(c, "customer_service", errServiceDisabled)
		return
	}
	reply, err := s.deps.Chat.Reply(c.Request.Context(), llm.ReplyRequest{Message: body.Message, Organization: s.cfg.Organization})
	if err != nil {
		s.serviceError(c, "customer_service", err)
		return
	}
	serviceCallsTotal.WithLabelValues("customer_service", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": reply})
}

// salesAndMarketing segments posted RFM rows. An empty body segments the
// customers found in stored invoices instead.
func (s *Server) salesAndMarketing(c *gin.Context) {
	var rows []analytics.Customer
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&rows); err != nil {
			s.serviceError(c, "sales_and_marketing", common.NewAppError("INVALID_JSON", "body must be a JSON array of customer rows", common.ErrInvalidInput))
			return
		}
	}
	if len(rows) == 0 && s.deps.Invoices != nil {
		invs, err := s.deps.Invoices.List(c.Request.Context(), invoiceFilterFor(c))
		if err != nil {
			s.serviceError(c, "sales_and_marketing", err)
			return
		}
		rows = analytics.FromInvoices(invs, time.Now().UTC())
	}

	seg, err := analytics.Segment(rows)
	if err != nil {
		s.serviceError(c, "sales_and_marketing", err)
		return
	}
	serviceCallsTotal.WithLabelValues("sales_and_marketing", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": seg})
}

// saveScan writes an uploaded image under ScanDir with a unique prefix.
func (s *Server) saveScan(fh *multipart.FileHeader) (string, error) {
	name := filepath.Base(fh.Filename)
	if !constants.AllowedUpload(filepath.Ext(name), false) {
		return "", common.NewAppError("INVALID_FILE_TYPE", "Invalid file type", common.ErrInvalidInput)
	}
	if err := os.MkdirAll(s.cfg.ScanDir, 0o755); err != nil {
		return "", fmt.Errorf("create scan dir: %w", err)
	}
	dst := filepath.Join(s.cfg.ScanDir, uuid.NewString()+"_"+name)
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := out.ReadFrom(src); err != nil {
		_ = out.Close()
		return "", err
	}
	return dst, out.Close()
}

func (s *Server) serviceError(c *gin.Context, service string, err error) {
	serviceCallsTotal.WithLabelValues(service, "error").Inc()
	s.logger.Warn("service.call.failed", "service", service,
		"request_id", common.RequestIDFromContext(c.Request.Context()), "err", err)
	status := common.HTTPStatus(err)
	c.JSON(status, common.ErrorEnvelope{Status: "error", Message: serviceMessage(err)})
}

// serviceMessage passes AppError messages through, including for 5xx.
func serviceMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return userMessage(err)
}

// invoiceFilterFor scopes invoice reads to the request's organization header.
func invoiceFilterFor(c *gin.Context) repository.InvoiceFilter {
	var f repository.InvoiceFilter
	if id, err := uuid.Parse(common.OrganizationIDFromContext(c.Request.Context())); err == nil {
		f.OrganizationID = id
	}
	return f
}
