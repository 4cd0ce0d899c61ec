// Package server exposes the document workflow over HTTP (gin) and a gRPC
// health endpoint.
package server

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/paperia/internal/detection"
	"github.com/joseph-ayodele/paperia/internal/entity"
	"github.com/joseph-ayodele/paperia/internal/llm"
	"github.com/joseph-ayodele/paperia/internal/payment"
	"github.com/joseph-ayodele/paperia/internal/pipeline"
	"github.com/joseph-ayodele/paperia/internal/repository"
	"github.com/joseph-ayodele/paperia/internal/review"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Uploader interface {
	Ingest(ctx context.Context, up pipeline.Upload) (*entity.Document, error)
}

type Reviewer interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	Submit(ctx context.Context, id uuid.UUID, text string) (*review.Outcome, error)
}

type Exporter interface {
	ExportInvoicesXLSX(ctx context.Context, orgID uuid.UUID, from, to *time.Time) ([]byte, error)
}

type Scanner interface {
	ScanAndDetect(ctx context.Context, imagePath string) ([]detection.Item, error)
	VerifyGoodsReceipt(ctx context.Context, imagePath string, expected []string) (*detection.Verification, error)
}

// Pinger reports whether the database answers.
type Pinger func(ctx context.Context) error

// Deps are the services behind the routes. Ancillary services may be nil;
// their endpoints then answer 503.
type Deps struct {
	Uploader  Uploader
	Reviewer  Reviewer
	Documents repository.DocumentRepository
	Invoices  repository.InvoiceRepository
	Exporter  Exporter
	Ping      Pinger

	Scanner  Scanner
	Payments payment.Gateway
	Chat     llm.Responder
}

type Config struct {
	MaxUploadBytes int64
	AllowPDF       bool
	ScanDir        string // where scan_item/receive_goods images are kept
	Organization   string
	GinMode        string
}

type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
	logger *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.ScanDir == "" {
		cfg.ScanDir = "uploads/scans"
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"date": formatDate}).
		ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.MaxUploadBytes
	engine.SetHTMLTemplate(tmpl)
	engine.Use(recovery(logger), requestContext(), observe(logger))

	s := &Server{cfg: cfg, deps: deps, engine: engine, logger: logger}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/", s.index)
	r.GET("/upload", s.uploadForm)
	r.POST("/upload", s.limitBody, s.upload)
	r.GET("/edit/:id", s.editForm)
	r.POST("/edit/:id", s.submitEdit)
	r.GET("/dashboard", s.dashboard)

	r.GET("/documents", s.listDocuments)
	r.GET("/exports/invoices.xlsx", s.exportInvoices)

	r.POST("/scan_item", s.limitBody, s.scanItem)
	r.POST("/batch_scan", s.limitBody, s.batchScan)
	r.POST("/payment", s.createPayment)
	r.POST("/customer_service", s.customerService)
	r.POST("/receive_goods", s.limitBody, s.receiveGoods)
	r.POST("/sales_and_marketing", s.salesAndMarketing)

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the HTTP handler for an http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	c.Next()
}

func (s *Server) healthz(c *gin.Context) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02 15:04")
	case *time.Time:
		if t != nil {
			return t.Format("2006-01-02 15:04")
		}
	}
	return ""
}
