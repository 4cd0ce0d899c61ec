// Package app assembles the services shared by the daemon and the CLI from a
// loaded configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/detection"
	"github.com/joseph-ayodele/paperia/internal/export"
	"github.com/joseph-ayodele/paperia/internal/imageprep"
	"github.com/joseph-ayodele/paperia/internal/ingest"
	"github.com/joseph-ayodele/paperia/internal/llm/openai"
	"github.com/joseph-ayodele/paperia/internal/ocr"
	"github.com/joseph-ayodele/paperia/internal/ocr/azure"
	"github.com/joseph-ayodele/paperia/internal/ocr/tesseract"
	"github.com/joseph-ayodele/paperia/internal/payment"
	"github.com/joseph-ayodele/paperia/internal/pipeline"
	"github.com/joseph-ayodele/paperia/internal/records"
	"github.com/joseph-ayodele/paperia/internal/repository"
	"github.com/joseph-ayodele/paperia/internal/review"
	"github.com/joseph-ayodele/paperia/internal/server"
	"github.com/joseph-ayodele/paperia/internal/textcorrect"
)

// App holds the wired services. Close releases the database and any
// in-process OCR engine.
type App struct {
	Config    *common.Config
	DB        *repository.DB
	OCR       *ocr.Extractor
	Processor *pipeline.Processor
	Reviewer  *review.Service
	Exporter  *export.Service
	Ingestor  *ingest.FSIngestor
	Logger    *slog.Logger

	closers []func() error
}

// Open connects to the database, migrates when configured to and builds
// every service.
func Open(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Config: cfg, DB: db, Logger: logger}

	if err := repository.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	ext, closeOCR, err := NewExtractor(cfg.OCR, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.OCR = ext
	a.closers = append(a.closers, closeOCR)
	corrector, err := textcorrect.New(textcorrect.Config{
		EnglishDictionary:    cfg.Corrector.EnglishDictionary,
		IndonesianDictionary: cfg.Corrector.IndonesianDictionary,
		MaxEditDistance:      cfg.Corrector.MaxEditDistance,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load dictionaries: %w", err)
	}

	q := db.Queries()
	prep := imageprep.New(imageprep.Config{
		PreprocessedDir: cfg.Upload.PreprocessedDir,
		CleanedDir:      cfg.Upload.CleanedDir,
	}, logger)
	a.Processor = pipeline.NewProcessor(pipeline.Config{UploadDir: cfg.Upload.Dir, AllowPDF: cfg.Upload.AllowPDF},
		prep, a.OCR, corrector, q.Documents, logger)
	a.Reviewer = review.NewService(db, records.NewWriter(logger), cfg.Organization.Name, logger)
	a.Exporter = export.NewService(q.Invoices, logger)
	a.Ingestor = ingest.NewFSIngestor(a.Processor, q.Documents, cfg.Upload.AllowPDF, logger)
	return a, nil
}

// NewExtractor builds the OCR extractor for the configured engine. The
// returned close func releases an in-process engine and is never nil.
func NewExtractor(c common.OCRConfig, logger *slog.Logger) (*ocr.Extractor, func() error, error) {
	ocrCfg := ocr.Config{
		Tesseract:        c.Tesseract,
		Pdftotext:        c.Pdftotext,
		Languages:        c.Languages,
		TessdataDir:      c.TessdataDir,
		PSM:              c.PSM,
		OEM:              c.OEM,
		ArtifactCacheDir: c.ArtifactCacheDir,
	}
	closeFn := func() error { return nil }
	var opts []ocr.Option
	switch c.Engine {
	case ocr.EngineGosseract:
		eng, err := tesseract.New(ocrCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("start tesseract: %w", err)
		}
		closeFn = eng.Close
		opts = append(opts, ocr.WithEngine(eng))
	case ocr.EngineAzure:
		opts = append(opts, ocr.WithEngine(azure.New(c.AzureEndpoint, c.AzureKey, "", logger)))
	}
	ext := ocr.NewExtractor(ocrCfg, logger, opts...)
	logger.Info("ocr.engine.ready", "engine", ext.EngineName())
	return ext, closeFn, nil
}

// Ping checks database reachability.
func (a *App) Ping(ctx context.Context) error {
	return repository.HealthCheck(ctx, a.DB, 3*time.Second, a.Logger)
}

// ServerDeps wires the HTTP surface. Ancillary services are left nil when
// their configuration is missing so their endpoints answer 503.
func (a *App) ServerDeps() server.Deps {
	q := a.DB.Queries()
	deps := server.Deps{
		Uploader:  a.Processor,
		Reviewer:  a.Reviewer,
		Documents: q.Documents,
		Invoices:  q.Invoices,
		Exporter:  a.Exporter,
		Ping:      a.Ping,
	}

	cfg := a.Config
	if cfg.Detection.URL != "" {
		det := detection.NewClient(detection.Config{
			URL:           cfg.Detection.URL,
			Timeout:       cfg.Detection.Timeout,
			MinConfidence: cfg.Detection.MinConfidence,
		}, a.Logger)
		deps.Scanner = detection.NewScanner(det, a.OCR, a.Logger)
	}
	if cfg.Payment.SecretKey != "" {
		deps.Payments = payment.NewClient(payment.Config{
			BaseURL:   cfg.Payment.BaseURL,
			SecretKey: cfg.Payment.SecretKey,
			Timeout:   cfg.Payment.Timeout,
		}, a.Logger)
	}
	if cfg.LLM.APIKey != "" {
		deps.Chat = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		}, a.Logger)
	}
	return deps
}

func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.Logger.Warn("app.close.failed", "error", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
