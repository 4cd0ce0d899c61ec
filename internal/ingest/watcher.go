package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/paperia/internal/async"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	AllowPDF    bool
	InitialScan bool          // if true, walk roots and emit existing files
	Debounce    time.Duration // coalesce rapid write/rename bursts
}

// StartWatcher emits paths of allowed files that appear or change under
// cfg.Roots. Both channels close when ctx ends.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path), cfg.AllowPDF) {
				select {
				case evCh <- path:
				default:
					logger.Warn("initial scan buffer full, file skipped", "path", path)
				}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		var (
			timer   *time.Timer
			timerC  <-chan time.Time
			pending = map[string]struct{}{}
		)
		flush := func() {
			for p := range pending {
				select {
				case evCh <- p:
				case <-ctx.Done():
					return
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case <-timerC:
				timerC = nil
				flush()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() && !IsHidden(e.Name) {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if IsHidden(e.Name) || !AllowedExt(filepath.Ext(e.Name), cfg.AllowPDF) {
					continue
				}
				if !e.Op.Has(fsnotify.Create) && !e.Op.Has(fsnotify.Write) && !e.Op.Has(fsnotify.Rename) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					flush()
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				timerC = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Watch ingests files under cfg.Roots as they appear until ctx ends. Files
// that vanish before processing (editor temp files, renames) are dropped.
func (i *FSIngestor) Watch(ctx context.Context, cfg WatchConfig, docType string, workers int) error {
	cfg.AllowPDF = i.allowPDF
	events, errs, err := StartWatcher(ctx, cfg, i.logger)
	if err != nil {
		return err
	}

	q := async.NewWorkerQueue(func(ctx context.Context, job async.Job) error {
		if _, err := os.Stat(job.Path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		_, err := i.IngestPath(ctx, job.Path, job.DocType)
		return err
	}, i.logger, async.WithWorkers(workers))
	defer q.Shutdown(context.Background())

	i.logger.Info("ingest.watch.started", "roots", cfg.Roots, "doc_type", docType)
	for {
		select {
		case path, ok := <-events:
			if !ok {
				i.logger.Info("ingest.watch.stopped")
				return nil
			}
			if err := q.Enqueue(ctx, async.Job{Path: path, DocType: docType}); err != nil {
				i.logger.Warn("ingest.watch.enqueue_failed", "path", path, "err", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			i.logger.Warn("ingest.watch.error", "err", err)
		}
	}
}
