package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joseph-ayodele/paperia/internal/async"
)

type DirOptions struct {
	DocType    string
	SkipHidden bool
	Workers    int
}

// IngestDirectory walks root and ingests every allowed file on a worker
// pool. Results come back sorted by path.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, opts DirOptions) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var (
		mu      sync.Mutex
		results []IngestionResult
		stats   DirStats
	)
	record := func(r IngestionResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			r.Err = err.Error()
			stats.Failed++
		} else {
			stats.Succeeded++
			if r.Deduplicated {
				stats.Deduplicated++
			}
		}
		results = append(results, r)
	}

	q := async.NewWorkerQueue(func(ctx context.Context, job async.Job) error {
		r, err := i.IngestPath(ctx, job.Path, job.DocType)
		record(r, err)
		return err
	}, i.logger, async.WithWorkers(opts.Workers))

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		mu.Lock()
		stats.Scanned++
		mu.Unlock()
		if err != nil {
			record(IngestionResult{SourcePath: path}, err)
			return nil
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path), i.allowPDF) {
			return nil
		}
		mu.Lock()
		stats.Matched++
		mu.Unlock()
		return q.Enqueue(ctx, async.Job{Path: path, DocType: opts.DocType})
	})

	// jobs already queued still run to completion
	q.Shutdown(context.WithoutCancel(ctx))

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(results, func(a, b int) bool { return results[a].SourcePath < results[b].SourcePath })
	i.logger.Info("ingest.directory.done", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
	if walkErr != nil {
		return results, stats, fmt.Errorf("walk: %w", walkErr)
	}
	return results, stats, nil
}
