// Package ingest turns local files into extraction documents.
package ingest

import (
	"context"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// FileResult is the per-file load outcome.
type FileResult struct {
	Path         string
	HashHex      string
	Kind         string
	Size         int64
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Loaded       uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor loads documents from a path or a directory tree.
type Ingestor interface {
	LoadPath(ctx context.Context, path string) (entity.DocumentInput, FileResult, error)
	LoadDirectory(ctx context.Context, root string) ([]entity.DocumentInput, []FileResult, DirStats, error)
}
