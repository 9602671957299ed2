package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// DefaultMaxFileBytes caps a single document read from disk.
const DefaultMaxFileBytes = 20 << 20

var ErrUnsupportedExt = errors.New("unsupported or missing extension")

// FSLoader reads documents from the local filesystem.
type FSLoader struct {
	MaxFileBytes int64
	SkipHidden   bool
	logger       *slog.Logger
	seen         map[string]string // sha256 hex -> first path
}

func NewFSLoader(logger *slog.Logger) *FSLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSLoader{MaxFileBytes: DefaultMaxFileBytes, SkipHidden: true, logger: logger, seen: map[string]string{}}
}

var _ Ingestor = (*FSLoader)(nil)

// LoadPath reads one file. Binary kinds are base64 encoded; text kinds must be valid UTF-8.
func (l *FSLoader) LoadPath(ctx context.Context, path string) (entity.DocumentInput, FileResult, error) {
	res := FileResult{Path: path}
	if err := ctx.Err(); err != nil {
		return entity.DocumentInput{}, res, err
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	kind, ok := constants.AllowedExtensions[ext]
	if !ok {
		return entity.DocumentInput{}, res, fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}
	res.Kind = string(kind)

	f, err := os.Open(path)
	if err != nil {
		return entity.DocumentInput{}, res, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			l.logger.Warn("ingest.close_failed", "path", path, "error", err)
		}
	}()

	limit := l.MaxFileBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}
	b, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return entity.DocumentInput{}, res, err
	}
	if int64(len(b)) > limit {
		return entity.DocumentInput{}, res, fmt.Errorf("file exceeds %d bytes", limit)
	}
	if len(b) == 0 {
		return entity.DocumentInput{}, res, errors.New("file is empty")
	}
	res.Size = int64(len(b))

	sum := sha256.Sum256(b)
	res.HashHex = hex.EncodeToString(sum[:])
	if first, dup := l.seen[res.HashHex]; dup {
		res.Deduplicated = true
		l.logger.Info("ingest.duplicate", "path", path, "first", first)
	} else {
		l.seen[res.HashHex] = path
	}

	doc := entity.DocumentInput{
		Kind:     kind,
		MimeType: constants.MimeTypeForExt(ext),
		Filename: filepath.Base(path),
	}
	switch kind {
	case constants.KindBinary:
		doc.Content = base64.StdEncoding.EncodeToString(b)
	default:
		if !utf8.Valid(b) {
			return entity.DocumentInput{}, res, errors.New("text file is not valid UTF-8")
		}
		doc.Content = string(b)
	}
	return doc, res, nil
}

// LoadDirectory walks root and loads every allowed file in lexical order.
// Per-file failures are recorded and skipped; duplicates by content are loaded once.
func (l *FSLoader) LoadDirectory(ctx context.Context, root string) ([]entity.DocumentInput, []FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	var (
		docs    []entity.DocumentInput
		results []FileResult
		stats   DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if l.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		doc, r, err := l.LoadPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			l.logger.Warn("ingest.load_failed", "path", path, "error", err)
			return nil
		}
		results = append(results, r)
		if r.Deduplicated {
			stats.Deduplicated++
			return nil
		}
		docs = append(docs, doc)
		stats.Loaded++
		return nil
	})
	if err != nil {
		return docs, results, stats, fmt.Errorf("walk: %w", err)
	}

	l.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"loaded", stats.Loaded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return docs, results, stats, nil
}
