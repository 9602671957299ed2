package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/app"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/async"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/auth"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/core"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/export"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/ingest"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite audit store")
		dbPath  = flag.String("db", "", "SQLite audit store path (defaults to AUDIT_SQLITE_PATH)")
		dir     = flag.String("dir", "", "directory of documents to analyze (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		actor   = flag.String("actor", "local-batch", "actor id recorded in the audit trail")
		workers = flag.Int("workers", 2, "batches analyzed concurrently")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "subscriptions.xlsx")
	}

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	path := cfg.Database.SQLitePath
	if *dbPath != "" {
		path = *dbPath
	}
	if *inmem {
		path = ":memory:"
	}
	store, err := server.OpenSQLiteStore(ctx, path, logger)
	if err != nil {
		logger.Error("failed to open audit store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	reg, err := app.LoadRegistry(cfg.LLM, cfg.Resolve, logger)
	if err != nil {
		logger.Error("failed to load registry", "error", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		logger.Error("LLM_API_KEY is required")
		os.Exit(2)
	}
	gen, err := app.NewGenerator(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to build extraction client", "error", err)
		os.Exit(1)
	}

	// one-off credential for this run
	token := uuid.NewString()
	proc := app.NewProcessor(cfg, app.Components{
		Registry:  reg,
		Generator: gen,
		Auth:      auth.NewStaticTokens(map[string]string{token: *actor}),
		Audit:     store.Repo,
	}, logger)

	logger.Info("starting ingestion", "dir", *dir)
	docs, _, stats, err := ingest.NewFSLoader(logger).LoadDirectory(ctx, *dir)
	if err != nil {
		logger.Error("failed to load directory", "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		printError("No documents found under %s\n", *dir)
		os.Exit(1)
	}

	q := async.NewBatchQueue(proc, token, logger, async.WithWorkers(*workers))
	for i, start := 0, 0; start < len(docs); i, start = i+1, start+constants.MaxDocumentsPerRequest {
		end := min(start+constants.MaxDocumentsPerRequest, len(docs))
		if err := q.Enqueue(ctx, async.Job{Index: i, Documents: docs[start:end]}); err != nil {
			logger.Error("failed to enqueue batch", "batch", i, "error", err)
			break
		}
	}

	var (
		results  []entity.AnalysisResult
		failures int
	)
	for _, r := range q.Shutdown(ctx) {
		if r.Err != nil {
			failures++
			continue
		}
		results = append(results, r.Analysis)
	}
	merged := core.MergeResults(results)

	xlsx, err := export.NewExporter(reg, logger).AnalysisXLSX(merged)
	if err != nil {
		logger.Error("failed to export", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	audited, _ := store.Repo.Count(ctx)
	logger.Info("batch processing complete",
		"documents", len(docs),
		"failed_files", stats.Failed,
		"failed_batches", failures,
		"services", len(merged.Services),
		"audit_entries", audited,
		"output_file", *out,
	)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents analyzed: %d (skipped %d duplicates, %d unreadable)\n", len(docs), stats.Deduplicated, stats.Failed)
	fmt.Printf("- Services detected: %d\n", len(merged.Services))
	fmt.Printf("- Unmatched items: %d\n", len(merged.UnmatchedItems))
	fmt.Printf("- Failed batches: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
	if failures > 0 {
		os.Exit(1)
	}
}
