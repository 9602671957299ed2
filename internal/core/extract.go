package core

import (
	"context"
	"time"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
)

// extract sends docs in consecutive batches of at most MaxDocumentsPerRequest,
// parses each reply, merges them and resolves the merged services. Any transport
// failure aborts the whole request; there is no retry.
func (p *Processor) extract(ctx context.Context, docs []entity.DocumentInput) (entity.AnalysisResult, error) {
	batches := chunk(docs, constants.MaxDocumentsPerRequest)
	results := make([]entity.AnalysisResult, 0, len(batches))

	for i, batch := range batches {
		p.stage(ctx, StageBatching, "batch", i+1, "batches", len(batches), "documents", len(batch))
		req := llm.BuildRequest(p.reg, batch)

		p.stage(ctx, StageExtracting, "batch", i+1)
		text, err := p.generate(ctx, req)
		if err != nil {
			return entity.AnalysisResult{}, common.Transport("extraction service call failed", err)
		}

		p.stage(ctx, StageParsing, "batch", i+1, "response_len", len(text))
		outcome := llm.ParseResponse(text)
		switch o := outcome.(type) {
		case llm.Unparseable:
			p.logger.Warn("core.parse.unparseable", "req_id", common.RequestIDFromContext(ctx), "batch", i+1, "reason", o.Reason)
		case llm.Parsed:
			if !o.Strict {
				p.logger.Warn("core.parse.lenient", "req_id", common.RequestIDFromContext(ctx), "batch", i+1, "repaired", o.Notes)
			}
		}
		results = append(results, llm.ToResult(outcome))
	}

	merged := MergeResults(results)
	p.stage(ctx, StageResolving, "services", len(merged.Services))
	res := p.resolver.Reconcile(merged)

	resolved := 0
	for _, s := range res.Services {
		if s.RegistryID != nil {
			resolved++
		}
	}
	p.metrics.ObserveServices(resolved, len(res.Services)-resolved)
	return res, nil
}

// generate makes one extraction call under the configured timeout.
func (p *Processor) generate(ctx context.Context, req llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ExtractTimeout)
	defer cancel()

	start := time.Now()
	text, err := p.generator.Generate(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		p.logger.Error("core.extract.failed",
			"req_id", common.RequestIDFromContext(ctx),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
	p.metrics.ObserveExtraction(outcome, time.Since(start))
	return text, err
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
