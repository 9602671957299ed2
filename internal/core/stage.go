package core

import (
	"context"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
)

// Stage is one step of the request state machine, in order.
type Stage string

const (
	StageAuthorizing Stage = "authorizing"
	StageFiltering   Stage = "filtering"
	StageBatching    Stage = "batching"
	StageExtracting  Stage = "extracting"
	StageParsing     Stage = "parsing"
	StageResolving   Stage = "resolving"
	StageAuditing    Stage = "auditing"
	StageResponding  Stage = "responding"
)

func (p *Processor) stage(ctx context.Context, s Stage, attrs ...any) {
	args := append([]any{"req_id", common.RequestIDFromContext(ctx), "stage", string(s)}, attrs...)
	p.logger.Info("core.stage", args...)
}
