package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// writeAudit appends e inside its own failure boundary: a detached context with
// its own timeout, and any error or panic is logged and counted, never returned.
func (p *Processor) writeAudit(ctx context.Context, e entity.AuditEntry) {
	p.stage(ctx, StageAuditing, "action", e.Action, "success", e.Success)
	if p.audit == nil {
		p.logger.Debug("audit.skipped", "req_id", common.RequestIDFromContext(ctx))
		return
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = p.opts.Now().UTC()
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("audit.append_panic", "req_id", common.RequestIDFromContext(ctx), "panic", r)
			p.metrics.AuditFailed()
		}
	}()

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.AuditWriteTimeout)
	defer cancel()
	start := time.Now()
	if err := p.audit.Append(actx, e); err != nil {
		p.logger.Error("audit.append_failed",
			"req_id", common.RequestIDFromContext(ctx),
			"audit_id", e.ID,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		p.metrics.AuditFailed()
	}
}
