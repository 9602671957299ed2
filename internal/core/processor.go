package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/auth"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/mailbox"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/metrics"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/prefilter"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/registry"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/repository"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/resolve"
)

// Deps are the collaborators a Processor sequences. Mailbox, Audit and Metrics may be nil.
type Deps struct {
	Registry  *registry.Registry
	Generator llm.Generator
	Auth      auth.Authenticator
	Mailbox   mailbox.Provider
	Audit     repository.AuditRepository
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Options tune timeouts and mailbox bounds. Zero values take defaults.
type Options struct {
	ExtractTimeout        time.Duration
	ScanLimit             int
	PageLimit             int
	AttachmentConcurrency int
	Now                   func() time.Time
}

// Processor runs the extraction pipeline: authorize, optionally filter mail,
// batch, extract, parse, resolve, audit, respond.
type Processor struct {
	logger    *slog.Logger
	reg       *registry.Registry
	generator llm.Generator
	auth      auth.Authenticator
	mailbox   mailbox.Provider
	audit     repository.AuditRepository
	metrics   *metrics.Metrics
	resolver  *resolve.Resolver
	filter    *prefilter.Filter
	opts      Options
}

func NewProcessor(deps Deps, opts Options) *Processor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 90 * time.Second
	}
	if opts.ScanLimit <= 0 {
		opts.ScanLimit = 100
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = constants.DefaultMailboxPageLimit
	}
	if opts.AttachmentConcurrency <= 0 {
		opts.AttachmentConcurrency = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		logger:    logger,
		reg:       deps.Registry,
		generator: deps.Generator,
		auth:      deps.Auth,
		mailbox:   deps.Mailbox,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		resolver:  resolve.New(deps.Registry, logger),
		filter:    prefilter.New(nil, deps.Registry.SenderKeys()),
		opts:      opts,
	}
}

// AnalyzeDocuments runs the direct-document path.
func (p *Processor) AnalyzeDocuments(ctx context.Context, credential string, req AnalyzeRequest) (entity.AnalysisResult, error) {
	ctx = withRequestID(ctx)
	op := string(constants.ActionAnalyzeDocuments)

	id, err := p.authorize(ctx, credential)
	if err != nil {
		p.metrics.ObserveRequest(op, outcomeOf(err, false))
		return entity.AnalysisResult{}, err
	}
	if err := req.Validate(); err != nil {
		p.logger.Warn("core.validation_failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		p.metrics.ObserveRequest(op, outcomeOf(err, false))
		return entity.AnalysisResult{}, err
	}

	res, err := p.extract(ctx, req.Documents)
	p.writeAudit(ctx, entity.AuditEntry{
		ActorID:          id.ActorID,
		Action:           op,
		DocumentCount:    len(req.Documents),
		ServicesDetected: len(res.Services),
		Success:          err == nil && res.Success,
	})
	p.metrics.ObserveRequest(op, outcomeOf(err, res.Success))
	if err != nil {
		return entity.AnalysisResult{}, err
	}

	p.stage(ctx, StageResponding, "services", len(res.Services), "success", res.Success)
	return res, nil
}

// FetchInvoices runs the mailbox path: list, pre-filter, materialize, then the shared pipeline.
func (p *Processor) FetchInvoices(ctx context.Context, credential string, req FetchInvoicesRequest) (entity.MailboxAnalysis, error) {
	ctx = withRequestID(ctx)
	op := string(constants.ActionFetchInvoices)

	id, err := p.authorize(ctx, credential)
	if err != nil {
		p.metrics.ObserveRequest(op, outcomeOf(err, false))
		return entity.MailboxAnalysis{}, err
	}
	if err := req.Validate(); err != nil {
		p.metrics.ObserveRequest(op, outcomeOf(err, false))
		return entity.MailboxAnalysis{}, err
	}
	if p.mailbox == nil {
		p.metrics.ObserveRequest(op, "error")
		return entity.MailboxAnalysis{}, common.NewAppError(common.CodeInternal, "mailbox provider not configured", common.ErrInternal)
	}

	audit := entity.AuditEntry{ActorID: id.ActorID, Action: op}

	scan, err := p.collectMailbox(ctx, req.AccountID, req.window())
	if err != nil {
		p.writeAudit(ctx, audit)
		p.metrics.ObserveRequest(op, outcomeOf(err, false))
		return entity.MailboxAnalysis{}, err
	}

	out := entity.MailboxAnalysis{
		EmailsScanned:      scan.scanned,
		InvoiceEmailsFound: scan.candidates,
		DocumentsAnalyzed:  len(scan.docs),
	}
	if len(scan.docs) == 0 {
		out.AnalysisResult = entity.EmptyResult(true, "no invoice-like emails found in the selected window")
		audit.Success = true
		p.writeAudit(ctx, audit)
		p.metrics.ObserveRequest(op, "ok")
		p.stage(ctx, StageResponding, "emails_scanned", scan.scanned, "candidates", 0)
		return out, nil
	}

	res, err := p.extract(ctx, scan.docs)
	audit.DocumentCount = len(scan.docs)
	audit.ServicesDetected = len(res.Services)
	audit.Success = err == nil && res.Success
	p.writeAudit(ctx, audit)
	p.metrics.ObserveRequest(op, outcomeOf(err, res.Success))
	if err != nil {
		return entity.MailboxAnalysis{}, err
	}

	out.AnalysisResult = res
	p.stage(ctx, StageResponding,
		"emails_scanned", out.EmailsScanned,
		"candidates", out.InvoiceEmailsFound,
		"documents", out.DocumentsAnalyzed,
		"services", len(res.Services),
	)
	return out, nil
}

// CreateAuthLink proxies to the mailbox provider. It does not touch extraction or the audit trail.
func (p *Processor) CreateAuthLink(ctx context.Context, credential string, req AuthLinkRequest) (entity.AuthLink, error) {
	ctx = withRequestID(ctx)
	if _, err := p.authorize(ctx, credential); err != nil {
		return entity.AuthLink{}, err
	}
	if err := req.Validate(); err != nil {
		return entity.AuthLink{}, err
	}
	if p.mailbox == nil {
		return entity.AuthLink{}, common.NewAppError(common.CodeInternal, "mailbox provider not configured", common.ErrInternal)
	}
	link, err := p.mailbox.CreateAuthLink(ctx, mailbox.AuthLinkRequest{
		SuccessRedirectURL: req.SuccessRedirectURL,
		FailureRedirectURL: req.FailureRedirectURL,
		NotifyURL:          req.NotifyURL,
	})
	if err != nil {
		p.logger.Error("core.auth_link_failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		return entity.AuthLink{}, common.Transport("mailbox provider auth link failed", err)
	}
	return entity.AuthLink{URL: link}, nil
}

// Authorize checks credential without running anything else. Transports call it
// before reading a request body; the operations check again on their own.
func (p *Processor) Authorize(ctx context.Context, credential string) error {
	_, err := p.authorize(withRequestID(ctx), credential)
	return err
}

func (p *Processor) authorize(ctx context.Context, credential string) (auth.Identity, error) {
	p.stage(ctx, StageAuthorizing)
	if p.auth == nil {
		return auth.Identity{}, common.Unauthorizedf("no authenticator configured")
	}
	id, err := p.auth.Authenticate(ctx, credential)
	if err != nil {
		p.logger.Warn("core.unauthorized", "req_id", common.RequestIDFromContext(ctx), "error", err)
		if !errors.Is(err, common.ErrUnauthorized) {
			err = common.NewAppError(common.CodeUnauthorized, "unauthorized", errors.Join(common.ErrUnauthorized, err))
		}
		return auth.Identity{}, err
	}
	return id, nil
}

func withRequestID(ctx context.Context) context.Context {
	if common.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return common.WithRequestID(ctx, uuid.New().String())
}

func outcomeOf(err error, success bool) string {
	switch {
	case err == nil && success:
		return "ok"
	case err == nil:
		return "degraded"
	}
	switch common.Code(err) {
	case common.CodeValidation:
		return "validation"
	case common.CodeUnauthorized:
		return "unauthorized"
	case common.CodeTransport:
		return "transport"
	}
	return "error"
}
