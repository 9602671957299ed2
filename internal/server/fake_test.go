package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/core"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

type fakePipeline struct {
	authErr    error
	authCalls  int
	authCred   string
	credential string
	reqID      string
	analyze    core.AnalyzeRequest
	fetch      core.FetchInvoicesRequest
	link       core.AuthLinkRequest
	result     entity.AnalysisResult
	mailbox    entity.MailboxAnalysis
	err        error
	panicMsg   string
}

func (f *fakePipeline) record(ctx context.Context, credential string) {
	f.credential = credential
	f.reqID = common.RequestIDFromContext(ctx)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
}

func (f *fakePipeline) Authorize(_ context.Context, credential string) error {
	f.authCalls++
	f.authCred = credential
	return f.authErr
}

func (f *fakePipeline) AnalyzeDocuments(ctx context.Context, credential string, req core.AnalyzeRequest) (entity.AnalysisResult, error) {
	f.record(ctx, credential)
	f.analyze = req
	return f.result, f.err
}

func (f *fakePipeline) FetchInvoices(ctx context.Context, credential string, req core.FetchInvoicesRequest) (entity.MailboxAnalysis, error) {
	f.record(ctx, credential)
	f.fetch = req
	return f.mailbox, f.err
}

func (f *fakePipeline) CreateAuthLink(ctx context.Context, credential string, req core.AuthLinkRequest) (entity.AuthLink, error) {
	f.record(ctx, credential)
	f.link = req
	if f.err != nil {
		return entity.AuthLink{}, f.err
	}
	return entity.AuthLink{URL: "https://mail.example/link"}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
