// Package server exposes the extraction pipeline over HTTP (chi) and gRPC.
package server

import (
	"context"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/core"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// Pipeline is what the transports call. *core.Processor implements it.
type Pipeline interface {
	Authorize(ctx context.Context, credential string) error
	AnalyzeDocuments(ctx context.Context, credential string, req core.AnalyzeRequest) (entity.AnalysisResult, error)
	FetchInvoices(ctx context.Context, credential string, req core.FetchInvoicesRequest) (entity.MailboxAnalysis, error)
	CreateAuthLink(ctx context.Context, credential string, req core.AuthLinkRequest) (entity.AuthLink, error)
}

var _ Pipeline = (*core.Processor)(nil)

// Mailbox actions accepted by both transports.
const (
	ActionFetchInvoices  = "fetch_invoices"
	ActionCreateAuthLink = "create_auth_link"
)

// MailboxRequest is the single mailbox endpoint's body; Action picks the operation.
type MailboxRequest struct {
	Action             string `json:"action" validate:"required,oneof=fetch_invoices create_auth_link"`
	AccountID          string `json:"accountId,omitempty"`
	DaysBack           int    `json:"daysBack,omitempty"`
	SuccessRedirectURL string `json:"successRedirectUrl,omitempty"`
	FailureRedirectURL string `json:"failureRedirectUrl,omitempty"`
	NotifyURL          string `json:"notifyUrl,omitempty"`
}

func (r MailboxRequest) fetch() core.FetchInvoicesRequest {
	return core.FetchInvoicesRequest{AccountID: r.AccountID, DaysBack: r.DaysBack}
}

func (r MailboxRequest) authLink() core.AuthLinkRequest {
	return core.AuthLinkRequest{
		SuccessRedirectURL: r.SuccessRedirectURL,
		FailureRedirectURL: r.FailureRedirectURL,
		NotifyURL:          r.NotifyURL,
	}
}
