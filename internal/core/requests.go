package core

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// AnalyzeRequest is the direct-document path input.
type AnalyzeRequest struct {
	Documents []entity.DocumentInput `json:"documents" validate:"required,min=1,dive"`
	ContextID string                 `json:"contextId,omitempty"`
}

// Validate enforces the batch ceiling and per-document shape. Nothing is truncated.
func (r AnalyzeRequest) Validate() error {
	v := common.NewValidator().Struct(r)
	v.Check(len(r.Documents) <= constants.MaxDocumentsPerRequest, "documents", len(r.Documents),
		fmt.Sprintf("must contain at most %d item(s)", constants.MaxDocumentsPerRequest))

	for i, d := range r.Documents {
		field := fmt.Sprintf("documents[%d].content", i)
		switch d.Kind {
		case constants.KindBinary:
			_, err := base64.StdEncoding.DecodeString(d.Content)
			v.Check(err == nil && d.Content != "", field, nil, "must be non-empty base64")
		case constants.KindText:
			v.Check(strings.TrimSpace(d.Content) != "", field, nil, "is required")
		}
	}
	return v.Err()
}

// FetchInvoicesRequest is the mailbox path input. DaysBack 0 means the default window.
type FetchInvoicesRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	DaysBack  int    `json:"daysBack,omitempty" validate:"omitempty,min=1,max=365"`
}

func (r FetchInvoicesRequest) Validate() error {
	return common.ValidateStruct(r)
}

// window returns the effective lookback in days.
func (r FetchInvoicesRequest) window() int {
	if r.DaysBack == 0 {
		return constants.DefaultDaysBack
	}
	return r.DaysBack
}

// AuthLinkRequest asks for a hosted mailbox-linking URL.
type AuthLinkRequest struct {
	SuccessRedirectURL string `json:"successRedirectUrl" validate:"required,url"`
	FailureRedirectURL string `json:"failureRedirectUrl,omitempty" validate:"omitempty,url"`
	NotifyURL          string `json:"notifyUrl,omitempty" validate:"omitempty,url"`
}

func (r AuthLinkRequest) Validate() error {
	return common.ValidateStruct(r)
}
