package mailbox

import (
	"context"
	"time"
)

// Attachment describes one attachment on a message; content is fetched separately by ID.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Message is one listed email with its plain-text body.
type Message struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	Date        time.Time    `json:"date"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
}

// ListOptions selects messages received at or after Since.
type ListOptions struct {
	AccountID string
	Since     time.Time
	Cursor    string
	PageSize  int
}

// Page is one page of a listing. NextCursor is empty on the last page.
type Page struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"nextCursor"`
}

// AuthLinkRequest asks the provider for a hosted account-linking URL.
type AuthLinkRequest struct {
	SuccessRedirectURL string `json:"successRedirectUrl"`
	FailureRedirectURL string `json:"failureRedirectUrl,omitempty"`
	NotifyURL          string `json:"notifyUrl,omitempty"`
}

// Provider is the mailbox integration the email path depends on.
type Provider interface {
	ListMessages(ctx context.Context, opts ListOptions) (Page, error)
	FetchAttachment(ctx context.Context, accountID, messageID, attachmentID string) ([]byte, error)
	CreateAuthLink(ctx context.Context, req AuthLinkRequest) (string, error)
}
