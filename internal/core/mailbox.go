package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/mailbox"
)

type mailboxScan struct {
	docs       []entity.DocumentInput
	scanned    int
	candidates int
}

// collectMailbox lists messages in the window, keeps the first candidates the
// pre-filter accepts and turns each into documents. Listing failures are transport
// errors; attachment failures only drop that attachment.
func (p *Processor) collectMailbox(ctx context.Context, accountID string, daysBack int) (mailboxScan, error) {
	p.stage(ctx, StageFiltering, "account_id", accountID, "days_back", daysBack)
	since := p.opts.Now().Add(-time.Duration(daysBack) * 24 * time.Hour)

	var (
		scan       mailboxScan
		candidates []mailbox.Message
		cursor     string
	)
scanLoop:
	for pages := 0; ; pages++ {
		if pages == p.opts.PageLimit {
			p.logger.Warn("core.mailbox.page_limit", "req_id", common.RequestIDFromContext(ctx), "pages", pages, "scanned", scan.scanned)
			break
		}
		page, err := p.mailbox.ListMessages(ctx, mailbox.ListOptions{AccountID: accountID, Since: since, Cursor: cursor})
		if err != nil {
			p.logger.Error("core.mailbox.list_failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
			return mailboxScan{}, common.Transport("mailbox listing failed", err)
		}
		for _, msg := range page.Messages {
			if scan.scanned >= p.opts.ScanLimit || len(candidates) >= constants.MaxCandidateEmails {
				break scanLoop
			}
			scan.scanned++
			d := p.filter.Keep(msg)
			p.metrics.ObservePrefilter(string(d.Reason))
			if d.Keep {
				candidates = append(candidates, msg)
			}
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}
	scan.candidates = len(candidates)

	p.logger.Info("core.mailbox.filtered",
		"req_id", common.RequestIDFromContext(ctx),
		"scanned", scan.scanned,
		"candidates", scan.candidates,
	)

	for _, msg := range candidates {
		scan.docs = append(scan.docs, messageDocument(msg))
		scan.docs = append(scan.docs, p.fetchAttachments(ctx, accountID, msg)...)
	}
	return scan, nil
}

// fetchAttachments downloads up to MaxAttachmentsPerEmail PDF/image attachments
// concurrently. Failed downloads are logged and skipped; order is preserved.
func (p *Processor) fetchAttachments(ctx context.Context, accountID string, msg mailbox.Message) []entity.DocumentInput {
	var wanted []mailbox.Attachment
	for _, a := range msg.Attachments {
		if len(wanted) == constants.MaxAttachmentsPerEmail {
			break
		}
		if constants.IsPDFOrImage(a.ContentType, a.Filename) {
			wanted = append(wanted, a)
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	slots := make([]*entity.DocumentInput, len(wanted))
	var g errgroup.Group
	g.SetLimit(p.opts.AttachmentConcurrency)
	for i, a := range wanted {
		g.Go(func() error {
			b, err := p.mailbox.FetchAttachment(ctx, accountID, msg.ID, a.ID)
			if err != nil {
				p.logger.Warn("core.mailbox.attachment_failed",
					"req_id", common.RequestIDFromContext(ctx),
					"message_id", msg.ID,
					"attachment_id", a.ID,
					"error", err,
				)
				p.metrics.AttachmentFailed()
				return nil
			}
			slots[i] = &entity.DocumentInput{
				Kind:     constants.KindBinary,
				Content:  base64.StdEncoding.EncodeToString(b),
				MimeType: attachmentMime(a),
				Filename: a.Filename,
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]entity.DocumentInput, 0, len(slots))
	for _, d := range slots {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// messageDocument renders headers plus the plain body as one text document.
func messageDocument(msg mailbox.Message) entity.DocumentInput {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\nSubject: %s\n", msg.From, msg.Subject)
	if !msg.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", msg.Date.UTC().Format(time.RFC1123Z))
	}
	b.WriteString("\n")
	b.WriteString(truncateRunes(msg.Body, constants.MaxEmailBodyChars))
	return entity.DocumentInput{
		Kind:     constants.KindText,
		Content:  b.String(),
		MimeType: "text/plain",
		Filename: "email-" + msg.ID + ".txt",
	}
}

func attachmentMime(a mailbox.Attachment) string {
	ct := strings.TrimSpace(a.ContentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return constants.MimeTypeForExt(filepath.Ext(a.Filename))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "\n[truncated]"
}
