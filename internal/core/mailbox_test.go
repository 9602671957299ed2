package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/mailbox"
)

func lunchMessage(id string) mailbox.Message {
	return mailbox.Message{ID: id, Subject: "Team lunch Friday?", From: "Sam <sam@pals.net>", Body: "Pizza or tacos?"}
}

func TestFetchInvoices_FiltersAndMaterializes(t *testing.T) {
	h := newHarness(t, Options{})
	h.mailbox.pages = []mailbox.Page{
		{
			Messages: []mailbox.Message{
				{
					ID:      "m1",
					Subject: "Your Stripe invoice is ready",
					From:    "Stripe <invoice+statements@stripe.com>",
					Body:    "Amount due: $49.00",
					Attachments: []mailbox.Attachment{
						{ID: "a1", Filename: "invoice.pdf", ContentType: "application/pdf"},
						{ID: "a2", Filename: "broken.png", ContentType: "image/png"},
						{ID: "a3", Filename: "notes.zip", ContentType: "application/zip"},
					},
				},
				lunchMessage("m2"),
			},
			NextCursor: "p2",
		},
		{Messages: []mailbox.Message{{ID: "m3", Subject: "Receipt for your payment", From: "billing@vercel.com", Body: "Pro plan"}}},
	}
	h.mailbox.attachments["m1/a1"] = []byte("%PDF-1.7")
	h.gen.respond = func(context.Context, int, llm.Request) (string, error) {
		return `{"success": true, "services": [
			{"registryId": "stripe", "detectedName": "Stripe", "confidence": 0.95, "billing": {"amount": 49, "currency": "USD", "frequency": "monthly"}},
			{"registryId": null, "detectedName": "Vercel", "confidence": 0.8, "billing": {"amount": 20, "currency": "USD", "frequency": "monthly"}}
		], "unmatchedItems": [], "documentType": "invoice"}`, nil
	}

	out, err := h.proc.FetchInvoices(context.Background(), testToken, FetchInvoicesRequest{AccountID: "acct-1"})
	require.NoError(t, err)

	assert.Equal(t, 3, out.EmailsScanned)
	assert.Equal(t, 2, out.InvoiceEmailsFound)
	assert.Equal(t, 3, out.DocumentsAnalyzed)
	assert.True(t, out.Success)
	require.Len(t, out.Services, 2)
	assert.Equal(t, "stripe", *out.Services[0].RegistryID)
	assert.Equal(t, "vercel", *out.Services[1].RegistryID)

	require.Equal(t, 1, h.gen.calls())
	var names []string
	for _, p := range h.gen.requests[0].Parts {
		if p.Kind == llm.PartBinary {
			names = append(names, p.Filename)
		}
	}
	assert.Equal(t, []string{"invoice.pdf"}, names)

	require.NotEmpty(t, h.mailbox.listOpts)
	assert.Equal(t, "acct-1", h.mailbox.listOpts[0].AccountID)
	assert.Equal(t, testNow.Add(-30*24*time.Hour), h.mailbox.listOpts[0].Since)
	assert.Equal(t, "p2", h.mailbox.listOpts[1].Cursor)

	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "fetch_invoices", entries[0].Action)
	assert.Equal(t, 3, entries[0].DocumentCount)
	assert.Equal(t, 2, entries[0].ServicesDetected)
}

func TestFetchInvoices_NoCandidates(t *testing.T) {
	h := newHarness(t, Options{})
	h.mailbox.pages = []mailbox.Page{{Messages: []mailbox.Message{lunchMessage("m1"), lunchMessage("m2")}}}

	out, err := h.proc.FetchInvoices(context.Background(), testToken, FetchInvoicesRequest{AccountID: "acct-1", DaysBack: 7})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Empty(t, out.Services)
	assert.NotNil(t, out.Services)
	assert.Equal(t, 2, out.EmailsScanned)
	assert.Zero(t, out.InvoiceEmailsFound)
	assert.Zero(t, out.DocumentsAnalyzed)
	assert.NotEmpty(t, out.ProcessingNotes)
	assert.Zero(t, h.gen.calls())
	assert.Equal(t, testNow.Add(-7*24*time.Hour), h.mailbox.listOpts[0].Since)

	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Zero(t, entries[0].DocumentCount)
}

func TestFetchInvoices_BatchesBeyondTenDocuments(t *testing.T) {
	h := newHarness(t, Options{})
	msgs := make([]mailbox.Message, 12)
	for i := range msgs {
		msgs[i] = mailbox.Message{ID: fmt.Sprintf("m%d", i), Subject: fmt.Sprintf("Invoice #%d", i), From: "ops@vendor.test"}
	}
	h.mailbox.pages = []mailbox.Page{{Messages: msgs}}
	h.gen.respond = func(_ context.Context, n int, _ llm.Request) (string, error) {
		name := "Slack"
		if n == 2 {
			name = "Zoom"
		}
		return fmt.Sprintf(`{"success": true, "services": [{"detectedName": %q, "confidence": 0.9,
			"billing": {"amount": 10, "currency": "USD", "frequency": "monthly"}}], "unmatchedItems": [], "documentType": "invoice"}`, name), nil
	}

	out, err := h.proc.FetchInvoices(context.Background(), testToken, FetchInvoicesRequest{AccountID: "acct-1"})
	require.NoError(t, err)

	require.Equal(t, 2, h.gen.calls())
	assert.Equal(t, 10, h.gen.requests[0].DocumentCount)
	assert.Equal(t, 2, h.gen.requests[1].DocumentCount)
	assert.Equal(t, 12, out.DocumentsAnalyzed)
	require.Len(t, out.Services, 2)
	assert.Equal(t, "slack", *out.Services[0].RegistryID)
	assert.Equal(t, "zoom", *out.Services[1].RegistryID)
	assert.Equal(t, constants.DocInvoice, out.DocumentType)
}

func TestFetchInvoices_CandidateCap(t *testing.T) {
	h := newHarness(t, Options{})
	msgs := make([]mailbox.Message, 30)
	for i := range msgs {
		msgs[i] = mailbox.Message{ID: fmt.Sprintf("m%d", i), Subject: "Payment received"}
	}
	h.mailbox.pages = []mailbox.Page{{Messages: msgs}}

	out, err := h.proc.FetchInvoices(context.Background(), testToken, FetchInvoicesRequest{AccountID: "acct-1"})
	require.NoError(t, err)
	assert.Equal(t, constants.MaxCandidateEmails, out.InvoiceEmailsFound)
	assert.Equal(t, constants.MaxCandidateEmails, out.EmailsScanned)
	assert.Equal(t, 2, h.gen.calls())
}

func TestFetchInvoices_ScanLimit(t *testing.T) {
	h := newHarness(t, Options{ScanLimit: 3})
	h.mailbox.pages = []mailbox.Page{
		{Messages: []mailbox.Message{lunchMessage("m1"), lunchMessage("m2")}, NextCursor: "p2"},
		{Messages: []mailbox.Message{lunchMessage("m3"), lunchMessage("m4")}, NextCursor: "p3"},
		{Messages: []mailbox.Message{lunchMessage("m5")}},
	}

	out, err := h.proc.FetchInvoices(context.Background(), testToken, FetchInvoicesRequest{AccountID: "acct-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.EmailsScanned)
	assert.Len(t, h.mailbox.listOpts, 2)
}

func TestFetchInvoices_StopsAfterPageLimit(t *testing.T) {
	h := newHarness(t, Options{PageLimit: 4})
	h.mailbox.endless = true

	out, err := h.proc.FetchInvoices(context.Background(), testToken, FetchInvoicesRequest{AccountID: "acct-1"})
	require.NoError(t, err)
	assert.Len(t, h.mailbox.listOpts, 4)
	assert.Zero(t, out.EmailsScanned)
	assert.True(t, out.Success)
	assert.Zero(t, h.gen.calls())
	assert.Len(t, h.audit.all(), 1)
}

func TestFetchInvoices_ListingFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.mailbox.listErr = errors.New("503 from provider")

	_, err := h.proc.FetchInvoices(context.Background(), testToken, FetchInvoicesRequest{AccountID: "acct-1"})
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Zero(t, h.gen.calls())

	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
}

func TestFetchInvoices_Validation(t *testing.T) {
	h := newHarness(t, Options{})
	for _, req := range []FetchInvoicesRequest{{}, {AccountID: "a", DaysBack: 400}, {AccountID: "a", DaysBack: -1}} {
		_, err := h.proc.FetchInvoices(context.Background(), testToken, req)
		assert.ErrorIs(t, err, common.ErrValidation)
	}
	assert.Empty(t, h.mailbox.listOpts)
	assert.Empty(t, h.audit.all())
}

func TestMessageDocument(t *testing.T) {
	msg := mailbox.Message{
		ID:      "abc",
		Subject: "Your receipt",
		From:    "billing@example.com",
		Date:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Body:    strings.Repeat("é", constants.MaxEmailBodyChars+5),
	}
	doc := messageDocument(msg)
	assert.Equal(t, constants.KindText, doc.Kind)
	assert.Equal(t, "email-abc.txt", doc.Filename)
	assert.True(t, strings.HasPrefix(doc.Content, "From: billing@example.com\nSubject: Your receipt\nDate: "))
	assert.True(t, strings.HasSuffix(doc.Content, "[truncated]"))
	assert.Equal(t, constants.MaxEmailBodyChars, strings.Count(doc.Content, "é"))
}

func TestAttachmentMime(t *testing.T) {
	assert.Equal(t, "application/pdf", attachmentMime(mailbox.Attachment{ContentType: "application/pdf; name=a.pdf"}))
	assert.Equal(t, "image/jpeg", attachmentMime(mailbox.Attachment{ContentType: "application/octet-stream", Filename: "scan.JPG"}))
	assert.Equal(t, "image/png", attachmentMime(mailbox.Attachment{Filename: "x.png"}))
}

func TestMergeResults(t *testing.T) {
	name := "Acme"
	a := entity.EmptyResult(false, "batch one unreadable")
	b := entity.AnalysisResult{
		Success:              true,
		SuggestedProjectName: &name,
		Services:             []entity.ExtractedService{{DetectedName: "Slack"}},
		UnmatchedItems:       []string{"mystery charge"},
		DocumentType:         constants.DocReceipt,
	}
	c := entity.AnalysisResult{Success: true, Services: []entity.ExtractedService{{DetectedName: "Zoom"}}, DocumentType: constants.DocInvoice}

	got := MergeResults([]entity.AnalysisResult{a, b, c})
	assert.True(t, got.Success)
	assert.Equal(t, &name, got.SuggestedProjectName)
	assert.Len(t, got.Services, 2)
	assert.Equal(t, []string{"mystery charge"}, got.UnmatchedItems)
	assert.Equal(t, constants.DocReceipt, got.DocumentType)
	assert.Equal(t, "batch one unreadable", got.ProcessingNotes)

	same := MergeResults([]entity.AnalysisResult{c, c})
	assert.Equal(t, constants.DocInvoice, same.DocumentType)

	none := MergeResults(nil)
	assert.True(t, none.Success)
	assert.NotNil(t, none.Services)
}

func TestChunk(t *testing.T) {
	items := make([]int, 25)
	batches := chunk(items, 10)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[2], 5)
	assert.Empty(t, chunk([]int{}, 10))
}
