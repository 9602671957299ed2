package prefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/mailbox"
)

func newTestFilter() *Filter {
	return New(nil, []string{"stripe", "stripe.com", "vercel", "vercel.com", "githubcopilot"})
}

func TestKeep_Scenarios(t *testing.T) {
	f := newTestFilter()

	tests := []struct {
		name   string
		msg    mailbox.Message
		keep   bool
		reason Reason
	}{
		{
			name:   "stripe invoice subject",
			msg:    mailbox.Message{Subject: "Your Stripe invoice is ready", From: "jane@gmail.com", Body: "See you soon"},
			keep:   true,
			reason: ReasonKeywordSubject,
		},
		{
			name:   "team lunch",
			msg:    mailbox.Message{Subject: "Team lunch Friday?", From: "bob@gmail.com", Body: "Pizza or tacos?"},
			keep:   false,
			reason: ReasonNone,
		},
		{
			name:   "body keyword",
			msg:    mailbox.Message{Subject: "Thanks!", From: "bob@example.org", Body: "Your AMOUNT DUE is $12."},
			keep:   true,
			reason: ReasonKeywordBody,
		},
		{
			name:   "registry sender",
			msg:    mailbox.Message{Subject: "Heads up", From: `"Vercel" <notifications@vercel.com>`},
			keep:   true,
			reason: ReasonSender,
		},
		{
			name: "pdf attachment by content type",
			msg: mailbox.Message{Subject: "fyi", From: "ops@example.org",
				Attachments: []mailbox.Attachment{{ID: "a1", Filename: "doc", ContentType: "application/pdf"}}},
			keep:   true,
			reason: ReasonAttachment,
		},
		{
			name: "image attachment by extension",
			msg: mailbox.Message{Subject: "fyi", From: "ops@example.org",
				Attachments: []mailbox.Attachment{{ID: "a1", Filename: "shot.PNG", ContentType: "application/octet-stream"}}},
			keep:   true,
			reason: ReasonAttachment,
		},
		{
			name: "non document attachment",
			msg: mailbox.Message{Subject: "fyi", From: "ops@example.org",
				Attachments: []mailbox.Attachment{{ID: "a1", Filename: "notes.zip", ContentType: "application/zip"}}},
			keep:   false,
			reason: ReasonNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.Keep(tt.msg)
			assert.Equal(t, tt.keep, d.Keep)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestKeep_SubjectWinsOverSender(t *testing.T) {
	d := newTestFilter().Keep(mailbox.Message{Subject: "Payment received", From: "billing@stripe.com"})
	assert.Equal(t, ReasonKeywordSubject, d.Reason)
	assert.Equal(t, "payment", d.Matched)
}

func TestNew_DropsShortSenderKeys(t *testing.T) {
	f := New([]string{"  Invoice "}, []string{"x", "ab", "abc"})
	assert.Equal(t, []string{"invoice"}, f.keywords)
	assert.Equal(t, []string{"abc"}, f.senderKeys)
}

func TestSenderAddress(t *testing.T) {
	assert.Equal(t, "a@b.com", senderAddress(`"A B" <a@b.com>`))
	assert.Equal(t, "a@b.com", senderAddress(" a@b.com "))
	assert.Equal(t, "", senderAddress(""))
}
