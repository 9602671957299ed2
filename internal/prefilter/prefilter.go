// Package prefilter decides which mailbox messages are worth sending to extraction.
// Everything here is pure: no I/O, no clocks, no shared mutable state.
package prefilter

import (
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/mailbox"
)

// Reason names the first rule that retained a message.
type Reason string

const (
	ReasonKeywordSubject Reason = "keyword_subject"
	ReasonKeywordBody    Reason = "keyword_body"
	ReasonSender         Reason = "sender_registry"
	ReasonAttachment     Reason = "attachment"
	ReasonNone           Reason = "none"
)

// DefaultKeywords are the billing phrases looked for in subject and body.
var DefaultKeywords = []string{
	"invoice",
	"receipt",
	"payment",
	"subscription",
	"billing",
	"order confirmation",
	"transaction",
	"renewal",
	"charge",
	"statement",
	"amount due",
	"your plan",
}

// Decision is the outcome for one message.
type Decision struct {
	Keep    bool
	Reason  Reason
	Matched string // keyword, sender key or attachment filename
}

// Filter holds the lowered keyword list and registry sender keys.
type Filter struct {
	keywords   []string
	senderKeys []string
}

// New builds a filter. senderKeys usually come from registry.Registry.SenderKeys.
func New(keywords, senderKeys []string) *Filter {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	f := &Filter{}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			f.keywords = append(f.keywords, k)
		}
	}
	for _, k := range senderKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); len(k) >= 3 {
			f.senderKeys = append(f.senderKeys, k)
		}
	}
	return f
}

// Keep reports whether msg should be analyzed and why.
func (f *Filter) Keep(msg mailbox.Message) Decision {
	if kw, ok := f.containsKeyword(msg.Subject); ok {
		return Decision{Keep: true, Reason: ReasonKeywordSubject, Matched: kw}
	}
	if kw, ok := f.containsKeyword(msg.Body); ok {
		return Decision{Keep: true, Reason: ReasonKeywordBody, Matched: kw}
	}
	if key, ok := f.senderMatches(msg.From); ok {
		return Decision{Keep: true, Reason: ReasonSender, Matched: key}
	}
	for _, a := range msg.Attachments {
		if constants.IsPDFOrImage(a.ContentType, a.Filename) {
			return Decision{Keep: true, Reason: ReasonAttachment, Matched: a.Filename}
		}
	}
	return Decision{Reason: ReasonNone}
}

func (f *Filter) containsKeyword(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func (f *Filter) senderMatches(from string) (string, bool) {
	addr := strings.ToLower(senderAddress(from))
	if addr == "" {
		return "", false
	}
	for _, key := range f.senderKeys {
		if strings.Contains(addr, key) {
			return key, true
		}
	}
	return "", false
}

// senderAddress pulls the address out of `"Name" <addr@host>` forms.
func senderAddress(from string) string {
	from = strings.TrimSpace(from)
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.Index(from[i:], ">"); j > 0 {
			return strings.TrimSpace(from[i+1 : i+j])
		}
	}
	return from
}
