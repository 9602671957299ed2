package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/auth"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/mailbox"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/metrics"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/registry"
)

const testToken = "tok-alice"

var testNow = time.Date(2025, 2, 15, 9, 0, 0, 0, time.UTC)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(ctx context.Context, n int, req llm.Request) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	n := len(g.requests)
	g.mu.Unlock()
	if g.respond == nil {
		return `{"success": true, "services": [], "unmatchedItems": [], "documentType": "other"}`, nil
	}
	return g.respond(ctx, n, req)
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []entity.AuditEntry
	err     error
	panics  bool
}

func (a *fakeAudit) Append(ctx context.Context, e entity.AuditEntry) error {
	if a.panics {
		panic("audit store exploded")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return a.err
}

func (a *fakeAudit) Count(context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(len(a.entries)), nil
}

func (a *fakeAudit) ListRecent(context.Context, int) ([]entity.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]entity.AuditEntry(nil), a.entries...), nil
}

func (a *fakeAudit) all() []entity.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]entity.AuditEntry(nil), a.entries...)
}

type fakeMailbox struct {
	mu          sync.Mutex
	pages       []mailbox.Page
	listErr     error
	endless     bool
	listOpts    []mailbox.ListOptions
	attachments map[string][]byte
	link        string
	linkErr     error
}

func (m *fakeMailbox) ListMessages(_ context.Context, opts mailbox.ListOptions) (mailbox.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listOpts = append(m.listOpts, opts)
	if m.listErr != nil {
		return mailbox.Page{}, m.listErr
	}
	if m.endless {
		return mailbox.Page{NextCursor: fmt.Sprintf("c%d", len(m.listOpts))}, nil
	}
	idx := 0
	if opts.Cursor != "" {
		for i, p := range m.pages {
			if p.NextCursor == opts.Cursor {
				idx = i + 1
			}
		}
	}
	if idx >= len(m.pages) {
		return mailbox.Page{}, nil
	}
	return m.pages[idx], nil
}

func (m *fakeMailbox) FetchAttachment(_ context.Context, _, messageID, attachmentID string) ([]byte, error) {
	b, ok := m.attachments[messageID+"/"+attachmentID]
	if !ok {
		return nil, errors.New("attachment not found")
	}
	return b, nil
}

func (m *fakeMailbox) CreateAuthLink(context.Context, mailbox.AuthLinkRequest) (string, error) {
	return m.link, m.linkErr
}

type harness struct {
	proc    *Processor
	gen     *fakeGenerator
	audit   *fakeAudit
	mailbox *fakeMailbox
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	reg, err := registry.LoadDefault(registry.DefaultScores())
	require.NoError(t, err)

	h := &harness{
		gen:     &fakeGenerator{},
		audit:   &fakeAudit{},
		mailbox: &fakeMailbox{attachments: map[string][]byte{}},
		metrics: metrics.New(),
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	h.proc = NewProcessor(Deps{
		Registry:  reg,
		Generator: h.gen,
		Auth:      auth.NewStaticTokens(map[string]string{testToken: "alice"}),
		Mailbox:   h.mailbox,
		Audit:     h.audit,
		Metrics:   h.metrics,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, opts)
	return h
}
