package mailbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-API-Key") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/accounts/{account}/messages", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "acc-1", chi.URLParam(req, "account"))
		assert.Equal(t, "2025-01-01T00:00:00Z", req.URL.Query().Get("since"))
		page := Page{Messages: []Message{{ID: "m1", Subject: "Invoice"}}}
		if req.URL.Query().Get("cursor") == "" {
			page.NextCursor = "next"
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	r.Get("/accounts/{account}/messages/{msg}/attachments/{att}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "att") == "missing" {
			http.NotFound(w, req)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.7"))
	})
	r.Post("/auth-links", func(w http.ResponseWriter, req *http.Request) {
		var body AuthLinkRequest
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "https://app.example/ok", body.SuccessRedirectURL)
		_, _ = w.Write([]byte(`{"url":"https://mail.example/link/abc"}`))
	})
	return httptest.NewServer(r)
}

func testClient(url, key string) *Client {
	return NewClient(Config{BaseURL: url + "/", APIKey: key}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_ListMessagesPaginates(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := testClient(srv.URL, "secret")

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	page, err := c.ListMessages(context.Background(), ListOptions{AccountID: "acc-1", Since: since})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "next", page.NextCursor)

	page, err = c.ListMessages(context.Background(), ListOptions{AccountID: "acc-1", Since: since, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
}

func TestClient_FetchAttachment(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := testClient(srv.URL, "secret")

	b, err := c.FetchAttachment(context.Background(), "acc-1", "m1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(b))

	_, err = c.FetchAttachment(context.Background(), "acc-1", "m1", "missing")
	assert.ErrorContains(t, err, "404")
}

func TestClient_CreateAuthLink(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	link, err := testClient(srv.URL, "secret").CreateAuthLink(context.Background(), AuthLinkRequest{SuccessRedirectURL: "https://app.example/ok"})
	require.NoError(t, err)
	assert.Equal(t, "https://mail.example/link/abc", link)

	_, err = testClient(srv.URL, "wrong").CreateAuthLink(context.Background(), AuthLinkRequest{SuccessRedirectURL: "https://app.example/ok"})
	assert.ErrorContains(t, err, "401")
}
