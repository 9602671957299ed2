package mailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPageSize    = 50
	maxAttachmentBytes = 20 << 20
)

// Config for the HTTP mailbox provider.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the mailbox provider's REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

// ListMessages returns one page of messages received since opts.Since.
func (c *Client) ListMessages(ctx context.Context, opts ListOptions) (Page, error) {
	q := url.Values{}
	q.Set("since", opts.Since.UTC().Format(time.RFC3339))
	size := opts.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	q.Set("limit", strconv.Itoa(size))
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	path := "/accounts/" + url.PathEscape(opts.AccountID) + "/messages?" + q.Encode()

	raw, err := c.do(ctx, http.MethodGet, path, nil, 0)
	if err != nil {
		return Page{}, err
	}
	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return Page{}, fmt.Errorf("decode message page: %w", err)
	}
	return page, nil
}

// FetchAttachment downloads one attachment's raw bytes.
func (c *Client) FetchAttachment(ctx context.Context, accountID, messageID, attachmentID string) ([]byte, error) {
	path := "/accounts/" + url.PathEscape(accountID) +
		"/messages/" + url.PathEscape(messageID) +
		"/attachments/" + url.PathEscape(attachmentID)
	return c.do(ctx, http.MethodGet, path, nil, maxAttachmentBytes)
}

// CreateAuthLink asks the provider for a hosted account-linking URL.
func (c *Client) CreateAuthLink(ctx context.Context, req AuthLinkRequest) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth-links", req, 0)
	if err != nil {
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode auth link: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("provider returned an empty auth link")
	}
	return out.URL, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, limit int64) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var rdr io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		rdr = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("mailbox.http.send_error", "req_id", reqID, "method", method, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("mailbox.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	if limit <= 0 {
		limit = 16 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}

	c.logger.Info("mailbox.http.response",
		"req_id", reqID,
		"method", method,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("mailbox provider status %d", resp.StatusCode)
	}
	return raw, nil
}
