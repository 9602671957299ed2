// Package gemini is an llm.Generator backed by the generateContent REST API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
)

type Config struct {
	APIKey      string
	BaseURL     string // default https://generativelanguage.googleapis.com/v1beta
	Model       string // e.g., "gemini-2.0-flash"
	Temperature float32
	Timeout     time.Duration
	RatePerSec  float64
	RateBurst   int
}

type Client struct {
	cfg      Config
	endpoint llm.Endpoint
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		endpoint: llm.Endpoint{
			Provider: "gemini",
			URL: fmt.Sprintf("%s/models/%s:generateContent",
				strings.TrimRight(cfg.BaseURL, "/"), url.PathEscape(cfg.Model)),
			Headers: map[string]string{"x-goog-api-key": cfg.APIKey},
			Client:  &http.Client{Timeout: cfg.Timeout},
			Limiter: llm.NewLimiter(cfg.RatePerSec, cfg.RateBurst),
			Logger:  logger,
		},
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMimeType string   `json:"responseMimeType"`
	Temperature      *float32 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"documents", req.DocumentCount,
		"parts", len(req.Parts),
	)

	body := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: req.System}}},
		Contents:          []content{{Role: "user", Parts: toParts(req.Parts)}},
		GenerationConfig:  generationConfig{ResponseMimeType: "application/json"},
	}
	if c.cfg.Temperature > 0 {
		t := c.cfg.Temperature
		body.GenerationConfig.Temperature = &t
	}

	raw, err := c.endpoint.PostJSON(ctx, rid, body)
	if err != nil {
		c.logger.Error("llm.extract.http_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Candidates) == 0 {
		c.logger.Warn("llm.extract.empty_response", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"finish_reason", resp.Candidates[0].FinishReason,
		"content_len", b.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b.String(), nil
}

func toParts(parts []llm.Part) []part {
	out := make([]part, 0, len(parts))
	for _, p := range parts {
		if p.Kind == llm.PartBinary {
			out = append(out, part{InlineData: &inlineData{MimeType: p.MimeType, Data: p.Data}})
			continue
		}
		out = append(out, part{Text: p.Text})
	}
	return out
}
