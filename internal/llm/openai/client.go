package openai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
)

// Generate implements llm.Generator over chat/completions. Text parts are sent as
// text content, images as image_url data URLs and other binaries as file parts.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"documents", req.DocumentCount,
		"parts", len(req.Parts),
		"text_len", llm.TextLength(req),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": userContent(req.Parts)},
		},
	}
	if c.cfg.Temperature > 0 {
		body["temperature"] = c.cfg.Temperature
	}

	raw, err := c.endpoint.PostJSON(ctx, rid, body)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Warn("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", nil
	}
	if len(cc.Choices) == 0 {
		c.logger.Warn("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", nil
	}

	content := cc.Choices[0].Message.Content
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func userContent(parts []llm.Part) []map[string]any {
	out := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Kind == llm.PartText:
			out = append(out, map[string]any{"type": "text", "text": p.Text})
		case llm.IsImagePart(p):
			out = append(out, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": llm.DataURL(p.MimeType, p.Data)},
			})
		default:
			out = append(out, map[string]any{
				"type": "file",
				"file": map[string]any{
					"filename":  p.Filename,
					"file_data": llm.DataURL(p.MimeType, p.Data),
				},
			})
		}
	}
	return out
}
