package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
)

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g., "gpt-4o-mini"
	Temperature float32       // 0 omits the field
	Timeout     time.Duration // http client timeout
	RatePerSec  float64       // outbound call rate; <= 0 disables limiting
	RateBurst   int
}

type Client struct {
	cfg      Config
	endpoint llm.Endpoint
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
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
			Provider: "openai",
			URL:      strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
			Headers:  map[string]string{"Authorization": "Bearer " + cfg.APIKey},
			Client:   &http.Client{Timeout: cfg.Timeout},
			Limiter:  llm.NewLimiter(cfg.RatePerSec, cfg.RateBurst),
			Logger:   logger,
		},
	}
}
