// Package app wires configuration into the pipeline's collaborators.
package app

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/auth"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/core"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm/gemini"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/mailbox"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/metrics"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/registry"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/repository"
)

// LoadRegistry reads REGISTRY_PATH when set, else the embedded registry.
func LoadRegistry(cfg common.LLMConfig, scores common.ResolveConfig, logger *slog.Logger) (*registry.Registry, error) {
	s := registry.Scores{Exact: scores.ExactScore, Alias: scores.AliasScore, Substring: scores.SubstringScore}
	var (
		reg *registry.Registry
		err error
	)
	if cfg.RegistryPath != "" {
		reg, err = registry.LoadFile(cfg.RegistryPath, s)
	} else {
		reg, err = registry.LoadDefault(s)
	}
	if err != nil {
		return nil, common.WrapError(err, "load registry")
	}
	logger.Info("registry loaded", "entries", reg.Len(), "path", cfg.RegistryPath)
	return reg, nil
}

// NewGenerator returns the extraction client named by cfg.Provider.
func NewGenerator(cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, error) {
	switch cfg.Provider {
	case "", "openai":
		logger.Info("extraction provider", "provider", "openai", "model", cfg.Model)
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			RatePerSec:  cfg.RatePerSec,
			RateBurst:   cfg.RateBurst,
		}, logger), nil
	case "gemini":
		logger.Info("extraction provider", "provider", "gemini", "model", cfg.Model)
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			RatePerSec:  cfg.RatePerSec,
			RateBurst:   cfg.RateBurst,
		}, logger), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown LLM_PROVIDER %q", cfg.Provider), common.ErrInvalidInput)
	}
}

// NewMailbox returns the HTTP mailbox client, or nil when no base URL is configured.
func NewMailbox(cfg common.MailboxConfig, logger *slog.Logger) mailbox.Provider {
	if cfg.BaseURL == "" {
		logger.Warn("mailbox provider not configured; mailbox actions will fail")
		return nil
	}
	return mailbox.NewClient(mailbox.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}, logger)
}

// Components are the pieces a Processor is built from.
type Components struct {
	Registry  *registry.Registry
	Generator llm.Generator
	Auth      auth.Authenticator
	Mailbox   mailbox.Provider
	Audit     repository.AuditRepository
	Metrics   *metrics.Metrics
}

// NewProcessor builds the pipeline from cfg and c.
func NewProcessor(cfg *common.Config, c Components, logger *slog.Logger) *core.Processor {
	authn := c.Auth
	if authn == nil {
		authn = auth.NewStaticTokens(cfg.Auth.Tokens)
	}
	return core.NewProcessor(core.Deps{
		Registry:  c.Registry,
		Generator: c.Generator,
		Auth:      authn,
		Mailbox:   c.Mailbox,
		Audit:     c.Audit,
		Metrics:   c.Metrics,
		Logger:    logger,
	}, core.Options{
		ExtractTimeout:        cfg.LLM.Timeout,
		ScanLimit:             cfg.Mailbox.ScanLimit,
		PageLimit:             cfg.Mailbox.PageLimit,
		AttachmentConcurrency: cfg.Mailbox.AttachmentConcurrency,
	})
}
