package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokens(t *testing.T) {
	got := parseTokens(" tok-a:alice, tok-b : bob ,broken,:nobody,tok-c:")
	assert.Equal(t, map[string]string{"tok-a": "alice", "tok-b": "bob"}, got)
	assert.Empty(t, parseTokens(""))
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("MAILBOX_SCAN_LIMIT", "250")
	t.Setenv("AUTH_TOKENS", "t1:svc")
	t.Setenv("RESOLVE_SCORE_SUBSTRING", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 250, cfg.Mailbox.ScanLimit)
	assert.Equal(t, map[string]string{"t1": "svc"}, cfg.Auth.Tokens)
	assert.Equal(t, 0.6, cfg.Resolve.SubstringScore)
	assert.Equal(t, 3, cfg.Mailbox.AttachmentConcurrency)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{HTTPAddr: ":8080"},
			LLM:     LLMConfig{Provider: "openai", APIKey: "k"},
			Auth:    AuthConfig{Tokens: map[string]string{"t": "a"}},
			Resolve: ResolveConfig{ExactScore: 1, AliasScore: 0.9, SubstringScore: 0.6},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"missing api key":    func(c *Config) { c.LLM.APIKey = "" },
		"unknown provider":   func(c *Config) { c.LLM.Provider = "llama" },
		"no listeners":       func(c *Config) { c.Server.HTTPAddr = "" },
		"no tokens":          func(c *Config) { c.Auth.Tokens = nil },
		"score out of range": func(c *Config) { c.Resolve.AliasScore = 1.5 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
