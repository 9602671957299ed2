// Package auth resolves bearer credentials to caller identities.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
)

// Identity is the authenticated caller.
type Identity struct {
	ActorID string
}

// Authenticator turns a raw credential into an Identity or an unauthorized error.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Identity, error)
}

// StaticTokens authenticates against a fixed token -> actor table.
type StaticTokens struct {
	entries []tokenEntry
}

type tokenEntry struct {
	token []byte
	actor string
}

func NewStaticTokens(tokens map[string]string) *StaticTokens {
	s := &StaticTokens{}
	for tok, actor := range tokens {
		if tok == "" || actor == "" {
			continue
		}
		s.entries = append(s.entries, tokenEntry{token: []byte(tok), actor: actor})
	}
	return s
}

// Authenticate compares credential against every token in constant time per entry.
func (s *StaticTokens) Authenticate(_ context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, common.Unauthorizedf("missing credential")
	}
	c := []byte(credential)
	actor := ""
	for _, e := range s.entries {
		if subtle.ConstantTimeCompare(c, e.token) == 1 {
			actor = e.actor
		}
	}
	if actor == "" {
		return Identity{}, common.Unauthorizedf("invalid credential")
	}
	return Identity{ActorID: actor}, nil
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively; ok is false for any other scheme.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
