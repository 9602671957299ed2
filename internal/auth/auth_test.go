package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
)

func TestStaticTokens(t *testing.T) {
	a := NewStaticTokens(map[string]string{"tok-1": "alice", "tok-2": "bob", "": "nobody"})

	id, err := a.Authenticate(context.Background(), " tok-2 ")
	require.NoError(t, err)
	assert.Equal(t, "bob", id.ActorID)

	for _, bad := range []string{"", "tok", "tok-3", "TOK-1"} {
		_, err := a.Authenticate(context.Background(), bad)
		assert.ErrorIs(t, err, common.ErrUnauthorized, bad)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		tok, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, tok, tt.header)
	}
}
