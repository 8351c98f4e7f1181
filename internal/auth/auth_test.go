package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type holder struct{ token string }

func (h *holder) HasToken() bool { return h.token != "" }

func (h *holder) Set(_ context.Context, token string) error {
	h.token = token
	return nil
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5000/api/auth/login", LoginURL("http://localhost:5000/api/"))
}

func TestTokenFromCallback(t *testing.T) {
	tests := []struct {
		name     string
		callback string
		want     string
		wantErr  bool
	}{
		{"full url", "http://localhost:3000/auth/callback?token=abc.def", "abc.def", false},
		{"path only", "/auth/callback?token=xyz", "xyz", false},
		{"bare query", "token=q1&state=2", "q1", false},
		{"leading question mark", "?token=q2", "q2", false},
		{"missing", "http://localhost:3000/auth/callback", "", true},
		{"empty value", "/auth/callback?token=", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TokenFromCallback(tt.callback)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompleteAndGuard(t *testing.T) {
	h := &holder{}
	assert.ErrorIs(t, RequireToken(h), ErrLoginRequired)

	_, err := Complete(context.Background(), h, "/auth/callback")
	assert.EqualError(t, err, "Authentication failed. No token received.")
	assert.ErrorIs(t, RequireToken(h), ErrLoginRequired)

	token, err := Complete(context.Background(), h, "/auth/callback?token=t0k")
	require.NoError(t, err)
	assert.Equal(t, "t0k", token)
	assert.NoError(t, RequireToken(h))
}
