// Package auth implements the redirect login: the browser is sent to the
// backend's login endpoint, which redirects back with ?token= on success.
package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

var (
	ErrNoToken       = errors.New("Authentication failed. No token received.")
	ErrLoginRequired = errors.New("login required")
)

// TokenHolder is the part of the session auth needs. *session.Session satisfies it.
type TokenHolder interface {
	HasToken() bool
	Set(ctx context.Context, token string) error
}

func LoginURL(apiBase string) string {
	return strings.TrimRight(apiBase, "/") + "/auth/login"
}

// TokenFromCallback extracts the token query parameter from a callback URL.
// Either a full URL or a bare query string is accepted.
func TokenFromCallback(callback string) (string, error) {
	raw := strings.TrimSpace(callback)
	var query url.Values
	if parsed, err := url.Parse(raw); err == nil && (parsed.RawQuery != "" || parsed.Scheme != "" || strings.HasPrefix(raw, "/")) {
		query = parsed.Query()
	} else {
		query, err = url.ParseQuery(strings.TrimPrefix(raw, "?"))
		if err != nil {
			return "", ErrNoToken
		}
	}
	token := strings.TrimSpace(query.Get("token"))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Complete stores the callback's token in the session and returns it.
func Complete(ctx context.Context, holder TokenHolder, callback string) (string, error) {
	token, err := TokenFromCallback(callback)
	if err != nil {
		return "", err
	}
	if err := holder.Set(ctx, token); err != nil {
		return "", err
	}
	return token, nil
}

// RequireToken only checks that a token is stored. Expiry and validity are
// discovered by the first request that gets a 401.
func RequireToken(holder TokenHolder) error {
	if holder == nil || !holder.HasToken() {
		return ErrLoginRequired
	}
	return nil
}
