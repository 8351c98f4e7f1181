package api

import (
	"net/http"

	"github.com/Joseda-hg/kairo/internal/session"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// bearerTransport reads the session on every request, so a token stored after
// the client was built is picked up and a cleared one stops being sent.
type bearerTransport struct {
	session *session.Session
	base    http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if clone.Header.Get("X-Request-ID") == "" {
		clone.Header.Set("X-Request-ID", uuid.NewString())
	}
	if t.session != nil {
		if token := t.session.Token(); token != "" {
			(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(clone)
		}
	}
	return t.base.RoundTrip(clone)
}
