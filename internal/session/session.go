// Package session holds the single bearer token shared by every outgoing request.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// Reasons passed to OnCleared callbacks.
const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "unauthorized"
)

// TokenStore is the persistent backing for the token. *db.Store satisfies it.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

type Session struct {
	store  TokenStore
	logger *zap.Logger

	mu        sync.RWMutex
	token     string
	onCleared []func(reason string)
}

func New(ctx context.Context, store TokenStore, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{store: store, logger: logger}
	if store == nil {
		return s, nil
	}
	token, err := store.LoadToken(ctx)
	if err != nil {
		return nil, err
	}
	s.token = token
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) HasToken() bool {
	return s.Token() != ""
}

func (s *Session) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if s.store != nil {
		if err := s.store.SaveToken(ctx, token); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.logger.Info("session token stored")
	return nil
}

// Clear drops the token from memory and storage, then runs the OnCleared callbacks.
// The in-memory token is gone even if the storage write fails.
func (s *Session) Clear(ctx context.Context, reason string) error {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	callbacks := append([]func(string){}, s.onCleared...)
	s.mu.Unlock()

	var err error
	if s.store != nil {
		err = s.store.ClearToken(ctx)
	}
	if had {
		s.logger.Info("session token cleared", zap.String("reason", reason))
	}
	for _, fn := range callbacks {
		fn(reason)
	}
	return err
}

func (s *Session) OnCleared(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCleared = append(s.onCleared, fn)
}

type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt *time.Time
}

// Describe decodes the token as an unverified JWT for display. Opaque tokens
// yield ok=false; nothing here is used for authorization.
func (s *Session) Describe() (Claims, bool) {
	token := s.Token()
	if token == "" {
		return Claims{}, false
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, false
	}

	claims := Claims{}
	claims.Subject, _ = mapClaims["sub"].(string)
	if claims.Subject == "" {
		claims.Subject, _ = mapClaims["identity"].(string)
	}
	claims.Email, _ = mapClaims["email"].(string)
	claims.Name, _ = mapClaims["name"].(string)
	if exp, ok := mapClaims["exp"].(float64); ok {
		expiresAt := time.Unix(int64(exp), 0)
		claims.ExpiresAt = &expiresAt
	}
	return claims, true
}
