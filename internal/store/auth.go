package store

import (
	"context"

	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/session"
	"go.uber.org/zap"
)

type AuthState struct {
	User    *model.AuthUser
	Loading bool
	Error   string
}

func (s *Store) AuthSnapshot() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.auth
	if s.auth.User != nil {
		user := *s.auth.User
		out.User = &user
	}
	return out
}

func (s *Store) FetchCurrentUser(ctx context.Context) (model.AuthUser, error) {
	s.update(func() {
		s.auth.Loading = true
		s.auth.Error = ""
	})
	user, err := s.backend.CurrentUser(ctx)
	s.update(func() {
		s.auth.Loading = false
		if err != nil {
			s.auth.Error = errorText(err)
			return
		}
		s.auth.User = &user
	})
	return user, err
}

// Logout tells the backend and always drops the local session, even when
// the backend call fails.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("logout request failed", zap.Error(err))
	}
	var err error
	if s.session != nil {
		err = s.session.Clear(ctx, session.ReasonLogout)
	}
	s.update(func() {
		s.auth = AuthState{}
		s.tasks = TasksState{Tasks: []model.Task{}}
		clear(s.overlay)
		s.loads++
		s.meetings = newMeetingsState()
	})
	return err
}
