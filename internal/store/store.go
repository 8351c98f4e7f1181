// Package store is the single in-memory source of truth for data fetched from
// the backend. Every action runs the API call on the caller's goroutine and
// applies its pending, fulfilled or rejected transition under one mutex.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/Joseda-hg/kairo/internal/api"
	"github.com/Joseda-hg/kairo/internal/model"
	"go.uber.org/zap"
)

var ErrTitleRequired = errors.New("title is required")

// Backend is the subset of the API client the store drives. *api.Client satisfies it.
type Backend interface {
	CurrentUser(ctx context.Context) (model.AuthUser, error)
	Logout(ctx context.Context) error

	ListTasks(ctx context.Context, filter model.TaskFilter) (api.TaskList, error)
	GetTask(ctx context.Context, id model.ID) (model.Task, error)
	CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error)
	UpdateTask(ctx context.Context, id model.ID, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, id model.ID) error
	SyncEmails(ctx context.Context) (model.SyncResult, error)
	TaskPollingStatus(ctx context.Context) (model.PollingStatus, error)
	TasksFromMeeting(ctx context.Context, meetingID model.ID) ([]model.Task, error)

	ListMeetings(ctx context.Context, filter model.MeetingFilter) (api.MeetingList, error)
	GetMeeting(ctx context.Context, id model.ID) (model.Meeting, error)
	Transcript(ctx context.Context, id model.ID) (model.Transcript, error)
	Summary(ctx context.Context, id model.ID) (model.MeetingSummary, error)
	SyncMeetings(ctx context.Context) (model.MeetingSyncResult, error)
	ProcessMeeting(ctx context.Context, id model.ID) error
	MeetingStats(ctx context.Context) (model.MeetingStats, error)
}

// SessionClearer ends the local session. *session.Session satisfies it.
type SessionClearer interface {
	Clear(ctx context.Context, reason string) error
}

type Store struct {
	backend Backend
	session SessionClearer
	logger  *zap.Logger

	mu        sync.Mutex
	tasks     TasksState
	overlay   map[model.ID]string
	loads     uint64
	meetings  MeetingsState
	auth      AuthState
	listeners []func()
}

func New(backend Backend, session SessionClearer, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:  backend,
		session:  session,
		logger:   logger,
		overlay:  map[model.ID]string{},
		tasks:    TasksState{Tasks: []model.Task{}},
		meetings: newMeetingsState(),
	}
}

// Subscribe registers fn to run after every state transition. Listeners are
// called without the store lock held.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// update applies fn under the lock and then notifies listeners.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, listener := range listeners {
		listener()
	}
}

func errorText(err error) string {
	return api.Message(err, err.Error())
}
