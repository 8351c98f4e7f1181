package store

import (
	"context"
	"slices"
	"strings"

	"github.com/Joseda-hg/kairo/internal/model"
	"go.uber.org/zap"
)

type TasksState struct {
	Tasks         []model.Task
	Current       *model.Task
	Filter        model.TaskFilter
	Loading       bool
	Updating      bool
	Syncing       bool
	Error         string
	SyncResult    *model.SyncResult
	PollingStatus model.PollingStatus
}

type Stats struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
}

// TasksSnapshot returns a copy of the tasks slice with optimistic statuses applied.
func (s *Store) TasksSnapshot() TasksState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.tasks
	out.Tasks = s.overlaidLocked()
	if s.tasks.Current != nil {
		current := *s.tasks.Current
		out.Current = &current
	}
	if s.tasks.SyncResult != nil {
		result := *s.tasks.SyncResult
		out.SyncResult = &result
	}
	return out
}

// Tasks returns the collection with optimistic statuses applied.
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlaidLocked()
}

// Visible applies the current filter's free-text query on top of Tasks.
func (s *Store) Visible() []model.Task {
	s.mu.Lock()
	query := strings.ToLower(strings.TrimSpace(s.tasks.Filter.Query))
	tasks := s.overlaidLocked()
	s.mu.Unlock()
	if query == "" {
		return tasks
	}
	return slices.DeleteFunc(tasks, func(task model.Task) bool {
		return !strings.Contains(strings.ToLower(task.Title), query) &&
			!strings.Contains(strings.ToLower(task.Description), query)
	})
}

func (s *Store) Stats() Stats {
	var stats Stats
	for _, task := range s.Tasks() {
		stats.Total++
		switch task.Status {
		case model.StatusInProgress:
			stats.InProgress++
		case model.StatusCompleted:
			stats.Completed++
		default:
			stats.Pending++
		}
	}
	return stats
}

func (s *Store) overlaidLocked() []model.Task {
	tasks := slices.Clone(s.tasks.Tasks)
	for i := range tasks {
		if status, ok := s.overlay[tasks[i].ID]; ok {
			tasks[i].Status = status
		}
	}
	return tasks
}

// TasksLoaded counts how often the collection was replaced wholesale, by a
// fetch or a logout. Creates, updates and deletes edit it in place.
func (s *Store) TasksLoaded() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func (s *Store) FetchTasks(ctx context.Context, filter model.TaskFilter) error {
	s.update(func() {
		s.tasks.Loading = true
		s.tasks.Error = ""
	})
	list, err := s.backend.ListTasks(ctx, filter)
	s.update(func() {
		s.tasks.Loading = false
		if err != nil {
			s.tasks.Error = errorText(err)
			return
		}
		s.tasks.Tasks = list.Tasks
		clear(s.overlay)
		s.loads++
	})
	if err != nil {
		s.logger.Warn("fetch tasks", zap.Error(err))
	}
	return err
}

func (s *Store) FetchTask(ctx context.Context, id model.ID) error {
	s.update(func() {
		s.tasks.Loading = true
		s.tasks.Error = ""
	})
	task, err := s.backend.GetTask(ctx, id)
	s.update(func() {
		s.tasks.Loading = false
		if err != nil {
			s.tasks.Error = errorText(err)
			return
		}
		s.tasks.Current = &task
	})
	return err
}

func (s *Store) CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		s.update(func() { s.tasks.Error = "Title is required" })
		return model.Task{}, ErrTitleRequired
	}

	s.update(func() {
		s.tasks.Loading = true
		s.tasks.Error = ""
	})
	task, err := s.backend.CreateTask(ctx, draft)
	s.update(func() {
		s.tasks.Loading = false
		if err != nil {
			s.tasks.Error = errorText(err)
			return
		}
		s.tasks.Tasks = append([]model.Task{task}, s.tasks.Tasks...)
	})
	return task, err
}

func (s *Store) UpdateTask(ctx context.Context, id model.ID, patch model.TaskPatch) (model.Task, error) {
	s.update(func() {
		s.tasks.Updating = true
		s.tasks.Error = ""
	})
	task, err := s.backend.UpdateTask(ctx, id, patch)
	s.update(func() {
		s.tasks.Updating = false
		if err != nil {
			// Overlays stay in place until the next fetch.
			s.tasks.Error = errorText(err)
			return
		}
		if task.ID.IsZero() {
			task.ID = id
		}
		for i := range s.tasks.Tasks {
			if s.tasks.Tasks[i].ID == task.ID {
				s.tasks.Tasks[i] = task
				break
			}
		}
		if s.tasks.Current != nil && s.tasks.Current.ID == task.ID {
			current := task
			s.tasks.Current = &current
		}
		delete(s.overlay, task.ID)
	})
	return task, err
}

func (s *Store) DeleteTask(ctx context.Context, id model.ID) error {
	s.update(func() {
		s.tasks.Loading = true
		s.tasks.Error = ""
	})
	err := s.backend.DeleteTask(ctx, id)
	s.update(func() {
		s.tasks.Loading = false
		if err != nil {
			s.tasks.Error = errorText(err)
			return
		}
		s.tasks.Tasks = slices.DeleteFunc(s.tasks.Tasks, func(task model.Task) bool { return task.ID == id })
		delete(s.overlay, id)
		if s.tasks.Current != nil && s.tasks.Current.ID == id {
			s.tasks.Current = nil
		}
	})
	return err
}

// OptimisticSetStatus records a tentative status for one task. It only affects
// what Tasks returns and is dropped by the next confirmed update or fetch.
func (s *Store) OptimisticSetStatus(id model.ID, status string) {
	s.update(func() {
		s.overlay[id] = status
	})
}

func (s *Store) SyncEmails(ctx context.Context) (model.SyncResult, error) {
	s.update(func() {
		s.tasks.Syncing = true
		s.tasks.Error = ""
	})
	result, err := s.backend.SyncEmails(ctx)
	s.update(func() {
		s.tasks.Syncing = false
		if err != nil {
			s.tasks.Error = errorText(err)
			return
		}
		s.tasks.SyncResult = &result
	})
	return result, err
}

func (s *Store) FetchPollingStatus(ctx context.Context) (model.PollingStatus, error) {
	status, err := s.backend.TaskPollingStatus(ctx)
	s.update(func() {
		if err != nil {
			s.tasks.Error = errorText(err)
			return
		}
		s.tasks.PollingStatus = status
	})
	return status, err
}

func (s *Store) SetFilter(filter model.TaskFilter) {
	s.update(func() { s.tasks.Filter = filter })
}

func (s *Store) Filter() model.TaskFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Filter
}

func (s *Store) ClearSyncResult() {
	s.update(func() { s.tasks.SyncResult = nil })
}

func (s *Store) ClearTasksError() {
	s.update(func() { s.tasks.Error = "" })
}
