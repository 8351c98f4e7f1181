package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Joseda-hg/kairo/internal/api"
	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	calls   []string
	tasks   []model.Task
	filters []model.TaskFilter
	err     error

	meetings []model.Meeting
	related  []model.Task
	user     model.AuthUser
}

func (f *fakeBackend) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeBackend) CurrentUser(context.Context) (model.AuthUser, error) {
	return f.user, f.record("me")
}

func (f *fakeBackend) Logout(context.Context) error { return f.record("logout") }

func (f *fakeBackend) ListTasks(_ context.Context, filter model.TaskFilter) (api.TaskList, error) {
	f.filters = append(f.filters, filter)
	if err := f.record("list"); err != nil {
		return api.TaskList{}, err
	}
	var out []model.Task
	for _, task := range f.tasks {
		if filter.Status == "" || task.Status == filter.Status {
			out = append(out, task)
		}
	}
	return api.TaskList{Tasks: out}, nil
}

func (f *fakeBackend) GetTask(_ context.Context, id model.ID) (model.Task, error) {
	return model.Task{ID: id, Title: "fetched"}, f.record("get")
}

func (f *fakeBackend) CreateTask(_ context.Context, draft model.TaskDraft) (model.Task, error) {
	return model.Task{ID: "99", Title: draft.Title, Status: draft.Status}, f.record("create")
}

func (f *fakeBackend) UpdateTask(_ context.Context, id model.ID, patch model.TaskPatch) (model.Task, error) {
	task := model.Task{ID: id, Title: "updated"}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	return task, f.record("update")
}

func (f *fakeBackend) DeleteTask(context.Context, model.ID) error { return f.record("delete") }

func (f *fakeBackend) SyncEmails(context.Context) (model.SyncResult, error) {
	return model.SyncResult{NewTasksCreated: 2}, f.record("sync")
}

func (f *fakeBackend) TaskPollingStatus(context.Context) (model.PollingStatus, error) {
	return model.PollingStatus{"running": true}, f.record("polling")
}

func (f *fakeBackend) TasksFromMeeting(context.Context, model.ID) ([]model.Task, error) {
	return f.related, f.record("from-meeting")
}

func (f *fakeBackend) ListMeetings(context.Context, model.MeetingFilter) (api.MeetingList, error) {
	return api.MeetingList{Meetings: f.meetings, Pagination: model.Pagination{Page: 1, Pages: 3, Total: 50, PerPage: 20}}, f.record("meetings")
}

func (f *fakeBackend) GetMeeting(_ context.Context, id model.ID) (model.Meeting, error) {
	return model.Meeting{ID: id, Title: "Standup"}, f.record("meeting")
}

func (f *fakeBackend) Transcript(_ context.Context, id model.ID) (model.Transcript, error) {
	return model.Transcript{MeetingID: id, Text: "hello"}, f.record("transcript")
}

func (f *fakeBackend) Summary(_ context.Context, id model.ID) (model.MeetingSummary, error) {
	return model.MeetingSummary{MeetingID: id, Summary: "short"}, f.record("summary")
}

func (f *fakeBackend) SyncMeetings(context.Context) (model.MeetingSyncResult, error) {
	return model.MeetingSyncResult{NewMeetings: 4}, f.record("sync-meetings")
}

func (f *fakeBackend) ProcessMeeting(context.Context, model.ID) error { return f.record("process") }

func (f *fakeBackend) MeetingStats(context.Context) (model.MeetingStats, error) {
	return model.MeetingStats{Total: 5}, f.record("stats")
}

type fakeSession struct{ reasons []string }

func (f *fakeSession) Clear(_ context.Context, reason string) error {
	f.reasons = append(f.reasons, reason)
	return nil
}

func seeded() *fakeBackend {
	return &fakeBackend{tasks: []model.Task{
		{ID: "1", Title: "Write report", Status: model.StatusPending},
		{ID: "2", Title: "Review PR", Status: model.StatusInProgress},
		{ID: "3", Title: "Ship release", Status: model.StatusPending, Description: "v1.2"},
	}}
}

func TestFetchTasksWithFilter(t *testing.T) {
	backend := seeded()
	s := New(backend, nil, nil)

	var sawLoading bool
	s.Subscribe(func() {
		if s.TasksSnapshot().Loading {
			sawLoading = true
		}
	})

	require.NoError(t, s.FetchTasks(context.Background(), model.TaskFilter{Status: model.StatusPending}))
	snap := s.TasksSnapshot()
	assert.True(t, sawLoading)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	require.Len(t, snap.Tasks, 2)
	for _, task := range snap.Tasks {
		assert.Equal(t, model.StatusPending, task.Status)
	}
	assert.Equal(t, model.StatusPending, backend.filters[0].Status)
}

func TestFetchFailureKeepsCollection(t *testing.T) {
	backend := seeded()
	s := New(backend, nil, nil)
	require.NoError(t, s.FetchTasks(context.Background(), model.TaskFilter{}))

	backend.err = &api.Error{StatusCode: 500, Message: "boom"}
	require.Error(t, s.FetchTasks(context.Background(), model.TaskFilter{}))

	snap := s.TasksSnapshot()
	assert.Len(t, snap.Tasks, 3)
	assert.Equal(t, "boom", snap.Error)
	assert.False(t, snap.Loading)
}

func TestTasksLoadedCountsOnlyFetches(t *testing.T) {
	backend := seeded()
	s := New(backend, nil, nil)
	ctx := context.Background()
	assert.Zero(t, s.TasksLoaded())

	require.NoError(t, s.FetchTasks(ctx, model.TaskFilter{}))
	assert.Equal(t, uint64(1), s.TasksLoaded())

	s.OptimisticSetStatus("1", model.StatusCompleted)
	_, err := s.UpdateTask(ctx, "1", model.StatusPatch(model.StatusCompleted))
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, model.TaskDraft{Title: "New"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteTask(ctx, "2"))
	assert.Equal(t, uint64(1), s.TasksLoaded())

	backend.err = errors.New("offline")
	require.Error(t, s.FetchTasks(ctx, model.TaskFilter{}))
	assert.Equal(t, uint64(1), s.TasksLoaded())
}

func TestCreateRequiresTitle(t *testing.T) {
	backend := seeded()
	s := New(backend, nil, nil)

	_, err := s.CreateTask(context.Background(), model.TaskDraft{Title: "   "})
	assert.ErrorIs(t, err, ErrTitleRequired)
	assert.Empty(t, backend.calls)

	require.NoError(t, s.FetchTasks(context.Background(), model.TaskFilter{}))
	created, err := s.CreateTask(context.Background(), model.TaskDraft{Title: " New ", Status: model.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, "New", created.Title)
	assert.Equal(t, model.ID("99"), s.Tasks()[0].ID)
}

func TestOptimisticOverlay(t *testing.T) {
	backend := seeded()
	s := New(backend, nil, nil)
	require.NoError(t, s.FetchTasks(context.Background(), model.TaskFilter{}))

	s.OptimisticSetStatus("1", model.StatusCompleted)
	assert.Equal(t, model.StatusCompleted, s.Tasks()[0].Status)
	assert.Equal(t, 1, s.Stats().Completed)

	backend.err = errors.New("offline")
	_, err := s.UpdateTask(context.Background(), "1", model.StatusPatch(model.StatusCompleted))
	require.Error(t, err)
	assert.Equal(t, model.StatusCompleted, s.Tasks()[0].Status, "overlay survives a failed update")

	backend.err = nil
	require.NoError(t, s.FetchTasks(context.Background(), model.TaskFilter{}))
	assert.Equal(t, model.StatusPending, s.Tasks()[0].Status, "fetch drops the overlay")
}

func TestUpdateUsesUpdatingFlag(t *testing.T) {
	backend := seeded()
	s := New(backend, nil, nil)
	require.NoError(t, s.FetchTasks(context.Background(), model.TaskFilter{}))
	require.NoError(t, s.FetchTask(context.Background(), "2"))

	var states []TasksState
	s.Subscribe(func() { states = append(states, s.TasksSnapshot()) })

	_, err := s.UpdateTask(context.Background(), "2", model.StatusPatch(model.StatusCompleted))
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.True(t, states[0].Updating)
	assert.False(t, states[0].Loading)
	assert.False(t, states[1].Updating)

	snap := s.TasksSnapshot()
	assert.Equal(t, "updated", snap.Tasks[1].Title)
	assert.Equal(t, model.StatusCompleted, snap.Current.Status)
}

func TestDeleteClearsCurrent(t *testing.T) {
	backend := seeded()
	s := New(backend, nil, nil)
	require.NoError(t, s.FetchTasks(context.Background(), model.TaskFilter{}))
	require.NoError(t, s.FetchTask(context.Background(), "3"))

	require.NoError(t, s.DeleteTask(context.Background(), "3"))
	snap := s.TasksSnapshot()
	assert.Nil(t, snap.Current)
	assert.Len(t, snap.Tasks, 2)
}

func TestVisibleAppliesQuery(t *testing.T) {
	s := New(seeded(), nil, nil)
	require.NoError(t, s.FetchTasks(context.Background(), model.TaskFilter{}))

	s.SetFilter(model.TaskFilter{Query: "V1.2"})
	visible := s.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, model.ID("3"), visible[0].ID)
}

func TestSyncEmails(t *testing.T) {
	s := New(seeded(), nil, nil)
	result, err := s.SyncEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewTasksCreated)
	require.NotNil(t, s.TasksSnapshot().SyncResult)

	s.ClearSyncResult()
	assert.Nil(t, s.TasksSnapshot().SyncResult)
}

func TestMeetingsSlice(t *testing.T) {
	backend := seeded()
	backend.meetings = []model.Meeting{{ID: "m1", Title: "Standup"}}
	backend.related = []model.Task{{ID: "7", MeetingID: "m1"}}
	s := New(backend, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.FetchMeetings(ctx, model.MeetingFilter{}))
	require.NoError(t, s.ProcessMeeting(ctx, "m1"))
	require.NoError(t, s.FetchSummary(ctx, "m1"))
	require.NoError(t, s.FetchTranscript(ctx, "m1"))
	require.NoError(t, s.FetchTasksFromMeeting(ctx, "m1"))
	require.NoError(t, s.FetchStats(ctx))

	snap := s.MeetingsSnapshot()
	assert.Equal(t, 3, snap.Pagination.Pages)
	assert.Equal(t, model.MeetingProcessing, snap.Meetings[0].Status())
	assert.Equal(t, "short", snap.Summary.Summary)
	assert.Equal(t, "hello", snap.Transcript.Text)
	assert.Len(t, snap.RelatedTasks, 1)
	assert.Equal(t, 5, snap.Stats.Total)

	s.SetPagination(model.Pagination{Page: 2})
	assert.Equal(t, 2, s.MeetingsSnapshot().Pagination.Page)
	assert.Equal(t, 20, s.MeetingsSnapshot().Pagination.PerPage)

	s.ClearCurrentMeeting()
	snap = s.MeetingsSnapshot()
	assert.Nil(t, snap.Summary)
	assert.Nil(t, snap.Transcript)
	assert.Empty(t, snap.RelatedTasks)
}

func TestLogoutClearsSessionOnFailure(t *testing.T) {
	backend := seeded()
	backend.user = model.AuthUser{Name: "Ada"}
	sess := &fakeSession{}
	s := New(backend, sess, nil)

	_, err := s.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.AuthSnapshot().User)

	backend.err = errors.New("network down")
	require.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, []string{"logout"}, sess.reasons)
	assert.Nil(t, s.AuthSnapshot().User)
	assert.Equal(t, uint64(1), s.TasksLoaded(), "logout replaces the collection")
}
