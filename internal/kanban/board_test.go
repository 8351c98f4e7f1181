package kanban

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	updates  []model.TaskPatch
	ids      []model.ID
	deletes  []model.ID
	creates  []model.TaskDraft
	failWith error
}

func (f *fakeBackend) CreateTask(_ context.Context, draft model.TaskDraft) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, draft)
	if f.failWith != nil {
		return model.Task{}, f.failWith
	}
	return model.Task{ID: "42", Title: draft.Title, Status: draft.Status, Priority: draft.Priority}, nil
}

func (f *fakeBackend) UpdateTask(_ context.Context, id model.ID, patch model.TaskPatch) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	f.updates = append(f.updates, patch)
	return model.Task{ID: id}, f.failWith
}

func (f *fakeBackend) DeleteTask(_ context.Context, id model.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.failWith
}

type recordingNotifier struct {
	successes []string
	errors    []string
}

func (r *recordingNotifier) Success(m string) string { r.successes = append(r.successes, m); return "" }
func (r *recordingNotifier) Error(m string) string   { r.errors = append(r.errors, m); return "" }
func (r *recordingNotifier) Info(string) string      { return "" }
func (r *recordingNotifier) Warning(string) string   { return "" }

func inline(fn func()) { fn() }

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Write report", Status: model.StatusPending},
		{ID: "2", Title: "Review PR", Status: model.StatusInProgress},
		{ID: "3", Title: "Ship release", Status: model.StatusPending},
		{ID: "4", Title: "No status"},
	}
}

func newBoard(backend *fakeBackend, opts ...Option) *Board {
	opts = append([]Option{WithRunner(inline)}, opts...)
	b := New(context.Background(), backend, opts...)
	b.Rebuild(sampleTasks())
	return b
}

func ids(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, card := range cards {
		out = append(out, card.ID)
	}
	return out
}

func TestRebuildPartitionsCards(t *testing.T) {
	b := newBoard(&fakeBackend{})

	total := 0
	seen := map[string]string{}
	for _, column := range Columns() {
		for _, card := range b.Cards(column.Key) {
			_, dup := seen[card.ID]
			assert.False(t, dup, "card %s in two columns", card.ID)
			seen[card.ID] = column.Key
			total++
		}
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, model.StatusPending, seen["4"], "empty status lands in pending")
	assert.Equal(t, []string{"1", "3", "4"}, ids(b.Cards(model.StatusPending)))
	assert.Equal(t, 1, b.Count(model.StatusInProgress))
}

func TestColumnTitles(t *testing.T) {
	var titles []string
	for _, column := range Columns() {
		titles = append(titles, column.Title)
	}
	assert.Equal(t, []string{"Pending", "In Progress", "Completed"}, titles)
}

func TestDropAcrossColumnsSendsOneUpdate(t *testing.T) {
	backend := &fakeBackend{}
	var hooked []string
	b := newBoard(backend, WithStatusHook(func(id model.ID, status string) {
		hooked = append(hooked, id.String()+":"+status)
	}))

	payload := b.DragStart(Card{ID: "3"})
	assert.Equal(t, "3", b.Dragging())
	require.True(t, b.Drop(payload, model.StatusCompleted, AppendMarker))

	assert.Empty(t, b.Dragging())
	assert.Equal(t, []string{"3"}, ids(b.Cards(model.StatusCompleted)))
	assert.NotContains(t, ids(b.Cards(model.StatusPending)), "3")
	require.Len(t, backend.updates, 1)
	assert.Equal(t, model.ID("3"), backend.ids[0])
	require.NotNil(t, backend.updates[0].Status)
	assert.Equal(t, model.StatusCompleted, *backend.updates[0].Status)
	assert.Equal(t, []string{"3:completed"}, hooked)
}

func TestDropWithinColumnReordersWithoutUpdate(t *testing.T) {
	backend := &fakeBackend{}
	b := newBoard(backend)

	require.True(t, b.Drop("4", model.StatusPending, "1"))
	assert.Equal(t, []string{"4", "1", "3"}, ids(b.Cards(model.StatusPending)))
	assert.Empty(t, backend.updates)
}

func TestDropOnSelfIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	b := newBoard(backend)

	assert.False(t, b.Drop("1", model.StatusCompleted, "1"))
	assert.Equal(t, []string{"1", "3", "4"}, ids(b.Cards(model.StatusPending)))
	assert.Empty(t, backend.updates)
}

func TestDropBeforeCardInOtherColumn(t *testing.T) {
	backend := &fakeBackend{}
	b := newBoard(backend)

	require.True(t, b.Drop("1", model.StatusInProgress, "2"))
	assert.Equal(t, []string{"1", "2"}, ids(b.Cards(model.StatusInProgress)))
	assert.Len(t, backend.updates, 1)
}

func TestFailedUpdateKeepsMove(t *testing.T) {
	backend := &fakeBackend{failWith: errors.New("offline")}
	b := newBoard(backend)

	require.True(t, b.Move("1", model.StatusCompleted))
	card, ok := b.Card("1")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, card.Column)
}

func TestDropRejectsUnknownColumnAndCard(t *testing.T) {
	backend := &fakeBackend{}
	b := newBoard(backend)

	assert.False(t, b.Drop("1", "archived", AppendMarker))
	assert.False(t, b.Drop("missing", model.StatusCompleted, AppendMarker))
	assert.Empty(t, backend.updates)
}

func TestDeleteRemovesImmediately(t *testing.T) {
	backend := &fakeBackend{}
	notes := &recordingNotifier{}
	deleted := 0
	b := newBoard(backend, WithNotifier(notes), WithOnDeleted(func() { deleted++ }))

	require.True(t, b.Delete("2"))
	_, ok := b.Card("2")
	assert.False(t, ok)
	assert.Equal(t, []model.ID{"2"}, backend.deletes)
	assert.Equal(t, []string{"Task deleted successfully"}, notes.successes)
	assert.Equal(t, 1, deleted)
}

func TestDeleteFailureDoesNotRestore(t *testing.T) {
	backend := &fakeBackend{failWith: errors.New("boom")}
	notes := &recordingNotifier{}
	deleted := 0
	b := newBoard(backend, WithNotifier(notes), WithOnDeleted(func() { deleted++ }))

	require.True(t, b.Delete("2"))
	_, ok := b.Card("2")
	assert.False(t, ok)
	assert.Equal(t, []string{"Failed to delete task"}, notes.errors)
	assert.Zero(t, deleted)
}

func TestAddCard(t *testing.T) {
	backend := &fakeBackend{}
	notes := &recordingNotifier{}
	b := newBoard(backend, WithNotifier(notes))

	assert.False(t, b.AddCard(model.StatusCompleted, "   "))
	assert.Empty(t, backend.creates)

	require.True(t, b.AddCard(model.StatusCompleted, "  Plan sprint "))
	require.Len(t, backend.creates, 1)
	assert.Equal(t, model.TaskDraft{Title: "Plan sprint", Status: model.StatusCompleted, Priority: model.PriorityMedium}, backend.creates[0])
	assert.Equal(t, []string{"42"}, ids(b.Cards(model.StatusCompleted)))
	assert.Equal(t, []string{"Task created successfully"}, notes.successes)
}

func TestAddCardFailureAppendsNothing(t *testing.T) {
	backend := &fakeBackend{failWith: errors.New("boom")}
	notes := &recordingNotifier{}
	b := newBoard(backend, WithNotifier(notes))

	require.True(t, b.AddCard(model.StatusPending, "Plan sprint"))
	assert.Equal(t, 3, b.Count(model.StatusPending))
	assert.Equal(t, []string{"Failed to create task"}, notes.errors)
}

func TestRebuildDuringDeleteKeepsCardHidden(t *testing.T) {
	backend := &fakeBackend{}
	var queued []func()
	b := New(context.Background(), backend, WithRunner(func(fn func()) { queued = append(queued, fn) }))
	b.Rebuild(sampleTasks())

	require.True(t, b.Delete("1"))
	b.Rebuild(sampleTasks())
	_, ok := b.Card("1")
	assert.False(t, ok)

	require.Len(t, queued, 1)
	queued[0]()
	b.Rebuild(sampleTasks()[1:])
	_, ok = b.Card("1")
	assert.False(t, ok)
	assert.Equal(t, []model.ID{"1"}, backend.deletes)
}

func TestFailedDeleteStaysOffUntilReload(t *testing.T) {
	backend := &fakeBackend{failWith: errors.New("boom")}
	b := newBoard(backend)

	require.True(t, b.Delete("1"))
	b.Merge(sampleTasks())
	b.Rebuild(sampleTasks())
	_, ok := b.Card("1")
	assert.False(t, ok)

	b.Reload(sampleTasks())
	_, ok = b.Card("1")
	assert.True(t, ok)
}

func TestMergeKeepsBoardOrder(t *testing.T) {
	b := newBoard(&fakeBackend{})
	require.True(t, b.Drop("3", model.StatusInProgress, "2"))
	require.Equal(t, []string{"3", "2"}, ids(b.Cards(model.StatusInProgress)))

	tasks := sampleTasks()
	tasks[2].Status = model.StatusInProgress
	b.Merge(append(tasks[1:], model.Task{ID: "5", Title: "Plan sprint", Status: model.StatusInProgress}))
	assert.Equal(t, []string{"3", "2", "5"}, ids(b.Cards(model.StatusInProgress)))
	assert.Equal(t, []string{"4"}, ids(b.Cards(model.StatusPending)))

	b.Rebuild(tasks)
	assert.Equal(t, []string{"2", "3"}, ids(b.Cards(model.StatusInProgress)))
}
