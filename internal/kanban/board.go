// Package kanban holds the drag-and-drop task board: three status columns and
// a burn barrel. Moves are applied to the board immediately and persisted in
// the background.
package kanban

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/notify"
	"go.uber.org/zap"
)

// DistanceOffset is the pixel offset the web board used when picking a drop
// marker. Terminal callers pass their own row offset.
const DistanceOffset = 50

// AppendMarker is the Before value of the marker after the last card.
const AppendMarker = "-1"

type Column struct {
	Key   string
	Title string
}

var columns = []Column{
	{Key: model.StatusPending, Title: "Pending"},
	{Key: model.StatusInProgress, Title: "In Progress"},
	{Key: model.StatusCompleted, Title: "Completed"},
}

func Columns() []Column {
	return slices.Clone(columns)
}

func validColumn(key string) bool {
	return slices.ContainsFunc(columns, func(c Column) bool { return c.Key == key })
}

type Card struct {
	ID          string
	Title       string
	Description string
	Priority    string
	Deadline    *model.Timestamp
	AssignedBy  *model.Person
	FromEmail   bool
	SenderEmail string
	SourceType  string
	CreatedAt   model.Timestamp
	Column      string
	Task        model.Task
}

func cardFromTask(task model.Task) Card {
	column := task.Status
	if column == "" {
		column = model.StatusPending
	}
	return Card{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Deadline:    task.Deadline,
		AssignedBy:  task.AssignedBy,
		FromEmail:   task.CreatedFromEmail,
		SenderEmail: task.SenderEmail,
		SourceType:  task.SourceType,
		CreatedAt:   task.CreatedAt,
		Column:      column,
		Task:        task,
	}
}

// Backend persists board changes. *store.Store satisfies it.
type Backend interface {
	CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error)
	UpdateTask(ctx context.Context, id model.ID, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, id model.ID) error
}

// Runner executes background work. The default starts a goroutine.
type Runner func(fn func())

type Option func(*Board)

func WithRunner(run Runner) Option {
	return func(b *Board) { b.run = run }
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Board) { b.logger = logger }
}

func WithNotifier(n notify.Notifier) Option {
	return func(b *Board) { b.notifier = n }
}

// WithStatusHook is called synchronously when a drop moves a card to another
// column, before the update is sent.
func WithStatusHook(fn func(id model.ID, status string)) Option {
	return func(b *Board) { b.onStatus = fn }
}

// WithOnDeleted is called after a background delete succeeds.
func WithOnDeleted(fn func()) Option {
	return func(b *Board) { b.onDeleted = fn }
}

// WithOnChange is called after any change to the cards, including ones made
// by background work.
func WithOnChange(fn func()) Option {
	return func(b *Board) { b.onChange = fn }
}

type Board struct {
	ctx       context.Context
	backend   Backend
	run       Runner
	logger    *zap.Logger
	notifier  notify.Notifier
	onStatus  func(model.ID, string)
	onDeleted func()
	onChange  func()

	mu       sync.Mutex
	cards    []Card
	dragging string
	// Cards whose delete is in flight, and cards whose delete failed since
	// the last Reload. Both stay off the board.
	deleting map[string]bool
	failed   map[string]bool
}

func New(ctx context.Context, backend Backend, opts ...Option) *Board {
	b := &Board{
		ctx:      ctx,
		backend:  backend,
		run:      func(fn func()) { go fn() },
		logger:   zap.NewNop(),
		deleting: map[string]bool{},
		failed:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Rebuild replaces every card from tasks, in task order. Cards being deleted
// or whose delete failed stay off the board.
func (b *Board) Rebuild(tasks []model.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cards := make([]Card, 0, len(tasks))
	for _, task := range tasks {
		card := cardFromTask(task)
		if b.offBoardLocked(card.ID) {
			continue
		}
		cards = append(cards, card)
	}
	b.cards = cards
	b.dropStaleDragLocked()
}

// Reload is Rebuild for a freshly fetched collection: cards whose delete
// failed come back.
func (b *Board) Reload(tasks []model.Task) {
	b.mu.Lock()
	clear(b.failed)
	b.mu.Unlock()
	b.Rebuild(tasks)
}

// Merge refreshes the cards from tasks but keeps the order the board already
// has, so local drops and appends survive. Cards whose task is gone are
// removed and new tasks go to the end of their column.
func (b *Board) Merge(tasks []model.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	byID := make(map[string]model.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID.String()] = task
	}
	cards := make([]Card, 0, len(tasks))
	for _, card := range b.cards {
		task, ok := byID[card.ID]
		if !ok {
			continue
		}
		delete(byID, card.ID)
		cards = append(cards, cardFromTask(task))
	}
	for _, task := range tasks {
		id := task.ID.String()
		if _, ok := byID[id]; !ok || b.offBoardLocked(id) {
			continue
		}
		delete(byID, id)
		cards = append(cards, cardFromTask(task))
	}
	b.cards = cards
	b.dropStaleDragLocked()
}

func (b *Board) offBoardLocked(id string) bool {
	return b.deleting[id] || b.failed[id]
}

func (b *Board) dropStaleDragLocked() {
	if b.dragging != "" && b.indexLocked(b.dragging) < 0 {
		b.dragging = ""
	}
}

// Cards returns the cards of one column in board order.
func (b *Board) Cards(column string) []Card {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Card
	for _, card := range b.cards {
		if card.Column == column {
			out = append(out, card)
		}
	}
	return out
}

func (b *Board) Count(column string) int {
	return len(b.Cards(column))
}

func (b *Board) Card(id string) (Card, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(id)
	if i < 0 {
		return Card{}, false
	}
	return b.cards[i], true
}

func (b *Board) indexLocked(id string) int {
	return slices.IndexFunc(b.cards, func(c Card) bool { return c.ID == id })
}

// DragStart marks card as being dragged and returns the drop payload.
func (b *Board) DragStart(card Card) string {
	b.mu.Lock()
	b.dragging = card.ID
	b.mu.Unlock()
	return card.ID
}

func (b *Board) Dragging() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dragging
}

func (b *Board) CancelDrag() {
	b.mu.Lock()
	b.dragging = ""
	b.mu.Unlock()
}

// Drop moves the card named by payload into column, before the card with id
// before or at the end when before is AppendMarker. It reports whether the
// board changed. A column change sends one status update in the background;
// a failed update is logged and the board keeps the move.
func (b *Board) Drop(payload, column, before string) bool {
	b.mu.Lock()
	b.dragging = ""
	if payload == before || !validColumn(column) {
		b.mu.Unlock()
		return false
	}
	i := b.indexLocked(payload)
	if i < 0 {
		b.mu.Unlock()
		return false
	}
	card := b.cards[i]
	from := card.Column
	card.Column = column
	card.Task.Status = column
	b.cards = slices.Delete(b.cards, i, i+1)

	at := len(b.cards)
	if before != AppendMarker {
		if j := b.indexLocked(before); j >= 0 {
			at = j
		}
	}
	b.cards = slices.Insert(b.cards, at, card)
	b.mu.Unlock()

	if from != column {
		id := card.Task.ID
		if id.IsZero() {
			id = model.ID(card.ID)
		}
		if b.onStatus != nil {
			b.onStatus(id, column)
		}
		b.run(func() {
			if _, err := b.backend.UpdateTask(b.ctx, id, model.StatusPatch(column)); err != nil {
				b.logger.Error("update task status", zap.String("task_id", id.String()), zap.String("status", column), zap.Error(err))
			}
		})
	}
	b.changed()
	return true
}

// Move drops a card at the end of column.
func (b *Board) Move(id, column string) bool {
	return b.Drop(id, column, AppendMarker)
}

// Delete removes the card at once and deletes the task in the background.
// The card is not restored if the delete fails; it stays off the board until
// the next Reload.
func (b *Board) Delete(id string) bool {
	b.mu.Lock()
	i := b.indexLocked(id)
	if i < 0 {
		b.mu.Unlock()
		return false
	}
	card := b.cards[i]
	b.cards = slices.Delete(b.cards, i, i+1)
	if b.dragging == id {
		b.dragging = ""
	}
	b.deleting[id] = true
	b.mu.Unlock()
	b.changed()

	taskID := card.Task.ID
	if taskID.IsZero() {
		taskID = model.ID(id)
	}
	b.run(func() {
		err := b.backend.DeleteTask(b.ctx, taskID)
		b.mu.Lock()
		delete(b.deleting, id)
		if err != nil {
			b.failed[id] = true
		}
		b.mu.Unlock()
		if err != nil {
			b.logger.Error("delete task", zap.String("task_id", taskID.String()), zap.Error(err))
			b.notify(func(n notify.Notifier) { n.Error("Failed to delete task") })
			return
		}
		b.notify(func(n notify.Notifier) { n.Success("Task deleted successfully") })
		if b.onDeleted != nil {
			b.onDeleted()
		}
	})
	return true
}

// AddCard creates a medium priority task in column and appends its card once
// the backend confirms. A blank title does nothing.
func (b *Board) AddCard(column, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" || !validColumn(column) {
		return false
	}
	draft := model.TaskDraft{
		Title:    title,
		Status:   column,
		Priority: model.PriorityMedium,
	}
	b.run(func() {
		task, err := b.backend.CreateTask(b.ctx, draft)
		if err != nil {
			b.logger.Error("create task", zap.String("title", title), zap.Error(err))
			b.notify(func(n notify.Notifier) { n.Error("Failed to create task") })
			return
		}
		if task.Status == "" {
			task.Status = column
		}
		card := cardFromTask(task)
		b.mu.Lock()
		if b.indexLocked(card.ID) < 0 {
			b.cards = append(b.cards, card)
		}
		b.mu.Unlock()
		b.changed()
		b.notify(func(n notify.Notifier) { n.Success("Task created successfully") })
	})
	return true
}

func (b *Board) notify(fn func(notify.Notifier)) {
	if b.notifier != nil {
		fn(b.notifier)
	}
}

func (b *Board) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}
