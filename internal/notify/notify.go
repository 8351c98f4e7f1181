// Package notify keeps the short-lived toast messages shown at the bottom of the screen.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultDuration = 5 * time.Second

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

type Toast struct {
	ID        string
	Kind      Kind
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

func (t Toast) Expired(now time.Time) bool {
	return t.Duration > 0 && !now.Before(t.CreatedAt.Add(t.Duration))
}

// Notifier is what background workers need to report outcomes.
type Notifier interface {
	Success(message string) string
	Error(message string) string
	Info(message string) string
	Warning(message string) string
}

type Queue struct {
	mu       sync.Mutex
	toasts   []Toast
	now      func() time.Time
	onChange func()
}

func NewQueue() *Queue {
	return &Queue{now: time.Now}
}

// OnChange registers a callback run after a toast is added or dismissed.
func (q *Queue) OnChange(fn func()) {
	q.mu.Lock()
	q.onChange = fn
	q.mu.Unlock()
}

func (q *Queue) Success(message string) string { return q.Add(KindSuccess, message, DefaultDuration) }
func (q *Queue) Error(message string) string   { return q.Add(KindError, message, DefaultDuration) }
func (q *Queue) Info(message string) string    { return q.Add(KindInfo, message, DefaultDuration) }
func (q *Queue) Warning(message string) string { return q.Add(KindWarning, message, DefaultDuration) }

// Add queues a toast and returns its id. A zero duration keeps it until dismissed.
func (q *Queue) Add(kind Kind, message string, duration time.Duration) string {
	toast := Toast{
		ID:       uuid.NewString(),
		Kind:     kind,
		Message:  message,
		Duration: duration,
	}
	q.mu.Lock()
	toast.CreatedAt = q.now()
	q.toasts = append(q.toasts, toast)
	fn := q.onChange
	q.mu.Unlock()
	if fn != nil {
		fn()
	}
	return toast.ID
}

func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	found := false
	for i, toast := range q.toasts {
		if toast.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			found = true
			break
		}
	}
	fn := q.onChange
	q.mu.Unlock()
	if found && fn != nil {
		fn()
	}
	return found
}

// Active drops expired toasts and returns the rest, oldest first.
func (q *Queue) Active(now time.Time) []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.toasts[:0]
	for _, toast := range q.toasts {
		if !toast.Expired(now) {
			kept = append(kept, toast)
		}
	}
	q.toasts = kept
	return append([]Toast(nil), kept...)
}
