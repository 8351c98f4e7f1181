package model

import "time"

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	MeetingPending    = "pending"
	MeetingProcessing = "processing"
	MeetingCompleted  = "completed"
	MeetingFailed     = "failed"
)

// Statuses lists the task statuses in board order.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted}

var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

type Person struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (p Person) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

type Task struct {
	ID               ID         `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	Deadline         *Timestamp `json:"deadline,omitempty"`
	CreatedAt        Timestamp  `json:"created_at"`
	UpdatedAt        Timestamp  `json:"updated_at"`
	AssignedBy       *Person    `json:"assigned_by,omitempty"`
	CreatedFromEmail bool       `json:"created_from_email,omitempty"`
	SenderEmail      string     `json:"sender_email,omitempty"`
	EmailID          string     `json:"email_id,omitempty"`
	SourceType       string     `json:"source_type,omitempty"`
	MeetingID        ID         `json:"meeting_id,omitempty"`
}

// Overdue reports whether the deadline has passed for a task that is not completed.
func (t Task) Overdue(now time.Time) bool {
	if t.Deadline == nil || t.Deadline.IsZero() {
		return false
	}
	return t.Deadline.Time.Before(now) && t.Status != StatusCompleted
}

type TaskDraft struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status,omitempty"`
	Priority        string     `json:"priority"`
	Deadline        *Timestamp `json:"deadline"`
	AssignedToEmail string     `json:"assigned_to_email,omitempty"`
}

// TaskPatch only serializes the fields that are set.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Deadline    *Timestamp `json:"deadline,omitempty"`
}

func StatusPatch(status string) TaskPatch {
	return TaskPatch{Status: &status}
}

type TaskFilter struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Query    string `json:"query"`
	Page     int    `json:"page,omitempty"`
	PerPage  int    `json:"per_page,omitempty"`
}

type Meeting struct {
	ID               ID         `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	StartTime        *Timestamp `json:"start_time,omitempty"`
	EndTime          *Timestamp `json:"end_time,omitempty"`
	Attendees        []Person   `json:"attendees"`
	ProcessingStatus string     `json:"processing_status"`
	MeetLink         string     `json:"meet_link,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

func (m Meeting) Status() string {
	if m.ProcessingStatus == "" {
		return MeetingPending
	}
	return m.ProcessingStatus
}

func (m Meeting) Duration() time.Duration {
	if m.StartTime == nil || m.EndTime == nil {
		return 0
	}
	d := m.EndTime.Time.Sub(m.StartTime.Time)
	if d < 0 {
		return 0
	}
	return d
}

type MeetingFilter struct {
	Status  string `json:"status"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
	PerPage int `json:"per_page"`
}

type ActionItem struct {
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
}

type NextMeeting struct {
	SuggestedDate string   `json:"suggested_date,omitempty"`
	Topics        []string `json:"topics,omitempty"`
}

type MeetingSummary struct {
	MeetingID             ID           `json:"meeting_id,omitempty"`
	Summary               string       `json:"summary"`
	KeyPoints             []string     `json:"key_points"`
	DecisionsMade         []string     `json:"decisions_made"`
	ActionItems           []ActionItem `json:"action_items"`
	TopicsDiscussed       []string     `json:"topics_discussed"`
	ParticipantsMentioned []string     `json:"participants_mentioned"`
	NextMeeting           *NextMeeting `json:"next_meeting,omitempty"`
}

type TranscriptSegment struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

type Transcript struct {
	MeetingID ID                  `json:"meeting_id,omitempty"`
	Text      string              `json:"transcript"`
	Segments  []TranscriptSegment `json:"segments,omitempty"`
}

type MeetingStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Processing int `json:"processing"`
	Pending    int `json:"pending"`
	Failed     int `json:"failed"`
}

type AuthUser struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

type SyncResult struct {
	NewTasksCreated int    `json:"new_tasks_created"`
	EmailsProcessed int    `json:"emails_processed,omitempty"`
	Message         string `json:"message,omitempty"`
}

type MeetingSyncResult struct {
	NewMeetings int    `json:"new_meetings"`
	Message     string `json:"message,omitempty"`
}

// PollingStatus is returned as-is by the backend polling endpoints.
type PollingStatus map[string]any

type SavedView struct {
	ID        int64
	Name      string
	Filter    TaskFilter
	CreatedAt time.Time
	UpdatedAt time.Time
}
