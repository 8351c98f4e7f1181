package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/Joseda-hg/kairo/internal/model"
)

// LoginURL is opened in the browser; the identity provider redirects back to
// the client's /auth/callback with a token.
func (c *Client) LoginURL() string {
	return c.baseURL + "/auth/login"
}

func (c *Client) CurrentUser(ctx context.Context) (model.AuthUser, error) {
	var out struct {
		model.AuthUser
		User *model.AuthUser `json:"user"`
	}
	if err := c.get(ctx, "/auth/me", nil, &out); err != nil {
		return model.AuthUser{}, err
	}
	if out.User != nil {
		return *out.User, nil
	}
	return out.AuthUser, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", nil, nil)
}

type TaskList struct {
	Tasks      []model.Task      `json:"tasks"`
	Pagination *model.Pagination `json:"pagination,omitempty"`
}

func (c *Client) ListTasks(ctx context.Context, filter model.TaskFilter) (TaskList, error) {
	query := url.Values{}
	setIfNotEmpty(query, "status", filter.Status)
	setIfNotEmpty(query, "priority", filter.Priority)
	setIfPositive(query, "page", filter.Page)
	setIfPositive(query, "per_page", filter.PerPage)

	var out TaskList
	if err := c.get(ctx, "/tasks", query, &out); err != nil {
		return TaskList{}, err
	}
	if out.Tasks == nil {
		out.Tasks = []model.Task{}
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, id model.ID) (model.Task, error) {
	var out model.Task
	err := c.get(ctx, "/tasks/"+escape(id), nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	var out model.Task
	err := c.post(ctx, "/tasks", draft, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id model.ID, patch model.TaskPatch) (model.Task, error) {
	var out model.Task
	err := c.put(ctx, "/tasks/"+escape(id), patch, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id model.ID) error {
	return c.delete(ctx, "/tasks/"+escape(id), nil)
}

func (c *Client) SyncEmails(ctx context.Context) (model.SyncResult, error) {
	var out model.SyncResult
	err := c.post(ctx, "/tasks/sync", nil, &out)
	return out, err
}

func (c *Client) TaskPollingStatus(ctx context.Context) (model.PollingStatus, error) {
	out := model.PollingStatus{}
	err := c.get(ctx, "/tasks/polling/status", nil, &out)
	return out, err
}

func (c *Client) TasksFromMeeting(ctx context.Context, meetingID model.ID) ([]model.Task, error) {
	var raw struct {
		Tasks []model.Task `json:"tasks"`
	}
	var list []model.Task
	// The endpoint has returned both a bare array and {tasks: [...]}.
	err := c.get(ctx, "/tasks/from-meeting/"+escape(meetingID), nil, &flexibleTasks{list: &list, wrapped: &raw})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = raw.Tasks
	}
	if list == nil {
		list = []model.Task{}
	}
	return list, nil
}

type flexibleTasks struct {
	list    *[]model.Task
	wrapped any
}

func (f *flexibleTasks) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, f.list)
	}
	return json.Unmarshal(data, f.wrapped)
}

type MeetingList struct {
	Meetings   []model.Meeting  `json:"meetings"`
	Pagination model.Pagination `json:"pagination"`
}

func (c *Client) ListMeetings(ctx context.Context, filter model.MeetingFilter) (MeetingList, error) {
	query := url.Values{}
	setIfNotEmpty(query, "status", filter.Status)
	setIfPositive(query, "page", filter.Page)
	setIfPositive(query, "per_page", filter.PerPage)

	var out MeetingList
	if err := c.get(ctx, "/meetings", query, &out); err != nil {
		return MeetingList{}, err
	}
	if out.Meetings == nil {
		out.Meetings = []model.Meeting{}
	}
	return out, nil
}

func (c *Client) GetMeeting(ctx context.Context, id model.ID) (model.Meeting, error) {
	var out model.Meeting
	err := c.get(ctx, "/meetings/"+escape(id), nil, &out)
	return out, err
}

func (c *Client) Transcript(ctx context.Context, id model.ID) (model.Transcript, error) {
	var out model.Transcript
	err := c.get(ctx, "/meetings/"+escape(id)+"/transcript", nil, &out)
	if out.MeetingID.IsZero() {
		out.MeetingID = id
	}
	return out, err
}

func (c *Client) Summary(ctx context.Context, id model.ID) (model.MeetingSummary, error) {
	var out model.MeetingSummary
	err := c.get(ctx, "/meetings/"+escape(id)+"/summary", nil, &out)
	if out.MeetingID.IsZero() {
		out.MeetingID = id
	}
	return out, err
}

func (c *Client) SyncMeetings(ctx context.Context) (model.MeetingSyncResult, error) {
	var out model.MeetingSyncResult
	err := c.post(ctx, "/meetings/sync", nil, &out)
	return out, err
}

func (c *Client) ProcessMeeting(ctx context.Context, id model.ID) error {
	return c.post(ctx, "/meetings/"+escape(id)+"/process", nil, nil)
}

func (c *Client) MeetingPollingStatus(ctx context.Context) (model.PollingStatus, error) {
	out := model.PollingStatus{}
	err := c.get(ctx, "/meetings/polling/status", nil, &out)
	return out, err
}

func (c *Client) MeetingStats(ctx context.Context) (model.MeetingStats, error) {
	var out model.MeetingStats
	err := c.get(ctx, "/meetings/stats", nil, &out)
	return out, err
}

func escape(id model.ID) string {
	return url.PathEscape(id.String())
}

func setIfNotEmpty(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}

func setIfPositive(query url.Values, key string, value int) {
	if value > 0 {
		query.Set(key, strconv.Itoa(value))
	}
}
