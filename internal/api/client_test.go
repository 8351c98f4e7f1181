package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenMemory struct {
	mu    sync.Mutex
	token string
}

func (m *tokenMemory) LoadToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *tokenMemory) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *tokenMemory) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) (*Client, *session.Session, *tokenMemory) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := &tokenMemory{token: token}
	sess, err := session.New(context.Background(), tokens, nil)
	require.NoError(t, err)
	return New(server.URL+"/api", sess), sess, tokens
}

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestBearerHeaderAndQuery(t *testing.T) {
	var gotAuth, gotQuery, gotRequestID string
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "/api/tasks", r.URL.Path)
		writeEnvelope(w, map[string]any{"tasks": []map[string]any{{"id": 1, "title": "A", "status": "pending"}}})
	}, "tok-1")

	list, err := client.ListTasks(context.Background(), model.TaskFilter{Status: "pending", Page: 2})
	require.NoError(t, err)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, model.ID("1"), list.Tasks[0].ID)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "page=2&status=pending", gotQuery)
	assert.NotEmpty(t, gotRequestID)
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var gotAuth string
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, map[string]any{"total": 3})
	}, "")

	stats, err := client.MeetingStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Empty(t, gotAuth)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	client, sess, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"token expired"}`)
	}, "stale")

	var reasons []string
	sess.OnCleared(func(reason string) { reasons = append(reasons, reason) })

	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "token expired", Message(err, "fallback"))
	assert.False(t, sess.HasToken())
	assert.Empty(t, tokens.token)
	assert.Equal(t, []string{session.ReasonUnauthorized}, reasons)
}

func TestUpdateTaskSendsPatch(t *testing.T) {
	var body map[string]any
	var method, path string
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeEnvelope(w, map[string]any{"id": 3, "status": "completed", "title": "C"})
	}, "tok")

	task, err := client.UpdateTask(context.Background(), "3", model.StatusPatch(model.StatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/api/tasks/3", path)
	assert.Equal(t, map[string]any{"status": "completed"}, body)
	assert.Equal(t, model.StatusCompleted, task.Status)
}

func TestSuccessFalseEnvelopeIsError(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"error":"Summary not available"}`)
	}, "tok")

	_, err := client.Summary(context.Background(), "9")
	require.Error(t, err)
	assert.Equal(t, "Summary not available", Message(err, ""))
}

func TestBareBodiesDecode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"user":{"id":"u1","name":"Ada","email":"ada@example.com"}}`)
	})
	mux.HandleFunc("/api/tasks/from-meeting/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"title":"Follow up","meeting_id":7}]`)
	})
	client, _, _ := newTestClient(t, mux.ServeHTTP, "tok")

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	tasks, err := client.TasksFromMeeting(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.ID("7"), tasks[0].MeetingID)
}

func TestServerErrorsTripBreaker(t *testing.T) {
	calls := 0
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}, "tok")

	for i := 0; i < 4; i++ {
		_, err := client.SyncEmails(context.Background())
		require.Error(t, err)
	}
	_, err := client.SyncEmails(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
	assert.Equal(t, 4, calls)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	calls := 0
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}, "tok")

	for i := 0; i < 6; i++ {
		_, err := client.GetMeeting(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	}
	assert.Equal(t, 6, calls)
}

func TestLoginURL(t *testing.T) {
	client := New("http://localhost:5000/api/", nil)
	assert.Equal(t, "http://localhost:5000/api/auth/login", client.LoginURL())
}
