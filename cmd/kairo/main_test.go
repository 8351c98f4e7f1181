package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Joseda-hg/kairo/internal/api"
	"github.com/Joseda-hg/kairo/internal/config"
	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/session"
	"github.com/Joseda-hg/kairo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfigAppliesFlagsAndSaves(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	cfg, path, err := loadConfig(&globalFlags{configPath: cfgPath, apiURL: "http://api.test/api/"})
	require.NoError(t, err)
	assert.Equal(t, cfgPath, path)
	assert.Equal(t, filepath.Join(dir, "kairo.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "kairo.log"), cfg.LogPath)
	assert.Equal(t, config.DefaultWebPort, cfg.WebPort)

	saved, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/api", saved.APIURL)
	assert.Equal(t, cfg.DBPath, saved.DBPath)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"login", "logout", "whoami", "sync", "meetings", "summary", "serve"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"config", "db", "api"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(&model.Meeting{Title: "Planning"}, &model.MeetingSummary{
		Summary:     "We planned.",
		KeyPoints:   []string{"Scope agreed"},
		ActionItems: []model.ActionItem{{Description: "Draft brief", Assignee: "Ada"}},
	})
	assert.Contains(t, out, "Planning")
	assert.Contains(t, out, "We planned.")
	assert.Contains(t, out, "Scope agreed")
	assert.Contains(t, out, "Draft brief (Ada)")

	assert.Contains(t, renderSummary(nil, nil), "Summary Not Available")
}

func TestRenderMeetings(t *testing.T) {
	assert.Contains(t, renderMeetings(nil, model.Pagination{}), "No meetings found.")

	out := renderMeetings([]model.Meeting{{ID: "7", Title: "Retro", ProcessingStatus: model.MeetingFailed}}, model.Pagination{Page: 1, Pages: 3, Total: 41})
	assert.Contains(t, out, "Retro")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "Page 1 of 3")
	assert.Equal(t, "Alan <a@b.c>", userLabel(model.AuthUser{Name: "Alan", Email: "a@b.c"}))
}

func TestWebServerDoesNotShareTerminalStore(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{
			"tasks": []map[string]any{{"id": 1, "title": "Write report", "status": "pending"}},
		}})
	}))
	defer upstream.Close()

	ctx := context.Background()
	sess, err := session.New(ctx, nil, nil)
	require.NoError(t, err)
	require.NoError(t, sess.Set(ctx, "token"))
	client := api.New(upstream.URL+"/api", sess)
	a := &app{
		cfg:     config.Config{APIURL: upstream.URL + "/api"},
		logger:  zap.NewNop(),
		session: sess,
		client:  client,
		store:   store.New(client, sess, nil),
	}
	boardFilter := model.TaskFilter{Status: model.StatusInProgress, Query: "budget"}
	a.store.SetFilter(boardFilter)

	rec := httptest.NewRecorder()
	a.newWebServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Write report")
	assert.Equal(t, boardFilter, a.store.Filter())
	assert.Empty(t, a.store.Tasks())
	assert.Zero(t, a.store.TasksLoaded())
}
