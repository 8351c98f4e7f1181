package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/kairo/internal/auth"
	"github.com/Joseda-hg/kairo/internal/kanban"
	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pages = []string{"index", "error", "dashboard", "meetings", "summary", "transcript"}

var funcs = template.FuncMap{
	"date": func(ts *model.Timestamp) string {
		if ts == nil || ts.IsZero() {
			return ""
		}
		return ts.Format("Jan 2, 2006")
	},
	"datetime": func(ts *model.Timestamp) string {
		if ts == nil || ts.IsZero() {
			return ""
		}
		return ts.Format("Jan 2, 2006 15:04")
	},
	"minutes": func(d time.Duration) int { return int(d.Minutes()) },
}

type renderer struct {
	templates map[string]*template.Template
}

func newRenderer() *renderer {
	r := &renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		r.templates[page] = template.Must(template.New("layout.tmpl").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.tmpl", "templates/"+page+".tmpl"))
	}
	return r
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout.tmpl", data)
}

// Session is what the server needs from the local session.
type Session interface {
	auth.TokenHolder
	Token() string
}

type Server struct {
	echo    *echo.Echo
	session Session
	store   *store.Store
	apiBase string
	logger  *zap.Logger
	tokens  chan string
}

func NewServer(sess Session, st *store.Store, apiBase string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		echo:    echo.New(),
		session: sess,
		store:   st,
		apiBase: apiBase,
		logger:  logger,
		tokens:  make(chan string, 1),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Renderer = newRenderer()
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("web request", zap.String("method", v.Method), zap.String("uri", v.URI), zap.Int("status", v.Status))
			return nil
		},
	}))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.indexHandler)
	s.echo.GET("/login", s.loginHandler)
	s.echo.GET("/auth/callback", s.callbackHandler)
	s.echo.POST("/logout", s.logoutHandler)

	protected := s.echo.Group("", s.requireToken)
	protected.GET("/dashboard", s.dashboardHandler)
	protected.GET("/meetings", s.meetingsHandler)
	protected.GET("/meetings/:id/summary", s.summaryHandler)
	protected.GET("/meetings/:id/transcript", s.transcriptHandler)
	protected.GET("/api/tasks", s.apiTasksHandler)
	protected.GET("/api/meetings", s.apiMeetingsHandler)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Tokens yields each token received on /auth/callback.
func (s *Server) Tokens() <-chan string {
	return s.tokens
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := auth.RequireToken(s.session); err != nil {
			return c.Redirect(http.StatusFound, "/login")
		}
		return next(c)
	}
}

func (s *Server) indexHandler(c echo.Context) error {
	data := struct {
		LoggedIn bool
	}{LoggedIn: s.session.HasToken()}
	return c.Render(http.StatusOK, "index", data)
}

func (s *Server) loginHandler(c echo.Context) error {
	return c.Redirect(http.StatusFound, auth.LoginURL(s.apiBase))
}

func (s *Server) callbackHandler(c echo.Context) error {
	token, err := auth.Complete(c.Request().Context(), s.session, c.Request().URL.String())
	if err != nil {
		s.logger.Warn("login callback failed", zap.Error(err))
		message := err.Error()
		if !errors.Is(err, auth.ErrNoToken) {
			message = "Authentication failed. Could not store the token."
		}
		return c.Render(http.StatusBadRequest, "error", struct{ Message string }{message})
	}

	select {
	case s.tokens <- token:
	default:
	}
	return c.Redirect(http.StatusFound, "/dashboard")
}

func (s *Server) logoutHandler(c echo.Context) error {
	if err := s.store.Logout(c.Request().Context()); err != nil {
		s.logger.Warn("logout", zap.Error(err))
	}
	return c.Redirect(http.StatusFound, "/")
}

type boardColumn struct {
	Title string
	Key   string
	Cards []kanban.Card
}

func (s *Server) dashboardHandler(c echo.Context) error {
	filter := filterFromRequest(c)
	s.store.SetFilter(filter)
	if err := s.store.FetchTasks(c.Request().Context(), filter); err != nil {
		return s.renderAPIError(c, err)
	}

	board := kanban.New(c.Request().Context(), s.store)
	board.Rebuild(s.store.Visible())

	columns := make([]boardColumn, 0, 3)
	for _, column := range kanban.Columns() {
		columns = append(columns, boardColumn{Title: column.Title, Key: column.Key, Cards: board.Cards(column.Key)})
	}

	data := struct {
		Filter  model.TaskFilter
		Stats   store.Stats
		Columns []boardColumn
		Now     time.Time
	}{Filter: filter, Stats: s.store.Stats(), Columns: columns, Now: time.Now()}
	return c.Render(http.StatusOK, "dashboard", data)
}

func (s *Server) meetingsHandler(c echo.Context) error {
	filter := model.MeetingFilter{
		Status:  strings.TrimSpace(c.QueryParam("status")),
		Page:    intParam(c, "page", 1),
		PerPage: intParam(c, "per_page", 20),
	}
	if err := s.store.FetchMeetings(c.Request().Context(), filter); err != nil {
		return s.renderAPIError(c, err)
	}
	if err := s.store.FetchStats(c.Request().Context()); err != nil {
		s.logger.Warn("meeting stats", zap.Error(err))
	}
	return c.Render(http.StatusOK, "meetings", s.store.MeetingsSnapshot())
}

func (s *Server) summaryHandler(c echo.Context) error {
	id := model.ID(c.Param("id"))
	ctx := c.Request().Context()
	s.store.ClearCurrentMeeting()
	if err := s.store.FetchMeeting(ctx, id); err != nil {
		return s.renderAPIError(c, err)
	}
	summaryErr := s.store.FetchSummary(ctx, id)
	if err := s.store.FetchTasksFromMeeting(ctx, id); err != nil {
		s.logger.Debug("tasks from meeting", zap.String("meeting_id", id.String()), zap.Error(err))
	}

	snap := s.store.MeetingsSnapshot()
	data := struct {
		store.MeetingsState
		Unavailable bool
	}{MeetingsState: snap, Unavailable: summaryErr != nil || snap.Summary == nil}
	return c.Render(http.StatusOK, "summary", data)
}

func (s *Server) transcriptHandler(c echo.Context) error {
	id := model.ID(c.Param("id"))
	ctx := c.Request().Context()
	s.store.ClearCurrentMeeting()
	if err := s.store.FetchMeeting(ctx, id); err != nil {
		return s.renderAPIError(c, err)
	}
	if err := s.store.FetchTranscript(ctx, id); err != nil {
		return s.renderAPIError(c, err)
	}
	return c.Render(http.StatusOK, "transcript", s.store.MeetingsSnapshot())
}

func (s *Server) apiTasksHandler(c echo.Context) error {
	filter := filterFromRequest(c)
	s.store.SetFilter(filter)
	if err := s.store.FetchTasks(c.Request().Context(), filter); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, s.store.Visible())
}

func (s *Server) apiMeetingsHandler(c echo.Context) error {
	filter := model.MeetingFilter{Page: intParam(c, "page", 1), PerPage: intParam(c, "per_page", 20)}
	if err := s.store.FetchMeetings(c.Request().Context(), filter); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, s.store.MeetingsSnapshot().Meetings)
}

// renderAPIError sends the browser back to login when the session died on a
// 401 and otherwise shows the backend's message.
func (s *Server) renderAPIError(c echo.Context, err error) error {
	if !s.session.HasToken() {
		return c.Redirect(http.StatusFound, "/login")
	}
	s.logger.Warn("web page load failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Render(http.StatusBadGateway, "error", struct{ Message string }{err.Error()})
}

func filterFromRequest(c echo.Context) model.TaskFilter {
	return model.TaskFilter{
		Query:    strings.TrimSpace(c.QueryParam("q")),
		Status:   strings.TrimSpace(c.QueryParam("status")),
		Priority: strings.TrimSpace(c.QueryParam("priority")),
		Page:     intParam(c, "page", 0),
		PerPage:  intParam(c, "per_page", 0),
	}
}

func intParam(c echo.Context, name string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
