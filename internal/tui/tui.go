package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/kairo/internal/kanban"
	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/notify"
	"github.com/Joseda-hg/kairo/internal/session"
	"github.com/Joseda-hg/kairo/internal/store"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"go.uber.org/zap"
)

const (
	viewHeader     = "header"
	viewFooter     = "footer"
	viewLogin      = "login"
	viewBarrel     = "barrel"
	viewMeetings   = "meetings"
	viewDetail     = "detail"
	viewPrompt     = "prompt"
	viewForm       = "form"
	viewHelp       = "help"
	columnViewName = "col:"
)

type screen int

const (
	screenLogin screen = iota
	screenDashboard
	screenMeetings
	screenDetail
)

// ViewStore persists named board filters. *db.Store satisfies it.
type ViewStore interface {
	SaveView(ctx context.Context, view model.SavedView) (model.SavedView, error)
	ListViews(ctx context.Context) ([]model.SavedView, error)
}

type Deps struct {
	Store   *store.Store
	Session *session.Session
	Views   ViewStore
	Toasts  *notify.Queue
	Logger  *zap.Logger

	LoginURL string
	// StartLogin opens the browser on the login page; the token arrives on Tokens.
	StartLogin      func() error
	Tokens          <-chan string
	RefreshInterval time.Duration
}

type UI struct {
	ctx        context.Context
	store      *store.Store
	session    *session.Session
	views      ViewStore
	toasts     *notify.Queue
	logger     *zap.Logger
	board      *kanban.Board
	gui        *gocui.Gui
	run        func(func())
	loginURL   string
	startLogin func() error
	keys       map[screen]map[any]func() error

	screen     screen
	column     int
	selected   [3]int
	drag       *dragState
	prompt     *promptState
	form       *formState
	formEditor *formEditor
	helpActive bool

	savedViewIndex int
	activeView     string
	// store.TasksLoaded as of the last board reload
	boardLoads     uint64

	selectedMeeting int
	meetingFilter   model.MeetingFilter
	detail          detailKind

	status string
}

type dragState struct {
	payload string
	column  int
	slot    int
}

func newUI(ctx context.Context, deps Deps, run func(func())) *UI {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	toasts := deps.Toasts
	if toasts == nil {
		toasts = notify.NewQueue()
	}
	u := &UI{
		ctx:           ctx,
		store:         deps.Store,
		session:       deps.Session,
		views:         deps.Views,
		toasts:        toasts,
		logger:        logger,
		run:           run,
		loginURL:      deps.LoginURL,
		startLogin:    deps.StartLogin,
		meetingFilter: model.MeetingFilter{Page: 1, PerPage: 20},
	}
	u.formEditor = &formEditor{ui: u}
	u.board = kanban.New(ctx, deps.Store,
		kanban.WithRunner(run),
		kanban.WithLogger(logger),
		kanban.WithNotifier(toasts),
		kanban.WithStatusHook(deps.Store.OptimisticSetStatus),
		kanban.WithOnDeleted(u.fetchTasks),
		kanban.WithOnChange(func() { u.schedule(u.clampSelection) }),
	)
	deps.Store.Subscribe(func() { u.schedule(u.syncBoard) })
	u.keys = u.keymap()
	if deps.Session != nil && deps.Session.HasToken() {
		u.screen = screenDashboard
	}
	return u
}

func Run(ctx context.Context, deps Deps) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := newUI(ctx, deps, func(fn func()) { go fn() })
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}

	ui.toasts.OnChange(func() { ui.schedule(func() {}) })
	if deps.Session != nil {
		deps.Session.OnCleared(func(reason string) {
			ui.schedule(func() { ui.onSessionCleared(reason) })
		})
	}
	go ui.watch(ctx, deps.Tokens, deps.RefreshInterval)

	if ui.screen == screenDashboard {
		ui.enterDashboard()
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

// watch handles login callbacks, the refresh interval and toast expiry.
func (u *UI) watch(ctx context.Context, tokens <-chan string, refresh time.Duration) {
	var refreshC <-chan time.Time
	if refresh > 0 {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		refreshC = ticker.C
	}
	toastTicker := time.NewTicker(time.Second)
	defer toastTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-tokens:
			if !ok {
				tokens = nil
				continue
			}
			u.schedule(u.onLoggedIn)
		case <-refreshC:
			if u.session.HasToken() {
				u.fetchTasks()
			}
		case <-toastTicker.C:
			u.schedule(func() {})
		}
	}
}

// schedule runs fn on the UI loop. Without a gui (tests) it runs inline.
func (u *UI) schedule(fn func()) {
	if u.gui == nil {
		fn()
		return
	}
	u.gui.Update(func(*gocui.Gui) error {
		fn()
		return nil
	})
}

func (u *UI) background(fn func()) {
	u.run(fn)
}

func (u *UI) onLoggedIn() {
	u.toasts.Success("Logged in")
	u.enterDashboard()
}

func (u *UI) onSessionCleared(reason string) {
	u.drag = nil
	u.form = nil
	u.prompt = nil
	u.screen = screenLogin
	u.board.Rebuild(nil)
	if reason == session.ReasonUnauthorized {
		u.toasts.Warning("Session expired. Please log in again.")
	}
}

func (u *UI) enterDashboard() {
	u.screen = screenDashboard
	u.syncBoard()
	u.fetchTasks()
	u.background(func() {
		if _, err := u.store.FetchCurrentUser(u.ctx); err != nil {
			u.logger.Warn("fetch current user", zap.Error(err))
		}
	})
}

func (u *UI) fetchTasks() {
	filter := u.store.Filter()
	u.background(func() {
		if err := u.store.FetchTasks(u.ctx, filter); err != nil {
			u.logger.Warn("fetch tasks", zap.Error(err))
		}
	})
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}

	seen := map[any]bool{}
	for _, handlers := range u.keys {
		for key := range handlers {
			if seen[key] {
				continue
			}
			seen[key] = true
			if err := gui.SetKeybinding("", key, gocui.ModNone, u.dispatch(key)); err != nil {
				return err
			}
		}
	}

	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEnter, gocui.ModNone, u.submitPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEsc, gocui.ModNone, u.cancelPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitFormNow); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlJ, gocui.ModNone, u.submitFormNow); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, '?', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}

	for i, column := range kanban.Columns() {
		index := i
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: columnViewName + column.Key, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onColumnClick(gui, index, opts)
		}}); err != nil {
			return err
		}
	}
	if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewBarrel, Key: gocui.MouseLeft, Handler: func(gocui.ViewMouseBindingOpts) error {
		return u.dropInBarrel()
	}}); err != nil {
		return err
	}
	if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewMeetings, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
		return u.onMeetingClick(gui, opts)
	}}); err != nil {
		return err
	}
	return u.bindMouseScroll(gui)
}

// dispatch routes a global key to the handler of the current screen.
func (u *UI) dispatch(key any) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, _ *gocui.View) error {
		if u.inputActive() {
			return nil
		}
		if fn, ok := u.keys[u.screen][key]; ok {
			return fn()
		}
		return nil
	}
}

func (u *UI) keymap() map[screen]map[any]func() error {
	quit := func() error { return gocui.ErrQuit }
	help := func() error { u.helpActive = !u.helpActive; return nil }
	logout := func() error { u.logout(); return nil }

	return map[screen]map[any]func() error{
		screenLogin: {
			'l': u.login,
			't': func() error { u.openPrompt(promptToken, "Paste token", ""); return nil },
			'q': quit,
		},
		screenDashboard: {
			gocui.KeyArrowLeft:  func() error { u.moveHorizontal(-1); return nil },
			'h':                 func() error { u.moveHorizontal(-1); return nil },
			gocui.KeyArrowRight: func() error { u.moveHorizontal(1); return nil },
			'l':                 func() error { u.moveHorizontal(1); return nil },
			gocui.KeyArrowUp:    func() error { u.moveVertical(-1); return nil },
			'k':                 func() error { u.moveVertical(-1); return nil },
			gocui.KeyArrowDown:  func() error { u.moveVertical(1); return nil },
			'j':                 func() error { u.moveVertical(1); return nil },
			'm':                 func() error { u.pickUp(); return nil },
			gocui.KeyEnter:      func() error { u.dropAtTarget(); return nil },
			'x':                 u.dropInBarrel,
			gocui.KeyEsc:        func() error { u.cancelDrag(); return nil },
			'a':                 func() error { u.openAddCard(); return nil },
			'n':                 func() error { u.openNewTaskForm(); return nil },
			'e':                 func() error { u.openEditTaskForm(); return nil },
			'p':                 func() error { u.quickStatus(1); return nil },
			'P':                 func() error { u.quickStatus(-1); return nil },
			's':                 func() error { u.syncEmails(); return nil },
			'/':                 func() error { u.openPrompt(promptSearch, "Search", u.store.Filter().Query); return nil },
			'f':                 func() error { u.cycleStatusFilter(); return nil },
			'F':                 func() error { u.cyclePriorityFilter(); return nil },
			'g':                 func() error { u.clearFilters(); return nil },
			'v':                 func() error { u.openPrompt(promptSaveView, "Save view as", u.activeView); return nil },
			'V':                 func() error { u.cycleSavedView(); return nil },
			'r':                 func() error { u.fetchTasks(); return nil },
			'M':                 func() error { u.enterMeetings(); return nil },
			'L':                 logout,
			'?':                 help,
			'q':                 quit,
		},
		screenMeetings: {
			gocui.KeyArrowUp:   func() error { u.moveMeeting(-1); return nil },
			'k':                func() error { u.moveMeeting(-1); return nil },
			gocui.KeyArrowDown: func() error { u.moveMeeting(1); return nil },
			'j':                func() error { u.moveMeeting(1); return nil },
			gocui.KeyEnter:     func() error { u.openDetail(detailSummary); return nil },
			't':                func() error { u.openDetail(detailTranscript); return nil },
			'T':                func() error { u.openDetail(detailTasks); return nil },
			's':                func() error { u.syncMeetings(); return nil },
			'p':                func() error { u.processMeeting(); return nil },
			'f':                func() error { u.cycleMeetingFilter(); return nil },
			']':                func() error { u.changeMeetingPage(1); return nil },
			'[':                func() error { u.changeMeetingPage(-1); return nil },
			'r':                func() error { u.fetchMeetings(); return nil },
			gocui.KeyEsc:       func() error { u.enterDashboard(); return nil },
			'b':                func() error { u.enterDashboard(); return nil },
			'L':                logout,
			'?':                help,
			'q':                quit,
		},
		screenDetail: {
			gocui.KeyArrowUp:   func() error { u.scrollDetail(-1); return nil },
			'k':                func() error { u.scrollDetail(-1); return nil },
			gocui.KeyArrowDown: func() error { u.scrollDetail(1); return nil },
			'j':                func() error { u.scrollDetail(1); return nil },
			gocui.KeyEsc:       func() error { u.closeDetail(); return nil },
			'b':                func() error { u.closeDetail(); return nil },
			'q':                quit,
		},
	}
}

func (u *UI) login() error {
	if u.startLogin == nil {
		u.status = "Open " + u.loginURL + " in your browser, then press t to paste the token"
		return nil
	}
	if err := u.startLogin(); err != nil {
		u.logger.Warn("start login", zap.Error(err))
		u.status = "Open " + u.loginURL + " in your browser"
		return nil
	}
	u.status = "Waiting for the browser login to finish..."
	return nil
}

func (u *UI) logout() {
	u.background(func() {
		if err := u.store.Logout(u.ctx); err != nil {
			u.logger.Warn("logout", zap.Error(err))
		}
		u.schedule(func() { u.toasts.Info("Logged out") })
	})
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	var keep []string
	var err error
	switch u.screen {
	case screenLogin:
		keep, err = u.layoutLogin(gui, maxX, maxY)
	case screenMeetings:
		keep, err = u.layoutMeetings(gui, maxX, maxY)
	case screenDetail:
		keep, err = u.layoutDetail(gui, maxX, maxY)
	default:
		keep, err = u.layoutDashboard(gui, maxX, maxY)
	}
	if err != nil {
		return err
	}

	footerY1 := max(maxY-1, 1)
	footerY0 := max(footerY1-3, 0)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault
	u.renderFooter(footerView)
	keep = append(keep, viewFooter)

	u.deleteOtherViews(gui, keep)

	if u.prompt != nil {
		if err := u.showPrompt(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewPrompt)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if !u.inputActive() && len(keep) > 0 {
		_, _ = gui.SetCurrentView(keep[0])
	}
	gui.Cursor = u.prompt != nil || u.form != nil
	return nil
}

func (u *UI) deleteOtherViews(gui *gocui.Gui, keep []string) {
	names := []string{viewHeader, viewLogin, viewBarrel, viewMeetings, viewDetail}
	for _, column := range kanban.Columns() {
		names = append(names, columnViewName+column.Key)
	}
	for _, name := range names {
		if !contains(keep, name) {
			_ = gui.DeleteView(name)
		}
	}
}

func contains(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}

func (u *UI) layoutLogin(gui *gocui.Gui, maxX, maxY int) ([]string, error) {
	width := min(max(50, maxX/2), maxX-1)
	height := 9
	x0 := (maxX - width) / 2
	y0 := max((maxY-height)/2-2, 0)

	view, err := gui.SetView(viewLogin, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Kairo"
		view.Wrap = true
	}
	applyViewStyle(view, true, false)
	view.Clear()
	fmt.Fprintln(view, "")
	fmt.Fprintln(view, "  Tasks from your inbox and meetings, on one board.")
	fmt.Fprintln(view, "")
	fmt.Fprintln(view, "  l  Sign in with Google in the browser")
	fmt.Fprintln(view, "  t  Paste a token")
	fmt.Fprintln(view, "  q  Quit")
	fmt.Fprintln(view, "")
	fmt.Fprintf(view, "  %s", u.loginURL)
	return []string{viewLogin}, nil
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)

	switch u.screen {
	case screenLogin:
		fmt.Fprintln(view, "l login | t paste token | q quit")
	case screenMeetings:
		fmt.Fprintln(view, "enter summary | t transcript | T tasks | s sync | p process | f filter | [ ] page | r reload | esc board | q quit")
	case screenDetail:
		fmt.Fprintln(view, "j/k scroll | esc back | q quit")
	default:
		if u.drag != nil {
			fmt.Fprintln(view, "arrows move drop target | enter drop | x burn | esc cancel")
		} else {
			fmt.Fprintln(view, "m pick | a add | n new | e edit | p/P status | s sync | / search | f/F filter | v/V views | M meetings | ? help | q quit")
		}
	}

	line := u.status
	for _, toast := range u.toasts.Active(time.Now()) {
		if line != "" {
			line += "  "
		}
		line += toastLabel(toast)
	}
	fmt.Fprint(view, line)
}

func (u *UI) inputActive() bool {
	return u.prompt != nil || u.form != nil || u.helpActive
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	if gui != nil {
		_ = gui.DeleteView(viewHelp)
	}
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 20
	x0 := (maxX - width) / 2
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	views := []string{viewMeetings, viewDetail}
	for _, column := range kanban.Columns() {
		views = append(views, columnViewName+column.Key)
	}
	for _, name := range views {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() || view == nil {
		return nil
	}
	view.ScrollUp(1)
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() || view == nil {
		return nil
	}
	view.ScrollDown(1)
	return nil
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Board:",
		"  h/l or arrows change column | j/k move selection",
		"  m pick up card | arrows move drop target | enter drop | esc cancel",
		"  x burn the picked or selected card",
		"  mouse click a card to pick it, click a column to drop it",
		"",
		"Tasks:",
		"  a quick add in column | n new task | e edit task",
		"  p/P move status forward/back | s sync emails | r reload",
		"",
		"Search/Filter:",
		"  / search title and description | f status | F priority | g clear",
		"  v save current filter as a view | V cycle saved views",
		"",
		"Other:",
		"  M meetings | L logout | ? help | esc close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
