package tui

import (
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"go.uber.org/zap"
)

type promptKind int

const (
	promptSearch promptKind = iota
	promptSaveView
	promptAddCard
	promptToken
)

type promptState struct {
	kind    promptKind
	title   string
	initial string
}

func (u *UI) openPrompt(kind promptKind, title, initial string) {
	if u.inputActive() {
		return
	}
	u.prompt = &promptState{kind: kind, title: title, initial: initial}
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/2)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewPrompt, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.prompt.initial)
		view.SetCursor(len([]rune(u.prompt.initial)), 0)
	}
	view.Title = u.prompt.title
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewPrompt)
	return nil
}

func (u *UI) submitPrompt(gui *gocui.Gui, view *gocui.View) error {
	if u.prompt == nil {
		return nil
	}
	value := ""
	if view != nil {
		value = strings.TrimSpace(view.Buffer())
	}
	kind := u.prompt.kind
	u.closePrompt(gui)
	u.applyPrompt(kind, value)
	return nil
}

func (u *UI) applyPrompt(kind promptKind, value string) {
	switch kind {
	case promptSearch:
		u.applySearch(value)
	case promptSaveView:
		u.saveView(value)
	case promptAddCard:
		u.addCard(value)
	case promptToken:
		if value == "" {
			return
		}
		if err := u.session.Set(u.ctx, value); err != nil {
			u.logger.Warn("store pasted token", zap.Error(err))
			u.status = err.Error()
			return
		}
		u.onLoggedIn()
	}
}

func (u *UI) cancelPrompt(gui *gocui.Gui, _ *gocui.View) error {
	u.closePrompt(gui)
	return nil
}

func (u *UI) closePrompt(gui *gocui.Gui) {
	u.prompt = nil
	if gui != nil {
		_ = gui.DeleteView(viewPrompt)
	}
}
