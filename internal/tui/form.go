package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/kairo/internal/api"
	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/store"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"go.uber.org/zap"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldDeadline
	fieldAssignee
)

type formState struct {
	taskID model.ID
	status string
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

// buildFormFields prefills the form from task. New tasks also get an
// assignee field.
func buildFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Priority (space/←→)"},
		{Label: "Deadline (YYYY-MM-DD)"},
	}

	if task == nil {
		fields = append(fields, formField{Label: "Assign to (email)"})
		fields[fieldPriority].Value = model.PriorityMedium
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = task.Description
	fields[fieldPriority].Value = task.Priority
	if fields[fieldPriority].Value == "" {
		fields[fieldPriority].Value = model.PriorityMedium
	}
	if task.Deadline != nil {
		fields[fieldDeadline].Value = task.Deadline.Date()
	}
	return fields
}

func parseFormFields(fields []formField) (model.TaskDraft, error) {
	title := strings.TrimSpace(fields[fieldTitle].Value)
	if title == "" {
		return model.TaskDraft{}, store.ErrTitleRequired
	}

	deadline, err := parseDeadline(fields[fieldDeadline].Value)
	if err != nil {
		return model.TaskDraft{}, err
	}

	draft := model.TaskDraft{
		Title:       title,
		Description: strings.TrimSpace(fields[fieldDescription].Value),
		Priority:    strings.TrimSpace(fields[fieldPriority].Value),
		Deadline:    deadline,
	}
	if len(fields) > fieldAssignee {
		draft.AssignedToEmail = strings.TrimSpace(fields[fieldAssignee].Value)
	}
	return draft, nil
}

func parseDeadline(value string) (*model.Timestamp, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", trimmed, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid deadline, use YYYY-MM-DD")
	}
	return model.NewTimestamp(parsed), nil
}

func patchFromDraft(draft model.TaskDraft) model.TaskPatch {
	return model.TaskPatch{
		Title:       &draft.Title,
		Description: &draft.Description,
		Priority:    &draft.Priority,
		Deadline:    draft.Deadline,
	}
}

func (u *UI) openNewTaskForm() {
	if u.inputActive() {
		return
	}
	u.form = &formState{
		status: u.currentColumnKey(),
		fields: buildFormFields(nil),
	}
}

func (u *UI) openEditTaskForm() {
	if u.inputActive() {
		return
	}
	card, ok := u.selectedCard()
	if !ok {
		return
	}
	task := card.Task
	u.form = &formState{taskID: task.ID, status: card.Column, fields: buildFormFields(&task)}
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(10, max(8, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	if u.form.taskID.IsZero() {
		view.Title = "New Task"
	} else {
		view.Title = "Edit Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

// submitFormNow validates on the UI loop and saves in the background. The
// form stays open with the error when validation fails.
func (u *UI) submitFormNow(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}

	draft, err := parseFormFields(u.form.fields)
	if goerrors.Is(err, store.ErrTitleRequired) {
		u.status = "Title is required"
		u.renderForm(view)
		return nil
	}
	if err != nil {
		u.status = err.Error()
		u.renderForm(view)
		return nil
	}

	form := u.form
	u.form = nil
	u.status = ""
	if gui != nil {
		_ = gui.DeleteView(viewForm)
	}

	if form.taskID.IsZero() {
		draft.Status = form.status
		u.background(func() {
			if _, err := u.store.CreateTask(u.ctx, draft); err != nil {
				u.logger.Error("create task", zap.Error(err))
				u.toasts.Error(api.Message(err, "Failed to create task"))
				return
			}
			u.toasts.Success("Task created successfully")
		})
		return nil
	}

	id := form.taskID
	u.background(func() {
		if _, err := u.store.UpdateTask(u.ctx, id, patchFromDraft(draft)); err != nil {
			u.logger.Error("update task", zap.String("task_id", id.String()), zap.Error(err))
			u.toasts.Error(api.Message(err, "Failed to update task"))
			return
		}
		u.toasts.Success("Task updated successfully")
	})
	return nil
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.status = ""
	if gui != nil {
		_ = gui.DeleteView(viewForm)
	}
	return nil
}

func (u *UI) nextFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	if u.status != "" {
		fmt.Fprintf(view, "\n  %s", u.status)
	}
	label := u.form.fields[u.form.index].Label + ": "
	cursorX := len([]rune(label)) + len([]rune(u.form.fields[u.form.index].Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	if ui.form.index == fieldPriority {
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = cycleOption(model.Priorities, field.Value, 1)
		case gocui.KeyArrowLeft:
			field.Value = cycleOption(model.Priorities, field.Value, -1)
		}
		ui.renderForm(view)
		return true
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view)
	return true
}

func (u *UI) currentColumnKey() string {
	return kanbanColumnKey(u.column)
}
