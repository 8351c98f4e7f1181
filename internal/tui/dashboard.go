package tui

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/kairo/internal/api"
	"github.com/Joseda-hg/kairo/internal/kanban"
	"github.com/Joseda-hg/kairo/internal/model"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"go.uber.org/zap"
)

// clickOffset is the row offset used to pick the drop marker under a click.
const clickOffset = 1

const barrelWidth = 12

func (u *UI) layoutDashboard(gui *gocui.Gui, maxX, maxY int) ([]string, error) {
	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 2, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	headerView.Frame = false
	headerView.Wrap = true
	u.renderHeader(headerView)

	bodyTop := 3
	bodyBottom := max(maxY-5, bodyTop+3)
	columns := kanban.Columns()
	usable := max(maxX-barrelWidth-1, len(columns)*10)
	width := usable / len(columns)

	names := make([]string, 0, len(columns)+2)
	for i, column := range columns {
		name := columnViewName + column.Key
		x0 := i * width
		x1 := x0 + width - 1
		view, err := gui.SetView(name, x0, bodyTop, x1, bodyBottom, 0)
		if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
			return nil, err
		}
		if goerrors.Is(err, gocui.ErrUnknownView) {
			view.Wrap = false
		}
		view.Title = fmt.Sprintf("%s (%d)", column.Title, u.board.Count(column.Key))
		focused := i == u.column
		applyViewStyle(view, focused, false)
		view.TitleColor = columnColor(column.Key)
		if u.drag != nil && u.drag.column == i {
			view.FrameColor = gocui.ColorMagenta
		}
		u.renderColumn(view, i)
		names = append(names, name)
	}

	barrel, err := gui.SetView(viewBarrel, len(columns)*width, bodyTop, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	barrel.Title = "Burn"
	applyViewStyle(barrel, false, false)
	barrel.Clear()
	if u.drag != nil {
		barrel.FrameColor = gocui.ColorRed
		fmt.Fprint(barrel, "\n  x to burn")
	} else {
		fmt.Fprint(barrel, "\n  drop here\n  to delete")
	}

	// The focused column comes first so layout makes it current.
	focused := names[u.column]
	rest := append([]string{}, names[:u.column]...)
	rest = append(rest, names[u.column+1:]...)
	keep := append([]string{focused}, rest...)
	return append(keep, viewHeader, viewBarrel), nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	auth := u.store.AuthSnapshot()
	tasks := u.store.TasksSnapshot()
	stats := u.store.Stats()

	user := "signed in"
	if auth.User != nil {
		user = auth.User.Name
		if auth.User.Email != "" {
			user += " <" + auth.User.Email + ">"
		}
	}
	state := ""
	switch {
	case tasks.Syncing:
		state = " | syncing..."
	case tasks.Loading:
		state = " | loading..."
	case tasks.Updating:
		state = " | saving..."
	}
	fmt.Fprintf(view, "Kairo | %s | %d tasks: %d pending, %d in progress, %d completed%s\n",
		user, stats.Total, stats.Pending, stats.InProgress, stats.Completed, state)

	filter := tasks.Filter
	query := filter.Query
	if query == "" {
		query = "type / to search"
	}
	viewLabel := u.activeView
	if viewLabel == "" {
		viewLabel = "none"
	}
	fmt.Fprintf(view, "Search: %s | Status: %s | Priority: %s | View: %s", query, orAny(filter.Status), orAny(filter.Priority), viewLabel)
	if tasks.Error != "" {
		fmt.Fprintf(view, " | error: %s", tasks.Error)
	}
}

func orAny(value string) string {
	if value == "" {
		return "any"
	}
	return value
}

func (u *UI) renderColumn(view *gocui.View, index int) {
	view.Clear()
	key := kanban.Columns()[index].Key
	cards := u.board.Cards(key)
	dragging := ""
	if u.drag != nil {
		dragging = u.drag.payload
	}
	for i, card := range cards {
		prefix := "  "
		if u.drag != nil && u.drag.column == index && u.drag.slot == i {
			prefix = "▸ "
		} else if u.drag == nil && index == u.column && i == u.selected[index] {
			prefix = "> "
		}
		line := formatCard(card)
		if card.ID == dragging {
			line = "[" + line + "]"
		}
		fmt.Fprintf(view, "%s%s\n", prefix, line)
	}
	if u.drag != nil && u.drag.column == index && u.drag.slot >= len(cards) {
		fmt.Fprint(view, "▸ ──────\n")
	}
	if len(cards) == 0 && (u.drag == nil || u.drag.column != index) {
		fmt.Fprint(view, "  No tasks")
	}
}

// syncBoard follows the store. A new fetch reloads the board in server order;
// any other change merges into the order the board already shows.
func (u *UI) syncBoard() {
	if loads := u.store.TasksLoaded(); loads != u.boardLoads {
		u.boardLoads = loads
		u.board.Reload(u.store.Visible())
	} else {
		u.board.Merge(u.store.Visible())
	}
	u.clampSelection()
}

// rebuildBoard reorders the board after the filter or search changed.
func (u *UI) rebuildBoard() {
	u.board.Rebuild(u.store.Visible())
	u.clampSelection()
}

func (u *UI) clampSelection() {
	columns := kanban.Columns()
	for i, column := range columns {
		count := u.board.Count(column.Key)
		if u.selected[i] >= count {
			u.selected[i] = max(count-1, 0)
		}
	}
	if u.drag != nil {
		if _, ok := u.board.Card(u.drag.payload); !ok {
			u.drag = nil
			u.board.CancelDrag()
			return
		}
		u.drag.slot = min(u.drag.slot, u.board.Count(columns[u.drag.column].Key))
	}
}

func (u *UI) selectedCard() (kanban.Card, bool) {
	cards := u.board.Cards(kanban.Columns()[u.column].Key)
	index := u.selected[u.column]
	if index < 0 || index >= len(cards) {
		return kanban.Card{}, false
	}
	return cards[index], true
}

func (u *UI) moveHorizontal(delta int) {
	count := len(kanban.Columns())
	if u.drag != nil {
		u.drag.column = (u.drag.column + delta + count) % count
		u.drag.slot = min(u.drag.slot, u.board.Count(kanban.Columns()[u.drag.column].Key))
		return
	}
	u.column = (u.column + delta + count) % count
}

func (u *UI) moveVertical(delta int) {
	if u.drag != nil {
		limit := u.board.Count(kanban.Columns()[u.drag.column].Key)
		u.drag.slot = min(max(u.drag.slot+delta, 0), limit)
		return
	}
	count := u.board.Count(kanban.Columns()[u.column].Key)
	u.selected[u.column] = min(max(u.selected[u.column]+delta, 0), max(count-1, 0))
}

// pickUp starts dragging the selected card. The drop target starts on the
// card's own slot, where dropping is a no-op.
func (u *UI) pickUp() {
	card, ok := u.selectedCard()
	if !ok {
		return
	}
	u.startDrag(card, u.column, u.selected[u.column])
}

func (u *UI) startDrag(card kanban.Card, column, slot int) {
	payload := u.board.DragStart(card)
	u.drag = &dragState{payload: payload, column: column, slot: slot}
	u.status = "Moving " + card.Title
}

func (u *UI) cancelDrag() {
	if u.drag == nil {
		return
	}
	u.drag = nil
	u.board.CancelDrag()
	u.status = ""
}

func (u *UI) dropAtTarget() {
	if u.drag == nil {
		return
	}
	column := kanban.Columns()[u.drag.column].Key
	indicators := u.board.Indicators(column, nil)
	target := indicators[min(u.drag.slot, len(indicators)-1)]
	u.finishDrop(target)
}

func (u *UI) finishDrop(target kanban.Indicator) {
	payload := u.drag.payload
	u.drag = nil
	u.status = ""
	if !u.board.Drop(payload, target.Column, target.Before) {
		return
	}
	u.focusCard(payload)
}

func (u *UI) focusCard(id string) {
	card, ok := u.board.Card(id)
	if !ok {
		return
	}
	for i, column := range kanban.Columns() {
		if column.Key != card.Column {
			continue
		}
		u.column = i
		for j, candidate := range u.board.Cards(column.Key) {
			if candidate.ID == id {
				u.selected[i] = j
			}
		}
	}
}

// dropInBarrel burns the dragged card, or the selected one when nothing is
// being dragged.
func (u *UI) dropInBarrel() error {
	if u.inputActive() || u.screen != screenDashboard {
		return nil
	}
	id := ""
	if u.drag != nil {
		id = u.drag.payload
		u.drag = nil
		u.status = ""
	} else if card, ok := u.selectedCard(); ok {
		id = card.ID
	}
	if id == "" {
		return nil
	}
	u.board.Delete(id)
	u.clampSelection()
	return nil
}

func (u *UI) onColumnClick(gui *gocui.Gui, index int, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() || u.screen != screenDashboard {
		return nil
	}
	view, err := gui.View(columnViewName + kanban.Columns()[index].Key)
	if err != nil {
		return nil
	}
	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)
	u.clickColumn(index, row)
	return nil
}

// clickColumn picks up the card under row, or drops the dragged card at the
// marker nearest to row.
func (u *UI) clickColumn(index, row int) {
	column := kanban.Columns()[index].Key
	if u.drag == nil {
		cards := u.board.Cards(column)
		if row >= len(cards) {
			u.column = index
			return
		}
		u.column = index
		u.selected[index] = row
		u.startDrag(cards[row], index, row)
		return
	}

	count := u.board.Count(column)
	tops := make([]int, count+1)
	for i := range tops {
		tops[i] = i
	}
	target, ok := kanban.NearestIndicator(row, u.board.Indicators(column, tops), clickOffset)
	if !ok {
		return
	}
	u.finishDrop(target)
}

func (u *UI) openAddCard() {
	column := kanban.Columns()[u.column]
	u.openPrompt(promptAddCard, "Add to "+column.Title, "")
}

func (u *UI) addCard(title string) {
	column := kanban.Columns()[u.column].Key
	if !u.board.AddCard(column, title) {
		u.status = "Title is required"
	}
}

// quickStatus moves the selected task one status forward or back. The new
// status shows at once and a failed update triggers a refetch.
func (u *UI) quickStatus(delta int) {
	card, ok := u.selectedCard()
	if !ok {
		return
	}
	next := cycleStatus(model.Statuses, card.Column, delta)
	id := card.Task.ID
	u.store.OptimisticSetStatus(id, next)
	u.focusCard(card.ID)
	u.background(func() {
		if _, err := u.store.UpdateTask(u.ctx, id, model.StatusPatch(next)); err != nil {
			u.logger.Error("quick status change", zap.String("task_id", id.String()), zap.Error(err))
			u.toasts.Error(api.Message(err, "Failed to update task"))
			u.fetchTasks()
		}
	})
}

func (u *UI) syncEmails() {
	u.background(func() {
		result, err := u.store.SyncEmails(u.ctx)
		if err != nil {
			u.toasts.Error(api.Message(err, "Failed to sync emails"))
			return
		}
		u.toasts.Success(fmt.Sprintf("Sync completed! %d new tasks created.", result.NewTasksCreated))
		u.store.ClearSyncResult()
		u.fetchTasks()
	})
}

func (u *UI) applySearch(query string) {
	filter := u.store.Filter()
	filter.Query = strings.TrimSpace(query)
	u.store.SetFilter(filter)
	u.rebuildBoard()
}

func (u *UI) cycleStatusFilter() {
	filter := u.store.Filter()
	filter.Status = cycleOption(append([]string{""}, model.Statuses...), filter.Status, 1)
	u.applyFilter(filter, "")
}

func (u *UI) cyclePriorityFilter() {
	filter := u.store.Filter()
	filter.Priority = cycleOption(append([]string{""}, model.Priorities...), filter.Priority, 1)
	u.applyFilter(filter, "")
}

func (u *UI) clearFilters() {
	u.applyFilter(model.TaskFilter{}, "")
}

func (u *UI) applyFilter(filter model.TaskFilter, viewName string) {
	u.activeView = viewName
	u.store.SetFilter(filter)
	u.rebuildBoard()
	u.fetchTasks()
}

func (u *UI) saveView(name string) {
	name = strings.TrimSpace(name)
	if name == "" || u.views == nil {
		return
	}
	saved, err := u.views.SaveView(u.ctx, model.SavedView{Name: name, Filter: u.store.Filter()})
	if err != nil {
		u.status = err.Error()
		return
	}
	u.activeView = saved.Name
	u.toasts.Success("View saved: " + saved.Name)
}

func (u *UI) cycleSavedView() {
	if u.views == nil {
		return
	}
	views, err := u.views.ListViews(u.ctx)
	if err != nil {
		u.status = err.Error()
		return
	}
	if len(views) == 0 {
		u.status = "No saved views. Press v to save the current filter."
		return
	}
	index := 0
	for i, view := range views {
		if view.Name == u.activeView {
			index = (i + 1) % len(views)
			break
		}
	}
	u.savedViewIndex = index
	u.status = ""
	u.applyFilter(views[index].Filter, views[index].Name)
}

func cycleStatus(order []string, current string, delta int) string {
	return cycleOption(order, current, delta)
}

func cycleOption(order []string, current string, delta int) string {
	value := strings.TrimSpace(strings.ToLower(current))
	index := 0
	for i, option := range order {
		if option == value {
			index = i
			break
		}
	}
	index = (index + delta + len(order)) % len(order)
	return order[index]
}

func columnColor(key string) gocui.Attribute {
	switch key {
	case model.StatusInProgress:
		return gocui.ColorBlue
	case model.StatusCompleted:
		return gocui.ColorGreen
	default:
		return gocui.ColorYellow
	}
}
