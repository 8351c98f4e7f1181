package tui

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/kairo/internal/api"
	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/store"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"go.uber.org/zap"
)

type detailKind int

const (
	detailSummary detailKind = iota
	detailTranscript
	detailTasks
)

func (u *UI) enterMeetings() {
	u.drag = nil
	u.board.CancelDrag()
	u.screen = screenMeetings
	u.status = ""
	u.fetchMeetings()
}

func (u *UI) fetchMeetings() {
	filter := u.meetingFilter
	u.background(func() {
		if err := u.store.FetchMeetings(u.ctx, filter); err != nil {
			u.logger.Warn("fetch meetings", zap.Error(err))
		}
		if err := u.store.FetchStats(u.ctx); err != nil {
			u.logger.Debug("fetch meeting stats", zap.Error(err))
		}
	})
}

func (u *UI) layoutMeetings(gui *gocui.Gui, maxX, maxY int) ([]string, error) {
	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 2, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	headerView.Frame = false
	headerView.Wrap = true

	snap := u.store.MeetingsSnapshot()
	headerView.Clear()
	fmt.Fprintln(headerView, formatMeetingStats(snap.Stats))
	state := ""
	switch {
	case snap.Syncing:
		state = " | syncing..."
	case snap.Processing:
		state = " | processing..."
	case snap.Loading:
		state = " | loading..."
	}
	fmt.Fprintf(headerView, "Status: %s | Page %d of %d%s", orAny(u.meetingFilter.Status), max(snap.Pagination.Page, 1), max(snap.Pagination.Pages, 1), state)
	if snap.Error != "" {
		fmt.Fprintf(headerView, " | error: %s", snap.Error)
	}

	view, err := gui.SetView(viewMeetings, 0, 3, maxX-1, max(maxY-5, 6), 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	view.Title = "Meetings"
	applyViewStyle(view, true, false)
	u.renderMeetings(view, snap.Meetings)
	return []string{viewMeetings, viewHeader}, nil
}

func (u *UI) renderMeetings(view *gocui.View, meetings []model.Meeting) {
	view.Clear()
	if len(meetings) == 0 {
		fmt.Fprint(view, "  No meetings yet. Press s to sync your calendar.")
		return
	}
	if u.selectedMeeting >= len(meetings) {
		u.selectedMeeting = len(meetings) - 1
	}
	for i, meeting := range meetings {
		prefix := "  "
		if i == u.selectedMeeting {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s\n", prefix, formatMeetingRow(meeting))
	}
}

func (u *UI) selectedMeetingItem() (model.Meeting, bool) {
	meetings := u.store.MeetingsSnapshot().Meetings
	if u.selectedMeeting < 0 || u.selectedMeeting >= len(meetings) {
		return model.Meeting{}, false
	}
	return meetings[u.selectedMeeting], true
}

func (u *UI) moveMeeting(delta int) {
	count := len(u.store.MeetingsSnapshot().Meetings)
	u.selectedMeeting = min(max(u.selectedMeeting+delta, 0), max(count-1, 0))
}

func (u *UI) onMeetingClick(gui *gocui.Gui, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() || u.screen != screenMeetings {
		return nil
	}
	view, err := gui.View(viewMeetings)
	if err != nil {
		return nil
	}
	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)
	count := len(u.store.MeetingsSnapshot().Meetings)
	if row < count {
		u.selectedMeeting = row
	}
	return nil
}

func (u *UI) cycleMeetingFilter() {
	options := []string{"", model.MeetingPending, model.MeetingProcessing, model.MeetingCompleted, model.MeetingFailed}
	u.meetingFilter.Status = cycleOption(options, u.meetingFilter.Status, 1)
	u.meetingFilter.Page = 1
	u.selectedMeeting = 0
	u.store.SetPagination(model.Pagination{Page: 1})
	u.fetchMeetings()
}

func (u *UI) changeMeetingPage(delta int) {
	pages := max(u.store.MeetingsSnapshot().Pagination.Pages, 1)
	page := min(max(u.meetingFilter.Page+delta, 1), pages)
	if page == u.meetingFilter.Page {
		return
	}
	u.meetingFilter.Page = page
	u.selectedMeeting = 0
	u.store.SetPagination(model.Pagination{Page: page})
	u.fetchMeetings()
}

func (u *UI) syncMeetings() {
	u.background(func() {
		result, err := u.store.SyncMeetings(u.ctx)
		if err != nil {
			u.toasts.Error(api.Message(err, "Failed to sync meetings"))
			return
		}
		u.toasts.Success(fmt.Sprintf("Synced %d new meetings!", result.NewMeetings))
		u.fetchMeetings()
	})
}

func (u *UI) processMeeting() {
	meeting, ok := u.selectedMeetingItem()
	if !ok {
		return
	}
	if meeting.Status() == model.MeetingProcessing {
		u.toasts.Info("Meeting is already processing")
		return
	}
	id := meeting.ID
	u.background(func() {
		if err := u.store.ProcessMeeting(u.ctx, id); err != nil {
			u.toasts.Error(api.Message(err, "Failed to start processing"))
			return
		}
		u.toasts.Success("Meeting processing started. This may take a few minutes.")
	})
}

func (u *UI) openDetail(kind detailKind) {
	meeting, ok := u.selectedMeetingItem()
	if !ok {
		return
	}
	u.detail = kind
	u.screen = screenDetail
	id := meeting.ID

	u.store.ClearCurrentMeeting()
	u.background(func() {
		if err := u.store.FetchMeeting(u.ctx, id); err != nil {
			u.logger.Warn("fetch meeting", zap.Error(err))
		}
		var err error
		switch kind {
		case detailTranscript:
			err = u.store.FetchTranscript(u.ctx, id)
		case detailTasks:
			err = u.store.FetchTasksFromMeeting(u.ctx, id)
		default:
			err = u.store.FetchSummary(u.ctx, id)
			if err == nil {
				err = u.store.FetchTasksFromMeeting(u.ctx, id)
			}
		}
		if err != nil {
			u.logger.Warn("load meeting detail", zap.String("meeting_id", id.String()), zap.Error(err))
		}
	})
}

func (u *UI) closeDetail() {
	u.screen = screenMeetings
	u.store.ClearCurrentMeeting()
}

func (u *UI) layoutDetail(gui *gocui.Gui, maxX, maxY int) ([]string, error) {
	view, err := gui.SetView(viewDetail, 0, 0, maxX-1, max(maxY-5, 4), 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	applyViewStyle(view, true, false)

	snap := u.store.MeetingsSnapshot()
	view.Title = detailTitle(u.detail, snap.Current)
	view.Clear()
	fmt.Fprint(view, strings.Join(detailLines(u.detail, snap), "\n"))
	return []string{viewDetail}, nil
}

func (u *UI) scrollDetail(delta int) {
	if u.gui == nil {
		return
	}
	view, err := u.gui.View(viewDetail)
	if err != nil {
		return
	}
	if delta < 0 {
		view.ScrollUp(-delta)
	} else {
		view.ScrollDown(delta)
	}
}

func detailTitle(kind detailKind, meeting *model.Meeting) string {
	name := "Meeting"
	if meeting != nil && meeting.Title != "" {
		name = meeting.Title
	}
	switch kind {
	case detailTranscript:
		return name + " - Transcript"
	case detailTasks:
		return name + " - Tasks"
	default:
		return name + " - Summary"
	}
}

// detailLines renders the summary, transcript or related tasks. Load errors
// are shown inline instead of leaving the screen.
func detailLines(kind detailKind, snap store.MeetingsState) []string {
	if snap.Loading {
		return []string{"Loading..."}
	}
	var lines []string
	if meeting := snap.Current; meeting != nil {
		lines = append(lines, meeting.Title)
		if meeting.StartTime != nil && !meeting.StartTime.IsZero() {
			lines = append(lines, fmt.Sprintf("%s | %s", meeting.StartTime.Format("Mon Jan 2, 2006 15:04"), formatDuration(meeting.Duration())))
		}
		if len(meeting.Attendees) > 0 {
			names := make([]string, 0, len(meeting.Attendees))
			for _, attendee := range meeting.Attendees {
				names = append(names, attendee.Label())
			}
			lines = append(lines, "Attendees: "+strings.Join(names, ", "))
		}
		lines = append(lines, "")
	}

	switch kind {
	case detailTranscript:
		if snap.Transcript == nil {
			return append(lines, "Transcript Not Available", snap.Error)
		}
		return append(lines, transcriptLines(*snap.Transcript)...)
	case detailTasks:
		if snap.Error != "" {
			return append(lines, "Could not load tasks", snap.Error)
		}
		return append(lines, relatedTaskLines(snap.RelatedTasks)...)
	default:
		if snap.Summary == nil {
			return append(lines, "Summary Not Available", snap.Error)
		}
		lines = append(lines, summaryLines(*snap.Summary)...)
		if len(snap.RelatedTasks) > 0 {
			lines = append(lines, "")
			lines = append(lines, relatedTaskLines(snap.RelatedTasks)...)
		}
		return lines
	}
}
