package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/kairo/internal/kanban"
	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/Joseda-hg/kairo/internal/notify"
)

func kanbanColumnKey(index int) string {
	columns := kanban.Columns()
	if index < 0 || index >= len(columns) {
		return model.StatusPending
	}
	return columns[index].Key
}

func priorityBadge(priority string) string {
	switch priority {
	case model.PriorityHigh:
		return "[H]"
	case model.PriorityMedium:
		return "[M]"
	case model.PriorityLow:
		return "[L]"
	default:
		return "[-]"
	}
}

func formatCard(card kanban.Card) string {
	parts := []string{priorityBadge(card.Priority), card.Title}
	if card.Deadline != nil && !card.Deadline.IsZero() {
		due := "due " + card.Deadline.Format("Jan 2")
		if card.Task.Overdue(time.Now()) {
			due = "OVERDUE " + card.Deadline.Format("Jan 2")
		}
		parts = append(parts, due)
	}
	if card.FromEmail {
		parts = append(parts, "✉")
	}
	if card.SourceType == "meeting" {
		parts = append(parts, "◷")
	}
	return strings.Join(parts, " ")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	minutes := int(d.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}

func formatMeetingRow(meeting model.Meeting) string {
	start := "no date"
	if meeting.StartTime != nil && !meeting.StartTime.IsZero() {
		start = meeting.StartTime.Format("Jan 2 15:04")
	}
	return fmt.Sprintf("%-12s | %s | %s | %s", start, formatDuration(meeting.Duration()), meeting.Status(), meeting.Title)
}

func formatMeetingStats(stats *model.MeetingStats) string {
	if stats == nil {
		return "Meetings"
	}
	return fmt.Sprintf("Meetings: %d total | %d processed | %d processing | %d pending | %d failed",
		stats.Total, stats.Completed, stats.Processing, stats.Pending, stats.Failed)
}

func summaryLines(summary model.MeetingSummary) []string {
	lines := []string{"Summary", summary.Summary}
	lines = appendSection(lines, "Key Points", summary.KeyPoints)
	lines = appendSection(lines, "Decisions", summary.DecisionsMade)
	if len(summary.ActionItems) > 0 {
		lines = append(lines, "", "Action Items")
		for _, item := range summary.ActionItems {
			line := "- " + item.Description
			if item.Assignee != "" {
				line += " (" + item.Assignee + ")"
			}
			if item.Deadline != "" {
				line += " by " + item.Deadline
			}
			lines = append(lines, line)
		}
	}
	lines = appendSection(lines, "Topics", summary.TopicsDiscussed)
	lines = appendSection(lines, "Participants", summary.ParticipantsMentioned)
	if next := summary.NextMeeting; next != nil && (next.SuggestedDate != "" || len(next.Topics) > 0) {
		lines = append(lines, "", "Next Meeting")
		if next.SuggestedDate != "" {
			lines = append(lines, next.SuggestedDate)
		}
		for _, topic := range next.Topics {
			lines = append(lines, "- "+topic)
		}
	}
	return lines
}

func appendSection(lines []string, title string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, "", title)
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return lines
}

func transcriptLines(transcript model.Transcript) []string {
	if len(transcript.Segments) == 0 {
		if strings.TrimSpace(transcript.Text) == "" {
			return []string{"Transcript is empty"}
		}
		return strings.Split(transcript.Text, "\n")
	}
	lines := make([]string, 0, len(transcript.Segments))
	for _, segment := range transcript.Segments {
		prefix := segment.Speaker
		if segment.Timestamp != "" {
			prefix = "[" + segment.Timestamp + "] " + prefix
		}
		lines = append(lines, fmt.Sprintf("%s: %s", prefix, segment.Text))
	}
	return lines
}

func relatedTaskLines(tasks []model.Task) []string {
	if len(tasks) == 0 {
		return []string{"No tasks were created from this meeting"}
	}
	lines := []string{"Tasks from this meeting"}
	for _, task := range tasks {
		lines = append(lines, fmt.Sprintf("- %s %s (%s)", priorityBadge(task.Priority), task.Title, task.Status))
	}
	return lines
}

func toastLabel(toast notify.Toast) string {
	switch toast.Kind {
	case notify.KindSuccess:
		return "✓ " + toast.Message
	case notify.KindError:
		return "✗ " + toast.Message
	case notify.KindWarning:
		return "! " + toast.Message
	default:
		return "i " + toast.Message
	}
}
