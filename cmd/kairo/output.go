package main

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(14)

	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func renderField(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case model.MeetingCompleted:
		return successStyle
	case model.MeetingProcessing:
		return warningStyle
	case model.MeetingFailed:
		return errorStyle
	default:
		return dimStyle
	}
}

func renderMeetings(meetings []model.Meeting, page model.Pagination) string {
	var b strings.Builder
	if len(meetings) == 0 {
		b.WriteString(dimStyle.Render("No meetings found.") + "\n")
		return b.String()
	}
	b.WriteString(headerStyle.Render("Meetings") + "\n")
	for _, meeting := range meetings {
		start := "no date"
		if meeting.StartTime != nil && !meeting.StartTime.IsZero() {
			start = meeting.StartTime.Local().Format("Jan 02 15:04")
		}
		status := fmt.Sprintf("%-10s", meeting.Status())
		fmt.Fprintf(&b, "%-8s %s  %s  %s\n", meeting.ID, dimStyle.Render(start), statusStyle(meeting.Status()).Render(status), meeting.Title)
	}
	if page.Pages > 1 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Page %d of %d (%d meetings)", page.Page, page.Pages, page.Total)) + "\n")
	}
	return b.String()
}

func renderSummary(meeting *model.Meeting, summary *model.MeetingSummary) string {
	var b strings.Builder
	if meeting != nil {
		b.WriteString(headerStyle.Render(meeting.Title) + "\n")
		if meeting.StartTime != nil && !meeting.StartTime.IsZero() {
			b.WriteString(dimStyle.Render(meeting.StartTime.Local().Format("Mon Jan 2, 2006 15:04")) + "\n")
		}
	}
	if summary == nil {
		b.WriteString(warningStyle.Render("Summary Not Available") + "\n")
		return b.String()
	}

	b.WriteString("\n" + summary.Summary + "\n")
	writeList(&b, "Key Points", summary.KeyPoints)
	writeList(&b, "Decisions", summary.DecisionsMade)
	if len(summary.ActionItems) > 0 {
		items := make([]string, 0, len(summary.ActionItems))
		for _, item := range summary.ActionItems {
			line := item.Description
			if item.Assignee != "" {
				line += " (" + item.Assignee + ")"
			}
			if item.Deadline != "" {
				line += " by " + item.Deadline
			}
			items = append(items, line)
		}
		writeList(&b, "Action Items", items)
	}
	writeList(&b, "Topics", summary.TopicsDiscussed)
	if next := summary.NextMeeting; next != nil && next.SuggestedDate != "" {
		b.WriteString("\n" + renderField("Next meeting", next.SuggestedDate) + "\n")
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + headerStyle.Render(title) + "\n")
	for _, item := range items {
		b.WriteString("  • " + item + "\n")
	}
}
