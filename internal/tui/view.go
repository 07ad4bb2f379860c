package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"focusboard/internal/task"
	"focusboard/internal/timer"
)

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	if a.showHelp {
		return RenderMarkdown(helpMarkdown, a.width)
	}

	var parts []string
	parts = append(parts, a.renderClock())
	parts = append(parts, "")
	parts = append(parts, a.renderTasks())
	parts = append(parts, a.renderStats())

	if a.mode != modeNormal {
		parts = append(parts, a.theme.InputStyle.Width(a.width-2).Render(a.input.View()))
	}

	body := strings.Join(parts, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, body, a.renderStatusBar())
}

func (a App) renderClock() string {
	state := a.clock.State()

	label := "WORK"
	style := a.theme.WorkStyle
	switch state.Type {
	case timer.ShortBreak:
		label = "SHORT BREAK"
		style = a.theme.BreakStyle
	case timer.LongBreak:
		label = "LONG BREAK"
		style = a.theme.BreakStyle
	}

	face := a.theme.ClockStyle.Render(timer.FormatClock(state.Left))
	status := statusLabel(state.Status)

	total := a.clock.Durations().For(state.Type)
	elapsed := 0.0
	if total > 0 {
		elapsed = float64(total-state.Left) / float64(total) * 100
	}
	bar := renderProgressBar(elapsed, minInt(a.width-4, 40))

	line := fmt.Sprintf("%s  %s  %s  sessions: %d",
		style.Render(label), face, a.theme.MutedStyle.Render(status), state.Count)
	return lipgloss.JoinVertical(lipgloss.Left,
		a.theme.TitleStyle.Render(" Focusboard"),
		" "+line,
		" "+bar)
}

func (a App) renderTasks() string {
	if len(a.views.All) == 0 {
		return a.theme.MutedStyle.Render("  No tasks yet — press 'a' to add one or 'g' to decompose a goal")
	}

	maxRows := a.height - 10
	if maxRows < 3 {
		maxRows = 3
	}

	var rows []string
	for i, t := range a.views.All {
		if i >= maxRows {
			rows = append(rows, a.theme.MutedStyle.Render(
				fmt.Sprintf("  … %d more", len(a.views.All)-maxRows)))
			break
		}
		rows = append(rows, a.renderTaskRow(i, t))
	}
	return strings.Join(rows, "\n")
}

func (a App) renderTaskRow(i int, t task.Task) string {
	cursor := "  "
	if i == a.cursor {
		cursor = a.theme.CursorStyle.Render("> ")
	}

	check := "[ ]"
	style := a.theme.PendingStyle
	if t.Completed {
		check = "[x]"
		style = a.theme.DoneStyle
	}

	line := check + " " + t.Title
	if t.ScheduledDate != "" {
		line += a.theme.MutedStyle.Render("  @" + t.ScheduledDate)
	}
	return cursor + style.Render(line)
}

func (a App) renderStats() string {
	s := a.views.Stats
	bar := renderProgressBar(float64(s.CompletionRate), minInt(a.width-30, 20))
	return a.theme.MutedStyle.Render(fmt.Sprintf(
		"  %d total · %d done · %d pending · %d scheduled  %s %d%%",
		s.Total, s.Completed, s.Pending, s.Scheduled, bar, s.CompletionRate))
}

func (a App) renderStatusBar() string {
	left := " space start/pause · a add · g goal · m music · ? help · q quit"
	if a.generating {
		left = " " + a.spin.View() + " generating tasks..."
	} else if a.statusMsg != "" {
		left = " " + a.statusMsg
	}

	right := ""
	if a.musicURL != "" {
		right = "♪ " + truncate(a.musicURL, 40) + "  "
	}

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return a.theme.StatusBarStyle.Width(a.width).Render(left + strings.Repeat(" ", gap) + right)
}

func statusLabel(s timer.Status) string {
	switch s {
	case timer.Running:
		return "running"
	case timer.Paused:
		return "paused"
	default:
		return "stopped"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return s[:max-1] + "…"
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
