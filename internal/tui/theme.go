package tui

import "github.com/charmbracelet/lipgloss"

// Theme 定义看板主题色彩和样式
// Theme defines board colors and styles
type Theme struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Danger  lipgloss.Color
	Success lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	TextDim lipgloss.Color
	Border  lipgloss.Color

	TitleStyle     lipgloss.Style
	ClockStyle     lipgloss.Style
	WorkStyle      lipgloss.Style
	BreakStyle     lipgloss.Style
	CursorStyle    lipgloss.Style
	DoneStyle      lipgloss.Style
	PendingStyle   lipgloss.Style
	StatusBarStyle lipgloss.Style
	InputStyle     lipgloss.Style
	AccentStyle    lipgloss.Style
	MutedStyle     lipgloss.Style
	ErrorStyle     lipgloss.Style
}

// DarkTheme 暗色主题（默认）
// DarkTheme is the default dark theme
func DarkTheme() Theme {
	t := Theme{
		Primary: lipgloss.Color("#7C3AED"),
		Accent:  lipgloss.Color("#F59E0B"),
		Danger:  lipgloss.Color("#EF4444"),
		Success: lipgloss.Color("#10B981"),
		Muted:   lipgloss.Color("#6B7280"),
		Text:    lipgloss.Color("#E5E7EB"),
		TextDim: lipgloss.Color("#9CA3AF"),
		Border:  lipgloss.Color("#374151"),
	}

	t.TitleStyle = lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	t.ClockStyle = lipgloss.NewStyle().
		Foreground(t.Text).
		Bold(true)

	t.WorkStyle = lipgloss.NewStyle().
		Foreground(t.Danger).
		Bold(true)

	t.BreakStyle = lipgloss.NewStyle().
		Foreground(t.Success).
		Bold(true)

	t.CursorStyle = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	t.DoneStyle = lipgloss.NewStyle().
		Foreground(t.Muted).
		Strikethrough(true)

	t.PendingStyle = lipgloss.NewStyle().
		Foreground(t.Text)

	t.StatusBarStyle = lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(lipgloss.Color("#111827"))

	t.InputStyle = lipgloss.NewStyle().
		Foreground(t.Text).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border)

	t.AccentStyle = lipgloss.NewStyle().
		Foreground(t.Accent)

	t.MutedStyle = lipgloss.NewStyle().
		Foreground(t.Muted)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(t.Danger).
		Bold(true)

	return t
}
