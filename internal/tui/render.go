package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// renderProgressBar 渲染百分比进度条
// renderProgressBar renders a percent progress bar
func renderProgressBar(percent float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

const helpMarkdown = `# Focusboard

## Session clock
- **space** start / pause the current session
- **r** reset the session (keeps type and count)

## Tasks
- **a** add a task (` + "`title @YYYY-MM-DD`" + ` schedules it)
- **x** / **enter** toggle the task under the cursor
- **d** delete the task under the cursor
- **↑/k ↓/j** move the cursor

## Generation & music
- **g** decompose a goal into tasks
- **m** set the focus-music stream URL

Press **?** again to close this help.
`
