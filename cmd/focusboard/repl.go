package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"focusboard/internal/config"
	"focusboard/internal/decompose"
	"focusboard/internal/player"
	"focusboard/internal/storage"
	"focusboard/internal/task"
	"focusboard/internal/timer"
	"focusboard/internal/tui"
)

var replCommands = []string{
	"help                 show this help",
	"add <title> [@date]  add a task, optional @YYYY-MM-DD schedule",
	"list                 list tasks, newest first",
	"done <n>             toggle task n from the last list",
	"rm <n>               delete task n from the last list",
	"plan <goal>          decompose a goal into tasks",
	"start | pause | reset  control the session clock",
	"status               show clock state",
	"report               render a progress report",
	"music [url]          show or set the music stream URL",
	"quit                 exit",
}

// runREPL 运行纯行编辑界面：与 TUI 共享全部协作方，时钟由 Runner 驱动。
// runREPL runs the plain line-based interface. It shares every collaborator
// with the TUI; the clock is driven by a Runner goroutine instead of tea.Tick.
func runREPL(cfg config.Config, userID string, store *storage.Store, pipeline *decompose.Pipeline, music *player.Player, durations timer.Durations) error {
	input, inputErr := newLineInput(filepath.Join(cfg.Storage.BaseDir, "repl.history"))
	if inputErr != nil {
		fmt.Fprintf(os.Stderr, "line editor unavailable, fallback to basic input: %v\n", inputErr)
	}
	defer input.Close()

	clock := timer.NewClock(durations)
	runner := timer.NewRunner(clock, time.Second, func(state timer.State) {
		if state.Status == timer.Stopped {
			fmt.Printf("\n%s — press start to begin the next session\n", sessionDoneLine(state.Type))
		}
	})
	defer runner.Close()

	// 订阅快照，后台维护最近一次列表的编号映射。
	// The subscription keeps the latest snapshot for list-index commands.
	snaps, cancel := store.Subscribe(userID)
	defer cancel()
	var (
		mu     sync.Mutex
		latest []task.Task
	)
	go func() {
		for snap := range snaps {
			mu.Lock()
			latest = snap
			mu.Unlock()
		}
	}()

	fmt.Printf("focusboard started (user %s)\n", userID)
	printREPLCommands(os.Stdout)

	for {
		line, err := input.ReadLine("> ")
		if err != nil {
			switch {
			case errors.Is(err, readline.ErrInterrupt):
				fmt.Fprintln(os.Stdout)
				continue
			case errors.Is(err, io.EOF):
				fmt.Fprintln(os.Stderr, "\nexit")
				return nil
			default:
				return fmt.Errorf("read input failed: %w", err)
			}
		}
		cmd, rest := splitCommand(line)
		if cmd == "" {
			continue
		}

		switch cmd {
		case "help":
			printREPLCommands(os.Stdout)

		case "add":
			if rest == "" {
				fmt.Println("usage: add <title> [@YYYY-MM-DD]")
				continue
			}
			if _, err := store.CreateTask(userID, parseDraft(rest)); err != nil {
				fmt.Fprintf(os.Stderr, "add failed: %v\n", err)
			}

		case "list":
			mu.Lock()
			snapshot := latest
			mu.Unlock()
			printTasks(os.Stdout, snapshot)

		case "done", "rm":
			mu.Lock()
			snapshot := latest
			mu.Unlock()
			idx, err := parseIndex(rest, len(snapshot))
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				continue
			}
			if cmd == "done" {
				_, err = store.ToggleTask(userID, snapshot[idx].ID)
			} else {
				err = store.DeleteTask(userID, snapshot[idx].ID)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, err)
			}

		case "plan":
			if rest == "" {
				fmt.Println("usage: plan <goal>")
				continue
			}
			fmt.Println("decomposing goal...")
			created, err := pipeline.Decompose(context.Background(), userID, rest)
			if err != nil {
				fmt.Fprintf(os.Stderr, "plan failed: %v\n", err)
				continue
			}
			fmt.Printf("generated %d tasks\n", len(created))

		case "start":
			runner.Start()
			fmt.Println(clockLine(runner.State()))

		case "pause":
			runner.Pause()
			fmt.Println(clockLine(runner.State()))

		case "reset":
			runner.Reset()
			fmt.Println(clockLine(runner.State()))

		case "status":
			fmt.Println(clockLine(runner.State()))

		case "report":
			mu.Lock()
			snapshot := latest
			mu.Unlock()
			fmt.Println(tui.RenderMarkdown(reportMarkdown(snapshot, runner.State()), 80))

		case "music":
			if rest == "" {
				fmt.Println(music.URLFor(userID))
				continue
			}
			if err := music.SetURL(userID, rest); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				continue
			}
			fmt.Println(music.URLFor(userID))

		case "quit", "exit":
			return nil

		default:
			fmt.Printf("unknown command %q, try help\n", cmd)
		}
	}
}

func printREPLCommands(out io.Writer) {
	if out == nil {
		return
	}
	fmt.Fprintln(out, "commands:")
	for _, cmd := range replCommands {
		fmt.Fprintf(out, "  %s\n", cmd)
	}
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToLower(parts[0])
	rest := ""
	if len(parts) > 1 {
		rest = strings.TrimSpace(parts[1])
	}
	return cmd, rest
}

// parseDraft 解析 "title @YYYY-MM-DD" / parseDraft splits an optional schedule.
func parseDraft(value string) task.Draft {
	if idx := strings.LastIndex(value, "@"); idx >= 0 {
		date := strings.TrimSpace(value[idx+1:])
		if task.ValidDate(date) {
			return task.Draft{Title: strings.TrimSpace(value[:idx]), ScheduledDate: date}
		}
	}
	return task.Draft{Title: value}
}

func parseIndex(arg string, count int) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, errors.New("task number required, run list first")
	}
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid task number %q", arg)
	}
	if n < 1 || n > count {
		return 0, fmt.Errorf("task number %d out of range (1-%d)", n, count)
	}
	return n - 1, nil
}

func printTasks(out io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "no tasks")
		return
	}
	for i, t := range tasks {
		check := " "
		if t.Completed {
			check = "x"
		}
		line := fmt.Sprintf("%3d [%s] %s", i+1, check, t.Title)
		if t.ScheduledDate != "" {
			line += " @" + t.ScheduledDate
		}
		fmt.Fprintln(out, line)
	}
}

func clockLine(state timer.State) string {
	return fmt.Sprintf("%s %s %s (sessions: %d)",
		state.Type, timer.FormatClock(state.Left), state.Status, state.Count)
}

func sessionDoneLine(next timer.SessionType) string {
	switch next {
	case timer.Work:
		return "break over"
	case timer.LongBreak:
		return "work session done, long break earned"
	default:
		return "work session done, short break earned"
	}
}

// reportMarkdown 生成进度报告 / reportMarkdown builds the progress report.
func reportMarkdown(tasks []task.Task, state timer.State) string {
	views := task.Derive(tasks)
	s := views.Stats

	var b strings.Builder
	b.WriteString("# Progress report\n\n")
	fmt.Fprintf(&b, "- **Session**: %s, %s, %s\n", state.Type, timer.FormatClock(state.Left), state.Status)
	fmt.Fprintf(&b, "- **Completed work sessions**: %d\n", state.Count)
	fmt.Fprintf(&b, "- **Tasks**: %d total, %d done, %d pending, %d scheduled\n", s.Total, s.Completed, s.Pending, s.Scheduled)
	fmt.Fprintf(&b, "- **Completion rate**: %d%%\n", s.CompletionRate)

	if len(views.Pending) > 0 {
		b.WriteString("\n## Up next\n\n")
		for i, t := range views.Pending {
			if i >= 5 {
				break
			}
			if t.ScheduledDate != "" {
				fmt.Fprintf(&b, "1. %s (@%s)\n", t.Title, t.ScheduledDate)
			} else {
				fmt.Fprintf(&b, "1. %s\n", t.Title)
			}
		}
	}
	return b.String()
}
