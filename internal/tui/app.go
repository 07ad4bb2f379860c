// Package tui 实现全屏看板：番茄钟、任务列表、目标拆解与音乐设置。
// 时钟由 tea.Tick 驱动，每秒一条消息；tickGen 代数计数器保证任意时刻
// 至多一个活跃的计时消息链。
// Package tui renders the full-screen board: session clock, task list, goal
// decomposition, and the music setting. The clock is driven by tea.Tick, one
// message per second; the tickGen generation counter guarantees at most one
// live tick chain at any time.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"focusboard/internal/task"
	"focusboard/internal/timer"
)

// TaskStore TUI 消费的存储操作子集 / TaskStore is the store surface the board uses.
type TaskStore interface {
	CreateTask(userID string, draft task.Draft) (task.Task, error)
	ToggleTask(userID, taskID string) (task.Task, error)
	DeleteTask(userID, taskID string) error
	Subscribe(userID string) (<-chan []task.Task, func())
}

// Decomposer 目标拆解入口 / Decomposer runs the goal decomposition pipeline.
type Decomposer interface {
	Decompose(ctx context.Context, userID, goalText string) ([]task.Task, error)
}

// MusicPlayer 音乐地址解析 / MusicPlayer resolves and persists the stream URL.
type MusicPlayer interface {
	URLFor(userID string) string
	SetURL(userID, rawURL string) error
}

// --- Tea Messages ---

// tickMsg 每秒一条；gen 与当前代数不符的消息属于已作废的旧链，直接丢弃
// tickMsg arrives once per second; a stale gen marks a dead chain and is
// dropped without touching the clock.
type tickMsg struct{ gen int }

// snapshotMsg 存储推送的全量任务快照 / snapshotMsg is a full-collection snapshot.
type snapshotMsg struct{ tasks []task.Task }

// snapshotClosedMsg 订阅通道已关闭 / snapshotClosedMsg: the subscription ended.
type snapshotClosedMsg struct{}

// generateDoneMsg 拆解流水线完成 / generateDoneMsg reports pipeline completion.
type generateDoneMsg struct {
	created []task.Task
	err     error
}

type inputMode int

const (
	modeNormal inputMode = iota
	modeAddTask
	modeGoal
	modeMusic
)

// App Bubble Tea 主 Model / App is the main Bubble Tea model.
type App struct {
	// 布局 / Layout
	width  int
	height int

	// 时钟 / Clock
	clock   *timer.Clock
	tickGen int

	// 任务 / Tasks
	store     TaskStore
	userID    string
	snaps     <-chan []task.Task
	cancelSub func()
	views     task.Views
	cursor    int

	// 拆解 / Decomposition
	pipeline   Decomposer
	generating bool
	spin       spinner.Model

	// 音乐 / Music
	player   MusicPlayer
	musicURL string

	// 输入 / Input
	input textinput.Model
	mode  inputMode

	// 状态 / State
	statusMsg string
	showHelp  bool

	theme Theme
	keys  KeyMap
}

// Options TUI 依赖注入 / Options carry the board's collaborators.
type Options struct {
	UserID    string
	Store     TaskStore
	Pipeline  Decomposer
	Player    MusicPlayer
	Durations timer.Durations
}

// NewApp 创建看板应用 / NewApp builds the board model.
func NewApp(opts Options) App {
	ti := textinput.New()
	ti.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := DarkTheme()
	sp.Style = theme.AccentStyle

	app := App{
		clock:  timer.NewClock(opts.Durations),
		store:  opts.Store,
		userID: opts.UserID,
		views:  task.Derive(nil),

		pipeline: opts.Pipeline,
		spin:     sp,

		player: opts.Player,
		input:  ti,

		theme: theme,
		keys:  DefaultKeyMap(),
	}
	if opts.Player != nil {
		app.musicURL = opts.Player.URLFor(opts.UserID)
	}
	if opts.Store != nil {
		// 订阅在构造时建立；Update 收到快照后重新挂起等待。
		// The subscription is opened at construction; Update re-arms the wait
		// after each snapshot.
		app.snaps, app.cancelSub = opts.Store.Subscribe(opts.UserID)
	}
	return app
}

func (a App) Init() tea.Cmd {
	return waitForSnapshot(a.snaps)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 8
		return a, nil

	case tickMsg:
		return a.handleTick(msg)

	case snapshotMsg:
		a.views = task.Derive(msg.tasks)
		if a.cursor >= len(a.views.All) && a.cursor > 0 {
			a.cursor = len(a.views.All) - 1
		}
		return a, waitForSnapshot(a.snaps)

	case snapshotClosedMsg:
		return a, nil

	case generateDoneMsg:
		a.generating = false
		if msg.err != nil {
			a.statusMsg = "generation failed: " + msg.err.Error()
		} else {
			a.statusMsg = fmt.Sprintf("generated %d tasks", len(msg.created))
		}
		return a, nil

	case spinner.TickMsg:
		if !a.generating {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if a.mode != modeNormal {
			return a.handleInputKey(msg)
		}
		return a.handleNormalKey(msg)
	}

	return a, nil
}

// handleTick 推进时钟一秒；旧代数的消息直接丢弃，自动切换后不再续链
// handleTick advances the clock by one second. Stale generations are dropped;
// an automatic session switch ends the chain since the clock stops.
func (a App) handleTick(msg tickMsg) (tea.Model, tea.Cmd) {
	if msg.gen != a.tickGen {
		return a, nil
	}
	if a.clock.State().Status != timer.Running {
		return a, nil
	}
	a.clock.Tick()
	state := a.clock.State()
	if state.Status != timer.Running {
		// 会话切换后时钟停止，不自动续跑。
		a.tickGen++
		a.statusMsg = sessionBanner(state.Type)
		return a, nil
	}
	return a, scheduleTick(a.tickGen)
}

func (a App) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if a.cancelSub != nil {
			a.cancelSub()
		}
		return a, tea.Quit

	case " ":
		state := a.clock.State()
		a.tickGen++
		if state.Status == timer.Running {
			a.clock.Pause()
			return a, nil
		}
		a.clock.Start()
		return a, scheduleTick(a.tickGen)

	case "r":
		a.tickGen++
		a.clock.Reset()
		return a, nil

	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "down", "j":
		if a.cursor < len(a.views.All)-1 {
			a.cursor++
		}
		return a, nil

	case "x", "enter":
		if a.store == nil || a.cursor >= len(a.views.All) {
			return a, nil
		}
		// CRUD 失败静默处理，不打断交互。
		// CRUD failures stay silent; only generation surfaces errors.
		_, _ = a.store.ToggleTask(a.userID, a.views.All[a.cursor].ID)
		return a, nil

	case "d":
		if a.store == nil || a.cursor >= len(a.views.All) {
			return a, nil
		}
		_ = a.store.DeleteTask(a.userID, a.views.All[a.cursor].ID)
		return a, nil

	case "a":
		a.mode = modeAddTask
		a.input.Placeholder = "task title [@YYYY-MM-DD]"
		a.input.SetValue("")
		a.input.Focus()
		return a, textinput.Blink

	case "g":
		if a.pipeline == nil || a.generating {
			return a, nil
		}
		a.mode = modeGoal
		a.input.Placeholder = "describe your goal"
		a.input.SetValue("")
		a.input.Focus()
		return a, textinput.Blink

	case "m":
		a.mode = modeMusic
		a.input.Placeholder = "music stream URL (empty = default)"
		a.input.SetValue("")
		a.input.Focus()
		return a, textinput.Blink

	case "?":
		a.showHelp = !a.showHelp
		return a, nil
	}
	return a, nil
}

func (a App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.input.Blur()
		return a, nil

	case "enter":
		value := strings.TrimSpace(a.input.Value())
		mode := a.mode
		a.mode = modeNormal
		a.input.Blur()
		a.input.SetValue("")
		return a.submitInput(mode, value)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) submitInput(mode inputMode, value string) (tea.Model, tea.Cmd) {
	switch mode {
	case modeAddTask:
		if value == "" || a.store == nil {
			return a, nil
		}
		_, _ = a.store.CreateTask(a.userID, parseTaskInput(value))
		return a, nil

	case modeGoal:
		if value == "" || a.pipeline == nil {
			return a, nil
		}
		a.generating = true
		a.statusMsg = "decomposing goal..."
		return a, tea.Batch(a.spin.Tick, runGenerate(a.pipeline, a.userID, value))

	case modeMusic:
		if a.player == nil {
			return a, nil
		}
		if err := a.player.SetURL(a.userID, value); err != nil {
			a.statusMsg = err.Error()
			return a, nil
		}
		a.musicURL = a.player.URLFor(a.userID)
		a.statusMsg = "music url saved"
		return a, nil
	}
	return a, nil
}

// parseTaskInput 解析 "title @YYYY-MM-DD" 形式的输入
// parseTaskInput splits "title @YYYY-MM-DD" style input into a draft.
func parseTaskInput(value string) task.Draft {
	if idx := strings.LastIndex(value, "@"); idx >= 0 {
		date := strings.TrimSpace(value[idx+1:])
		if task.ValidDate(date) {
			return task.Draft{Title: strings.TrimSpace(value[:idx]), ScheduledDate: date}
		}
	}
	return task.Draft{Title: value}
}

func sessionBanner(t timer.SessionType) string {
	switch t {
	case timer.Work:
		return "break over, back to work"
	case timer.LongBreak:
		return "work session done, take a long break"
	default:
		return "work session done, take a short break"
	}
}

// --- Commands ---

// scheduleTick 安排下一秒的 tick，携带当前代数
// scheduleTick arms the next one-second tick carrying the generation.
func scheduleTick(gen int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// waitForSnapshot 阻塞等待下一个快照 / waitForSnapshot blocks for one snapshot.
func waitForSnapshot(snaps <-chan []task.Task) tea.Cmd {
	if snaps == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-snaps
		if !ok {
			return snapshotClosedMsg{}
		}
		return snapshotMsg{tasks: snap}
	}
}

// runGenerate 在后台执行拆解流水线 / runGenerate runs the pipeline off-loop.
func runGenerate(pipeline Decomposer, userID, goal string) tea.Cmd {
	return func() tea.Msg {
		created, err := pipeline.Decompose(context.Background(), userID, goal)
		return generateDoneMsg{created: created, err: err}
	}
}

// Run 启动看板 / Run starts the board program.
func Run(opts Options) error {
	p := tea.NewProgram(NewApp(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
