package timer

// SessionType 番茄钟会话类型
// SessionType identifies which kind of session the clock is counting down.
type SessionType string

const (
	Work       SessionType = "work"
	ShortBreak SessionType = "short-break"
	LongBreak  SessionType = "long-break"
)

// Status 时钟运行状态
// Status is the clock's run state.
type Status string

const (
	Stopped Status = "stopped"
	Running Status = "running"
	Paused  Status = "paused"
)

// Durations 各会话类型的时长配置（秒）
// Durations holds per-session lengths in seconds and the long-break cadence.
type Durations struct {
	Work           int
	ShortBreak     int
	LongBreak      int
	LongBreakEvery int
}

// DefaultDurations 默认番茄钟配置：25/5/15 分钟，每 4 个工作段一次长休息
// DefaultDurations is the classic 25/5/15 pomodoro with a long break every 4th work session.
func DefaultDurations() Durations {
	return Durations{
		Work:           1500,
		ShortBreak:     300,
		LongBreak:      900,
		LongBreakEvery: 4,
	}
}

// For 返回指定会话类型的时长
// For returns the configured length for a session type.
func (d Durations) For(t SessionType) int {
	switch t {
	case ShortBreak:
		return d.ShortBreak
	case LongBreak:
		return d.LongBreak
	default:
		return d.Work
	}
}

func (d Durations) normalized() Durations {
	def := DefaultDurations()
	if d.Work <= 0 {
		d.Work = def.Work
	}
	if d.ShortBreak <= 0 {
		d.ShortBreak = def.ShortBreak
	}
	if d.LongBreak <= 0 {
		d.LongBreak = def.LongBreak
	}
	if d.LongBreakEvery <= 0 {
		d.LongBreakEvery = def.LongBreakEvery
	}
	return d
}

// State 时钟状态快照
// State is an observable snapshot of the clock.
type State struct {
	Type   SessionType
	Left   int
	Status Status
	Count  int
}

// Clock 番茄钟状态机。所有可变状态显式持有，tick 由外部调度器驱动，
// 因此可以不依赖真实时钟进行确定性测试。
// Clock is the pomodoro countdown state machine. It holds all mutable state
// explicitly and is advanced by an external scheduler calling Tick once per
// elapsed second, which keeps it deterministic under test.
type Clock struct {
	durations Durations
	typ       SessionType
	left      int
	status    Status
	count     int
}

// NewClock 创建处于 stopped 状态的工作会话时钟
// NewClock returns a clock at a fresh, stopped work session.
func NewClock(d Durations) *Clock {
	d = d.normalized()
	return &Clock{
		durations: d,
		typ:       Work,
		left:      d.Work,
		status:    Stopped,
	}
}

// State 返回当前状态快照 / State returns the current snapshot.
func (c *Clock) State() State {
	return State{Type: c.typ, Left: c.left, Status: c.status, Count: c.count}
}

// Durations 返回时长配置 / Durations returns the configured session lengths.
func (c *Clock) Durations() Durations {
	return c.durations
}

// Start 从 stopped/paused 进入 running；已在运行则忽略
// Start moves stopped or paused to running. No-op while already running.
func (c *Clock) Start() {
	if c.status == Running {
		return
	}
	c.status = Running
}

// Pause 仅在 running 时生效 / Pause takes effect only while running.
func (c *Clock) Pause() {
	if c.status != Running {
		return
	}
	c.status = Paused
}

// Reset 停止并将剩余时间重置为当前会话类型的完整时长；
// 不改变会话类型和完成计数。
// Reset stops the clock and restores the full length of the current session
// type. Session type and completed count are untouched.
func (c *Clock) Reset() {
	c.status = Stopped
	c.left = c.durations.For(c.typ)
}

// Tick 每经过一秒调用一次；非 running 时忽略。剩余时间递减，
// 归零时触发会话切换。
// Tick is called once per elapsed second while running. It decrements the
// remaining time and switches session when the counter reaches zero.
func (c *Clock) Tick() {
	if c.status != Running {
		return
	}
	if c.left > 0 {
		c.left--
	}
	if c.left == 0 {
		c.switchSession()
	}
}

// switchSession 会话切换规则：工作段结束时递增完成计数，每满
// LongBreakEvery 次进入长休息，否则短休息；休息段结束后无条件回到工作段。
// 切换后时钟停止，不自动续跑。
func (c *Clock) switchSession() {
	next := Work
	if c.typ == Work {
		c.count++
		if c.count%c.durations.LongBreakEvery == 0 {
			next = LongBreak
		} else {
			next = ShortBreak
		}
	}
	c.typ = next
	c.left = c.durations.For(next)
	c.status = Stopped
}
