package timer

import (
	"sync"
	"time"
)

// Runner 用真实时钟驱动 Clock 的 tick。任意时刻最多持有一个
// ticker goroutine：Start 启动，Pause/Reset/会话自动切换都会停掉它。
// TUI 模式不使用 Runner，由 bubbletea 的 tick 消息驱动。
// Runner drives a Clock from wall-clock time for the plain REPL mode. At most
// one ticker goroutine exists per Runner: Start spawns it, and Pause, Reset,
// or an automatic session switch tears it down.
type Runner struct {
	mu       sync.Mutex
	clock    *Clock
	interval time.Duration
	stop     chan struct{}
	onTick   func(State)
}

// NewRunner 创建 Runner；onTick 在每次 tick 后（锁外）回调，可为 nil
// NewRunner wraps a clock. onTick, if non-nil, observes the state after every
// tick and is invoked outside the runner lock.
func NewRunner(clock *Clock, interval time.Duration, onTick func(State)) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	return &Runner{clock: clock, interval: interval, onTick: onTick}
}

// Start 启动时钟和 ticker / Start runs the clock and spawns the ticker if absent.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock.Start()
	if r.stop != nil {
		return
	}
	if r.clock.State().Status != Running {
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	go r.loop(stop)
}

// Pause 停掉 ticker 并暂停时钟 / Pause stops the ticker and pauses the clock.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	r.clock.Pause()
}

// Reset 停掉 ticker 并重置时钟 / Reset stops the ticker and resets the clock.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	r.clock.Reset()
}

// State 返回时钟状态快照 / State returns the clock snapshot.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.State()
}

// Close 停掉 ticker / Close tears down the ticker goroutine.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Runner) stopLocked() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	r.stop = nil
}

func (r *Runner) loop(stop chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.clock.Tick()
			st := r.clock.State()
			done := st.Status != Running
			if done && r.stop == stop {
				r.stop = nil
			}
			cb := r.onTick
			r.mu.Unlock()
			if cb != nil {
				cb(st)
			}
			if done {
				return
			}
		}
	}
}
