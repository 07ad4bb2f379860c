package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"focusboard/internal/task"
	"focusboard/internal/timer"
)

type fakeTaskStore struct {
	snaps   chan []task.Task
	toggled []string
	deleted []string
	created []task.Draft
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{snaps: make(chan []task.Task, 1)}
}

func (f *fakeTaskStore) CreateTask(_ string, draft task.Draft) (task.Task, error) {
	f.created = append(f.created, draft)
	return task.Task{ID: "t1", Title: draft.Title}, nil
}

func (f *fakeTaskStore) ToggleTask(_ string, taskID string) (task.Task, error) {
	f.toggled = append(f.toggled, taskID)
	return task.Task{ID: taskID}, nil
}

func (f *fakeTaskStore) DeleteTask(_ string, taskID string) error {
	f.deleted = append(f.deleted, taskID)
	return nil
}

func (f *fakeTaskStore) Subscribe(string) (<-chan []task.Task, func()) {
	return f.snaps, func() { close(f.snaps) }
}

type fakePipeline struct {
	created []task.Task
	err     error
	calls   int
}

func (f *fakePipeline) Decompose(context.Context, string, string) ([]task.Task, error) {
	f.calls++
	return f.created, f.err
}

func testDurations() timer.Durations {
	return timer.Durations{Work: 3, ShortBreak: 2, LongBreak: 5, LongBreakEvery: 2}
}

func newTestApp(t *testing.T) App {
	t.Helper()
	return NewApp(Options{
		UserID:    "user_a",
		Store:     newFakeTaskStore(),
		Durations: testDurations(),
	})
}

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	app, ok := model.(App)
	if !ok {
		t.Fatalf("Update returned %T, want App", model)
	}
	return app, cmd
}

func TestApp_SpaceStartsAndSchedulesTick(t *testing.T) {
	a := newTestApp(t)
	before := a.tickGen

	a, cmd := update(t, a, keyMsg(" "))
	if a.clock.State().Status != timer.Running {
		t.Fatalf("status=%v after space", a.clock.State().Status)
	}
	if a.tickGen != before+1 {
		t.Fatalf("tickGen=%d, want bumped", a.tickGen)
	}
	if cmd == nil {
		t.Fatal("space while stopped must schedule a tick")
	}
}

func TestApp_StaleTickIsDropped(t *testing.T) {
	a := newTestApp(t)
	a, _ = update(t, a, keyMsg(" ")) // running, gen bumped

	left := a.clock.State().Left
	a, cmd := update(t, a, tickMsg{gen: a.tickGen - 1})
	if a.clock.State().Left != left {
		t.Fatal("stale tick must not advance the clock")
	}
	if cmd != nil {
		t.Fatal("stale tick must not reschedule")
	}
}

func TestApp_TickAdvancesAndReschedules(t *testing.T) {
	a := newTestApp(t)
	a, _ = update(t, a, keyMsg(" "))

	left := a.clock.State().Left
	a, cmd := update(t, a, tickMsg{gen: a.tickGen})
	if a.clock.State().Left != left-1 {
		t.Fatalf("Left=%d, want %d", a.clock.State().Left, left-1)
	}
	if cmd == nil {
		t.Fatal("running clock must reschedule the next tick")
	}
}

func TestApp_SessionSwitchStopsTickChain(t *testing.T) {
	a := newTestApp(t)
	a, _ = update(t, a, keyMsg(" "))

	var cmd tea.Cmd
	for i := 0; i < testDurations().Work; i++ {
		a, cmd = update(t, a, tickMsg{gen: a.tickGen})
	}

	state := a.clock.State()
	if state.Type != timer.ShortBreak || state.Status != timer.Stopped {
		t.Fatalf("state after full work session: %+v", state)
	}
	if cmd != nil {
		t.Fatal("tick chain must end on session switch")
	}
	if a.statusMsg == "" {
		t.Fatal("switch should announce the next session")
	}
}

func TestApp_PauseInvalidatesPendingTick(t *testing.T) {
	a := newTestApp(t)
	a, _ = update(t, a, keyMsg(" "))
	runningGen := a.tickGen

	a, _ = update(t, a, keyMsg(" ")) // pause
	if a.clock.State().Status != timer.Paused {
		t.Fatalf("status=%v after second space", a.clock.State().Status)
	}
	if a.tickGen == runningGen {
		t.Fatal("pause must bump the generation")
	}

	// The tick that was already in flight arrives late and is ignored.
	left := a.clock.State().Left
	a, _ = update(t, a, tickMsg{gen: runningGen})
	if a.clock.State().Left != left {
		t.Fatal("in-flight tick after pause must be dropped")
	}
}

func TestApp_SnapshotRederivesViews(t *testing.T) {
	a := newTestApp(t)
	now := time.Now()
	snap := []task.Task{
		{ID: "t1", Title: "done", Completed: true, CreatedAt: now},
		{ID: "t2", Title: "todo", CreatedAt: now.Add(time.Second)},
	}

	a, cmd := update(t, a, snapshotMsg{tasks: snap})
	if a.views.Stats.Total != 2 || a.views.Stats.Completed != 1 {
		t.Fatalf("stats=%+v", a.views.Stats)
	}
	if a.views.All[0].ID != "t2" {
		t.Fatalf("All[0]=%s, want newest first", a.views.All[0].ID)
	}
	if cmd == nil {
		t.Fatal("snapshot handling must re-arm the wait")
	}
}

func TestApp_ToggleAndDeleteUseCursorTask(t *testing.T) {
	store := newFakeTaskStore()
	a := NewApp(Options{UserID: "user_a", Store: store, Durations: testDurations()})
	now := time.Now()
	a, _ = update(t, a, snapshotMsg{tasks: []task.Task{
		{ID: "t1", Title: "one", CreatedAt: now.Add(time.Second)},
		{ID: "t2", Title: "two", CreatedAt: now},
	}})

	a, _ = update(t, a, keyMsg("j"))
	a, _ = update(t, a, keyMsg("x"))
	if len(store.toggled) != 1 || store.toggled[0] != "t2" {
		t.Fatalf("toggled=%v", store.toggled)
	}

	a, _ = update(t, a, keyMsg("d"))
	if len(store.deleted) != 1 || store.deleted[0] != "t2" {
		t.Fatalf("deleted=%v", store.deleted)
	}
}

func TestApp_AddTaskParsesSchedule(t *testing.T) {
	store := newFakeTaskStore()
	a := NewApp(Options{UserID: "user_a", Store: store, Durations: testDurations()})

	a, _ = update(t, a, keyMsg("a"))
	if a.mode != modeAddTask {
		t.Fatalf("mode=%v after 'a'", a.mode)
	}
	a.input.SetValue("book flight @2025-07-01")
	a, _ = update(t, a, keyMsg("enter"))

	if len(store.created) != 1 {
		t.Fatalf("created=%v", store.created)
	}
	if store.created[0].Title != "book flight" || store.created[0].ScheduledDate != "2025-07-01" {
		t.Fatalf("draft=%+v", store.created[0])
	}
	if a.mode != modeNormal {
		t.Fatal("input mode must close on submit")
	}
}

func TestApp_GoalSubmissionSetsGenerating(t *testing.T) {
	pipe := &fakePipeline{created: []task.Task{{ID: "t1", Title: "step"}}}
	a := NewApp(Options{UserID: "user_a", Store: newFakeTaskStore(), Pipeline: pipe, Durations: testDurations()})

	a, _ = update(t, a, keyMsg("g"))
	a.input.SetValue("plan the launch")
	a, cmd := update(t, a, keyMsg("enter"))
	if !a.generating {
		t.Fatal("generating flag must be set during the pipeline run")
	}
	if cmd == nil {
		t.Fatal("goal submit must return a command")
	}

	a, _ = update(t, a, generateDoneMsg{created: pipe.created})
	if a.generating {
		t.Fatal("generating flag must clear on completion")
	}
	if a.statusMsg == "" {
		t.Fatal("completion should report a status")
	}
}

func TestApp_GenerateErrorSurfaces(t *testing.T) {
	a := newTestApp(t)
	a, _ = update(t, a, generateDoneMsg{err: errors.New("no valid tasks generated")})
	if a.statusMsg == "" || a.generating {
		t.Fatalf("generation error not surfaced: %q", a.statusMsg)
	}
}

func TestParseTaskInput(t *testing.T) {
	d := parseTaskInput("pack bags @2025-08-01")
	if d.Title != "pack bags" || d.ScheduledDate != "2025-08-01" {
		t.Fatalf("draft=%+v", d)
	}
	d = parseTaskInput("email alice@example.com")
	if d.Title != "email alice@example.com" || d.ScheduledDate != "" {
		t.Fatalf("non-date @ must stay in title: %+v", d)
	}
}
