package timer

import "testing"

func TestClock_FullWorkSessionSwitchesToShortBreak(t *testing.T) {
	c := NewClock(DefaultDurations())
	st := c.State()
	if st.Type != Work || st.Left != 1500 || st.Status != Stopped || st.Count != 0 {
		t.Fatalf("fresh clock state unexpected: %+v", st)
	}

	c.Start()
	for i := 0; i < 1500; i++ {
		c.Tick()
		if i < 1499 && c.State().Status != Running {
			t.Fatalf("clock stopped early after %d ticks: %+v", i+1, c.State())
		}
	}

	st = c.State()
	if st.Type != ShortBreak {
		t.Fatalf("Type=%s, want %s", st.Type, ShortBreak)
	}
	if st.Left != 300 {
		t.Fatalf("Left=%d, want 300", st.Left)
	}
	if st.Status != Stopped {
		t.Fatalf("Status=%s, want %s", st.Status, Stopped)
	}
	if st.Count != 1 {
		t.Fatalf("Count=%d, want 1", st.Count)
	}
}

func TestClock_FourthWorkSessionEarnsLongBreak(t *testing.T) {
	d := Durations{Work: 3, ShortBreak: 2, LongBreak: 5, LongBreakEvery: 4}
	c := NewClock(d)

	finishSession := func() {
		c.Start()
		for c.State().Status == Running {
			c.Tick()
		}
	}

	for i := 1; i <= 3; i++ {
		finishSession() // work -> break
		st := c.State()
		if st.Type != ShortBreak {
			t.Fatalf("after work session %d: Type=%s, want %s", i, st.Type, ShortBreak)
		}
		if st.Count != i {
			t.Fatalf("after work session %d: Count=%d", i, st.Count)
		}
		finishSession() // break -> work
		if c.State().Type != Work {
			t.Fatalf("break %d did not return to work: %+v", i, c.State())
		}
	}

	finishSession() // 4th work session
	st := c.State()
	if st.Type != LongBreak {
		t.Fatalf("4th completion: Type=%s, want %s", st.Type, LongBreak)
	}
	if st.Left != 5 || st.Status != Stopped || st.Count != 4 {
		t.Fatalf("4th completion state unexpected: %+v", st)
	}

	finishSession() // long break -> work
	if c.State().Type != Work {
		t.Fatalf("long break did not return to work: %+v", c.State())
	}
}

func TestClock_InvalidTransitionsAreIgnored(t *testing.T) {
	c := NewClock(DefaultDurations())

	c.Pause() // stopped: no-op
	if c.State().Status != Stopped {
		t.Fatalf("Pause while stopped changed status: %+v", c.State())
	}

	c.Tick() // stopped: no-op
	if c.State().Left != 1500 {
		t.Fatalf("Tick while stopped decremented: %+v", c.State())
	}

	c.Start()
	c.Start() // running: no-op
	c.Tick()
	if got := c.State().Left; got != 1499 {
		t.Fatalf("Left=%d after one tick, want 1499", got)
	}

	c.Pause()
	c.Tick() // paused: no-op
	if got := c.State().Left; got != 1499 {
		t.Fatalf("Tick while paused decremented: %d", got)
	}

	c.Start() // paused -> running
	if c.State().Status != Running {
		t.Fatalf("Start from paused: %+v", c.State())
	}
}

func TestClock_ResetKeepsTypeAndCount(t *testing.T) {
	d := Durations{Work: 10, ShortBreak: 4, LongBreak: 6, LongBreakEvery: 4}
	c := NewClock(d)

	c.Start()
	for c.State().Status == Running {
		c.Tick()
	}
	// now in short break with count=1
	c.Start()
	c.Tick()
	c.Reset()

	st := c.State()
	if st.Type != ShortBreak {
		t.Fatalf("Reset changed type: %+v", st)
	}
	if st.Left != 4 {
		t.Fatalf("Reset did not restore duration: %+v", st)
	}
	if st.Status != Stopped {
		t.Fatalf("Reset did not stop: %+v", st)
	}
	if st.Count != 1 {
		t.Fatalf("Reset changed count: %+v", st)
	}
}

func TestClock_ZeroDurationsFallBackToDefaults(t *testing.T) {
	c := NewClock(Durations{})
	st := c.State()
	if st.Left != 1500 {
		t.Fatalf("Left=%d, want default 1500", st.Left)
	}
}
