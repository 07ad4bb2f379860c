package task

import (
	"testing"
	"time"
)

func at(offset int) time.Time {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(offset) * time.Second)
}

func TestDerive_CompletionRateRounds(t *testing.T) {
	tasks := []Task{
		{ID: "a", Title: "one", Completed: true, CreatedAt: at(0), CompletedAt: at(10)},
		{ID: "b", Title: "two", CreatedAt: at(1)},
		{ID: "c", Title: "three", CreatedAt: at(2)},
	}
	v := Derive(tasks)
	if v.Stats.Total != 3 || v.Stats.Completed != 1 || v.Stats.Pending != 2 {
		t.Fatalf("stats unexpected: %+v", v.Stats)
	}
	if v.Stats.CompletionRate != 33 {
		t.Fatalf("CompletionRate=%d, want 33", v.Stats.CompletionRate)
	}
}

func TestDerive_CompletionRateRoundsUp(t *testing.T) {
	tasks := []Task{
		{ID: "a", Completed: true, CreatedAt: at(0), CompletedAt: at(1)},
		{ID: "b", Completed: true, CreatedAt: at(1), CompletedAt: at(2)},
		{ID: "c", CreatedAt: at(2)},
	}
	if got := Derive(tasks).Stats.CompletionRate; got != 67 {
		t.Fatalf("CompletionRate=%d, want 67", got)
	}
}

func TestDerive_EmptyCollection(t *testing.T) {
	v := Derive(nil)
	if v.Stats.CompletionRate != 0 || v.Stats.Total != 0 {
		t.Fatalf("stats for empty collection: %+v", v.Stats)
	}
	if len(v.All) != 0 || len(v.Pending) != 0 || len(v.Completed) != 0 {
		t.Fatalf("views for empty collection not empty")
	}
}

func TestDerive_PendingSortsUnscheduledLast(t *testing.T) {
	tasks := []Task{
		{ID: "a", Title: "may", ScheduledDate: "2025-05-01", CreatedAt: at(0)},
		{ID: "b", Title: "someday", CreatedAt: at(1)},
		{ID: "c", Title: "april", ScheduledDate: "2025-04-01", CreatedAt: at(2)},
	}
	v := Derive(tasks)
	got := []string{v.Pending[0].ScheduledDate, v.Pending[1].ScheduledDate, v.Pending[2].ScheduledDate}
	want := []string{"2025-04-01", "2025-05-01", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pending order %v, want %v", got, want)
		}
	}
}

func TestDerive_AllSortsByCreationDescending(t *testing.T) {
	tasks := []Task{
		{ID: "old", CreatedAt: at(0)},
		{ID: "new", CreatedAt: at(20)},
		{ID: "mid", CreatedAt: at(10)},
	}
	v := Derive(tasks)
	if v.All[0].ID != "new" || v.All[1].ID != "mid" || v.All[2].ID != "old" {
		t.Fatalf("All order: %s %s %s", v.All[0].ID, v.All[1].ID, v.All[2].ID)
	}
}

func TestDerive_ScheduledCount(t *testing.T) {
	tasks := []Task{
		{ID: "a", ScheduledDate: "2025-04-01", CreatedAt: at(0)},
		{ID: "b", CreatedAt: at(1)},
		{ID: "c", ScheduledDate: "2025-04-02", Completed: true, CreatedAt: at(2), CompletedAt: at(3)},
	}
	if got := Derive(tasks).Stats.Scheduled; got != 2 {
		t.Fatalf("Scheduled=%d, want 2", got)
	}
}

func TestDerive_DoesNotMutateInput(t *testing.T) {
	tasks := []Task{
		{ID: "a", CreatedAt: at(0)},
		{ID: "b", CreatedAt: at(10)},
	}
	Derive(tasks)
	if tasks[0].ID != "a" || tasks[1].ID != "b" {
		t.Fatalf("input mutated: %s %s", tasks[0].ID, tasks[1].ID)
	}
}

func TestScheduledByDate(t *testing.T) {
	tasks := []Task{
		{ID: "a", ScheduledDate: "2025-04-01", CreatedAt: at(0)},
		{ID: "b", ScheduledDate: "2025-04-01", CreatedAt: at(1)},
		{ID: "c", CreatedAt: at(2)},
	}
	byDate := ScheduledByDate(tasks)
	if len(byDate) != 1 || len(byDate["2025-04-01"]) != 2 {
		t.Fatalf("grouping unexpected: %v", byDate)
	}
	if got := DueOn(tasks, "2025-04-01"); len(got) != 2 {
		t.Fatalf("DueOn returned %d tasks, want 2", len(got))
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2025-03-01", "2025-03-01"},
		{" 2025-03-01 ", "2025-03-01"},
		{"not-a-date", ""},
		{"2025-3-1", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeDate(tc.in); got != tc.want {
			t.Fatalf("NormalizeDate(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
