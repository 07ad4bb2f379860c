package task

import (
	"math"
	"sort"
)

// 未计划任务在待办排序中垫底使用的哨兵日期
// Sentinel date that sorts unscheduled tasks after every real date.
const unscheduledSentinel = "9999-12-31"

// Stats 任务集合的汇总统计 / Stats summarizes a task collection.
type Stats struct {
	Total          int
	Completed      int
	Pending        int
	Scheduled      int
	CompletionRate int // rounded integer percentage, 0 when Total is 0
}

// Views 由任务集合派生的全部只读视图
// Views are the read-only views derived from one task collection snapshot.
type Views struct {
	All       []Task // stable, created-at descending
	Pending   []Task // completed=false, scheduled-date ascending, unscheduled last
	Completed []Task
	Stats     Stats
}

// Derive 从任务集合派生视图。纯函数：核心不缓存派生状态，
// 表现层在观察到新快照时重新调用。
// Derive computes Views from a task collection. It is a pure function of its
// input; the core keeps no cached derived state and the presentation layer
// recomputes on every observed snapshot.
func Derive(tasks []Task) Views {
	all := append([]Task(nil), tasks...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	var pending, completed []Task
	scheduled := 0
	for _, t := range all {
		if t.ScheduledDate != "" {
			scheduled++
		}
		if t.Completed {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return sortDate(pending[i]) < sortDate(pending[j])
	})

	stats := Stats{
		Total:     len(all),
		Completed: len(completed),
		Pending:   len(pending),
		Scheduled: scheduled,
	}
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}

	return Views{All: all, Pending: pending, Completed: completed, Stats: stats}
}

func sortDate(t Task) string {
	if t.ScheduledDate == "" {
		return unscheduledSentinel
	}
	return t.ScheduledDate
}

// DueOn 返回指定日期的任务（按创建时间降序，调用方通常传 Derive 的 All）
// DueOn filters tasks scheduled on the given ISO date.
func DueOn(tasks []Task, date string) []Task {
	var out []Task
	for _, t := range tasks {
		if t.ScheduledDate == date {
			out = append(out, t)
		}
	}
	return out
}

// ScheduledByDate 按计划日期分组，供日历面板使用；未计划任务不出现
// ScheduledByDate groups tasks by scheduled date for the calendar pane.
// Unscheduled tasks are omitted.
func ScheduledByDate(tasks []Task) map[string][]Task {
	out := map[string][]Task{}
	for _, t := range tasks {
		if t.ScheduledDate == "" {
			continue
		}
		out[t.ScheduledDate] = append(out[t.ScheduledDate], t)
	}
	return out
}
