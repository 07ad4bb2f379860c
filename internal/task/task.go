// Package task 定义任务数据模型和由任务集合派生的只读视图。
// Package task holds the task data model and the pure view derivations
// consumed by the presentation layer.
package task

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout 计划日期的 ISO 格式 / DateLayout is the ISO calendar-date layout.
const DateLayout = "2006-01-02"

var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Task 单条任务记录。ID 由存储层分配；CompletedAt 非零当且仅当 Completed 为真。
// Task is one to-do record. The ID is assigned by the store. CompletedAt is
// non-zero if and only if Completed is true.
type Task struct {
	ID            string
	Title         string
	Completed     bool
	ScheduledDate string // ISO YYYY-MM-DD, "" means unscheduled
	CreatedAt     time.Time
	CompletedAt   time.Time
}

// Draft 待创建任务的输入，来自用户或任务分解流水线
// Draft is the input to task creation, from the user or the decomposition pipeline.
type Draft struct {
	Title         string
	ScheduledDate string
}

// ValidDate 判断是否为 YYYY-MM-DD 形状
// ValidDate reports whether s matches the YYYY-MM-DD shape.
func ValidDate(s string) bool {
	return dateShape.MatchString(s)
}

// NormalizeDate 保留合法 ISO 日期，否则归为空（未计划）
// NormalizeDate keeps a well-formed ISO date and coerces anything else to ""
// (unscheduled).
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if ValidDate(s) {
		return s
	}
	return ""
}
