// Package storage 基于 SQLite 的任务与设置持久化，按用户分区，
// 并向订阅者广播全量快照。
// Package storage persists tasks and settings in SQLite, partitioned per
// user, and broadcasts full-collection snapshots to subscribers.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"focusboard/internal/task"

	_ "modernc.org/sqlite"
)

// Store 基于 SQLite (WAL 模式) 的持久化实现
// Store implements the persistent collaborator using SQLite with WAL mode.
type Store struct {
	db   *sql.DB
	path string

	mu          sync.Mutex
	lastCreated int64 // last assigned created_at in unix nanos
	nextSubID   int
	subs        map[int]*subscriber
}

type subscriber struct {
	userID string
	ch     chan []task.Task
}

// Open 创建并初始化数据库 / Open creates and initializes the database.
func Open(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &Store{db: db, path: dbPath, subs: map[int]*subscriber{}}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id             TEXT NOT NULL,
		user_id        TEXT NOT NULL,
		title          TEXT NOT NULL,
		completed      INTEGER NOT NULL DEFAULT 0,
		scheduled_date TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL,
		completed_at   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY(user_id, id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		user_id   TEXT PRIMARY KEY,
		music_url TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库连接并断开所有订阅
// Close closes the database and terminates every subscription.
func (s *Store) Close() error {
	s.mu.Lock()
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
	s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// --- Task Operations ---

// CreateTask 创建单条任务并广播快照
// CreateTask inserts one task and broadcasts a fresh snapshot.
func (s *Store) CreateTask(userID string, draft task.Draft) (task.Task, error) {
	t, err := s.createOne(userID, draft)
	if err != nil {
		return task.Task{}, err
	}
	s.notify(userID)
	return t, nil
}

// BatchError 批量写入的聚合失败。已成功的写入不回滚，读取方可能已经
// 看到部分结果。
// BatchError aggregates a partially failed batch. Writes that already
// succeeded are not rolled back and may be visible to readers.
type BatchError struct {
	Total  int
	Failed int
	Errs   []error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("failed to save all generated tasks: %d of %d writes failed", e.Failed, e.Total)
}

// CreateTasks 并发写入一批任务并等待全部落盘，降低多任务生成的端到端
// 延迟。任何失败聚合为一个 BatchError。
// CreateTasks writes one logical batch with concurrent inserts and waits for
// all of them to settle. Failures are aggregated into a single BatchError.
func (s *Store) CreateTasks(ctx context.Context, userID string, drafts []task.Draft) ([]task.Task, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is empty")
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]task.Task, len(drafts))
	errs := make([]error, len(drafts))
	var wg sync.WaitGroup
	for i, d := range drafts {
		wg.Add(1)
		go func(i int, d task.Draft) {
			defer wg.Done()
			results[i], errs[i] = s.createOne(userID, d)
		}(i, d)
	}
	wg.Wait()

	created := make([]task.Task, 0, len(drafts))
	var failures []error
	for i := range drafts {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		created = append(created, results[i])
	}

	// 部分写入也对读取方可见，所以无论成败都广播
	// Partial writes are already visible, so notify either way.
	s.notify(userID)

	if len(failures) > 0 {
		return created, &BatchError{Total: len(drafts), Failed: len(failures), Errs: failures}
	}
	return created, nil
}

func (s *Store) createOne(userID string, draft task.Draft) (task.Task, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return task.Task{}, fmt.Errorf("user id is empty")
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return task.Task{}, fmt.Errorf("task title is empty")
	}

	id, err := newTaskID()
	if err != nil {
		return task.Task{}, err
	}
	t := task.Task{
		ID:            id,
		Title:         title,
		ScheduledDate: task.NormalizeDate(draft.ScheduledDate),
		CreatedAt:     s.nextCreatedAt(),
	}
	_, err = s.db.Exec(`
		INSERT INTO tasks (id, user_id, title, completed, scheduled_date, created_at, completed_at)
		VALUES (?, ?, ?, 0, ?, ?, 0)`,
		t.ID, userID, t.Title, t.ScheduledDate, t.CreatedAt.UnixNano(),
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// TaskPatch 部分更新；nil 字段不变。Completed 的变化同时维护 completed_at。
// TaskPatch is a partial update; nil fields are left untouched. Changing
// Completed also maintains completed_at.
type TaskPatch struct {
	Title         *string
	Completed     *bool
	ScheduledDate *string
}

// UpdateTask 应用部分更新并广播快照
// UpdateTask applies a patch and broadcasts a fresh snapshot.
func (s *Store) UpdateTask(userID, id string, patch TaskPatch) (task.Task, error) {
	current, err := s.GetTask(userID, id)
	if err != nil {
		return task.Task{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return task.Task{}, fmt.Errorf("task title is empty")
		}
		current.Title = title
	}
	if patch.ScheduledDate != nil {
		current.ScheduledDate = task.NormalizeDate(*patch.ScheduledDate)
	}
	if patch.Completed != nil && *patch.Completed != current.Completed {
		current.Completed = *patch.Completed
		if current.Completed {
			current.CompletedAt = time.Now().UTC()
		} else {
			current.CompletedAt = time.Time{}
		}
	}
	if err := s.writeTask(userID, current); err != nil {
		return task.Task{}, err
	}
	s.notify(userID)
	return current, nil
}

// ToggleTask 翻转完成状态，completed_at 随之设置或清除
// ToggleTask flips completion, setting completed_at on false->true and
// clearing it on true->false.
func (s *Store) ToggleTask(userID, id string) (task.Task, error) {
	current, err := s.GetTask(userID, id)
	if err != nil {
		return task.Task{}, err
	}
	flipped := !current.Completed
	return s.UpdateTask(userID, id, TaskPatch{Completed: &flipped})
}

// DeleteTask 删除任务并广播快照 / DeleteTask removes a task and notifies.
func (s *Store) DeleteTask(userID, id string) error {
	userID = strings.TrimSpace(userID)
	id = strings.TrimSpace(id)
	if userID == "" || id == "" {
		return fmt.Errorf("user id or task id is empty")
	}
	res, err := s.db.Exec(`DELETE FROM tasks WHERE user_id=? AND id=?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	s.notify(userID)
	return nil
}

// GetTask 读取单条任务 / GetTask loads one task.
func (s *Store) GetTask(userID, id string) (task.Task, error) {
	userID = strings.TrimSpace(userID)
	id = strings.TrimSpace(id)
	if userID == "" || id == "" {
		return task.Task{}, fmt.Errorf("user id or task id is empty")
	}
	row := s.db.QueryRow(`
		SELECT id, title, completed, scheduled_date, created_at, completed_at
		FROM tasks WHERE user_id=? AND id=?`, userID, id)
	t, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return task.Task{}, fmt.Errorf("task not found: %s", id)
		}
		return task.Task{}, fmt.Errorf("load task: %w", err)
	}
	return t, nil
}

// ListTasks 返回用户的全部任务，创建时间降序
// ListTasks returns the user's full collection, newest first.
func (s *Store) ListTasks(userID string) ([]task.Task, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is empty")
	}
	rows, err := s.db.Query(`
		SELECT id, title, completed, scheduled_date, created_at, completed_at
		FROM tasks WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) writeTask(userID string, t task.Task) error {
	completedAt := int64(0)
	if !t.CompletedAt.IsZero() {
		completedAt = t.CompletedAt.UnixNano()
	}
	res, err := s.db.Exec(`
		UPDATE tasks SET title=?, completed=?, scheduled_date=?, completed_at=?
		WHERE user_id=? AND id=?`,
		t.Title, boolToInt(t.Completed), t.ScheduledDate, completedAt, userID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task not found: %s", t.ID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var t task.Task
	var completed int
	var createdAt, completedAt int64
	if err := row.Scan(&t.ID, &t.Title, &completed, &t.ScheduledDate, &createdAt, &completedAt); err != nil {
		return task.Task{}, err
	}
	t.Completed = completed != 0
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	if completedAt != 0 {
		t.CompletedAt = time.Unix(0, completedAt).UTC()
	}
	return t, nil
}

// --- Settings Operations ---

// MusicURL 读取用户音乐链接，未设置返回空串
// MusicURL returns the stored music URL, "" when unset.
func (s *Store) MusicURL(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user id is empty")
	}
	var url string
	err := s.db.QueryRow(`SELECT music_url FROM settings WHERE user_id=?`, userID).Scan(&url)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("load settings: %w", err)
	}
	return url, nil
}

// SetMusicURL 写入用户音乐链接 / SetMusicURL stores the music URL.
func (s *Store) SetMusicURL(userID, url string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is empty")
	}
	_, err := s.db.Exec(`
		INSERT INTO settings (user_id, music_url) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET music_url=excluded.music_url`,
		userID, strings.TrimSpace(url))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// --- Helpers ---

// nextCreatedAt 单调分配创建时间，批量并发创建也保持严格递增
// nextCreatedAt assigns strictly increasing creation timestamps even under
// concurrent batch creation.
func (s *Store) nextCreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().UnixNano()
	if now <= s.lastCreated {
		now = s.lastCreated + 1
	}
	s.lastCreated = now
	return time.Unix(0, now).UTC()
}

func newTaskID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate task id: %w", err)
	}
	return fmt.Sprintf("task_%d_%s", time.Now().UTC().UnixNano(), hex.EncodeToString(buf)), nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
