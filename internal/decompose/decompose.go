// Package decompose 实现目标拆解流水线：把一句目标描述交给生成式模型，
// 解析校验其结构化输出，再批量持久化为任务。
// Package decompose implements the goal decomposition pipeline: a free-form
// goal is sent to the generative model, the structured response is parsed and
// validated, and surviving candidates are persisted as one batch.
package decompose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"focusboard/internal/retry"
	"focusboard/internal/task"
)

var (
	// ErrEmptyGoal 目标为空 / ErrEmptyGoal: blank goal text, no call is made.
	ErrEmptyGoal = errors.New("goal text is empty")

	// ErrNoIdentity 未登录 / ErrNoIdentity: no signed-in user is available.
	ErrNoIdentity = errors.New("no user identity available")

	// ErrNoStore 缺少存储句柄 / ErrNoStore: the store handle is missing.
	ErrNoStore = errors.New("no store available")

	// ErrGoalTooLong 目标超出 token 预算 / ErrGoalTooLong: over the token budget.
	ErrGoalTooLong = errors.New("goal text exceeds token budget")

	// ErrNoContent 模型响应无正文 / ErrNoContent: the response carried no payload.
	ErrNoContent = errors.New("no content returned")

	// ErrNoValidTasks 校验后无存活候选 / ErrNoValidTasks: zero candidates survived.
	ErrNoValidTasks = errors.New("no valid tasks generated")
)

// Candidate 模型输出的候选任务 / Candidate is one generated task proposal.
type Candidate struct {
	Title         string `json:"title"`
	ScheduledDate string `json:"scheduledDate"`
}

// Generator 生成服务抽象 / Generator issues one structured completion.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// BatchCreator 批量持久化抽象 / BatchCreator persists drafts as one batch.
type BatchCreator interface {
	CreateTasks(ctx context.Context, userID string, drafts []task.Draft) ([]task.Task, error)
}

// Options 流水线参数 / Options tune the pipeline. Zero values take defaults.
type Options struct {
	MinTasks      int           // 默认 5 / default 5
	MaxTasks      int           // 默认 8 / default 8
	MaxTitleWords int           // 默认 10 / default 10
	MaxGoalTokens int           // 默认 512 / default 512
	MaxAttempts   int           // 默认 5 / default 5
	InitialDelay  time.Duration // 默认 1s / default 1s
	Sleep         func(ctx context.Context, d time.Duration) error
}

func (o Options) normalized() Options {
	if o.MinTasks <= 0 {
		o.MinTasks = 5
	}
	if o.MaxTasks < o.MinTasks {
		o.MaxTasks = 8
	}
	if o.MaxTitleWords <= 0 {
		o.MaxTitleWords = 10
	}
	if o.MaxGoalTokens <= 0 {
		o.MaxGoalTokens = 512
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	return o
}

// Pipeline 目标拆解流水线 / Pipeline wires generator, store, and budget guard.
type Pipeline struct {
	gen       Generator
	store     BatchCreator
	tokenizer *Tokenizer
	opts      Options
	now       func() time.Time
}

// New 创建流水线 / New builds a Pipeline over a generator and a batch store.
func New(gen Generator, store BatchCreator, opts Options) *Pipeline {
	return &Pipeline{
		gen:       gen,
		store:     store,
		tokenizer: DefaultTokenizer(),
		opts:      opts.normalized(),
		now:       time.Now,
	}
}

// Decompose 执行完整流水线并返回已持久化的任务
// Decompose runs the full pipeline for one goal and returns the persisted
// tasks. Configuration errors fail fast before any network call; the outbound
// call is retried with exponential backoff; partial batch failures surface as
// a single aggregate error without rolling back the successful writes.
func (p *Pipeline) Decompose(ctx context.Context, userID, goalText string) ([]task.Task, error) {
	goalText = strings.TrimSpace(goalText)
	if goalText == "" {
		return nil, ErrEmptyGoal
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrNoIdentity
	}
	if p.store == nil {
		return nil, ErrNoStore
	}
	if tokens := p.tokenizer.CountText(goalText); tokens > p.opts.MaxGoalTokens {
		return nil, fmt.Errorf("%w: %d tokens (limit %d)", ErrGoalTooLong, tokens, p.opts.MaxGoalTokens)
	}

	system := p.systemPrompt()
	user := p.userPrompt(goalText)

	var payload string
	err := retry.Do(ctx, func(ctx context.Context) error {
		out, genErr := p.gen.Generate(ctx, system, user)
		if genErr != nil {
			return genErr
		}
		payload = out
		return nil
	}, retry.Options{
		MaxAttempts:  p.opts.MaxAttempts,
		InitialDelay: p.opts.InitialDelay,
		Sleep:        p.opts.Sleep,
	})
	if err != nil {
		return nil, fmt.Errorf("generate tasks: %w", err)
	}

	candidates, err := parseCandidates(payload)
	if err != nil {
		return nil, err
	}

	drafts := Normalize(candidates)
	if len(drafts) == 0 {
		return nil, ErrNoValidTasks
	}

	// 聚合错误由存储层给出，已成功的写入不回滚。
	// The store reports the aggregate error; successful writes stay.
	return p.store.CreateTasks(ctx, userID, drafts)
}

// parseCandidates 解析模型正文：优先 {"tasks":[...]} 信封，其次裸数组
// parseCandidates decodes the payload, accepting the tasks envelope first and
// a bare array as fallback for lenient servers.
func parseCandidates(payload string) ([]Candidate, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrNoContent
	}

	var envelope struct {
		Tasks []Candidate `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err == nil && envelope.Tasks != nil {
		return envelope.Tasks, nil
	}

	var bare []Candidate
	if err := json.Unmarshal([]byte(payload), &bare); err != nil {
		return nil, fmt.Errorf("parse generated tasks: %w", err)
	}
	return bare, nil
}

// Normalize 丢弃无标题候选，裁剪标题空白，非法日期强制置空
// Normalize drops candidates without a title, trims title whitespace, and
// coerces an out-of-format scheduledDate to empty (unscheduled) rather than
// rejecting the candidate.
func Normalize(candidates []Candidate) []task.Draft {
	drafts := make([]task.Draft, 0, len(candidates))
	for _, c := range candidates {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}
		drafts = append(drafts, task.Draft{
			Title:         title,
			ScheduledDate: task.NormalizeDate(c.ScheduledDate),
		})
	}
	return drafts
}

func (p *Pipeline) systemPrompt() string {
	return fmt.Sprintf(
		"You are a productivity assistant. Decompose the user's goal into %d-%d concrete, actionable sub-tasks. "+
			"Each sub-task has a short title (at most %d words) and an optional scheduledDate in YYYY-MM-DD format "+
			"(empty string when no date applies). Respond with JSON only, as an object {\"tasks\": [...]}.",
		p.opts.MinTasks, p.opts.MaxTasks, p.opts.MaxTitleWords)
}

func (p *Pipeline) userPrompt(goalText string) string {
	return fmt.Sprintf("Goal: %s\nToday's date: %s", goalText, p.now().Format(task.DateLayout))
}
