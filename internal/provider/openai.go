// Package provider 封装 OpenAI 兼容的生成式文本服务：单次非流式补全，
// 并把传输层错误归类为可重试/不可重试两类。
// Package provider wraps an OpenAI-compatible generative text service. It
// issues single non-streaming completions and classifies transport errors
// into retryable and non-retryable kinds for the caller's backoff loop.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"focusboard/internal/retry"
)

// Config 生成服务配置 / Config holds the generative service settings.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	TimeoutMS int
}

// Client 生成式文本服务客户端 / Client talks to the generative text service.
type Client struct {
	api   *openai.Client
	mu    sync.RWMutex
	model string
}

// NewClient 创建客户端；BaseURL 为空时使用 SDK 默认地址
// NewClient builds a client; an empty BaseURL keeps the SDK default endpoint.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("provider model is empty")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		config.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	}

	httpClient := &http.Client{}
	if cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	config.HTTPClient = httpClient

	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: cfg.Model,
	}, nil
}

// Model 当前模型 / Model returns the active model id.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel 切换模型 / SetModel switches the active model.
func (c *Client) SetModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model is empty")
	}
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
	return nil
}

// taskListSchema 约束模型输出为 {"tasks":[{title, scheduledDate}]}
// taskListSchema constrains the completion to a tasks envelope. Strict mode
// requires an object root, so the array is wrapped.
var taskListSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"tasks": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"title":         {Type: jsonschema.String},
					"scheduledDate": {Type: jsonschema.String},
				},
				Required:             []string{"title", "scheduledDate"},
				AdditionalProperties: false,
			},
		},
	},
	Required:             []string{"tasks"},
	AdditionalProperties: false,
}

// Generate 发起一次非流式补全并返回消息正文
// Generate runs one non-streaming completion and returns the message content.
// Transport and service failures come back classified for the retry loop.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "task_list",
				Schema: taskListSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// classify 把 SDK 错误映射到重试语义：429 可重试，其他 HTTP 状态立即失败，
// 网络类错误视作瞬时故障。
// classify maps SDK errors onto the retry semantics: 429 is retryable, other
// HTTP statuses fail immediately, network-level failures are transient.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &retry.RateLimitError{Err: err}
		}
		return &retry.StatusError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &retry.RateLimitError{Err: err}
		}
		if reqErr.HTTPStatusCode > 0 {
			return &retry.StatusError{Status: reqErr.HTTPStatusCode, Body: reqErr.Error()}
		}
	}

	return &retry.TransientError{Err: err}
}
