package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"focusboard/internal/retry"
)

func TestNewClient_RequiresModel(t *testing.T) {
	if _, err := NewClient(Config{Model: "   "}); err == nil {
		t.Fatal("empty model should fail")
	}
	c, err := NewClient(Config{Model: "gpt-4o-mini", BaseURL: "https://api.example.com/v1/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Model() != "gpt-4o-mini" {
		t.Fatalf("Model=%q", c.Model())
	}
}

func TestClient_SetModel(t *testing.T) {
	c, err := NewClient(Config{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.SetModel(""); err == nil {
		t.Fatal("blank model should fail")
	}
	if err := c.SetModel(" gpt-4o "); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if c.Model() != "gpt-4o" {
		t.Fatalf("Model=%q after SetModel", c.Model())
	}
}

func TestClassify_RateLimit(t *testing.T) {
	err := classify(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"})
	var rl *retry.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("err=%v, want RateLimitError", err)
	}
	if !retry.IsRetryable(err) {
		t.Fatal("rate limit must be retryable")
	}
}

func TestClassify_StatusError(t *testing.T) {
	err := classify(&openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"})
	var se *retry.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err=%v, want StatusError", err)
	}
	if se.Status != http.StatusUnauthorized || se.Body != "bad key" {
		t.Fatalf("StatusError=%+v", se)
	}
	if retry.IsRetryable(err) {
		t.Fatal("status errors must not be retryable")
	}
}

func TestClassify_TransportFailureIsTransient(t *testing.T) {
	err := classify(errors.New("dial tcp: connection refused"))
	var tr *retry.TransientError
	if !errors.As(err, &tr) {
		t.Fatalf("err=%v, want TransientError", err)
	}
}

func TestClassify_ContextErrorsPassThrough(t *testing.T) {
	if got := classify(context.Canceled); !errors.Is(got, context.Canceled) {
		t.Fatalf("classify(Canceled)=%v", got)
	}
	if got := classify(context.DeadlineExceeded); !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("classify(DeadlineExceeded)=%v", got)
	}
}
