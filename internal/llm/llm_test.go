package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCause     Cause
		wantTransient bool
	}{
		{"rate limit", &openai.APIError{HTTPStatusCode: 429}, CauseStatus, true},
		{"server error", &openai.APIError{HTTPStatusCode: 503}, CauseStatus, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, CauseStatus, false},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401}, CauseCredentials, false},
		{"forbidden", &openai.APIError{HTTPStatusCode: 403}, CauseCredentials, false},
		{"request error", &openai.RequestError{HTTPStatusCode: 502}, CauseStatus, true},
		{"deadline", context.DeadlineExceeded, CauseTimeout, true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), CauseTimeout, true},
		{"plain error", errors.New("connection refused"), CauseOther, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			me := classify(tt.err)
			if me.Cause != tt.wantCause {
				t.Errorf("classify() cause = %q, want %q", me.Cause, tt.wantCause)
			}
			if !errors.Is(me, tt.err) {
				t.Error("classified error should wrap the original")
			}
			if got := Transient(me); got != tt.wantTransient {
				t.Errorf("Transient() = %v, want %v", got, tt.wantTransient)
			}
		})
	}
}

func TestTransientNonModelError(t *testing.T) {
	if Transient(errors.New("some other failure")) {
		t.Error("Transient() should be false for errors that are not ModelErrors")
	}
	if Transient(nil) {
		t.Error("Transient(nil) should be false")
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"{\"pages\":[]}"}}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	got, err := c.Generate(context.Background(), "make a quiz")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != `{"pages":[]}` {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	_, err := c.Generate(context.Background(), "make a quiz")
	if err == nil {
		t.Fatal("expected error")
	}
	var me *ModelError
	if !errors.As(err, &me) {
		t.Fatalf("expected ModelError, got %T", err)
	}
	if me.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", me.Status)
	}
	if !Transient(err) {
		t.Error("429 should be transient")
	}
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	_, err := c.Generate(context.Background(), "make a quiz")
	var me *ModelError
	if !errors.As(err, &me) || me.Cause != CauseOther {
		t.Errorf("expected ModelError with cause other, got %v", err)
	}
}
