package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobsync/internal/model"
)

func makeTestServer(t *testing.T, statusCode int, body any, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
	}
}

func TestOpenAIProvider_StructuredRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ResponseFormat struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Name   string          `json:"name"`
				Strict bool            `json:"strict"`
				Schema json.RawMessage `json:"schema"`
			} `json:"json_schema"`
		} `json:"response_format"`
	}
	srv := makeTestServer(t, http.StatusOK, completion(okResponse), func(r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
	})

	p := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "test-model", Structured: true}, srv.Client())
	got, err := p.Complete(context.Background(), "be a recruiter", "score this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != okResponse {
		t.Errorf("got %q", got)
	}
	if gotPath != "/v1/chat/completions" || gotAuth != "Bearer test-key" {
		t.Errorf("path %q auth %q", gotPath, gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "score this" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if gotReq.ResponseFormat.Type != "json_schema" || gotReq.ResponseFormat.JSONSchema.Name != "job_score" || !gotReq.ResponseFormat.JSONSchema.Strict {
		t.Errorf("unexpected response_format: %+v", gotReq.ResponseFormat)
	}

	var schema struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(gotReq.ResponseFormat.JSONSchema.Schema, &schema); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if len(schema.Required) != len(Criteria)+4 {
		t.Errorf("schema requires %v", schema.Required)
	}
}

func TestOpenAIProvider_PlainRequestOmitsResponseFormat(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := makeTestServer(t, http.StatusOK, completion("{}"), func(r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
	})

	p := NewOpenAIProvider(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	if _, err := p.Complete(context.Background(), "s", "p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := raw["response_format"]; ok {
		t.Error("response_format should be omitted when structured output is off")
	}
}

func TestOpenAIProvider_RateLimitedIsHTTPError(t *testing.T) {
	srv := makeTestServer(t, http.StatusTooManyRequests, map[string]any{
		"error": map[string]any{"message": "quota exceeded", "type": "rate_limit_error"},
	}, nil)

	p := NewOpenAIProvider(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	_, err := p.Complete(context.Background(), "s", "p")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 HTTPError, got %v", err)
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	srv := makeTestServer(t, http.StatusOK, map[string]any{"choices": []any{}}, nil)

	p := NewOpenAIProvider(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	if _, err := p.Complete(context.Background(), "s", "p"); err == nil {
		t.Fatal("expected error when the backend returns no choices")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (Config{}).WithDefaults().Validate(); err == nil {
		t.Error("missing api key should fail")
	}
	if err := (Config{APIKey: "k", Tier: "gold"}).WithDefaults().Validate(); err == nil {
		t.Error("unknown tier should fail")
	}
	c := Config{APIKey: "k"}.WithDefaults()
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if c.Tier != TierFree || c.RequestsPerWindow != 15 || c.BaseDelay != DefaultBaseDelay {
		t.Errorf("unexpected defaults: %+v", c)
	}
}
