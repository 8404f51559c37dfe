package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/amishk599/jobsync/internal/model"
)

// Provider sends one scoring request and returns the raw text response.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	structured bool
}

// NewOpenAIProvider creates a provider from cfg. A nil httpClient uses
// http.DefaultClient; per-call timeouts come from the context.
func NewOpenAIProvider(cfg Config, httpClient *http.Client) *OpenAIProvider {
	cfg = cfg.WithDefaults()
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = trimSlash(cfg.BaseURL)
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		structured: cfg.Structured,
	}
}

// Complete sends system and prompt as one chat turn at temperature 0.
func (p *OpenAIProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	}
	if p.structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "job_score",
				Schema: &scoreSchema,
				Strict: true,
			},
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// classify turns API status errors into model.HTTPError.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &model.HTTPError{StatusCode: apiErr.HTTPStatusCode, Err: fmt.Errorf("llm request: %w", err)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &model.HTTPError{StatusCode: reqErr.HTTPStatusCode, Err: fmt.Errorf("llm request: %w", err)}
	}
	return fmt.Errorf("llm request: %w", err)
}

// scoreSchema mirrors what parseResult requires.
var scoreSchema = func() jsonschema.Definition {
	props := make(map[string]jsonschema.Definition, len(Criteria)+4)
	required := make([]string, 0, len(Criteria)+4)
	for _, c := range Criteria {
		props[c.Key] = jsonschema.Definition{Type: jsonschema.Integer, Description: c.Label + ", 0 to 10"}
		required = append(required, c.Key)
	}
	list := jsonschema.Definition{Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}}
	props["rationale"] = jsonschema.Definition{Type: jsonschema.String, Description: "at most 500 characters"}
	props["matched_skills"] = list
	props["positive_signals"] = list
	props["negative_signals"] = list
	required = append(required, "rationale", "matched_skills", "positive_signals", "negative_signals")
	return jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           props,
		Required:             required,
		AdditionalProperties: false,
	}
}()

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
