package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions API,
// including local Ollama servers.
type OpenAIProvider struct {
	api    *openai.Client
	model  string
	strict bool
}

// NewOpenAIProvider creates an OpenAI-compatible provider. With
// cfg.StrictSchema the JSON schema is sent as a response format; otherwise
// plain JSON mode is used, which more local servers understand.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai model is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		api:    openai.NewClientWithConfig(config),
		model:  cfg.Model,
		strict: cfg.StrictSchema,
	}, nil
}

// Ping checks that the endpoint answers.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.api.ListModels(ctx); err != nil {
		return mapOpenAIError(err)
	}
	return nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	user := req.Prompt
	if req.Document != nil {
		if !req.Document.IsText() {
			return nil, fmt.Errorf("%s via openai: %w", req.Document.MIMEType, ErrUnsupportedDocument)
		}
		user += fmt.Sprintf("\n\n<source-document name=%q>\n%s\n</source-document>", req.Document.Name, req.Document.Data)
	}

	chatReq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
	}
	if req.Schema != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
		if p.strict {
			schemaBytes, err := json.Marshal(req.Schema.Definition)
			if err != nil {
				return nil, fmt.Errorf("marshal schema: %w", err)
			}
			chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:        req.Schema.Name,
					Description: req.Schema.Description,
					Schema:      json.RawMessage(schemaBytes),
					Strict:      true,
				},
			}
		}
	}

	resp, err := p.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("LLM returned no choices")}
	}

	choice := resp.Choices[0]
	raw := json.RawMessage(choice.Message.Content)
	slog.Debug("LLM response", "model", resp.Model, "raw", choice.Message.Content)

	switch choice.FinishReason {
	case openai.FinishReasonContentFilter:
		return nil, ErrContentBlocked
	case openai.FinishReasonLength:
		return nil, &ErrMaxTokensExceeded{Content: raw}
	}
	if err := validateResponse(req.Schema, raw); err != nil {
		return nil, err
	}
	return &Response{
		Content:      raw,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *OpenAIProvider) ModelID() string {
	return p.model
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &ErrRateLimit{Err: err}
		case apiErr.HTTPStatusCode >= 500:
			return &ErrProviderUnavailable{Err: err}
		case apiErr.Code == "content_filter":
			return ErrContentBlocked
		}
		return fmt.Errorf("LLM API call: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ErrProviderUnavailable{Err: err}
}
