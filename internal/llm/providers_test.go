package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestOpenAIProvider(t *testing.T, strict bool, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	p, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:       "test-key",
		Model:        "qwen2.5:7b",
		BaseURL:      server.URL + "/v1",
		StrictSchema: strict,
	})
	require.NoError(t, err)
	return p
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "qwen2.5:7b",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var body map[string]any
	p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion(string(questionJSON(mcqJSON("q?", "t"))), "stop"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System:    "sys",
		Prompt:    "make one",
		Schema:    QuestionSetSchema,
		MaxTokens: 512,
		Document:  &Document{Name: "notes.md", MIMEType: "text/markdown", Data: []byte("# Optics")},
	})
	require.NoError(t, err)
	assert.Equal(t, 40, resp.InputTokens)
	assert.Equal(t, 25, resp.OutputTokens)

	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].(map[string]any)["content"], "# Optics")
}

func TestOpenAIStrictSchema(t *testing.T) {
	var body map[string]any
	p := newTestOpenAIProvider(t, true, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion(string(questionJSON(mcqJSON("q?", "t"))), "stop"))
	})

	_, err := p.Generate(context.Background(), Request{Prompt: "x", Schema: QuestionSetSchema})
	require.NoError(t, err)
	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "question_set", format["json_schema"].(map[string]any)["name"])
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"rate limit", http.StatusTooManyRequests, func(t *testing.T, err error) {
			var rl *ErrRateLimit
			assert.ErrorAs(t, err, &rl)
		}},
		{"server error", http.StatusBadGateway, func(t *testing.T, err error) {
			var down *ErrProviderUnavailable
			assert.ErrorAs(t, err, &down)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "nope", "type": "error"},
				})
			})
			_, err := p.Generate(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestOpenAIFinishReasons(t *testing.T) {
	tests := []struct {
		finish string
		check  func(t *testing.T, err error)
	}{
		{"content_filter", func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrContentBlocked) }},
		{"length", func(t *testing.T, err error) {
			var mt *ErrMaxTokensExceeded
			assert.ErrorAs(t, err, &mt)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.finish, func(t *testing.T) {
			p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(chatCompletion(`{"questions":[`, tt.finish))
			})
			_, err := p.Generate(context.Background(), Request{Prompt: "x", Schema: QuestionSetSchema})
			tt.check(t, err)
		})
	}
}

func TestOpenAIRejectsPDF(t *testing.T) {
	p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := p.Generate(context.Background(), Request{Prompt: "x", Document: pdfDoc()})
	assert.True(t, errors.Is(err, ErrUnsupportedDocument))
}

func TestOpenAIPing(t *testing.T) {
	p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	})
	require.NoError(t, Ping(context.Background(), WithRetry(WithLogging(p, nil), DefaultConfig().Retry)))
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(QuestionSetSchema.Definition)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"questions"}, s.Required)

	list := s.Properties["questions"]
	require.NotNil(t, list)
	assert.Equal(t, genai.TypeArray, list.Type)
	require.NotNil(t, list.MinItems)
	assert.EqualValues(t, 1, *list.MinItems)

	item := list.Items
	require.NotNil(t, item)
	assert.Equal(t, genai.TypeInteger, item.Properties["marks"].Type)
	assert.Equal(t, []string{labelMultipleChoice, labelTrueFalse, labelFillBlank}, item.Properties["type"].Enum)
	assert.EqualValues(t, 4, *item.Properties["options"].MaxItems)
	assert.Len(t, item.Required, 7)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Provider = "gemini"
	assert.Error(t, cfg.Validate())
	cfg.Gemini.APIKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.Provider = "anthropic"
	assert.Error(t, cfg.Validate())

	cfg.Provider = "mock"
	assert.NoError(t, cfg.Validate())

	cfg.Provider = "palm"
	assert.Error(t, cfg.Validate())
}

func TestNewProviderMock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "mock"
	p, err := NewProvider(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
}
