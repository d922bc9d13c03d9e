package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/exambank/internal/catalog"
	"github.com/pavelanni/exambank/internal/llm/prompts"
	"github.com/pavelanni/exambank/internal/model"
)

// ErrInvalidRequest is returned before any provider call when the
// generation parameters are unusable.
var ErrInvalidRequest = errors.New("invalid generation request")

// Sampling temperatures per operation.
const (
	tempQuestion  = 0.5
	tempExamPaper = 0.7
	tempExtract   = 0.2
	tempWorksheet = 0.6
)

// GeneratorConfig tunes a Generator. Zero values take defaults.
type GeneratorConfig struct {
	Timeout   time.Duration
	MaxTokens int
	// Level is the learner level written into prompts, e.g. "A1-level".
	Level string
}

// Generator drafts candidate questions with an LLM. Its output is validated
// but not stored; callers hand it to the catalog for teacher approval.
type Generator struct {
	provider  Provider
	timeout   time.Duration
	maxTokens int
	level     string
}

// NewGenerator loads the prompt templates and returns a Generator using p.
func NewGenerator(p Provider, cfg GeneratorConfig) (*Generator, error) {
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	g := &Generator{
		provider:  p,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
		level:     cfg.Level,
	}
	if g.timeout <= 0 {
		g.timeout = 2 * time.Minute
	}
	if g.maxTokens <= 0 {
		g.maxTokens = 8192
	}
	if g.level == "" {
		g.level = prompts.DefaultLevel
	}
	return g, nil
}

// ModelID reports the model behind the generator.
func (g *Generator) ModelID() string { return g.provider.ModelID() }

// GenerateQuestion drafts one multiple-choice question on topic, optionally
// grounded on doc. The difficulty is always medium.
func (g *Generator) GenerateQuestion(ctx context.Context, topic string, doc *Document) (model.Question, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return model.Question{}, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	qs, err := g.run(ctx, "generate_question", prompts.KindQuestion,
		prompts.Data{Topic: topic, HasDocument: doc != nil}, doc, tempQuestion, model.DifficultyMedium)
	if err != nil {
		return model.Question{}, err
	}
	if len(qs) != 1 {
		return model.Question{}, &ErrInvalidResponse{Err: fmt.Errorf("expected 1 question, got %d", len(qs))}
	}
	if qs[0].Type != model.TypeMultipleChoice {
		return model.Question{}, &ErrInvalidResponse{Err: fmt.Errorf("expected a multiple-choice question, got %s", qs[0].Type)}
	}
	return qs[0], nil
}

// PaperRequest describes an exam paper to generate from a document.
type PaperRequest struct {
	Subject    string
	Document   *Document
	Count      int
	MCQCount   int
	Difficulty model.Difficulty
}

func (r PaperRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	case r.Document == nil:
		return fmt.Errorf("%w: a source document is required", ErrInvalidRequest)
	case r.Count < 1:
		return fmt.Errorf("%w: question count must be positive", ErrInvalidRequest)
	case r.MCQCount < 0 || r.MCQCount > r.Count:
		return fmt.Errorf("%w: multiple-choice count must be between 0 and %d", ErrInvalidRequest, r.Count)
	}
	switch r.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		return nil
	}
	return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidRequest, r.Difficulty)
}

// GenerateExamPaper drafts a paper on req.Subject. The requested
// difficulty is applied to every question.
func (g *Generator) GenerateExamPaper(ctx context.Context, req PaperRequest) ([]model.Question, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return g.run(ctx, "generate_exam_paper", prompts.KindExamPaper, prompts.Data{
		Subject:     req.Subject,
		Count:       req.Count,
		MCQCount:    req.MCQCount,
		OtherCount:  req.Count - req.MCQCount,
		Difficulty:  string(req.Difficulty),
		HasDocument: true,
	}, req.Document, tempExamPaper, req.Difficulty)
}

// ExtractQuestions parses the questions of an existing paper.
func (g *Generator) ExtractQuestions(ctx context.Context, doc *Document) ([]model.Question, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: a source document is required", ErrInvalidRequest)
	}
	return g.run(ctx, "extract_questions", prompts.KindExtract,
		prompts.Data{HasDocument: true}, doc, tempExtract, model.DifficultyMedium)
}

// GenerateWorksheet drafts count mixed questions from doc.
func (g *Generator) GenerateWorksheet(ctx context.Context, doc *Document, count int) ([]model.Question, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: a source document is required", ErrInvalidRequest)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: question count must be positive", ErrInvalidRequest)
	}
	return g.run(ctx, "generate_worksheet", prompts.KindWorksheet,
		prompts.Data{Count: count, HasDocument: true}, doc, tempWorksheet, model.DifficultyMedium)
}

func (g *Generator) run(ctx context.Context, purpose string, kind prompts.Kind, data prompts.Data,
	doc *Document, temperature float64, difficulty model.Difficulty) ([]model.Question, error) {
	system, err := prompts.System(g.level)
	if err != nil {
		return nil, err
	}
	data.Level = g.level
	prompt, err := prompts.Build(kind, data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(WithPurpose(ctx, purpose), g.timeout)
	defer cancel()
	resp, err := g.provider.Generate(ctx, Request{
		System:      system,
		Prompt:      prompt,
		Document:    doc,
		Schema:      QuestionSetSchema,
		MaxTokens:   g.maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}

	qs, err := decodeQuestions(resp.Content, difficulty)
	if err != nil {
		return nil, err
	}
	if err := catalog.ValidateBatch(qs); err != nil {
		return nil, fmt.Errorf("generated questions rejected: %w", err)
	}
	return qs, nil
}

type generatedQuestion struct {
	Stem               string   `json:"stem"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
	Explanation        string   `json:"explanation"`
	Topic              string   `json:"topic"`
	Marks              int      `json:"marks"`
	Type               string   `json:"type"`
}

func decodeQuestions(raw json.RawMessage, difficulty model.Difficulty) ([]model.Question, error) {
	var payload struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ErrInvalidResponse{Content: raw, Err: err}
	}
	if len(payload.Questions) == 0 {
		return nil, &ErrInvalidResponse{Content: raw, Err: errors.New("response contained no questions")}
	}
	qs := make([]model.Question, len(payload.Questions))
	for i, gq := range payload.Questions {
		qs[i] = model.Question{
			Stem:               gq.Stem,
			Options:            gq.Options,
			CorrectAnswerIndex: gq.CorrectAnswerIndex,
			Explanation:        gq.Explanation,
			Type:               catalog.ParseType(gq.Type),
			Difficulty:         difficulty,
			Marks:              gq.Marks,
			Topic:              gq.Topic,
			AIGenerated:        true,
		}
	}
	return qs, nil
}
