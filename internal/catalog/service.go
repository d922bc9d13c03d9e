// Package catalog is the question bank: it validates questions before they
// enter the catalog and serves the approved set to quizzes.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/exambank/internal/model"
)

// ErrNotFound is returned when a question id is unknown.
var ErrNotFound = errors.New("question not found")

// Repository is the storage capability the catalog needs.
type Repository interface {
	ListQuestions() ([]model.Question, error)
	// GetQuestion returns nil, nil when the question does not exist.
	GetQuestion(id string) (*model.Question, error)
	// InsertQuestions stores a batch atomically.
	InsertQuestions(qs []model.Question) error
	UpdateQuestion(q model.Question) error
	DeleteQuestion(id string) error
}

// ImportLedger remembers which files were already imported.
type ImportLedger interface {
	GetImportedFileHash(path string) (string, error)
	SetImportedFileHash(path, hash string) error
}

// Service implements catalog operations over a Repository.
type Service struct {
	repo    Repository
	imports ImportLedger
	now     func() time.Time
}

// NewService creates a catalog service. imports may be nil when file
// imports are not used.
func NewService(repo Repository, imports ImportLedger) *Service {
	return &Service{repo: repo, imports: imports, now: time.Now}
}

// All returns every question, newest first.
func (s *Service) All() ([]model.Question, error) {
	qs, err := s.repo.ListQuestions()
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].CreatedAt.After(qs[j].CreatedAt) })
	return qs, nil
}

// Approved returns the questions a quiz may use.
func (s *Service) Approved() ([]model.Question, error) {
	qs, err := s.All()
	if err != nil {
		return nil, err
	}
	out := make([]model.Question, 0, len(qs))
	for _, q := range qs {
		if q.Approved {
			out = append(out, q)
		}
	}
	return out, nil
}

// ListByType returns questions of type t; an empty t returns all.
func (s *Service) ListByType(t model.QuestionType) ([]model.Question, error) {
	qs, err := s.All()
	if err != nil || t == "" {
		return qs, err
	}
	out := make([]model.Question, 0, len(qs))
	for _, q := range qs {
		if q.Type == t {
			out = append(out, q)
		}
	}
	return out, nil
}

// TopicGroup is a set of questions sharing a topic.
type TopicGroup struct {
	Topic     string
	Questions []model.Question
}

// ByTopic groups questions by topic, topics sorted by name.
func ByTopic(qs []model.Question) []TopicGroup {
	idx := make(map[string]int)
	var groups []TopicGroup
	for _, q := range qs {
		i, ok := idx[q.Topic]
		if !ok {
			i = len(groups)
			idx[q.Topic] = i
			groups = append(groups, TopicGroup{Topic: q.Topic})
		}
		groups[i].Questions = append(groups[i].Questions, q)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Topic < groups[j].Topic })
	return groups
}

// Get returns one question.
func (s *Service) Get(id string) (model.Question, error) {
	q, err := s.repo.GetQuestion(id)
	if err != nil {
		return model.Question{}, fmt.Errorf("get question %s: %w", id, err)
	}
	if q == nil {
		return model.Question{}, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return *q, nil
}

// Create validates and stores a teacher-authored question.
func (s *Service) Create(q model.Question) (model.Question, error) {
	if err := Validate(q); err != nil {
		return model.Question{}, err
	}
	q.ID = uuid.NewString()
	q.CreatedAt = s.now().UTC()
	if err := s.repo.InsertQuestions([]model.Question{q}); err != nil {
		return model.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

// AddGenerated stores a batch produced by the generator. The batch is
// validated as a whole first; new entries are marked AI-generated and await
// approval.
func (s *Service) AddGenerated(qs []model.Question) ([]model.Question, error) {
	if err := ValidateBatch(qs); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]model.Question, 0, len(qs))
	for _, q := range qs {
		q.ID = uuid.NewString()
		q.CreatedAt = now
		q.AIGenerated = true
		q.Approved = false
		out = append(out, q)
	}
	if err := s.repo.InsertQuestions(out); err != nil {
		return nil, fmt.Errorf("insert generated questions: %w", err)
	}
	slog.Info("added generated questions", "count", len(out))
	return out, nil
}

// SetApproved marks a question as approved or pending.
func (s *Service) SetApproved(id string, approved bool) error {
	q, err := s.Get(id)
	if err != nil {
		return err
	}
	q.Approved = approved
	return s.repo.UpdateQuestion(q)
}

// Update replaces an existing question's content. Identity, creation time
// and provenance are kept from the stored copy.
func (s *Service) Update(q model.Question) (model.Question, error) {
	cur, err := s.Get(q.ID)
	if err != nil {
		return model.Question{}, err
	}
	q.CreatedAt = cur.CreatedAt
	q.AIGenerated = cur.AIGenerated
	if err := Validate(q); err != nil {
		return model.Question{}, err
	}
	if err := s.repo.UpdateQuestion(q); err != nil {
		return model.Question{}, fmt.Errorf("update question %s: %w", q.ID, err)
	}
	return q, nil
}

// Delete removes a question.
func (s *Service) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.repo.DeleteQuestion(id); err != nil {
		return fmt.Errorf("delete question %s: %w", id, err)
	}
	return nil
}

// Seed inserts the sample questions when the catalog is empty.
func (s *Service) Seed() error {
	qs, err := s.repo.ListQuestions()
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(qs) > 0 {
		return nil
	}
	if err := s.repo.InsertQuestions(sampleQuestions()); err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	slog.Info("seeded sample questions", "count", len(sampleQuestions()))
	return nil
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{
			ID:                 "q-1",
			CreatedAt:          time.Date(2023, 10, 26, 10, 0, 0, 0, time.UTC),
			Stem:               "What is the capital of France?",
			Options:            []string{"London", "Berlin", "Paris", "Madrid"},
			CorrectAnswerIndex: 2,
			Explanation:        "Paris is the capital and most populous city of France.",
			Type:               model.TypeMultipleChoice,
			Difficulty:         model.DifficultyEasy,
			Marks:              1,
			Topic:              "World Geography",
			Approved:           true,
		},
		{
			ID:                 "q-2",
			CreatedAt:          time.Date(2023, 10, 26, 10, 5, 0, 0, time.UTC),
			Stem:               "The sun rises in the west.",
			Options:            []string{"True", "False"},
			CorrectAnswerIndex: 1,
			Explanation:        "The sun rises in the east due to the Earth's rotation.",
			Type:               model.TypeTrueFalse,
			Difficulty:         model.DifficultyEasy,
			Marks:              1,
			Topic:              "Basic Science",
			Approved:           true,
		},
	}
}
