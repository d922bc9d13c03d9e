// Package quiz runs exam-taking sessions: it shuffles the approved question
// set, records answers and scores the attempt on submission.
package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/exambank/internal/model"
)

var (
	// ErrInvalidInput is returned for unknown questions or out-of-range options.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadySubmitted is returned when a session is submitted twice.
	ErrAlreadySubmitted = errors.New("session already submitted")
	// ErrNotFound is returned when a session id is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrNotOwner is returned when a learner touches another learner's session.
	ErrNotOwner = errors.New("session belongs to another learner")
)

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitted  Phase = "submitted"
)

// Session is the transient state of one quiz attempt. All methods are safe
// for concurrent use; a mutex serialises access to answers and phase.
type Session struct {
	mu        sync.Mutex
	id        string
	learnerID int64
	questions []model.Question
	answers   map[string]int
	phase     Phase
	startedAt time.Time
	updatedAt time.Time
	attempt   *model.Attempt
	now       func() time.Time
}

type options struct {
	rng       *rand.Rand
	learnerID int64
	limit     int
	now       func() time.Time
}

// Option configures a new session.
type Option func(*options)

// WithRand sets the random source used for shuffling. Tests pass a seeded
// source; by default the global math/rand/v2 source is used.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithLearner binds the session to a learner.
func WithLearner(id int64) Option {
	return func(o *options) { o.learnerID = id }
}

// WithLimit keeps only the first n questions of the permutation, giving a
// random subset of the catalog. n <= 0 keeps all.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Start creates a session over a uniformly random permutation of questions.
// The input slice is left untouched. An empty input yields a session with no
// questions whose submission scores 0 out of 0.
func Start(questions []model.Question, opts ...Option) *Session {
	o := buildOptions(opts)
	now := o.now()
	shuffled := Shuffle(questions, o.rng)
	if o.limit > 0 && o.limit < len(shuffled) {
		shuffled = shuffled[:o.limit]
	}
	return &Session{
		id:        uuid.NewString(),
		learnerID: o.learnerID,
		questions: shuffled,
		answers:   make(map[string]int),
		phase:     PhaseInProgress,
		startedAt: now,
		updatedAt: now,
		now:       o.now,
	}
}

// Retake discards any previous session and starts a fresh one with a new
// permutation of the (possibly updated) question set.
func Retake(questions []model.Question, opts ...Option) *Session {
	return Start(questions, opts...)
}

// Shuffle returns a Fisher-Yates permutation of qs. For i from the last
// index down to 1 it swaps element i with a uniformly chosen j in [0, i].
func Shuffle(qs []model.Question, rng *rand.Rand) []model.Question {
	out := make([]model.Question, len(qs))
	copy(out, qs)
	for i := len(out) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LearnerID returns the owning learner.
func (s *Session) LearnerID() int64 { return s.learnerID }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// UpdatedAt returns the time of the last recorded change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Questions returns the questions in session order.
func (s *Session) Questions() []model.Question {
	out := make([]model.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Answer returns the selected option for a question, if any.
func (s *Session) Answer(questionID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.answers[questionID]
	return v, ok
}

// AnsweredCount returns how many questions have a recorded answer.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// TotalMarks returns the marks available in this session.
func (s *Session) TotalMarks() int {
	total := 0
	for _, q := range s.questions {
		total += q.Marks
	}
	return total
}

// Attempt returns the attempt produced at submission, or nil while the
// session is still in progress.
func (s *Session) Attempt() *model.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return nil
	}
	a := cloneAttempt(*s.attempt)
	return &a
}

// RecordAnswer sets or overwrites the selected option for a question.
// After submission it does nothing. Unknown questions and out-of-range
// options fail with ErrInvalidInput and leave the session unchanged.
func (s *Session) RecordAnswer(questionID string, optionIndex int) error {
	return s.RecordAnswers(map[string]int{questionID: optionIndex})
}

// RecordAnswers records several answers at once. Every answer is checked
// before any is stored, so one bad entry leaves the session unchanged.
func (s *Session) RecordAnswers(answers map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseSubmitted {
		return nil
	}
	for questionID, optionIndex := range answers {
		q, ok := s.find(questionID)
		if !ok {
			return fmt.Errorf("%w: unknown question %q", ErrInvalidInput, questionID)
		}
		if optionIndex < 0 || optionIndex >= len(q.Options) {
			return fmt.Errorf("%w: option %d out of range for question %q (%d options)",
				ErrInvalidInput, optionIndex, questionID, len(q.Options))
		}
	}
	if len(answers) == 0 {
		return nil
	}
	for questionID, optionIndex := range answers {
		s.answers[questionID] = optionIndex
	}
	s.updatedAt = s.now()
	return nil
}

// Submit closes the session and scores it. The phase moves from in-progress
// to submitted exactly once; a second call returns the original attempt
// together with ErrAlreadySubmitted.
func (s *Session) Submit() (model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseSubmitted {
		var a model.Attempt
		if s.attempt != nil {
			a = cloneAttempt(*s.attempt)
		}
		return a, fmt.Errorf("submit session %s: %w", s.id, ErrAlreadySubmitted)
	}

	a := Score(s.questions, s.answers)
	a.SessionID = s.id
	a.LearnerID = s.learnerID
	a.TakenAt = s.now().UTC()

	s.phase = PhaseSubmitted
	s.attempt = &a
	s.updatedAt = a.TakenAt
	return cloneAttempt(a), nil
}

// setAttemptID records the history row of the submitted attempt and
// returns a copy of it.
func (s *Session) setAttemptID(id int64) model.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return model.Attempt{}
	}
	s.attempt.ID = id
	return cloneAttempt(*s.attempt)
}

func (s *Session) find(questionID string) (model.Question, bool) {
	for _, q := range s.questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return model.Question{}, false
}

// Score computes an attempt from questions and recorded answers. Unanswered
// questions count as incorrect. Topic tallies follow the first-encountered
// order of topics in questions.
func Score(questions []model.Question, answers map[string]int) model.Attempt {
	a := model.Attempt{
		TopicPerformance: make([]model.TopicTally, 0),
		Responses:        make([]model.Response, 0, len(questions)),
	}
	topicIdx := make(map[string]int)

	for _, q := range questions {
		idx, seen := topicIdx[q.Topic]
		if !seen {
			idx = len(a.TopicPerformance)
			topicIdx[q.Topic] = idx
			a.TopicPerformance = append(a.TopicPerformance, model.TopicTally{Topic: q.Topic})
		}
		a.TopicPerformance[idx].Total++
		a.TotalMarks += q.Marks

		resp := model.Response{QuestionID: q.ID, Marks: q.Marks}
		if sel, ok := answers[q.ID]; ok {
			resp.Selected = &sel
			if sel == q.CorrectAnswerIndex {
				resp.Correct = true
				a.Score += q.Marks
				a.TopicPerformance[idx].Correct++
			}
		}
		a.Responses = append(a.Responses, resp)
	}
	return a
}

func cloneAttempt(a model.Attempt) model.Attempt {
	out := a
	out.TopicPerformance = append(make([]model.TopicTally, 0, len(a.TopicPerformance)), a.TopicPerformance...)
	if a.Responses != nil {
		out.Responses = make([]model.Response, len(a.Responses))
		for i, r := range a.Responses {
			out.Responses[i] = r
			if r.Selected != nil {
				v := *r.Selected
				out.Responses[i].Selected = &v
			}
		}
	}
	return out
}
