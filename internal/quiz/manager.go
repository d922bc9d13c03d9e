package quiz

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/exambank/internal/model"
)

// StateStore persists session state between requests and restarts. It is
// the source of truth: several Managers may share one store.
type StateStore interface {
	SaveSessionState(ctx context.Context, st State) error
	// LoadSessionState returns nil, nil when the session is unknown.
	LoadSessionState(ctx context.Context, id string) (*State, error)
	DeleteSessionState(ctx context.Context, id string) error
	// ActiveSessionID returns the learner's current session id or "".
	ActiveSessionID(ctx context.Context, learnerID int64) (string, error)
	// PurgeSessionStates removes states not updated since cutoff.
	PurgeSessionStates(ctx context.Context, cutoff time.Time) (int, error)
	// ClaimSubmit atomically marks the session as being submitted. It
	// reports false when the session was already claimed.
	ClaimSubmit(ctx context.Context, id string) (bool, error)
	// ReleaseSubmit drops a claim whose attempt could not be stored.
	ReleaseSubmit(ctx context.Context, id string) error
}

// HistoryStore appends submitted attempts to a learner's history.
type HistoryStore interface {
	AppendAttempt(a model.Attempt) (int64, error)
}

const lockStripes = 64

// Manager runs sessions on top of a StateStore. Each session belongs to
// exactly one learner, and a learner has at most one current session.
// Every call reloads the session from the store.
type Manager struct {
	locks   [lockStripes]sync.Mutex
	states  StateStore
	history HistoryStore
	now     func() time.Time
}

// NewManager creates a session manager.
func NewManager(states StateStore, history HistoryStore) *Manager {
	return &Manager{
		states:  states,
		history: history,
		now:     time.Now,
	}
}

// lock serialises calls on one session within this process.
func (m *Manager) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &m.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Start begins a new session for the learner, replacing any current one.
func (m *Manager) Start(ctx context.Context, learnerID int64, questions []model.Question, opts ...Option) (*Session, error) {
	if prev, err := m.states.ActiveSessionID(ctx, learnerID); err != nil {
		return nil, fmt.Errorf("look up current session: %w", err)
	} else if prev != "" {
		m.discard(ctx, prev)
	}

	opts = append([]Option{WithClock(m.now)}, opts...)
	opts = append(opts, WithLearner(learnerID))
	s := Start(questions, opts...)

	if err := m.states.SaveSessionState(ctx, s.State()); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	slog.Info("quiz session started", "session_id", s.ID(), "learner_id", learnerID, "questions", len(questions))
	return s, nil
}

// Current returns the learner's current session, or nil if there is none.
func (m *Manager) Current(ctx context.Context, learnerID int64) (*Session, error) {
	id, err := m.states.ActiveSessionID(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("look up current session: %w", err)
	}
	if id == "" {
		return nil, nil
	}
	s, err := m.Get(ctx, id, learnerID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// Get returns a snapshot of a session owned by learnerID.
func (m *Manager) Get(ctx context.Context, id string, learnerID int64) (*Session, error) {
	st, err := m.states.LoadSessionState(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if st == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if st.LearnerID != learnerID {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotOwner)
	}
	return Restore(*st, WithClock(m.now))
}

// RecordAnswer records an answer and persists the session.
func (m *Manager) RecordAnswer(ctx context.Context, id string, learnerID int64, questionID string, option int) error {
	return m.RecordAnswers(ctx, id, learnerID, map[string]int{questionID: option})
}

// RecordAnswers records a batch of answers and persists the session once.
// Nothing is stored if any answer is invalid.
func (m *Manager) RecordAnswers(ctx context.Context, id string, learnerID int64, answers map[string]int) error {
	unlock := m.lock(id)
	defer unlock()

	s, err := m.Get(ctx, id, learnerID)
	if err != nil {
		return err
	}
	if s.Phase() == PhaseSubmitted || len(answers) == 0 {
		return nil
	}
	if err := s.RecordAnswers(answers); err != nil {
		return err
	}
	return m.states.SaveSessionState(ctx, s.State())
}

// Submit scores the session and appends the attempt to the learner's
// history. The store's submit claim makes this happen at most once per
// session, across every Manager sharing the store; later calls return the
// stored attempt with ErrAlreadySubmitted.
func (m *Manager) Submit(ctx context.Context, id string, learnerID int64) (model.Attempt, error) {
	unlock := m.lock(id)
	defer unlock()

	s, err := m.Get(ctx, id, learnerID)
	if err != nil {
		return model.Attempt{}, err
	}
	if s.Phase() == PhaseSubmitted {
		return s.Submit()
	}

	claimed, err := m.states.ClaimSubmit(ctx, id)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("claim session %s: %w", id, err)
	}
	if !claimed {
		// Another instance is submitting; return its attempt if it is stored.
		if s, err := m.Get(ctx, id, learnerID); err == nil && s.Phase() == PhaseSubmitted {
			return s.Submit()
		}
		return model.Attempt{}, fmt.Errorf("submit session %s: %w", id, ErrAlreadySubmitted)
	}

	a, err := s.Submit()
	if err != nil {
		return a, err
	}
	attemptID, err := m.history.AppendAttempt(a)
	if err != nil {
		if rerr := m.states.ReleaseSubmit(ctx, id); rerr != nil {
			slog.Error("failed to release submit claim", "session_id", id, "error", rerr)
		}
		return model.Attempt{}, fmt.Errorf("append attempt: %w", err)
	}
	a = s.setAttemptID(attemptID)

	if err := m.states.SaveSessionState(ctx, s.State()); err != nil {
		slog.Error("failed to save submitted session", "session_id", id, "error", err)
	}
	slog.Info("quiz submitted",
		"session_id", id,
		"learner_id", learnerID,
		"score", a.Score,
		"total_marks", a.TotalMarks,
	)
	return a, nil
}

// Retake discards the session and starts a new one over questions.
func (m *Manager) Retake(ctx context.Context, id string, learnerID int64, questions []model.Question, opts ...Option) (*Session, error) {
	if _, err := m.Get(ctx, id, learnerID); err != nil {
		return nil, err
	}
	m.discard(ctx, id)
	return m.Start(ctx, learnerID, questions, opts...)
}

// EvictIdle drops sessions that have not changed for maxAge.
func (m *Manager) EvictIdle(ctx context.Context, maxAge time.Duration) (int, error) {
	n, err := m.states.PurgeSessionStates(ctx, m.now().Add(-maxAge))
	if err != nil {
		return n, fmt.Errorf("purge session states: %w", err)
	}
	return n, nil
}

func (m *Manager) discard(ctx context.Context, id string) {
	if err := m.states.DeleteSessionState(ctx, id); err != nil {
		slog.Warn("failed to delete session state", "session_id", id, "error", err)
	}
}
