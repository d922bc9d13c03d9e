package quiz

import (
	"fmt"
	"time"

	"github.com/pavelanni/exambank/internal/model"
)

// State is the serializable form of a Session. Questions are stored in
// session order so a restored session does not depend on later catalog edits.
type State struct {
	ID        string           `json:"id"`
	LearnerID int64            `json:"learner_id"`
	Questions []model.Question `json:"questions"`
	Answers   map[string]int   `json:"answers"`
	Phase     Phase            `json:"phase"`
	StartedAt time.Time        `json:"started_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Attempt   *model.Attempt   `json:"attempt,omitempty"`
}

// State snapshots the session for persistence.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:        s.id,
		LearnerID: s.learnerID,
		Questions: make([]model.Question, len(s.questions)),
		Answers:   make(map[string]int, len(s.answers)),
		Phase:     s.phase,
		StartedAt: s.startedAt,
		UpdatedAt: s.updatedAt,
	}
	copy(st.Questions, s.questions)
	for k, v := range s.answers {
		st.Answers[k] = v
	}
	if s.attempt != nil {
		a := cloneAttempt(*s.attempt)
		st.Attempt = &a
	}
	return st
}

// Restore rebuilds a session from a saved state.
func Restore(st State, opts ...Option) (*Session, error) {
	if st.ID == "" {
		return nil, fmt.Errorf("%w: state has no session id", ErrInvalidInput)
	}
	switch st.Phase {
	case PhaseInProgress:
	case PhaseSubmitted:
		if st.Attempt == nil {
			return nil, fmt.Errorf("%w: submitted session %s has no attempt", ErrInvalidInput, st.ID)
		}
	default:
		return nil, fmt.Errorf("%w: session %s has unknown phase %q", ErrInvalidInput, st.ID, st.Phase)
	}

	o := buildOptions(opts)
	s := &Session{
		id:        st.ID,
		learnerID: st.LearnerID,
		questions: make([]model.Question, len(st.Questions)),
		answers:   make(map[string]int, len(st.Answers)),
		phase:     st.Phase,
		startedAt: st.StartedAt,
		updatedAt: st.UpdatedAt,
		now:       o.now,
	}
	copy(s.questions, st.Questions)
	for qid, opt := range st.Answers {
		q, ok := s.find(qid)
		if !ok || opt < 0 || opt >= len(q.Options) {
			return nil, fmt.Errorf("%w: session %s has a stale answer for %q", ErrInvalidInput, st.ID, qid)
		}
		s.answers[qid] = opt
	}
	if st.Attempt != nil {
		a := cloneAttempt(*st.Attempt)
		s.attempt = &a
	}
	return s, nil
}
