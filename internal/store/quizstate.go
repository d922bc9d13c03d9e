package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/exambank/internal/quiz"
)

// SaveSessionState upserts a serialized quiz session. Once a submission is
// claimed, only the submitted state may overwrite the row.
func (s *Store) SaveSessionState(ctx context.Context, st quiz.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", st.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_session_states (id, learner_id, state, phase, started_unix, updated_unix)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, phase = excluded.phase,
		 	updated_unix = excluded.updated_unix
		 WHERE quiz_session_states.submit_claimed = 0 OR excluded.phase = ?`,
		st.ID, st.LearnerID, string(data), string(st.Phase), st.StartedAt.UnixNano(), st.UpdatedAt.UnixNano(),
		string(quiz.PhaseSubmitted),
	)
	return err
}

// ClaimSubmit marks the session as being submitted. It reports false if the
// session is unknown or already claimed.
func (s *Store) ClaimSubmit(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_session_states SET submit_claimed = 1 WHERE id = ? AND submit_claimed = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseSubmit clears the submit claim.
func (s *Store) ReleaseSubmit(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE quiz_session_states SET submit_claimed = 0 WHERE id = ?`, id)
	return err
}

// LoadSessionState returns a saved session, or nil if it does not exist.
func (s *Store) LoadSessionState(ctx context.Context, id string) (*quiz.State, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM quiz_session_states WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st quiz.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &st, nil
}

// DeleteSessionState removes a saved session.
func (s *Store) DeleteSessionState(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quiz_session_states WHERE id = ?`, id)
	return err
}

// ActiveSessionID returns the learner's most recently started session, or "".
func (s *Store) ActiveSessionID(ctx context.Context, learnerID int64) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM quiz_session_states WHERE learner_id = ? ORDER BY started_unix DESC LIMIT 1`,
		learnerID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// PurgeSessionStates deletes sessions not updated since cutoff.
func (s *Store) PurgeSessionStates(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM quiz_session_states WHERE updated_unix < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
