package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/exambank/internal/model"
)

const attemptColumns = `id, learner_id, session_id, taken_at, score, total_marks, topic_performance, responses`

// AppendAttempt adds a submitted attempt to the learner's history. A second
// attempt for the same quiz session is rejected by the unique index.
func (s *Store) AppendAttempt(a model.Attempt) (int64, error) {
	topics, err := json.Marshal(a.TopicPerformance)
	if err != nil {
		return 0, fmt.Errorf("encode topic performance: %w", err)
	}
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return 0, fmt.Errorf("encode responses: %w", err)
	}
	var sessionID sql.NullString
	if a.SessionID != "" {
		sessionID = sql.NullString{String: a.SessionID, Valid: true}
	}
	res, err := s.db.Exec(
		`INSERT INTO attempts (learner_id, session_id, taken_at, score, total_marks, topic_performance, responses)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.LearnerID, sessionID, a.TakenAt, a.Score, a.TotalMarks, string(topics), string(responses),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAttempts returns a learner's attempts in chronological order.
func (s *Store) ListAttempts(learnerID int64) ([]model.Attempt, error) {
	return s.queryAttempts(`SELECT `+attemptColumns+` FROM attempts WHERE learner_id = ? ORDER BY id`, learnerID)
}

// ListAllAttempts returns every attempt in insertion order.
func (s *Store) ListAllAttempts() ([]model.Attempt, error) {
	return s.queryAttempts(`SELECT ` + attemptColumns + ` FROM attempts ORDER BY id`)
}

func (s *Store) queryAttempts(query string, args ...any) ([]model.Attempt, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	attempts := []model.Attempt{}
	for rows.Next() {
		var (
			a                 model.Attempt
			sessionID         sql.NullString
			topics, responses string
		)
		if err := rows.Scan(&a.ID, &a.LearnerID, &sessionID, &a.TakenAt, &a.Score, &a.TotalMarks, &topics, &responses); err != nil {
			return nil, err
		}
		a.SessionID = sessionID.String
		if err := json.Unmarshal([]byte(topics), &a.TopicPerformance); err != nil {
			return nil, fmt.Errorf("decode topic performance of attempt %d: %w", a.ID, err)
		}
		if err := json.Unmarshal([]byte(responses), &a.Responses); err != nil {
			return nil, fmt.Errorf("decode responses of attempt %d: %w", a.ID, err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
