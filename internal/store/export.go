package store

import (
	"fmt"

	"github.com/pavelanni/exambank/internal/model"
)

// ExportAllAttempts groups every student's attempt history for export.
// Students without attempts are included with an empty history.
func (s *Store) ExportAllAttempts() ([]model.LearnerResult, error) {
	students, err := s.ListUsersByRole(model.UserRoleStudent)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	attempts, err := s.ListAllAttempts()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	byLearner := make(map[int64][]model.Attempt)
	for _, a := range attempts {
		byLearner[a.LearnerID] = append(byLearner[a.LearnerID], a)
	}

	results := make([]model.LearnerResult, 0, len(students))
	for _, u := range students {
		history := byLearner[u.ID]
		if history == nil {
			history = []model.Attempt{}
		}
		results = append(results, model.LearnerResult{
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Class:       u.Class,
			TotalExams:  len(history),
			Attempts:    history,
		})
	}
	return results, nil
}
