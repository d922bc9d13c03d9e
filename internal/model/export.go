package model

import "time"

// HistoryExport is the top-level JSON structure for attempt history export.
type HistoryExport struct {
	ExamID     string          `json:"exam_id"`
	Subject    string          `json:"subject"`
	ExportedAt time.Time       `json:"exported_at"`
	Learners   []LearnerResult `json:"learners"`
}

// LearnerResult holds one learner's attempt history for export.
type LearnerResult struct {
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Class        string    `json:"class,omitempty"`
	TotalExams   int       `json:"total_exams"`
	AverageScore float64   `json:"average_score"`
	Strengths    []string  `json:"strengths"`
	Weaknesses   []string  `json:"weaknesses"`
	Attempts     []Attempt `json:"attempts"`
}
