// Package report aggregates a learner's attempt history into the numbers
// shown on the performance report: overall average, per-topic percentages
// and the strength/weakness split.
package report

import (
	"sort"
	"time"

	"github.com/pavelanni/exambank/internal/model"
)

// Classification thresholds, in percent.
const (
	StrengthThreshold = 75.0
	WeaknessThreshold = 50.0
)

// Class labels a topic by aggregated percentage.
type Class string

const (
	ClassStrength Class = "strength"
	ClassWeakness Class = "weakness"
	ClassNeither  Class = "neither"
)

// Classify returns the class for a percentage: >= 75 is a strength, < 50 a
// weakness, anything in between neither.
func Classify(pct float64) Class {
	switch {
	case pct >= StrengthThreshold:
		return ClassStrength
	case pct < WeaknessThreshold:
		return ClassWeakness
	default:
		return ClassNeither
	}
}

// TopicStat is one row of the per-topic breakdown.
type TopicStat struct {
	Topic      string  `json:"topic"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Class      Class   `json:"class"`
}

// HistoryRow is one attempt as shown in the report's history table.
type HistoryRow struct {
	AttemptID  int64     `json:"attempt_id"`
	Date       time.Time `json:"date"`
	Score      int       `json:"score"`
	TotalMarks int       `json:"total_marks"`
	Percentage float64   `json:"percentage"`
}

// Report summarizes a learner's history.
type Report struct {
	TotalExams   int          `json:"total_exams"`
	AverageScore float64      `json:"average_score"`
	Topics       []TopicStat  `json:"topics"`
	Strengths    []string     `json:"strengths"`
	Weaknesses   []string     `json:"weaknesses"`
	History      []HistoryRow `json:"history"`
}

// Summarize aggregates attempts. It never fails: an empty history yields a
// zero report with empty, non-nil slices.
//
// The average is sum(scores)/sum(totals)*100, so long exams weigh more than
// short ones. Topics are sorted by descending percentage; equal percentages
// keep the order in which the topic was first seen.
func Summarize(history []model.Attempt) Report {
	r := Report{
		TotalExams: len(history),
		Topics:     []TopicStat{},
		Strengths:  []string{},
		Weaknesses: []string{},
		History:    make([]HistoryRow, 0, len(history)),
	}

	var score, total int
	idx := make(map[string]int)
	var topics []TopicStat
	for _, a := range history {
		score += a.Score
		total += a.TotalMarks
		for _, tt := range a.TopicPerformance {
			i, ok := idx[tt.Topic]
			if !ok {
				i = len(topics)
				idx[tt.Topic] = i
				topics = append(topics, TopicStat{Topic: tt.Topic})
			}
			topics[i].Correct += tt.Correct
			topics[i].Total += tt.Total
		}
		r.History = append(r.History, HistoryRow{
			AttemptID:  a.ID,
			Date:       a.TakenAt,
			Score:      a.Score,
			TotalMarks: a.TotalMarks,
			Percentage: model.Percentage(a.Score, a.TotalMarks),
		})
	}
	r.AverageScore = model.Percentage(score, total)

	for _, t := range topics {
		if t.Total == 0 {
			continue
		}
		t.Percentage = model.Percentage(t.Correct, t.Total)
		t.Class = Classify(t.Percentage)
		r.Topics = append(r.Topics, t)
	}
	sort.SliceStable(r.Topics, func(i, j int) bool {
		return r.Topics[i].Percentage > r.Topics[j].Percentage
	})
	for _, t := range r.Topics {
		switch t.Class {
		case ClassStrength:
			r.Strengths = append(r.Strengths, t.Topic)
		case ClassWeakness:
			r.Weaknesses = append(r.Weaknesses, t.Topic)
		}
	}

	// Newest first; attempts arrive in chronological order.
	sort.SliceStable(r.History, func(i, j int) bool {
		return r.History[i].Date.After(r.History[j].Date)
	})
	return r
}
