package report

import "github.com/pavelanni/exambank/internal/model"

// ItemStat is the per-question analytics row: how often a question was
// answered, how often correctly, and its p-value (share answered correctly).
// A high p-value means an easy item.
type ItemStat struct {
	QuestionID string  `json:"question_id"`
	Attempts   int     `json:"attempts"`
	Correct    int     `json:"correct"`
	PValue     float64 `json:"p_value"`
}

// ItemStats computes item statistics from recorded responses. Unanswered
// responses count as attempts. Rows follow first-encountered question order.
func ItemStats(attempts []model.Attempt) []ItemStat {
	idx := make(map[string]int)
	stats := []ItemStat{}
	for _, a := range attempts {
		for _, r := range a.Responses {
			i, ok := idx[r.QuestionID]
			if !ok {
				i = len(stats)
				idx[r.QuestionID] = i
				stats = append(stats, ItemStat{QuestionID: r.QuestionID})
			}
			stats[i].Attempts++
			if r.Correct {
				stats[i].Correct++
			}
		}
	}
	for i := range stats {
		stats[i].PValue = float64(stats[i].Correct) / float64(stats[i].Attempts)
	}
	return stats
}
