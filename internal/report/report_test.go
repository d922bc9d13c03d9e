package report

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambank/internal/model"
)

func attempt(day, score, total int, tallies ...model.TopicTally) model.Attempt {
	return model.Attempt{
		ID:               int64(day),
		TakenAt:          time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC),
		Score:            score,
		TotalMarks:       total,
		TopicPerformance: tallies,
	}
}

func tally(topic string, correct, total int) model.TopicTally {
	return model.TopicTally{Topic: topic, Correct: correct, Total: total}
}

func TestSummarizeTwoGeoAttempts(t *testing.T) {
	r := Summarize([]model.Attempt{
		attempt(1, 1, 1, tally("Geo", 1, 1)),
		attempt(2, 0, 1, tally("Geo", 0, 1)),
	})

	assert.Equal(t, 2, r.TotalExams)
	assert.InDelta(t, 50.0, r.AverageScore, 1e-9)
	require.Len(t, r.Topics, 1)
	assert.Equal(t, "Geo", r.Topics[0].Topic)
	assert.InDelta(t, 50.0, r.Topics[0].Percentage, 1e-9)
	assert.Equal(t, ClassNeither, r.Topics[0].Class)
	assert.Empty(t, r.Strengths)
	assert.Empty(t, r.Weaknesses)
}

func TestSummarizeEmpty(t *testing.T) {
	for _, history := range [][]model.Attempt{nil, {}} {
		r := Summarize(history)
		assert.Zero(t, r.TotalExams)
		assert.Zero(t, r.AverageScore)
		assert.NotNil(t, r.Topics)
		assert.Empty(t, r.Topics)
		assert.NotNil(t, r.History)
	}
}

func TestSummarizeZeroTotals(t *testing.T) {
	r := Summarize([]model.Attempt{
		attempt(1, 0, 0),
		attempt(2, 0, 0, tally("Empty", 0, 0)),
	})
	assert.Equal(t, 2, r.TotalExams)
	assert.Zero(t, r.AverageScore)
	assert.Empty(t, r.Topics, "topics with total 0 are excluded")
	require.Len(t, r.History, 2)
	assert.Zero(t, r.History[0].Percentage)
}

func TestSummarizeWeightedAverage(t *testing.T) {
	r := Summarize([]model.Attempt{
		attempt(1, 9, 10),
		attempt(2, 0, 2),
	})
	// 9/12, not the mean of 90% and 0%.
	assert.InDelta(t, 75.0, r.AverageScore, 1e-9)
}

func TestSummarizeOrderingAndClasses(t *testing.T) {
	r := Summarize([]model.Attempt{
		attempt(1, 6, 12,
			tally("Grammar", 1, 2),
			tally("Vocabulary", 3, 4),
			tally("Listening", 0, 2),
			tally("Reading", 2, 4),
		),
		attempt(2, 3, 4,
			tally("Listening", 1, 2),
			tally("Spelling", 2, 2),
		),
	})

	var got []string
	for _, ts := range r.Topics {
		got = append(got, ts.Topic)
	}
	// Spelling 100, Vocabulary 75, Grammar 50, Reading 50 (Grammar seen
	// first), Listening 25.
	assert.Equal(t, []string{"Spelling", "Vocabulary", "Grammar", "Reading", "Listening"}, got)
	assert.Equal(t, []string{"Spelling", "Vocabulary"}, r.Strengths)
	assert.Equal(t, []string{"Listening"}, r.Weaknesses)

	listening := r.Topics[4]
	assert.Equal(t, 1, listening.Correct)
	assert.Equal(t, 4, listening.Total)
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want Class
	}{
		{100, ClassStrength},
		{75, ClassStrength},
		{74.999, ClassNeither},
		{50, ClassNeither},
		{49.999, ClassWeakness},
		{0, ClassWeakness},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.pct), "pct %v", tt.pct)
	}
}

func TestSummarizeExactBoundariesFromTallies(t *testing.T) {
	r := Summarize([]model.Attempt{
		attempt(1, 0, 0,
			tally("ThreeQuarters", 3, 4),
			tally("Half", 1, 2),
			tally("JustUnderHalf", 49999, 100000),
		),
	})
	classes := make(map[string]Class)
	for _, ts := range r.Topics {
		classes[ts.Topic] = ts.Class
	}
	assert.Equal(t, ClassStrength, classes["ThreeQuarters"])
	assert.Equal(t, ClassNeither, classes["Half"])
	assert.Equal(t, ClassWeakness, classes["JustUnderHalf"])
}

func TestSummarizeHistoryNewestFirst(t *testing.T) {
	r := Summarize([]model.Attempt{
		attempt(1, 1, 2),
		attempt(5, 2, 2),
		attempt(3, 0, 2),
	})
	require.Len(t, r.History, 3)
	assert.Equal(t, int64(5), r.History[0].AttemptID)
	assert.Equal(t, int64(3), r.History[1].AttemptID)
	assert.Equal(t, int64(1), r.History[2].AttemptID)
	assert.InDelta(t, 100.0, r.History[0].Percentage, 1e-9)
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	history := []model.Attempt{
		attempt(1, 1, 2, tally("A", 1, 1), tally("B", 0, 1)),
	}
	_ = Summarize(history)
	assert.Equal(t, []model.TopicTally{tally("A", 1, 1), tally("B", 0, 1)}, history[0].TopicPerformance)
}

func TestSummarizeConcurrent(t *testing.T) {
	history := []model.Attempt{
		attempt(1, 3, 4, tally("Geo", 3, 4)),
		attempt(2, 1, 4, tally("Geo", 1, 4)),
	}
	want := Summarize(history)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Summarize(history))
		}()
	}
	wg.Wait()
}

func TestItemStats(t *testing.T) {
	sel := func(v int) *int { return &v }
	stats := ItemStats([]model.Attempt{
		{Responses: []model.Response{
			{QuestionID: "q1", Selected: sel(0), Correct: true},
			{QuestionID: "q2", Selected: sel(1)},
		}},
		{Responses: []model.Response{
			{QuestionID: "q2", Selected: sel(2), Correct: true},
			{QuestionID: "q1"},
			{QuestionID: "q3", Selected: sel(1), Correct: true},
		}},
	})

	require.Len(t, stats, 3)
	assert.Equal(t, ItemStat{QuestionID: "q1", Attempts: 2, Correct: 1, PValue: 0.5}, stats[0])
	assert.Equal(t, ItemStat{QuestionID: "q2", Attempts: 2, Correct: 1, PValue: 0.5}, stats[1])
	assert.Equal(t, ItemStat{QuestionID: "q3", Attempts: 1, Correct: 1, PValue: 1}, stats[2])

	assert.Empty(t, ItemStats(nil))
}
