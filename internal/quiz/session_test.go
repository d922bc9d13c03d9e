package quiz

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambank/internal/model"
)

func mcq(id, topic string, correct, marks int) model.Question {
	return model.Question{
		ID:                 id,
		Stem:               "Question " + id,
		Options:            []string{"a", "b", "c", "d"},
		CorrectAnswerIndex: correct,
		Type:               model.TypeMultipleChoice,
		Difficulty:         model.DifficultyEasy,
		Marks:              marks,
		Topic:              topic,
		Approved:           true,
	}
}

func tf(id, topic string, correct int) model.Question {
	return model.Question{
		ID:                 id,
		Stem:               "Statement " + id,
		Options:            []string{"True", "False"},
		CorrectAnswerIndex: correct,
		Type:               model.TypeTrueFalse,
		Difficulty:         model.DifficultyMedium,
		Marks:              1,
		Topic:              topic,
		Approved:           true,
	}
}

func sampleQuestions(n int) []model.Question {
	topics := []string{"Geo", "Science", "History"}
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = mcq(fmt.Sprintf("q-%d", i), topics[i%len(topics)], i%4, 1+i%3)
	}
	return qs
}

func ids(qs []model.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestShuffleIsPermutation(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 17} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			qs := sampleQuestions(n)
			original := ids(qs)

			s := Start(qs, WithRand(rand.New(rand.NewPCG(uint64(n), 7))))
			got := ids(s.Questions())

			require.Len(t, got, n)
			sorted := slices.Clone(got)
			sort.Strings(sorted)
			want := slices.Clone(original)
			sort.Strings(want)
			assert.Equal(t, want, sorted)
			assert.Equal(t, original, ids(qs), "input must not be reordered")
		})
	}
}

func TestShuffleSeedIsReproducible(t *testing.T) {
	qs := sampleQuestions(10)
	a := Start(qs, WithRand(rand.New(rand.NewPCG(42, 1))))
	b := Start(qs, WithRand(rand.New(rand.NewPCG(42, 1))))
	assert.Equal(t, ids(a.Questions()), ids(b.Questions()))
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestStartWithLimit(t *testing.T) {
	qs := sampleQuestions(10)
	all := ids(qs)

	s := Start(qs, WithLimit(4), WithRand(rand.New(rand.NewPCG(3, 3))))
	got := ids(s.Questions())
	require.Len(t, got, 4)
	for _, id := range got {
		assert.Contains(t, all, id)
	}

	assert.Len(t, Start(qs, WithLimit(25)).Questions(), 10)
	assert.Len(t, Start(qs, WithLimit(0)).Questions(), 10)
}

func TestRetakeReshuffles(t *testing.T) {
	qs := sampleQuestions(8)
	input := ids(qs)

	first := Start(qs)
	differsFromFirst, differsFromInput := false, false
	for range 30 {
		next := ids(Retake(qs).Questions())
		if !slices.Equal(next, ids(first.Questions())) {
			differsFromFirst = true
		}
		if !slices.Equal(next, input) {
			differsFromInput = true
		}
	}
	assert.True(t, differsFromFirst, "retakes never produced a new ordering")
	assert.True(t, differsFromInput, "shuffle always returned input order")
}

func TestRecordAnswer(t *testing.T) {
	qs := []model.Question{mcq("q1", "Geo", 2, 1), tf("q2", "Science", 1)}
	s := Start(qs)

	require.NoError(t, s.RecordAnswer("q1", 0))
	require.NoError(t, s.RecordAnswer("q1", 2))
	v, ok := s.Answer("q1")
	require.True(t, ok)
	assert.Equal(t, 2, v, "later answer overwrites")
	assert.Equal(t, PhaseInProgress, s.Phase())

	tests := []struct {
		name   string
		qid    string
		option int
	}{
		{"unknown question", "nope", 0},
		{"negative option", "q2", -1},
		{"option past end", "q2", 2},
		{"mcq option past end", "q1", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.RecordAnswer(tt.qid, tt.option)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	v, _ = s.Answer("q1")
	assert.Equal(t, 2, v, "failed calls must not mutate state")
	_, ok = s.Answer("q2")
	assert.False(t, ok)
}

func TestRecordAnswerAfterSubmitIsNoop(t *testing.T) {
	s := Start([]model.Question{mcq("q1", "Geo", 1, 1)})
	require.NoError(t, s.RecordAnswer("q1", 1))
	_, err := s.Submit()
	require.NoError(t, err)

	require.NoError(t, s.RecordAnswer("q1", 3))
	require.NoError(t, s.RecordAnswer("unknown", 99))
	v, _ := s.Answer("q1")
	assert.Equal(t, 1, v)
}

func TestSubmitScoring(t *testing.T) {
	qs := []model.Question{
		mcq("q1", "Geo", 2, 2),
		mcq("q2", "Geo", 0, 1),
		tf("q3", "Science", 1),
		mcq("q4", "History", 3, 3),
	}
	s := Start(qs, WithClock(fixedClock()), WithLearner(7))
	require.NoError(t, s.RecordAnswer("q1", 2)) // correct, 2 marks
	require.NoError(t, s.RecordAnswer("q2", 1)) // wrong
	require.NoError(t, s.RecordAnswer("q3", 1)) // correct, 1 mark
	// q4 unanswered

	a, err := s.Submit()
	require.NoError(t, err)

	assert.Equal(t, 3, a.Score)
	assert.Equal(t, 7, a.TotalMarks)
	assert.Equal(t, int64(7), a.LearnerID)
	assert.Equal(t, s.ID(), a.SessionID)
	assert.Equal(t, fixedClock()(), a.TakenAt)
	assert.Equal(t, PhaseSubmitted, s.Phase())

	byTopic := make(map[string]model.TopicTally)
	for _, tt := range a.TopicPerformance {
		byTopic[tt.Topic] = tt
	}
	assert.Equal(t, model.TopicTally{Topic: "Geo", Correct: 1, Total: 2}, byTopic["Geo"])
	assert.Equal(t, model.TopicTally{Topic: "Science", Correct: 1, Total: 1}, byTopic["Science"])
	assert.Equal(t, model.TopicTally{Topic: "History", Correct: 0, Total: 1}, byTopic["History"])

	require.Len(t, a.Responses, 4)
	for _, r := range a.Responses {
		if r.QuestionID == "q4" {
			assert.Nil(t, r.Selected)
			assert.False(t, r.Correct)
		}
	}
}

func TestSubmitProperties(t *testing.T) {
	for seed := range uint64(25) {
		rng := rand.New(rand.NewPCG(seed, seed+1))
		qs := sampleQuestions(int(seed % 13))
		s := Start(qs, WithRand(rng))
		for _, q := range s.Questions() {
			if rng.IntN(3) == 0 {
				continue
			}
			require.NoError(t, s.RecordAnswer(q.ID, rng.IntN(len(q.Options))))
		}

		a, err := s.Submit()
		require.NoError(t, err)

		wantScore, wantTotal := 0, 0
		for _, q := range qs {
			wantTotal += q.Marks
			if v, ok := s.Answer(q.ID); ok && v == q.CorrectAnswerIndex {
				wantScore += q.Marks
			}
		}
		assert.Equal(t, wantScore, a.Score, "seed %d", seed)
		assert.Equal(t, wantTotal, a.TotalMarks, "seed %d", seed)
		assert.LessOrEqual(t, a.Score, a.TotalMarks)

		tallied := 0
		for _, tt := range a.TopicPerformance {
			tallied += tt.Total
			assert.LessOrEqual(t, tt.Correct, tt.Total)
		}
		assert.Equal(t, len(qs), tallied, "seed %d", seed)
	}
}

func TestSubmitEmptySession(t *testing.T) {
	s := Start(nil)
	assert.Empty(t, s.Questions())

	a, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, 0, a.TotalMarks)
	assert.NotNil(t, a.TopicPerformance)
	assert.Empty(t, a.TopicPerformance)
	assert.Zero(t, model.Percentage(a.Score, a.TotalMarks))
}

func TestDoubleSubmit(t *testing.T) {
	s := Start([]model.Question{mcq("q1", "Geo", 0, 2)})
	require.NoError(t, s.RecordAnswer("q1", 0))

	first, err := s.Submit()
	require.NoError(t, err)

	second, err := s.Submit()
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, first, second)
}

func TestConcurrentSubmitOnlyOnce(t *testing.T) {
	s := Start(sampleQuestions(6))
	results := make(chan error, 16)
	for range 16 {
		go func() {
			_, err := s.Submit()
			results <- err
		}()
	}
	ok := 0
	for range 16 {
		if err := <-results; err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrAlreadySubmitted)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestStateRoundTrip(t *testing.T) {
	qs := []model.Question{mcq("q1", "Geo", 1, 1), tf("q2", "Science", 0)}
	s := Start(qs, WithLearner(3), WithClock(fixedClock()))
	require.NoError(t, s.RecordAnswer("q2", 0))

	restored, err := Restore(s.State())
	require.NoError(t, err)
	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, ids(s.Questions()), ids(restored.Questions()))
	v, ok := restored.Answer("q2")
	require.True(t, ok)
	assert.Equal(t, 0, v)

	_, err = s.Submit()
	require.NoError(t, err)
	restored, err = Restore(s.State())
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitted, restored.Phase())
	require.NotNil(t, restored.Attempt())
	assert.Equal(t, 1, restored.Attempt().Score)
}

func TestRestoreRejectsBadState(t *testing.T) {
	good := Start([]model.Question{tf("q1", "Geo", 0)}).State()

	tests := []struct {
		name   string
		mutate func(*State)
	}{
		{"missing id", func(st *State) { st.ID = "" }},
		{"unknown phase", func(st *State) { st.Phase = "paused" }},
		{"submitted without attempt", func(st *State) { st.Phase = PhaseSubmitted }},
		{"stale answer", func(st *State) { st.Answers = map[string]int{"gone": 0} }},
		{"answer out of range", func(st *State) { st.Answers = map[string]int{"q1": 5} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := good
			st.Answers = map[string]int{}
			tt.mutate(&st)
			_, err := Restore(st)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
