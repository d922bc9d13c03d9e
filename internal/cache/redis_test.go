package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/quiz"
)

var _ quiz.StateStore = (*RedisStates)(nil)

func newTestStates(t *testing.T) *RedisStates {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	c, err := NewRedisStates(context.Background(), addr, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisStatesRoundTrip(t *testing.T) {
	c := newTestStates(t)
	ctx := context.Background()
	learner := time.Now().UnixNano()

	qs := []model.Question{{ID: "q1", Stem: "s", Options: []string{"True", "False"}, Type: model.TypeTrueFalse, Marks: 1, Topic: "T"}}
	s := quiz.Start(qs, quiz.WithLearner(learner))
	require.NoError(t, s.RecordAnswer("q1", 0))
	require.NoError(t, c.SaveSessionState(ctx, s.State()))

	id, err := c.ActiveSessionID(ctx, learner)
	require.NoError(t, err)
	assert.Equal(t, s.ID(), id)

	st, err := c.LoadSessionState(ctx, s.ID())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 0, st.Answers["q1"])

	require.NoError(t, c.DeleteSessionState(ctx, s.ID()))
	st, err = c.LoadSessionState(ctx, s.ID())
	require.NoError(t, err)
	assert.Nil(t, st)

	id, err = c.ActiveSessionID(ctx, learner)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestRedisStatesWithManager(t *testing.T) {
	c := newTestStates(t)
	ctx := context.Background()
	learner := time.Now().UnixNano()

	m := quiz.NewManager(c, historyFunc(func(model.Attempt) (int64, error) { return 1, nil }))
	s, err := m.Start(ctx, learner, []model.Question{{ID: "q1", Stem: "s", Options: []string{"a", "b"}, Type: model.TypeTrueFalse, Marks: 3, Topic: "T"}})
	require.NoError(t, err)
	require.NoError(t, m.RecordAnswer(ctx, s.ID(), learner, "q1", 0))

	a, err := m.Submit(ctx, s.ID(), learner)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Score)
}

func TestRedisStatesSubmitOnceAcrossManagers(t *testing.T) {
	c := newTestStates(t)
	ctx := context.Background()
	learner := time.Now().UnixNano()

	var appended int
	history := historyFunc(func(model.Attempt) (int64, error) {
		appended++
		return int64(appended), nil
	})
	a := quiz.NewManager(c, history)
	b := quiz.NewManager(c, history)

	s, err := a.Start(ctx, learner, []model.Question{{ID: "q1", Stem: "s", Options: []string{"a", "b"}, Type: model.TypeTrueFalse, Marks: 1, Topic: "T"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.DeleteSessionState(context.Background(), s.ID()) })
	require.NoError(t, b.RecordAnswer(ctx, s.ID(), learner, "q1", 0))

	first, err := a.Submit(ctx, s.ID(), learner)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Score)

	again, err := b.Submit(ctx, s.ID(), learner)
	require.ErrorIs(t, err, quiz.ErrAlreadySubmitted)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, appended)

	ok, err := c.ClaimSubmit(ctx, s.ID())
	require.NoError(t, err)
	assert.False(t, ok)
}

type historyFunc func(model.Attempt) (int64, error)

func (f historyFunc) AppendAttempt(a model.Attempt) (int64, error) { return f(a) }
