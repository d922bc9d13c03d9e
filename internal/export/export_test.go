package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/report"
)

// htmlRenderer returns the HTML itself so tests can inspect it.
type htmlRenderer struct{ calls int }

func (r *htmlRenderer) RenderPDF(_ context.Context, html string) ([]byte, error) {
	r.calls++
	return []byte(html), nil
}

type fakePublisher struct {
	keys []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key string, _ []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.keys = append(p.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type memAssets struct{ assets []model.Asset }

func (m *memAssets) InsertAsset(a model.Asset) (int64, error) {
	m.assets = append(m.assets, a)
	return int64(len(m.assets)), nil
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{
			Stem: "What is the capital of France?", Options: []string{"Berlin", "Madrid", "Paris", "Rome"},
			CorrectAnswerIndex: 2, Explanation: "Paris is the capital.", Type: model.TypeMultipleChoice,
			Marks: 1, Topic: "World Geography",
		},
		{
			Stem: "The sun rises in the west.", Options: []string{"True", "False"},
			CorrectAnswerIndex: 1, Type: model.TypeTrueFalse, Marks: 2, Topic: "Basic Science",
		},
	}
}

func TestExamPaper(t *testing.T) {
	r := &htmlRenderer{}
	e := New(r, nil, nil)

	out, err := e.ExamPaper(context.Background(), "A1 Level Examination", sampleQuestions(), false)
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "<h1>A1 Level Examination</h1>")
	assert.Contains(t, html, "2 questions, 3 marks")
	assert.Contains(t, html, "1. What is the capital of France?")
	assert.Contains(t, html, "C) Paris")
	assert.Contains(t, html, "- False")
	assert.Contains(t, html, "(1 Mark)")
	assert.Contains(t, html, "(2 Marks)")
	assert.NotContains(t, html, "Answer:")
	assert.Equal(t, 1, r.calls)

	withAnswers, err := e.ExamPaper(context.Background(), "Key", sampleQuestions(), true)
	require.NoError(t, err)
	assert.Contains(t, string(withAnswers), "Answer: Paris - Paris is the capital.")
}

func TestDocumentsEscapeText(t *testing.T) {
	qs := []model.Question{{
		Stem: `<script>alert("x")</script>`, Options: []string{"a<b", "b", "c", "d"},
		Type: model.TypeMultipleChoice, Marks: 1, Topic: "t",
	}}
	out, err := New(&htmlRenderer{}, nil, nil).Worksheet(context.Background(), qs)
	require.NoError(t, err)
	html := string(out)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "a&lt;b")
	assert.Contains(t, html, "Student Worksheet")
}

func TestReport(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rep := report.Summarize([]model.Attempt{{
		TakenAt: at, Score: 3, TotalMarks: 4,
		TopicPerformance: []model.TopicTally{
			{Topic: "Algebra", Correct: 3, Total: 3},
			{Topic: "Geometry", Correct: 0, Total: 1},
		},
	}})

	out, err := New(&htmlRenderer{}, nil, nil).Report(context.Background(), LearnerReport{
		Learner: model.User{Username: "asha", DisplayName: "Asha Rao", Class: "10th Grade"},
		Report:  rep,
	})
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "Asha Rao, 10th Grade")
	assert.Contains(t, html, "75.0%")
	assert.Contains(t, html, `<td class="strength">Strength</td>`)
	assert.Contains(t, html, `<td class="weakness">Weakness</td>`)
	assert.Contains(t, html, "2025-03-01 10:00")
	assert.Contains(t, html, "3 / 4")
	assert.True(t, strings.Index(html, "Algebra") < strings.Index(html, "Geometry"))
}

func TestPublish(t *testing.T) {
	pub := &fakePublisher{}
	assets := &memAssets{}
	e := New(&htmlRenderer{}, pub, assets)
	require.True(t, e.CanPublish())

	a, err := e.Publish(context.Background(), 7, "exam-paper", []byte("%PDF"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, a.ID)
	assert.True(t, strings.HasPrefix(a.Key, "exam-paper_"))
	assert.Equal(t, "https://cdn.example.com/"+a.Key, a.URL)
	assert.Equal(t, "application/pdf", a.MIMEType)
	assert.EqualValues(t, 7, assets.assets[0].UploadedBy)
}

func TestPublishFailures(t *testing.T) {
	_, err := New(&htmlRenderer{}, nil, nil).Publish(context.Background(), 1, "x", nil)
	assert.ErrorIs(t, err, ErrPublishingDisabled)

	boom := errors.New("boom")
	assets := &memAssets{}
	_, err = New(&htmlRenderer{}, &fakePublisher{err: boom}, assets).Publish(context.Background(), 1, "x", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, assets.assets)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "A) ", OptionLabel(model.TypeMultipleChoice, 0))
	assert.Equal(t, "D) ", OptionLabel(model.TypeMultipleChoice, 3))
	assert.Equal(t, "- ", OptionLabel(model.TypeFillBlank, 0))
	assert.Equal(t, "(1 Mark)", MarksLabel(1))
	assert.Equal(t, "(3 Marks)", MarksLabel(3))
}
