package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambank/internal/model"
)

type memRepo struct {
	questions map[string]model.Question
	hashes    map[string]string
	failOn    string
}

func newMemRepo() *memRepo {
	return &memRepo{questions: make(map[string]model.Question), hashes: make(map[string]string)}
}

func (r *memRepo) ListQuestions() ([]model.Question, error) {
	out := make([]model.Question, 0, len(r.questions))
	for _, q := range r.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) GetQuestion(id string) (*model.Question, error) {
	q, ok := r.questions[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r *memRepo) InsertQuestions(qs []model.Question) error {
	for _, q := range qs {
		if r.failOn != "" && q.Stem == r.failOn {
			return errors.New("insert failed")
		}
	}
	for _, q := range qs {
		r.questions[q.ID] = q
	}
	return nil
}

func (r *memRepo) UpdateQuestion(q model.Question) error {
	r.questions[q.ID] = q
	return nil
}

func (r *memRepo) DeleteQuestion(id string) error {
	delete(r.questions, id)
	return nil
}

func (r *memRepo) GetImportedFileHash(path string) (string, error) { return r.hashes[path], nil }

func (r *memRepo) SetImportedFileHash(path, hash string) error {
	r.hashes[path] = hash
	return nil
}

func validMCQ() model.Question {
	return model.Question{
		Stem:               "Which planet is largest?",
		Options:            []string{"Mars", "Jupiter", "Venus", "Earth"},
		CorrectAnswerIndex: 1,
		Type:               model.TypeMultipleChoice,
		Difficulty:         model.DifficultyMedium,
		Marks:              1,
		Topic:              "Astronomy",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Question)
		field  string
		rule   string
	}{
		{"valid", func(q *model.Question) {}, "", ""},
		{"empty stem", func(q *model.Question) { q.Stem = "  " }, "stem", "required"},
		{"empty topic", func(q *model.Question) { q.Topic = "" }, "topic", "required"},
		{"one option", func(q *model.Question) { q.Options = []string{"a"}; q.Type = model.TypeFillBlank; q.CorrectAnswerIndex = 0 }, "options", "min"},
		{"five options", func(q *model.Question) { q.Options = append(q.Options, "Pluto") }, "options", "max"},
		{"blank option", func(q *model.Question) { q.Options[2] = " " }, "options[2]", "required"},
		{"zero marks", func(q *model.Question) { q.Marks = 0 }, "marks", "gt"},
		{"negative index", func(q *model.Question) { q.CorrectAnswerIndex = -1 }, "correct_answer_index", "gte"},
		{"index past options", func(q *model.Question) { q.CorrectAnswerIndex = 4 }, "correct_answer_index", "in_range"},
		{"unknown type", func(q *model.Question) { q.Type = "essay" }, "type", "oneof"},
		{"unknown difficulty", func(q *model.Question) { q.Difficulty = "" }, "difficulty", "oneof"},
		{"mcq with three options", func(q *model.Question) { q.Options = q.Options[:3] }, "options", "option_count"},
		{"true-false with four options", func(q *model.Question) { q.Type = model.TypeTrueFalse }, "options", "option_count"},
		{"fill-blank with three options", func(q *model.Question) { q.Type = model.TypeFillBlank; q.Options = q.Options[:3] }, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validMCQ()
			q.Options = append([]string(nil), q.Options...)
			tt.mutate(&q)

			err := Validate(q)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidQuestion)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.rule, ve.Rule)
			assert.NotEmpty(t, ve.Error())
		})
	}
}

func TestValidateBatchRejectsWholeBatch(t *testing.T) {
	bad := validMCQ()
	bad.Marks = 0
	err := ValidateBatch([]model.Question{validMCQ(), bad, validMCQ()})

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Index)
	assert.ErrorIs(t, err, ErrInvalidQuestion)
	assert.Contains(t, err.Error(), "question 2")

	require.NoError(t, ValidateBatch(nil))
}

func TestAddGenerated(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, repo)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }

	in := validMCQ()
	in.Approved = true
	added, err := svc.AddGenerated([]model.Question{in, validMCQ()})
	require.NoError(t, err)
	require.Len(t, added, 2)
	for _, q := range added {
		assert.NotEmpty(t, q.ID)
		assert.True(t, q.AIGenerated)
		assert.False(t, q.Approved, "generated questions await approval")
		assert.Equal(t, svc.now(), q.CreatedAt)
	}
	assert.NotEqual(t, added[0].ID, added[1].ID)

	bad := validMCQ()
	bad.Options = nil
	_, err = svc.AddGenerated([]model.Question{validMCQ(), bad})
	require.Error(t, err)
	assert.Len(t, repo.questions, 2, "a rejected batch stores nothing")
}

func TestAddGeneratedStorageFailureStoresNothing(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, repo)

	second := validMCQ()
	second.Stem = "What is 3 + 3?"
	repo.failOn = second.Stem

	added, err := svc.AddGenerated([]model.Question{validMCQ(), second})
	require.Error(t, err)
	assert.Nil(t, added)
	assert.Empty(t, repo.questions)
}

func TestApprovedAndFilters(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	require.NoError(t, svc.Seed())
	require.NoError(t, svc.Seed(), "seeding twice is a no-op")
	require.Len(t, repo.questions, 2)

	added, err := svc.AddGenerated([]model.Question{validMCQ()})
	require.NoError(t, err)

	approved, err := svc.Approved()
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	require.NoError(t, svc.SetApproved(added[0].ID, true))
	approved, err = svc.Approved()
	require.NoError(t, err)
	assert.Len(t, approved, 3)

	tfs, err := svc.ListByType(model.TypeTrueFalse)
	require.NoError(t, err)
	require.Len(t, tfs, 1)
	assert.Equal(t, "q-2", tfs[0].ID)

	all, err := svc.ListByType("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, added[0].ID, all[0].ID, "newest first")

	groups := ByTopic(all)
	var topics []string
	for _, g := range groups {
		topics = append(topics, g.Topic)
	}
	assert.Equal(t, []string{"Astronomy", "Basic Science", "World Geography"}, topics)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	added, err := svc.AddGenerated([]model.Question{validMCQ()})
	require.NoError(t, err)
	orig := added[0]

	edit := orig
	edit.Stem = "Which planet is the largest in the solar system?"
	edit.AIGenerated = false
	edit.CreatedAt = time.Time{}
	got, err := svc.Update(edit)
	require.NoError(t, err)
	assert.Equal(t, edit.Stem, got.Stem)
	assert.True(t, got.AIGenerated, "provenance is kept")
	assert.Equal(t, orig.CreatedAt, got.CreatedAt)

	edit.Marks = -2
	_, err = svc.Update(edit)
	require.ErrorIs(t, err, ErrInvalidQuestion)
	assert.Equal(t, 1, repo.questions[orig.ID].Marks)

	_, err = svc.Update(model.Question{ID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(orig.ID))
	require.ErrorIs(t, svc.Delete(orig.ID), ErrNotFound)
	assert.Empty(t, repo.questions)
}

func TestParseTypeLabels(t *testing.T) {
	assert.Equal(t, model.TypeMultipleChoice, ParseType("Multiple Choice"))
	assert.Equal(t, model.TypeTrueFalse, ParseType("True/False"))
	assert.Equal(t, model.TypeFillBlank, ParseType("Fill in the Blank"))
	assert.Equal(t, model.QuestionType("Essay"), ParseType("Essay"))
}

const jsonQuestions = `[
  {
    "stem": "2 + 2 = ?",
    "options": ["3", "4", "5", "22"],
    "correct_answer_index": 1,
    "explanation": "Basic addition.",
    "type": "Multiple Choice",
    "difficulty": "Easy",
    "marks": 1,
    "topic": "Arithmetic",
    "approved": true
  }
]`

const yamlQuestions = `
- stem: Water boils at 100 C at sea level.
  options: ["True", "False"]
  correct_answer_index: 0
  type: true-false
  difficulty: easy
  marks: 2
  topic: Physics
`

func TestParse(t *testing.T) {
	qs, err := Parse("bank.json", []byte(jsonQuestions))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, model.TypeMultipleChoice, qs[0].Type)
	assert.Equal(t, model.DifficultyEasy, qs[0].Difficulty)
	assert.True(t, qs[0].Approved)

	qs, err = Parse("bank.yml", []byte(yamlQuestions))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, model.TypeTrueFalse, qs[0].Type)
	assert.Equal(t, 2, qs[0].Marks)

	_, err = Parse("bank.json", []byte(`[{"stem":"x","rubric":"y"}]`))
	assert.Error(t, err, "unknown JSON fields are rejected")
	_, err = Parse("bank.yaml", []byte("- stem: x\n  rubric: y\n"))
	assert.Error(t, err, "unknown YAML fields are rejected")
}

func TestImportFileOnce(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, repo)
	path := filepath.Join(t.TempDir(), "bank.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonQuestions), 0o644))

	n, err := svc.ImportFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.ImportFile(path)
	require.ErrorIs(t, err, ErrAlreadyImported)
	assert.Len(t, repo.questions, 1)
}

func TestImportRejectsInvalidFile(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, repo)
	data := `[{"stem":"x","options":["a","b"],"correct_answer_index":3,"type":"true-false","difficulty":"easy","marks":1,"topic":"T"}]`

	_, err := svc.Import("bad.json", []byte(data))
	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 0, be.Index)
	assert.Empty(t, repo.questions)
}
