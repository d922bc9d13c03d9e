package views

import (
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
)

// QuizStartView is shown when the learner has no current session.
type QuizStartView struct {
	Available int
	ExamTitle string
}

// QuizStartPage offers to start a new quiz.
func QuizStartPage(v QuizStartView, flash Flash) templ.Component {
	body := component(func(p *page) {
		p.raw(`<div class="card"><h1>`)
		p.text(v.ExamTitle)
		p.raw(`</h1><p>`)
		if v.Available == 0 {
			p.t("NoQuestionsAvailable")
			p.raw(`</p></div>`)
			return
		}
		p.text(appI18n.Tp(p.ctx, "QuestionsAvailable", v.Available))
		p.raw(`</p>`)
		p.postButton("/quiz/start", "StartQuiz", "primary")
		p.raw(`</div>`)
	})
	return component(func(p *page) {
		p.component(Layout(v.ExamTitle, flash, body))
	})
}

// QuizView describes one session, in progress or submitted.
type QuizView struct {
	SessionID string
	ExamTitle string
	Questions []model.Question
	Answers   map[string]int
	Submitted bool
	Attempt   *model.Attempt
}

// QuizPage renders the answer sheet, or the results with explanations once
// the session is submitted.
func QuizPage(v QuizView, flash Flash) templ.Component {
	body := component(func(p *page) {
		if v.Submitted && v.Attempt != nil {
			results(p, v)
			return
		}
		answerSheet(p, v)
	})
	return component(func(p *page) {
		p.component(Layout(v.ExamTitle, flash, body))
	})
}

func answerSheet(p *page, v QuizView) {
	p.raw(`<h1>`)
	p.text(v.ExamTitle)
	p.raw(`</h1><p class="muted">`)
	p.text(appI18n.Tp(p.ctx, "AnsweredCount", len(v.Answers)))
	p.raw(`</p><form method="post" action="`)
	p.url("/quiz/" + v.SessionID + "/submit")
	p.raw(`">`)
	p.csrf()
	for i, q := range v.Questions {
		selected, answered := v.Answers[q.ID]
		p.raw(`<fieldset class="card"><legend>`)
		p.td("QuestionNofM", map[string]any{"N": i + 1, "M": len(v.Questions)})
		p.raw(`</legend><p><strong>`)
		p.text(q.Stem)
		p.raw(`</strong> <span class="muted">`)
		p.text(strconv.Itoa(q.Marks))
		p.raw(`</span></p>`)
		for j, opt := range q.Options {
			p.raw(`<label><input type="radio" name="q_`)
			p.text(q.ID)
			p.rawf(`" value="%d"`, j)
			if answered && selected == j {
				p.raw(` checked`)
			}
			p.raw(`> `)
			p.text(opt)
			p.raw(`</label>`)
		}
		p.raw(`</fieldset>`)
	}
	p.raw(`<button type="submit">`)
	p.t("SubmitQuiz")
	p.raw(`</button></form>`)
}

func results(p *page, v QuizView) {
	a := v.Attempt
	p.raw(`<div class="card"><h1>`)
	p.td("YourScore", map[string]any{
		"Score":   a.Score,
		"Total":   a.TotalMarks,
		"Percent": percent(a.Score, a.TotalMarks),
	})
	p.raw(`</h1>`)
	if len(a.TopicPerformance) > 0 {
		p.raw(`<h2>`)
		p.t("TopicPerformance")
		p.raw(`</h2><table><tr><th>`)
		p.t("Topic")
		p.raw(`</th><th>`)
		p.t("Score")
		p.raw(`</th></tr>`)
		for _, tt := range a.TopicPerformance {
			p.raw(`<tr><td>`)
			p.text(tt.Topic)
			p.rawf(`</td><td>%d / %d</td></tr>`, tt.Correct, tt.Total)
		}
		p.raw(`</table>`)
	}
	p.postButton("/quiz/"+v.SessionID+"/retake", "RetakeQuiz", "primary")
	p.raw(`</div>`)

	for i, q := range v.Questions {
		selected, answered := v.Answers[q.ID]
		p.raw(`<div class="card"><p class="muted">`)
		p.td("QuestionNofM", map[string]any{"N": i + 1, "M": len(v.Questions)})
		p.raw(`</p><p><strong>`)
		p.text(q.Stem)
		p.raw(`</strong></p>`)
		switch {
		case !answered:
			p.raw(`<p class="incorrect">`)
			p.t("Unanswered")
		case selected == q.CorrectAnswerIndex:
			p.raw(`<p class="correct">`)
			p.t("Correct")
			p.raw(`: `)
			p.text(q.Options[selected])
		default:
			p.raw(`<p class="incorrect">`)
			p.t("Incorrect")
			p.raw(`: `)
			p.text(q.Options[selected])
		}
		p.raw(`</p>`)
		if !answered || selected != q.CorrectAnswerIndex {
			p.raw(`<p>`)
			p.t("CorrectAnswer")
			p.raw(`: `)
			p.text(q.Options[q.CorrectAnswerIndex])
			p.raw(`</p>`)
		}
		if q.Explanation != "" {
			p.raw(`<p class="muted">`)
			p.t("Explanation")
			p.raw(`: `)
			p.text(q.Explanation)
			p.raw(`</p>`)
		}
		p.raw(`</div>`)
	}
}
