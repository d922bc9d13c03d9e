package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/report"
)

const documentStyle = `body{font-family:Helvetica,Arial,sans-serif;font-size:12pt;margin:15mm;color:#222}
h1{text-align:center;font-size:22pt;margin-bottom:4mm}
.sub{text-align:center;color:#555;margin-bottom:10mm}
.q{page-break-inside:avoid;margin-bottom:8mm}
.q-head{display:flex;justify-content:space-between;font-weight:bold}
.marks{font-weight:normal;white-space:nowrap;margin-left:4mm}
ol.opts{list-style:none;padding-left:8mm;margin:2mm 0}
.answer{color:#1a7f37;font-size:10pt}
table{border-collapse:collapse;width:100%;margin-bottom:8mm}
th,td{border:1px solid #ccc;padding:2mm;text-align:left}
.strength{color:#1a7f37}.weakness{color:#b42318}`

// Paper is the input of exam paper and worksheet documents.
type Paper struct {
	Title     string
	Subtitle  string
	Questions []model.Question
	// WithAnswers appends the correct option and explanation to each question.
	WithAnswers bool
}

// LearnerReport is the input of the performance report document.
type LearnerReport struct {
	Learner     model.User
	Report      report.Report
	GeneratedAt time.Time
}

// docWriter keeps the first write error so components can write freely.
type docWriter struct {
	w   io.Writer
	err error
}

func (d *docWriter) raw(s string) {
	if d.err == nil {
		_, d.err = io.WriteString(d.w, s)
	}
}

func (d *docWriter) text(s string) {
	d.raw(templ.EscapeString(s))
}

func (d *docWriter) rawf(format string, args ...any) {
	d.raw(fmt.Sprintf(format, args...))
}

func (d *docWriter) open(title string) {
	d.raw(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
	d.text(title)
	d.raw(`</title><style>` + documentStyle + `</style></head><body>`)
}

func (d *docWriter) close() {
	d.raw(`</body></html>`)
}

// PaperDocument renders questions as a printable paper. Multiple-choice
// options are lettered, other types use dashes.
func PaperDocument(p Paper) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		d := &docWriter{w: w}
		d.open(p.Title)
		d.raw(`<h1>`)
		d.text(p.Title)
		d.raw(`</h1>`)
		if p.Subtitle != "" {
			d.raw(`<div class="sub">`)
			d.text(p.Subtitle)
			d.raw(`</div>`)
		}
		for i, q := range p.Questions {
			d.raw(`<div class="q"><div class="q-head"><span>`)
			d.rawf("%d. ", i+1)
			d.text(q.Stem)
			d.raw(`</span><span class="marks">`)
			d.text(MarksLabel(q.Marks))
			d.raw(`</span></div><ol class="opts">`)
			for j, opt := range q.Options {
				d.raw(`<li>`)
				d.text(OptionLabel(q.Type, j))
				d.text(opt)
				d.raw(`</li>`)
			}
			d.raw(`</ol>`)
			if p.WithAnswers && q.CorrectAnswerIndex < len(q.Options) {
				d.raw(`<div class="answer">Answer: `)
				d.text(q.Options[q.CorrectAnswerIndex])
				if q.Explanation != "" {
					d.text(" - " + q.Explanation)
				}
				d.raw(`</div>`)
			}
			d.raw(`</div>`)
		}
		d.close()
		return d.err
	})
}

// ReportDocument renders a learner's performance summary.
func ReportDocument(lr LearnerReport) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		d := &docWriter{w: w}
		rep := lr.Report
		name := lr.Learner.DisplayName
		if name == "" {
			name = lr.Learner.Username
		}
		d.open("Performance report: " + name)
		d.raw(`<h1>Performance Report</h1><div class="sub">`)
		d.text(name)
		if lr.Learner.Class != "" {
			d.text(", " + lr.Learner.Class)
		}
		d.text(" - " + lr.GeneratedAt.Format("January 2, 2006"))
		d.raw(`</div>`)

		d.rawf(`<table><tr><th>Total exams</th><td>%d</td></tr><tr><th>Average score</th><td>%.1f%%</td></tr></table>`,
			rep.TotalExams, rep.AverageScore)

		if len(rep.Topics) > 0 {
			d.raw(`<h2>Topics</h2><table><tr><th>Topic</th><th>Correct</th><th>Total</th><th>Score</th><th></th></tr>`)
			for _, t := range rep.Topics {
				d.raw(`<tr><td>`)
				d.text(t.Topic)
				d.rawf(`</td><td>%d</td><td>%d</td><td>%.1f%%</td>`, t.Correct, t.Total, t.Percentage)
				d.rawf(`<td class="%s">`, t.Class)
				d.text(classLabel(t.Class))
				d.raw(`</td></tr>`)
			}
			d.raw(`</table>`)
		}
		writeTopicList(d, "Strengths", rep.Strengths)
		writeTopicList(d, "Weaknesses", rep.Weaknesses)

		if len(rep.History) > 0 {
			d.raw(`<h2>Exam history</h2><table><tr><th>Date</th><th>Score</th><th>Percentage</th></tr>`)
			for _, h := range rep.History {
				d.raw(`<tr><td>`)
				d.text(h.Date.Format("2006-01-02 15:04"))
				d.rawf(`</td><td>%d / %d</td><td>%.1f%%</td></tr>`, h.Score, h.TotalMarks, h.Percentage)
			}
			d.raw(`</table>`)
		}
		d.close()
		return d.err
	})
}

func writeTopicList(d *docWriter, heading string, topics []string) {
	if len(topics) == 0 {
		return
	}
	d.raw(`<h2>`)
	d.text(heading)
	d.raw(`</h2><p>`)
	d.text(strings.Join(topics, ", "))
	d.raw(`</p>`)
}

func classLabel(c report.Class) string {
	switch c {
	case report.ClassStrength:
		return "Strength"
	case report.ClassWeakness:
		return "Weakness"
	}
	return ""
}

// MarksLabel formats marks as "(1 Mark)" or "(2 Marks)".
func MarksLabel(marks int) string {
	if marks == 1 {
		return "(1 Mark)"
	}
	return fmt.Sprintf("(%d Marks)", marks)
}

// OptionLabel returns the prefix printed before option i.
func OptionLabel(t model.QuestionType, i int) string {
	if t == model.TypeMultipleChoice {
		return string(rune('A'+i)) + ") "
	}
	return "- "
}
