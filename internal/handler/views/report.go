package views

import (
	"github.com/a-h/templ"

	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/report"
)

// ReportView is a learner's performance report. PDFPath is empty when PDF
// export is unavailable.
type ReportView struct {
	Learner model.User
	Report  report.Report
	PDFPath string
}

// ReportPage renders the performance report.
func ReportPage(v ReportView) templ.Component {
	body := component(func(p *page) {
		r := v.Report
		p.raw(`<div class="card"><h1>`)
		p.t("PerformanceReport")
		p.raw(`</h1><p>`)
		p.text(v.Learner.DisplayName)
		if v.Learner.Class != "" {
			p.raw(` <span class="muted">(`)
			p.text(v.Learner.Class)
			p.raw(`)</span>`)
		}
		p.raw(`</p>`)
		if r.TotalExams == 0 {
			p.raw(`<p>`)
			p.t("NoAttempts")
			p.raw(`</p></div>`)
			return
		}
		p.raw(`<p>`)
		p.t("TotalExams")
		p.rawf(`: <strong>%d</strong><br>`, r.TotalExams)
		p.t("AverageScore")
		p.rawf(`: <strong>%.1f%%</strong></p>`, r.AverageScore)
		if v.PDFPath != "" {
			p.raw(`<p><a href="`)
			p.url(v.PDFPath)
			p.raw(`">`)
			p.t("DownloadReport")
			p.raw(`</a></p>`)
		}
		p.raw(`</div>`)

		p.raw(`<div class="card"><h2>`)
		p.t("TopicPerformance")
		p.raw(`</h2><table><tr><th>`)
		p.t("Topic")
		p.raw(`</th><th>`)
		p.t("Score")
		p.raw(`</th><th>%</th></tr>`)
		for _, ts := range r.Topics {
			p.raw(`<tr class="`)
			p.text(string(ts.Class))
			p.raw(`"><td>`)
			p.text(ts.Topic)
			p.rawf(`</td><td>%d / %d</td><td>%.1f</td></tr>`, ts.Correct, ts.Total, ts.Percentage)
		}
		p.raw(`</table>`)
		topicList(p, "Strengths", r.Strengths)
		topicList(p, "Weaknesses", r.Weaknesses)
		p.raw(`</div>`)

		p.raw(`<div class="card"><h2>`)
		p.t("ExamHistory")
		p.raw(`</h2><table><tr><th>`)
		p.t("Date")
		p.raw(`</th><th>`)
		p.t("Score")
		p.raw(`</th><th>%</th></tr>`)
		for _, h := range r.History {
			p.raw(`<tr><td>`)
			p.text(h.Date.Format("2006-01-02 15:04"))
			p.rawf(`</td><td>%d / %d</td><td>%.1f</td></tr>`, h.Score, h.TotalMarks, h.Percentage)
		}
		p.raw(`</table></div>`)
	})
	return component(func(p *page) {
		p.component(Layout(v.Learner.DisplayName, Flash{}, body))
	})
}

func topicList(p *page, headingID string, topics []string) {
	if len(topics) == 0 {
		return
	}
	p.raw(`<h3>`)
	p.t(headingID)
	p.raw(`</h3><ul>`)
	for _, t := range topics {
		p.raw(`<li>`)
		p.text(t)
		p.raw(`</li>`)
	}
	p.raw(`</ul>`)
}
