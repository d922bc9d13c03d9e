package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/exambank/internal/catalog"
	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
)

// QuestionsView backs the question bank page shown to teachers and admins.
type QuestionsView struct {
	Filter      model.QuestionType
	Groups      []catalog.TopicGroup
	CanGenerate bool
	CanExport   bool
	CanPublish  bool
	// Preview holds generated questions that are shown but not stored,
	// such as a worksheet.
	Preview []model.Question
}

// QuestionsPage renders the question bank grouped by topic, with the
// upload and generation forms.
func QuestionsPage(v QuestionsView, flash Flash) templ.Component {
	body := component(func(p *page) {
		p.raw(`<div class="card"><h1>`)
		p.t("QuestionBank")
		p.raw(`</h1>`)
		typeFilter(p, v.Filter)
		if v.CanExport {
			p.raw(`<p><a href="`)
			p.url("/questions/paper.pdf")
			p.raw(`">`)
			p.t("DownloadPaper")
			p.raw(`</a>`)
			if v.CanPublish {
				p.raw(` `)
				p.postButton("/questions/paper/publish", "Save", "")
			}
			p.raw(`</p>`)
		}
		p.raw(`</div>`)

		if len(v.Preview) > 0 {
			p.raw(`<div class="card"><h2>`)
			p.t("GenerateWorksheet")
			p.raw(`</h2><ol>`)
			for _, q := range v.Preview {
				p.raw(`<li>`)
				p.text(q.Stem)
				p.raw(`<ul>`)
				for _, o := range q.Options {
					p.raw(`<li>`)
					p.text(o)
					p.raw(`</li>`)
				}
				p.raw(`</ul></li>`)
			}
			p.raw(`</ol></div>`)
		}

		for _, g := range v.Groups {
			p.raw(`<div class="card"><h2>`)
			p.text(g.Topic)
			p.raw(`</h2><table><tr><th>`)
			p.t("Stem")
			p.raw(`</th><th>`)
			p.t("Type")
			p.raw(`</th><th>`)
			p.t("Marks")
			p.raw(`</th><th>`)
			p.t("Status")
			p.raw(`</th><th></th></tr>`)
			for _, q := range g.Questions {
				questionRow(p, q)
			}
			p.raw(`</table></div>`)
		}

		uploadForm(p)
		if v.CanGenerate {
			generateForms(p)
		}
	})
	return component(func(p *page) {
		p.component(Layout(appI18n.T(p.ctx, "QuestionBank"), flash, body))
	})
}

func typeFilter(p *page, current model.QuestionType) {
	p.raw(`<form method="get" action="`)
	p.url("/questions")
	p.raw(`"><select name="type" onchange="this.form.submit()"><option value="">`)
	p.t("AllTypes")
	p.raw(`</option>`)
	for _, t := range model.QuestionTypes {
		p.raw(`<option value="`)
		p.text(string(t))
		p.raw(`"`)
		if t == current {
			p.raw(` selected`)
		}
		p.raw(`>`)
		p.t(typeLabelID(t))
		p.raw(`</option>`)
	}
	p.raw(`</select></form>`)
}

func questionRow(p *page, q model.Question) {
	base := "/questions/" + q.ID
	p.raw(`<tr><td>`)
	p.text(q.Stem)
	if q.AIGenerated {
		p.raw(` <span class="muted">(`)
		p.t("AIGenerated")
		p.raw(`)</span>`)
	}
	p.raw(`</td><td>`)
	p.t(typeLabelID(q.Type))
	p.raw(`</td><td>`)
	p.text(strconv.Itoa(q.Marks))
	p.raw(`</td><td>`)
	if q.Approved {
		p.t("Approved")
	} else {
		p.t("Pending")
	}
	p.raw(`</td><td>`)
	if q.Approved {
		p.postButton(base+"/approve?approved=0", "Unapprove", "")
	} else {
		p.postButton(base+"/approve?approved=1", "Approve", "primary")
	}
	p.raw(` <a href="`)
	p.url(base + "/edit")
	p.raw(`">`)
	p.t("Edit")
	p.raw(`</a> `)
	p.postButton(base+"/delete", "Delete", "danger")
	p.raw(`</td></tr>`)
}

func multipartForm(p *page, action, headingID string, fields func()) {
	p.raw(`<div class="card"><h2>`)
	p.t(headingID)
	p.raw(`</h2><form method="post" enctype="multipart/form-data" action="`)
	p.url(action)
	p.raw(`">`)
	p.csrf()
	fields()
	p.raw(`<button type="submit">`)
	p.t(headingID)
	p.raw(`</button></form></div>`)
}

func fileInput(p *page, name string, required bool) {
	p.raw(`<label>`)
	p.t("SourceDocument")
	p.raw(` <input type="file" name="`)
	p.text(name)
	p.raw(`" accept=".pdf,.txt,.md"`)
	if required {
		p.raw(` required`)
	}
	p.raw(`></label>`)
}

func numberInput(p *page, labelID, name string, value int) {
	p.raw(`<label>`)
	p.t(labelID)
	p.raw(` <input type="number" min="1" name="`)
	p.text(name)
	p.rawf(`" value="%d"></label>`, value)
}

func uploadForm(p *page) {
	multipartForm(p, "/questions/upload", "UploadQuestions", func() {
		p.raw(`<input type="file" name="questions_file" accept=".json,.yaml,.yml" required>`)
	})
}

func generateForms(p *page) {
	multipartForm(p, "/questions/generate", "GenerateQuestion", func() {
		p.raw(`<label>`)
		p.t("Topic")
		p.raw(` <input name="topic" required></label>`)
		fileInput(p, "document", false)
	})
	multipartForm(p, "/questions/generate-paper", "GeneratePaper", func() {
		p.raw(`<label>`)
		p.t("Subject")
		p.raw(` <input name="subject" required></label>`)
		numberInput(p, "NumberOfQuestions", "count", 10)
		numberInput(p, "NumberOfMCQ", "mcq_count", 5)
		p.raw(`<label>`)
		p.t("Difficulty")
		p.raw(` <select name="difficulty">`)
		for _, d := range []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard} {
			p.raw(`<option value="`)
			p.text(string(d))
			p.raw(`"`)
			if d == model.DifficultyMedium {
				p.raw(` selected`)
			}
			p.raw(`>`)
			p.text(string(d))
			p.raw(`</option>`)
		}
		p.raw(`</select></label>`)
		fileInput(p, "document", false)
	})
	multipartForm(p, "/questions/extract", "ExtractQuestions", func() {
		fileInput(p, "document", true)
	})
	multipartForm(p, "/worksheet", "GenerateWorksheet", func() {
		numberInput(p, "NumberOfQuestions", "count", 10)
		fileInput(p, "document", true)
		p.raw(`<label><input type="checkbox" name="format" value="pdf"> PDF</label>`)
	})
}

// EditQuestionPage renders the edit form for one question.
func EditQuestionPage(q model.Question, flash Flash) templ.Component {
	body := component(func(p *page) {
		p.raw(`<div class="card"><h1>`)
		p.t("Edit")
		p.raw(`</h1><form method="post" action="`)
		p.url("/questions/" + q.ID + "/edit")
		p.raw(`">`)
		p.csrf()
		p.raw(`<label>`)
		p.t("Stem")
		p.raw(` <textarea name="stem" rows="3" cols="80" required>`)
		p.text(q.Stem)
		p.raw(`</textarea></label><fieldset><legend>`)
		p.t("Options")
		p.raw(`</legend>`)
		for i := 0; i < 4; i++ {
			value := ""
			if i < len(q.Options) {
				value = q.Options[i]
			}
			p.rawf(`<label><input type="radio" name="correct_answer_index" value="%d"`, i)
			if i == q.CorrectAnswerIndex {
				p.raw(` checked`)
			}
			p.rawf(`> <input name="option_%d" value="`, i)
			p.text(value)
			p.raw(`"></label>`)
		}
		p.raw(`</fieldset><label>`)
		p.t("Explanation")
		p.raw(` <textarea name="explanation" rows="2" cols="80">`)
		p.text(q.Explanation)
		p.raw(`</textarea></label><label>`)
		p.t("Type")
		p.raw(` <select name="type">`)
		for _, t := range model.QuestionTypes {
			p.raw(`<option value="`)
			p.text(string(t))
			p.raw(`"`)
			if t == q.Type {
				p.raw(` selected`)
			}
			p.raw(`>`)
			p.t(typeLabelID(t))
			p.raw(`</option>`)
		}
		p.raw(`</select></label><label>`)
		p.t("Difficulty")
		p.raw(` <select name="difficulty">`)
		for _, d := range []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard} {
			p.raw(`<option value="`)
			p.text(string(d))
			p.raw(`"`)
			if d == q.Difficulty {
				p.raw(` selected`)
			}
			p.raw(`>`)
			p.text(string(d))
			p.raw(`</option>`)
		}
		p.raw(`</select></label>`)
		numberInput(p, "Marks", "marks", q.Marks)
		p.raw(`<label>`)
		p.t("Topic")
		p.raw(` <input name="topic" value="`)
		p.text(q.Topic)
		p.raw(`" required></label><label><input type="checkbox" name="approved" value="1"`)
		if q.Approved {
			p.raw(` checked`)
		}
		p.raw(`> `)
		p.t("Approved")
		p.raw(`</label><button type="submit">`)
		p.t("Save")
		p.raw(`</button></form></div>`)
	})
	return component(func(p *page) {
		p.component(Layout(q.Topic, flash, body))
	})
}
