// Package views renders the HTML pages. Components are plain
// templ.ComponentFunc values so they compose with templ-generated code.
package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
)

// page accumulates output and remembers the first write error.
type page struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (p *page) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *page) rawf(format string, args ...any) {
	p.raw(fmt.Sprintf(format, args...))
}

func (p *page) text(s string) {
	p.raw(templ.EscapeString(s))
}

// t writes a translated, escaped message.
func (p *page) t(id string) {
	p.text(appI18n.T(p.ctx, id))
}

func (p *page) td(id string, data map[string]any) {
	p.text(appI18n.Td(p.ctx, id, data))
}

// url writes an escaped, base-path-prefixed URL.
func (p *page) url(path string) {
	p.text(model.BasePathFromContext(p.ctx) + path)
}

func (p *page) csrf() {
	p.raw(`<input type="hidden" name="csrf_token" value="`)
	p.text(model.CSRFTokenFromContext(p.ctx))
	p.raw(`">`)
}

// postButton renders a one-button form.
func (p *page) postButton(action, labelID, class string) {
	p.raw(`<form method="post" class="inline" action="`)
	p.url(action)
	p.raw(`">`)
	p.csrf()
	p.raw(`<button type="submit" class="`)
	p.text(class)
	p.raw(`">`)
	p.t(labelID)
	p.raw(`</button></form>`)
}

func (p *page) component(c templ.Component) {
	if p.err == nil {
		p.err = c.Render(p.ctx, p.w)
	}
}

func component(fn func(p *page)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{ctx: ctx, w: w}
		fn(p)
		return p.err
	})
}

func typeLabelID(t model.QuestionType) string {
	switch t {
	case model.TypeMultipleChoice:
		return "TypeMultipleChoice"
	case model.TypeTrueFalse:
		return "TypeTrueFalse"
	case model.TypeFillBlank:
		return "TypeFillBlank"
	}
	return string(t)
}

func percent(score, total int) string {
	return fmt.Sprintf("%.0f", model.Percentage(score, total))
}
