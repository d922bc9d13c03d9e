package views

import (
	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
)

const style = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2328}
header{background:#1f3a5f;color:#fff;padding:.6rem 1.2rem;display:flex;gap:1rem;align-items:center}
header a{color:#fff;text-decoration:none}header .spacer{flex:1}
main{max-width:960px;margin:1.5rem auto;padding:0 1rem}
.card{background:#fff;border:1px solid #d0d7de;border-radius:6px;padding:1rem;margin-bottom:1rem}
.flash{padding:.6rem 1rem;border-radius:6px;margin-bottom:1rem;background:#ddf4ff}
.flash.error{background:#ffebe9}
table{border-collapse:collapse;width:100%}th,td{padding:.4rem;border-bottom:1px solid #d0d7de;text-align:left}
form.inline{display:inline}button{cursor:pointer}
.correct{color:#1a7f37}.incorrect{color:#cf222e}.muted{color:#656d76}
.strength{color:#1a7f37}.weakness{color:#cf222e}
label{display:block;margin:.4rem 0}`

// Flash is an optional message shown above the page body.
type Flash struct {
	Message string
	Error   bool
}

// Layout wraps body in the page chrome. The navigation depends on the role
// of the user in the context.
func Layout(title string, flash Flash, body templ.Component) templ.Component {
	return component(func(p *page) {
		p.raw(`<!DOCTYPE html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"><title>`)
		p.text(title)
		p.raw(` - `)
		p.t("AppTitle")
		p.raw(`</title><style>` + style + `</style></head><body><header><a href="`)
		p.url("/")
		p.raw(`"><strong>`)
		p.t("AppTitle")
		p.raw(`</strong></a>`)
		if u := model.UserFromContext(p.ctx); u != nil {
			nav(p, u)
			p.raw(`<span class="spacer"></span><span>`)
			p.text(u.DisplayName)
			p.raw(`</span>`)
			p.postButton("/logout", "Logout", "")
		}
		p.raw(`</header><main>`)
		if flash.Message != "" {
			p.raw(`<div class="flash`)
			if flash.Error {
				p.raw(` error`)
			}
			p.raw(`">`)
			p.text(flash.Message)
			p.raw(`</div>`)
		}
		p.component(body)
		p.raw(`</main></body></html>`)
	})
}

func nav(p *page, u *model.User) {
	link := func(path, labelID string) {
		p.raw(`<a href="`)
		p.url(path)
		p.raw(`">`)
		p.t(labelID)
		p.raw(`</a>`)
	}
	switch u.Role {
	case model.UserRoleStudent:
		link("/quiz", "StartQuiz")
		link("/me/report", "MyReport")
	case model.UserRoleTeacher:
		link("/questions", "QuestionBank")
	case model.UserRoleAdmin:
		link("/questions", "QuestionBank")
		link("/admin/users", "Users")
	}
}

// LoginPage renders the sign-in form.
func LoginPage(errMsg string) templ.Component {
	body := component(func(p *page) {
		p.raw(`<div class="card"><h1>`)
		p.t("Login")
		p.raw(`</h1><form method="post" action="`)
		p.url("/login")
		p.raw(`">`)
		p.csrf()
		p.raw(`<label>`)
		p.t("Username")
		p.raw(` <input name="username" autocomplete="username" required></label><label>`)
		p.t("Password")
		p.raw(` <input type="password" name="password" autocomplete="current-password" required></label><button type="submit">`)
		p.t("Login")
		p.raw(`</button></form></div>`)
	})
	return component(func(p *page) {
		p.component(Layout(appI18n.T(p.ctx, "Login"), Flash{Message: errMsg, Error: errMsg != ""}, body))
	})
}
