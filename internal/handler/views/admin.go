package views

import (
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
)

// AdminUsersView lists accounts split by role.
type AdminUsersView struct {
	Students []model.User
	Teachers []model.User
}

// AdminUsersPage renders the user management page.
func AdminUsersPage(v AdminUsersView, flash Flash) templ.Component {
	body := component(func(p *page) {
		userTable(p, "Students", v.Students, true)
		p.raw(`<div class="card"><h2>`)
		p.t("AddStudent")
		p.raw(`</h2><form method="post" action="`)
		p.url("/admin/students")
		p.raw(`">`)
		p.csrf()
		textInput(p, "Name", "display_name", "", true)
		textInput(p, "Class", "class", "", false)
		p.raw(`<button type="submit">`)
		p.t("AddStudent")
		p.raw(`</button></form></div>`)

		userTable(p, "Teachers", v.Teachers, false)
		p.raw(`<div class="card"><h2>`)
		p.t("AddTeacher")
		p.raw(`</h2><form method="post" action="`)
		p.url("/admin/teachers")
		p.raw(`">`)
		p.csrf()
		textInput(p, "Username", "username", "", true)
		textInput(p, "Name", "display_name", "", true)
		textInput(p, "Subject", "subject", "", false)
		p.raw(`<label>`)
		p.t("Password")
		p.raw(` <input type="password" name="password" required></label><button type="submit">`)
		p.t("AddTeacher")
		p.raw(`</button></form></div>`)
	})
	return component(func(p *page) {
		p.component(Layout(appI18n.T(p.ctx, "Users"), flash, body))
	})
}

func textInput(p *page, labelID, name, value string, required bool) {
	p.raw(`<label>`)
	p.t(labelID)
	p.raw(` <input name="`)
	p.text(name)
	p.raw(`" value="`)
	p.text(value)
	p.raw(`"`)
	if required {
		p.raw(` required`)
	}
	p.raw(`></label>`)
}

func userTable(p *page, headingID string, users []model.User, students bool) {
	p.raw(`<div class="card"><h2>`)
	p.t(headingID)
	p.raw(`</h2><table><tr><th>`)
	p.t("Username")
	p.raw(`</th><th>`)
	p.t("Name")
	p.raw(`</th><th>`)
	if students {
		p.t("Class")
	} else {
		p.t("Subject")
	}
	p.raw(`</th><th>`)
	p.t("Status")
	p.raw(`</th><th></th></tr>`)
	for _, u := range users {
		base := "/admin/users/" + strconv.FormatInt(u.ID, 10)
		p.raw(`<tr><td>`)
		p.text(u.Username)
		p.raw(`</td><td>`)
		p.text(u.DisplayName)
		p.raw(`</td><td>`)
		if students {
			p.text(u.Class)
		} else {
			p.text(u.Subject)
		}
		p.raw(`</td><td>`)
		if u.Active {
			p.t("Active")
		} else {
			p.t("Inactive")
		}
		p.raw(`</td><td><a href="`)
		p.url(base + "/edit")
		p.raw(`">`)
		p.t("Edit")
		p.raw(`</a> `)
		if students {
			p.raw(`<a href="`)
			p.url(base + "/report")
			p.raw(`">`)
			p.t("Report")
			p.raw(`</a> `)
		}
		if u.Active {
			p.postButton(base+"/toggle", "Disable", "")
		} else {
			p.postButton(base+"/toggle", "Enable", "")
		}
		p.postButton(base+"/delete", "Delete", "danger")
		p.raw(`</td></tr>`)
	}
	p.raw(`</table></div>`)
}

// EditUserPage renders the account edit form. A blank password keeps the
// current one.
func EditUserPage(u model.User, flash Flash) templ.Component {
	body := component(func(p *page) {
		p.raw(`<div class="card"><h1>`)
		p.text(u.Username)
		p.raw(`</h1><form method="post" action="`)
		p.url("/admin/users/" + strconv.FormatInt(u.ID, 10) + "/edit")
		p.raw(`">`)
		p.csrf()
		textInput(p, "Name", "display_name", u.DisplayName, true)
		switch u.Role {
		case model.UserRoleStudent:
			textInput(p, "Class", "class", u.Class, false)
		case model.UserRoleTeacher:
			textInput(p, "Subject", "subject", u.Subject, false)
		}
		p.raw(`<label>`)
		p.t("Password")
		p.raw(` <input type="password" name="password" autocomplete="new-password"></label><button type="submit">`)
		p.t("Save")
		p.raw(`</button></form></div>`)
	})
	return component(func(p *page) {
		p.component(Layout(u.DisplayName, flash, body))
	})
}
