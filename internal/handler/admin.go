package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exambank/internal/handler/views"
	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/store"
)

// passwordCost is the bcrypt cost for new passwords.
var passwordCost = bcrypt.DefaultCost

func (h *Handler) renderUsers(w http.ResponseWriter, r *http.Request, status int, flash views.Flash) {
	students, err := h.store.ListUsersByRole(model.UserRoleStudent)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	teachers, err := h.store.ListUsersByRole(model.UserRoleTeacher)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	render(w, r, status, views.AdminUsersPage(views.AdminUsersView{
		Students: students,
		Teachers: teachers,
	}, flash))
}

func (h *Handler) handleAdminUsersPage(w http.ResponseWriter, r *http.Request) {
	h.renderUsers(w, r, http.StatusOK, views.Flash{})
}

// handleCreateStudent registers a student under a username derived from the
// display name, with the configured default password.
func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var form studentForm
	if err := decodeForm(r, &form); err != nil {
		h.renderUsers(w, r, http.StatusBadRequest, views.Flash{Message: fieldErrors(err), Error: true})
		return
	}
	username, err := h.store.UniqueUsername(form.DisplayName)
	if err != nil {
		slog.Error("failed to derive username", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(h.config.DefaultPass), passwordCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_, err = h.store.CreateUser(model.User{
		Username:     username,
		DisplayName:  strings.TrimSpace(form.DisplayName),
		PasswordHash: string(hash),
		Role:         model.UserRoleStudent,
		Active:       true,
		Class:        strings.TrimSpace(form.Class),
	})
	if err != nil {
		h.userError(w, r, err)
		return
	}
	h.renderUsers(w, r, http.StatusOK, views.Flash{
		Message: appI18n.Td(r.Context(), "StudentCreated", map[string]any{
			"Username": username,
			"Password": h.config.DefaultPass,
		}),
	})
}

func (h *Handler) handleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	var form teacherForm
	if err := decodeForm(r, &form); err != nil {
		h.renderUsers(w, r, http.StatusBadRequest, views.Flash{Message: fieldErrors(err), Error: true})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), passwordCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_, err = h.store.CreateUser(model.User{
		Username:     strings.ToLower(form.Username),
		DisplayName:  strings.TrimSpace(form.DisplayName),
		PasswordHash: string(hash),
		Role:         model.UserRoleTeacher,
		Active:       true,
		Subject:      strings.TrimSpace(form.Subject),
	})
	if err != nil {
		h.userError(w, r, err)
		return
	}
	http.Redirect(w, r, h.path("/admin/users"), http.StatusSeeOther)
}

func (h *Handler) userError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrUsernameTaken) {
		h.renderUsers(w, r, http.StatusConflict, views.Flash{Message: err.Error(), Error: true})
		return
	}
	slog.Error("user operation failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// loadUser resolves {userID}. Admin accounts cannot be managed here.
func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, ok := idParam(r, "userID")
	if !ok {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return nil, false
	}
	u, err := h.store.GetUserByID(id)
	if err != nil {
		slog.Error("failed to get user", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if u == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return nil, false
	}
	if u.Role == model.UserRoleAdmin {
		http.Error(w, "admin accounts cannot be changed here", http.StatusForbidden)
		return nil, false
	}
	return u, true
}

func (h *Handler) handleEditUserPage(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	render(w, r, http.StatusOK, views.EditUserPage(*u, views.Flash{}))
}

func (h *Handler) handleEditUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	var form userForm
	if err := decodeForm(r, &form); err != nil {
		render(w, r, http.StatusBadRequest, views.EditUserPage(*u, views.Flash{Message: fieldErrors(err), Error: true}))
		return
	}
	u.DisplayName = strings.TrimSpace(form.DisplayName)
	switch u.Role {
	case model.UserRoleStudent:
		u.Class = strings.TrimSpace(form.Class)
	case model.UserRoleTeacher:
		u.Subject = strings.TrimSpace(form.Subject)
	}
	if err := h.store.UpdateUser(*u); err != nil {
		h.userError(w, r, err)
		return
	}
	if form.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), passwordCost)
		if err != nil {
			slog.Error("failed to hash password", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err := h.store.SetPasswordHash(u.ID, string(hash)); err != nil {
			h.userError(w, r, err)
			return
		}
		slog.Info("password reset", "id", u.ID)
	}
	http.Redirect(w, r, h.path("/admin/users"), http.StatusSeeOther)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteUser(u.ID); err != nil {
		h.userError(w, r, err)
		return
	}
	http.Redirect(w, r, h.path("/admin/users"), http.StatusSeeOther)
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	if err := h.store.ToggleUserActive(u.ID); err != nil {
		slog.Error("failed to toggle user active", "id", u.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.path("/admin/users"), http.StatusSeeOther)
}

func (h *Handler) handleUserReport(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.renderReport(w, r, *u, "/admin/users/"+formatID(u.ID)+"/report.pdf")
}

func (h *Handler) handleUserReportPDF(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.writeReportPDF(w, r, *u)
}
