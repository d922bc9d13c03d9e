// Package handler serves the web UI and the JSON API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/pavelanni/exambank/internal/catalog"
	"github.com/pavelanni/exambank/internal/export"
	"github.com/pavelanni/exambank/internal/llm"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/quiz"
	"github.com/pavelanni/exambank/internal/store"
)

// Deps are the services the handlers call. Generator and Exporter may be
// nil, which hides the generation and PDF features.
type Deps struct {
	Store     *store.Store
	Catalog   *catalog.Service
	Quiz      *quiz.Manager
	Generator *llm.Generator
	Exporter  *export.Exporter
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	catalog   *catalog.Service
	quiz      *quiz.Manager
	generator *llm.Generator
	exporter  *export.Exporter
	config    model.AppConfig
	cors      *cors.Cors
}

// New creates a new Handler.
func New(d Deps, cfg model.AppConfig) (*Handler, error) {
	return &Handler{
		store:     d.Store,
		catalog:   d.Catalog,
		quiz:      d.Quiz,
		generator: d.Generator,
		exporter:  d.Exporter,
		config:    cfg,
		cors: cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet},
			AllowCredentials: len(cfg.CORSOrigins) > 0,
		}),
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/", h.handleIndex)
			r.Post("/logout", h.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleStudent))
				r.Get("/quiz", h.handleQuizIndex)
				r.Post("/quiz/start", h.handleQuizStart)
				r.Get("/quiz/{sessionID}", h.handleQuizPage)
				r.Post("/quiz/{sessionID}/answer", h.handleQuizAnswer)
				r.Post("/quiz/{sessionID}/submit", h.handleQuizSubmit)
				r.Post("/quiz/{sessionID}/retake", h.handleQuizRetake)
				r.Get("/me/report", h.handleMyReport)
				r.Get("/me/report.pdf", h.handleMyReportPDF)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
				r.Get("/questions", h.handleQuestionsPage)
				r.Get("/questions/paper.pdf", h.handlePaperPDF)
				r.Post("/questions/paper/publish", h.handlePaperPublish)
				r.Post("/questions/upload", h.handleUploadQuestions)
				r.Post("/questions/generate", h.handleGenerateQuestion)
				r.Post("/questions/generate-paper", h.handleGeneratePaper)
				r.Post("/questions/extract", h.handleExtractQuestions)
				r.Get("/questions/{questionID}/edit", h.handleEditQuestionPage)
				r.Post("/questions/{questionID}/edit", h.handleEditQuestion)
				r.Post("/questions/{questionID}/approve", h.handleApproveQuestion)
				r.Post("/questions/{questionID}/delete", h.handleDeleteQuestion)
				r.Post("/worksheet", h.handleWorksheet)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleAdmin))
				r.Get("/admin/users", h.handleAdminUsersPage)
				r.Post("/admin/students", h.handleCreateStudent)
				r.Post("/admin/teachers", h.handleCreateTeacher)
				r.Get("/admin/users/{userID}/edit", h.handleEditUserPage)
				r.Post("/admin/users/{userID}/edit", h.handleEditUser)
				r.Post("/admin/users/{userID}/delete", h.handleDeleteUser)
				r.Post("/admin/users/{userID}/toggle", h.handleToggleUserActive)
				r.Get("/admin/users/{userID}/report", h.handleUserReport)
				r.Get("/admin/users/{userID}/report.pdf", h.handleUserReportPDF)
			})
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.cors.Handler)
		r.Use(h.requireAPIAuth)
		r.Get("/learners/{userID}/report", h.handleAPIReport)
		r.Get("/learners/{userID}/attempts", h.handleAPIAttempts)
		r.With(requireRole(model.UserRoleTeacher, model.UserRoleAdmin)).
			Get("/questions/stats", h.handleAPIQuestionStats)
	})
}

// BasePathMiddleware stores the configured base path in the request context
// so views can build links.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	target := "/questions"
	switch user.Role {
	case model.UserRoleStudent:
		target = "/quiz"
	case model.UserRoleAdmin:
		target = "/admin/users"
	}
	http.Redirect(w, r, h.path(target), http.StatusSeeOther)
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writePDF(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("write pdf", "error", err)
	}
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}
