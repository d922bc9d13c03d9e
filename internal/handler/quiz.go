package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exambank/internal/export"
	"github.com/pavelanni/exambank/internal/handler/views"
	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/quiz"
	"github.com/pavelanni/exambank/internal/report"
)

// answerFieldPrefix names the radio groups of the answer sheet: q_<question id>.
const answerFieldPrefix = "q_"

// questionPool returns the approved questions a new quiz draws from.
func (h *Handler) questionPool() ([]model.Question, error) {
	qs, err := h.catalog.Approved()
	if err != nil {
		return nil, err
	}
	if h.config.Topic == "" {
		return qs, nil
	}
	filtered := qs[:0:0]
	for _, q := range qs {
		if strings.EqualFold(q.Topic, h.config.Topic) {
			filtered = append(filtered, q)
		}
	}
	return filtered, nil
}

func (h *Handler) examTitle(r *http.Request) string {
	if h.config.ExamTitle != "" {
		return h.config.ExamTitle
	}
	return appI18n.T(r.Context(), "ExamTitle")
}

// quizError maps session errors to HTTP statuses.
func quizError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, quiz.ErrNotOwner):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, quiz.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("quiz error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) quizURL(id string) string {
	return h.path("/quiz/" + id)
}

func (h *Handler) handleQuizIndex(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	sess, err := h.quiz.Current(r.Context(), user.ID)
	if err != nil {
		quizError(w, err)
		return
	}
	if sess != nil {
		http.Redirect(w, r, h.quizURL(sess.ID()), http.StatusSeeOther)
		return
	}
	h.renderQuizStart(w, r, http.StatusOK, views.Flash{})
}

func (h *Handler) renderQuizStart(w http.ResponseWriter, r *http.Request, status int, flash views.Flash) {
	pool, err := h.questionPool()
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	available := len(pool)
	if n := h.config.NumQuestions; n > 0 && n < available {
		available = n
	}
	render(w, r, status, views.QuizStartPage(views.QuizStartView{
		Available: available,
		ExamTitle: h.examTitle(r),
	}, flash))
}

func (h *Handler) handleQuizStart(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	pool, err := h.questionPool()
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(pool) == 0 {
		h.renderQuizStart(w, r, http.StatusConflict, views.Flash{
			Message: appI18n.T(r.Context(), "NoQuestionsAvailable"),
			Error:   true,
		})
		return
	}
	sess, err := h.quiz.Start(r.Context(), user.ID, pool, quiz.WithLimit(h.config.NumQuestions))
	if err != nil {
		quizError(w, err)
		return
	}
	slog.Info("quiz started", "session_id", sess.ID(), "learner_id", user.ID, "questions", len(sess.Questions()))
	http.Redirect(w, r, h.quizURL(sess.ID()), http.StatusSeeOther)
}

func (h *Handler) handleQuizPage(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	sess, err := h.quiz.Get(r.Context(), chi.URLParam(r, "sessionID"), user.ID)
	if err != nil {
		quizError(w, err)
		return
	}
	st := sess.State()
	render(w, r, http.StatusOK, views.QuizPage(views.QuizView{
		SessionID: st.ID,
		ExamTitle: h.examTitle(r),
		Questions: st.Questions,
		Answers:   st.Answers,
		Submitted: st.Phase == quiz.PhaseSubmitted,
		Attempt:   st.Attempt,
	}, views.Flash{}))
}

// handleQuizAnswer records a single answer. It serves scripted clients that
// save as the learner goes; the answer sheet posts everything on submit.
func (h *Handler) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var form answerForm
	if err := decodeForm(r, &form); err != nil {
		http.Error(w, fieldErrors(err), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "sessionID")
	if err := h.quiz.RecordAnswer(r.Context(), id, user.ID, form.QuestionID, *form.Option); err != nil {
		quizError(w, err)
		return
	}
	if r.Header.Get("HX-Request") == "true" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, h.quizURL(id), http.StatusSeeOther)
}

func (h *Handler) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "sessionID")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	answers := make(map[string]int)
	for field, values := range r.PostForm {
		qid, ok := strings.CutPrefix(field, answerFieldPrefix)
		if !ok || len(values) == 0 {
			continue
		}
		opt, err := strconv.Atoi(values[0])
		if err != nil {
			http.Error(w, "invalid option for question "+qid, http.StatusBadRequest)
			return
		}
		answers[qid] = opt
	}
	if err := h.quiz.RecordAnswers(r.Context(), id, user.ID, answers); err != nil {
		quizError(w, err)
		return
	}

	if _, err := h.quiz.Submit(r.Context(), id, user.ID); err != nil && !errors.Is(err, quiz.ErrAlreadySubmitted) {
		quizError(w, err)
		return
	}
	http.Redirect(w, r, h.quizURL(id), http.StatusSeeOther)
}

func (h *Handler) handleQuizRetake(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	pool, err := h.questionPool()
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(pool) == 0 {
		h.renderQuizStart(w, r, http.StatusConflict, views.Flash{
			Message: appI18n.T(r.Context(), "NoQuestionsAvailable"),
			Error:   true,
		})
		return
	}
	sess, err := h.quiz.Retake(r.Context(), chi.URLParam(r, "sessionID"), user.ID, pool,
		quiz.WithLimit(h.config.NumQuestions))
	if err != nil {
		quizError(w, err)
		return
	}
	http.Redirect(w, r, h.quizURL(sess.ID()), http.StatusSeeOther)
}

// learnerReport loads and summarizes a learner's history.
func (h *Handler) learnerReport(learnerID int64) (report.Report, error) {
	attempts, err := h.store.ListAttempts(learnerID)
	if err != nil {
		return report.Report{}, err
	}
	return report.Summarize(attempts), nil
}

func (h *Handler) renderReport(w http.ResponseWriter, r *http.Request, learner model.User, pdfPath string) {
	rep, err := h.learnerReport(learner.ID)
	if err != nil {
		slog.Error("failed to build report", "learner_id", learner.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if h.exporter == nil {
		pdfPath = ""
	}
	render(w, r, http.StatusOK, views.ReportPage(views.ReportView{
		Learner: learner,
		Report:  rep,
		PDFPath: pdfPath,
	}))
}

func (h *Handler) writeReportPDF(w http.ResponseWriter, r *http.Request, learner model.User) {
	if h.exporter == nil {
		http.Error(w, "PDF export is not configured", http.StatusNotImplemented)
		return
	}
	rep, err := h.learnerReport(learner.ID)
	if err != nil {
		slog.Error("failed to build report", "learner_id", learner.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data, err := h.exporter.Report(r.Context(), export.LearnerReport{Learner: learner, Report: rep})
	if err != nil {
		slog.Error("failed to render report PDF", "learner_id", learner.ID, "error", err)
		http.Error(w, "failed to render PDF", http.StatusInternalServerError)
		return
	}
	writePDF(w, learner.Username+"-report.pdf", data)
}

func (h *Handler) handleMyReport(w http.ResponseWriter, r *http.Request) {
	h.renderReport(w, r, *model.UserFromContext(r.Context()), "/me/report.pdf")
}

func (h *Handler) handleMyReportPDF(w http.ResponseWriter, r *http.Request) {
	h.writeReportPDF(w, r, *model.UserFromContext(r.Context()))
}
