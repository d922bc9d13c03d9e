package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exambank/internal/catalog"
	"github.com/pavelanni/exambank/internal/handler/views"
	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/llm"
	"github.com/pavelanni/exambank/internal/model"
)

const maxUploadBytes = 10 << 20

func (h *Handler) renderQuestions(w http.ResponseWriter, r *http.Request, status int, flash views.Flash, preview []model.Question) {
	filter := model.QuestionType(r.URL.Query().Get("type"))
	var (
		qs  []model.Question
		err error
	)
	if filter != "" {
		qs, err = h.catalog.ListByType(filter)
	} else {
		qs, err = h.catalog.All()
	}
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	render(w, r, status, views.QuestionsPage(views.QuestionsView{
		Filter:      filter,
		Groups:      catalog.ByTopic(qs),
		CanGenerate: h.generator != nil,
		CanExport:   h.exporter != nil,
		CanPublish:  h.exporter != nil && h.exporter.CanPublish(),
		Preview:     preview,
	}, flash))
}

func (h *Handler) questionsFlash(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.renderQuestions(w, r, status, views.Flash{Message: msg, Error: status >= 400}, nil)
}

func (h *Handler) handleQuestionsPage(w http.ResponseWriter, r *http.Request) {
	h.renderQuestions(w, r, http.StatusOK, views.Flash{}, nil)
}

func (h *Handler) handleApproveQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "questionID")
	approved := r.FormValue("approved") != "0"
	if err := h.catalog.SetApproved(id, approved); err != nil {
		h.catalogError(w, r, err)
		return
	}
	slog.Info("question approval changed", "id", id, "approved", approved)
	http.Redirect(w, r, h.path("/questions"), http.StatusSeeOther)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "questionID")
	if err := h.catalog.Delete(id); err != nil {
		h.catalogError(w, r, err)
		return
	}
	slog.Info("question deleted", "id", id)
	http.Redirect(w, r, h.path("/questions"), http.StatusSeeOther)
}

func (h *Handler) handleEditQuestionPage(w http.ResponseWriter, r *http.Request) {
	q, err := h.catalog.Get(chi.URLParam(r, "questionID"))
	if err != nil {
		h.catalogError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, views.EditQuestionPage(q, views.Flash{}))
}

func (h *Handler) handleEditQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.catalog.Get(chi.URLParam(r, "questionID"))
	if err != nil {
		h.catalogError(w, r, err)
		return
	}
	var form questionForm
	if err := decodeForm(r, &form); err != nil {
		render(w, r, http.StatusBadRequest, views.EditQuestionPage(q, views.Flash{Message: fieldErrors(err), Error: true}))
		return
	}
	edited, err := form.apply(q)
	if err == nil {
		_, err = h.catalog.Update(edited)
	}
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidQuestion) {
			render(w, r, http.StatusBadRequest, views.EditQuestionPage(edited, views.Flash{Message: err.Error(), Error: true}))
			return
		}
		h.catalogError(w, r, err)
		return
	}
	slog.Info("question updated", "id", q.ID)
	http.Redirect(w, r, h.path("/questions"), http.StatusSeeOther)
}

func (h *Handler) catalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalidQuestion):
		h.questionsFlash(w, r, http.StatusBadRequest, err.Error())
	default:
		slog.Error("catalog error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleUploadQuestions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("questions_file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	qs, err := h.catalog.ImportOnce(header.Filename, data)
	switch {
	case errors.Is(err, catalog.ErrAlreadyImported):
		h.questionsFlash(w, r, http.StatusConflict, fmt.Sprintf("%s: %v", header.Filename, err))
		return
	case err != nil:
		slog.Warn("question upload rejected", "filename", header.Filename, "error", err)
		h.questionsFlash(w, r, http.StatusBadRequest, err.Error())
		return
	}
	slog.Info("uploaded questions", "filename", header.Filename, "count", len(qs))
	h.questionsFlash(w, r, http.StatusOK, appI18n.Tp(r.Context(), "GeneratedCount", len(qs)))
}

// readDocument returns the uploaded source document in field, or nil when
// none was sent and it is optional.
func readDocument(r *http.Request, field string, required bool) (*llm.Document, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("%w: %v", llm.ErrInvalidRequest, err)
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		if required {
			return nil, fmt.Errorf("%w: a source document is required", llm.ErrInvalidRequest)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrInvalidRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	return &llm.Document{
		Name:     header.Filename,
		MIMEType: documentType(header.Filename, header.Header.Get("Content-Type"), data),
		Data:     data,
	}, nil
}

func documentType(name, declared string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

// generationError reports a failed generation on the question bank page.
func (h *Handler) generationError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status = http.StatusBadGateway
		msg    = err.Error()
	)
	var (
		maxTokens *llm.ErrMaxTokensExceeded
		rateLimit *llm.ErrRateLimit
	)
	switch {
	case errors.Is(err, llm.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, llm.ErrUnsupportedDocument):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, llm.ErrContentBlocked):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &maxTokens):
		msg = "the response was cut off; request fewer questions"
	case errors.As(err, &rateLimit):
		status = http.StatusTooManyRequests
	}
	slog.Warn("generation failed", "path", r.URL.Path, "status", status, "error", err)
	h.questionsFlash(w, r, status, msg)
}

func (h *Handler) requireGenerator(w http.ResponseWriter) bool {
	if h.generator == nil {
		http.Error(w, "question generation is not configured", http.StatusNotImplemented)
		return false
	}
	return true
}

// storeGenerated adds a generated batch as pending questions.
func (h *Handler) storeGenerated(w http.ResponseWriter, r *http.Request, qs []model.Question) {
	added, err := h.catalog.AddGenerated(qs)
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	h.questionsFlash(w, r, http.StatusOK, appI18n.Tp(r.Context(), "GeneratedCount", len(added)))
}

func (h *Handler) handleGenerateQuestion(w http.ResponseWriter, r *http.Request) {
	if !h.requireGenerator(w) {
		return
	}
	var form generateForm
	if err := decodeForm(r, &form); err != nil {
		h.questionsFlash(w, r, http.StatusBadRequest, fieldErrors(err))
		return
	}
	doc, err := readDocument(r, "document", false)
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	q, err := h.generator.GenerateQuestion(r.Context(), form.Topic, doc)
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	h.storeGenerated(w, r, []model.Question{q})
}

func (h *Handler) handleGeneratePaper(w http.ResponseWriter, r *http.Request) {
	if !h.requireGenerator(w) {
		return
	}
	var form paperForm
	if err := decodeForm(r, &form); err != nil {
		h.questionsFlash(w, r, http.StatusBadRequest, fieldErrors(err))
		return
	}
	doc, err := readDocument(r, "document", false)
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	qs, err := h.generator.GenerateExamPaper(r.Context(), llm.PaperRequest{
		Subject:    form.Subject,
		Document:   doc,
		Count:      form.Count,
		MCQCount:   form.MCQCount,
		Difficulty: model.Difficulty(form.Difficulty),
	})
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	h.storeGenerated(w, r, qs)
}

func (h *Handler) handleExtractQuestions(w http.ResponseWriter, r *http.Request) {
	if !h.requireGenerator(w) {
		return
	}
	doc, err := readDocument(r, "document", true)
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	qs, err := h.generator.ExtractQuestions(r.Context(), doc)
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	h.storeGenerated(w, r, qs)
}

// handleWorksheet generates practice questions from a document. They are
// shown or printed, never stored.
func (h *Handler) handleWorksheet(w http.ResponseWriter, r *http.Request) {
	if !h.requireGenerator(w) {
		return
	}
	var form worksheetForm
	if err := decodeForm(r, &form); err != nil {
		h.questionsFlash(w, r, http.StatusBadRequest, fieldErrors(err))
		return
	}
	doc, err := readDocument(r, "document", true)
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	qs, err := h.generator.GenerateWorksheet(r.Context(), doc, form.Count)
	if err != nil {
		h.generationError(w, r, err)
		return
	}
	if form.Format == "pdf" && h.exporter != nil {
		data, err := h.exporter.Worksheet(r.Context(), qs)
		if err != nil {
			slog.Error("failed to render worksheet PDF", "error", err)
			http.Error(w, "failed to render PDF", http.StatusInternalServerError)
			return
		}
		writePDF(w, "worksheet.pdf", data)
		return
	}
	h.renderQuestions(w, r, http.StatusOK, views.Flash{}, qs)
}

// examPaper prints the approved questions; answers=1 adds the answer key.
func (h *Handler) examPaper(r *http.Request) ([]byte, error) {
	qs, err := h.questionPool()
	if err != nil {
		return nil, err
	}
	withAnswers := r.URL.Query().Get("answers") == "1"
	return h.exporter.ExamPaper(r.Context(), h.examTitle(r), qs, withAnswers)
}

func (h *Handler) handlePaperPDF(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		http.Error(w, "PDF export is not configured", http.StatusNotImplemented)
		return
	}
	data, err := h.examPaper(r)
	if err != nil {
		slog.Error("failed to render exam paper", "error", err)
		http.Error(w, "failed to render PDF", http.StatusInternalServerError)
		return
	}
	writePDF(w, "exam-paper.pdf", data)
}

func (h *Handler) handlePaperPublish(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil || !h.exporter.CanPublish() {
		http.Error(w, "publishing is not configured", http.StatusNotImplemented)
		return
	}
	data, err := h.examPaper(r)
	if err != nil {
		slog.Error("failed to render exam paper", "error", err)
		http.Error(w, "failed to render PDF", http.StatusInternalServerError)
		return
	}
	user := model.UserFromContext(r.Context())
	asset, err := h.exporter.Publish(r.Context(), user.ID, "exam_paper", data)
	if err != nil {
		slog.Error("failed to publish exam paper", "error", err)
		h.questionsFlash(w, r, http.StatusBadGateway, err.Error())
		return
	}
	h.questionsFlash(w, r, http.StatusOK, asset.URL)
}
