package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/report"
)

type apiError struct {
	Error string `json:"error"`
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// apiLearner resolves {userID} for the JSON API. Students may only read
// their own data.
func (h *Handler) apiLearner(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, ok := idParam(r, "userID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid learner id"})
		return nil, false
	}
	caller := model.UserFromContext(r.Context())
	if caller.Role == model.UserRoleStudent && caller.ID != id {
		writeJSON(w, http.StatusForbidden, apiError{Error: "forbidden"})
		return nil, false
	}
	u, err := h.store.GetUserByID(id)
	if err != nil {
		slog.Error("failed to get user", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
		return nil, false
	}
	if u == nil || u.Role != model.UserRoleStudent {
		writeJSON(w, http.StatusNotFound, apiError{Error: "learner not found"})
		return nil, false
	}
	return u, true
}

type reportResponse struct {
	Learner string `json:"learner"`
	report.Report
}

func (h *Handler) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	u, ok := h.apiLearner(w, r)
	if !ok {
		return
	}
	rep, err := h.learnerReport(u.ID)
	if err != nil {
		slog.Error("failed to build report", "learner_id", u.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Learner: u.Username, Report: rep})
}

func (h *Handler) handleAPIAttempts(w http.ResponseWriter, r *http.Request) {
	u, ok := h.apiLearner(w, r)
	if !ok {
		return
	}
	attempts, err := h.store.ListAttempts(u.ID)
	if err != nil {
		slog.Error("failed to list attempts", "learner_id", u.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) handleAPIQuestionStats(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.store.ListAllAttempts()
	if err != nil {
		slog.Error("failed to list attempts", "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, report.ItemStats(attempts))
}
