package handler

import (
	"net/http"
	"quizprogress/internal/model"
	"quizprogress/internal/service"
	"quizprogress/internal/transport/rest/middleware"
	"strconv"
)

// maxBatch caps how many quizzes one list request may check
const maxBatch = 100

// ProgressHandler handles attempt progress endpoints
type ProgressHandler struct {
	attemptSvc *service.AttemptService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(attemptSvc *service.AttemptService) *ProgressHandler {
	return &ProgressHandler{attemptSvc: attemptSvc}
}

// Get handles GET /v1/quizzes/{quizId}/progress
//
//	@Summary	Check for a resumable attempt
//	@Tags		progress
//	@Produce	json
//	@Param		quizId	path		int	true	"Quiz ID"
//	@Success	200		{object}	model.ResumeDecision
//	@Failure	400		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/quizzes/{quizId}/progress [get]
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := middleware.GetUser(r.Context())
	writeJSON(w, http.StatusOK, h.attemptSvc.Progress(r.Context(), user, quizID))
}

// Clear handles DELETE /v1/quizzes/{quizId}/progress
//
//	@Summary	Forget the cached attempt of a quiz
//	@Tags		progress
//	@Param		quizId	path	int	true	"Quiz ID"
//	@Success	204
//	@Security	BearerAuth
//	@Router		/quizzes/{quizId}/progress [delete]
func (h *ProgressHandler) Clear(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := middleware.GetUser(r.Context())
	if err := h.attemptSvc.Abandon(r.Context(), user, quizID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /v1/progress?quizIds=1,2,3
//
//	@Summary	Check several quizzes at once
//	@Tags		progress
//	@Produce	json
//	@Param		quizIds	query		string	true	"Comma separated quiz IDs"
//	@Success	200		{object}	map[string]model.ResumeDecision
//	@Failure	400		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/progress [get]
func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r.URL.Query().Get("quizIds"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "quizIds is required")
		return
	}
	if len(ids) > maxBatch {
		writeError(w, http.StatusBadRequest, "too many quiz ids, max "+strconv.Itoa(maxBatch))
		return
	}

	user := middleware.GetUser(r.Context())
	decisions := h.attemptSvc.ProgressMany(r.Context(), user, ids)

	out := make(map[string]model.ResumeDecision, len(decisions))
	for id, d := range decisions {
		out[strconv.FormatInt(id, 10)] = d
	}
	writeJSON(w, http.StatusOK, out)
}

// ByAssessment handles GET /v1/assessments/{assessmentId}/progress
//
//	@Summary	List resumable attempts of an assessment
//	@Tags		progress
//	@Produce	json
//	@Param		assessmentId	path		int	true	"Assessment ID"
//	@Success	200				{array}		model.ResumeDecision
//	@Failure	400				{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/assessments/{assessmentId}/progress [get]
func (h *ProgressHandler) ByAssessment(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := pathID(r, "assessmentId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := middleware.GetUser(r.Context())
	writeJSON(w, http.StatusOK, h.attemptSvc.ProgressForAssessment(r.Context(), user, assessmentID))
}
