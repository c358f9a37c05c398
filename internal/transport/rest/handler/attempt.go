package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"quizprogress/internal/model"
	"quizprogress/internal/service"
	"quizprogress/internal/transport/rest/middleware"
)

const maxBodyBytes = 1 << 20

// AttemptHandler handles the start/resume/submit endpoints
type AttemptHandler struct {
	attemptSvc *service.AttemptService
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(attemptSvc *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptSvc: attemptSvc}
}

// SubmitRequest is the body of a submission
type SubmitRequest struct {
	Answers json.RawMessage `json:"answers"`
}

// Begin handles POST /v1/quizzes/{quizId}/attempts
//
//	@Summary	Resume the open attempt or start a new one
//	@Tags		attempts
//	@Accept		json
//	@Produce	json
//	@Param		quizId	path		int						true	"Quiz ID"
//	@Param		body	body		model.AttemptContext	false	"Course hierarchy of the quiz"
//	@Success	200		{object}	model.BeginResult		"resumed"
//	@Success	201		{object}	model.BeginResult		"started"
//	@Failure	400		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Failure	502		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/quizzes/{quizId}/attempts [post]
func (h *AttemptHandler) Begin(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var actx model.AttemptContext
	if err := decodeOptional(r, &actx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := middleware.GetUser(r.Context())
	res, err := h.attemptSvc.Begin(r.Context(), user, quizID, actx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// Submit handles POST /v1/quizzes/{quizId}/attempts/{attemptId}/submit
//
//	@Summary	Submit an attempt
//	@Tags		attempts
//	@Accept		json
//	@Produce	json
//	@Param		quizId		path		int				true	"Quiz ID"
//	@Param		attemptId	path		int				true	"Attempt ID"
//	@Param		body		body		SubmitRequest	false	"Answers"
//	@Success	200			{object}	model.SubmitPayload
//	@Failure	400			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Failure	502			{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/quizzes/{quizId}/attempts/{attemptId}/submit [post]
func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	attemptID, err := pathID(r, "attemptId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SubmitRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := middleware.GetUser(r.Context())
	res, err := h.attemptSvc.Submit(r.Context(), user, quizID, attemptID, req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeOptional decodes a JSON body; an empty body leaves v untouched
func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
