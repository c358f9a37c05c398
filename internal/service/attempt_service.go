package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"quizprogress/internal/logger"
	"quizprogress/internal/model"
)

// Fallback messages when the LMS gives no reason for a failure
const (
	MsgStartFailed  = "Failed to start the quiz. Please try again."
	MsgSubmitFailed = "Failed to submit the quiz. Please try again."
)

// NotifyError is a failure the UI shows to the user as a notification
type NotifyError struct {
	Op      string
	Outcome Outcome
	Message string
	Err     error
}

func (e *NotifyError) Error() string {
	return e.Message
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

func notifyError[T any](op, fallback string, res CallResult[T]) *NotifyError {
	msg := res.Message
	if msg == "" {
		msg = fallback
	}
	return &NotifyError{Op: op, Outcome: res.Outcome, Message: msg, Err: res.Err}
}

// AttemptService runs the start/resume/submit lifecycle of quiz attempts
type AttemptService struct {
	api         AttemptAPI
	reconcilers *ReconcilerFactory
	broadcaster Broadcaster
	log         *slog.Logger
}

// NewAttemptService creates a new attempt service
func NewAttemptService(api AttemptAPI, reconcilers *ReconcilerFactory) *AttemptService {
	return &AttemptService{
		api:         api,
		reconcilers: reconcilers,
		broadcaster: noopBroadcaster{},
		log:         logger.With("attempt_service"),
	}
}

// SetBroadcaster sets the broadcaster for attempt events
func (s *AttemptService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Progress reconciles one quiz
func (s *AttemptService) Progress(ctx context.Context, user *model.User, quizID int64) model.ResumeDecision {
	return s.reconcilers.For(user).CheckInProgress(ctx, quizID)
}

// ProgressMany reconciles a list of quizzes
func (s *AttemptService) ProgressMany(ctx context.Context, user *model.User, quizIDs []int64) map[int64]model.ResumeDecision {
	return s.reconcilers.For(user).CheckMany(ctx, quizIDs)
}

// ProgressForAssessment lists the resumable attempts of an assessment
func (s *AttemptService) ProgressForAssessment(ctx context.Context, user *model.User, assessmentID int64) []model.ResumeDecision {
	return s.reconcilers.For(user).FindByAssessment(ctx, assessmentID)
}

// Begin resumes the user's open attempt on the quiz, or starts a new one
func (s *AttemptService) Begin(ctx context.Context, user *model.User, quizID int64, actx model.AttemptContext) (*model.BeginResult, error) {
	if quizID <= 0 {
		return nil, ErrInvalidQuizID
	}
	if err := validate.Struct(actx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	rec := s.reconcilers.For(user)
	log := s.log.With("user_id", user.ID, "quiz_id", quizID)

	if d := rec.CheckInProgress(ctx, quizID); d.Resume {
		log.Info("resuming attempt", "attempt_id", d.AttemptID)
		s.broadcaster.SendToUser(user.ID, EventAttemptResumable, d)
		return &model.BeginResult{Resumed: true, AttemptID: d.AttemptID, QuizID: quizID}, nil
	}

	res := s.api.StartAttempt(ctx, user.Token, quizID)
	if !res.OK() || res.Data.AttemptID <= 0 {
		nerr := notifyError("start", MsgStartFailed, res)
		if res.OK() {
			nerr.Outcome = OutcomeTransient
			nerr.Message = MsgStartFailed
		}
		log.Warn("failed to start attempt", "outcome", nerr.Outcome.String(), "status", res.Status, "error", res.Err)
		s.broadcaster.SendToUser(user.ID, EventNotification, map[string]string{"level": "error", "message": nerr.Message})
		return nil, nerr
	}

	attemptID := res.Data.AttemptID
	if err := rec.RecordNewAttempt(ctx, quizID, attemptID, actx); err != nil {
		log.Error("failed to record new attempt", "attempt_id", attemptID, "error", err)
	}

	log.Info("attempt started", "attempt_id", attemptID)
	result := &model.BeginResult{
		AttemptID: attemptID,
		QuizID:    quizID,
		StartedAt: res.Data.StartedAt,
	}
	s.broadcaster.SendToUser(user.ID, EventAttemptStarted, result)
	return result, nil
}

// Submit submits the attempt and drops its progress record
func (s *AttemptService) Submit(ctx context.Context, user *model.User, quizID, attemptID int64, answers json.RawMessage) (*model.SubmitPayload, error) {
	if quizID <= 0 {
		return nil, ErrInvalidQuizID
	}
	if attemptID <= 0 {
		return nil, ErrInvalidAttemptID
	}
	log := s.log.With("user_id", user.ID, "quiz_id", quizID, "attempt_id", attemptID)

	res := s.api.SubmitAttempt(ctx, user.Token, attemptID, answers)
	if !res.OK() {
		nerr := notifyError("submit", MsgSubmitFailed, res)
		log.Warn("failed to submit attempt", "outcome", res.Outcome.String(), "status", res.Status, "error", res.Err)
		s.broadcaster.SendToUser(user.ID, EventNotification, map[string]string{"level": "error", "message": nerr.Message})
		return nil, nerr
	}

	if err := s.reconcilers.For(user).ClearAttempt(ctx, quizID); err != nil {
		log.Error("failed to clear submitted attempt", "error", err)
	}

	payload := res.Data
	if payload.AttemptID == 0 {
		payload.AttemptID = attemptID
	}
	if payload.QuizID == 0 {
		payload.QuizID = quizID
	}
	log.Info("attempt submitted")
	s.broadcaster.SendToUser(user.ID, EventAttemptSubmitted, payload)
	return &payload, nil
}

// Abandon forgets the local record without touching the LMS
func (s *AttemptService) Abandon(ctx context.Context, user *model.User, quizID int64) error {
	if err := s.reconcilers.For(user).ClearAttempt(ctx, quizID); err != nil {
		return err
	}
	s.broadcaster.SendToUser(user.ID, EventAttemptCleared, model.NoAttempt(quizID))
	return nil
}
