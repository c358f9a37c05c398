package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"quizprogress/internal/cache"
	"quizprogress/internal/logger"
	"quizprogress/internal/model"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidQuizID    = errors.New("invalid quiz id")
	ErrInvalidAttemptID = errors.New("invalid attempt id")
	ErrInvalidContext   = errors.New("invalid attempt context")
)

var validate = validator.New()

// Reconciler decides whether a user has a resumable attempt on a quiz.
// The local record is only a hint; every positive answer is confirmed by the LMS.
type Reconciler struct {
	progress    cache.ProgressCache
	api         AttemptAPI
	token       string
	concurrency int
	now         func() time.Time
	log         *slog.Logger
}

// NewReconciler creates a reconciler bound to one user's progress and token
func NewReconciler(progress cache.ProgressCache, api AttemptAPI, token string, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		progress:    progress,
		api:         api,
		token:       token,
		concurrency: concurrency,
		now:         time.Now,
		log:         logger.With("reconciler"),
	}
}

// CheckInProgress returns Resume only when the LMS confirmed, during this
// call, that the cached attempt is still open. It never fails: every error
// degrades to NoAttempt.
func (r *Reconciler) CheckInProgress(ctx context.Context, quizID int64) model.ResumeDecision {
	if quizID <= 0 {
		return model.NoAttempt(quizID)
	}
	log := r.log.With("quiz_id", quizID)

	record, err := r.progress.Get(ctx, quizID)
	if errors.Is(err, cache.ErrCorruptRecord) {
		log.Warn("discarding corrupt progress record", "error", err)
		r.clear(ctx, quizID)
		return model.NoAttempt(quizID)
	}
	if err != nil {
		log.Error("failed to read progress record", "error", err)
		return model.NoAttempt(quizID)
	}
	if record == nil {
		return model.NoAttempt(quizID)
	}

	log = log.With("attempt_id", record.AttemptID)
	res := r.api.ResumeAttempt(ctx, r.token, record.AttemptID)
	switch {
	case res.OK():
		if !res.Data.Status.InProgress() {
			log.Info("attempt no longer in progress", "status", res.Data.Status.String())
			r.clear(ctx, quizID)
			return model.NoAttempt(quizID)
		}
		r.refresh(ctx, record, res.Data)
		return model.Resume(record.AttemptID, quizID)

	case res.Rejected():
		log.Info("attempt rejected by lms", "outcome", res.Outcome.String(), "status", res.Status)
		r.clear(ctx, quizID)
		return model.NoAttempt(quizID)

	default:
		// keep the record; the next check verifies it again
		log.Warn("attempt verification unavailable", "status", res.Status, "error", res.Err)
		return model.NoAttempt(quizID)
	}
}

// RecordNewAttempt stores a fresh record, replacing any stale one for the quiz
func (r *Reconciler) RecordNewAttempt(ctx context.Context, quizID, attemptID int64, actx model.AttemptContext) error {
	if quizID <= 0 {
		return ErrInvalidQuizID
	}
	if attemptID <= 0 {
		return ErrInvalidAttemptID
	}
	if err := validate.Struct(actx); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}

	record := &model.AttemptRecord{
		QuizID:       quizID,
		AttemptID:    attemptID,
		AssessmentID: actx.AssessmentID,
		CourseID:     actx.CourseID,
		LessonID:     actx.LessonID,
		ModuleID:     actx.ModuleID,
		StartedAt:    r.now().UTC().Format(time.RFC3339),
		Status:       model.AttemptInProgress,
	}
	if err := r.progress.Put(ctx, record); err != nil {
		return fmt.Errorf("record attempt %d for quiz %d: %w", attemptID, quizID, err)
	}
	return nil
}

// ClearAttempt removes the record for a quiz
func (r *Reconciler) ClearAttempt(ctx context.Context, quizID int64) error {
	if quizID <= 0 {
		return ErrInvalidQuizID
	}
	if err := r.progress.Delete(ctx, quizID); err != nil {
		return fmt.Errorf("clear attempt for quiz %d: %w", quizID, err)
	}
	return nil
}

// CheckMany checks several quizzes independently. Checks may finish in any
// order; each one only touches its own key.
func (r *Reconciler) CheckMany(ctx context.Context, quizIDs []int64) map[int64]model.ResumeDecision {
	unique := make([]int64, 0, len(quizIDs))
	seen := make(map[int64]bool, len(quizIDs))
	for _, id := range quizIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	results := make(map[int64]model.ResumeDecision, len(unique))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, id := range unique {
		g.Go(func() error {
			decision := r.CheckInProgress(ctx, id)
			mu.Lock()
			results[id] = decision
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

// FindByAssessment returns the verified resumable attempts of an assessment,
// ordered by quiz id
func (r *Reconciler) FindByAssessment(ctx context.Context, assessmentID int64) []model.ResumeDecision {
	records, err := r.progress.List(ctx)
	if err != nil {
		r.log.Error("failed to list progress records", "assessment_id", assessmentID, "error", err)
		return []model.ResumeDecision{}
	}

	quizIDs := make([]int64, 0)
	for _, rec := range records {
		if rec.AssessmentID == assessmentID {
			quizIDs = append(quizIDs, rec.QuizID)
		}
	}

	decisions := make([]model.ResumeDecision, 0, len(quizIDs))
	for _, d := range r.CheckMany(ctx, quizIDs) {
		if d.Resume {
			decisions = append(decisions, d)
		}
	}
	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].QuizID < decisions[j].QuizID
	})
	return decisions
}

func (r *Reconciler) clear(ctx context.Context, quizID int64) {
	if err := r.progress.Delete(ctx, quizID); err != nil {
		r.log.Error("failed to delete progress record", "quiz_id", quizID, "error", err)
	}
}

// refresh writes back fields the LMS reports differently
func (r *Reconciler) refresh(ctx context.Context, record *model.AttemptRecord, payload model.ResumePayload) {
	changed := false
	if record.Status != payload.Status {
		record.Status = payload.Status
		changed = true
	}
	if payload.StartedAt != "" && payload.StartedAt != record.StartedAt {
		record.StartedAt = payload.StartedAt
		changed = true
	}
	if !changed {
		return
	}
	if err := r.progress.Put(ctx, record); err != nil {
		r.log.Warn("failed to refresh progress record", "quiz_id", record.QuizID, "error", err)
	}
}

// ReconcilerFactory builds reconcilers scoped to the calling user
type ReconcilerFactory struct {
	store       cache.Store
	api         AttemptAPI
	concurrency int
}

// NewReconcilerFactory creates a new reconciler factory
func NewReconcilerFactory(store cache.Store, api AttemptAPI, concurrency int) *ReconcilerFactory {
	return &ReconcilerFactory{
		store:       store,
		api:         api,
		concurrency: concurrency,
	}
}

// For returns a reconciler over the user's own keyspace
func (f *ReconcilerFactory) For(user *model.User) *Reconciler {
	progress := cache.NewProgressCache(cache.Namespace(f.store, user.ID))
	return NewReconciler(progress, f.api, user.Token, f.concurrency)
}
