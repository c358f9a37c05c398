package model

import "fmt"

// AttemptStatus mirrors the LMS attempt-status enumeration
type AttemptStatus int

const (
	AttemptNotStarted AttemptStatus = 0
	AttemptInProgress AttemptStatus = 1
	AttemptSubmitted  AttemptStatus = 2
	AttemptGraded     AttemptStatus = 3
	AttemptAbandoned  AttemptStatus = 4
	AttemptExpired    AttemptStatus = 5
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptNotStarted:
		return "not_started"
	case AttemptInProgress:
		return "in_progress"
	case AttemptSubmitted:
		return "submitted"
	case AttemptGraded:
		return "graded"
	case AttemptAbandoned:
		return "abandoned"
	case AttemptExpired:
		return "expired"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// InProgress reports whether the attempt can still be resumed
func (s AttemptStatus) InProgress() bool {
	return s == AttemptInProgress
}

// AttemptRecord is the cached mirror of an in-progress quiz attempt.
// It is advisory only: the LMS owns the real attempt status.
type AttemptRecord struct {
	QuizID       int64         `json:"quizId"`
	AttemptID    int64         `json:"attemptId"`
	AssessmentID int64         `json:"assessmentId"`
	CourseID     int64         `json:"courseId"`
	LessonID     int64         `json:"lessonId"`
	ModuleID     int64         `json:"moduleId"`
	StartedAt    string        `json:"startedAt"`
	Status       AttemptStatus `json:"status"`
}

// AttemptContext is the course hierarchy an attempt belongs to
type AttemptContext struct {
	AssessmentID int64 `json:"assessmentId" validate:"gte=0"`
	CourseID     int64 `json:"courseId" validate:"gte=0"`
	LessonID     int64 `json:"lessonId" validate:"gte=0"`
	ModuleID     int64 `json:"moduleId" validate:"gte=0"`
}

// ResumeDecision tells the UI whether to offer "Continue" or "Start"
type ResumeDecision struct {
	Resume    bool  `json:"resume"`
	AttemptID int64 `json:"attemptId,omitempty"`
	QuizID    int64 `json:"quizId"`
}

// NoAttempt means there is nothing to resume for the quiz
func NoAttempt(quizID int64) ResumeDecision {
	return ResumeDecision{QuizID: quizID}
}

// Resume means the LMS confirmed the attempt is still open
func Resume(attemptID, quizID int64) ResumeDecision {
	return ResumeDecision{Resume: true, AttemptID: attemptID, QuizID: quizID}
}

// BeginResult is returned when the user opens a quiz
type BeginResult struct {
	Resumed   bool   `json:"resumed"`
	AttemptID int64  `json:"attemptId"`
	QuizID    int64  `json:"quizId"`
	StartedAt string `json:"startedAt,omitempty"`
}
