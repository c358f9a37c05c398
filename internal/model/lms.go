package model

import "encoding/json"

// Envelope is the response wrapper every LMS endpoint returns
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// ResumePayload is the canonical body of a resume verification
type ResumePayload struct {
	AttemptID int64         `json:"attemptId"`
	QuizID    int64         `json:"quizId"`
	Status    AttemptStatus `json:"status"`
	StartedAt string        `json:"startedAt,omitempty"`
}

// StartPayload is the canonical body of a started attempt
type StartPayload struct {
	AttemptID int64         `json:"attemptId"`
	QuizID    int64         `json:"quizId"`
	Status    AttemptStatus `json:"status"`
	StartedAt string        `json:"startedAt,omitempty"`
}

// SubmitPayload is the canonical body of a submitted attempt
type SubmitPayload struct {
	AttemptID   int64         `json:"attemptId"`
	QuizID      int64         `json:"quizId"`
	Status      AttemptStatus `json:"status"`
	Score       *float64      `json:"score,omitempty"`
	SubmittedAt string        `json:"submittedAt,omitempty"`
}
