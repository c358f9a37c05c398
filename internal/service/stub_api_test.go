package service

import (
	"context"
	"encoding/json"
	"quizprogress/internal/model"
	"sync"
)

// stubAPI is an AttemptAPI whose answers are set per test
type stubAPI struct {
	mu          sync.Mutex
	resume      func(attemptID int64) CallResult[model.ResumePayload]
	start       func(quizID int64) CallResult[model.StartPayload]
	submit      func(attemptID int64, answers json.RawMessage) CallResult[model.SubmitPayload]
	resumeCalls []int64
	startCalls  []int64
	submitCalls []int64
	tokens      []string
}

func (s *stubAPI) ResumeAttempt(ctx context.Context, token string, attemptID int64) CallResult[model.ResumePayload] {
	s.mu.Lock()
	s.resumeCalls = append(s.resumeCalls, attemptID)
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()
	if s.resume == nil {
		return CallResult[model.ResumePayload]{Outcome: OutcomeNotFound, Status: 404}
	}
	return s.resume(attemptID)
}

func (s *stubAPI) StartAttempt(ctx context.Context, token string, quizID int64) CallResult[model.StartPayload] {
	s.mu.Lock()
	s.startCalls = append(s.startCalls, quizID)
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()
	if s.start == nil {
		return CallResult[model.StartPayload]{Outcome: OutcomeTransient}
	}
	return s.start(quizID)
}

func (s *stubAPI) SubmitAttempt(ctx context.Context, token string, attemptID int64, answers json.RawMessage) CallResult[model.SubmitPayload] {
	s.mu.Lock()
	s.submitCalls = append(s.submitCalls, attemptID)
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()
	if s.submit == nil {
		return CallResult[model.SubmitPayload]{Outcome: OutcomeTransient}
	}
	return s.submit(attemptID, answers)
}

func resumeWith(status model.AttemptStatus) func(int64) CallResult[model.ResumePayload] {
	return func(attemptID int64) CallResult[model.ResumePayload] {
		return CallResult[model.ResumePayload]{
			Outcome: OutcomeOK,
			Status:  200,
			Data:    model.ResumePayload{AttemptID: attemptID, Status: status},
		}
	}
}

func resumeFails(outcome Outcome, status int) func(int64) CallResult[model.ResumePayload] {
	return func(int64) CallResult[model.ResumePayload] {
		return CallResult[model.ResumePayload]{Outcome: outcome, Status: status}
	}
}
