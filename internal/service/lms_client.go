package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"quizprogress/internal/config"
	"quizprogress/internal/logger"
	"quizprogress/internal/model"
	"time"

	"github.com/google/uuid"
)

// AttemptAPI is the part of the LMS the attempt lifecycle depends on
type AttemptAPI interface {
	ResumeAttempt(ctx context.Context, token string, attemptID int64) CallResult[model.ResumePayload]
	StartAttempt(ctx context.Context, token string, quizID int64) CallResult[model.StartPayload]
	SubmitAttempt(ctx context.Context, token string, attemptID int64, answers json.RawMessage) CallResult[model.SubmitPayload]
}

// LMSClient wraps the LMS REST API
type LMSClient struct {
	cfg        config.LMSConfig
	httpClient *http.Client
	maxRetries int
	backoff    func(attempt int) time.Duration
	log        *slog.Logger
}

var _ AttemptAPI = (*LMSClient)(nil)

// NewLMSClient creates a new LMS API client
func NewLMSClient(cfg config.LMSConfig) *LMSClient {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	base := cfg.BaseBackoff
	return &LMSClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: maxRetries,
		backoff: func(attempt int) time.Duration {
			return base << attempt
		},
		log: logger.With("lms_client"),
	}
}

// Wire shapes. The LMS mixes camelCase and PascalCase field names;
// encoding/json matches names case-insensitively, and normalize* maps
// the remaining aliases onto the canonical model types.

type wireAttempt struct {
	ID          int64               `json:"id"`
	AttemptID   int64               `json:"attemptId"`
	QuizID      int64               `json:"quizId"`
	Status      model.AttemptStatus `json:"status"`
	StartedAt   string              `json:"startedAt"`
	StartTime   string              `json:"startTime"`
	Score       *float64            `json:"score"`
	SubmittedAt string              `json:"submittedAt"`
}

func (w wireAttempt) attemptID() int64 {
	if w.AttemptID != 0 {
		return w.AttemptID
	}
	return w.ID
}

func (w wireAttempt) startedAt() string {
	if w.StartedAt != "" {
		return w.StartedAt
	}
	return w.StartTime
}

func normalizeResume(w wireAttempt) model.ResumePayload {
	return model.ResumePayload{
		AttemptID: w.attemptID(),
		QuizID:    w.QuizID,
		Status:    w.Status,
		StartedAt: w.startedAt(),
	}
}

func normalizeStart(w wireAttempt) model.StartPayload {
	return model.StartPayload{
		AttemptID: w.attemptID(),
		QuizID:    w.QuizID,
		Status:    w.Status,
		StartedAt: w.startedAt(),
	}
}

func normalizeSubmit(w wireAttempt) model.SubmitPayload {
	return model.SubmitPayload{
		AttemptID:   w.attemptID(),
		QuizID:      w.QuizID,
		Status:      w.Status,
		Score:       w.Score,
		SubmittedAt: w.SubmittedAt,
	}
}

// ResumeAttempt asks the LMS whether an attempt can still be resumed
func (c *LMSClient) ResumeAttempt(ctx context.Context, token string, attemptID int64) CallResult[model.ResumePayload] {
	path := fmt.Sprintf("/quiz-attempts/%d/resume", attemptID)
	return call(ctx, c, http.MethodGet, path, token, nil, normalizeResume)
}

// StartAttempt starts a new attempt on a quiz
func (c *LMSClient) StartAttempt(ctx context.Context, token string, quizID int64) CallResult[model.StartPayload] {
	path := fmt.Sprintf("/quizzes/%d/attempts", quizID)
	return call(ctx, c, http.MethodPost, path, token, nil, normalizeStart)
}

// SubmitAttempt submits the answers of an attempt
func (c *LMSClient) SubmitAttempt(ctx context.Context, token string, attemptID int64, answers json.RawMessage) CallResult[model.SubmitPayload] {
	path := fmt.Sprintf("/quiz-attempts/%d/submit", attemptID)
	var body []byte
	if len(answers) > 0 {
		body, _ = json.Marshal(map[string]json.RawMessage{"answers": answers})
	}
	return call(ctx, c, http.MethodPost, path, token, body, normalizeSubmit)
}

// call performs the request and classifies the response into an Outcome
func call[T any](ctx context.Context, c *LMSClient, method, path, token string, body []byte, normalize func(wireAttempt) T) CallResult[T] {
	status, respBody, err := c.doRequest(ctx, method, path, token, body)
	if err != nil {
		return CallResult[T]{Outcome: OutcomeTransient, Status: status, Err: err}
	}

	var env model.Envelope
	envErr := json.Unmarshal(respBody, &env)

	switch {
	case status == http.StatusNotFound:
		return CallResult[T]{Outcome: OutcomeNotFound, Status: status, Message: env.Message}
	case status == http.StatusBadRequest:
		return CallResult[T]{Outcome: OutcomeBadRequest, Status: status, Message: env.Message}
	case status < 200 || status > 299:
		return CallResult[T]{
			Outcome: OutcomeTransient,
			Status:  status,
			Message: env.Message,
			Err:     fmt.Errorf("lms: %s %s returned %d", method, path, status),
		}
	}

	if envErr != nil {
		return CallResult[T]{Outcome: OutcomeTransient, Status: status, Err: fmt.Errorf("lms: malformed envelope: %w", envErr)}
	}
	if !env.Success {
		return CallResult[T]{Outcome: OutcomeBadRequest, Status: status, Message: env.Message}
	}

	var wire wireAttempt
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &wire); err != nil {
			return CallResult[T]{Outcome: OutcomeTransient, Status: status, Err: fmt.Errorf("lms: malformed data: %w", err)}
		}
	}
	return CallResult[T]{Outcome: OutcomeOK, Status: status, Data: normalize(wire), Message: env.Message}
}

// doRequest performs the HTTP request, retrying transport errors and 429s.
// A non-nil error means no usable response was received.
func (c *LMSClient) doRequest(ctx context.Context, method, path, token string, body []byte) (int, []byte, error) {
	url := c.cfg.Endpoint(path)
	requestID := uuid.NewString()
	log := c.log.With("method", method, "path", path, "request_id", requestID)

	var lastErr error
	lastStatus := 0
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt - 1)
			log.Info("retrying request", "attempt", attempt+1, "max", c.maxRetries, "backoff", wait)
			select {
			case <-ctx.Done():
				return lastStatus, nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Warn("request failed", "attempt", attempt+1, "error", err)
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return 0, nil, err
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Warn("failed to read response body", "error", err)
			lastErr = err
			lastStatus = resp.StatusCode
			continue
		}

		log.Debug("response received", "status", resp.StatusCode, "bytes", len(respBody))

		if resp.StatusCode == http.StatusTooManyRequests {
			log.Warn("rate limited", "attempt", attempt+1)
			lastErr = fmt.Errorf("rate limited")
			lastStatus = resp.StatusCode
			continue
		}

		return resp.StatusCode, respBody, nil
	}

	log.Error("max retries exceeded", "error", lastErr)
	return lastStatus, nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
