package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"quizprogress/internal/cache"
	"quizprogress/internal/config"
	"quizprogress/internal/model"
	"quizprogress/internal/service"
	"quizprogress/internal/transport/ws"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

// fakeLMS answers by "METHOD path"; unknown routes return 404
type fakeLMS struct {
	mu     sync.Mutex
	routes map[string]fakeReply
	calls  []string
}

type fakeReply struct {
	status int
	body   string
}

func (f *fakeLMS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.calls = append(f.calls, key)
	reply, ok := f.routes[key]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"not found"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	w.Write([]byte(reply.body))
}

func (f *fakeLMS) called(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}

type testEnv struct {
	handler http.Handler
	store   cache.Store
	lms     *fakeLMS
	auth    *service.AuthService
}

func newTestEnv(t *testing.T, routes map[string]fakeReply) *testEnv {
	t.Helper()

	lms := &fakeLMS{routes: routes}
	upstream := httptest.NewServer(lms)
	t.Cleanup(upstream.Close)

	api := service.NewLMSClient(config.LMSConfig{
		BaseURL:     upstream.URL,
		Timeout:     2 * time.Second,
		MaxRetries:  1,
		BaseBackoff: time.Millisecond,
	})
	store := cache.NewMemoryStore()
	auth := service.NewAuthService(testSecret)
	attempts := service.NewAttemptService(api, service.NewReconcilerFactory(store, api, 4))

	hub := ws.NewHub()
	t.Cleanup(hub.Close)
	attempts.SetBroadcaster(hub)

	return &testEnv{
		handler: NewRouter(&Container{AuthService: auth, AttemptService: attempts, WSHub: hub}, ""),
		store:   store,
		lms:     lms,
		auth:    auth,
	}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.auth.GenerateUserToken(userID, "student", time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) seed(t *testing.T, userID string, rec *model.AttemptRecord) {
	t.Helper()
	progress := cache.NewProgressCache(cache.Namespace(e.store, userID))
	require.NoError(t, progress.Put(context.Background(), rec))
}

func (e *testEnv) record(t *testing.T, userID string, quizID int64) *model.AttemptRecord {
	t.Helper()
	rec, err := cache.NewProgressCache(cache.Namespace(e.store, userID)).Get(context.Background(), quizID)
	require.NoError(t, err)
	return rec
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightSkipsAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodOptions, "/v1/quizzes/7/progress", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/v1/quizzes/7/progress", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/quizzes/7/progress", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetProgress(t *testing.T) {
	env := newTestEnv(t, map[string]fakeReply{
		"GET /quiz-attempts/42/resume": {http.StatusOK, `{"success":true,"data":{"AttemptId":42,"Status":1,"StartTime":"2026-03-01T10:00:00Z"}}`},
		"GET /quiz-attempts/43/resume": {http.StatusOK, `{"success":true,"data":{"attemptId":43,"status":2}}`},
	})
	tok := env.token(t, "u1")

	t.Run("no record", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/quizzes/5/progress", tok, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.NoAttempt(5), decode[model.ResumeDecision](t, rec))
	})

	t.Run("confirmed in progress", func(t *testing.T) {
		env.seed(t, "u1", &model.AttemptRecord{QuizID: 7, AttemptID: 42, Status: model.AttemptInProgress})

		rec := env.do(t, http.MethodGet, "/v1/quizzes/7/progress", tok, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.Resume(42, 7), decode[model.ResumeDecision](t, rec))

		stored := env.record(t, "u1", 7)
		require.NotNil(t, stored)
		assert.Equal(t, "2026-03-01T10:00:00Z", stored.StartedAt)
	})

	t.Run("submitted upstream", func(t *testing.T) {
		env.seed(t, "u1", &model.AttemptRecord{QuizID: 8, AttemptID: 43, Status: model.AttemptInProgress})

		rec := env.do(t, http.MethodGet, "/v1/quizzes/8/progress", tok, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.NoAttempt(8), decode[model.ResumeDecision](t, rec))
		assert.Nil(t, env.record(t, "u1", 8))
	})

	t.Run("bad quiz id", func(t *testing.T) {
		for _, id := range []string{"0", "-1", "abc"} {
			rec := env.do(t, http.MethodGet, "/v1/quizzes/"+id+"/progress", tok, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		}
	})
}

func TestProgressIsPerUser(t *testing.T) {
	env := newTestEnv(t, map[string]fakeReply{
		"GET /quiz-attempts/42/resume": {http.StatusOK, `{"success":true,"data":{"attemptId":42,"status":1}}`},
	})
	env.seed(t, "u1", &model.AttemptRecord{QuizID: 7, AttemptID: 42})

	rec := env.do(t, http.MethodGet, "/v1/quizzes/7/progress", env.token(t, "u2"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[model.ResumeDecision](t, rec).Resume)
	assert.False(t, env.lms.called("GET /quiz-attempts/42/resume"))
}

func TestClearProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, "u1")
	env.seed(t, "u1", &model.AttemptRecord{QuizID: 7, AttemptID: 42})

	rec := env.do(t, http.MethodDelete, "/v1/quizzes/7/progress", tok, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, env.record(t, "u1", 7))

	// clearing twice is fine
	rec = env.do(t, http.MethodDelete, "/v1/quizzes/7/progress", tok, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListProgress(t *testing.T) {
	env := newTestEnv(t, map[string]fakeReply{
		"GET /quiz-attempts/42/resume": {http.StatusOK, `{"success":true,"data":{"attemptId":42,"status":1}}`},
	})
	tok := env.token(t, "u1")
	env.seed(t, "u1", &model.AttemptRecord{QuizID: 7, AttemptID: 42})
	env.seed(t, "u1", &model.AttemptRecord{QuizID: 9, AttemptID: 44})

	rec := env.do(t, http.MethodGet, "/v1/progress?quizIds=7,9,11", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[map[string]model.ResumeDecision](t, rec)
	assert.Equal(t, map[string]model.ResumeDecision{
		"7":  model.Resume(42, 7),
		"9":  model.NoAttempt(9),
		"11": model.NoAttempt(11),
	}, got)
	// 404 on resume clears the stale record
	assert.Nil(t, env.record(t, "u1", 9))

	for _, q := range []string{"", "1,x", "0"} {
		rec := env.do(t, http.MethodGet, "/v1/progress?quizIds="+q, tok, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestProgressByAssessment(t *testing.T) {
	env := newTestEnv(t, map[string]fakeReply{
		"GET /quiz-attempts/42/resume": {http.StatusOK, `{"success":true,"data":{"attemptId":42,"status":1}}`},
		"GET /quiz-attempts/50/resume": {http.StatusOK, `{"success":true,"data":{"attemptId":50,"status":1}}`},
	})
	tok := env.token(t, "u1")
	env.seed(t, "u1", &model.AttemptRecord{QuizID: 7, AttemptID: 42, AssessmentID: 3})
	env.seed(t, "u1", &model.AttemptRecord{QuizID: 8, AttemptID: 50, AssessmentID: 4})

	rec := env.do(t, http.MethodGet, "/v1/assessments/3/progress", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.ResumeDecision{model.Resume(42, 7)}, decode[[]model.ResumeDecision](t, rec))
}

func TestBeginAttempt(t *testing.T) {
	env := newTestEnv(t, map[string]fakeReply{
		"POST /quizzes/7/attempts":     {http.StatusOK, `{"success":true,"data":{"id":100,"quizId":7,"status":1}}`},
		"POST /quizzes/8/attempts":     {http.StatusBadRequest, `{"success":false,"message":"Quiz is closed"}`},
		"POST /quizzes/9/attempts":     {http.StatusInternalServerError, `{}`},
		"GET /quiz-attempts/42/resume": {http.StatusOK, `{"success":true,"data":{"attemptId":42,"status":1}}`},
	})
	tok := env.token(t, "u1")

	t.Run("starts new attempt", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/quizzes/7/attempts", tok, `{"assessmentId":3,"courseId":1,"lessonId":2,"moduleId":5}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		res := decode[model.BeginResult](t, rec)
		assert.False(t, res.Resumed)
		assert.Equal(t, int64(100), res.AttemptID)

		stored := env.record(t, "u1", 7)
		require.NotNil(t, stored)
		assert.Equal(t, int64(100), stored.AttemptID)
		assert.Equal(t, int64(3), stored.AssessmentID)
		assert.Equal(t, model.AttemptInProgress, stored.Status)
	})

	t.Run("resumes open attempt", func(t *testing.T) {
		env.seed(t, "u1", &model.AttemptRecord{QuizID: 12, AttemptID: 42})

		rec := env.do(t, http.MethodPost, "/v1/quizzes/12/attempts", tok, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decode[model.BeginResult](t, rec)
		assert.True(t, res.Resumed)
		assert.Equal(t, int64(42), res.AttemptID)
		assert.False(t, env.lms.called("POST /quizzes/12/attempts"))
	})

	t.Run("server rejects", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/quizzes/8/attempts", tok, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Quiz is closed", decode[map[string]string](t, rec)["error"])
		assert.Nil(t, env.record(t, "u1", 8))
	})

	t.Run("server fails", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/quizzes/9/attempts", tok, "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, service.MsgStartFailed, decode[map[string]string](t, rec)["error"])
	})

	t.Run("invalid context", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/quizzes/7/attempts", tok, `{"courseId":-1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/quizzes/7/attempts", tok, `{"courseId":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitAttempt(t *testing.T) {
	env := newTestEnv(t, map[string]fakeReply{
		"POST /quiz-attempts/100/submit": {http.StatusOK, `{"success":true,"data":{"AttemptID":100,"Status":2,"Score":9.5}}`},
	})
	tok := env.token(t, "u1")
	env.seed(t, "u1", &model.AttemptRecord{QuizID: 7, AttemptID: 100})
	env.seed(t, "u1", &model.AttemptRecord{QuizID: 8, AttemptID: 101})

	rec := env.do(t, http.MethodPost, "/v1/quizzes/7/attempts/100/submit", tok, `{"answers":{"1":"b"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[model.SubmitPayload](t, rec)
	assert.Equal(t, int64(100), res.AttemptID)
	assert.Equal(t, int64(7), res.QuizID)
	assert.Equal(t, model.AttemptSubmitted, res.Status)
	require.NotNil(t, res.Score)
	assert.InDelta(t, 9.5, *res.Score, 0.0001)
	assert.Nil(t, env.record(t, "u1", 7))

	// unknown attempt: 404 upstream, record kept
	rec = env.do(t, http.MethodPost, "/v1/quizzes/8/attempts/101/submit", tok, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotNil(t, env.record(t, "u1", 8))

	rec = env.do(t, http.MethodPost, "/v1/quizzes/8/attempts/zero/submit", tok, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwaggerServed(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/swagger/doc.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/quizzes/{quizId}/progress")
}
