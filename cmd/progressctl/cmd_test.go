package main

import (
	"bytes"
	"context"
	"quizprogress/internal/cache"
	"quizprogress/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*commandLine, cache.Store, *bytes.Buffer) {
	t.Helper()
	store := cache.NewMemoryStore()
	out := &bytes.Buffer{}
	return &commandLine{store: store, out: out}, store, out
}

func seed(t *testing.T, store cache.Store, userID string, records ...*model.AttemptRecord) {
	t.Helper()
	progress := cache.NewProgressCache(cache.Namespace(store, userID))
	for _, r := range records {
		require.NoError(t, progress.Put(context.Background(), r))
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, _ := setup(t)

	tests := []cliTest{
		{name: "no command", args: []string{}, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "list: no user", args: []string{"list"}, wantErr: errHelp},
		{name: "clear: no quiz", args: []string{"clear", "-user", "u1"}, wantErr: errHelp},
		{name: "clear: bad quiz", args: []string{"clear", "-user", "u1", "-quiz", "-3"}, wantErr: errHelp},
		{name: "clear: non-int quiz", args: []string{"clear", "-user", "u1", "-quiz", "abc"}, wantErrStr: "invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), append([]string{"progressctl"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_list(t *testing.T) {
	cli, store, out := setup(t)
	seed(t, store, "u1",
		&model.AttemptRecord{QuizID: 7, AttemptID: 42, AssessmentID: 3, Status: model.AttemptInProgress, StartedAt: "2026-01-02T03:04:05Z"},
		&model.AttemptRecord{QuizID: 9, AttemptID: 43, Status: model.AttemptInProgress},
	)
	seed(t, store, "u2", &model.AttemptRecord{QuizID: 11, AttemptID: 99})

	require.NoError(t, cli.run(context.Background(), []string{"progressctl", "list", "-user", "u1"}))

	got := out.String()
	assert.Contains(t, got, "QUIZ")
	assert.Contains(t, got, "42")
	assert.Contains(t, got, "43")
	assert.Contains(t, got, "in_progress")
	assert.NotContains(t, got, "99")
}

func Test_commandLine_listEmpty(t *testing.T) {
	cli, _, out := setup(t)

	require.NoError(t, cli.run(context.Background(), []string{"progressctl", "list", "-user", "nobody"}))
	assert.Contains(t, out.String(), "no cached attempts for user nobody")
}

func Test_commandLine_clear(t *testing.T) {
	cli, store, out := setup(t)
	seed(t, store, "u1", &model.AttemptRecord{QuizID: 7, AttemptID: 42})
	seed(t, store, "u2", &model.AttemptRecord{QuizID: 7, AttemptID: 50})

	require.NoError(t, cli.run(context.Background(), []string{"progressctl", "clear", "-user", "u1", "-quiz", "7"}))
	assert.Contains(t, out.String(), "cleared attempt 42 of quiz 7")

	rec, err := cache.NewProgressCache(cache.Namespace(store, "u1")).Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, rec)

	other, err := cache.NewProgressCache(cache.Namespace(store, "u2")).Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, int64(50), other.AttemptID)
}

func Test_commandLine_clearCorrupt(t *testing.T) {
	cli, store, out := setup(t)
	ns := cache.Namespace(store, "u1")
	require.NoError(t, ns.Set(context.Background(), cache.ProgressKey(7), []byte("{not json")))

	require.NoError(t, cli.run(context.Background(), []string{"progressctl", "clear", "-user", "u1", "-quiz", "7"}))
	assert.Contains(t, out.String(), "cleared corrupt record of quiz 7")

	_, err := ns.Get(context.Background(), cache.ProgressKey(7))
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func Test_commandLine_clearMissing(t *testing.T) {
	cli, _, out := setup(t)

	require.NoError(t, cli.run(context.Background(), []string{"progressctl", "clear", "-user", "u1", "-quiz", "8"}))
	assert.Contains(t, out.String(), "nothing cached for quiz 8")
}
