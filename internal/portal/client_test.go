package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mocktest/internal/exam"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func writeEnvelope(w http.ResponseWriter, status int, msg string, data any) {
	env := Envelope{Code: status, Message: msg}
	if data != nil {
		b, _ := json.Marshal(data)
		env.Data = b
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Token: "tok", Retry: fastRetry()}, nil)
	require.NoError(t, err)
	return c
}

func TestFetchTest(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tests/t1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, "ok", exam.Test{ID: "t1", Title: "Quiz", DurationMinutes: 10, AllowedAttempts: 2})
	}))

	got, err := c.FetchTest(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Quiz", got.Title)
	assert.Equal(t, 600, got.DurationSeconds())
	assert.Equal(t, 2, got.AllowedAttempts)
}

func TestFetchQuestionsKeepsOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "ok", []exam.Question{
			{ID: "b", Type: exam.TypeShortAnswer},
			{ID: "a", Type: exam.TypeSingleChoice, Options: []exam.Option{{ID: "A"}}},
		})
	}))

	qs, err := c.FetchQuestions(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "b", qs[0].ID)
	assert.Equal(t, "a", qs[1].ID)
}

func TestNotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusNotFound, "test not found", nil)
	}))

	_, err := c.FetchTest(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, exam.ErrNotFound))

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "test not found", ae.Message)
	assert.Equal(t, int32(1), calls.Load(), "404 must not be retried")
}

func TestGetRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeEnvelope(w, http.StatusServiceUnavailable, "busy", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "ok", []exam.Result{{ID: "r1"}})
	}))

	rs, err := c.PriorResults(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, rs, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetGivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.FetchTest(context.Background(), "t1")
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadGateway, ae.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSubmitNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusInternalServerError, "db down", nil)
	}))

	_, err := c.SubmitResult(context.Background(), exam.Submission{TestID: "t1", AttemptID: "a1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tests/t1/results", r.URL.Path)
		assert.Equal(t, "a1", r.Header.Get(IdempotencyHeader))

		var sub exam.Submission
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.True(t, sub.Answers["q1"].Equal(exam.Choice("A")))
		assert.True(t, sub.Answers["q2"].Equal(exam.MultiChoice("C", "A")))
		assert.Equal(t, exam.ReasonExpired, sub.Reason)

		writeEnvelope(w, http.StatusCreated, "created", exam.Result{ID: "r9", TestID: "t1", Score: 2, MaxScore: 2, Answers: sub.Answers})
	}))

	res, err := c.SubmitResult(context.Background(), exam.Submission{
		TestID:    "t1",
		AttemptID: "a1",
		Answers:   map[string]exam.Answer{"q1": exam.Choice("A"), "q2": exam.MultiChoice("A", "C")},
		Reason:    exam.ReasonExpired,
	})
	require.NoError(t, err)
	assert.Equal(t, "r9", res.ID)
	assert.Equal(t, 2, res.Score)
}

func TestConflict(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, "no attempts left", nil)
	}))
	_, err := c.SubmitResult(context.Background(), exam.Submission{TestID: "t1"})
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
}

func TestFetchReview(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tests/t1/review", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "ok", exam.ReviewData{
			Test:   exam.Test{ID: "t1", Questions: []exam.Question{{ID: "q1", Type: exam.TypeSingleChoice, CorrectAnswers: []string{"A"}}}},
			Result: &exam.Result{ID: "r1", Answers: map[string]exam.Answer{"q1": exam.Choice("A")}},
		})
	}))

	rd, err := c.FetchReview(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, rd.Result)
	assert.Equal(t, []string{"A"}, rd.Test.Questions[0].CorrectAnswers)
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New(Config{BaseURL: srv.URL, Retry: RetryConfig{MaxAttempts: 1}}, nil)
	require.NoError(t, err)

	_, err = c.FetchTest(context.Background(), "t1")
	var unavail *ErrUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestBackoffRespectsRetryAfter(t *testing.T) {
	got := backoff(fastRetry(), 0, &APIError{Status: http.StatusTooManyRequests, RetryAfter: 2 * time.Second})
	assert.Equal(t, 2*time.Second, got)

	got = backoff(RetryConfig{InitialWait: time.Second, MaxWait: 2 * time.Second, Multiplier: 2}, 5, errors.New("x"))
	assert.LessOrEqual(t, got, 2400*time.Millisecond)
	assert.GreaterOrEqual(t, got, 1600*time.Millisecond)
}
