// Package devserver is a local stand-in for the test portal, serving tests
// from a YAML fixture and scoring submissions in memory.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/mocktest/internal/auth"
	"github.com/abhisek/mocktest/internal/exam"
	"github.com/abhisek/mocktest/internal/portal"
)

const claimsKey = "claims"

// Options configures a Server.
type Options struct {
	Fixture *Fixture
	Secret  []byte
	Logger  *zap.Logger
	Clock   func() time.Time
}

type resultKey struct {
	student string
	test    string
}

// Server holds the fixture and every result recorded since start.
type Server struct {
	fixture *Fixture
	secret  []byte
	log     *zap.Logger
	now     func() time.Time
	metrics *metrics
	engine  *gin.Engine

	mu      sync.Mutex
	results map[resultKey][]exam.Result
	byKey   map[string]exam.Result
}

// New builds a Server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Fixture == nil {
		return nil, errors.New("devserver: fixture is required")
	}
	if len(opts.Secret) == 0 {
		return nil, errors.New("devserver: secret is required")
	}
	s := &Server{
		fixture: opts.Fixture,
		secret:  opts.Secret,
		log:     opts.Logger,
		now:     opts.Clock,
		metrics: newMetrics(),
		results: make(map[resultKey][]exam.Result),
		byKey:   make(map[string]exam.Result),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.metrics.middleware())

	r.GET("/healthz", func(c *gin.Context) { success(c, gin.H{"status": "ok"}) })
	r.GET("/metrics", s.metrics.handler())

	api := r.Group("/api", s.authMiddleware())
	{
		api.GET("/tests", s.listTests)
		api.GET("/tests/:id", s.getTest)
		api.GET("/tests/:id/questions", s.getQuestions)
		api.GET("/tests/:id/results", s.listResults)
		api.POST("/tests/:id/results", s.submit)
		api.GET("/tests/:id/review", s.review)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := auth.Verify(s.secret, token)
		if err != nil {
			s.log.Debug("rejected token", zap.Error(err))
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func studentOf(c *gin.Context) string {
	return c.MustGet(claimsKey).(*auth.Claims).Student()
}

func (s *Server) lookup(c *gin.Context) (exam.Test, bool) {
	t, ok := s.fixture.Test(c.Param("id"))
	if !ok {
		notFound(c, "test")
	}
	return t, ok
}

// public strips the answer key.
func public(t exam.Test) exam.Test {
	qs := make([]exam.Question, len(t.Questions))
	for i, q := range t.Questions {
		q.CorrectAnswers = nil
		q.Explanation = ""
		qs[i] = q
	}
	t.Questions = qs
	return t
}

func (s *Server) listTests(c *gin.Context) {
	out := make([]exam.Test, 0, len(s.fixture.Tests))
	for _, t := range s.fixture.Tests {
		t.Questions = nil
		out = append(out, t)
	}
	success(c, out)
}

func (s *Server) getTest(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	t.Questions = nil
	success(c, t)
}

func (s *Server) getQuestions(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	success(c, public(t).Questions)
}

func (s *Server) listResults(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	s.mu.Lock()
	rs := append([]exam.Result{}, s.results[resultKey{studentOf(c), t.ID}]...)
	s.mu.Unlock()
	success(c, rs)
}

func (s *Server) submit(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	var sub exam.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		fail(c, http.StatusBadRequest, "invalid submission: "+err.Error())
		return
	}
	for id := range sub.Answers {
		if _, ok := t.Question(id); !ok {
			fail(c, http.StatusBadRequest, "unknown question "+id)
			return
		}
	}

	student := studentOf(c)
	key := resultKey{student, t.ID}
	idem := c.GetHeader(portal.IdempotencyHeader)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byKey[idem]; ok && idem != "" && prev.StudentID == student {
		success(c, prev)
		return
	}
	if len(s.results[key]) >= t.AllowedAttempts {
		s.metrics.submissions.WithLabelValues("rejected", string(sub.Reason)).Inc()
		fail(c, http.StatusConflict, "no attempts left")
		return
	}

	score, maxScore := Score(t, sub.Answers)
	res := exam.Result{
		ID:          uuid.NewString(),
		TestID:      t.ID,
		StudentID:   student,
		AttemptID:   sub.AttemptID,
		Score:       score,
		MaxScore:    maxScore,
		Answers:     sub.Answers,
		CompletedAt: sub.CompletedAt,
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = s.now()
	}
	s.results[key] = append(s.results[key], res)
	if idem != "" {
		s.byKey[idem] = res
	}
	s.metrics.submissions.WithLabelValues("accepted", string(sub.Reason)).Inc()
	s.log.Info("result recorded",
		zap.String("student", student),
		zap.String("test", t.ID),
		zap.Int("score", score),
		zap.Int("max", maxScore),
		zap.String("reason", string(sub.Reason)))
	created(c, res)
}

func (s *Server) review(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	s.mu.Lock()
	rs := s.results[resultKey{studentOf(c), t.ID}]
	var latest *exam.Result
	if n := len(rs); n > 0 {
		r := rs[n-1]
		latest = &r
	}
	s.mu.Unlock()

	if latest == nil {
		notFound(c, "completed attempt")
		return
	}
	success(c, exam.ReviewData{Test: t, Result: latest})
}

// Score counts correct choice answers. Free-text questions never count
// toward either figure.
func Score(t exam.Test, answers map[string]exam.Answer) (score, maxScore int) {
	for _, q := range t.Questions {
		if !q.IsChoice() || len(q.CorrectAnswers) == 0 {
			continue
		}
		maxScore++
		if exam.Grade(q, answers[q.ID]) == exam.VerdictCorrect {
			score++
		}
	}
	return score, maxScore
}
