// Package testsession drives one timed attempt at a test: loading, the
// countdown, answer capture, crash-safe persistence and final submission.
package testsession

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/mocktest/internal/exam"
	"github.com/abhisek/mocktest/internal/store"
)

// Identity resolves the student taking the test.
type Identity interface {
	StudentID(ctx context.Context) (string, error)
}

// Catalog fetches test metadata.
type Catalog interface {
	FetchTest(ctx context.Context, testID string) (*exam.Test, error)
}

// QuestionBank fetches the ordered questions of a test.
type QuestionBank interface {
	FetchQuestions(ctx context.Context, testID string) ([]exam.Question, error)
}

// ResultStore lists the student's prior attempts and accepts submissions.
type ResultStore interface {
	PriorResults(ctx context.Context, testID string) ([]exam.Result, error)
	SubmitResult(ctx context.Context, sub exam.Submission) (*exam.Result, error)
}

// Deps holds the collaborators of a Controller. Events, Clock and Logger
// are optional.
type Deps struct {
	Identity  Identity
	Catalog   Catalog
	Questions QuestionBank
	Results   ResultStore
	KV        store.KV
	Events    store.EventRepo
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Controller is the attempt state machine. It is safe for concurrent use;
// network calls are made without holding the lock.
type Controller struct {
	deps Deps
	log  *zap.Logger
	now  func() time.Time

	mu           sync.Mutex
	phase        Phase
	testID       string
	studentID    string
	attemptID    string
	test         *exam.Test
	attemptsUsed int
	answers      *AnswerStore
	timer        Countdown
	remaining    int
	current      int
	resumed      bool
	submitting   bool
	autoFired    bool
	result       *exam.Result
	err          error
}

// New creates a Controller in the Loading phase.
func New(deps Deps) *Controller {
	c := &Controller{
		deps:    deps,
		log:     deps.Logger,
		now:     deps.Clock,
		phase:   PhaseLoading,
		answers: NewAnswerStore(),
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Begin loads the test, its questions and the student's prior attempts,
// then restores any in-flight attempt from local storage.
func (c *Controller) Begin(ctx context.Context, testID string) error {
	c.mu.Lock()
	if c.phase != PhaseLoading || c.testID != "" {
		c.mu.Unlock()
		return ErrAlreadyBegun
	}
	c.testID = testID
	c.mu.Unlock()

	student, err := c.deps.Identity.StudentID(ctx)
	if err != nil {
		return c.failLoad("identity", err)
	}
	test, err := c.deps.Catalog.FetchTest(ctx, testID)
	if err != nil {
		return c.failLoad("test", err)
	}
	questions, err := c.deps.Questions.FetchQuestions(ctx, testID)
	if err != nil {
		return c.failLoad("questions", err)
	}

	t := *test
	t.Questions = questions

	if len(questions) == 0 {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.studentID = student
		c.test = &t
		c.phase = PhaseEmptyTest
		c.err = &EmptyTestError{TestID: testID}
		return c.err
	}

	prior, err := c.deps.Results.PriorResults(ctx, testID)
	if err != nil {
		return c.failLoad("results", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.studentID = student
	c.test = &t
	c.attemptsUsed = len(prior)

	if c.attemptsUsed >= t.AllowedAttempts {
		c.phase = PhaseAttemptsExceeded
		c.err = &AttemptsExceededError{TestID: testID, Used: c.attemptsUsed, Allowed: t.AllowedAttempts}
		c.log.Info("attempts exhausted",
			zap.String("test", testID), zap.Int("used", c.attemptsUsed), zap.Int("allowed", t.AllowedAttempts))
		// A submit that reached the portal but lost its response leaves keys behind.
		if err := ClearAttempt(ctx, c.deps.KV, c.studentID, c.testID); err != nil {
			c.log.Warn("clear attempt", zap.String("test", testID), zap.Error(err))
		}
		return c.err
	}

	c.remaining = t.DurationSeconds()
	if err := c.restoreLocked(ctx); err != nil {
		c.phase = PhaseLoadError
		c.err = &LoadError{Op: "restore", Err: err}
		c.log.Warn("load failed", zap.String("test", testID), zap.String("op", "restore"), zap.Error(err))
		return c.err
	}
	c.phase = PhaseDetails
	return nil
}

func (c *Controller) failLoad(op string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseLoadError
	c.err = &LoadError{Op: op, NotFound: errors.Is(err, exam.ErrNotFound), Err: err}
	c.log.Warn("load failed", zap.String("test", c.testID), zap.String("op", op), zap.Error(err))
	return c.err
}

// restoreLocked picks up an attempt left behind by a previous run. A read
// failure is returned; it must not be mistaken for a missing attempt.
func (c *Controller) restoreLocked(ctx context.Context) error {
	p, err := loadPersisted(ctx, c.deps.KV, c.studentID, c.testID)
	if err != nil {
		return err
	}
	if !p.found() {
		return nil
	}

	answers, err := DecodeAnswers(p.answers)
	if err != nil {
		c.log.Warn("discarding unreadable answers", zap.String("test", c.testID), zap.Error(err))
		answers = NewAnswerStore()
	}
	dropped := answers.Retain(func(id string, a exam.Answer) bool {
		q, ok := c.test.Question(id)
		return ok && validAnswer(q, a) == nil
	})
	if len(dropped) > 0 {
		c.log.Info("dropped stale answers", zap.String("test", c.testID), zap.Strings("questions", dropped))
	}

	now := c.now()
	deadline := restoreDeadline(now, p.deadline, p.remaining, p.hasRemaining)
	if !deadline.IsZero() {
		c.timer.Resume(deadline)
		c.remaining = c.timer.Remaining(now)
	}

	c.answers = answers
	c.attemptID = p.attemptID
	c.resumed = true
	c.log.Info("restored attempt",
		zap.String("test", c.testID),
		zap.Int("answered", answers.AnsweredCount()),
		zap.Int("remaining", c.remaining))
	return nil
}

// StartAttempt leaves the details screen and starts or resumes the clock.
// A resumed attempt whose deadline already passed is submitted at once.
func (c *Controller) StartAttempt(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseInProgress {
		c.mu.Unlock()
		return nil
	}
	if c.phase != PhaseDetails {
		c.mu.Unlock()
		return fmt.Errorf("start attempt in phase %s: %w", c.phase, ErrNotInProgress)
	}

	now := c.now()
	if c.attemptID == "" {
		c.attemptID = uuid.NewString()
	}
	action := store.ActionResume
	if !c.timer.Anchored() {
		action = store.ActionStart
		c.timer.Start(now, c.remaining)
	}
	c.remaining = c.timer.Remaining(now)
	c.phase = PhaseInProgress

	c.setLocked(ctx, fieldAttempt, c.attemptID)
	c.setLocked(ctx, fieldDeadline, c.timer.Deadline().UTC().Format(time.RFC3339Nano))
	c.setLocked(ctx, fieldRemaining, strconv.Itoa(c.remaining))
	c.eventLocked(ctx, action, "")
	c.log.Info("attempt started",
		zap.String("test", c.testID),
		zap.String("attempt", c.attemptID),
		zap.String("action", action),
		zap.Int("remaining", c.remaining))
	expired := c.remaining <= 0
	c.mu.Unlock()

	if expired {
		_, err := c.Tick(ctx)
		return err
	}
	return nil
}

// RecordAnswer validates and stores an answer, then writes it through to
// local storage.
func (c *Controller) RecordAnswer(ctx context.Context, questionID string, a exam.Answer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if c.submitting {
		return ErrSubmitInFlight
	}
	if c.timer.Expired(c.now()) {
		return ErrTimeUp
	}
	q, ok := c.test.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if err := validAnswer(q, a); err != nil {
		return err
	}

	c.answers.Put(questionID, a)
	c.persistAnswersLocked(ctx)
	return nil
}

func validAnswer(q exam.Question, a exam.Answer) error {
	if a.Kind() != exam.KindFor(q.Type) {
		return fmt.Errorf("%w: %s wants %s, got %s", ErrAnswerKind, q.ID, exam.KindFor(q.Type), a.Kind())
	}
	for _, id := range a.Options() {
		if !q.HasOption(id) {
			return fmt.Errorf("%w: %s on %s", ErrUnknownOption, id, q.ID)
		}
	}
	return nil
}

// GoTo moves the navigation pointer to i, clamped to the question range.
// It returns the new index.
func (c *Controller) GoTo(i int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToLocked(i)
}

// Next moves to the following question, staying on the last one.
func (c *Controller) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToLocked(c.current + 1)
}

// Previous moves to the preceding question, staying on the first one.
func (c *Controller) Previous() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToLocked(c.current - 1)
}

func (c *Controller) goToLocked(i int) int {
	if c.test == nil || len(c.test.Questions) == 0 {
		return 0
	}
	c.current = max(0, min(i, len(c.test.Questions)-1))
	return c.current
}

// Tick recomputes the remaining time and persists it. When the clock
// reaches zero the attempt is submitted automatically, exactly once.
// Outside InProgress it is a no-op.
func (c *Controller) Tick(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.phase != PhaseInProgress || c.timer.Stopped() {
		rem := c.remaining
		c.mu.Unlock()
		return rem, nil
	}
	c.remaining = c.timer.Remaining(c.now())
	c.setLocked(ctx, fieldRemaining, strconv.Itoa(c.remaining))

	fire := false
	if c.remaining <= 0 && !c.autoFired {
		c.autoFired = true
		fire = !c.submitting
		c.eventLocked(ctx, store.ActionExpired, "")
		c.log.Info("time expired", zap.String("test", c.testID), zap.Bool("auto_submit", fire))
	}
	rem := c.remaining
	c.mu.Unlock()

	if fire {
		return rem, c.submit(ctx, exam.ReasonExpired)
	}
	return rem, nil
}

// Submit sends the attempt for grading. It is a no-op while a submission
// is running or after one succeeded. On failure the attempt stays in
// progress and a *SubmissionError is returned. Once time has expired every
// submit carries the expired reason.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx, exam.ReasonManual)
}

func (c *Controller) submit(ctx context.Context, reason exam.SubmitReason) error {
	c.mu.Lock()
	if c.phase == PhaseSubmitted || c.submitting {
		c.mu.Unlock()
		return nil
	}
	if c.phase != PhaseInProgress {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	if c.autoFired {
		reason = exam.ReasonExpired
	}
	now := c.now()
	c.submitting = true
	c.timer.Stop(now)
	c.remaining = c.timer.Remaining(now)
	sub := exam.Submission{
		TestID:      c.testID,
		AttemptID:   c.attemptID,
		Answers:     c.answers.Clone(),
		CompletedAt: now,
		Reason:      reason,
	}
	c.mu.Unlock()

	res, err := c.deps.Results.SubmitResult(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if err != nil {
		c.timer.Restart()
		c.remaining = c.timer.Remaining(c.now())
		c.err = &SubmissionError{Err: err}
		c.eventLocked(ctx, store.ActionSubmitFailed, err.Error())
		c.log.Warn("submit failed",
			zap.String("test", c.testID),
			zap.String("attempt", c.attemptID),
			zap.String("reason", string(reason)),
			zap.Error(err))
		return c.err
	}

	c.result = res
	c.phase = PhaseSubmitted
	c.err = nil
	c.eventLocked(ctx, store.ActionSubmit, string(reason))
	if err := ClearAttempt(ctx, c.deps.KV, c.studentID, c.testID); err != nil {
		c.log.Warn("clear attempt", zap.String("test", c.testID), zap.Error(err))
	}
	c.log.Info("attempt submitted",
		zap.String("test", c.testID),
		zap.String("attempt", c.attemptID),
		zap.String("reason", string(reason)),
		zap.Int("answered", c.answers.AnsweredCount()))
	return nil
}

// Snapshot returns a copy of the session for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	rem := c.remaining
	if c.timer.Anchored() && (c.phase == PhaseDetails || c.phase == PhaseInProgress) {
		rem = c.timer.Remaining(c.now())
	}
	s := Snapshot{
		Phase:        c.phase,
		TestID:       c.testID,
		StudentID:    c.studentID,
		AttemptID:    c.attemptID,
		Test:         c.test,
		AttemptsUsed: c.attemptsUsed,
		Current:      c.current,
		Remaining:    rem,
		Deadline:     c.timer.Deadline(),
		Answers:      c.answers.Clone(),
		Answered:     c.answers.AnsweredCount(),
		Resumed:      c.resumed,
		Submitting:   c.submitting,
		Result:       c.result,
		Err:          c.err,
	}
	if c.test != nil {
		s.Palette = BuildPalette(c.test.Questions, s.Answers, c.current)
	}
	return s
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) persistAnswersLocked(ctx context.Context) {
	raw, err := c.answers.Encode()
	if err != nil {
		c.log.Warn("encode answers", zap.Error(err))
		return
	}
	c.setLocked(ctx, fieldAnswers, raw)
}

func (c *Controller) setLocked(ctx context.Context, field, value string) {
	if err := c.deps.KV.Set(ctx, AttemptKey(c.studentID, c.testID, field), value); err != nil {
		c.log.Warn("persist attempt", zap.String("test", c.testID), zap.String("field", field), zap.Error(err))
	}
}

func (c *Controller) eventLocked(ctx context.Context, action, detail string) {
	if c.deps.Events == nil {
		return
	}
	err := c.deps.Events.AppendAttemptEvent(ctx, store.AttemptEventData{
		StudentID:     c.studentID,
		TestID:        c.testID,
		AttemptID:     c.attemptID,
		Action:        action,
		RemainingSecs: c.remaining,
		Answered:      c.answers.AnsweredCount(),
		Detail:        detail,
	})
	if err != nil {
		c.log.Warn("append attempt event", zap.String("action", action), zap.Error(err))
	}
}
