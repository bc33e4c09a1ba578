package testsession

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/mocktest/internal/exam"
	"github.com/abhisek/mocktest/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

type fakeIdentity string

func (f fakeIdentity) StudentID(context.Context) (string, error) { return string(f), nil }

// fakePortal implements Catalog, QuestionBank and ResultStore.
type fakePortal struct {
	mu        sync.Mutex
	test      *exam.Test
	questions []exam.Question
	prior     []exam.Result

	testErr, questionsErr, priorErr, submitErr error

	// onSubmit runs inside SubmitResult before it returns.
	onSubmit func()
	submits  []exam.Submission
}

func (f *fakePortal) FetchTest(_ context.Context, id string) (*exam.Test, error) {
	if f.testErr != nil {
		return nil, f.testErr
	}
	t := *f.test
	return &t, nil
}

func (f *fakePortal) FetchQuestions(context.Context, string) ([]exam.Question, error) {
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	return f.questions, nil
}

func (f *fakePortal) PriorResults(context.Context, string) ([]exam.Result, error) {
	if f.priorErr != nil {
		return nil, f.priorErr
	}
	return f.prior, nil
}

func (f *fakePortal) SubmitResult(_ context.Context, sub exam.Submission) (*exam.Result, error) {
	if f.onSubmit != nil {
		f.onSubmit()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, sub)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &exam.Result{ID: "r-" + strconv.Itoa(len(f.submits)), TestID: sub.TestID, AttemptID: sub.AttemptID, Answers: sub.Answers}, nil
}

func (f *fakePortal) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func (f *fakePortal) setSubmitErr(err error) {
	f.mu.Lock()
	f.submitErr = err
	f.mu.Unlock()
}

type fakeEvents struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeEvents) AppendAttemptEvent(_ context.Context, d store.AttemptEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, d.Action)
	return nil
}

func (f *fakeEvents) QueryAttemptEvents(context.Context, store.QueryOpts) ([]store.AttemptEventRecord, error) {
	return nil, nil
}

func sampleQuestions() []exam.Question {
	return []exam.Question{
		{ID: "q1", Prompt: "2+2?", Type: exam.TypeSingleChoice,
			Options: []exam.Option{{ID: "A", Text: "4"}, {ID: "B", Text: "5"}}, CorrectAnswers: []string{"A"}},
		{ID: "q2", Prompt: "Primes?", Type: exam.TypeMultiChoice,
			Options: []exam.Option{{ID: "A", Text: "2"}, {ID: "B", Text: "4"}, {ID: "C", Text: "5"}}, CorrectAnswers: []string{"A", "C"}},
		{ID: "q3", Prompt: "Explain.", Type: exam.TypeLongAnswer},
	}
}

// flakyKV fails reads or writes on demand.
type flakyKV struct {
	*store.MemKV
	mu       sync.Mutex
	getErr   error
	setErr   error
	setFails int
}

func (f *flakyKV) fail(get, set error) {
	f.mu.Lock()
	f.getErr, f.setErr = get, set
	f.mu.Unlock()
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return f.MemKV.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	err := f.setErr
	if err != nil {
		f.setFails++
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemKV.Set(ctx, key, value)
}

type harness struct {
	clock  *fakeClock
	portal *fakePortal
	kv     *store.MemKV
	flaky  *flakyKV
	events *fakeEvents
}

func newHarness() *harness {
	kv := store.NewMemKV()
	return &harness{
		clock: newFakeClock(),
		portal: &fakePortal{
			test:      &exam.Test{ID: "t1", Title: "Quiz", DurationMinutes: 10, AllowedAttempts: 1},
			questions: sampleQuestions(),
		},
		kv:     kv,
		flaky:  &flakyKV{MemKV: kv},
		events: &fakeEvents{},
	}
}

func (h *harness) controller() *Controller {
	return New(Deps{
		Identity:  fakeIdentity("s1"),
		Catalog:   h.portal,
		Questions: h.portal,
		Results:   h.portal,
		KV:        h.flaky,
		Events:    h.events,
		Clock:     h.clock.Now,
	})
}

func (h *harness) started(t *testing.T) *Controller {
	t.Helper()
	c := h.controller()
	if err := c.Begin(context.Background(), "t1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.StartAttempt(context.Background()); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	return c
}

func TestBeginDetails(t *testing.T) {
	h := newHarness()
	c := h.controller()
	if err := c.Begin(context.Background(), "t1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	s := c.Snapshot()
	if s.Phase != PhaseDetails {
		t.Fatalf("phase = %s, want details", s.Phase)
	}
	if s.Remaining != 600 {
		t.Errorf("remaining = %d, want 600", s.Remaining)
	}
	if s.QuestionCount() != 3 {
		t.Errorf("questions = %d, want 3", s.QuestionCount())
	}
	if s.Resumed {
		t.Error("fresh attempt reported as resumed")
	}
	if err := c.Begin(context.Background(), "t1"); !errors.Is(err, ErrAlreadyBegun) {
		t.Errorf("second Begin = %v, want ErrAlreadyBegun", err)
	}
}

func TestDetailsDoesNotTick(t *testing.T) {
	h := newHarness()
	c := h.controller()
	if err := c.Begin(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(30 * time.Second)
	rem, err := c.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rem != 600 {
		t.Errorf("remaining = %d, want 600", rem)
	}
	if keys := h.kv.Keys("attempt/"); len(keys) != 0 {
		t.Errorf("persisted keys before start: %v", keys)
	}
}

func TestStartAttemptTwice(t *testing.T) {
	h := newHarness()
	c := h.started(t)
	h.clock.Advance(20 * time.Second)
	if err := c.StartAttempt(context.Background()); err != nil {
		t.Fatalf("second StartAttempt: %v", err)
	}
	if got := c.Snapshot().Remaining; got != 580 {
		t.Errorf("remaining = %d, want 580", got)
	}
	if len(h.events.actions) != 1 || h.events.actions[0] != store.ActionStart {
		t.Errorf("events = %v, want one start", h.events.actions)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*fakePortal)
		phase    Phase
		notFound bool
	}{
		{"test not found", func(p *fakePortal) { p.testErr = fmt.Errorf("get: %w", exam.ErrNotFound) }, PhaseLoadError, true},
		{"questions fail", func(p *fakePortal) { p.questionsErr = errors.New("boom") }, PhaseLoadError, false},
		{"results fail", func(p *fakePortal) { p.priorErr = errors.New("boom") }, PhaseLoadError, false},
		{"empty test", func(p *fakePortal) { p.questions = nil }, PhaseEmptyTest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h.portal)
			c := h.controller()
			err := c.Begin(context.Background(), "t1")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := c.Phase(); got != tt.phase {
				t.Fatalf("phase = %s, want %s", got, tt.phase)
			}
			var le *LoadError
			if errors.As(err, &le) && le.NotFound != tt.notFound {
				t.Errorf("NotFound = %v, want %v", le.NotFound, tt.notFound)
			}
			if tt.phase == PhaseEmptyTest {
				var ee *EmptyTestError
				if !errors.As(err, &ee) || !errors.Is(err, ErrEmptyTest) {
					t.Errorf("error = %T, want *EmptyTestError", err)
				}
			}
			if err := c.StartAttempt(context.Background()); err == nil {
				t.Error("StartAttempt succeeded from terminal phase")
			}
		})
	}
}

func TestAttemptsExceeded(t *testing.T) {
	h := newHarness()
	h.portal.prior = []exam.Result{{ID: "r0", TestID: "t1"}}
	c := h.controller()
	err := c.Begin(context.Background(), "t1")
	var ae *AttemptsExceededError
	if !errors.As(err, &ae) {
		t.Fatalf("Begin = %v, want *AttemptsExceededError", err)
	}
	if ae.Used != 1 || ae.Allowed != 1 {
		t.Errorf("used/allowed = %d/%d", ae.Used, ae.Allowed)
	}
	if c.Phase() != PhaseAttemptsExceeded {
		t.Errorf("phase = %s", c.Phase())
	}
}

func TestAttemptsExceededClearsStaleKeys(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c1 := h.started(t)
	if err := c1.RecordAnswer(ctx, "q1", exam.Choice("A")); err != nil {
		t.Fatal(err)
	}

	// The portal stored the result but the response never arrived.
	h.portal.prior = []exam.Result{{ID: "r0", TestID: "t1"}}
	c2 := h.controller()
	if err := c2.Begin(ctx, "t1"); err == nil {
		t.Fatal("Begin succeeded with no attempts left")
	}
	if keys := h.kv.Keys("attempt/"); len(keys) != 0 {
		t.Errorf("stale attempt keys kept: %v", keys)
	}
}

func TestAttemptsRemaining(t *testing.T) {
	h := newHarness()
	h.portal.test.AllowedAttempts = 2
	h.portal.prior = []exam.Result{{ID: "r0", TestID: "t1"}}
	c := h.controller()
	if err := c.Begin(context.Background(), "t1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	s := c.Snapshot()
	if s.Phase != PhaseDetails || s.AttemptsLeft() != 1 {
		t.Errorf("phase=%s left=%d", s.Phase, s.AttemptsLeft())
	}
}

func TestAutoSubmitExactlyOnce(t *testing.T) {
	h := newHarness()
	c := h.started(t)
	ctx := context.Background()

	if err := c.RecordAnswer(ctx, "q1", exam.Choice("A")); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	for i := 1; i <= 600; i++ {
		h.clock.Advance(time.Second)
		rem, err := c.Tick(ctx)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if rem != 600-i {
			t.Fatalf("tick %d: remaining = %d, want %d", i, rem, 600-i)
		}
	}
	for range 5 {
		h.clock.Advance(time.Second)
		if _, err := c.Tick(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Submit(ctx); err != nil {
		t.Fatalf("Submit after auto-submit: %v", err)
	}

	if n := h.portal.submitCount(); n != 1 {
		t.Fatalf("submits = %d, want 1", n)
	}
	sub := h.portal.submits[0]
	if sub.Reason != exam.ReasonExpired {
		t.Errorf("reason = %s, want expired", sub.Reason)
	}
	if a := sub.Answers["q1"]; !a.Equal(exam.Choice("A")) {
		t.Errorf("q1 = %v, want A", a)
	}
	s := c.Snapshot()
	if s.Phase != PhaseSubmitted || s.Remaining != 0 || s.Result == nil {
		t.Errorf("phase=%s remaining=%d result=%v", s.Phase, s.Remaining, s.Result)
	}
	if keys := h.kv.Keys("attempt/"); len(keys) != 0 {
		t.Errorf("persisted keys after submit: %v", keys)
	}
}

func TestManualSubmitRacesExpiry(t *testing.T) {
	h := newHarness()
	c := h.started(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	h.portal.onSubmit = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() { done <- c.Submit(ctx) }()
	<-entered

	h.clock.Advance(11 * time.Minute)
	if _, err := c.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := c.Submit(ctx); err != nil {
		t.Fatalf("concurrent Submit: %v", err)
	}
	if err := c.RecordAnswer(ctx, "q1", exam.Choice("B")); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("RecordAnswer during submit = %v, want ErrSubmitInFlight", err)
	}
	if !c.Snapshot().Submitting {
		t.Error("snapshot does not report submitting")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if n := h.portal.submitCount(); n != 1 {
		t.Errorf("submits = %d, want 1", n)
	}
	if c.Phase() != PhaseSubmitted {
		t.Errorf("phase = %s", c.Phase())
	}
}

func TestSubmitFailurePreservesAttempt(t *testing.T) {
	h := newHarness()
	c := h.started(t)
	ctx := context.Background()

	if err := c.RecordAnswer(ctx, "q3", exam.Text("because")); err != nil {
		t.Fatal(err)
	}
	h.portal.setSubmitErr(errors.New("503"))

	err := c.Submit(ctx)
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("Submit = %v, want *SubmissionError", err)
	}
	s := c.Snapshot()
	if s.Phase != PhaseInProgress {
		t.Fatalf("phase = %s, want in-progress", s.Phase)
	}
	if a := s.Answers["q3"]; a.TextValue() != "because" {
		t.Errorf("answer lost: %v", a)
	}
	if _, ok, _ := h.kv.Get(ctx, AttemptKey("s1", "t1", fieldAnswers)); !ok {
		t.Error("persisted answers cleared after failed submit")
	}

	h.clock.Advance(5 * time.Second)
	rem, _ := c.Tick(ctx)
	if rem != 595 {
		t.Errorf("remaining after failed submit = %d, want 595", rem)
	}

	h.portal.setSubmitErr(nil)
	if err := c.Submit(ctx); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if c.Phase() != PhaseSubmitted {
		t.Errorf("phase = %s", c.Phase())
	}
	if n := h.portal.submitCount(); n != 2 {
		t.Errorf("submits = %d, want 2", n)
	}
	if keys := h.kv.Keys("attempt/"); len(keys) != 0 {
		t.Errorf("persisted keys after submit: %v", keys)
	}
}

func TestReloadRestoresAttempt(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c1 := h.started(t)

	if err := c1.RecordAnswer(ctx, "q1", exam.Choice("A")); err != nil {
		t.Fatal(err)
	}
	if err := c1.RecordAnswer(ctx, "q2", exam.MultiChoice("A", "C")); err != nil {
		t.Fatal(err)
	}
	for range 30 {
		h.clock.Advance(time.Second)
		if _, err := c1.Tick(ctx); err != nil {
			t.Fatal(err)
		}
	}
	before := c1.Snapshot()

	// Program closed for ten seconds.
	h.clock.Advance(10 * time.Second)

	c2 := h.controller()
	if err := c2.Begin(ctx, "t1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	s := c2.Snapshot()
	if s.Phase != PhaseDetails || !s.Resumed {
		t.Fatalf("phase=%s resumed=%v", s.Phase, s.Resumed)
	}
	if s.Remaining > before.Remaining {
		t.Errorf("remaining grew on reload: %d > %d", s.Remaining, before.Remaining)
	}
	if s.Remaining != 560 {
		t.Errorf("remaining = %d, want 560", s.Remaining)
	}
	if s.AttemptID != before.AttemptID {
		t.Errorf("attempt id = %q, want %q", s.AttemptID, before.AttemptID)
	}
	for id, want := range before.Answers {
		if got := s.Answers[id]; !got.Equal(want) {
			t.Errorf("answer %s = %v, want %v", id, got, want)
		}
	}

	if err := c2.StartAttempt(ctx); err != nil {
		t.Fatal(err)
	}
	h.events.mu.Lock()
	last := h.events.actions[len(h.events.actions)-1]
	h.events.mu.Unlock()
	if last != store.ActionResume {
		t.Errorf("last event = %s, want resume", last)
	}
}

func TestReloadUsesSmallerRemaining(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.started(t)

	if err := h.kv.Set(ctx, AttemptKey("s1", "t1", fieldRemaining), "100"); err != nil {
		t.Fatal(err)
	}
	c2 := h.controller()
	if err := c2.Begin(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if got := c2.Snapshot().Remaining; got != 100 {
		t.Errorf("remaining = %d, want 100", got)
	}
}

func TestReloadAfterDeadlineAutoSubmits(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c1 := h.started(t)
	if err := c1.RecordAnswer(ctx, "q1", exam.Choice("B")); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(time.Hour)
	c2 := h.controller()
	if err := c2.Begin(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if err := c2.StartAttempt(ctx); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if c2.Phase() != PhaseSubmitted {
		t.Fatalf("phase = %s, want submitted", c2.Phase())
	}
	if n := h.portal.submitCount(); n != 1 {
		t.Fatalf("submits = %d", n)
	}
	if h.portal.submits[0].Reason != exam.ReasonExpired {
		t.Errorf("reason = %s", h.portal.submits[0].Reason)
	}
}

func TestReloadDropsStaleAnswers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.started(t)
	raw := `{"q1":{"kind":"choice","value":"Z"},"gone":{"kind":"text","value":"x"},"q3":{"kind":"text","value":"kept"}}`
	if err := h.kv.Set(ctx, AttemptKey("s1", "t1", fieldAnswers), raw); err != nil {
		t.Fatal(err)
	}
	c2 := h.controller()
	if err := c2.Begin(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	s := c2.Snapshot()
	if len(s.Answers) != 1 || s.Answers["q3"].TextValue() != "kept" {
		t.Errorf("answers = %v", s.Answers)
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	pre := h.controller()
	if err := pre.Begin(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if err := pre.RecordAnswer(ctx, "q1", exam.Choice("A")); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("before start = %v, want ErrNotInProgress", err)
	}

	c := h.started(t)
	tests := []struct {
		name string
		id   string
		a    exam.Answer
		want error
	}{
		{"unknown question", "nope", exam.Text("x"), ErrUnknownQuestion},
		{"text on choice", "q1", exam.Text("A"), ErrAnswerKind},
		{"multi on single", "q1", exam.MultiChoice("A"), ErrAnswerKind},
		{"unknown option", "q1", exam.Choice("Z"), ErrUnknownOption},
		{"unknown multi option", "q2", exam.MultiChoice("A", "Z"), ErrUnknownOption},
		{"valid single", "q1", exam.Choice("B"), nil},
		{"valid multi", "q2", exam.MultiChoice("C"), nil},
		{"valid text", "q3", exam.Text("hi"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.RecordAnswer(ctx, tt.id, tt.a)
			if !errors.Is(err, tt.want) {
				t.Errorf("RecordAnswer = %v, want %v", err, tt.want)
			}
		})
	}
	if got := c.Snapshot().Answered; got != 3 {
		t.Errorf("answered = %d, want 3", got)
	}
}

func TestRecordAnswerAfterTimeUp(t *testing.T) {
	h := newHarness()
	h.portal.setSubmitErr(errors.New("offline"))
	c := h.started(t)
	ctx := context.Background()

	h.clock.Advance(10 * time.Minute)
	if _, err := c.Tick(ctx); err == nil {
		t.Fatal("expected auto-submit failure")
	}
	if err := c.RecordAnswer(ctx, "q1", exam.Choice("A")); !errors.Is(err, ErrTimeUp) {
		t.Errorf("RecordAnswer = %v, want ErrTimeUp", err)
	}
	h.clock.Advance(time.Second)
	if _, err := c.Tick(ctx); err != nil {
		t.Errorf("second expired tick: %v", err)
	}
	if n := h.portal.submitCount(); n != 1 {
		t.Errorf("submits = %d, want 1", n)
	}

	h.portal.setSubmitErr(nil)
	if err := c.Submit(ctx); err != nil {
		t.Fatalf("manual retry: %v", err)
	}
	if c.Phase() != PhaseSubmitted {
		t.Errorf("phase = %s", c.Phase())
	}
}

func TestMultiChoiceToggleSubmitted(t *testing.T) {
	h := newHarness()
	c := h.started(t)
	ctx := context.Background()

	a := exam.MultiChoice("A", "B")
	if err := c.RecordAnswer(ctx, "q2", a); err != nil {
		t.Fatal(err)
	}
	if err := c.RecordAnswer(ctx, "q2", a.Toggle("B")); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	got := h.portal.submits[0].Answers["q2"]
	if !got.Equal(exam.MultiChoice("A")) {
		t.Errorf("q2 = %v, want {A}", got)
	}
	q := sampleQuestions()[1]
	if v := exam.Grade(q, got); v != exam.VerdictIncorrect {
		t.Errorf("verdict = %s, want incorrect", v)
	}
}

func TestNavigationClamps(t *testing.T) {
	h := newHarness()
	c := h.started(t)

	steps := []struct {
		name string
		op   func() int
		want int
	}{
		{"previous at first", c.Previous, 0},
		{"next", c.Next, 1},
		{"next", c.Next, 2},
		{"next at last", c.Next, 2},
		{"goto below", func() int { return c.GoTo(-4) }, 0},
		{"goto above", func() int { return c.GoTo(99) }, 2},
		{"goto middle", func() int { return c.GoTo(1) }, 1},
	}
	for _, s := range steps {
		if got := s.op(); got != s.want {
			t.Errorf("%s: index = %d, want %d", s.name, got, s.want)
		}
	}
}

func TestPaletteFromSnapshot(t *testing.T) {
	h := newHarness()
	c := h.started(t)
	ctx := context.Background()
	if err := c.RecordAnswer(ctx, "q2", exam.MultiChoice("A")); err != nil {
		t.Fatal(err)
	}
	if err := c.RecordAnswer(ctx, "q3", exam.Text("   ")); err != nil {
		t.Fatal(err)
	}
	p := c.Snapshot().Palette
	want := []Status{StatusCurrent, StatusAnswered, StatusUnanswered}
	for i, s := range want {
		if p[i].Status != s {
			t.Errorf("palette[%d] = %s, want %s", i, p[i].Status, s)
		}
	}
}

func TestEventsRecorded(t *testing.T) {
	h := newHarness()
	c := h.started(t)
	if err := c.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.events.mu.Lock()
	defer h.events.mu.Unlock()
	want := []string{store.ActionStart, store.ActionSubmit}
	if len(h.events.actions) != len(want) {
		t.Fatalf("actions = %v, want %v", h.events.actions, want)
	}
	for i := range want {
		if h.events.actions[i] != want[i] {
			t.Errorf("actions[%d] = %s, want %s", i, h.events.actions[i], want[i])
		}
	}
}

func TestRestoreReadFailureFailsLoad(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c1 := h.started(t)
	if err := c1.RecordAnswer(ctx, "q1", exam.Choice("A")); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(300 * time.Second)
	if _, err := c1.Tick(ctx); err != nil {
		t.Fatal(err)
	}

	h.flaky.fail(errors.New("database is locked"), nil)
	c2 := h.controller()
	err := c2.Begin(ctx, "t1")
	var le *LoadError
	if !errors.As(err, &le) || le.Op != "restore" || le.NotFound {
		t.Fatalf("Begin = %v, want restore *LoadError", err)
	}
	if c2.Phase() != PhaseLoadError {
		t.Errorf("phase = %s, want load-error", c2.Phase())
	}
	if err := c2.StartAttempt(ctx); err == nil {
		t.Error("StartAttempt succeeded after failed restore")
	}

	// Retry once storage recovers: nothing was lost or granted.
	h.flaky.fail(nil, nil)
	c3 := h.controller()
	if err := c3.Begin(ctx, "t1"); err != nil {
		t.Fatalf("retry Begin: %v", err)
	}
	s := c3.Snapshot()
	if !s.Resumed || s.Remaining != 300 {
		t.Errorf("resumed=%v remaining=%d, want true/300", s.Resumed, s.Remaining)
	}
	if a := s.Answers["q1"]; !a.Equal(exam.Choice("A")) {
		t.Errorf("q1 = %v, want A", a)
	}
}

func TestWriteFailureNonFatal(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c := h.controller()
	if err := c.Begin(ctx, "t1"); err != nil {
		t.Fatal(err)
	}

	h.flaky.fail(nil, errors.New("disk full"))
	if err := c.StartAttempt(ctx); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if err := c.RecordAnswer(ctx, "q2", exam.MultiChoice("A", "C")); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	h.clock.Advance(10 * time.Second)
	rem, err := c.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rem != 590 {
		t.Errorf("remaining = %d, want 590", rem)
	}

	s := c.Snapshot()
	if s.Phase != PhaseInProgress {
		t.Errorf("phase = %s", s.Phase)
	}
	if a := s.Answers["q2"]; !a.Equal(exam.MultiChoice("A", "C")) {
		t.Errorf("in-memory answer = %v", a)
	}
	if h.flaky.setFails == 0 {
		t.Error("expected failed writes")
	}
	if keys := h.kv.Keys("attempt/"); len(keys) != 0 {
		t.Errorf("writes reached storage: %v", keys)
	}

	h.flaky.fail(nil, nil)
	if err := c.RecordAnswer(ctx, "q1", exam.Choice("B")); err != nil {
		t.Fatal(err)
	}
	raw, ok, _ := h.kv.Get(ctx, AttemptKey("s1", "t1", fieldAnswers))
	if !ok {
		t.Fatal("answers not persisted after recovery")
	}
	saved, err := DecodeAnswers(raw)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Len() != 2 {
		t.Errorf("persisted %d answers, want 2", saved.Len())
	}
}

func TestRetryAfterExpiryKeepsExpiredReason(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c := h.started(t)

	h.portal.setSubmitErr(errors.New("503"))
	h.clock.Advance(10 * time.Minute)
	if _, err := c.Tick(ctx); err == nil {
		t.Fatal("expected auto-submit failure")
	}

	h.portal.setSubmitErr(nil)
	if err := c.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if n := h.portal.submitCount(); n != 2 {
		t.Fatalf("submits = %d, want 2", n)
	}
	for i, sub := range h.portal.submits {
		if sub.Reason != exam.ReasonExpired {
			t.Errorf("submit %d reason = %s, want expired", i, sub.Reason)
		}
	}
}
