package testsession

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/abhisek/mocktest/internal/store"
)

const (
	fieldAnswers   = "answers"
	fieldRemaining = "remaining"
	fieldDeadline  = "deadline"
	fieldAttempt   = "attempt"
)

var attemptFields = []string{fieldAnswers, fieldRemaining, fieldDeadline, fieldAttempt}

// AttemptKey returns the KV key holding one field of an in-flight attempt.
// Keys are scoped by student and test so attempts never collide.
func AttemptKey(studentID, testID, field string) string {
	return "attempt/" + url.PathEscape(studentID) + "/" + url.PathEscape(testID) + "/" + field
}

// ClearAttempt removes every persisted field of the student's in-flight
// attempt at testID.
func ClearAttempt(ctx context.Context, kv store.KV, studentID, testID string) error {
	var errs []error
	for _, f := range attemptFields {
		if err := kv.Clear(ctx, AttemptKey(studentID, testID, f)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// persisted is what a previous run left behind for one attempt.
type persisted struct {
	attemptID    string
	answers      string
	hasAnswers   bool
	remaining    int
	hasRemaining bool
	deadline     time.Time
}

func (p persisted) found() bool {
	return p.hasAnswers || p.hasRemaining || !p.deadline.IsZero()
}

func loadPersisted(ctx context.Context, kv store.KV, studentID, testID string) (persisted, error) {
	var p persisted
	get := func(field string) (string, bool, error) {
		return kv.Get(ctx, AttemptKey(studentID, testID, field))
	}

	v, ok, err := get(fieldAnswers)
	if err != nil {
		return p, err
	}
	p.answers, p.hasAnswers = v, ok

	if v, ok, err = get(fieldRemaining); err != nil {
		return p, err
	} else if ok {
		if n, perr := strconv.Atoi(v); perr == nil {
			p.remaining, p.hasRemaining = n, true
		}
	}

	if v, ok, err = get(fieldDeadline); err != nil {
		return p, err
	} else if ok {
		if t, perr := time.Parse(time.RFC3339Nano, v); perr == nil {
			p.deadline = t
		}
	}

	if v, ok, err = get(fieldAttempt); err != nil {
		return p, err
	} else if ok {
		p.attemptID = v
	}
	return p, nil
}
