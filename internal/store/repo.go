package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
	TestID string    // exact match when set
}

// Attempt lifecycle actions recorded in the event log.
const (
	ActionStart        = "start"
	ActionResume       = "resume"
	ActionSubmit       = "submit"
	ActionSubmitFailed = "submit_failed"
	ActionExpired      = "expired"
)

// AttemptEventData captures one attempt lifecycle event.
type AttemptEventData struct {
	StudentID     string
	TestID        string
	AttemptID     string
	Action        string
	RemainingSecs int
	Answered      int
	Detail        string
}

// AttemptEventRecord is a persisted attempt event.
type AttemptEventRecord struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	AttemptEventData
}

// EventRepo provides append and query access to attempt events.
type EventRepo interface {
	// AppendAttemptEvent records an attempt lifecycle event.
	AppendAttemptEvent(ctx context.Context, data AttemptEventData) error

	// QueryAttemptEvents returns events newest first.
	QueryAttemptEvents(ctx context.Context, opts QueryOpts) ([]AttemptEventRecord, error)
}
