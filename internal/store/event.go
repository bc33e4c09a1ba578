package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// sequenceCounter hands out the global monotonic sequence number for the
// event log. Timestamps can collide or move backwards when the wall clock
// is adjusted; the sequence can't, so it is the ordering key for history.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// eventRepo implements EventRepo on the attempt_events table.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *eventRepo) AppendAttemptEvent(ctx context.Context, data AttemptEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO attempt_events
			(sequence, timestamp, student_id, test_id, attempt_id, action, remaining_secs, answered, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum,
		time.Now().UTC().UnixMilli(),
		data.StudentID,
		data.TestID,
		data.AttemptID,
		data.Action,
		data.RemainingSecs,
		data.Answered,
		data.Detail,
	)
	if err != nil {
		return fmt.Errorf("save attempt event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryAttemptEvents(ctx context.Context, opts QueryOpts) ([]AttemptEventRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.After > 0 {
		where = append(where, "sequence > ?")
		args = append(args, opts.After)
	}
	if opts.Before > 0 {
		where = append(where, "sequence < ?")
		args = append(args, opts.Before)
	}
	if !opts.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, opts.From.UTC().UnixMilli())
	}
	if !opts.To.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, opts.To.UTC().UnixMilli())
	}
	if opts.TestID != "" {
		where = append(where, "test_id = ?")
		args = append(args, opts.TestID)
	}

	q := `SELECT id, sequence, timestamp, student_id, test_id, attempt_id, action, remaining_secs, answered, detail
	      FROM attempt_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempt events: %w", err)
	}
	defer rows.Close()

	var out []AttemptEventRecord
	for rows.Next() {
		var (
			rec AttemptEventRecord
			ts  int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Sequence, &ts,
			&rec.StudentID, &rec.TestID, &rec.AttemptID, &rec.Action,
			&rec.RemainingSecs, &rec.Answered, &rec.Detail,
		); err != nil {
			return nil, fmt.Errorf("scan attempt event: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
