package testsession

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/abhisek/mocktest/internal/exam"
)

// AnswerStore maps question IDs to the student's current answers. It only
// overwrites; toggling and other editing semantics belong to the caller.
type AnswerStore struct {
	m map[string]exam.Answer
}

// NewAnswerStore returns an empty store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{m: make(map[string]exam.Answer)}
}

// Put replaces the answer for questionID.
func (s *AnswerStore) Put(questionID string, a exam.Answer) {
	s.m[questionID] = a
}

// Get returns the stored answer for questionID.
func (s *AnswerStore) Get(questionID string) (exam.Answer, bool) {
	a, ok := s.m[questionID]
	return a, ok
}

// Answered reports whether questionID has a non-empty answer.
func (s *AnswerStore) Answered(questionID string) bool {
	a, ok := s.m[questionID]
	return ok && !a.IsEmpty()
}

// Len returns the number of entries, including empty ones.
func (s *AnswerStore) Len() int {
	return len(s.m)
}

// AnsweredCount returns the number of non-empty entries.
func (s *AnswerStore) AnsweredCount() int {
	n := 0
	for _, a := range s.m {
		if !a.IsEmpty() {
			n++
		}
	}
	return n
}

// Clone returns a copy of the entries.
func (s *AnswerStore) Clone() map[string]exam.Answer {
	return maps.Clone(s.m)
}

// Retain drops every entry for which keep returns false and returns the
// dropped question IDs.
func (s *AnswerStore) Retain(keep func(questionID string, a exam.Answer) bool) []string {
	var dropped []string
	for id, a := range s.m {
		if !keep(id, a) {
			dropped = append(dropped, id)
			delete(s.m, id)
		}
	}
	return dropped
}

// Encode serializes the store for persistence.
func (s *AnswerStore) Encode() (string, error) {
	b, err := json.Marshal(s.m)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	return string(b), nil
}

// DecodeAnswers parses a store serialized by Encode.
func DecodeAnswers(raw string) (*AnswerStore, error) {
	s := NewAnswerStore()
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s.m); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if s.m == nil {
		s.m = make(map[string]exam.Answer)
	}
	return s, nil
}
