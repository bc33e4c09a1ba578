package exam

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// AnswerKind tags the variant held by an Answer.
type AnswerKind string

const (
	KindText   AnswerKind = "text"
	KindChoice AnswerKind = "choice"
	KindMulti  AnswerKind = "multi"
)

// KindFor returns the answer variant expected for a question type.
func KindFor(t QuestionType) AnswerKind {
	switch t {
	case TypeSingleChoice:
		return KindChoice
	case TypeMultiChoice:
		return KindMulti
	default:
		return KindText
	}
}

// Answer is a student's response to one question. Exactly one of the
// variants is populated, selected by Kind. The zero value is an empty text
// answer.
type Answer struct {
	kind   AnswerKind
	text   string
	values []string // sorted, unique; multi only
}

// Text builds a free-text answer.
func Text(s string) Answer {
	return Answer{kind: KindText, text: s}
}

// Choice builds a single-choice answer selecting option id.
func Choice(id string) Answer {
	return Answer{kind: KindChoice, text: id}
}

// MultiChoice builds a multi-choice answer. Duplicates are dropped and order
// is not significant.
func MultiChoice(ids ...string) Answer {
	set := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set = append(set, id)
	}
	slices.Sort(set)
	return Answer{kind: KindMulti, values: slices.Compact(set)}
}

// Kind returns the variant tag.
func (a Answer) Kind() AnswerKind {
	if a.kind == "" {
		return KindText
	}
	return a.kind
}

// TextValue returns the free-text content; empty for other variants.
func (a Answer) TextValue() string {
	if a.Kind() != KindText {
		return ""
	}
	return a.text
}

// Selected returns the chosen option for a single-choice answer.
func (a Answer) Selected() (string, bool) {
	if a.kind != KindChoice || a.text == "" {
		return "", false
	}
	return a.text, true
}

// Options returns the selected option IDs: the set for multi-choice, the
// single option for single-choice, nil for text.
func (a Answer) Options() []string {
	switch a.kind {
	case KindMulti:
		return slices.Clone(a.values)
	case KindChoice:
		if a.text == "" {
			return nil
		}
		return []string{a.text}
	}
	return nil
}

// Contains reports whether option id is selected.
func (a Answer) Contains(id string) bool {
	switch a.kind {
	case KindMulti:
		_, found := slices.BinarySearch(a.values, id)
		return found
	case KindChoice:
		return a.text == id
	}
	return false
}

// Toggle returns a multi-choice answer with id added when it was not
// selected and removed when it was. Non-multi answers are treated as empty.
func (a Answer) Toggle(id string) Answer {
	if a.kind != KindMulti {
		return MultiChoice(id)
	}
	if a.Contains(id) {
		rest := make([]string, 0, len(a.values))
		for _, v := range a.values {
			if v != id {
				rest = append(rest, v)
			}
		}
		return MultiChoice(rest...)
	}
	return MultiChoice(append(slices.Clone(a.values), id)...)
}

// IsEmpty reports whether the answer carries no response.
func (a Answer) IsEmpty() bool {
	switch a.Kind() {
	case KindMulti:
		return len(a.values) == 0
	case KindChoice:
		return a.text == ""
	default:
		return strings.TrimSpace(a.text) == ""
	}
}

// Equal reports whether two answers hold the same variant and value.
func (a Answer) Equal(b Answer) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind() == KindMulti {
		return slices.Equal(a.values, b.values)
	}
	return a.text == b.text
}

// String renders the answer for display.
func (a Answer) String() string {
	switch a.Kind() {
	case KindMulti:
		return "{" + strings.Join(a.values, ",") + "}"
	default:
		return a.text
	}
}

type answerJSON struct {
	Kind   AnswerKind `json:"kind"`
	Value  string     `json:"value,omitempty"`
	Values []string   `json:"values,omitempty"`
}

// MarshalJSON encodes the answer as {"kind":...,"value"|"values":...}.
func (a Answer) MarshalJSON() ([]byte, error) {
	out := answerJSON{Kind: a.Kind()}
	if out.Kind == KindMulti {
		out.Values = a.values
		if out.Values == nil {
			out.Values = []string{}
		}
	} else {
		out.Value = a.text
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged form produced by MarshalJSON.
func (a *Answer) UnmarshalJSON(b []byte) error {
	var in answerJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch in.Kind {
	case KindText, "":
		*a = Text(in.Value)
	case KindChoice:
		*a = Choice(in.Value)
	case KindMulti:
		*a = MultiChoice(in.Values...)
	default:
		return fmt.Errorf("unknown answer kind %q", in.Kind)
	}
	return nil
}
