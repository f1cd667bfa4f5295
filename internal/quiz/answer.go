package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Answer is the value submitted for a single question. Single-choice and
// free-text questions carry one token, multi-choice questions carry a set.
type Answer struct {
	values []string
	multi  bool
}

// Single builds a one-token answer.
func Single(value string) Answer {
	return Answer{values: []string{value}}
}

// Multi builds a set answer. An empty set is a valid, unanswered multi-choice question.
func Multi(values ...string) Answer {
	copied := make([]string, len(values))
	copy(copied, values)
	return Answer{values: copied, multi: true}
}

// IsMulti reports whether the answer came from a multi-choice group.
func (a Answer) IsMulti() bool {
	return a.multi
}

// Values returns a copy of the submitted tokens.
func (a Answer) Values() []string {
	out := make([]string, len(a.values))
	copy(out, a.values)
	return out
}

// Text flattens the answer into the string used for comparison. Sets are
// joined with commas in submission order.
func (a Answer) Text() string {
	if a.multi {
		return strings.Join(a.values, ",")
	}
	if len(a.values) == 0 {
		return ""
	}
	return a.values[0]
}

// IsBlank reports whether nothing was answered.
func (a Answer) IsBlank() bool {
	if a.multi {
		return len(a.values) == 0
	}
	return strings.TrimSpace(a.Text()) == ""
}

// MarshalJSON encodes single answers as strings and sets as arrays.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multi {
		values := a.values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	}
	return json.Marshal(a.Text())
}

// UnmarshalJSON accepts a string, an array of strings, null, or a bare scalar.
func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*a = Single("")
		return nil
	case trimmed[0] == '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*a = Single(value)
		return nil
	case trimmed[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		values := make([]string, 0, len(raw))
		for _, item := range raw {
			values = append(values, scalarText(item))
		}
		*a = Multi(values...)
		return nil
	case trimmed[0] == '{':
		return fmt.Errorf("answer must be a string or a list of strings")
	default:
		*a = Single(scalarText(trimmed))
		return nil
	}
}

// AnswerMap maps task id to question number to the submitted answer.
type AnswerMap map[string]map[string]Answer

// Set stores an answer, creating the task bucket if needed.
func (m AnswerMap) Set(taskID, qnum string, answer Answer) {
	bucket, ok := m[taskID]
	if !ok {
		bucket = make(map[string]Answer)
		m[taskID] = bucket
	}
	bucket[qnum] = answer
}

// Get returns the answer for a question, if present.
func (m AnswerMap) Get(taskID, qnum string) (Answer, bool) {
	bucket, ok := m[taskID]
	if !ok {
		return Answer{}, false
	}
	answer, ok := bucket[qnum]
	return answer, ok
}

// Has reports whether a question already has an entry.
func (m AnswerMap) Has(taskID, qnum string) bool {
	_, ok := m.Get(taskID, qnum)
	return ok
}

// EnsureTask creates an empty bucket for a task so that tasks without
// questions still appear in the map.
func (m AnswerMap) EnsureTask(taskID string) {
	if _, ok := m[taskID]; !ok {
		m[taskID] = make(map[string]Answer)
	}
}

// HasAnyAnswer reports whether at least one question was answered.
func (m AnswerMap) HasAnyAnswer() bool {
	for _, bucket := range m {
		for _, answer := range bucket {
			if !answer.IsBlank() {
				return true
			}
		}
	}
	return false
}

// TaskIDs returns the task ids in lexical order.
func (m AnswerMap) TaskIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
