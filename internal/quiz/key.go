package quiz

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// QuestionSpec is one entry of a task's answer key.
type QuestionSpec struct {
	Correct    string
	HasCorrect bool
	raw        json.RawMessage
}

// TaskKey is the answer key for one task. A task is closed (auto-gradable)
// only when the key is a non-empty sequence whose first item carries a
// correct value; anything else is graded manually.
type TaskKey struct {
	Items      []QuestionSpec
	IsSequence bool
}

// AnswerKey maps task id to its key.
type AnswerKey map[string]TaskKey

// NewClosedTask builds a closed task key from the expected answers in question order.
func NewClosedTask(correct ...string) TaskKey {
	items := make([]QuestionSpec, 0, len(correct))
	for _, value := range correct {
		items = append(items, QuestionSpec{Correct: value, HasCorrect: true})
	}
	return TaskKey{Items: items, IsSequence: true}
}

// NewOpenTask builds a key of n items without correct values.
func NewOpenTask(n int) TaskKey {
	return TaskKey{Items: make([]QuestionSpec, n), IsSequence: true}
}

// Closed reports whether the task can be graded automatically.
func (k TaskKey) Closed() bool {
	return k.IsSequence && len(k.Items) > 0 && k.Items[0].HasCorrect
}

// Len returns the number of questions in the key.
func (k TaskKey) Len() int {
	return len(k.Items)
}

// UnmarshalJSON keeps the loose shape of page task data: arrays of objects
// with an optional "correct" field, or anything else, which marks the task open.
func (k *TaskKey) UnmarshalJSON(data []byte) error {
	*k = TaskKey{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	k.IsSequence = true
	k.Items = make([]QuestionSpec, 0, len(raw))
	for _, item := range raw {
		spec := QuestionSpec{raw: item}
		itemBytes := bytes.TrimSpace(item)
		if len(itemBytes) > 0 && itemBytes[0] == '{' {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(itemBytes, &fields); err != nil {
				return err
			}
			if correct, ok := fields["correct"]; ok {
				spec.HasCorrect = true
				spec.Correct = scalarText(correct)
			}
		}
		k.Items = append(k.Items, spec)
	}
	return nil
}

// MarshalJSON writes the key back as a sequence. Items decoded from JSON
// are emitted verbatim.
func (k TaskKey) MarshalJSON() ([]byte, error) {
	if !k.IsSequence {
		return []byte("null"), nil
	}
	items := make([]json.RawMessage, 0, len(k.Items))
	for _, item := range k.Items {
		if len(item.raw) > 0 {
			items = append(items, item.raw)
			continue
		}
		if !item.HasCorrect {
			items = append(items, json.RawMessage("{}"))
			continue
		}
		encoded, err := json.Marshal(map[string]string{"correct": item.Correct})
		if err != nil {
			return nil, err
		}
		items = append(items, encoded)
	}
	return json.Marshal(items)
}

// scalarText renders a JSON value the way page scripts stringify it.
func scalarText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err == nil {
			return value
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
					parts = append(parts, "")
					continue
				}
				parts = append(parts, scalarText(item))
			}
			return strings.Join(parts, ",")
		}
	case '{':
		return "[object Object]"
	case 't', 'f', 'n':
		return string(trimmed)
	default:
		if f, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return string(trimmed)
}
