package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Status is the per-question verdict.
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
)

const (
	openTag  = "open"
	totalKey = "total"
	scoreKey = "score"
)

// TaskResult is the outcome of an auto-graded task.
type TaskResult struct {
	Statuses map[string]Status
	Score    string
}

// Fraction parses Score ("x/y") into its parts.
func (r TaskResult) Fraction() (score, max int, ok bool) {
	left, right, found := strings.Cut(r.Score, "/")
	if !found {
		return 0, 0, false
	}
	s, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, false
	}
	return s, m, true
}

// TaskOutcome is either Open (manual review) or a scored TaskResult.
type TaskOutcome struct {
	Open   bool
	Result *TaskResult
}

// OpenOutcome marks a task for manual review.
func OpenOutcome() TaskOutcome {
	return TaskOutcome{Open: true}
}

// ScoredOutcome wraps an auto-graded task.
func ScoredOutcome(result TaskResult) TaskOutcome {
	return TaskOutcome{Result: &result}
}

// GradingResult holds per-task outcomes plus the aggregate percentage.
type GradingResult struct {
	Tasks map[string]TaskOutcome
	Total string
}

// IsEmpty reports whether the result carries nothing to present.
func (r GradingResult) IsEmpty() bool {
	return len(r.Tasks) == 0 && r.Total == ""
}

// TaskIDs returns task ids in lexical order.
func (r GradingResult) TaskIDs() []string {
	ids := make([]string, 0, len(r.Tasks))
	for id := range r.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON produces the flat wire shape:
// {"task1": {"1": "correct", "score": "1/1"}, "task2": "open", "total": "100.0%"}.
func (r GradingResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Tasks)+1)
	for id, outcome := range r.Tasks {
		if outcome.Open {
			out[id] = openTag
			continue
		}
		if outcome.Result == nil {
			continue
		}
		task := make(map[string]string, len(outcome.Result.Statuses)+1)
		for qnum, status := range outcome.Result.Statuses {
			task[qnum] = string(status)
		}
		task[scoreKey] = outcome.Result.Score
		out[id] = task
	}
	if r.Total != "" {
		out[totalKey] = r.Total
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat wire shape. Entries that are neither the
// open tag nor an object are dropped.
func (r *GradingResult) UnmarshalJSON(data []byte) error {
	*r = GradingResult{Tasks: map[string]TaskOutcome{}}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return fmt.Errorf("decode grading result: %w", err)
	}

	for key, raw := range fields {
		value := bytes.TrimSpace(raw)
		if key == totalKey {
			r.Total = scalarText(value)
			continue
		}
		if len(value) == 0 {
			continue
		}
		switch value[0] {
		case '"':
			if scalarText(value) == openTag {
				r.Tasks[key] = OpenOutcome()
			}
		case '{':
			var entries map[string]json.RawMessage
			if err := json.Unmarshal(value, &entries); err != nil {
				return fmt.Errorf("decode task %s: %w", key, err)
			}
			result := TaskResult{Statuses: make(map[string]Status, len(entries))}
			for qnum, entry := range entries {
				if qnum == scoreKey {
					result.Score = scalarText(entry)
					continue
				}
				result.Statuses[qnum] = Status(scalarText(entry))
			}
			r.Tasks[key] = ScoredOutcome(result)
		}
	}
	return nil
}

// Response statuses defined by the grading endpoint contract.
const (
	ResponseStatusOK        = "ok"
	ResponseStatusEmptyForm = "empty_form"
)

// Payload is the request body sent to the grading endpoint.
type Payload struct {
	Level      string    `json:"level" validate:"required"`
	Answers    AnswerMap `json:"answers"`
	Username   string    `json:"username,omitempty"`
	TelegramID *int64    `json:"telegramId,omitempty"`
}
