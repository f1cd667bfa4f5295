// Package grading scores answer maps against answer keys.
package grading

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

// Grade compares answers with the key task by task. It is a pure function:
// the same inputs always produce the same result.
//
// Tasks whose key is not a closed sequence are tagged open. Closed tasks
// compare the trimmed submission for qnum i with the trimmed expected
// value of item i using exact, case-sensitive equality; an empty
// submission never matches. The total is the mean of closed task
// fractions, open tasks excluded.
func Grade(answers quiz.AnswerMap, key quiz.AnswerKey) quiz.GradingResult {
	result := quiz.GradingResult{Tasks: make(map[string]quiz.TaskOutcome, len(key))}
	fractions := make([]float64, 0, len(key))

	for taskID, taskKey := range key {
		if !taskKey.Closed() {
			result.Tasks[taskID] = quiz.OpenOutcome()
			continue
		}

		total := taskKey.Len()
		task := quiz.TaskResult{Statuses: make(map[string]quiz.Status, total)}
		score := 0
		for i, spec := range taskKey.Items {
			qnum := strconv.Itoa(i + 1)
			submitted := ""
			if answer, ok := answers.Get(taskID, qnum); ok {
				submitted = strings.TrimSpace(answer.Text())
			}
			expected := strings.TrimSpace(spec.Correct)
			if submitted != "" && submitted == expected {
				task.Statuses[qnum] = quiz.StatusCorrect
				score++
				continue
			}
			task.Statuses[qnum] = quiz.StatusIncorrect
		}
		task.Score = fmt.Sprintf("%d/%d", score, total)
		result.Tasks[taskID] = quiz.ScoredOutcome(task)
		fractions = append(fractions, float64(score)/float64(total))
	}

	result.Total = FormatTotal(fractions)
	return result
}

// FormatTotal renders the macro average of per-task fractions as a
// percentage with one decimal, or "0%" when there is nothing to average.
func FormatTotal(fractions []float64) string {
	if len(fractions) == 0 {
		return "0%"
	}
	var sum float64
	for _, f := range fractions {
		sum += f
	}
	return fmt.Sprintf("%.1f%%", sum/float64(len(fractions))*100)
}

// ParseTotal reads a percentage string such as "73.3%".
func ParseTotal(total string) (float64, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(total), "%")
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
