package grading

import (
	"fmt"
	"strings"

	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

// LevelKey is the server-side key for one test level: task id to question
// number to the accepted answers.
type LevelKey map[string]map[string][]string

// Questions returns the number of keyed questions for a task.
func (k LevelKey) Questions(taskID string) int {
	return len(k[taskID])
}

var numberWords = map[string]string{
	"one":   "1",
	"two":   "2",
	"three": "3",
	"four":  "4",
	"five":  "5",
	"six":   "6",
	"seven": "7",
	"eight": "8",
	"nine":  "9",
	"ten":   "10",
}

// NormalizeAnswer trims, lowercases and maps English number words to digits.
func NormalizeAnswer(answer string) string {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	if digits, ok := numberWords[normalized]; ok {
		return digits
	}
	return normalized
}

// Accepts reports whether the submitted answer matches any accepted alternative.
func Accepts(submitted string, accepted []string) bool {
	if len(accepted) == 0 || strings.TrimSpace(submitted) == "" {
		return false
	}
	user := NormalizeAnswer(submitted)
	for _, alternative := range accepted {
		if strings.TrimSpace(alternative) == "" {
			continue
		}
		if user == NormalizeAnswer(alternative) {
			return true
		}
	}
	return false
}

// Check grades a submission on the server. Only tasks present in the
// submission are reported; a task missing from the level key is open. The
// score denominator is the number of keyed questions and the total is the
// mean over closed tasks.
func Check(answers quiz.AnswerMap, key LevelKey) quiz.GradingResult {
	result := quiz.GradingResult{Tasks: make(map[string]quiz.TaskOutcome, len(answers))}
	fractions := make([]float64, 0, len(answers))

	for _, taskID := range answers.TaskIDs() {
		correct, ok := key[taskID]
		if !ok || len(correct) == 0 {
			result.Tasks[taskID] = quiz.OpenOutcome()
			continue
		}

		task := quiz.TaskResult{Statuses: make(map[string]quiz.Status, len(answers[taskID]))}
		score := 0
		for qnum, answer := range answers[taskID] {
			if Accepts(answer.Text(), correct[qnum]) {
				task.Statuses[qnum] = quiz.StatusCorrect
				score++
				continue
			}
			task.Statuses[qnum] = quiz.StatusIncorrect
		}
		task.Score = fmt.Sprintf("%d/%d", score, len(correct))
		result.Tasks[taskID] = quiz.ScoredOutcome(task)
		fractions = append(fractions, float64(score)/float64(len(correct)))
	}

	result.Total = FormatTotal(fractions)
	return result
}
