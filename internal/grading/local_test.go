package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

func closedAnswers(taskID string, values map[string]string) quiz.AnswerMap {
	answers := quiz.AnswerMap{}
	answers.EnsureTask(taskID)
	for qnum, value := range values {
		answers.Set(taskID, qnum, quiz.Single(value))
	}
	return answers
}

func TestGradeScoresClosedTask(t *testing.T) {
	key := quiz.AnswerKey{"task1": quiz.NewClosedTask("C", "A", "C")}
	answers := closedAnswers("task1", map[string]string{"1": "C", "2": "B", "3": "C"})

	result := Grade(answers, key)

	outcome := result.Tasks["task1"]
	require.False(t, outcome.Open)
	require.NotNil(t, outcome.Result)
	require.Equal(t, map[string]quiz.Status{
		"1": quiz.StatusCorrect,
		"2": quiz.StatusIncorrect,
		"3": quiz.StatusCorrect,
	}, outcome.Result.Statuses)
	require.Equal(t, "2/3", outcome.Result.Score)
	require.Equal(t, "66.7%", result.Total)
}

func TestGradeTagsOpenTasksFromPageData(t *testing.T) {
	var key quiz.AnswerKey
	require.NoError(t, json.Unmarshal([]byte(`{
		"task1": [{"correct": "B"}],
		"task2": [{"audio": "a.mp3", "questions": [{"qnum": 1}]}],
		"task3": [],
		"task4": {"not": "a list"},
		"task5": null
	}`), &key))

	result := Grade(quiz.AnswerMap{}, key)

	for _, id := range []string{"task2", "task3", "task4", "task5"} {
		require.True(t, result.Tasks[id].Open, id)
		require.Nil(t, result.Tasks[id].Result, id)
	}

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(encoded, &wire))
	require.Equal(t, "open", wire["task2"])
	require.Equal(t, "0.0%", wire["total"])
}

func TestGradeAveragesAcrossClosedTasksOnly(t *testing.T) {
	key := quiz.AnswerKey{
		"task1": quiz.NewClosedTask("A", "B", "C"),
		"task2": quiz.NewClosedTask("A", "B", "C", "D", "E"),
		"task3": quiz.NewOpenTask(4),
	}
	answers := quiz.AnswerMap{}
	for qnum, value := range map[string]string{"1": "A", "2": "B", "3": "x"} {
		answers.Set("task1", qnum, quiz.Single(value))
	}
	for qnum, value := range map[string]string{"1": "A", "2": "B", "3": "C", "4": "D", "5": ""} {
		answers.Set("task2", qnum, quiz.Single(value))
	}
	answers.Set("task3", "1", quiz.Single("an essay"))

	result := Grade(answers, key)

	require.Equal(t, "2/3", result.Tasks["task1"].Result.Score)
	require.Equal(t, "4/5", result.Tasks["task2"].Result.Score)
	require.True(t, result.Tasks["task3"].Open)
	require.Equal(t, "73.3%", result.Total)
}

func TestGradeEmptyExpectedNeverMatchesEmptySubmission(t *testing.T) {
	key := quiz.AnswerKey{"task1": quiz.NewClosedTask("", "  ")}
	answers := closedAnswers("task1", map[string]string{"1": "", "2": "   "})

	result := Grade(answers, key)

	require.Equal(t, quiz.StatusIncorrect, result.Tasks["task1"].Result.Statuses["1"])
	require.Equal(t, quiz.StatusIncorrect, result.Tasks["task1"].Result.Statuses["2"])
	require.Equal(t, "0/2", result.Tasks["task1"].Result.Score)
}

func TestGradeTrimsAndIsCaseSensitive(t *testing.T) {
	key := quiz.AnswerKey{"task1": quiz.NewClosedTask(" Monday ", "pasta")}
	answers := closedAnswers("task1", map[string]string{"1": "Monday  ", "2": "Pasta"})

	result := Grade(answers, key)

	require.Equal(t, quiz.StatusCorrect, result.Tasks["task1"].Result.Statuses["1"])
	require.Equal(t, quiz.StatusIncorrect, result.Tasks["task1"].Result.Statuses["2"])
}

func TestGradeMissingQuestionsAreIncorrect(t *testing.T) {
	key := quiz.AnswerKey{"task1": quiz.NewClosedTask("A", "B")}

	result := Grade(quiz.AnswerMap{}, key)

	require.Equal(t, "0/2", result.Tasks["task1"].Result.Score)
	require.Equal(t, "0.0%", result.Total)
}

func TestGradeMultiChoiceComparesJoinedSet(t *testing.T) {
	key := quiz.AnswerKey{"task1": quiz.NewClosedTask("A,C")}
	answers := quiz.AnswerMap{}
	answers.Set("task1", "1", quiz.Multi("A", "C"))

	result := Grade(answers, key)

	require.Equal(t, quiz.StatusCorrect, result.Tasks["task1"].Result.Statuses["1"])
}

func TestGradeWithoutClosedTasksTotalsZero(t *testing.T) {
	key := quiz.AnswerKey{"task1": quiz.NewOpenTask(3)}

	result := Grade(quiz.AnswerMap{}, key)

	require.Equal(t, "0%", result.Total)
	require.Equal(t, "0%", Grade(quiz.AnswerMap{}, quiz.AnswerKey{}).Total)
}

func TestGradeIsDeterministic(t *testing.T) {
	key := quiz.AnswerKey{
		"task1": quiz.NewClosedTask("C", "A", "C"),
		"task2": quiz.NewOpenTask(1),
	}
	answers := closedAnswers("task1", map[string]string{"1": "C", "2": "B", "3": "C"})

	first := Grade(answers, key)
	second := Grade(answers, key)

	require.Equal(t, first, second)
}

func TestGradeStringifiesNonStringKeys(t *testing.T) {
	var key quiz.AnswerKey
	require.NoError(t, json.Unmarshal([]byte(`{"task1": [{"correct": 2}, {"correct": true}]}`), &key))
	answers := closedAnswers("task1", map[string]string{"1": "2", "2": "true"})

	result := Grade(answers, key)

	require.Equal(t, "2/2", result.Tasks["task1"].Result.Score)
}

func TestParseTotal(t *testing.T) {
	value, ok := ParseTotal("73.3%")
	require.True(t, ok)
	require.InDelta(t, 73.3, value, 0.001)

	_, ok = ParseTotal("")
	require.False(t, ok)
}
