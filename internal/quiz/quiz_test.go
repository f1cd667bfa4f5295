package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnswerMapJSONKeepsShapes(t *testing.T) {
	answers := AnswerMap{}
	answers.Set("task1", "1", Single("C"))
	answers.Set("task1", "2", Multi())
	answers.Set("task2", "1", Multi("A", "B"))

	encoded, err := json.Marshal(answers)
	require.NoError(t, err)
	require.JSONEq(t, `{"task1":{"1":"C","2":[]},"task2":{"1":["A","B"]}}`, string(encoded))

	var decoded AnswerMap
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	multi, ok := decoded.Get("task2", "1")
	require.True(t, ok)
	require.True(t, multi.IsMulti())
	require.Equal(t, "A,B", multi.Text())
}

func TestAnswerUnmarshalRejectsObjects(t *testing.T) {
	var answer Answer
	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &answer))
	require.NoError(t, json.Unmarshal([]byte(`null`), &answer))
	require.True(t, answer.IsBlank())
}

func TestHasAnyAnswer(t *testing.T) {
	answers := AnswerMap{}
	answers.Set("task1", "1", Single("  "))
	answers.Set("task1", "2", Multi())
	require.False(t, answers.HasAnyAnswer())

	answers.Set("task2", "1", Multi("A"))
	require.True(t, answers.HasAnyAnswer())
}

func TestTaskKeyClosedDetection(t *testing.T) {
	cases := map[string]bool{
		`[{"correct":"A"},{"correct":"B"}]`: true,
		`[{"correct":""}]`:                  true,
		`[{"question":"x"}]`:                false,
		`[]`:                                false,
		`null`:                              false,
		`{"correct":"A"}`:                   false,
		`["A","B"]`:                         false,
	}
	for raw, closed := range cases {
		var key TaskKey
		require.NoError(t, json.Unmarshal([]byte(raw), &key), raw)
		require.Equal(t, closed, key.Closed(), raw)
	}
}

func TestGradingResultDecodesTaggedVariants(t *testing.T) {
	var result GradingResult
	require.NoError(t, json.Unmarshal([]byte(`{
		"task1": {"1": "correct", "2": "incorrect", "score": "1/2"},
		"task2": "open",
		"task3": "pending",
		"total": "50.0%"
	}`), &result))

	require.Equal(t, "50.0%", result.Total)
	require.True(t, result.Tasks["task2"].Open)
	require.NotContains(t, result.Tasks, "task3")

	task := result.Tasks["task1"].Result
	require.NotNil(t, task)
	require.Equal(t, StatusCorrect, task.Statuses["1"])
	score, max, ok := task.Fraction()
	require.True(t, ok)
	require.Equal(t, 1, score)
	require.Equal(t, 2, max)
	require.False(t, result.IsEmpty())
}

func TestEmptyGradingResult(t *testing.T) {
	var result GradingResult
	require.NoError(t, json.Unmarshal([]byte(`{}`), &result))
	require.True(t, result.IsEmpty())
}
