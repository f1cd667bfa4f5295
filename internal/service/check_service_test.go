package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanex-quiz-api/internal/dto"
	"github.com/noah-isme/lanex-quiz-api/internal/observability"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

type recordingPublisher struct {
	events []CheckEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event CheckEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func setupCheckService(t *testing.T, withRedis bool) (CheckService, *recordingPublisher) {
	t.Helper()
	repo := setupKeyRepository(t)
	keys := NewAnswerKeyService(repo, nil, time.Minute, testLogger())
	seed := NewSeedService(repo, keys, validator.New(), true, "secret", testLogger())
	seedKeys(t, seed, dto.LevelKeyPayload{Level: "Elementary", Tasks: map[string]map[string][]string{
		"task1": {"1": {"B"}, "2": {"A"}, "3": {"B"}},
		"task2": {"3": {"Monday", "Mon"}, "7": {"2", "two"}},
	}})

	publisher := &recordingPublisher{}
	if withRedis {
		_, client := setupRedis(t)
		return NewCheckService(keys, client, time.Minute, validator.New(), publisher, testLogger()), publisher
	}
	return NewCheckService(keys, nil, time.Minute, validator.New(), publisher, testLogger()), publisher
}

func elementaryPayload() quiz.Payload {
	answers := quiz.AnswerMap{}
	answers.Set("task1", "1", quiz.Single("B"))
	answers.Set("task1", "2", quiz.Single("C"))
	answers.Set("task1", "3", quiz.Single(""))
	answers.Set("task2", "3", quiz.Single(" mon "))
	answers.Set("task2", "7", quiz.Single("Two"))
	answers.Set("task4", "1", quiz.Single("My favourite holiday is..."))
	return quiz.Payload{Level: "Elementary", Answers: answers, Username: "Anna <b>K</b>"}
}

func TestCheckServiceGradesSubmission(t *testing.T) {
	svc, publisher := setupCheckService(t, false)

	ctx := observability.WithCorrelationID(context.Background(), "corr-42")
	resp, err := svc.Check(ctx, elementaryPayload())
	require.NoError(t, err)
	require.Equal(t, quiz.ResponseStatusOK, resp.Status)
	require.Equal(t, "Anna K", resp.UsernameUsed)
	require.NotNil(t, resp.Result)

	task1 := resp.Result.Tasks["task1"].Result
	require.Equal(t, "1/3", task1.Score)
	require.Equal(t, quiz.StatusCorrect, task1.Statuses["1"])
	require.Equal(t, quiz.StatusIncorrect, task1.Statuses["2"])
	require.Equal(t, quiz.StatusIncorrect, task1.Statuses["3"])
	require.Equal(t, "2/2", resp.Result.Tasks["task2"].Result.Score)
	require.True(t, resp.Result.Tasks["task4"].Open)
	require.Equal(t, "66.7%", resp.Result.Total)

	require.Len(t, publisher.events, 1)
	require.Equal(t, "Elementary", publisher.events[0].Level)
	require.Equal(t, []string{"task4"}, publisher.events[0].OpenTasks)
	require.NotEmpty(t, publisher.events[0].ID)
	require.Equal(t, "corr-42", publisher.events[0].CorrelationID)
}

func TestCheckServiceEmptyForm(t *testing.T) {
	svc, publisher := setupCheckService(t, false)
	answers := quiz.AnswerMap{}
	answers.Set("task1", "1", quiz.Single("  "))
	answers.Set("task1", "2", quiz.Multi())

	resp, err := svc.Check(context.Background(), quiz.Payload{Level: "Elementary", Answers: answers})
	require.NoError(t, err)
	require.Equal(t, dto.CheckResponse{Status: quiz.ResponseStatusEmptyForm}, resp)
	require.Empty(t, publisher.events)
}

func TestCheckServiceRejectsInvalidRequests(t *testing.T) {
	svc, _ := setupCheckService(t, false)

	_, err := svc.Check(context.Background(), quiz.Payload{Level: "  ", Answers: elementaryPayload().Answers})
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	payload := elementaryPayload()
	payload.Level = "Advanced"
	_, err = svc.Check(context.Background(), payload)
	require.ErrorIs(t, err, ErrLevelNotFound)
}

func TestCheckServiceLocksPerUser(t *testing.T) {
	svc, _ := setupCheckService(t, true)
	impl := svc.(*checkService)
	telegramID := int64(77)
	payload := elementaryPayload()
	payload.TelegramID = &telegramID

	release, err := impl.acquire(context.Background(), payload)
	require.NoError(t, err)

	_, err = svc.Check(context.Background(), payload)
	require.ErrorIs(t, err, ErrCheckInProgress)

	release()
	resp, err := svc.Check(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, quiz.ResponseStatusOK, resp.Status)

	_, err = svc.Check(context.Background(), payload)
	require.NoError(t, err, "lock is released after each check")
}

func TestCheckServiceIgnoresPublishFailures(t *testing.T) {
	svc, publisher := setupCheckService(t, false)
	publisher.err = errors.New("broker down")

	resp, err := svc.Check(context.Background(), elementaryPayload())
	require.NoError(t, err)
	require.Equal(t, quiz.ResponseStatusOK, resp.Status)
}

func TestResolveUsername(t *testing.T) {
	telegramID := int64(12345)
	policy := bluemonday.StrictPolicy()

	cases := []struct {
		name       string
		username   string
		telegramID *int64
		want       string
	}{
		{name: "plain", username: "anna_k-1", want: "anna_k-1"},
		{name: "cyrillic", username: "Анна Иванова", want: "Анна Иванова"},
		{name: "markup stripped", username: "<script>x</script>Bob!", want: "Bob"},
		{name: "entities", username: "Tom & Jerry", want: "Tom Jerry"},
		{name: "telegram fallback", username: "!!!", telegramID: &telegramID, want: "user_12345"},
		{name: "anonymous", username: "", want: "anonymous"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ResolveUsername(policy, tc.username, tc.telegramID))
		})
	}
}

func TestCheckServiceMatchesLevelCaseInsensitively(t *testing.T) {
	repo := setupKeyRepository(t)
	keys := NewAnswerKeyService(repo, nil, time.Minute, testLogger())
	seed := NewSeedService(repo, keys, validator.New(), true, "secret", testLogger())
	_, err := seed.SeedDefaults(context.Background())
	require.NoError(t, err)
	svc := NewCheckService(keys, nil, time.Minute, validator.New(), &recordingPublisher{}, testLogger())

	for _, level := range []string{"starter", "Starter", " STARTER "} {
		answers := quiz.AnswerMap{}
		answers.Set("task1", "1", quiz.Single("c"))
		resp, err := svc.Check(context.Background(), quiz.Payload{Level: level, Answers: answers})
		require.NoError(t, err, level)
		require.Equal(t, quiz.ResponseStatusOK, resp.Status)
		require.Equal(t, quiz.StatusCorrect, resp.Result.Tasks["task1"].Result.Statuses["1"])
	}
}
