package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanex-quiz-api/internal/dto"
	"github.com/noah-isme/lanex-quiz-api/internal/handler"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
	"github.com/noah-isme/lanex-quiz-api/internal/service"
	"github.com/noah-isme/lanex-quiz-api/pkg/gradingclient"
)

type mockCheckService struct {
	lastPayload quiz.Payload
	response    dto.CheckResponse
	err         error
}

func (m *mockCheckService) Check(_ context.Context, payload quiz.Payload) (dto.CheckResponse, error) {
	m.lastPayload = payload
	if m.err != nil {
		return dto.CheckResponse{}, m.err
	}
	return m.response, nil
}

func newCheckApp(svc service.CheckService) *fiber.App {
	app := fiber.New()
	handler.NewCheckHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestCheckHandler_ReturnsBareContract(t *testing.T) {
	result := quiz.GradingResult{
		Tasks: map[string]quiz.TaskOutcome{
			"task1": quiz.ScoredOutcome(quiz.TaskResult{Statuses: map[string]quiz.Status{"1": quiz.StatusCorrect}, Score: "1/1"}),
			"task2": quiz.OpenOutcome(),
		},
		Total: "100.0%",
	}
	svc := &mockCheckService{response: dto.CheckResponse{Status: "ok", UsernameUsed: "anna", Result: &result}}
	app := newCheckApp(svc)

	resp := postJSON(t, app, "/api/check_test", `{"level":"Starter","username":"anna","telegramId":42,"answers":{"task1":{"1":"B","2":["A","C"]}}}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeResponse(t, resp, &body)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "anna", body["username_used"])
	require.NotContains(t, body, "success")
	resultBody := body["result"].(map[string]interface{})
	require.Equal(t, "open", resultBody["task2"])
	require.Equal(t, "100.0%", resultBody["total"])

	require.Equal(t, "Starter", svc.lastPayload.Level)
	require.Equal(t, int64(42), *svc.lastPayload.TelegramID)
	require.Equal(t, []string{"A", "C"}, svc.lastPayload.Answers["task1"]["2"].Values())
}

func TestCheckHandler_ErrorMapping(t *testing.T) {
	validationErr := validator.New().Struct(quiz.Payload{})
	require.Error(t, validationErr)

	cases := map[string]struct {
		err    error
		status int
	}{
		"validation":  {err: validationErr, status: fiber.StatusBadRequest},
		"level":       {err: service.ErrLevelNotFound, status: fiber.StatusNotFound},
		"in progress": {err: service.ErrCheckInProgress, status: fiber.StatusConflict},
		"internal":    {err: errors.New("db down"), status: fiber.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			app := newCheckApp(&mockCheckService{err: tc.err})
			resp := postJSON(t, app, "/api/check_test", `{"level":"Starter","answers":{}}`)
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
			require.NotEmpty(t, body.Message)
		})
	}
}

func TestCheckHandler_InvalidJSON(t *testing.T) {
	svc := &mockCheckService{}
	app := newCheckApp(svc)

	resp := postJSON(t, app, "/api/check_test", `{"level":`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Empty(t, svc.lastPayload.Level)
}

func TestCheckContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "check_response.schema.json"))
	require.NoError(t, err)
	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)

	_, check := seededServices(t)
	app := newCheckApp(check)

	requests := []string{
		`{"level":"Elementary","username":"Anna","answers":{"task1":{"1":"B","2":"C"},"task2":{"3":"mon","7":"two"},"task4":{"1":"An essay"}}}`,
		`{"level":"Starter","telegramId":5,"answers":{"task1":{"1":["C"]}}}`,
		`{"level":"Starter","answers":{"task1":{"1":"  ","2":[]}}}`,
	}
	for _, body := range requests {
		resp := postJSON(t, app, "/api/check_test", body)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()

		var document interface{}
		require.NoError(t, json.Unmarshal(raw, &document))
		require.NoError(t, schema.Validate(document), string(raw))
	}
}

func TestGradingClientAgainstHandler(t *testing.T) {
	_, check := seededServices(t)
	server := httptest.NewServer(adaptor.FiberApp(newCheckApp(check)))
	defer server.Close()

	client, err := gradingclient.New(gradingclient.Config{
		Endpoint: server.URL + "/api/check_test",
		Timeout:  2 * time.Second,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	answers := quiz.AnswerMap{}
	answers.Set("task1", "1", quiz.Single("C"))
	answers.Set("task1", "2", quiz.Single("A"))
	answers.Set("task3", "1", quiz.Single("free text"))

	response, err := client.Check(context.Background(), quiz.Payload{Level: "Starter", Answers: answers, Username: "Bob"})
	require.NoError(t, err)
	require.Equal(t, quiz.ResponseStatusOK, response.Status)
	require.Equal(t, "1/20", response.Result.Tasks["task1"].Result.Score)
	require.True(t, response.Result.Tasks["task3"].Open)
	require.Equal(t, "5.0%", response.Result.Total)

	empty, err := client.Check(context.Background(), quiz.Payload{Level: "Starter", Answers: quiz.AnswerMap{"task1": {"1": quiz.Single("")}}})
	require.NoError(t, err)
	require.Equal(t, quiz.ResponseStatusEmptyForm, empty.Status)
	require.False(t, empty.HasResult)

	unknown, err := client.Check(context.Background(), quiz.Payload{Level: "Advanced", Answers: answers})
	require.Error(t, err)
	require.Empty(t, unknown.Status)
	var serviceErr *gradingclient.ServiceError
	require.True(t, errors.As(err, &serviceErr))
	require.Equal(t, fiber.StatusNotFound, serviceErr.StatusCode)

	fallback := gradingclient.NewFallbackGrader(client, zerolog.Nop())
	envelope, err := fallback.Grade(context.Background(), quiz.Payload{Level: "Advanced", Answers: answers}, quiz.AnswerKey{
		"task1": quiz.NewClosedTask("C", "A"),
	})
	require.NoError(t, err)
	require.Equal(t, gradingclient.SourceLocal, envelope.Source)
	require.Equal(t, "2/2", envelope.Result.Tasks["task1"].Result.Score)
}
