package gradingclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanex-quiz-api/internal/grading"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

func TestFallbackOnTimeoutMatchesLocalGrading(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	grader := NewFallbackGrader(newTestClient(t, server.URL, 30*time.Millisecond), zerolog.Nop())
	payload := testPayload()

	envelope, err := grader.Grade(context.Background(), payload, testKey())
	require.NoError(t, err)

	require.Equal(t, SourceLocal, envelope.Source)
	require.Equal(t, quiz.ResponseStatusOK, envelope.Status)
	require.Equal(t, grading.Grade(payload.Answers, testKey()), envelope.Result)
	require.Equal(t, "2/3", envelope.Result.Tasks["task1"].Result.Score)
}

func TestFallbackOnServiceAndDecodeFailures(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
	}
	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			grader := NewFallbackGrader(newTestClient(t, server.URL, time.Second), zerolog.Nop())
			envelope, err := grader.Grade(context.Background(), testPayload(), testKey())
			require.NoError(t, err)
			require.Equal(t, SourceLocal, envelope.Source)
			require.False(t, envelope.Result.IsEmpty())
		})
	}
}

func TestFallbackSurfacesRemoteStatuses(t *testing.T) {
	bodies := map[string]string{
		quiz.ResponseStatusEmptyForm: `{"status":"empty_form"}`,
		"rejected":                   `{"status":"rejected"}`,
	}
	for status, body := range bodies {
		t.Run(status, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			grader := NewFallbackGrader(newTestClient(t, server.URL, time.Second), zerolog.Nop())
			envelope, err := grader.Grade(context.Background(), testPayload(), testKey())
			require.NoError(t, err)
			require.Equal(t, SourceRemote, envelope.Source)
			require.Equal(t, status, envelope.Status)
			require.True(t, envelope.Result.IsEmpty())
		})
	}
}

func TestFallbackMissingStatusIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"received": true}`))
	}))
	defer server.Close()

	grader := NewFallbackGrader(newTestClient(t, server.URL, time.Second), zerolog.Nop())
	_, err := grader.Grade(context.Background(), testPayload(), testKey())

	require.True(t, IsProtocolError(err))
}

func TestFallbackWithoutRemoteGradesLocally(t *testing.T) {
	grader := NewFallbackGrader(nil, zerolog.Nop())

	envelope, err := grader.Grade(context.Background(), testPayload(), testKey())
	require.NoError(t, err)
	require.Equal(t, SourceLocal, envelope.Source)
	require.True(t, envelope.Result.Tasks["task2"].Open)
}
