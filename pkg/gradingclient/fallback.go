package gradingclient

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanex-quiz-api/internal/grading"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

var fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lanex",
	Subsystem: "grading_client",
	Name:      "fallbacks_total",
	Help:      "Number of submissions graded locally after a remote failure",
}, []string{"reason"})

// Source tells where a result was computed.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Envelope is the single success shape handed to the presenter.
type Envelope struct {
	Status string
	Result quiz.GradingResult
	Source Source
}

// Remote is the remote side of grading.
type Remote interface {
	Check(ctx context.Context, payload quiz.Payload) (Response, error)
}

// FallbackGrader tries the remote service and grades locally when the
// call fails for any transport, status or decoding reason.
type FallbackGrader struct {
	remote Remote
	logger zerolog.Logger
}

// NewFallbackGrader wraps a remote grader. A nil remote always grades locally.
func NewFallbackGrader(remote Remote, logger zerolog.Logger) *FallbackGrader {
	return &FallbackGrader{
		remote: remote,
		logger: logger.With().Str("component", "fallback_grader").Logger(),
	}
}

// Grade returns an envelope or a ProtocolError when the service answered
// without a status.
func (g *FallbackGrader) Grade(ctx context.Context, payload quiz.Payload, key quiz.AnswerKey) (Envelope, error) {
	if g.remote == nil {
		return g.local(payload, key), nil
	}

	response, err := g.remote.Check(ctx, payload)
	if err != nil {
		reason := failureReason(err)
		fallbacksTotal.WithLabelValues(reason).Inc()
		g.logger.Warn().Err(err).Str("reason", reason).Str("level", payload.Level).Msg("remote grading failed, grading locally")
		return g.local(payload, key), nil
	}

	if !response.HasStatus {
		err := &ProtocolError{Reason: "response has no status field"}
		g.logger.Error().Err(err).Str("level", payload.Level).Msg("unrecognised grading response")
		return Envelope{}, err
	}

	result := response.Result
	if result.Tasks == nil {
		result.Tasks = map[string]quiz.TaskOutcome{}
	}
	return Envelope{Status: response.Status, Result: result, Source: SourceRemote}, nil
}

func (g *FallbackGrader) local(payload quiz.Payload, key quiz.AnswerKey) Envelope {
	return Envelope{
		Status: quiz.ResponseStatusOK,
		Result: grading.Grade(payload.Answers, key),
		Source: SourceLocal,
	}
}
