// Package gradingclient talks to the remote grading endpoint and falls back
// to local grading when it cannot be reached.
package gradingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

// DefaultTimeout bounds a grading request.
const DefaultTimeout = 8000 * time.Millisecond

const maxErrorBody = 4 << 10

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lanex",
		Subsystem: "grading_client",
		Name:      "request_duration_seconds",
		Help:      "Duration of remote grading requests",
	}, []string{"outcome"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lanex",
		Subsystem: "grading_client",
		Name:      "failures_total",
		Help:      "Number of failed remote grading requests",
	}, []string{"reason"})
)

// Config defines the remote grading endpoint.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Response is the decoded body of a successful grading call. Status
// interpretation is left to the caller.
type Response struct {
	Status    string
	HasStatus bool
	Result    quiz.GradingResult
	HasResult bool
	Fields    map[string]json.RawMessage
}

// Client posts payloads to the grading endpoint.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// New builds a client; the endpoint is required.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("grading endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		http:     httpClient,
		tracer:   otel.Tracer("github.com/noah-isme/lanex-quiz-api/pkg/gradingclient"),
		logger:   cfg.Logger.With().Str("component", "grading_client").Logger(),
	}, nil
}

// Check sends one grading request. The request is cancelled once the
// configured timeout elapses.
func (c *Client) Check(parent context.Context, payload quiz.Payload) (Response, error) {
	ctx, span := c.tracer.Start(parent, "grading.remote_check", trace.WithAttributes(
		attribute.String("grading.level", payload.Level),
		attribute.String("grading.endpoint", c.endpoint),
	))
	defer span.End()

	start := time.Now()
	response, err := c.do(ctx, payload)
	duration := time.Since(start)

	if err != nil {
		reason := failureReason(err)
		requestDuration.WithLabelValues("failure").Observe(duration.Seconds())
		requestFailures.WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}

	requestDuration.WithLabelValues("success").Observe(duration.Seconds())
	span.SetAttributes(attribute.String("grading.status", response.Status))
	return response, nil
}

func (c *Client) do(parent context.Context, payload quiz.Payload) (Response, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode grading payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build grading request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, &NetworkError{Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Response{}, &ServiceError{StatusCode: resp.StatusCode, Body: string(text)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &NetworkError{Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded), Err: err}
	}

	return decodeResponse(raw)
}

func decodeResponse(raw []byte) (Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Response{}, &MalformedResponseError{Err: err}
	}
	if fields == nil {
		return Response{}, &MalformedResponseError{Err: errors.New("response body is not an object")}
	}

	response := Response{Fields: fields}
	if status, ok := fields["status"]; ok {
		if err := json.Unmarshal(status, &response.Status); err != nil {
			return Response{}, &MalformedResponseError{Err: fmt.Errorf("status: %w", err)}
		}
		response.HasStatus = true
	}
	if result, ok := fields["result"]; ok {
		if err := json.Unmarshal(result, &response.Result); err != nil {
			return Response{}, &MalformedResponseError{Err: err}
		}
		response.HasResult = true
	}
	return response, nil
}
