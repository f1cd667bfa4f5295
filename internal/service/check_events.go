package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// CheckEvent is published after every graded submission.
type CheckEvent struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Level         string    `json:"level"`
	Username      string    `json:"username"`
	TelegramID    *int64    `json:"telegram_id,omitempty"`
	Total         string    `json:"total"`
	OpenTasks     []string  `json:"open_tasks,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// CheckPublisher delivers check events to downstream consumers.
type CheckPublisher interface {
	Publish(ctx context.Context, event CheckEvent) error
}

type natsCheckPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSCheckPublisher publishes check events on a NATS subject.
func NewNATSCheckPublisher(conn *nats.Conn, subject string) CheckPublisher {
	return &natsCheckPublisher{conn: conn, subject: subject}
}

func (p *natsCheckPublisher) Publish(_ context.Context, event CheckEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, payload)
}

type logCheckPublisher struct {
	logger zerolog.Logger
}

// NewLogCheckPublisher logs check events when no broker is configured.
func NewLogCheckPublisher(logger zerolog.Logger) CheckPublisher {
	return &logCheckPublisher{logger: logger.With().Str("component", "check_events").Logger()}
}

func (p *logCheckPublisher) Publish(_ context.Context, event CheckEvent) error {
	p.logger.Info().
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Str("level", event.Level).
		Str("username", event.Username).
		Str("total", event.Total).
		Msg("test checked")
	return nil
}
