package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lanex-quiz-api/internal/dto"
	"github.com/noah-isme/lanex-quiz-api/internal/grading"
	"github.com/noah-isme/lanex-quiz-api/internal/observability"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

// ErrCheckInProgress indicates the same user already has a check running.
var ErrCheckInProgress = errors.New("check already in progress")

// CheckService grades submitted tests against the stored level keys.
type CheckService interface {
	Check(ctx context.Context, payload quiz.Payload) (dto.CheckResponse, error)
}

type checkService struct {
	keys      AnswerKeyService
	cache     *redis.Client
	lockTTL   time.Duration
	validator *validator.Validate
	publisher CheckPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewCheckService constructs the check service. cache and publisher may be nil.
func NewCheckService(keys AnswerKeyService, cache *redis.Client, lockTTL time.Duration, validate *validator.Validate, publisher CheckPublisher, logger zerolog.Logger) CheckService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &checkService{
		keys:      keys,
		cache:     cache,
		lockTTL:   lockTTL,
		validator: validate,
		publisher: publisher,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "check_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lanex-quiz-api/internal/service/check"),
	}
}

func (s *checkService) Check(ctx context.Context, payload quiz.Payload) (dto.CheckResponse, error) {
	payload.Level = strings.TrimSpace(payload.Level)
	ctx, span := s.tracer.Start(ctx, "quiz.check", trace.WithAttributes(attribute.String("quiz.level", payload.Level)))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		observability.CheckOutcomes().WithLabelValues("invalid").Inc()
		return dto.CheckResponse{}, err
	}

	if !payload.Answers.HasAnyAnswer() {
		observability.CheckOutcomes().WithLabelValues(quiz.ResponseStatusEmptyForm).Inc()
		return dto.CheckResponse{Status: quiz.ResponseStatusEmptyForm}, nil
	}

	key, err := s.keys.LevelKey(ctx, payload.Level)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "answer key unavailable")
		if errors.Is(err, ErrLevelNotFound) {
			observability.CheckOutcomes().WithLabelValues("unknown_level").Inc()
		} else {
			observability.CheckOutcomes().WithLabelValues("error").Inc()
		}
		return dto.CheckResponse{}, err
	}

	release, err := s.acquire(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock failed")
		if errors.Is(err, ErrCheckInProgress) {
			observability.CheckOutcomes().WithLabelValues("duplicate").Inc()
		} else {
			observability.CheckOutcomes().WithLabelValues("error").Inc()
		}
		return dto.CheckResponse{}, err
	}
	defer release()

	result := grading.Check(payload.Answers, key)
	username := ResolveUsername(s.sanitizer, payload.Username, payload.TelegramID)

	event := CheckEvent{
		ID:            uuid.NewString(),
		CorrelationID: observability.CorrelationID(ctx),
		Level:         payload.Level,
		Username:      username,
		TelegramID:    payload.TelegramID,
		Total:         result.Total,
		CheckedAt:     time.Now().UTC(),
	}
	for _, taskID := range result.TaskIDs() {
		if result.Tasks[taskID].Open {
			event.OpenTasks = append(event.OpenTasks, taskID)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			span.RecordError(err)
			s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to publish check event")
		}
	}

	span.SetAttributes(attribute.String("quiz.total", result.Total))
	span.SetStatus(codes.Ok, "checked")
	observability.CheckOutcomes().WithLabelValues(quiz.ResponseStatusOK).Inc()
	s.logger.Info().
		Str("event_id", event.ID).
		Str("level", payload.Level).
		Str("username", username).
		Str("total", result.Total).
		Msg("test checked")

	return dto.CheckResponse{Status: quiz.ResponseStatusOK, UsernameUsed: username, Result: &result}, nil
}

// acquire takes the per-user in-flight lock. Anonymous submissions are not locked.
func (s *checkService) acquire(ctx context.Context, payload quiz.Payload) (func(), error) {
	noop := func() {}
	if s.cache == nil {
		return noop, nil
	}

	identity := ""
	switch {
	case payload.TelegramID != nil:
		identity = "tg:" + strconv.FormatInt(*payload.TelegramID, 10)
	case strings.TrimSpace(payload.Username) != "":
		identity = "user:" + strings.ToLower(strings.TrimSpace(payload.Username))
	default:
		return noop, nil
	}

	key := fmt.Sprintf("check:lock:%s:%s", CanonicalLevel(payload.Level), identity)
	ok, err := s.cache.SetNX(ctx, key, 1, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire check lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckInProgress
	}

	return func() {
		if err := s.cache.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			s.logger.Warn().Err(err).Str("lock", key).Msg("failed to release check lock")
		}
	}, nil
}

var usernamePattern = regexp.MustCompile(`[^\p{L}\p{N}_\-\s]`)

// ResolveUsername returns the sanitized username, else user_<telegramId>, else anonymous.
func ResolveUsername(policy *bluemonday.Policy, username string, telegramID *int64) string {
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	cleaned := html.UnescapeString(policy.Sanitize(username))
	cleaned = strings.Join(strings.Fields(usernamePattern.ReplaceAllString(cleaned, "")), " ")
	if cleaned != "" {
		return cleaned
	}
	if telegramID != nil {
		return fmt.Sprintf("user_%d", *telegramID)
	}
	return "anonymous"
}
