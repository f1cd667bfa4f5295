package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanex-quiz-api/internal/dto"
	"github.com/noah-isme/lanex-quiz-api/internal/grading"
	"github.com/noah-isme/lanex-quiz-api/internal/observability"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
	"github.com/noah-isme/lanex-quiz-api/internal/repository"
)

// ErrLevelNotFound indicates no answer key is stored for the requested level.
var ErrLevelNotFound = errors.New("level not found")

// AnswerKeyService resolves per-level answer keys with a Redis read-through cache.
type AnswerKeyService interface {
	LevelKey(ctx context.Context, level string) (grading.LevelKey, error)
	PageKey(ctx context.Context, level string) (quiz.AnswerKey, error)
	Levels(ctx context.Context) ([]dto.LevelResponse, error)
	Invalidate(ctx context.Context, levels ...string)
}

type answerKeyService struct {
	repo   repository.AnswerKeyRepository
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewAnswerKeyService constructs the answer key service. cache may be nil.
func NewAnswerKeyService(repo repository.AnswerKeyRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnswerKeyService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &answerKeyService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "answer_key_service").Logger(),
	}
}

func (s *answerKeyService) LevelKey(ctx context.Context, level string) (grading.LevelKey, error) {
	if cached, ok := s.fetchCache(ctx, level); ok {
		observability.AnswerKeyCache().WithLabelValues("hit").Inc()
		return cached, nil
	}

	rows, err := s.repo.ListByLevel(ctx, CanonicalLevel(level))
	if err != nil {
		observability.AnswerKeyCache().WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load answer key for %s: %w", level, err)
	}
	if len(rows) == 0 {
		return nil, ErrLevelNotFound
	}

	key := make(grading.LevelKey, len(rows))
	for _, row := range rows {
		key[row.TaskID] = row.AnswerMap()
	}

	s.writeCache(ctx, level, key)
	observability.AnswerKeyCache().WithLabelValues("miss").Inc()
	return key, nil
}

// PageKey converts the level key into the ordered form embedded in test
// pages: one item per question, the first alternative as the correct value.
func (s *answerKeyService) PageKey(ctx context.Context, level string) (quiz.AnswerKey, error) {
	key, err := s.LevelKey(ctx, level)
	if err != nil {
		return nil, err
	}

	out := make(quiz.AnswerKey, len(key))
	for taskID, questions := range key {
		qnums := sortedQnums(questions)
		correct := make([]string, 0, len(qnums))
		for _, qnum := range qnums {
			alternatives := questions[qnum]
			if len(alternatives) == 0 {
				correct = append(correct, "")
				continue
			}
			correct = append(correct, alternatives[0])
		}
		out[taskID] = quiz.NewClosedTask(correct...)
	}
	return out, nil
}

func (s *answerKeyService) Levels(ctx context.Context) ([]dto.LevelResponse, error) {
	levels, err := s.repo.Levels(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.LevelResponse, 0, len(levels))
	for _, level := range levels {
		key, err := s.LevelKey(ctx, level)
		if err != nil {
			return nil, err
		}
		taskIDs := make([]string, 0, len(key))
		for taskID := range key {
			taskIDs = append(taskIDs, taskID)
		}
		sort.Strings(taskIDs)

		tasks := make([]dto.LevelTask, 0, len(taskIDs))
		for _, taskID := range taskIDs {
			tasks = append(tasks, dto.LevelTask{TaskID: taskID, Questions: key.Questions(taskID)})
		}
		out = append(out, dto.LevelResponse{Level: level, Tasks: tasks})
	}
	return out, nil
}

func (s *answerKeyService) Invalidate(ctx context.Context, levels ...string) {
	if s.cache == nil || len(levels) == 0 {
		return
	}
	keys := make([]string, 0, len(levels))
	for _, level := range levels {
		keys = append(keys, cacheKey(level))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Strs("levels", levels).Msg("failed to invalidate answer key cache")
	}
}

func (s *answerKeyService) fetchCache(ctx context.Context, level string) (grading.LevelKey, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(ctx, cacheKey(level)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("level", level).Msg("failed to read answer key cache")
		}
		return nil, false
	}

	var key grading.LevelKey
	if err := json.Unmarshal(payload, &key); err != nil {
		s.logger.Warn().Err(err).Str("level", level).Msg("failed to decode answer key cache")
		return nil, false
	}
	return key, true
}

func (s *answerKeyService) writeCache(ctx context.Context, level string, key grading.LevelKey) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode answer key cache")
		return
	}
	if err := s.cache.Set(ctx, cacheKey(level), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("level", level).Msg("failed to store answer key cache")
	}
}

func cacheKey(level string) string {
	return "answer_key:v1:" + CanonicalLevel(level)
}

// CanonicalLevel folds the spellings pages use for a level ("starter",
// "Pre_Intermediate", "upper intermediate") into one lowercase, hyphenated form.
func CanonicalLevel(level string) string {
	fields := strings.FieldsFunc(strings.ToLower(level), func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	return strings.Join(fields, "-")
}

func sortedQnums(questions map[string][]string) []string {
	qnums := make([]string, 0, len(questions))
	for qnum := range questions {
		qnums = append(qnums, qnum)
	}
	sort.Slice(qnums, func(i, j int) bool {
		left, errLeft := strconv.Atoi(qnums[i])
		right, errRight := strconv.Atoi(qnums[j])
		if errLeft == nil && errRight == nil {
			return left < right
		}
		return qnums[i] < qnums[j]
	})
	return qnums
}
