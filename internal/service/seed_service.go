package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanex-quiz-api/internal/dto"
	"github.com/noah-isme/lanex-quiz-api/internal/models"
	"github.com/noah-isme/lanex-quiz-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

//go:embed keys/default_keys.json
var defaultKeys []byte

// DefaultLevelKeys returns the bundled answer keys for every level.
func DefaultLevelKeys() ([]dto.LevelKeyPayload, error) {
	var levels []dto.LevelKeyPayload
	if err := json.Unmarshal(defaultKeys, &levels); err != nil {
		return nil, fmt.Errorf("decode default answer keys: %w", err)
	}
	return levels, nil
}

// SeedService loads answer keys into the store.
type SeedService interface {
	SeedAnswerKeys(ctx context.Context, token string, items []dto.LevelKeyPayload) (int64, error)
	SeedDefaults(ctx context.Context) (int64, error)
}

type seedService struct {
	repo      repository.AnswerKeyRepository
	keys      AnswerKeyService
	validator *validator.Validate
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.AnswerKeyRepository, keys AnswerKeyService, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:      repo,
		keys:      keys,
		validator: validate,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedAnswerKeys(ctx context.Context, token string, items []dto.LevelKeyPayload) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}
	for _, item := range items {
		if err := s.validator.Struct(item); err != nil {
			return 0, err
		}
	}
	return s.upsert(ctx, items)
}

func (s *seedService) SeedDefaults(ctx context.Context) (int64, error) {
	levels, err := DefaultLevelKeys()
	if err != nil {
		return 0, err
	}
	return s.upsert(ctx, levels)
}

func (s *seedService) upsert(ctx context.Context, items []dto.LevelKeyPayload) (int64, error) {
	rows := make([]models.TaskKey, 0)
	levels := make([]string, 0, len(items))
	for _, item := range items {
		level := strings.TrimSpace(item.Level)
		levels = append(levels, level)
		for taskID, answers := range item.Tasks {
			row := models.TaskKey{Level: level, TaskID: strings.TrimSpace(taskID)}
			row.SetAnswers(answers)
			rows = append(rows, row)
		}
	}

	affected, err := s.repo.UpsertBatch(ctx, rows)
	if err != nil {
		return 0, err
	}
	if s.keys != nil {
		s.keys.Invalidate(ctx, levels...)
	}
	s.logger.Info().Int64("affected", affected).Strs("levels", levels).Msg("answer keys seeded")
	return affected, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtleConstantTimeCompare(expected, strings.TrimSpace(token))
}

func subtleConstantTimeCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	mismatch := byte(0)
	for i := 0; i < len(a); i++ {
		mismatch |= a[i] ^ b[i]
	}
	return mismatch == 0
}
