package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lanex-quiz-api/internal/models"
)

// AnswerKeyRepository persists per-level task keys.
type AnswerKeyRepository interface {
	ListByLevel(ctx context.Context, level string) ([]models.TaskKey, error)
	Levels(ctx context.Context) ([]string, error)
	UpsertBatch(ctx context.Context, items []models.TaskKey) (int64, error)
}

type answerKeyRepository struct {
	db *gorm.DB
}

// NewAnswerKeyRepository constructs the GORM-backed repository.
func NewAnswerKeyRepository(db *gorm.DB) AnswerKeyRepository {
	return &answerKeyRepository{db: db}
}

// ListByLevel matches the level case-insensitively.
func (r *answerKeyRepository) ListByLevel(ctx context.Context, level string) ([]models.TaskKey, error) {
	var keys []models.TaskKey
	err := r.db.WithContext(ctx).
		Where("LOWER(level) = ?", strings.ToLower(strings.TrimSpace(level))).
		Order("task_id ASC").
		Find(&keys).
		Error
	return keys, err
}

func (r *answerKeyRepository) Levels(ctx context.Context) ([]string, error) {
	var levels []string
	err := r.db.WithContext(ctx).
		Model(&models.TaskKey{}).
		Distinct("level").
		Order("level ASC").
		Pluck("level", &levels).
		Error
	return levels, err
}

func (r *answerKeyRepository) UpsertBatch(ctx context.Context, items []models.TaskKey) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level"}, {Name: "task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answers", "updated_at"}),
	})

	result := tx.Create(&items)
	return result.RowsAffected, result.Error
}
