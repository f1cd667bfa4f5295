package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// TaskKey stores the accepted answers of one task for a test level.
type TaskKey struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Level     string         `gorm:"size:64;not null;uniqueIndex:idx_task_keys_level_task" json:"level"`
	TaskID    string         `gorm:"size:64;not null;uniqueIndex:idx_task_keys_level_task" json:"task_id"`
	Answers   datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName overrides the default table name.
func (TaskKey) TableName() string {
	return "task_keys"
}

// SetAnswers serializes question number to accepted alternatives.
func (k *TaskKey) SetAnswers(answers map[string][]string) {
	data, err := json.Marshal(answers)
	if err != nil || answers == nil {
		k.Answers = datatypes.JSON([]byte("{}"))
		return
	}
	k.Answers = datatypes.JSON(data)
}

// AnswerMap deserializes the stored alternatives.
func (k TaskKey) AnswerMap() map[string][]string {
	if len(k.Answers) == 0 {
		return map[string][]string{}
	}

	var answers map[string][]string
	if err := json.Unmarshal(k.Answers, &answers); err != nil {
		return map[string][]string{}
	}
	return answers
}
