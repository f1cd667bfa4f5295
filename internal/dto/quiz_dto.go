package dto

import "github.com/noah-isme/lanex-quiz-api/internal/quiz"

// CheckResponse is the body returned by the grading endpoint.
type CheckResponse struct {
	Status       string              `json:"status"`
	UsernameUsed string              `json:"username_used,omitempty"`
	Result       *quiz.GradingResult `json:"result,omitempty"`
}

// LevelTask summarises one keyed task of a level.
type LevelTask struct {
	TaskID    string `json:"task_id"`
	Questions int    `json:"questions"`
}

// LevelResponse lists the keyed tasks of a level.
type LevelResponse struct {
	Level string      `json:"level"`
	Tasks []LevelTask `json:"tasks"`
}

// LevelKeyPayload is the seeding format: task id to question number to accepted answers.
type LevelKeyPayload struct {
	Level string                         `json:"level" validate:"required"`
	Tasks map[string]map[string][]string `json:"tasks" validate:"required,min=1"`
}
