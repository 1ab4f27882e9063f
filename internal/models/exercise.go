package models

import "github.com/google/uuid"

// Exercise difficulty levels.
const (
	ExerciseDifficultyEasy     = "easy"
	ExerciseDifficultyModerate = "moderate"
	ExerciseDifficultyHard     = "hard"
)

// Evaluation flag dimensions graded beside the test cases.
const (
	EvaluationFlagExecution   = "execution"
	EvaluationFlagCompilation = "compilation"
	EvaluationFlagCodeQuality = "code_quality"
)

// Exercise is a question posed to a session, with its grading material
// attached as test cases and evaluation flags.
type Exercise struct {
	Base
	SessionID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uniq_exercise_session_external" json:"session_id"`
	ExternalID      string           `gorm:"size:255;not null;uniqueIndex:uniq_exercise_session_external" json:"external_id"`
	Title           string           `gorm:"size:255" json:"title"`
	Question        string           `gorm:"type:text;not null" json:"question"`
	Instructions    string           `gorm:"type:text" json:"instructions"`
	Difficulty      string           `gorm:"size:32" json:"difficulty"`
	MaxScore        float64          `gorm:"default:0" json:"max_score"`
	Session         Session          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	TestCases       []TestCase       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_cases,omitempty"`
	EvaluationFlags []EvaluationFlag `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"evaluation_flags,omitempty"`
}

// TestCase holds one input/expected-output pair for an exercise. The score
// weight is the share of the exercise score the case is worth.
type TestCase struct {
	Base
	ExerciseID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_testcase_exercise_external" json:"exercise_id"`
	ExternalID     string    `gorm:"size:255;not null;uniqueIndex:uniq_testcase_exercise_external" json:"external_id"`
	Title          string    `gorm:"size:255" json:"title"`
	TestInput      string    `gorm:"type:text" json:"test_input"`
	ExpectedOutput string    `gorm:"type:text" json:"expected_output"`
	ScoreWeight    float64   `gorm:"not null" json:"score_weight"`
}

// EvaluationFlag is a qualitative grading dimension for an exercise.
type EvaluationFlag struct {
	Base
	ExerciseID  uuid.UUID `gorm:"type:uuid;not null" json:"exercise_id"`
	Flag        string    `gorm:"size:32;not null" json:"flag"`
	ScoreWeight float64   `gorm:"not null" json:"score_weight"`
}
