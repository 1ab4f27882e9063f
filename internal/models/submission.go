package models

import "github.com/google/uuid"

// Submission states. A submission is queued when the lifecycle core creates
// it and moves through grading/graded/failed under the external grading
// pipeline.
const (
	SubmissionStatusQueued  = "queued"
	SubmissionStatusGrading = "grading"
	SubmissionStatusGraded  = "graded"
	SubmissionStatusFailed  = "failed"
)

// Submission is the per-subject grading record of a session. The subject is
// a user or a group, never both and never neither; the check constraint makes
// that structural and the two partial unique indexes are the storage-level
// backstop against concurrent duplicate creation.
type Submission struct {
	Base
	SessionID           uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uniq_submission_session_user;uniqueIndex:uniq_submission_session_group" json:"session_id"`
	UserID              *uuid.UUID           `gorm:"type:uuid;uniqueIndex:uniq_submission_session_user;check:chk_submission_subject,(user_id IS NULL) <> (group_id IS NULL)" json:"user_id"`
	GroupID             *uuid.UUID           `gorm:"type:uuid;uniqueIndex:uniq_submission_session_group" json:"group_id"`
	Status              string               `gorm:"size:32;not null" json:"status"`
	OverallScore        *float64             `json:"overall_score"`
	Reviewed            bool                 `gorm:"default:false" json:"reviewed"`
	AutoFeedback        string               `gorm:"type:text" json:"auto_feedback"`
	ManualFeedback      string               `gorm:"type:text" json:"manual_feedback"`
	Session             Session              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	User                *User                `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
	Group               *Group               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"group,omitempty"`
	ExerciseSubmissions []ExerciseSubmission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exercise_submissions,omitempty"`
}

// IsGraded reports whether the grading pipeline has produced a final score.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// ExerciseSubmission is the per-exercise grading record under a submission.
// Stubs are created alongside the submission; the grading pipeline fills in
// scores and results.
type ExerciseSubmission struct {
	Base
	SubmissionID          uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:uniq_exercise_submission" json:"submission_id"`
	ExerciseID            uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:uniq_exercise_submission" json:"exercise_id"`
	Graded                bool                   `gorm:"default:false" json:"graded"`
	TotalScore            *float64               `json:"total_score"`
	AutoFeedback          string                 `gorm:"type:text" json:"auto_feedback"`
	ManualFeedback        string                 `gorm:"type:text" json:"manual_feedback"`
	Exercise              Exercise               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exercise,omitempty"`
	TestCaseResults       []TestCaseResult       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_case_results,omitempty"`
	EvaluationFlagResults []EvaluationFlagResult `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"evaluation_flag_results,omitempty"`
}

// TestCaseResult records the outcome of one test case run. Adjusted is set
// when a reviewer overrides the computed result.
type TestCaseResult struct {
	Base
	ExerciseSubmissionID uuid.UUID `gorm:"type:uuid;not null" json:"exercise_submission_id"`
	TestCaseID           uuid.UUID `gorm:"type:uuid;not null" json:"test_case_id"`
	Passed               bool      `gorm:"not null" json:"passed"`
	Score                float64   `gorm:"not null" json:"score"`
	ExitCode             int       `gorm:"default:0" json:"exit_code"`
	Stdout               string    `gorm:"type:text" json:"stdout"`
	Adjusted             bool      `gorm:"default:false" json:"adjusted"`
	TestCase             TestCase  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_case,omitempty"`
}

// EvaluationFlagResult records the outcome of one qualitative dimension.
type EvaluationFlagResult struct {
	Base
	ExerciseSubmissionID uuid.UUID      `gorm:"type:uuid;not null" json:"exercise_submission_id"`
	EvaluationFlagID     uuid.UUID      `gorm:"type:uuid;not null" json:"evaluation_flag_id"`
	Passed               bool           `gorm:"not null" json:"passed"`
	Score                float64        `gorm:"not null" json:"score"`
	Adjusted             bool           `gorm:"default:false" json:"adjusted"`
	EvaluationFlag       EvaluationFlag `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"evaluation_flag,omitempty"`
}
