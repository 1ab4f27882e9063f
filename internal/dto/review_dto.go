package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// UserLite summarizes a submission's user subject.
type UserLite struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Fullname   string    `json:"fullname"`
}

// GroupLite summarizes a submission's group subject.
type GroupLite struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
}

// SubmissionResponse is returned to reviewers when viewing submissions.
type SubmissionResponse struct {
	ID                  uuid.UUID                    `json:"id"`
	SessionID           uuid.UUID                    `json:"session_id"`
	User                *UserLite                    `json:"user,omitempty"`
	Group               *GroupLite                   `json:"group,omitempty"`
	Status              string                       `json:"status"`
	OverallScore        *float64                     `json:"overall_score"`
	Reviewed            bool                         `json:"reviewed"`
	AutoFeedback        string                       `json:"auto_feedback"`
	ManualFeedback      string                       `json:"manual_feedback"`
	CreatedAt           time.Time                    `json:"created_at"`
	ExerciseSubmissions []ExerciseSubmissionResponse `json:"exercise_submissions,omitempty"`
}

// ExerciseSubmissionResponse serializes one per-exercise grading record.
type ExerciseSubmissionResponse struct {
	ID                    uuid.UUID                      `json:"id"`
	ExerciseID            uuid.UUID                      `json:"exercise_id"`
	ExerciseExternalID    string                         `json:"exercise_external_id,omitempty"`
	Graded                bool                           `json:"graded"`
	TotalScore            *float64                       `json:"total_score"`
	AutoFeedback          string                         `json:"auto_feedback"`
	ManualFeedback        string                         `json:"manual_feedback"`
	TestCaseResults       []TestCaseResultResponse       `json:"test_case_results,omitempty"`
	EvaluationFlagResults []EvaluationFlagResultResponse `json:"evaluation_flag_results,omitempty"`
}

// TestCaseResultResponse serializes one test case outcome.
type TestCaseResultResponse struct {
	ID         uuid.UUID `json:"id"`
	TestCaseID uuid.UUID `json:"test_case_id"`
	Passed     bool      `json:"passed"`
	Score      float64   `json:"score"`
	ExitCode   int       `json:"exit_code"`
	Stdout     string    `json:"stdout"`
	Adjusted   bool      `json:"adjusted"`
}

// EvaluationFlagResultResponse serializes one qualitative dimension outcome.
type EvaluationFlagResultResponse struct {
	ID               uuid.UUID `json:"id"`
	EvaluationFlagID uuid.UUID `json:"evaluation_flag_id"`
	Passed           bool      `json:"passed"`
	Score            float64   `json:"score"`
	Adjusted         bool      `json:"adjusted"`
}

// ExerciseSubmissionUpdateRequest carries a reviewer's manual feedback.
type ExerciseSubmissionUpdateRequest struct {
	ManualFeedback string `json:"manual_feedback" validate:"required,max=5000"`
}

// ResultUpdateRequest overrides a computed test case or evaluation flag
// result. At least one field must be provided.
type ResultUpdateRequest struct {
	Passed *bool    `json:"passed" validate:"omitempty"`
	Score  *float64 `json:"score" validate:"omitempty,gte=0,lte=100"`
}

// NewSubmissionResponse maps a submission row to its response form.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:             submission.ID,
		SessionID:      submission.SessionID,
		Status:         submission.Status,
		OverallScore:   submission.OverallScore,
		Reviewed:       submission.Reviewed,
		AutoFeedback:   submission.AutoFeedback,
		ManualFeedback: submission.ManualFeedback,
		CreatedAt:      submission.CreatedAt,
	}

	if submission.User != nil {
		response.User = &UserLite{
			ID:         submission.User.ID,
			ExternalID: submission.User.ExternalID,
			Fullname:   submission.User.Fullname,
		}
	}

	if submission.Group != nil {
		response.Group = &GroupLite{
			ID:         submission.Group.ID,
			ExternalID: submission.Group.ExternalID,
		}
	}

	for _, record := range submission.ExerciseSubmissions {
		response.ExerciseSubmissions = append(response.ExerciseSubmissions, NewExerciseSubmissionResponse(record))
	}

	return response
}

// NewSubmissionResponseSlice maps a slice of submission rows.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}

// NewExerciseSubmissionResponse maps a per-exercise grading record.
func NewExerciseSubmissionResponse(record models.ExerciseSubmission) ExerciseSubmissionResponse {
	response := ExerciseSubmissionResponse{
		ID:                 record.ID,
		ExerciseID:         record.ExerciseID,
		ExerciseExternalID: record.Exercise.ExternalID,
		Graded:             record.Graded,
		TotalScore:         record.TotalScore,
		AutoFeedback:       record.AutoFeedback,
		ManualFeedback:     record.ManualFeedback,
	}

	for _, result := range record.TestCaseResults {
		response.TestCaseResults = append(response.TestCaseResults, NewTestCaseResultResponse(result))
	}

	for _, result := range record.EvaluationFlagResults {
		response.EvaluationFlagResults = append(response.EvaluationFlagResults, NewEvaluationFlagResultResponse(result))
	}

	return response
}

// NewTestCaseResultResponse maps a test case outcome.
func NewTestCaseResultResponse(result models.TestCaseResult) TestCaseResultResponse {
	return TestCaseResultResponse{
		ID:         result.ID,
		TestCaseID: result.TestCaseID,
		Passed:     result.Passed,
		Score:      result.Score,
		ExitCode:   result.ExitCode,
		Stdout:     result.Stdout,
		Adjusted:   result.Adjusted,
	}
}

// NewEvaluationFlagResultResponse maps a qualitative dimension outcome.
func NewEvaluationFlagResultResponse(result models.EvaluationFlagResult) EvaluationFlagResultResponse {
	return EvaluationFlagResultResponse{
		ID:               result.ID,
		EvaluationFlagID: result.EvaluationFlagID,
		Passed:           result.Passed,
		Score:            result.Score,
		Adjusted:         result.Adjusted,
	}
}
