package events

import "github.com/go-playground/validator/v10"

// TestCaseInput describes one test case of an exercise in a session_created
// payload.
type TestCaseInput struct {
	ExternalID     string  `json:"external_id" validate:"required"`
	Title          string  `json:"title"`
	TestInput      string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	ScoreWeight    float64 `json:"score_weight" validate:"required,gt=0,lte=100"`
}

// EvaluationFlagInput describes one qualitative grading dimension of an
// exercise.
type EvaluationFlagInput struct {
	Flag        string  `json:"flag" validate:"required,oneof=execution compilation code_quality"`
	ScoreWeight float64 `json:"score_weight" validate:"required,gt=0,lte=100"`
}

// ExerciseInput describes one exercise in a session_created payload.
type ExerciseInput struct {
	ExternalID      string                `json:"external_id" validate:"required"`
	Title           string                `json:"title"`
	Question        string                `json:"question" validate:"required,max=10000"`
	Instructions    string                `json:"instructions" validate:"omitempty,max=10000"`
	Difficulty      string                `json:"difficulty" validate:"omitempty,oneof=easy moderate hard"`
	MaxScore        float64               `json:"max_score" validate:"omitempty,gt=0"`
	TestCases       []TestCaseInput       `json:"test_cases" validate:"required,min=1,dive"`
	EvaluationFlags []EvaluationFlagInput `json:"evaluation_flags" validate:"omitempty,dive"`
}

// StudentInput identifies one student in a session_created payload.
type StudentInput struct {
	ExternalID string `json:"external_id" validate:"required"`
	Fullname   string `json:"fullname"`
}

// GroupInput describes one group and its members.
type GroupInput struct {
	ExternalID string         `json:"external_id" validate:"required"`
	Students   []StudentInput `json:"students" validate:"required,min=1,dive"`
}

// SessionCreatedData is the payload of a session_created event. Exactly one
// of Students or Groups must be populated; the struct-level validation
// enforces it.
type SessionCreatedData struct {
	Title       string          `json:"title"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Exercises   []ExerciseInput `json:"exercises" validate:"required,min=1,dive"`
	Groups      []GroupInput    `json:"groups" validate:"omitempty,dive"`
	Students    []StudentInput  `json:"students" validate:"omitempty,dive"`
}

// IndividualSubmissionData is the payload of an individual_submission event.
// Exactly one of the two subject identifiers must be set.
type IndividualSubmissionData struct {
	ExternalGroupID   string `json:"external_group_id"`
	ExternalStudentID string `json:"external_student_id"`
}

// SessionEndedData is the payload of a session_ended event. It has no fields.
type SessionEndedData struct{}

// UserJoinedData is the payload of a user_joined_session event.
type UserJoinedData struct {
	ExternalUserID string `json:"external_user_id" validate:"required"`
	Fullname       string `json:"fullname" validate:"required"`
}

// RegisterValidations attaches the struct-level rules that plain field tags
// cannot express to the given validator instance.
func RegisterValidations(v *validator.Validate) {
	v.RegisterStructValidation(sessionCreatedStructLevel, SessionCreatedData{})
	v.RegisterStructValidation(individualSubmissionStructLevel, IndividualSubmissionData{})
}

func sessionCreatedStructLevel(sl validator.StructLevel) {
	data := sl.Current().Interface().(SessionCreatedData)

	if len(data.Students) == 0 && len(data.Groups) == 0 {
		sl.ReportError(data.Students, "students", "Students", "students_or_groups", "")
	}

	if len(data.Students) > 0 && len(data.Groups) > 0 {
		sl.ReportError(data.Students, "students", "Students", "students_xor_groups", "")
	}
}

func individualSubmissionStructLevel(sl validator.StructLevel) {
	data := sl.Current().Interface().(IndividualSubmissionData)

	if data.ExternalGroupID == "" && data.ExternalStudentID == "" {
		sl.ReportError(data.ExternalStudentID, "external_student_id", "ExternalStudentID", "group_or_student", "")
	}

	if data.ExternalGroupID != "" && data.ExternalStudentID != "" {
		sl.ReportError(data.ExternalStudentID, "external_student_id", "ExternalStudentID", "group_xor_student", "")
	}
}
