package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// ResultRepository defines data operations for per-exercise grading records
// and their test case / evaluation flag results.
type ResultRepository interface {
	GetExerciseSubmission(ctx context.Context, submissionID, id uuid.UUID) (models.ExerciseSubmission, error)
	UpdateExerciseSubmission(ctx context.Context, record *models.ExerciseSubmission) error
	GetTestCaseResult(ctx context.Context, exerciseSubmissionID, id uuid.UUID) (models.TestCaseResult, error)
	UpdateTestCaseResult(ctx context.Context, result *models.TestCaseResult) error
	GetEvaluationFlagResult(ctx context.Context, exerciseSubmissionID, id uuid.UUID) (models.EvaluationFlagResult, error)
	UpdateEvaluationFlagResult(ctx context.Context, result *models.EvaluationFlagResult) error
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository instantiates the repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) GetExerciseSubmission(ctx context.Context, submissionID, id uuid.UUID) (models.ExerciseSubmission, error) {
	var record models.ExerciseSubmission
	if err := r.db.WithContext(ctx).
		Preload("Exercise").
		Preload("TestCaseResults").
		Preload("TestCaseResults.TestCase").
		Preload("EvaluationFlagResults").
		Preload("EvaluationFlagResults.EvaluationFlag").
		Where("submission_id = ?", submissionID).
		Where("id = ?", id).
		First(&record).Error; err != nil {
		return models.ExerciseSubmission{}, err
	}

	return record, nil
}

func (r *resultRepository) UpdateExerciseSubmission(ctx context.Context, record *models.ExerciseSubmission) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *resultRepository) GetTestCaseResult(ctx context.Context, exerciseSubmissionID, id uuid.UUID) (models.TestCaseResult, error) {
	var result models.TestCaseResult
	if err := r.db.WithContext(ctx).
		Where("exercise_submission_id = ?", exerciseSubmissionID).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return models.TestCaseResult{}, err
	}

	return result, nil
}

func (r *resultRepository) UpdateTestCaseResult(ctx context.Context, result *models.TestCaseResult) error {
	return r.db.WithContext(ctx).Save(result).Error
}

func (r *resultRepository) GetEvaluationFlagResult(ctx context.Context, exerciseSubmissionID, id uuid.UUID) (models.EvaluationFlagResult, error) {
	var result models.EvaluationFlagResult
	if err := r.db.WithContext(ctx).
		Where("exercise_submission_id = ?", exerciseSubmissionID).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return models.EvaluationFlagResult{}, err
	}

	return result, nil
}

func (r *resultRepository) UpdateEvaluationFlagResult(ctx context.Context, result *models.EvaluationFlagResult) error {
	return r.db.WithContext(ctx).Save(result).Error
}
