package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// SubmissionRepository defines data operations for submissions as the review
// API sees them.
type SubmissionRepository interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Submission, error)
	GetByID(ctx context.Context, sessionID, id uuid.UUID) (models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("User").
		Preload("Group")
}

func (r *submissionRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, sessionID, id uuid.UUID) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Preload("ExerciseSubmissions").
		Preload("ExerciseSubmissions.Exercise").
		Preload("ExerciseSubmissions.TestCaseResults").
		Preload("ExerciseSubmissions.EvaluationFlagResults").
		Where("session_id = ?", sessionID).
		Where("id = ?", id).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}
