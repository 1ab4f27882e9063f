package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// IndividualSubmissionHandler records a subject finishing before the session
// ends. The idempotency guard makes redelivery of the same event a no-op: at
// most one submission exists per (session, subject), with the storage-level
// unique index deciding races between concurrent workers.
type IndividualSubmissionHandler struct {
	logger zerolog.Logger
}

// NewIndividualSubmissionHandler builds the handler.
func NewIndividualSubmissionHandler(logger zerolog.Logger) *IndividualSubmissionHandler {
	return &IndividualSubmissionHandler{
		logger: logger.With().Str("component", "individual_submission_handler").Logger(),
	}
}

// Handle implements Handler.
func (h *IndividualSubmissionHandler) Handle(ctx context.Context, tx *gorm.DB, externalSessionID string, payload any) ([]models.Submission, error) {
	data, ok := payload.(IndividualSubmissionData)
	if !ok {
		return nil, ErrUnexpectedPayload
	}

	session, err := activeSession(tx, externalSessionID)
	if err != nil {
		return nil, err
	}

	if data.ExternalGroupID != "" {
		return h.submitGroup(tx, session, data.ExternalGroupID)
	}
	return h.submitUser(tx, session, data.ExternalStudentID)
}

func (h *IndividualSubmissionHandler) submitUser(tx *gorm.DB, session models.Session, externalStudentID string) ([]models.Submission, error) {
	var user models.User
	err := tx.Where("session_id = ? AND external_id = ?", session.ID, externalStudentID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: student %s", ErrSubjectNotFound, externalStudentID)
	}
	if err != nil {
		return nil, err
	}

	var existing int64
	if err := tx.Model(&models.Submission{}).
		Where("session_id = ? AND user_id = ?", session.ID, user.ID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		h.logger.Debug().
			Str("external_session_id", session.ExternalID).
			Str("external_student_id", externalStudentID).
			Msg("submission already recorded, ignoring redelivery")
		return nil, nil
	}

	stubs, err := exerciseStubs(tx, session)
	if err != nil {
		return nil, err
	}

	submission := models.Submission{
		SessionID:           session.ID,
		UserID:              &user.ID,
		Status:              models.SubmissionStatusQueued,
		ExerciseSubmissions: stubs,
	}
	if err := tx.Create(&submission).Error; err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("external_session_id", session.ExternalID).
		Str("external_student_id", externalStudentID).
		Str("submission_id", submission.ID.String()).
		Msg("individual submission recorded")

	return []models.Submission{submission}, nil
}

func (h *IndividualSubmissionHandler) submitGroup(tx *gorm.DB, session models.Session, externalGroupID string) ([]models.Submission, error) {
	var group models.Group
	err := tx.Where("session_id = ? AND external_id = ?", session.ID, externalGroupID).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: group %s", ErrSubjectNotFound, externalGroupID)
	}
	if err != nil {
		return nil, err
	}

	var existing int64
	if err := tx.Model(&models.Submission{}).
		Where("session_id = ? AND group_id = ?", session.ID, group.ID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		h.logger.Debug().
			Str("external_session_id", session.ExternalID).
			Str("external_group_id", externalGroupID).
			Msg("submission already recorded, ignoring redelivery")
		return nil, nil
	}

	stubs, err := exerciseStubs(tx, session)
	if err != nil {
		return nil, err
	}

	submission := models.Submission{
		SessionID:           session.ID,
		GroupID:             &group.ID,
		Status:              models.SubmissionStatusQueued,
		ExerciseSubmissions: stubs,
	}
	if err := tx.Create(&submission).Error; err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("external_session_id", session.ExternalID).
		Str("external_group_id", externalGroupID).
		Str("submission_id", submission.ID.String()).
		Msg("group submission recorded")

	return []models.Submission{submission}, nil
}
