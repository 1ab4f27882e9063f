package events

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// SessionEndedHandler closes the submission window: it sweeps up queued
// submissions for every subject that never submitted individually, then
// deactivates the session as the final step. The sweep recomputes "not yet
// submitted" from current state, so a retried event is naturally idempotent.
// Once inactive, the session rejects all further lifecycle events.
type SessionEndedHandler struct {
	logger zerolog.Logger
}

// NewSessionEndedHandler builds the handler.
func NewSessionEndedHandler(logger zerolog.Logger) *SessionEndedHandler {
	return &SessionEndedHandler{
		logger: logger.With().Str("component", "session_ended_handler").Logger(),
	}
}

// Handle implements Handler.
func (h *SessionEndedHandler) Handle(ctx context.Context, tx *gorm.DB, externalSessionID string, payload any) ([]models.Submission, error) {
	if _, ok := payload.(SessionEndedData); !ok {
		return nil, ErrUnexpectedPayload
	}

	session, err := activeSession(tx, externalSessionID)
	if err != nil {
		return nil, err
	}

	userSubmissions, err := h.sweepUsers(tx, session)
	if err != nil {
		return nil, err
	}

	groupSubmissions, err := h.sweepGroups(tx, session)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&session).Update("active", false).Error; err != nil {
		return nil, err
	}

	swept := append(userSubmissions, groupSubmissions...)

	h.logger.Info().
		Str("external_session_id", externalSessionID).
		Int("swept_users", len(userSubmissions)).
		Int("swept_groups", len(groupSubmissions)).
		Msg("session ended")

	return swept, nil
}

// sweepUsers creates queued submissions for ungrouped users without one.
// Grouped users submit through their group and are excluded here.
func (h *SessionEndedHandler) sweepUsers(tx *gorm.DB, session models.Session) ([]models.Submission, error) {
	submitted := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Submission{}).
		Select("user_id").
		Where("session_id = ? AND user_id IS NOT NULL", session.ID)

	var users []models.User
	if err := tx.Where("session_id = ? AND group_id IS NULL", session.ID).
		Where("id NOT IN (?)", submitted).
		Find(&users).Error; err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, 0, len(users))
	for i := range users {
		stubs, err := exerciseStubs(tx, session)
		if err != nil {
			return nil, err
		}

		submission := models.Submission{
			SessionID:           session.ID,
			UserID:              &users[i].ID,
			Status:              models.SubmissionStatusQueued,
			ExerciseSubmissions: stubs,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, nil
}

func (h *SessionEndedHandler) sweepGroups(tx *gorm.DB, session models.Session) ([]models.Submission, error) {
	submitted := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Submission{}).
		Select("group_id").
		Where("session_id = ? AND group_id IS NOT NULL", session.ID)

	var groups []models.Group
	if err := tx.Where("session_id = ?", session.ID).
		Where("id NOT IN (?)", submitted).
		Find(&groups).Error; err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, 0, len(groups))
	for i := range groups {
		stubs, err := exerciseStubs(tx, session)
		if err != nil {
			return nil, err
		}

		submission := models.Submission{
			SessionID:           session.ID,
			GroupID:             &groups[i].ID,
			Status:              models.SubmissionStatusQueued,
			ExerciseSubmissions: stubs,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, nil
}
