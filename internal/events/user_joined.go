package events

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// UserJoinedHandler upserts a late-arriving roster entry: if the user is
// already known under this session the display name is refreshed, otherwise
// the user is created. Redelivery with the same payload is a no-op either
// way.
type UserJoinedHandler struct {
	logger zerolog.Logger
}

// NewUserJoinedHandler builds the handler.
func NewUserJoinedHandler(logger zerolog.Logger) *UserJoinedHandler {
	return &UserJoinedHandler{
		logger: logger.With().Str("component", "user_joined_handler").Logger(),
	}
}

// Handle implements Handler.
func (h *UserJoinedHandler) Handle(ctx context.Context, tx *gorm.DB, externalSessionID string, payload any) ([]models.Submission, error) {
	data, ok := payload.(UserJoinedData)
	if !ok {
		return nil, ErrUnexpectedPayload
	}

	session, err := activeSession(tx, externalSessionID)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = tx.Where("session_id = ? AND external_id = ?", session.ID, data.ExternalUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			SessionID:  session.ID,
			ExternalID: data.ExternalUserID,
			Fullname:   data.Fullname,
		}
		if err := tx.Create(&user).Error; err != nil {
			return nil, err
		}

		h.logger.Info().
			Str("external_session_id", externalSessionID).
			Str("external_user_id", data.ExternalUserID).
			Msg("user joined session")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if user.Fullname == data.Fullname {
		return nil, nil
	}

	if err := tx.Model(&user).Update("fullname", data.Fullname).Error; err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("external_session_id", externalSessionID).
		Str("external_user_id", data.ExternalUserID).
		Msg("user roster entry updated")

	return nil, nil
}
