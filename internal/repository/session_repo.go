package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// SessionRepository defines data operations for sessions on the review side.
// Unlike the lifecycle guard, the review API also reads ended sessions.
type SessionRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (models.Session, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates the repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetByExternalID(ctx context.Context, externalID string) (models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&session).Error; err != nil {
		return models.Session{}, err
	}

	return session, nil
}
