package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// ErrSessionNotFound indicates the target session does not exist or has
// already ended. Both cases look the same from the lifecycle's point of
// view: the session no longer accepts events.
var ErrSessionNotFound = errors.New("session not found or inactive")

// ErrSubjectNotFound indicates the user or group named by the event does
// not exist within the target session.
var ErrSubjectNotFound = errors.New("subject not found in session")

// ErrUnexpectedPayload indicates a handler was invoked with a payload type
// it does not own. The registry makes this impossible; the check is
// defensive only.
var ErrUnexpectedPayload = errors.New("unexpected payload type")

// Handler owns the transactional logic for a single event kind. Handlers
// are stateless apart from their logger; the transaction is handed in per
// invocation. Submissions returned are the ones created during this
// invocation, for the dispatcher to queue for grading after commit.
type Handler interface {
	Handle(ctx context.Context, tx *gorm.DB, externalSessionID string, payload any) ([]models.Submission, error)
}

// Registry is the fixed mapping from event kind to its handler.
type Registry map[Kind]Handler

// NewRegistry builds the registry covering all four lifecycle kinds.
func NewRegistry(logger zerolog.Logger) Registry {
	return Registry{
		KindSessionCreated:       NewSessionCreatedHandler(logger),
		KindSessionEnded:         NewSessionEndedHandler(logger),
		KindIndividualSubmission: NewIndividualSubmissionHandler(logger),
		KindUserJoinedSession:    NewUserJoinedHandler(logger),
	}
}

// activeSession is the session lifecycle guard shared by every handler that
// requires an open session. An existing but deactivated session is reported
// as not found.
func activeSession(tx *gorm.DB, externalID string) (models.Session, error) {
	var session models.Session
	err := tx.Where("external_id = ? AND active = ?", externalID, true).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, externalID)
	}
	if err != nil {
		return models.Session{}, err
	}
	return session, nil
}

// exerciseStubs prepares one empty ExerciseSubmission per exercise of the
// session, so every submission carries a per-exercise record from the moment
// it is queued.
func exerciseStubs(tx *gorm.DB, session models.Session) ([]models.ExerciseSubmission, error) {
	var exercises []models.Exercise
	if err := tx.Where("session_id = ?", session.ID).Find(&exercises).Error; err != nil {
		return nil, err
	}

	stubs := make([]models.ExerciseSubmission, 0, len(exercises))
	for _, exercise := range exercises {
		stubs = append(stubs, models.ExerciseSubmission{ExerciseID: exercise.ID})
	}
	return stubs, nil
}
