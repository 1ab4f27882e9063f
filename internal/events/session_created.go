package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// SessionCreatedHandler creates the full entity graph of a new session: the
// session row, its exercises with test cases and evaluation flags, and the
// roster as either ungrouped students or groups with members. Everything
// commits together; a redelivered event fails the session's unique external
// id and is classified as a duplicate no-op by the dispatcher.
type SessionCreatedHandler struct {
	logger zerolog.Logger
}

// NewSessionCreatedHandler builds the handler.
func NewSessionCreatedHandler(logger zerolog.Logger) *SessionCreatedHandler {
	return &SessionCreatedHandler{
		logger: logger.With().Str("component", "session_created_handler").Logger(),
	}
}

// Handle implements Handler.
func (h *SessionCreatedHandler) Handle(ctx context.Context, tx *gorm.DB, externalSessionID string, payload any) ([]models.Submission, error) {
	data, ok := payload.(SessionCreatedData)
	if !ok {
		return nil, ErrUnexpectedPayload
	}

	session := models.Session{
		ExternalID:  externalSessionID,
		Title:       data.Title,
		Description: data.Description,
		Active:      true,
	}
	if err := tx.Create(&session).Error; err != nil {
		return nil, err
	}

	if err := h.createExercises(tx, session.ID, data.Exercises); err != nil {
		return nil, err
	}

	if err := h.createUsers(tx, session.ID, nil, data.Students); err != nil {
		return nil, err
	}

	for _, groupInput := range data.Groups {
		group := models.Group{SessionID: session.ID, ExternalID: groupInput.ExternalID}
		if err := tx.Create(&group).Error; err != nil {
			return nil, err
		}
		if err := h.createUsers(tx, session.ID, &group.ID, groupInput.Students); err != nil {
			return nil, err
		}
	}

	h.logger.Info().
		Str("external_session_id", externalSessionID).
		Int("exercises", len(data.Exercises)).
		Int("students", len(data.Students)).
		Int("groups", len(data.Groups)).
		Msg("session created")

	return nil, nil
}

func (h *SessionCreatedHandler) createExercises(tx *gorm.DB, sessionID uuid.UUID, inputs []ExerciseInput) error {
	for _, input := range inputs {
		exercise := models.Exercise{
			SessionID:    sessionID,
			ExternalID:   input.ExternalID,
			Title:        input.Title,
			Question:     input.Question,
			Instructions: input.Instructions,
			Difficulty:   input.Difficulty,
			MaxScore:     input.MaxScore,
		}

		for _, testCase := range input.TestCases {
			exercise.TestCases = append(exercise.TestCases, models.TestCase{
				ExternalID:     testCase.ExternalID,
				Title:          testCase.Title,
				TestInput:      testCase.TestInput,
				ExpectedOutput: testCase.ExpectedOutput,
				ScoreWeight:    testCase.ScoreWeight,
			})
		}

		for _, flag := range input.EvaluationFlags {
			exercise.EvaluationFlags = append(exercise.EvaluationFlags, models.EvaluationFlag{
				Flag:        flag.Flag,
				ScoreWeight: flag.ScoreWeight,
			})
		}

		if err := tx.Create(&exercise).Error; err != nil {
			return err
		}
	}
	return nil
}

func (h *SessionCreatedHandler) createUsers(tx *gorm.DB, sessionID uuid.UUID, groupID *uuid.UUID, inputs []StudentInput) error {
	for _, input := range inputs {
		user := models.User{
			SessionID:  sessionID,
			ExternalID: input.ExternalID,
			Fullname:   input.Fullname,
			GroupID:    groupID,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
	}
	return nil
}
