package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

// ReviewHandler manages the grading review endpoints.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. The group is
// expected to be rooted at a session path carrying :external_session_id.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("/submissions", h.list)
	router.Get("/submissions/:submission_id", h.get)
	router.Post("/submissions/:submission_id/review", h.markReviewed)
	router.Get("/submissions/:submission_id/exercises/:exercise_submission_id", h.getExercise)
	router.Put("/submissions/:submission_id/exercises/:exercise_submission_id", h.updateExercise)
	router.Patch("/submissions/:submission_id/exercises/:exercise_submission_id/testcases/:result_id", h.adjustTestCase)
	router.Patch("/submissions/:submission_id/exercises/:exercise_submission_id/flags/:result_id", h.adjustFlag)
}

func (h *ReviewHandler) list(c *fiber.Ctx) error {
	submissions, err := h.service.ListSubmissions(c.Context(), c.Params("external_session_id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *ReviewHandler) get(c *fiber.Ctx) error {
	submissionID, err := parseUUIDParam(c, "submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.GetSubmission(c.Context(), c.Params("external_session_id"), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *ReviewHandler) markReviewed(c *fiber.Ctx) error {
	submissionID, err := parseUUIDParam(c, "submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.MarkReviewed(c.Context(), c.Params("external_session_id"), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission marked reviewed", submission)
}

func (h *ReviewHandler) getExercise(c *fiber.Ctx) error {
	submissionID, err := parseUUIDParam(c, "submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	exerciseSubmissionID, err := parseUUIDParam(c, "exercise_submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.GetExerciseSubmission(c.Context(), c.Params("external_session_id"), submissionID, exerciseSubmissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exercise submission retrieved", record)
}

func (h *ReviewHandler) updateExercise(c *fiber.Ctx) error {
	submissionID, err := parseUUIDParam(c, "submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	exerciseSubmissionID, err := parseUUIDParam(c, "exercise_submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExerciseSubmissionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.service.UpdateExerciseSubmission(c.Context(), c.Params("external_session_id"), submissionID, exerciseSubmissionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exercise submission updated", record)
}

func (h *ReviewHandler) adjustTestCase(c *fiber.Ctx) error {
	submissionID, exerciseSubmissionID, resultID, err := parseResultPath(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ResultUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.AdjustTestCaseResult(c.Context(), c.Params("external_session_id"), submissionID, exerciseSubmissionID, resultID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "test case result adjusted", result)
}

func (h *ReviewHandler) adjustFlag(c *fiber.Ctx) error {
	submissionID, exerciseSubmissionID, resultID, err := parseResultPath(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ResultUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.AdjustEvaluationFlagResult(c.Context(), c.Params("external_session_id"), submissionID, exerciseSubmissionID, resultID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation flag result adjusted", result)
}

func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrExerciseSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exercise submission not found")
	case errors.Is(err, service.ErrResultNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "result not found")
	case errors.Is(err, service.ErrEmptyFeedback), errors.Is(err, service.ErrNothingToAdjust):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func parseResultPath(c *fiber.Ctx) (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	submissionID, err := parseUUIDParam(c, "submission_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	exerciseSubmissionID, err := parseUUIDParam(c, "exercise_submission_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	resultID, err := parseUUIDParam(c, "result_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	return submissionID, exerciseSubmissionID, resultID, nil
}
