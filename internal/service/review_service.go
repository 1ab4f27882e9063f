package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/repository"
)

// ErrSessionNotFound indicates no session exists for the external id.
var ErrSessionNotFound = errors.New("session not found")

// ErrSubmissionNotFound indicates a submission could not be found within the session.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrExerciseSubmissionNotFound indicates a per-exercise record could not be found.
var ErrExerciseSubmissionNotFound = errors.New("exercise submission not found")

// ErrResultNotFound indicates a test case or evaluation flag result could not be found.
var ErrResultNotFound = errors.New("result not found")

// ErrEmptyFeedback indicates the manual feedback was empty after sanitization.
var ErrEmptyFeedback = errors.New("manual feedback empty after sanitization")

// ErrNothingToAdjust indicates a result override carried no fields.
var ErrNothingToAdjust = errors.New("at least one of passed or score must be provided")

// ReviewService exposes the grading review workflows: tutors inspect the
// submissions the lifecycle core queued, adjust computed results and sign
// them off. Adjustments set the adjusted flag; the lifecycle core never
// reads them back.
type ReviewService interface {
	ListSubmissions(ctx context.Context, externalSessionID string) ([]dto.SubmissionResponse, error)
	GetSubmission(ctx context.Context, externalSessionID string, id uuid.UUID) (dto.SubmissionResponse, error)
	MarkReviewed(ctx context.Context, externalSessionID string, id uuid.UUID) (dto.SubmissionResponse, error)
	GetExerciseSubmission(ctx context.Context, externalSessionID string, submissionID, id uuid.UUID) (dto.ExerciseSubmissionResponse, error)
	UpdateExerciseSubmission(ctx context.Context, externalSessionID string, submissionID, id uuid.UUID, payload dto.ExerciseSubmissionUpdateRequest) (dto.ExerciseSubmissionResponse, error)
	AdjustTestCaseResult(ctx context.Context, externalSessionID string, submissionID, exerciseSubmissionID, resultID uuid.UUID, payload dto.ResultUpdateRequest) (dto.TestCaseResultResponse, error)
	AdjustEvaluationFlagResult(ctx context.Context, externalSessionID string, submissionID, exerciseSubmissionID, resultID uuid.UUID, payload dto.ResultUpdateRequest) (dto.EvaluationFlagResultResponse, error)
}

type reviewService struct {
	sessions    repository.SessionRepository
	submissions repository.SubmissionRepository
	results     repository.ResultRepository
	validator   *validator.Validate
	cache       *redis.Client
	cacheTTL    time.Duration
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewReviewService constructs a ReviewService instance.
func NewReviewService(sessions repository.SessionRepository, submissions repository.SubmissionRepository, results repository.ResultRepository, validate *validator.Validate, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) ReviewService {
	return &reviewService{
		sessions:    sessions,
		submissions: submissions,
		results:     results,
		validator:   validate,
		cache:       cache,
		cacheTTL:    cacheTTL,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "review_service").Logger(),
	}
}

func (s *reviewService) ListSubmissions(ctx context.Context, externalSessionID string) ([]dto.SubmissionResponse, error) {
	cacheKey := fmt.Sprintf("review:session:%s:submissions", externalSessionID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var responses []dto.SubmissionResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &responses); unmarshalErr == nil {
				s.logger.Debug().Str("external_session_id", externalSessionID).Msg("submission list cache hit")
				return responses, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read submission list cache")
		}
	}

	session, err := s.resolveSession(ctx, externalSessionID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	responses := dto.NewSubmissionResponseSlice(submissions)

	if s.cache != nil {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store submission list cache")
			}
		}
	}

	return responses, nil
}

func (s *reviewService) GetSubmission(ctx context.Context, externalSessionID string, id uuid.UUID) (dto.SubmissionResponse, error) {
	submission, err := s.resolveSubmission(ctx, externalSessionID, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *reviewService) MarkReviewed(ctx context.Context, externalSessionID string, id uuid.UUID) (dto.SubmissionResponse, error) {
	submission, err := s.resolveSubmission(ctx, externalSessionID, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !submission.Reviewed {
		submission.Reviewed = true
		if err := s.submissions.Update(ctx, &submission); err != nil {
			return dto.SubmissionResponse{}, err
		}
		s.invalidateList(ctx, externalSessionID)
	}

	s.logger.Info().
		Str("external_session_id", externalSessionID).
		Str("submission_id", id.String()).
		Msg("submission marked reviewed")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *reviewService) GetExerciseSubmission(ctx context.Context, externalSessionID string, submissionID, id uuid.UUID) (dto.ExerciseSubmissionResponse, error) {
	record, err := s.resolveExerciseSubmission(ctx, externalSessionID, submissionID, id)
	if err != nil {
		return dto.ExerciseSubmissionResponse{}, err
	}

	return dto.NewExerciseSubmissionResponse(record), nil
}

func (s *reviewService) UpdateExerciseSubmission(ctx context.Context, externalSessionID string, submissionID, id uuid.UUID, payload dto.ExerciseSubmissionUpdateRequest) (dto.ExerciseSubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExerciseSubmissionResponse{}, err
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.ManualFeedback))
	if feedback == "" {
		return dto.ExerciseSubmissionResponse{}, ErrEmptyFeedback
	}

	record, err := s.resolveExerciseSubmission(ctx, externalSessionID, submissionID, id)
	if err != nil {
		return dto.ExerciseSubmissionResponse{}, err
	}

	record.ManualFeedback = feedback
	if err := s.results.UpdateExerciseSubmission(ctx, &record); err != nil {
		return dto.ExerciseSubmissionResponse{}, err
	}
	s.invalidateList(ctx, externalSessionID)

	return dto.NewExerciseSubmissionResponse(record), nil
}

func (s *reviewService) AdjustTestCaseResult(ctx context.Context, externalSessionID string, submissionID, exerciseSubmissionID, resultID uuid.UUID, payload dto.ResultUpdateRequest) (dto.TestCaseResultResponse, error) {
	if err := s.validateAdjustment(payload); err != nil {
		return dto.TestCaseResultResponse{}, err
	}

	if _, err := s.resolveExerciseSubmission(ctx, externalSessionID, submissionID, exerciseSubmissionID); err != nil {
		return dto.TestCaseResultResponse{}, err
	}

	result, err := s.results.GetTestCaseResult(ctx, exerciseSubmissionID, resultID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestCaseResultResponse{}, ErrResultNotFound
		}
		return dto.TestCaseResultResponse{}, err
	}

	if payload.Passed != nil {
		result.Passed = *payload.Passed
	}
	if payload.Score != nil {
		result.Score = *payload.Score
	}
	result.Adjusted = true

	if err := s.results.UpdateTestCaseResult(ctx, &result); err != nil {
		return dto.TestCaseResultResponse{}, err
	}
	s.invalidateList(ctx, externalSessionID)

	s.logger.Info().
		Str("external_session_id", externalSessionID).
		Str("result_id", resultID.String()).
		Msg("test case result adjusted")

	return dto.NewTestCaseResultResponse(result), nil
}

func (s *reviewService) AdjustEvaluationFlagResult(ctx context.Context, externalSessionID string, submissionID, exerciseSubmissionID, resultID uuid.UUID, payload dto.ResultUpdateRequest) (dto.EvaluationFlagResultResponse, error) {
	if err := s.validateAdjustment(payload); err != nil {
		return dto.EvaluationFlagResultResponse{}, err
	}

	if _, err := s.resolveExerciseSubmission(ctx, externalSessionID, submissionID, exerciseSubmissionID); err != nil {
		return dto.EvaluationFlagResultResponse{}, err
	}

	result, err := s.results.GetEvaluationFlagResult(ctx, exerciseSubmissionID, resultID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationFlagResultResponse{}, ErrResultNotFound
		}
		return dto.EvaluationFlagResultResponse{}, err
	}

	if payload.Passed != nil {
		result.Passed = *payload.Passed
	}
	if payload.Score != nil {
		result.Score = *payload.Score
	}
	result.Adjusted = true

	if err := s.results.UpdateEvaluationFlagResult(ctx, &result); err != nil {
		return dto.EvaluationFlagResultResponse{}, err
	}
	s.invalidateList(ctx, externalSessionID)

	s.logger.Info().
		Str("external_session_id", externalSessionID).
		Str("result_id", resultID.String()).
		Msg("evaluation flag result adjusted")

	return dto.NewEvaluationFlagResultResponse(result), nil
}

func (s *reviewService) validateAdjustment(payload dto.ResultUpdateRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}
	if payload.Passed == nil && payload.Score == nil {
		return ErrNothingToAdjust
	}
	return nil
}

func (s *reviewService) resolveSession(ctx context.Context, externalSessionID string) (models.Session, error) {
	session, err := s.sessions.GetByExternalID(ctx, externalSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (s *reviewService) resolveSubmission(ctx context.Context, externalSessionID string, id uuid.UUID) (models.Submission, error) {
	session, err := s.resolveSession(ctx, externalSessionID)
	if err != nil {
		return models.Submission{}, err
	}

	submission, err := s.submissions.GetByID(ctx, session.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *reviewService) resolveExerciseSubmission(ctx context.Context, externalSessionID string, submissionID, id uuid.UUID) (models.ExerciseSubmission, error) {
	if _, err := s.resolveSubmission(ctx, externalSessionID, submissionID); err != nil {
		return models.ExerciseSubmission{}, err
	}

	record, err := s.results.GetExerciseSubmission(ctx, submissionID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ExerciseSubmission{}, ErrExerciseSubmissionNotFound
		}
		return models.ExerciseSubmission{}, err
	}
	return record, nil
}

func (s *reviewService) invalidateList(ctx context.Context, externalSessionID string) {
	if s.cache == nil {
		return
	}
	cacheKey := fmt.Sprintf("review:session:%s:submissions", externalSessionID)
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate submission list cache")
	}
}
