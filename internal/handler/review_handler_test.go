package handler_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/handler"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/repository"
	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

func setupReviewApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Session{},
		&models.Group{},
		&models.User{},
		&models.Exercise{},
		&models.TestCase{},
		&models.EvaluationFlag{},
		&models.Submission{},
		&models.ExerciseSubmission{},
		&models.TestCaseResult{},
		&models.EvaluationFlagResult{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := service.NewReviewService(
		repository.NewSessionRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewResultRepository(db),
		validate,
		nil,
		time.Minute,
		zerolog.Nop(),
	)

	app := fiber.New()
	group := app.Group("/api/v1/sessions/:external_session_id")
	handler.NewReviewHandler(svc, zerolog.Nop()).Register(group)
	return app, db
}

func seedHandlerData(t *testing.T, db *gorm.DB, externalSessionID string) (models.Submission, models.ExerciseSubmission) {
	t.Helper()

	session := models.Session{ExternalID: externalSessionID, Active: false}
	require.NoError(t, db.Create(&session).Error)

	exercise := models.Exercise{
		SessionID:  session.ID,
		ExternalID: "ex-1",
		Question:   "Reverse the input.",
		TestCases:  []models.TestCase{{ExternalID: "tc-1", ScoreWeight: 100}},
	}
	require.NoError(t, db.Create(&exercise).Error)

	user := models.User{SessionID: session.ID, ExternalID: "stud-1", Fullname: "Ada"}
	require.NoError(t, db.Create(&user).Error)

	submission := models.Submission{
		SessionID: session.ID,
		UserID:    &user.ID,
		Status:    models.SubmissionStatusGraded,
		ExerciseSubmissions: []models.ExerciseSubmission{
			{
				ExerciseID: exercise.ID,
				Graded:     true,
				TestCaseResults: []models.TestCaseResult{
					{TestCaseID: exercise.TestCases[0].ID, Passed: true, Score: 100},
				},
			},
		},
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission, submission.ExerciseSubmissions[0]
}

func decodeEnvelopeBody(t *testing.T, resp *http.Response) utils.APIResponse {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload utils.APIResponse
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestReviewHandlerListSubmissions(t *testing.T) {
	app, db := setupReviewApp(t)
	seedHandlerData(t, db, "sess-handler-list")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/sess-handler-list/submissions", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeEnvelopeBody(t, resp)
	require.True(t, payload.Success)

	items, ok := payload.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestReviewHandlerSessionNotFound(t *testing.T) {
	app, _ := setupReviewApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/sess-nope/submissions", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReviewHandlerGetSubmission(t *testing.T) {
	app, db := setupReviewApp(t)
	submission, _ := seedHandlerData(t, db, "sess-handler-get")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/sess-handler-get/submissions/"+submission.ID.String(), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/sess-handler-get/submissions/"+uuid.NewString(), nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/sess-handler-get/submissions/not-a-uuid", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReviewHandlerMarkReviewed(t *testing.T) {
	app, db := setupReviewApp(t)
	submission, _ := seedHandlerData(t, db, "sess-handler-review")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/sess-handler-review/submissions/"+submission.ID.String()+"/review", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.Submission
	require.NoError(t, db.Where("id = ?", submission.ID).First(&stored).Error)
	require.True(t, stored.Reviewed)
}

func TestReviewHandlerUpdateExerciseFeedback(t *testing.T) {
	app, db := setupReviewApp(t)
	submission, exerciseSubmission := seedHandlerData(t, db, "sess-handler-feedback")

	url := fmt.Sprintf("/api/v1/sessions/sess-handler-feedback/submissions/%s/exercises/%s", submission.ID, exerciseSubmission.ID)
	req := httptest.NewRequest(http.MethodPut, url, strings.NewReader(`{"manual_feedback": "Handle the empty string."}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.ExerciseSubmission
	require.NoError(t, db.Where("id = ?", exerciseSubmission.ID).First(&stored).Error)
	require.Equal(t, "Handle the empty string.", stored.ManualFeedback)

	req = httptest.NewRequest(http.MethodPut, url, strings.NewReader(`{"manual_feedback": ""}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReviewHandlerAdjustTestCaseResult(t *testing.T) {
	app, db := setupReviewApp(t)
	submission, exerciseSubmission := seedHandlerData(t, db, "sess-handler-adjust")

	var result models.TestCaseResult
	require.NoError(t, db.Where("exercise_submission_id = ?", exerciseSubmission.ID).First(&result).Error)

	url := fmt.Sprintf("/api/v1/sessions/sess-handler-adjust/submissions/%s/exercises/%s/testcases/%s", submission.ID, exerciseSubmission.ID, result.ID)
	req := httptest.NewRequest(http.MethodPatch, url, strings.NewReader(`{"passed": false, "score": 0}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.TestCaseResult
	require.NoError(t, db.Where("id = ?", result.ID).First(&stored).Error)
	require.False(t, stored.Passed)
	require.True(t, stored.Adjusted)

	req = httptest.NewRequest(http.MethodPatch, url, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
