package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestSubmissionRepositoryListBySession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	session := models.Session{ExternalID: "sess-repo-list"}
	require.NoError(t, db.Create(&session).Error)
	other := models.Session{ExternalID: "sess-repo-other"}
	require.NoError(t, db.Create(&other).Error)

	users := make([]models.User, 3)
	for i := range users {
		users[i] = models.User{SessionID: session.ID, ExternalID: fmt.Sprintf("stud-%d", i), Fullname: fmt.Sprintf("Student %d", i)}
		require.NoError(t, db.Create(&users[i]).Error)

		submission := models.Submission{SessionID: session.ID, UserID: &users[i].ID, Status: models.SubmissionStatusQueued}
		require.NoError(t, db.Create(&submission).Error)
	}

	outsider := models.User{SessionID: other.ID, ExternalID: "stud-x"}
	require.NoError(t, db.Create(&outsider).Error)
	require.NoError(t, db.Create(&models.Submission{SessionID: other.ID, UserID: &outsider.ID, Status: models.SubmissionStatusQueued}).Error)

	submissions, err := repo.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, submissions, 3, "submissions of other sessions must not leak in")
	require.NotNil(t, submissions[0].User)
	require.Equal(t, "stud-0", submissions[0].User.ExternalID)
}

func TestSubmissionRepositoryGetByIDScopedToSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	session := models.Session{ExternalID: "sess-repo-get"}
	require.NoError(t, db.Create(&session).Error)

	exercise := models.Exercise{
		SessionID:  session.ID,
		ExternalID: "ex-1",
		Question:   "Q",
		TestCases:  []models.TestCase{{ExternalID: "tc-1", ScoreWeight: 100}},
	}
	require.NoError(t, db.Create(&exercise).Error)

	user := models.User{SessionID: session.ID, ExternalID: "stud-1"}
	require.NoError(t, db.Create(&user).Error)

	submission := models.Submission{
		SessionID: session.ID,
		UserID:    &user.ID,
		Status:    models.SubmissionStatusGraded,
		ExerciseSubmissions: []models.ExerciseSubmission{
			{
				ExerciseID: exercise.ID,
				TestCaseResults: []models.TestCaseResult{
					{TestCaseID: exercise.TestCases[0].ID, Passed: true, Score: 100},
				},
			},
		},
	}
	require.NoError(t, db.Create(&submission).Error)

	found, err := repo.GetByID(ctx, session.ID, submission.ID)
	require.NoError(t, err)
	require.Len(t, found.ExerciseSubmissions, 1)
	require.Equal(t, "ex-1", found.ExerciseSubmissions[0].Exercise.ExternalID)
	require.Len(t, found.ExerciseSubmissions[0].TestCaseResults, 1)

	_, err = repo.GetByID(ctx, uuid.New(), submission.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionSubjectUniqueness(t *testing.T) {
	db := setupTestDB(t)

	session := models.Session{ExternalID: "sess-repo-uniq"}
	require.NoError(t, db.Create(&session).Error)
	user := models.User{SessionID: session.ID, ExternalID: "stud-1"}
	require.NoError(t, db.Create(&user).Error)

	first := models.Submission{SessionID: session.ID, UserID: &user.ID, Status: models.SubmissionStatusQueued}
	require.NoError(t, db.Create(&first).Error)

	duplicate := models.Submission{SessionID: session.ID, UserID: &user.ID, Status: models.SubmissionStatusQueued}
	require.ErrorIs(t, db.Create(&duplicate).Error, gorm.ErrDuplicatedKey)
}
