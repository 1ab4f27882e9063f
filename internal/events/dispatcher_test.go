package events_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/events"
	"github.com/noah-isme/codegrade-api/internal/models"
)

type recordingProducer struct {
	queued []uuid.UUID
	fail   bool
}

func (p *recordingProducer) EnqueueSubmission(_ context.Context, id uuid.UUID) error {
	if p.fail {
		return errors.New("grading queue unavailable")
	}
	p.queued = append(p.queued, id)
	return nil
}

func setupDispatcher(t *testing.T) (*events.Dispatcher, *gorm.DB, *recordingProducer) {
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
		&models.EventLog{},
	))

	producer := &recordingProducer{}
	dispatcher := events.NewDispatcher(db, events.NewRegistry(zerolog.Nop()), producer, newValidator(t), zerolog.Nop())
	return dispatcher, db, producer
}

func sessionCreatedEvent(externalSessionID string, studentIDs ...string) []byte {
	students := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		students = append(students, fmt.Sprintf(`{"external_id": %q, "fullname": "Student %s"}`, id, id))
	}

	return []byte(fmt.Sprintf(`{
		"event_kind": "session_created",
		"external_session_id": %q,
		"event_data": {
			"title": "Algorithms Midterm",
			"exercises": [
				{
					"external_id": "ex-1",
					"title": "Sorting",
					"question": "Sort the input ascending.",
					"difficulty": "easy",
					"max_score": 100,
					"test_cases": [
						{"external_id": "tc-1", "input": "3 1 2", "expected_output": "1 2 3", "score_weight": 60},
						{"external_id": "tc-2", "input": "5 4", "expected_output": "4 5", "score_weight": 40}
					],
					"evaluation_flags": [
						{"flag": "execution", "score_weight": 70},
						{"flag": "code_quality", "score_weight": 30}
					]
				},
				{
					"external_id": "ex-2",
					"question": "Reverse the input.",
					"test_cases": [
						{"external_id": "tc-3", "input": "abc", "expected_output": "cba", "score_weight": 100}
					]
				}
			],
			"students": [%s]
		}
	}`, externalSessionID, strings.Join(students, ",")))
}

func groupSessionCreatedEvent(externalSessionID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event_kind": "session_created",
		"external_session_id": %q,
		"event_data": {
			"title": "Team Lab",
			"exercises": [
				{
					"external_id": "ex-1",
					"question": "Implement a queue.",
					"test_cases": [{"external_id": "tc-1", "score_weight": 100}]
				}
			],
			"groups": [
				{"external_id": "grp-1", "students": [
					{"external_id": "stud-1", "fullname": "Ada"},
					{"external_id": "stud-2", "fullname": "Grace"}
				]},
				{"external_id": "grp-2", "students": [
					{"external_id": "stud-3", "fullname": "Edsger"}
				]}
			]
		}
	}`, externalSessionID))
}

func submissionEvent(externalSessionID, field, value string) []byte {
	return []byte(fmt.Sprintf(`{
		"event_kind": "individual_submission",
		"external_session_id": %q,
		"event_data": {%q: %q}
	}`, externalSessionID, field, value))
}

func sessionEndedEvent(externalSessionID string) []byte {
	return []byte(fmt.Sprintf(`{"event_kind": "session_ended", "external_session_id": %q, "event_data": {}}`, externalSessionID))
}

func userJoinedEvent(externalSessionID, externalUserID, fullname string) []byte {
	return []byte(fmt.Sprintf(`{
		"event_kind": "user_joined_session",
		"external_session_id": %q,
		"event_data": {"external_user_id": %q, "fullname": %q}
	}`, externalSessionID, externalUserID, fullname))
}

func TestDispatchSessionCreatedBuildsGraph(t *testing.T) {
	dispatcher, db, _ := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, sessionCreatedEvent("sess-graph", "stud-1", "stud-2")))

	var session models.Session
	require.NoError(t, db.Where("external_id = ?", "sess-graph").First(&session).Error)
	require.True(t, session.Active)
	require.Equal(t, "Algorithms Midterm", session.Title)

	var exercises []models.Exercise
	require.NoError(t, db.Preload("TestCases").Preload("EvaluationFlags").
		Where("session_id = ?", session.ID).Order("external_id").Find(&exercises).Error)
	require.Len(t, exercises, 2)
	require.Len(t, exercises[0].TestCases, 2)
	require.Len(t, exercises[0].EvaluationFlags, 2)
	require.Len(t, exercises[1].TestCases, 1)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Where("session_id = ?", session.ID).Count(&users).Error)
	require.EqualValues(t, 2, users)
}

func TestDispatchSessionCreatedRedeliveryIsNoOp(t *testing.T) {
	dispatcher, db, _ := setupDispatcher(t)
	ctx := context.Background()

	raw := sessionCreatedEvent("sess-redeliver", "stud-1")
	require.NoError(t, dispatcher.Dispatch(ctx, raw))
	require.NoError(t, dispatcher.Dispatch(ctx, raw))

	var sessions int64
	require.NoError(t, db.Model(&models.Session{}).Where("external_id = ?", "sess-redeliver").Count(&sessions).Error)
	require.EqualValues(t, 1, sessions)

	var journal models.EventLog
	require.NoError(t, db.Where("external_session_id = ? AND reason = ?", "sess-redeliver", "duplicate").First(&journal).Error)
	require.Equal(t, models.EventOutcomeProcessed, journal.Outcome)
}

func TestDispatchDropsInvalidPayload(t *testing.T) {
	dispatcher, db, _ := setupDispatcher(t)
	ctx := context.Background()

	raw := []byte(`{
		"event_kind": "session_created",
		"external_session_id": "sess-invalid",
		"event_data": {"exercises": []}
	}`)
	require.NoError(t, dispatcher.Dispatch(ctx, raw))

	var sessions int64
	require.NoError(t, db.Model(&models.Session{}).Where("external_id = ?", "sess-invalid").Count(&sessions).Error)
	require.EqualValues(t, 0, sessions)

	var journal models.EventLog
	require.NoError(t, db.Where("external_session_id = ?", "sess-invalid").First(&journal).Error)
	require.Equal(t, models.EventOutcomeDropped, journal.Outcome)
}

func TestDispatchDropsMalformedEnvelope(t *testing.T) {
	dispatcher, _, producer := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, []byte(`{not json`)))
	require.NoError(t, dispatcher.Dispatch(ctx, []byte(`{"event_kind": "session_ended"}`)))
	require.NoError(t, dispatcher.Dispatch(ctx, []byte(`{"event_kind": "session_paused", "external_session_id": "sess-x"}`)))
	require.Empty(t, producer.queued)
}

func TestDispatchIndividualSubmission(t *testing.T) {
	dispatcher, db, producer := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, sessionCreatedEvent("sess-submit", "stud-1", "stud-2")))
	require.NoError(t, dispatcher.Dispatch(ctx, submissionEvent("sess-submit", "external_student_id", "stud-1")))

	var submission models.Submission
	require.NoError(t, db.Preload("ExerciseSubmissions").First(&submission).Error)
	require.Equal(t, models.SubmissionStatusQueued, submission.Status)
	require.NotNil(t, submission.UserID)
	require.Nil(t, submission.GroupID)
	require.Len(t, submission.ExerciseSubmissions, 2, "one stub per session exercise")

	require.Equal(t, []uuid.UUID{submission.ID}, producer.queued)
}

func TestDispatchIndividualSubmissionRedeliveryIsNoOp(t *testing.T) {
	dispatcher, db, producer := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, sessionCreatedEvent("sess-resubmit", "stud-1")))

	raw := submissionEvent("sess-resubmit", "external_student_id", "stud-1")
	require.NoError(t, dispatcher.Dispatch(ctx, raw))
	require.NoError(t, dispatcher.Dispatch(ctx, raw))

	var submissions int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissions).Error)
	require.EqualValues(t, 1, submissions)
	require.Len(t, producer.queued, 1, "redelivery must not re-enqueue grading")
}

func TestDispatchGroupSubmission(t *testing.T) {
	dispatcher, db, producer := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, groupSessionCreatedEvent("sess-group")))
	require.NoError(t, dispatcher.Dispatch(ctx, submissionEvent("sess-group", "external_group_id", "grp-1")))

	var submission models.Submission
	require.NoError(t, db.First(&submission).Error)
	require.Nil(t, submission.UserID)
	require.NotNil(t, submission.GroupID)
	require.Len(t, producer.queued, 1)
}

func TestDispatchSubmissionUnknownSubjectDropped(t *testing.T) {
	dispatcher, db, producer := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, sessionCreatedEvent("sess-missing", "stud-1")))
	require.NoError(t, dispatcher.Dispatch(ctx, submissionEvent("sess-missing", "external_student_id", "stud-unknown")))

	var submissions int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissions).Error)
	require.EqualValues(t, 0, submissions)
	require.Empty(t, producer.queued)

	var journal models.EventLog
	require.NoError(t, db.Where("external_session_id = ? AND kind = ?", "sess-missing", "individual_submission").First(&journal).Error)
	require.Equal(t, models.EventOutcomeDropped, journal.Outcome)
}

func TestDispatchSubmissionUnknownSessionDropped(t *testing.T) {
	dispatcher, db, _ := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, submissionEvent("sess-nowhere", "external_student_id", "stud-1")))

	var submissions int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissions).Error)
	require.EqualValues(t, 0, submissions)
}

func TestDispatchSessionEndedSweepsRemainingSubjects(t *testing.T) {
	dispatcher, db, producer := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, sessionCreatedEvent("sess-end", "stud-1", "stud-2", "stud-3")))
	require.NoError(t, dispatcher.Dispatch(ctx, submissionEvent("sess-end", "external_student_id", "stud-2")))
	require.NoError(t, dispatcher.Dispatch(ctx, sessionEndedEvent("sess-end")))

	var session models.Session
	require.NoError(t, db.Where("external_id = ?", "sess-end").First(&session).Error)
	require.False(t, session.Active)

	var submissions int64
	require.NoError(t, db.Model(&models.Submission{}).Where("session_id = ?", session.ID).Count(&submissions).Error)
	require.EqualValues(t, 3, submissions, "every subject ends up with exactly one submission")

	require.Len(t, producer.queued, 3)
}

func TestDispatchSessionEndedSweepsGroups(t *testing.T) {
	dispatcher, db, producer := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, groupSessionCreatedEvent("sess-group-end")))
	require.NoError(t, dispatcher.Dispatch(ctx, submissionEvent("sess-group-end", "external_group_id", "grp-2")))
	require.NoError(t, dispatcher.Dispatch(ctx, sessionEndedEvent("sess-group-end")))

	var submissions int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissions).Error)
	require.EqualValues(t, 2, submissions, "one per group, grouped users never get their own")
	require.Len(t, producer.queued, 2)
}

func TestDispatchAfterSessionEndedDropped(t *testing.T) {
	dispatcher, db, producer := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, sessionCreatedEvent("sess-closed", "stud-1")))
	require.NoError(t, dispatcher.Dispatch(ctx, sessionEndedEvent("sess-closed")))
	queued := len(producer.queued)

	// The window is closed: late lifecycle events are dropped, not retried.
	require.NoError(t, dispatcher.Dispatch(ctx, submissionEvent("sess-closed", "external_student_id", "stud-1")))
	require.NoError(t, dispatcher.Dispatch(ctx, sessionEndedEvent("sess-closed")))
	require.NoError(t, dispatcher.Dispatch(ctx, userJoinedEvent("sess-closed", "stud-9", "Late Arrival")))

	var submissions int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissions).Error)
	require.EqualValues(t, 1, submissions)
	require.Len(t, producer.queued, queued)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Where("external_id = ?", "stud-9").Count(&users).Error)
	require.EqualValues(t, 0, users)
}

func TestDispatchUserJoinedUpserts(t *testing.T) {
	dispatcher, db, _ := setupDispatcher(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, sessionCreatedEvent("sess-join", "stud-1")))
	require.NoError(t, dispatcher.Dispatch(ctx, userJoinedEvent("sess-join", "stud-2", "Barbara Liskov")))
	require.NoError(t, dispatcher.Dispatch(ctx, userJoinedEvent("sess-join", "stud-2", "Barbara Liskov")))

	var users []models.User
	require.NoError(t, db.Where("external_id = ?", "stud-2").Find(&users).Error)
	require.Len(t, users, 1)
	require.Equal(t, "Barbara Liskov", users[0].Fullname)

	require.NoError(t, dispatcher.Dispatch(ctx, userJoinedEvent("sess-join", "stud-2", "B. Liskov")))
	var updated models.User
	require.NoError(t, db.Where("external_id = ?", "stud-2").First(&updated).Error)
	require.Equal(t, "B. Liskov", updated.Fullname)
}

func TestDispatchEnqueueFailureDoesNotFailEvent(t *testing.T) {
	dispatcher, db, producer := setupDispatcher(t)
	producer.fail = true
	ctx := context.Background()

	require.NoError(t, dispatcher.Dispatch(ctx, sessionCreatedEvent("sess-queue-down", "stud-1")))
	require.NoError(t, dispatcher.Dispatch(ctx, submissionEvent("sess-queue-down", "external_student_id", "stud-1")))

	// The submission is committed even when the grading hand-off fails.
	var submissions int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissions).Error)
	require.EqualValues(t, 1, submissions)
}
