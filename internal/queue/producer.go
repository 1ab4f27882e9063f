package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// gradingTask is the message handed to the grading workers. The grading
// computation itself lives outside this service; only the submission id
// crosses the wire.
type gradingTask struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	QueuedAt     time.Time `json:"queued_at"`
}

// Producer publishes queued submissions to the grading subject.
type Producer struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewProducer builds a grading queue producer over an established NATS
// connection.
func NewProducer(conn *nats.Conn, subject string, logger zerolog.Logger) *Producer {
	return &Producer{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "grading_producer").Logger(),
	}
}

// EnqueueSubmission publishes the submission id for grading.
func (p *Producer) EnqueueSubmission(ctx context.Context, submissionID uuid.UUID) error {
	payload, err := json.Marshal(gradingTask{
		SubmissionID: submissionID,
		QueuedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return err
	}

	p.logger.Debug().
		Str("submission_id", submissionID.String()).
		Str("subject", p.subject).
		Msg("submission queued for grading")
	return nil
}
