package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Kind identifies one of the four lifecycle event types delivered by the
// external session system.
type Kind string

const (
	KindSessionCreated       Kind = "session_created"
	KindSessionEnded         Kind = "session_ended"
	KindIndividualSubmission Kind = "individual_submission"
	KindUserJoinedSession    Kind = "user_joined_session"
)

// ErrMalformedEnvelope indicates the raw event could not be parsed into an
// envelope at all. Such events are dropped, never retried.
var ErrMalformedEnvelope = errors.New("malformed event envelope")

// ErrUnknownEventKind indicates the envelope declared a kind no handler is
// registered for.
var ErrUnknownEventKind = errors.New("unknown event kind")

// Envelope is the wire form of a lifecycle event: the kind tag, the external
// identifier of the target session and the kind-specific payload, still raw.
type Envelope struct {
	Kind              Kind            `json:"event_kind"`
	ExternalSessionID string          `json:"external_session_id"`
	Data              json.RawMessage `json:"event_data"`
}

// DecodeEnvelope parses a raw event into its envelope and typed payload,
// validating the payload against the schema registered for the declared
// kind. It never touches storage. A failed decode returns the envelope as
// far as it got, for logging.
func DecodeEnvelope(raw []byte, validate *validator.Validate) (Envelope, any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if env.ExternalSessionID == "" {
		return env, nil, fmt.Errorf("%w: external_session_id is required", ErrMalformedEnvelope)
	}

	payload, err := decodePayload(env.Kind, env.Data)
	if err != nil {
		return env, nil, err
	}

	if err := validate.Struct(payload); err != nil {
		return env, nil, err
	}

	return env, payload, nil
}

func decodePayload(kind Kind, data json.RawMessage) (any, error) {
	// session_ended carries no fields; a missing payload is an empty one.
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}

	switch kind {
	case KindSessionCreated:
		var payload SessionCreatedData
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return payload, nil
	case KindIndividualSubmission:
		var payload IndividualSubmissionData
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return payload, nil
	case KindSessionEnded:
		var payload SessionEndedData
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return payload, nil
	case KindUserJoinedSession:
		var payload UserJoinedData
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
	}
}
