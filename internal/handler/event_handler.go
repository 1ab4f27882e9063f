package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/events"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

// EventHandler accepts lifecycle event envelopes from the external session
// system and forwards them onto the events subject. Validation happens here
// so the upstream gets an immediate 400 for envelopes the consumer would
// only drop; the consumer revalidates regardless since the broker may carry
// events from other producers.
type EventHandler struct {
	conn      *nats.Conn
	subject   string
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEventHandler builds an event intake handler instance.
func NewEventHandler(conn *nats.Conn, subject string, validate *validator.Validate, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		conn:      conn,
		subject:   subject,
		validator: validate,
		logger:    logger.With().Str("component", "event_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *EventHandler) Register(router fiber.Router) {
	router.Post("", h.ingest)
}

func (h *EventHandler) ingest(c *fiber.Ctx) error {
	raw := c.Body()

	env, _, err := events.DecodeEnvelope(raw, h.validator)
	if err != nil {
		var validationErrors validator.ValidationErrors
		switch {
		case errors.As(err, &validationErrors):
			return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
		case errors.Is(err, events.ErrUnknownEventKind), errors.Is(err, events.ErrMalformedEnvelope):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("failed to decode event envelope")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
	}

	if err := h.conn.Publish(h.subject, raw); err != nil {
		h.logger.Error().
			Err(err).
			Str("event_kind", string(env.Kind)).
			Str("external_session_id", env.ExternalSessionID).
			Msg("failed to publish lifecycle event")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "event intake unavailable")
	}

	h.logger.Info().
		Str("event_kind", string(env.Kind)).
		Str("external_session_id", env.ExternalSessionID).
		Msg("lifecycle event accepted")

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "event accepted", fiber.Map{
		"event_kind":          env.Kind,
		"external_session_id": env.ExternalSessionID,
	})
}
