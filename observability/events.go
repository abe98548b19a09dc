package observability

import (
	"log/slog"

	"outboxd/core/events"
	"outboxd/core/message"
	"outboxd/core/types"
)

// attributed is satisfied by event payloads that can render themselves as a
// generic attribute map.
type attributed interface {
	Event() *types.Event
}

// EventRecorder implements events.Emitter: every outbox event is written to
// the structured log and folded into the prometheus registry.
type EventRecorder struct {
	logger *slog.Logger
}

// NewEventRecorder creates a recorder writing through the provided logger. A
// nil logger falls back to the process default.
func NewEventRecorder(logger *slog.Logger) *EventRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRecorder{logger: logger}
}

// Emit implements events.Emitter.
func (r *EventRecorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	switch e := evt.(type) {
	case events.Dispatch:
		Outbox().RecordDispatch(uint32(e.DestinationAndNonce>>32), bodyLen(e.Message), e.LeafIndex+1)
	case events.Checkpoint:
		Outbox().RecordCheckpoint()
	}

	logArgs := []any{slog.String("event", evt.EventType())}
	if a, ok := evt.(attributed); ok {
		if payload := a.Event(); payload != nil {
			for key, value := range payload.Attributes {
				if key == "message" {
					// The full wire bytes are event payload, not log
					// material.
					continue
				}
				logArgs = append(logArgs, slog.String(key, value))
			}
		}
	}
	r.logger.Info("outbox event", logArgs...)
}

func bodyLen(encoded []byte) int {
	if env, err := message.Decode(encoded); err == nil {
		return len(env.Body)
	}
	return 0
}
