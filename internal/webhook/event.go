package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrMalformedBody is returned when the request body is not valid JSON.
// This is the only input error that stops processing before dispatch.
var ErrMalformedBody = errors.New("webhook: malformed json body")

// Event is the per-request envelope for one inbound provider callback.
// Message may be empty if the inner object was absent or not an object;
// RawBody is retained for fallback logging and the raw_payload column.
type Event struct {
	DeclaredType string
	RawBody      []byte
	Message      map[string]any
}

// ParseEvent decodes an inbound body into an Event. Anything JSON-decodable is
// accepted: a missing or mistyped "message" degrades to an empty map rather
// than failing, so shape anomalies downstream stay non-fatal.
func ParseEvent(body []byte, log *slog.Logger) (Event, error) {
	if log == nil {
		log = slog.Default()
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	msg, ok := envelope["message"].(map[string]any)
	if !ok {
		if _, present := envelope["message"]; present {
			log.Warn("webhook message is not an object, using empty", "got", fmt.Sprintf("%T", envelope["message"]))
		}
		msg = map[string]any{}
	}

	evt := Event{
		DeclaredType: stringField(msg, "type"),
		RawBody:      body,
		Message:      msg,
	}
	return evt, nil
}
