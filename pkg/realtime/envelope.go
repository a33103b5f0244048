package realtime

import (
	"encoding/json"
	"fmt"
)

// AckEvent is the reserved event name of acknowledgement frames.
const AckEvent = "ack"

// Envelope is the JSON wire format of every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   string          `json:"ack,omitempty"`
}

// AckFunc replies to an inbound frame that requested an acknowledgement.
// It is a no-op when the frame carried no ack id; calling it more than once
// sends only the first reply.
type AckFunc func(payload any)

// AckOK is the conventional success acknowledgement payload. Extra fields
// are merged in from extras maps.
func AckOK(extras ...map[string]any) map[string]any {
	payload := map[string]any{"ok": true}
	for _, extra := range extras {
		for k, v := range extra {
			payload[k] = v
		}
	}
	return payload
}

// AckError is the conventional failure acknowledgement payload.
func AckError(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

func encodeEnvelope(event string, payload any, ack string) ([]byte, error) {
	env := Envelope{Event: event, Ack: ack}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

func decodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("malformed frame: missing event")
	}
	return env, nil
}
