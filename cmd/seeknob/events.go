package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// JSON Encoding/Decoding Support (control socket)
// ============================================================================
// EventEnvelope wraps events for JSON serialization/deserialization.
// Since Go doesn't have union types, we use a type discriminator.
//
//	{"type": "action", "data": {"name": "seek_forward"}}
//	{"type": "snapshot"}
// ============================================================================

// ipcDeviceName is the device name reported for actions injected over IPC.
const ipcDeviceName = "ipc"

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type actionPayload struct {
	Name string `json:"name"`
}

// UnmarshalEvent deserializes a control-socket envelope into an Event.
// Action names are resolved with ParseAction, so IPC accepts the same names as key_mappings.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "action":
		var p actionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal action: %w", err)
		}
		a, err := ParseAction(p.Name)
		if err != nil {
			return nil, err
		}
		return ActionEvent{Device: ipcDeviceName, Action: a, At: time.Now()}, nil

	case "snapshot":
		return RequestStateSnapshot{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}
