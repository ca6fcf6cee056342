package cdp

import (
	"encoding/json"
	"fmt"
)

// Message is a generic CDP frame: a request carries ID/Method/Params, a
// response carries the same ID plus Result or Error, and an event carries
// Method but no ID.
type Message struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// IsEvent reports whether this frame is an unsolicited event (no ID).
func (m *Message) IsEvent() bool { return m.ID == 0 }

// errorMessage extracts a human-readable message from the CDP response's
// "error" field, which may be a plain string, an object with a "message"
// field, or any other JSON value.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asObject struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil && asObject.Message != "" {
		return asObject.Message
	}

	return fmt.Sprintf("%s", raw)
}
