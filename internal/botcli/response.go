package botcli

import (
	"encoding/json"
	"fmt"
)

// Response is one JSON value written by the bot CLI in answer to a command.
type Response struct {
	// Command is the line that produced this response.
	Command string
	// Raw is the complete JSON value as received.
	Raw json.RawMessage
}

// Decode unmarshals the response into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decoding response to %q: %w", r.Command, err)
	}
	return nil
}

// Err returns a *CommandError if the response carries an "error" field.
// The field may be a string or an object with a "message".
func (r *Response) Err() error {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(r.Raw, &body); err != nil || len(body.Error) == 0 || string(body.Error) == "null" || string(body.Error) == "false" {
		return nil
	}

	var msg string
	if err := json.Unmarshal(body.Error, &msg); err != nil {
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body.Error, &obj); err == nil && obj.Message != "" {
			msg = obj.Message
		} else {
			msg = string(body.Error)
		}
	}
	if msg == "" {
		return nil
	}
	return &CommandError{Command: r.Command, Message: msg}
}

// String returns the raw JSON text.
func (r *Response) String() string {
	return string(r.Raw)
}
