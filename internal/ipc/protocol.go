package ipc

import "encoding/json"

// Request is one control command sent to the owner process.
type Request struct {
	Command  string `json:"command"`
	Argument string `json:"argument,omitempty"`
}

// Response reports the outcome and the capture state after the command.
type Response struct {
	OK      bool            `json:"ok"`
	State   string          `json:"state,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
