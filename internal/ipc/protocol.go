// Package ipc carries one JSON request/response line per unix-socket connection.
package ipc

// Commands understood by the daemon.
const (
	CommandPhrase = "phrase"
	CommandSleep  = "sleep"
	CommandWake   = "wake"
	CommandToggle = "toggle"
	CommandStatus = "status"
	CommandStop   = "stop"
)

type Request struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

type Response struct {
	ID         string   `json:"id,omitempty"`
	OK         bool     `json:"ok"`
	State      string   `json:"state,omitempty"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
	Operations []string `json:"operations,omitempty"`
}
