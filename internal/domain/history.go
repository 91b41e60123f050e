package domain

import "time"

// RunnerAction is what happened to a runner in the install history
type RunnerAction string

const (
	ActionInstalled RunnerAction = "installed"
	ActionRemoved   RunnerAction = "removed"
	ActionSelected  RunnerAction = "selected"
)

// RunnerEvent is one entry of the runner install history
type RunnerEvent struct {
	ID     int64        `json:"id"`
	Action RunnerAction `json:"action"`
	Name   string       `json:"name"`
	Path   string       `json:"path"`
	Detail string       `json:"detail,omitempty"` // Download URL for installs, previous value for selections
	At     time.Time    `json:"at"`
}
