package model

import "time"

// RunStatus represents the current state of a batch run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one batch invocation over a set of organizations.
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the aggregate outcome of a run.
type RunSummary struct {
	Total     int                      `json:"total"`
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
	Duration  float64                  `json:"duration_secs"`
	Agents    map[string]AgentCounters `json:"agents"`
}

// AgentCounters tallies how often a stage agent ran and succeeded.
type AgentCounters struct {
	Executions int `json:"executions"`
	Successes  int `json:"successes"`
	Skips      int `json:"skips"`
}
