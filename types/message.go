package types

import "time"

// IndexEvent is published once per manifest entry processed by a setup run.
type IndexEvent struct {
	RunID      string    `json:"run_id"`
	Position   int       `json:"position"`
	Table      string    `json:"table"`
	Field      string    `json:"field"`
	Action     string    `json:"action"` // created | already_exists | failed
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Dialect    string    `json:"dialect"`
	At         time.Time `json:"at"`
}

// Key partitions events by table so one table's history stays ordered.
func (e IndexEvent) Key() []byte {
	return []byte(e.Table)
}
