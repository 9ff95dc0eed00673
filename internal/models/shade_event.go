package models

import "time"

// ShadeEvent is a single history log entry.
type ShadeEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"` // HOMING_STARTED | MOVE_FINISHED | EMERGENCY_STOP | ...
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

// LogFilter selects history entries. Zero values do not filter.
type LogFilter struct {
	From  time.Time
	To    time.Time
	Type  string
	Limit int
}
