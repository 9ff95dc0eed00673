package models

import "time"

// ShadeState is the controller snapshot served to clients.
type ShadeState struct {
	State          string    `json:"state"` // Initializing | StandBy | Moving | Homing
	Homed          bool      `json:"homed"`
	Moving         bool      `json:"moving"`
	Position       int       `json:"position"`        // steps from home
	PositionTarget float64   `json:"position_target"` // percent, as shown to users
	Offset         int       `json:"offset"`
	EndstopPressed bool      `json:"endstop_pressed"`
	NightMode      string    `json:"night_mode"`
	UpdatedAt      time.Time `json:"updated_at"`
}
