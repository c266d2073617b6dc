package schema

import "time"

// Turn is one input/output exchange within a Session.
type Turn struct {
	Input     Message
	Output    Message
	Timestamp time.Time
	Metadata  map[string]any
}

// Session accumulates the turns of a multi-turn conversation along with
// free-form state an agent attaches across turns.
type Session struct {
	ID        string
	Turns     []Turn
	State     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
