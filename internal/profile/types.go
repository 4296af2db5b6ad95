package profile

import (
	"errors"
	"time"
)

// ErrNoActiveProfile is returned when humanization is requested for an owner
// that has no stored style profile.
var ErrNoActiveProfile = errors.New("no style profile: analyze a writing sample first")

// ErrUnknownPersona is returned when a referenced persona id does not exist
// for the owner.
var ErrUnknownPersona = errors.New("persona not found")

// Persona is a named voice/tone override layered on top of a style profile.
// Rules holds free-text guidance, one directive per line; the humanizer
// understands "avoid: <phrase>" and "swap: <old> -> <new>" directives and
// treats anything else as tone keywords.
type Persona struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Voice       string    `json:"voice"`
	Tone        string    `json:"tone"`
	Rules       string    `json:"rules"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
