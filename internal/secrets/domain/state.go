package domain

import (
	"fmt"
	"strings"
)

// State is the administrative state of one secret version. It is stored in plaintext so
// stores can filter on it without decrypting.
type State byte

const (
	StateEnabled  State = 1
	StateDisabled State = 2
)

func (s State) String() string {
	switch s {
	case StateEnabled:
		return "ENABLED"
	case StateDisabled:
		return "DISABLED"
	default:
		return fmt.Sprintf("State(%d)", byte(s))
	}
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s == StateEnabled || s == StateDisabled
}

// ParseState parses "enabled" or "disabled", case-insensitively.
func ParseState(s string) (State, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ENABLED":
		return StateEnabled, nil
	case "DISABLED":
		return StateDisabled, nil
	default:
		return 0, fmt.Errorf("%w: unknown state %q", ErrInvalidSecret, s)
	}
}
