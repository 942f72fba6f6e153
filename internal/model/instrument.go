package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInstrument is returned for names that cannot be used as a
// storage key.
var ErrInvalidInstrument = errors.New("invalid instrument name")

// ValidInstrument reports whether name uses only ASCII letters, digits,
// '_' and '-'. Such names are safe, unique file and key components.
func ValidInstrument(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// InstrumentKey returns name as a storage key component, or
// ErrInvalidInstrument. Names are never rewritten, so two instruments
// cannot share a key.
func InstrumentKey(name string) (string, error) {
	if !ValidInstrument(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidInstrument, name)
	}
	return name, nil
}
