package reconcile

import "fmt"

// Mode selects the reconciliation strategy for an invocation.
type Mode int

const (
	// ModePresent adds any of the desired values that are missing.
	ModePresent Mode = iota
	// ModeAbsent removes any of the desired values that are present.
	ModeAbsent
	// ModeExact forces the attribute to exactly the desired values. With an
	// empty desired set the attribute is removed entirely.
	ModeExact
)

func (m Mode) String() string {
	switch m {
	case ModePresent:
		return "present"
	case ModeAbsent:
		return "absent"
	case ModeExact:
		return "exact"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name into a Mode. The empty string defaults to
// present.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "present":
		return ModePresent, nil
	case "absent":
		return ModeAbsent, nil
	case "exact":
		return ModeExact, nil
	default:
		return ModePresent, fmt.Errorf("invalid state %q: must be one of present, absent, exact", s)
	}
}
