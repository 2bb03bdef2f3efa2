package bot

import "errors"

// Sentinel failures. Everything fatal in a run wraps one of these two,
// so callers can branch with errors.Is without string matching.
var (
	// ErrInventoryUnavailable means the farm fetch failed or the
	// response was missing the inventory fields. Fatal, not retried.
	ErrInventoryUnavailable = errors.New("inventory unavailable")

	// ErrInteractionFailed means a browser interaction could not be
	// delivered. Clicks already dispatched are not rolled back.
	ErrInteractionFailed = errors.New("interaction failed")
)

// Outcome is the terminal status of one run.
type Outcome int

const (
	OutcomeIdle Outcome = iota
	OutcomeCompleted
	OutcomeInventoryUnavailable
	OutcomeInteractionFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "Idle"
	case OutcomeCompleted:
		return "Completed"
	case OutcomeInventoryUnavailable:
		return "InventoryUnavailable"
	case OutcomeInteractionFailed:
		return "InteractionFailed"
	default:
		return "Unknown"
	}
}

// Failed reports whether the outcome aborted the run.
func (o Outcome) Failed() bool {
	return o == OutcomeInventoryUnavailable || o == OutcomeInteractionFailed
}
