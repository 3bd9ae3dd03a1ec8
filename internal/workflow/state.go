package workflow

import (
	"errors"
	"fmt"

	"preboard/internal/student"
)

// State is the single authoritative position of a submission session.
type State int

const (
	Idle State = iota
	Searching
	NotFound
	FoundPendingFee
	FoundEligible
	FoundIneligible
	Submitting
	Submitted
)

var stateNames = map[State]string{
	Idle:            "idle",
	Searching:       "searching",
	NotFound:        "not_found",
	FoundPendingFee: "found_pending_fee",
	FoundEligible:   "found_eligible",
	FoundIneligible: "found_ineligible",
	Submitting:      "submitting",
	Submitted:       "submitted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText lets states appear by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanDownload reports whether an admit card may be issued in s.
func (s State) CanDownload() bool {
	return s == FoundIneligible || s == Submitted
}

// Message is the text shown to the student for s.
func (s State) Message() string {
	switch s {
	case NotFound:
		return "No student found with this class and roll number."
	case FoundPendingFee:
		return "Your fee is pending. Please contact Principal Office."
	case FoundIneligible:
		return "Form already submitted. You can download your admit card."
	case Submitted:
		return "Form submitted successfully!"
	}
	return ""
}

// Classify maps a lookup result onto its search outcome. The order matters: an already
// submitted record is offered for download even if its fee later became pending.
func Classify(rec *student.Record) State {
	switch {
	case rec == nil:
		return NotFound
	case rec.IsSubmitted:
		return FoundIneligible
	case rec.FeePendingBlocks():
		return FoundPendingFee
	default:
		return FoundEligible
	}
}

var (
	// ErrNotFound accompanies the NotFound state after a search.
	ErrNotFound = errors.New("no student found with this class and roll number")
	// ErrBusy is returned while a search, submission or render is in flight.
	ErrBusy = errors.New("another request for this session is in progress")
	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = errors.New("operation not allowed in the current state")
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("submission session not found")
)

// ValidationError rejects user input before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// RemoteError wraps a failed collaborator call; the session is rolled back.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
