package core

// State is the lifecycle state of a driver provider.
type State int

const (
	StateUnconfigured    State = iota // Nothing resolved, no handle
	StateBrowserSelected              // Browser resolved, no handle yet (web only)
	StateActive                       // Handle held, session live
	StateClosed                       // Handle released or never created
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateBrowserSelected:
		return "browser_selected"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryAssertion                       // Element not found or not visible
	ErrCategoryTimeout                         // Operation timed out
	ErrCategoryConnection                      // Session could not be created, server unreachable
	ErrCategoryConfig                          // Missing file, missing key, unsupported browser
	ErrCategoryDriver                          // Fault raised by the automation engine
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryDriver:
		return "driver"
	default:
		return "unknown"
	}
}
