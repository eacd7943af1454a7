package tollscan

import (
	"errors"
	"fmt"
)

// InputError marks a request rejected before any portal interaction.
// Deterministic by construction, so never retried.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInputError reports whether err (or anything it wraps) is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// PortalErrorKind classifies failures of one portal interaction.
type PortalErrorKind string

const (
	// PortalNavigationFailed: the search page shell never loaded.
	PortalNavigationFailed PortalErrorKind = "navigation_failed"
	// PortalResultWaitTimeout: neither a results table nor a "no results"
	// phrase appeared within the wait budget.
	PortalResultWaitTimeout PortalErrorKind = "result_wait_timeout"
	// PortalStructureChanged: a results table was present but not in the
	// shape the parser expects.
	PortalStructureChanged PortalErrorKind = "structure_changed"
)

// PortalError wraps a failed portal interaction with its classification and
// the page URL at the time of failure, for diagnostics.
type PortalError struct {
	Kind PortalErrorKind
	URL  string
	Err  error
}

func (e *PortalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("portal %s", e.Kind)
	}
	return fmt.Sprintf("portal %s: %v", e.Kind, e.Err)
}

func (e *PortalError) Unwrap() error { return e.Err }

// TerminalError is returned after the retry budget is exhausted. It carries
// only the last underlying cause; operators need the final reason, not the
// full attempt history.
type TerminalError struct {
	Attempts int
	Cause    error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *TerminalError) Unwrap() error { return e.Cause }

// Retryable reports whether an attempt failing with err may be repeated.
// Input errors are deterministic and short-circuit; every portal-side
// failure (navigation, wait timeout, unexpected structure) is worth one
// more try within the policy budget.
func Retryable(err error) bool {
	return !IsInputError(err)
}

// newRetryClassifier builds the per-acquisition retry classifier. Input
// errors never retry. A structure mismatch gets exactly one fresh attempt
// whatever the attempt budget is set to; a changed page layout does not
// heal on the third try. Every other portal failure retries up to the
// policy cap.
func newRetryClassifier() func(error) bool {
	structureSeen := false
	return func(err error) bool {
		if !Retryable(err) {
			return false
		}
		var pe *PortalError
		if errors.As(err, &pe) && pe.Kind == PortalStructureChanged {
			if structureSeen {
				return false
			}
			structureSeen = true
		}
		return true
	}
}

// UserGuidance maps a terminal failure to the message shown to the user.
// Timeout-class failures merit a plain retry; structural failures mean the
// portal layout changed and should be reported upstream instead.
func UserGuidance(err error) string {
	var pe *PortalError
	if errors.As(err, &pe) && pe.Kind == PortalStructureChanged {
		return "The toll portal returned results in an unexpected format. Please report this so the integration can be updated."
	}
	return "The toll portal did not respond in time. Please try again in a few minutes."
}
