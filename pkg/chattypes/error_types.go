package chattypes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProviderKind is a configuration fault: a profile names a
	// calling convention the adapter cannot build requests for.
	ErrUnknownProviderKind = errors.New("unknown provider kind")

	// ErrNoProviders is returned when the registry is empty.
	ErrNoProviders = errors.New("no providers registered")

	// ErrEmptyResponse is returned by a backend that answered without text.
	ErrEmptyResponse = errors.New("empty response content")

	// ErrBackendNotConfigured is returned when a backend has no API key.
	ErrBackendNotConfigured = errors.New("backend not configured")
)

// AttemptError records the failure of one provider during a failover run.
type AttemptError struct {
	ProviderKey         string
	ProviderDisplayName string
	Err                 error
}

func (a AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", a.ProviderKey, a.Err)
}

func (a AttemptError) Unwrap() error {
	return a.Err
}

// FailoverError is returned when no provider produced a reply.
// Unwrap yields the most recent cause so errors.Is and errors.As behave as if
// the last provider's error had been returned directly. Attempts keeps every
// failure in the order the providers were tried.
type FailoverError struct {
	Attempts []AttemptError
	Last     error
}

func (e *FailoverError) Error() string {
	if e.Last == nil {
		return "no assistant backend could be reached"
	}
	return fmt.Sprintf("no assistant backend could be reached: %v", e.Last)
}

func (e *FailoverError) Unwrap() error {
	return e.Last
}

// Summary renders every attempt on one line, for diagnostics.
func (e *FailoverError) Summary() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return strings.Join(parts, "; ")
}
