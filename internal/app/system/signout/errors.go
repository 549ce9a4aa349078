package signout

import (
	"errors"
	"fmt"
)

// Step names the remote call that failed.
type Step string

const (
	StepRevoke   Step = "revoke"
	StepSettings Step = "settings"
)

// ErrMalformedSettings means the public settings carry no logout URI.
var ErrMalformedSettings = errors.New("public settings have no OAuth logout URI")

// TransportError wraps a failed revoke or settings call.
type TransportError struct {
	Step Step
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("logout %s: %v", e.Step, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
