package provisioning

import "fmt"

// PreflightError reports a failed platform precondition.
type PreflightError struct {
	// Check names the precondition that failed (a required tool or action).
	Check string
	Err   error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight check %q failed: %v", e.Check, e.Err)
}

func (e *PreflightError) Unwrap() error { return e.Err }

// CredentialWriteError reports a credential decode or filesystem failure.
// The agent is never started with partially written credentials.
type CredentialWriteError struct {
	// Target is the credential being written, or "bundle" for decode
	// failures.
	Target string
	Err    error
}

func (e *CredentialWriteError) Error() string {
	return fmt.Sprintf("writing credential %s: %v", e.Target, e.Err)
}

func (e *CredentialWriteError) Unwrap() error { return e.Err }

// ActivationError reports that the node agent service did not reach a
// running state. Surfaced directly rather than retried, so a failed start is
// never mistaken for a joined node.
type ActivationError struct {
	Service string
	Err     error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("activating service %s: %v", e.Service, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }
