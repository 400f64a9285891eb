package replicate

import "errors"

// Error taxonomy for a replication run. Every error is fatal at the
// orchestration level — there is no retry and no partial-success
// continuation between stages. Callers classify with errors.Is.
var (
	// ErrInvalidInput reports malformed caller input. No remote calls
	// have been made when this is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthContext reports that an authorization context could not be
	// established, or that a call was attempted under the wrong context.
	ErrAuthContext = errors.New("authorization context activation failed")

	// ErrResourceNotFound reports that the source or target app is
	// absent. A missing resource is a fatal precondition failure.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrSourceRead reports that reading the source configuration
	// failed. No mutation has been attempted; no partial snapshot is
	// produced.
	ErrSourceRead = errors.New("source read failed")

	// ErrInvalidPolicy reports a malformed exclusion policy.
	ErrInvalidPolicy = errors.New("invalid exclusion policy")

	// ErrWrite reports that a write to the target failed. Writes made
	// before the failing call remain applied — there is no rollback.
	ErrWrite = errors.New("target write failed")
)
