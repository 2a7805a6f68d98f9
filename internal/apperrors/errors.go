// Package apperrors defines the error kinds shared across the supervision
// core. Kinds are sentinel errors, not types: callers wrap them with
// fmt.Errorf("%w", ...) for context and check them with errors.Is.
package apperrors

import "errors"

var (
	// ErrConfigInvalid marks a configuration document that failed validation.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrMissingSecret marks an ENV: placeholder that did not resolve to a
	// non-empty environment variable at load time.
	ErrMissingSecret = errors.New("missing secret")

	// ErrRemoteUnavailable marks a failure reaching the remote search
	// cluster's management or bulk-ingest API.
	ErrRemoteUnavailable = errors.New("remote cluster unavailable")

	// ErrCollaboratorFailed marks a failure starting, stopping, or
	// health-checking an external collaborator (packet inspector, log
	// shipper, side-buffer).
	ErrCollaboratorFailed = errors.New("collaborator failed")

	// ErrProbeFailed marks a single connectivity probe failure. Never
	// fatal in isolation.
	ErrProbeFailed = errors.New("probe failed")

	// ErrResourceExceeded marks CPU or RAM usage above its configured
	// ceiling. Never fatal.
	ErrResourceExceeded = errors.New("resource ceiling exceeded")

	// ErrWorkerCrashed marks a supervised worker that exited unexpectedly.
	ErrWorkerCrashed = errors.New("worker crashed")

	// ErrSubprocessTimeout marks an external-process invocation (compose
	// up, config validation, repo operation) that exceeded its timeout.
	ErrSubprocessTimeout = errors.New("subprocess timeout")

	// ErrVersionControlFailed marks a failure during Phase F's versioned
	// snapshot. Always swallowed by the caller.
	ErrVersionControlFailed = errors.New("version control failed")

	// ErrUnknownCollaborator marks a Control API request naming a
	// collaborator that does not exist.
	ErrUnknownCollaborator = errors.New("unknown service")
)
