package verification

import "errors"

// Attempt-scoped failures. All of them are recoverable: they are
// collected on the handler, mapped to a workflow outcome and surfaced to
// the caller; none should ever escape as a fault.
var (
	// ErrDocumentRequired and friends are input validation failures,
	// surfaced with a field-specific message and never retried.
	ErrDocumentRequired  = errors.New("document number is required")
	ErrDocumentFormat    = errors.New("document number is not a valid DNI or NIE")
	ErrBirthdateRequired = errors.New("birthdate is required")
	ErrUnderage          = errors.New("you must be at least 16 years old")

	// ErrDuplicateIdentity means another user in the organization already
	// holds a record with the same fingerprint.
	ErrDuplicateIdentity = errors.New("identity already used by another verification")

	// ErrIdentityMismatch means a reverified fingerprint no longer equals
	// the one stored on the record: possible tampering or a changed identity.
	ErrIdentityMismatch = errors.New("personal data does not correspond to the granted verification")

	// ErrRemoteUnavailable covers connection failures and timeouts, kept
	// distinct from rejections so operators can tell outages apart.
	ErrRemoteUnavailable = errors.New("census service is unreachable")

	// ErrCannotValidate means the census responded but rejected the query.
	ErrCannotValidate = errors.New("census could not validate the request")

	// ErrNotInCensus means the census answered and found no matching resident.
	ErrNotInCensus = errors.New("person is not registered in the census")

	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("authorization not found")

	// ErrFingerprintTaken is the storage-level uniqueness backstop for the
	// (organization, method, fingerprint) constraint.
	ErrFingerprintTaken = errors.New("fingerprint already granted")
)
