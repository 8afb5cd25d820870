package verification

import "context"

// Store persists authorization records. Implementations must enforce a
// uniqueness constraint on (organization, method, fingerprint) for
// granted records: the handler's duplicate check is a fast-path UX
// improvement, the store is the actual correctness backstop against
// concurrent confirmations of the same identity.
type Store interface {
	// FindOrCreate returns the user's record for this method, creating a
	// pending one when none exists.
	FindOrCreate(ctx context.Context, organizationID, userID string) (Authorization, error)

	// Get returns a record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (Authorization, error)

	// FingerprintClaimed reports whether any granted record in the
	// organization other than excludeUserID's carries the fingerprint.
	FingerprintClaimed(ctx context.Context, organizationID, fingerprint, excludeUserID string) (bool, error)

	// ListGranted returns the organization's granted records, for
	// fleet-wide rechecks.
	ListGranted(ctx context.Context, organizationID string) ([]Authorization, error)

	// Grant writes the metadata and transitions the record to granted in
	// one step. It returns ErrFingerprintTaken when the fingerprint
	// uniqueness constraint would be violated.
	Grant(ctx context.Context, id string, metadata Metadata) error

	// Delete removes the record entirely. Deleting an absent record
	// returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}
