package verification

import "time"

// MethodName identifies this verification method in the authorization
// store. One user holds at most one record per (organization, method).
const MethodName = "municipal_census"

// State of an authorization record.
const (
	StatePending = "pending"
	StateGranted = "granted"
)

// Metadata is the opaque map persisted on a granted authorization. The
// personal fields are stored ciphered; the fingerprint is the salted
// digest used for duplicate detection and tamper checking.
type Metadata struct {
	DocumentNumber string `json:"document_number"`
	Birthdate      string `json:"birthdate"`
	Fingerprint    string `json:"fingerprint"`
}

// Authorization is the persisted unit binding a user to a successful
// census verification. It is created pending on first submission,
// granted on confirmation and destroyed on a failed reverification.
type Authorization struct {
	ID             string
	OrganizationID string
	UserID         string
	Name           string
	State          string
	Metadata       Metadata
	GrantedAt      time.Time
	CreatedAt      time.Time
}

// Granted reports whether the record reached the granted state.
func (a Authorization) Granted() bool {
	return a.State == StateGranted
}

// Submission is the user-facing input of one verification attempt. It is
// transient and never persisted in cleartext.
type Submission struct {
	DocumentNumber string
	Birthdate      time.Time
}
