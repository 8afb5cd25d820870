package verification

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/censo-gate/censo_gate/internal/census"
)

// documentPattern accepts Spanish DNI and NIE numbers.
var documentPattern = regexp.MustCompile(`^[XYZ0-9][0-9]{7}[A-Z]$`)

const minimumAge = 16

// Deps bundles the collaborators a handler needs. Now is injectable for
// the age-gate tests and defaults to time.Now.
type Deps struct {
	Digest *census.Digest
	Client *census.Client
	Store  Store
	Now    func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Handler owns one user's in-flight verification attempt. It is created
// fresh per request or recheck and discarded afterwards; the cached
// fingerprint and census response are attempt-scoped, which also bounds
// the remote load to one round trip per attempt.
//
// Two variants exist: a submission handler over fresh user input, and a
// record handler reloaded from an authorization's stored metadata. The
// variant decides which identity-claim rule applies: submissions get the
// duplicate check against other users, reloads get the ownership check
// against their own stored fingerprint. Never both.
type Handler struct {
	deps Deps

	organizationID string
	userID         string
	record         census.Record
	birthdate      time.Time
	stored         *Authorization

	errs []error

	fingerprint   string
	fingerprinted bool

	result    census.QueryResult
	resultErr error
	queried   bool
}

// NewSubmissionHandler builds the handler for a new verification attempt
// from user-submitted data.
func NewSubmissionHandler(deps Deps, organizationID, userID string, sub Submission) *Handler {
	return &Handler{
		deps:           deps,
		organizationID: organizationID,
		userID:         userID,
		record:         census.FormRecord(sub.DocumentNumber, sub.Birthdate),
		birthdate:      sub.Birthdate,
	}
}

// NewRecordHandler builds the handler for a reverification, reloading the
// personal data from the record's own deciphered metadata instead of
// fresh input. Corrupt metadata deciphers to empty fields, which the
// fingerprint consistency check then fails.
func NewRecordHandler(deps Deps, auth Authorization) *Handler {
	stored := auth
	return &Handler{
		deps:           deps,
		organizationID: auth.OrganizationID,
		userID:         auth.UserID,
		record: census.StoredRecord(
			decipher(auth.Metadata.DocumentNumber),
			decipher(auth.Metadata.Birthdate),
		),
		stored: &stored,
	}
}

// Record exposes the canonical record under verification.
func (h *Handler) Record() census.Record {
	return h.record
}

// Fingerprint returns the digest over the attempt's canonical record,
// computed once per handler. Empty when the record is incomplete.
func (h *Handler) Fingerprint() string {
	if !h.fingerprinted {
		h.fingerprint = h.deps.Digest.Fingerprint(h.record)
		h.fingerprinted = true
	}
	return h.fingerprint
}

// ValidateInput applies the local format, presence and minimum-age rules
// to a submission. All violations are collected; the joined error keeps
// each one reachable through errors.Is.
func (h *Handler) ValidateInput() error {
	var found []error
	switch {
	case h.record.DocumentNumber == "":
		found = append(found, ErrDocumentRequired)
	case !documentPattern.MatchString(h.record.DocumentNumber):
		found = append(found, ErrDocumentFormat)
	}
	switch {
	case h.birthdate.IsZero():
		found = append(found, ErrBirthdateRequired)
	case ageAt(h.birthdate, h.deps.now()) < minimumAge:
		found = append(found, ErrUnderage)
	}
	if len(found) == 0 {
		return nil
	}
	h.errs = append(h.errs, found...)
	return errors.Join(found...)
}

// CheckFingerprint applies the identity-claim rule for the handler's
// variant: duplicate detection for submissions, ownership consistency
// for reloaded records.
func (h *Handler) CheckFingerprint(ctx context.Context) error {
	fp := h.Fingerprint()
	if h.stored != nil {
		if fp == "" || fp != h.stored.Metadata.Fingerprint {
			h.errs = append(h.errs, ErrIdentityMismatch)
			return ErrIdentityMismatch
		}
		return nil
	}

	claimed, err := h.deps.Store.FingerprintClaimed(ctx, h.organizationID, fp, h.userID)
	if err != nil {
		return err
	}
	if claimed {
		h.errs = append(h.errs, ErrDuplicateIdentity)
		return ErrDuplicateIdentity
	}
	return nil
}

// IsValid resolves the remote check. It fails fast on queued validation
// errors, keeps "census unreachable" distinct from "census rejected the
// query" distinct from "not found in census", and never performs more
// than one network call per handler.
func (h *Handler) IsValid(ctx context.Context) error {
	if len(h.errs) > 0 {
		return h.errs[0]
	}

	res, err := h.lookup(ctx)
	switch {
	case errors.Is(err, census.ErrConnectionFailed) || errors.Is(err, census.ErrConnectionTimeout):
		return h.fail(ErrRemoteUnavailable)
	case errors.Is(err, census.ErrIncompleteRecord):
		return h.fail(ErrCannotValidate)
	case err != nil:
		return h.fail(ErrRemoteUnavailable)
	}

	if !res.Success {
		return h.fail(ErrCannotValidate)
	}
	if !res.Exists {
		return h.fail(ErrNotInCensus)
	}
	return nil
}

// FingerprintMatchesRemote recomputes a fingerprint from the census
// response and compares it to the fingerprint stored on the reloaded
// record, detecting silent drift of the remote source of truth.
func (h *Handler) FingerprintMatchesRemote(ctx context.Context) bool {
	if h.stored == nil {
		return false
	}
	fp, err := h.remoteFingerprint(ctx)
	if err != nil || fp == "" {
		return false
	}
	return fp == h.stored.Metadata.Fingerprint
}

// Metadata assembles the values persisted on grant: ciphered personal
// fields plus the fingerprint recomputed from the census response.
func (h *Handler) Metadata(ctx context.Context) (Metadata, error) {
	fp, err := h.remoteFingerprint(ctx)
	if err != nil {
		return Metadata{}, err
	}
	if fp == "" {
		return Metadata{}, ErrCannotValidate
	}
	return Metadata{
		DocumentNumber: cipher(h.record.DocumentNumber),
		Birthdate:      cipher(h.record.Birthdate),
		Fingerprint:    fp,
	}, nil
}

func (h *Handler) remoteFingerprint(ctx context.Context) (string, error) {
	res, err := h.lookup(ctx)
	if err != nil {
		return "", err
	}
	return h.deps.Digest.Fingerprint(census.CensusRecord(h.record.DocumentNumber, res.Birthdate)), nil
}

// lookup performs the census query at most once per handler and caches
// both the result and the error. The query runs detached from the
// caller's cancellation: an abandoned attempt still lets the in-flight
// call complete so the remote nonce window is not left ambiguous, and
// the workflow's commit point decides whether anything is persisted.
func (h *Handler) lookup(ctx context.Context) (census.QueryResult, error) {
	if !h.queried {
		h.result, h.resultErr = h.deps.Client.Lookup(context.WithoutCancel(ctx), h.record)
		h.queried = true
	}
	return h.result, h.resultErr
}

func (h *Handler) fail(err error) error {
	h.errs = append(h.errs, err)
	return err
}

func ageAt(birthdate, now time.Time) int {
	years := now.Year() - birthdate.Year()
	if birthdate.AddDate(years, 0, 0).After(now) {
		years--
	}
	return years
}
