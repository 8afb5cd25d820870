package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/censo-gate/censo_gate/internal/census"
	"github.com/censo-gate/censo_gate/internal/notification"
)

// Outcome is the terminal state of a workflow run.
type Outcome string

const (
	OutcomeAlreadyGranted Outcome = "already_granted"
	OutcomeInputInvalid   Outcome = "input_invalid"
	OutcomeRemoteInvalid  Outcome = "remote_invalid"
	OutcomeGranted        Outcome = "granted"
	OutcomeStillValid     Outcome = "still_valid"
	OutcomeRevoked        Outcome = "revoked"
)

// ConfirmResult pairs a confirmation outcome with the attempt error that
// produced it, when any.
type ConfirmResult struct {
	Outcome       Outcome
	Reason        error
	Authorization Authorization
}

// Service orchestrates the confirmation and reverification workflows
// over a fresh handler per attempt.
type Service struct {
	store    Store
	client   *census.Client
	digest   *census.Digest
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the verification workflows.
func NewService(store Store, client *census.Client, digest *census.Digest, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		client:   client,
		digest:   digest,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) deps() Deps {
	return Deps{Digest: s.digest, Client: s.client, Store: s.store, Now: s.now}
}

// Confirm runs a new verification attempt end to end. The checks run in
// a fixed order and short-circuit on the first failure:
//
//  1. already granted
//  2. local input validation
//  3. duplicate fingerprint
//  4. remote census check
//
// Metadata is assigned and the record granted only on the success path,
// and only when the caller's context is still live: an abandoned attempt
// never commits, even though its remote call ran to completion.
func (s *Service) Confirm(ctx context.Context, organizationID, userID string, sub Submission) (ConfirmResult, error) {
	auth, err := s.store.FindOrCreate(ctx, organizationID, userID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load authorization: %w", err)
	}
	if auth.Granted() {
		return ConfirmResult{Outcome: OutcomeAlreadyGranted, Authorization: auth}, nil
	}

	h := NewSubmissionHandler(s.deps(), organizationID, userID, sub)

	if err := h.ValidateInput(); err != nil {
		return ConfirmResult{Outcome: OutcomeInputInvalid, Reason: err, Authorization: auth}, nil
	}
	if err := h.CheckFingerprint(ctx); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return ConfirmResult{Outcome: OutcomeInputInvalid, Reason: err, Authorization: auth}, nil
		}
		return ConfirmResult{}, fmt.Errorf("duplicate check: %w", err)
	}
	if err := h.IsValid(ctx); err != nil {
		return ConfirmResult{Outcome: OutcomeRemoteInvalid, Reason: err, Authorization: auth}, nil
	}

	metadata, err := h.Metadata(ctx)
	if err != nil {
		return ConfirmResult{Outcome: OutcomeRemoteInvalid, Reason: err, Authorization: auth}, nil
	}

	// Commit point. A canceled caller means no write.
	if err := ctx.Err(); err != nil {
		return ConfirmResult{}, err
	}

	if err := s.store.Grant(ctx, auth.ID, metadata); err != nil {
		if errors.Is(err, ErrFingerprintTaken) {
			// Lost the race against a concurrent attempt with the same
			// identity; the storage constraint is the source of truth.
			return ConfirmResult{Outcome: OutcomeInputInvalid, Reason: ErrDuplicateIdentity, Authorization: auth}, nil
		}
		return ConfirmResult{}, fmt.Errorf("grant authorization: %w", err)
	}

	granted, err := s.store.Get(ctx, auth.ID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("reload authorization: %w", err)
	}

	s.logger.Info("verification granted",
		slog.String("authorization_id", granted.ID),
		slog.String("organization_id", organizationID),
	)
	return ConfirmResult{Outcome: OutcomeGranted, Authorization: granted}, nil
}

// Reverify re-runs the census check against an already-granted record
// using its own stored personal data. A record that passes both the
// remote check and the fingerprint consistency checks is left untouched,
// as is a record whose check could not run because the census endpoint
// was unreachable; that error propagates so the caller can retry.
// A definite rejection destroys the record and dispatches one revocation notice
// to the owner, fire and forget. Rechecking a destroyed record returns
// ErrNotFound, which makes repeated revocations a natural no-op.
func (s *Service) Reverify(ctx context.Context, authorizationID string) (Outcome, error) {
	auth, err := s.store.Get(ctx, authorizationID)
	if err != nil {
		return "", err
	}
	if !auth.Granted() {
		return "", ErrNotFound
	}

	h := NewRecordHandler(s.deps(), auth)

	if h.CheckFingerprint(ctx) == nil {
		err := h.IsValid(ctx)
		if errors.Is(err, ErrRemoteUnavailable) {
			// An outage proves nothing about the record; leave it
			// untouched and let the caller retry later.
			return "", err
		}
		if err == nil && h.FingerprintMatchesRemote(ctx) {
			return OutcomeStillValid, nil
		}
	}

	if err := s.store.Delete(ctx, auth.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("revoke authorization: %w", err)
	}

	s.logger.Info("verification revoked",
		slog.String("authorization_id", auth.ID),
		slog.String("organization_id", auth.OrganizationID),
	)

	// The revocation stands whether or not the notice is delivered.
	notifyCtx := context.WithoutCancel(ctx)
	notifier := s.notifier
	go func() {
		_ = notifier.Send(notifyCtx, notification.Message{
			Kind:        notification.KindVerificationRevoked,
			Destination: auth.UserID,
			Body:        "Your census verification could not be renewed and has been revoked.",
		})
	}()

	return OutcomeRevoked, nil
}
