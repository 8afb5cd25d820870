package verification

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreFindOrCreateIsStable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.FindOrCreate(ctx, "org", "user")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if first.State != StatePending {
		t.Fatalf("new record state = %s", first.State)
	}
	second, err := store.FindOrCreate(ctx, "org", "user")
	if err != nil {
		t.Fatalf("find or create again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same record, got %s and %s", first.ID, second.ID)
	}
}

func TestMemoryStoreGrantEnforcesFingerprintUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	metadata := Metadata{Fingerprint: "shared-fingerprint"}

	a, _ := store.FindOrCreate(ctx, "org", "user-a")
	if err := store.Grant(ctx, a.ID, metadata); err != nil {
		t.Fatalf("grant a: %v", err)
	}

	b, _ := store.FindOrCreate(ctx, "org", "user-b")
	if err := store.Grant(ctx, b.ID, metadata); !errors.Is(err, ErrFingerprintTaken) {
		t.Fatalf("expected ErrFingerprintTaken, got %v", err)
	}

	// A different organization is a separate namespace.
	c, _ := store.FindOrCreate(ctx, "other-org", "user-c")
	if err := store.Grant(ctx, c.ID, metadata); err != nil {
		t.Fatalf("grant in other org: %v", err)
	}
}

func TestMemoryStoreFingerprintClaimedExcludesOwner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec, _ := store.FindOrCreate(ctx, "org", "user-a")
	if err := store.Grant(ctx, rec.ID, Metadata{Fingerprint: "fp"}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	claimed, err := store.FingerprintClaimed(ctx, "org", "fp", "user-a")
	if err != nil {
		t.Fatalf("claimed: %v", err)
	}
	if claimed {
		t.Fatalf("owner's own record must not count as a claim")
	}

	claimed, err = store.FingerprintClaimed(ctx, "org", "fp", "user-b")
	if err != nil {
		t.Fatalf("claimed: %v", err)
	}
	if !claimed {
		t.Fatalf("another user's claim must be visible")
	}
}

func TestMemoryStoreDeleteMissing(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
