package verification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL. Expected schema:
//
//	CREATE TABLE authorizations (
//	    id              uuid PRIMARY KEY,
//	    organization_id text NOT NULL,
//	    user_id         text NOT NULL,
//	    name            text NOT NULL,
//	    state           text NOT NULL,
//	    metadata        jsonb NOT NULL DEFAULT '{}',
//	    granted_at      timestamptz,
//	    created_at      timestamptz NOT NULL,
//	    UNIQUE (organization_id, user_id, name)
//	);
//	CREATE UNIQUE INDEX authorizations_fingerprint_key
//	    ON authorizations (organization_id, name, (metadata->>'fingerprint'))
//	    WHERE state = 'granted';
//
// The partial unique index is the storage-level backstop for the
// duplicate-identity rule: two concurrent confirmations of the same
// identity can both pass the application-level check, but only one can
// commit.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed authorization store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const authorizationColumns = `id, organization_id, user_id, name, state, metadata, granted_at, created_at`

func (s *PostgresStore) FindOrCreate(ctx context.Context, organizationID, userID string) (Authorization, error) {
	_, err := s.db.Exec(ctx, `INSERT INTO authorizations (id, organization_id, user_id, name, state, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, '{}', $6)
        ON CONFLICT (organization_id, user_id, name) DO NOTHING`,
		uuid.New(), organizationID, userID, MethodName, StatePending, time.Now().UTC())
	if err != nil {
		return Authorization{}, err
	}

	row := s.db.QueryRow(ctx, `SELECT `+authorizationColumns+` FROM authorizations
        WHERE organization_id = $1 AND user_id = $2 AND name = $3`,
		organizationID, userID, MethodName)
	return scanAuthorization(row)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Authorization, error) {
	recID, err := uuid.Parse(id)
	if err != nil {
		return Authorization{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+authorizationColumns+` FROM authorizations WHERE id = $1`, recID)
	rec, err := scanAuthorization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Authorization{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) FingerprintClaimed(ctx context.Context, organizationID, fingerprint, excludeUserID string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	var claimed bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (
        SELECT 1 FROM authorizations
        WHERE organization_id = $1 AND name = $2 AND state = $3
          AND user_id <> $4 AND metadata @> jsonb_build_object('fingerprint', $5::text)
    )`, organizationID, MethodName, StateGranted, excludeUserID, fingerprint).Scan(&claimed)
	return claimed, err
}

func (s *PostgresStore) ListGranted(ctx context.Context, organizationID string) ([]Authorization, error) {
	rows, err := s.db.Query(ctx, `SELECT `+authorizationColumns+` FROM authorizations
        WHERE organization_id = $1 AND name = $2 AND state = $3 ORDER BY created_at`,
		organizationID, MethodName, StateGranted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Authorization
	for rows.Next() {
		rec, err := scanAuthorization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Grant(ctx context.Context, id string, metadata Metadata) error {
	recID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, `UPDATE authorizations
        SET metadata = $1, state = $2, granted_at = $3 WHERE id = $4`,
		raw, StateGranted, time.Now().UTC(), recID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrFingerprintTaken
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	recID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := s.db.Exec(ctx, `DELETE FROM authorizations WHERE id = $1`, recID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAuthorization(row pgx.Row) (Authorization, error) {
	var (
		id        uuid.UUID
		raw       []byte
		grantedAt *time.Time
		createdAt time.Time
		rec       Authorization
	)
	if err := row.Scan(&id, &rec.OrganizationID, &rec.UserID, &rec.Name, &rec.State, &raw, &grantedAt, &createdAt); err != nil {
		return Authorization{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.Metadata); err != nil {
			return Authorization{}, err
		}
	}
	rec.ID = id.String()
	if grantedAt != nil {
		rec.GrantedAt = grantedAt.UTC()
	}
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}
