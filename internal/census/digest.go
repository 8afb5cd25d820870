package census

import (
	"crypto/sha512"
	"encoding/hex"
)

// Digest computes verification fingerprints over canonical records. The
// secret salts every fingerprint; rotating it invalidates all previously
// stored fingerprints, so treat rotation as a breaking migration.
type Digest struct {
	secret string
}

// NewDigest builds a fingerprint engine around the shared secret.
func NewDigest(secret string) *Digest {
	return &Digest{secret: secret}
}

// Fingerprint returns the hex-encoded SHA-512 of the record's fields in
// fixed order (document number, then birthdate) followed by the secret.
// The field order is part of the contract. It returns the empty string
// when either canonical field is blank, so degenerate identities never
// collapse into a shared fingerprint; callers must check for it.
func (d *Digest) Fingerprint(rec Record) string {
	if !rec.Complete() {
		return ""
	}
	sum := sha512.Sum512([]byte(rec.DocumentNumber + rec.Birthdate + d.secret))
	return hex.EncodeToString(sum[:])
}
