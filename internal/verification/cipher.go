package verification

import "encoding/base64"

// Personal fields are stored base64-obfuscated, matching the form the
// census integration expects when it replays stored identifiers. This is
// obfuscation at rest, not encryption; the fingerprint carries the
// tamper-evidence.

func cipher(value string) string {
	if value == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(value))
}

func decipher(value string) string {
	if value == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		// A corrupt field yields an empty value; the fingerprint
		// consistency check then fails the attempt.
		return ""
	}
	return string(raw)
}
