package census

import (
	"testing"
	"time"
)

func TestFormRecordCanonicalizes(t *testing.T) {
	rec := FormRecord(" x1234567r ", time.Date(1973, 1, 18, 0, 0, 0, 0, time.UTC))
	if rec.DocumentNumber != "X1234567R" {
		t.Fatalf("document not canonical: %q", rec.DocumentNumber)
	}
	if rec.Birthdate != "18/01/1973" {
		t.Fatalf("birthdate not canonical: %q", rec.Birthdate)
	}
	if !rec.Complete() {
		t.Fatalf("expected complete record")
	}
}

func TestFormRecordZeroBirthdate(t *testing.T) {
	rec := FormRecord("00000000T", time.Time{})
	if rec.Birthdate != "" {
		t.Fatalf("expected empty birthdate, got %q", rec.Birthdate)
	}
	if rec.Complete() {
		t.Fatalf("record with no birthdate must not be complete")
	}
}

func TestCanonicalDocumentStripsInteriorWhitespace(t *testing.T) {
	if got := CanonicalDocument("x 1234567\tr"); got != "X1234567R" {
		t.Fatalf("got %q", got)
	}
}

func TestParseWireDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1973-01-18", "18/01/1973", true},
		{"18/01/1973", "18/01/1973", true},
		{"1973-01-18T00:00:00", "18/01/1973", true},
		{"19730118", "18/01/1973", true},
		{"", "", false},
		{"not-a-date", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseWireDate(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseWireDate(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCensusRecordUnparseableDate(t *testing.T) {
	rec := CensusRecord("00000000T", "garbage")
	if rec.Birthdate != "" {
		t.Fatalf("expected empty birthdate, got %q", rec.Birthdate)
	}
}
