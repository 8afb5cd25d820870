package census

import (
	"strings"
	"time"
)

// DateLayout is the canonical wire form for birthdates exchanged with the
// census service. Every birthdate inside this module is normalized to it
// before digesting or comparing.
const DateLayout = "02/01/2006"

// Record holds a canonical document/birthdate pair. Both fields are in
// their normalized form: upper-cased document without surrounding
// whitespace, birthdate as DD/MM/YYYY.
type Record struct {
	DocumentNumber string
	Birthdate      string
}

// Complete reports whether both canonical fields are present.
func (r Record) Complete() bool {
	return r.DocumentNumber != "" && r.Birthdate != ""
}

// FormRecord canonicalizes user-submitted values. A zero birthdate yields
// an empty field so downstream guards can reject the record.
func FormRecord(documentNumber string, birthdate time.Time) Record {
	var date string
	if !birthdate.IsZero() {
		date = birthdate.Format(DateLayout)
	}
	return Record{
		DocumentNumber: CanonicalDocument(documentNumber),
		Birthdate:      date,
	}
}

// StoredRecord canonicalizes values reloaded from an authorization's
// metadata, where the birthdate was persisted in canonical form already.
func StoredRecord(documentNumber, birthdate string) Record {
	return Record{
		DocumentNumber: CanonicalDocument(documentNumber),
		Birthdate:      strings.TrimSpace(birthdate),
	}
}

// CensusRecord canonicalizes the values echoed back by the census service.
// The echoed birthdate arrives in whichever wire shape the remote chose,
// so it goes through the tolerant date parser; an unparseable value leaves
// the field empty.
func CensusRecord(documentNumber, echoedBirthdate string) Record {
	date, ok := ParseWireDate(echoedBirthdate)
	if !ok {
		date = ""
	}
	return Record{
		DocumentNumber: CanonicalDocument(documentNumber),
		Birthdate:      date,
	}
}

// CanonicalDocument upper-cases a document number and strips whitespace,
// including interior runs. Format validity is enforced upstream.
func CanonicalDocument(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), ""))
}

var wireDateLayouts = []string{
	DateLayout,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"20060102",
}

// ParseWireDate converts a date string in any of the shapes the census
// service has been observed to emit into the canonical DD/MM/YYYY form.
func ParseWireDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, layout := range wireDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}
