package census

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// reply holds the fields extracted from a census response payload.
type reply struct {
	resident  bool
	birthdate string
}

// parseReply unwraps the SOAP envelope and reads the embedded query
// result. The service nests its answer as text inside servicioReturn, so
// the outer document is scanned for that element and its content parsed
// as a second XML document.
func parseReply(r io.Reader) (reply, error) {
	payload, err := elementText(r, "servicioReturn")
	if err != nil {
		return reply{}, fmt.Errorf("unwrap envelope: %w", err)
	}

	marker, err := elementText(strings.NewReader(payload), "isHabitante")
	if err != nil {
		return reply{}, fmt.Errorf("read presence marker: %w", err)
	}
	value, err := strconv.Atoi(strings.TrimSpace(marker))
	if err != nil {
		return reply{}, fmt.Errorf("presence marker %q: %w", marker, err)
	}

	// The birthdate element is optional; its absence only means the
	// match must fail, not that the response is malformed.
	var birthdate string
	if echoed, err := elementText(strings.NewReader(payload), "fechaNacimiento"); err == nil {
		birthdate, _ = ParseWireDate(echoed)
	}

	// The service reports presence with a negative marker value.
	return reply{resident: value < 0, birthdate: birthdate}, nil
}

// elementText returns the character data of the first element with the
// given local name, ignoring namespaces and nesting depth.
func elementText(r io.Reader, name string) (string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("element %s not found", name)
		}
		if err != nil {
			return "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != name {
			continue
		}

		var text strings.Builder
		for {
			tok, err := dec.Token()
			if err != nil {
				return "", err
			}
			switch t := tok.(type) {
			case xml.CharData:
				text.Write(t)
			case xml.EndElement:
				if t.Name.Local == name {
					return text.String(), nil
				}
			}
		}
	}
}
