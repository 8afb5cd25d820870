package census

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/censo-gate/censo_gate/internal/logging"
)

func soapReply(isHabitante int, fechaNacimiento string) string {
	inner := fmt.Sprintf("<e><isHabitante>%d</isHabitante>", isHabitante)
	if fechaNacimiento != "" {
		inner += fmt.Sprintf("<fechaNacimiento>%s</fechaNacimiento>", fechaNacimiento)
	}
	inner += "</e>"
	return fmt.Sprintf(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <servicioResponse><servicioReturn><![CDATA[%s]]></servicioReturn></servicioResponse>
  </soapenv:Body>
</soapenv:Envelope>`, inner)
}

func testClient(url string, timeout time.Duration) *Client {
	return NewClient(Config{
		URL:         url,
		Credentials: Credentials{Client: "cli", Org: "org", Entity: "ent", User: "usu", Password: "pwd", Key: "key"},
		Timeout:     timeout,
	}, logging.Discard())
}

var testRecord = Record{DocumentNumber: "00000000T", Birthdate: "18/01/1973"}

func TestLookupResident(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "text/xml" {
			t.Errorf("content type = %q", got)
		}
		if got := r.Header.Get("SOAPAction"); got != "ISHABITANTE" {
			t.Errorf("soap action = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		obfuscated := base64.StdEncoding.EncodeToString([]byte("00000000T"))
		if !strings.Contains(string(body), "<documento>"+obfuscated+"</documento>") {
			t.Errorf("request does not carry the obfuscated document: %s", body)
		}
		fmt.Fprint(w, soapReply(-1, "1973-01-18"))
	}))
	defer srv.Close()

	res, err := testClient(srv.URL, time.Second).Lookup(context.Background(), testRecord)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !res.Success || !res.Exists {
		t.Fatalf("expected resident, got %+v", res)
	}
	if res.Birthdate != "18/01/1973" {
		t.Fatalf("echoed birthdate = %q", res.Birthdate)
	}
}

func TestLookupBirthdateMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, soapReply(-1, "1970-01-01"))
	}))
	defer srv.Close()

	res, err := testClient(srv.URL, time.Second).Lookup(context.Background(), testRecord)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !res.Success || res.Exists {
		t.Fatalf("mismatched birthdate must not count as resident: %+v", res)
	}
}

func TestLookupNotResident(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, soapReply(0, ""))
	}))
	defer srv.Close()

	res, err := testClient(srv.URL, time.Second).Lookup(context.Background(), testRecord)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !res.Success || res.Exists {
		t.Fatalf("expected non-resident, got %+v", res)
	}
}

func TestLookupNon200IsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	res, err := testClient(srv.URL, time.Second).Lookup(context.Background(), testRecord)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if res.Success {
		t.Fatalf("HTTP 400 must classify as unsuccessful")
	}
}

func TestLookupMalformedPayloadDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "this is not xml")
	}))
	defer srv.Close()

	res, err := testClient(srv.URL, time.Second).Lookup(context.Background(), testRecord)
	if err != nil {
		t.Fatalf("parse faults must not propagate: %v", err)
	}
	if !res.Success || res.Exists {
		t.Fatalf("malformed payload must classify as rejection: %+v", res)
	}
}

func TestLookupConnectionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(url, time.Second).Lookup(context.Background(), testRecord)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
}

func TestLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, soapReply(-1, "1973-01-18"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).Lookup(context.Background(), testRecord)
	if !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("expected ErrConnectionTimeout, got %v", err)
	}
}

func TestLookupIncompleteRecordSkipsNetwork(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, soapReply(-1, "1973-01-18"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, time.Second).Lookup(context.Background(), Record{DocumentNumber: "00000000T"})
	if !errors.Is(err, ErrIncompleteRecord) {
		t.Fatalf("expected ErrIncompleteRecord, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("incomplete record must not reach the network, saw %d calls", calls)
	}
}

func TestLookupFreshSecurityEnvelopePerCall(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		fmt.Fprint(w, soapReply(-1, "1973-01-18"))
	}))
	defer srv.Close()

	client := testClient(srv.URL, time.Second)
	for i := 0; i < 2; i++ {
		if _, err := client.Lookup(context.Background(), testRecord); err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	first := extractElement(t, bodies[0], "nonce")
	second := extractElement(t, bodies[1], "nonce")
	if first == second {
		t.Fatalf("nonce reused across calls: %q", first)
	}
	if extractElement(t, bodies[0], "token") == extractElement(t, bodies[1], "token") {
		t.Fatalf("replay token reused across calls")
	}
}

func extractElement(t *testing.T, body, name string) string {
	t.Helper()
	openTag, closeTag := "<"+name+">", "</"+name+">"
	start := strings.Index(body, openTag)
	end := strings.Index(body, closeTag)
	if start < 0 || end < 0 {
		t.Fatalf("element %s missing from request body", name)
	}
	return body[start+len(openTag) : end]
}
