package verification

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/censo-gate/censo_gate/internal/census"
	"github.com/censo-gate/censo_gate/internal/logging"
)

const testSecret = "verification-secret"

// fixedNow keeps the age gate deterministic.
var fixedNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

var validSubmission = Submission{
	DocumentNumber: "00000000T",
	Birthdate:      time.Date(1973, 1, 18, 0, 0, 0, 0, time.UTC),
}

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

// censusStub serves a fixed census answer and counts requests.
func censusStub(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testDeps(url string, store Store) Deps {
	return Deps{
		Digest: census.NewDigest(testSecret),
		Client: census.NewClient(census.Config{URL: url, Timeout: time.Second}, logging.Discard()),
		Store:  store,
		Now:    func() time.Time { return fixedNow },
	}
}

func testService(url string, store Store, notifier *captureNotifier) *Service {
	deps := testDeps(url, store)
	if notifier == nil {
		notifier = newCaptureNotifier()
	}
	svc := NewService(store, deps.Client, deps.Digest, notifier, logging.Discard())
	return svc.WithClock(deps.Now)
}
