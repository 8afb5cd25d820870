package census

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

var (
	// ErrConnectionFailed indicates the census endpoint could not be reached.
	ErrConnectionFailed = errors.New("census connection failed")

	// ErrConnectionTimeout indicates no response arrived within the
	// configured deadline.
	ErrConnectionTimeout = errors.New("census connection timeout")

	// ErrIncompleteRecord indicates the record lacks the fields required to
	// query the census; no network call is performed in that case.
	ErrIncompleteRecord = errors.New("incomplete census record")
)

// Credentials identifies this caller to the census service.
type Credentials struct {
	Client   string
	Org      string
	Entity   string
	User     string
	Password string
	// Key signs the per-request replay token; it is distinct from the
	// fingerprint secret.
	Key string
}

// Config carries the census endpoint settings, loaded once at process
// start and immutable afterwards.
type Config struct {
	URL         string
	Credentials Credentials
	Timeout     time.Duration
}

// QueryResult classifies one census exchange. Exists is only meaningful
// when Success is true. Birthdate holds the echoed birthdate in canonical
// DD/MM/YYYY form, or the empty string when the response carried none.
type QueryResult struct {
	Success   bool
	Exists    bool
	Birthdate string
}

// Client queries the municipal census over its SOAP endpoint. It is
// stateless and safe for concurrent use; response memoization is the
// calling handler's concern.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a census client with a per-call deadline taken from
// the configuration.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Lookup asks the census whether the person in rec is a registered
// resident. It issues exactly one POST with a freshly generated security
// envelope. Exists is set only when the presence marker is affirmative
// and the echoed birthdate matches rec's canonical birthdate exactly.
//
// Transport failures surface as ErrConnectionFailed or
// ErrConnectionTimeout; an incomplete record returns ErrIncompleteRecord
// without touching the network. A response with an unexpected payload
// shape classifies as a rejection rather than an error.
func (c *Client) Lookup(ctx context.Context, rec Record) (QueryResult, error) {
	if !rec.Complete() {
		return QueryResult{}, ErrIncompleteRecord
	}

	body := buildEnvelope(c.cfg.Credentials, newSecurityParams(c.cfg.Credentials.Key), rec.DocumentNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return QueryResult{}, ErrConnectionFailed
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("SOAPAction", operationResidentCheck)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("census request timed out", slog.String("url", c.cfg.URL))
			return QueryResult{}, ErrConnectionTimeout
		}
		c.logger.Warn("census request failed", slog.String("url", c.cfg.URL), slog.Any("error", err))
		return QueryResult{}, ErrConnectionFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Info("census rejected request", slog.Int("status", resp.StatusCode))
		return QueryResult{Success: false}, nil
	}

	reply, err := parseReply(resp.Body)
	if err != nil {
		// Unexpected payload shape degrades to a rejection, never a fault.
		c.logger.Warn("unparseable census response", slog.Any("error", err))
		return QueryResult{Success: true, Exists: false}, nil
	}

	result := QueryResult{
		Success:   true,
		Birthdate: reply.birthdate,
		Exists:    reply.resident && reply.birthdate != "" && reply.birthdate == rec.Birthdate,
	}
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
