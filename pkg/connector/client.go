package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joeydtaylor/certipop/pkg/middleware/metrics"
	"go.uber.org/zap"
)

const (
	HeaderRequestorNRN      = "X-IMIO-REQUESTOR-NRN"
	HeaderMunicipalityToken = "X-IMIO-MUNICIPALITY-TOKEN"
	HeaderMunicipalityNIS   = "X-IMIO-MUNICIPALITY-NIS"

	DefaultLanguage = "fr"

	errPrefix = "NRN APIMS Error: "
)

// HTTPDoer is satisfied by *http.Client and allows easy mocking in tests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is the document proxy. It is safe for concurrent use: nothing on it
// changes after New.
type Client struct {
	cfg  Config
	http HTTPDoer
	log  *zap.Logger
}

type Option func(*Client)

// WithHTTPClient overrides the outbound client.
func WithHTTPClient(d HTTPDoer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New validates cfg and returns a Client bound to it.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("connector config: %w", err)
	}
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		log: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Config returns a copy of the bound configuration.
func (c *Client) Config() Config { return c.cfg }

// get performs one authenticated GET and returns the response with its body
// fully read. Transport failures come back as KindNetwork.
func (c *Client) get(ctx context.Context, op, rawURL string, hdrs map[string]string, query map[string]string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, c.fail(newAPIError(KindNetwork, op, errPrefix+err.Error(), 0, err), rawURL)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, nil, c.fail(newAPIError(KindNetwork, op, errPrefix+err.Error(), 0, err), rawURL)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, c.fail(newAPIError(KindNetwork, op, errPrefix+err.Error(), res.StatusCode, err), rawURL)
	}
	return res, body, nil
}

// statusError reports a 4xx/5xx upstream answer.
func statusError(op, rawURL string, res *http.Response) *APIError {
	kind := "Client"
	if res.StatusCode >= 500 {
		kind = "Server"
	}
	msg := fmt.Sprintf("%s%d %s Error: %s for url: %s",
		errPrefix, res.StatusCode, kind, http.StatusText(res.StatusCode), rawURL)
	return newAPIError(KindStatus, op, msg, res.StatusCode, nil)
}

func (c *Client) fail(e *APIError, rawURL string) *APIError {
	c.log.Warn(e.Message,
		zap.String("op", e.Op),
		zap.String("kind", string(e.Kind)),
		zap.String("url", rawURL),
		zap.Int("status", e.Status),
		zap.Error(e.Err),
	)
	return e
}

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	if k := KindOf(err); k != "" {
		outcome = string(k)
	}
	metrics.ObserveUpstream(op, outcome, time.Since(start))
}
