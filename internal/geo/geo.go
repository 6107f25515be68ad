package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies the service to public OSM-based APIs, which reject anonymous clients.
	DefaultUserAgent = "shipping-cost/1.0"
	defaultTimeout   = 10 * time.Second
	maxErrorBody     = 1024
)

var (
	// ErrAddressNotFound is returned when the geocoding service has no match for an address.
	ErrAddressNotFound = errors.New("address not found")
	// ErrRouteNotFound is returned when the routing service has no route between two points.
	ErrRouteNotFound = errors.New("route not found")
	// ErrEmptyAddress is returned for blank addresses before any request is made.
	ErrEmptyAddress = errors.New("address must be non-empty")
)

// Coordinates is a point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

// Router returns the driving distance in meters between two points.
type Router interface {
	RouteDistance(ctx context.Context, from, to Coordinates) (float64, error)
}

// StatusError is returned when an upstream service answers with a non-2xx status.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.Code, e.Body)
}

// Option configures the HTTP clients in this package.
type Option func(*clientConfig)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.http = c
	}
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) Option {
	return func(cfg *clientConfig) {
		if ua = strings.TrimSpace(ua); ua != "" {
			cfg.userAgent = ua
		}
	}
}

// WithLogger enables debug timing logs for upstream calls.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *clientConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst. Callers block
// until a token is available or ctx is done. Non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(cfg *clientConfig) {
		if rps <= 0 {
			cfg.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		cfg.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type clientConfig struct {
	http      *http.Client
	userAgent string
	logger    *zap.Logger
	limiter   *rate.Limiter
}

func newClientConfig(opts []Option) clientConfig {
	cfg := clientConfig{
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c clientConfig) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c clientConfig) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return c.http.Do(req)
}

func readStatusError(service string, resp *http.Response) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Service: service,
		Code:    resp.StatusCode,
		Body:    strings.TrimSpace(string(b)),
	}
}
