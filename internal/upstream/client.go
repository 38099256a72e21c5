package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kunal768/distributed-echo-system/internal/middleware"
)

// EchoResponse is the echo service's reply body. The type is declared here
// rather than shared with the echo handlers so the two services stay coupled
// over the wire only.
type EchoResponse struct {
	Echo string `json:"echo"`
}

// Client calls one echo service instance. It tracks cached health status,
// in-flight calls, and a response time moving average for the status
// endpoint; none of that state influences how calls are made.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration

	mutex            sync.Mutex
	isHealthy        bool
	inFlight         int
	ewmaResponseTime time.Duration
	hasEWMA          bool
}

const ewmaAlpha = 0.2

// Status is the point-in-time view of the upstream served by /status.
type Status struct {
	URL             string  `json:"url"`
	Healthy         bool    `json:"healthy"`
	InFlight        int     `json:"in_flight"`
	LatencyEWMAMs   float64 `json:"latency_ewma_ms"`
	LatencyRecorded bool    `json:"latency_recorded"`
}

// New creates a client for the echo service at baseURL. Every Echo call is
// bounded by timeout. The upstream starts out assumed healthy until a probe
// says otherwise.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base URL %q: %w", baseURL, err)
	}

	return &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		timeout:    timeout,
		isHealthy:  true,
	}, nil
}

// Echo performs the single outbound GET /echo call for one forwarded message.
// The deadline starts when the call starts; the message is query-encoded so
// it survives the round trip byte for byte. The returned error keeps the
// transport error chain intact for classification.
func (c *Client) Echo(ctx context.Context, msg string) (EchoResponse, error) {
	callURL := c.baseURL.ResolveReference(&url.URL{
		Path:     "/echo",
		RawQuery: url.Values{"msg": []string{msg}}.Encode(),
	})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, callURL.String(), nil)
	if err != nil {
		return EchoResponse{}, fmt.Errorf("build echo request: %w", err)
	}
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	c.beginCall()
	defer c.endCall()

	start := time.Now()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return EchoResponse{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		return EchoResponse{}, fmt.Errorf("unexpected status %d from %s", res.StatusCode, callURL)
	}

	var echoRes EchoResponse
	if err := json.NewDecoder(res.Body).Decode(&echoRes); err != nil {
		return EchoResponse{}, fmt.Errorf("decode echo response: %w", err)
	}
	io.Copy(io.Discard, res.Body)

	c.RecordResponse(time.Since(start))

	return echoRes, nil
}

// CheckHealth probes GET /health once. The caller bounds the probe through
// ctx. A nil return means the upstream answered 200.
func (c *Client) CheckHealth(ctx context.Context) error {
	healthURL := c.baseURL.ResolveReference(&url.URL{Path: "/health"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", res.StatusCode, healthURL)
	}

	return nil
}

// URL returns the upstream base URL.
func (c *Client) URL() *url.URL {
	return c.baseURL
}

// Timeout returns the per-call deadline Echo applies.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) beginCall() {
	c.mutex.Lock()
	c.inFlight++
	c.mutex.Unlock()
}

func (c *Client) endCall() {
	c.mutex.Lock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	c.mutex.Unlock()
}

// InFlight returns the number of echo calls currently in progress.
func (c *Client) InFlight() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.inFlight
}

// IsHealthy returns the cached health status from the last probe.
func (c *Client) IsHealthy() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isHealthy
}

// SetHealthy updates the cached health status.
// Returns true if the status changed, false if it was already in that state.
func (c *Client) SetHealthy(healthy bool) (changed bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isHealthy == healthy {
		return false
	}

	c.isHealthy = healthy
	return true
}

// RecordResponse updates the exponentially weighted moving average (EWMA)
// response time using the latest call duration.
func (c *Client) RecordResponse(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.hasEWMA {
		c.ewmaResponseTime = duration
		c.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	c.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(c.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no responses have been recorded yet.
func (c *Client) EWMATime() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.hasEWMA {
		return 0
	}

	return c.ewmaResponseTime
}

// Status captures the current upstream view for the status endpoint.
func (c *Client) Status() Status {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return Status{
		URL:             c.baseURL.String(),
		Healthy:         c.isHealthy,
		InFlight:        c.inFlight,
		LatencyEWMAMs:   float64(c.ewmaResponseTime) / float64(time.Millisecond),
		LatencyRecorded: c.hasEWMA,
	}
}
