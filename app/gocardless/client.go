package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-gocardless/app/factory"
)

const (
	LiveURL    = "https://api.gocardless.com"
	SandboxURL = "https://api-sandbox.gocardless.com"

	DefaultAPIVersion = "2015-07-06"

	headerIdempotencyKey = "Idempotency-Key"
	headerAPIVersion     = "GoCardless-Version"
	userAgent            = "ms-go-gocardless/1.0"
)

type Environment string

const (
	EnvironmentLive    Environment = "live"
	EnvironmentSandbox Environment = "sandbox"
)

// EnvironmentFromDevMode maps the "true"/"false" dev_mode setting to an environment.
func EnvironmentFromDevMode(devMode string) Environment {
	if strings.EqualFold(strings.TrimSpace(devMode), "true") {
		return EnvironmentSandbox
	}
	return EnvironmentLive
}

type Config struct {
	AccessToken string
	Environment Environment
	// BaseURL overrides the environment URL.
	BaseURL     string
	APIVersion  string
	HTTPTimeout time.Duration
	// Observer, when set, is called once per HTTP round trip.
	Observer RequestObserver
}

// RequestObserver receives the resource collection, method, status and latency
// of each provider call. Status is 0 when the request never got a response.
type RequestObserver func(resource, method string, status int, elapsed time.Duration)

type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger

	RedirectFlows *RedirectFlowService
	Mandates      *Service[Mandate]
	Payments      *Service[Payment]
	Subscriptions *Service[Subscription]
	Refunds       *Service[Refund]
	Events        *Service[Event]
}

func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = DefaultAPIVersion
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		if cfg.Environment == EnvironmentSandbox {
			baseURL = SandboxURL
		} else {
			baseURL = LiveURL
		}
	}

	c := &Client{
		cfg:     cfg,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  factory.NewModuleLogger("gocardless-client"),
	}
	c.RedirectFlows = &RedirectFlowService{Service: newService[RedirectFlow](c, "redirect_flows")}
	c.Mandates = newService[Mandate](c, "mandates")
	c.Payments = newService[Payment](c, "payments")
	c.Subscriptions = newService[Subscription](c, "subscriptions")
	c.Refunds = newService[Refund](c, "refunds")
	c.Events = newService[Event](c, "events")

	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method         string
	path           string
	query          url.Values
	body           any
	idempotencyKey string
}

type rawResponse struct {
	statusCode int
	body       []byte
}

func (c *Client) do(ctx context.Context, r request) (*rawResponse, error) {
	if strings.TrimSpace(c.cfg.AccessToken) == "" {
		return nil, errors.New("gocardless access token is not configured")
	}

	var body io.Reader
	if r.body != nil {
		encoded, err := json.Marshal(r.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set(headerAPIVersion, c.cfg.APIVersion)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.method == http.MethodPost {
		key := strings.TrimSpace(r.idempotencyKey)
		if key == "" {
			key = uuid.NewString()
		}
		req.Header.Set(headerIdempotencyKey, key)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(r, 0, time.Since(start))
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.method,
			"path":   r.path,
		}).Warn("gocardless_request_failed")
		return nil, &TransportError{Method: r.method, Path: r.path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: r.method, Path: r.path, Err: err}
	}

	c.observe(r, resp.StatusCode, time.Since(start))
	c.logger.WithFields(logrus.Fields{
		"method":  r.method,
		"path":    r.path,
		"status":  resp.StatusCode,
		"success": resp.StatusCode >= 200 && resp.StatusCode < 300,
		"latency": time.Since(start).String(),
	}).Debug("gocardless_request")

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, raw)
	}

	return &rawResponse{statusCode: resp.StatusCode, body: raw}, nil
}

func (c *Client) observe(r request, status int, elapsed time.Duration) {
	if c.cfg.Observer == nil {
		return
	}
	resource, _, _ := strings.Cut(strings.TrimPrefix(r.path, "/"), "/")
	c.cfg.Observer(resource, r.method, status, elapsed)
}
