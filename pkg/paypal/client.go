package paypal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/catalyst/moodle-availability-paypal/pkg/config"
	pkgerrors "github.com/catalyst/moodle-availability-paypal/pkg/errors"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	verifyPath        = "/cgi-bin/webscr"
	verifyCommand     = "cmd=_notify-validate"
	defaultTimeout    = 30 * time.Second
	responseReadLimit = 1024
	responseVerified  = "VERIFIED"
	responseInvalid   = "INVALID"
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://ipnpb.sandbox.paypal.com",
	productionEnv: "https://ipnpb.paypal.com",
}

var errLoggerRequired = errors.New("paypal logger is required")

// Result is the gateway's verdict on a relayed notification.
type Result string

const (
	// ResultVerified means the gateway confirmed it sent the notification.
	ResultVerified Result = "VERIFIED"
	// ResultInvalid means the gateway disowned the notification.
	ResultInvalid Result = "INVALID"
	// ResultIgnored covers any other response body. The gateway contract
	// treats this as a terminal no-op: nothing is persisted or notified.
	ResultIgnored Result = "IGNORED"
)

// Field is one form field exactly as received, in received order.
type Field struct {
	Name  string
	Value string
}

// Client re-validates IPN payloads against the PayPal verification endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	environment string
	logger      *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the verification base URL. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the verifier for the configured gateway environment.
func NewClient(ctx context.Context, cfg config.PayPalConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	env := cfg.Environment()
	timeout := cfg.VerifyTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURLs[env],
		environment: env,
		logger:      logg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	logg.Info(ctx, fmt.Sprintf("paypal verifier initialized (%s)", env))
	return c, nil
}

// Environment reports the normalized gateway environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Verify posts the received field set back to the gateway and interprets the
// plaintext verdict. Transport failures and non-2xx statuses are hard errors.
func (c *Client) Verify(ctx context.Context, fields []Field) (Result, error) {
	body := encodeVerification(fields)

	target := c.baseURL + verifyPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return ResultIgnored, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build verification request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// The gateway rejects requests without an explicit Host header.
	if parsed, parseErr := url.Parse(c.baseURL); parseErr == nil {
		req.Host = parsed.Host
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ResultIgnored, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "post verification request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ResultIgnored, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway verification returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return ResultIgnored, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read verification response")
	}

	switch string(raw) {
	case responseVerified:
		return ResultVerified, nil
	case responseInvalid:
		return ResultInvalid, nil
	}
	return ResultIgnored, nil
}

func encodeVerification(fields []Field) string {
	var b strings.Builder
	b.WriteString(verifyCommand)
	for _, f := range fields {
		b.WriteByte('&')
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}
