package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-commandform/pkg/issues"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// maxErrorMessage caps the message kept from a non-JSON error body.
const maxErrorMessage = 512

// ErrorTypeValidation marks an error body as a server-side validation failure.
const ErrorTypeValidation = "validation"

// HTTPOption configures an HTTP command.
type HTTPOption func(*httpCommand)

type httpCommand struct {
	endpoint string
	method   string
	client   *http.Client
	headers  http.Header
	timeout  time.Duration
}

// WithClient injects the HTTP client used for requests.
func WithClient(client *http.Client) HTTPOption {
	return func(c *httpCommand) {
		if client != nil {
			c.client = client
		}
	}
}

// WithMethod overrides the request method (POST by default).
func WithMethod(method string) HTTPOption {
	return func(c *httpCommand) {
		if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
			c.method = method
		}
	}
}

// WithHeader adds a request header, for example an auth token.
func WithHeader(name, value string) HTTPOption {
	return func(c *httpCommand) {
		c.headers.Add(name, value)
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpCommand) {
		c.timeout = timeout
	}
}

// HTTP returns a Command that sends the input as JSON to endpoint and decodes
// a JSON response into R. Non-2xx responses become *issues.HTTPError, except
// 400/422 bodies typed "validation", which become *issues.ValidationError.
func HTTP[T, R any](endpoint string, opts ...HTTPOption) Command[T, R] {
	cmd := &httpCommand{
		endpoint: strings.TrimSpace(endpoint),
		method:   http.MethodPost,
		client:   http.DefaultClient,
		headers:  make(http.Header),
	}
	for _, opt := range opts {
		opt(cmd)
	}

	return func(ctx context.Context, input T) (R, error) {
		var out R
		raw, err := cmd.do(ctx, input)
		if err != nil {
			return out, err
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return out, nil
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("command: decode response: %w", err)
		}
		return out, nil
	}
}

func (c *httpCommand) do(ctx context.Context, input any) ([]byte, error) {
	if c.endpoint == "" {
		return nil, errors.New("command: endpoint is required")
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("command: encode input: %w", err)
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, c.method, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("command: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, values := range c.headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("command: %s %s: %w", c.method, c.endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, DecodeError(resp.StatusCode, body)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("command: read response: %w", err)
	}
	return raw, nil
}

// DecodeError converts an error response into the matching error type.
// Bodies that are not JSON keep their text as the message.
func DecodeError(status int, body []byte) error {
	var payload struct {
		Type    string         `json:"type"`
		Message string         `json:"message"`
		Issues  []issues.Issue `json:"issues"`
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			if payload.Type == ErrorTypeValidation && (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity) {
				return issues.NewValidationError(payload.Issues...)
			}
			return issues.NewHTTPError(status, payload.Message, payload.Issues...)
		}
	}

	return issues.NewHTTPError(status, truncate(strings.TrimSpace(string(trimmed)), maxErrorMessage))
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
