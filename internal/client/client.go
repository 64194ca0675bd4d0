// Package client is the UI side of the task API: a single call helper that
// decodes the response envelope, tracks in-flight calls and reports the
// outcome through a Notifier.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hiroki-koketsu/go-task-manager/internal/model"
)

// GenericErrorMessage is shown when a failed call carries no message.
const GenericErrorMessage = "Something went wrong!"

// Notifier receives user-facing notices.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Request describes one API call. URL is resolved against the client's base
// URL unless it is absolute. A non-nil Body is sent as JSON.
type Request struct {
	URL     string
	Method  string
	Body    any
	Headers map[string]string
}

// Options tunes the notices emitted for a call.
type Options struct {
	ShowSuccessToast bool
}

// Quiet suppresses the success notice. Errors are always reported.
var Quiet = Options{ShowSuccessToast: false}

// Response is the decoded API envelope.
type Response struct {
	Task   *model.Task   `json:"task,omitempty"`
	Tasks  []*model.Task `json:"tasks,omitempty"`
	Status bool          `json:"status"`
	Msg    string        `json:"msg"`
}

// Error is a call the API answered with a failure.
type Error struct {
	StatusCode int
	Msg        string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Msg)
}

// NewHTTPClient returns an http.Client whose transport propagates trace
// context to the API.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// Client calls the task API. It is cheap to create; the web UI makes one per
// page request so notices and the loading flag stay with that request.
type Client struct {
	http     *http.Client
	baseURL  string
	notifier Notifier
	inFlight atomic.Int32
}

// New creates a Client.
func New(httpClient *http.Client, baseURL string, notifier Notifier) *Client {
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		notifier: notifier,
	}
}

// Loading reports whether a call is in flight.
func (c *Client) Loading() bool {
	return c.inFlight.Load() > 0
}

// Do performs req and returns the decoded envelope. Without opts the
// success notice is shown. Any failure is reported to the Notifier with the
// server message, or GenericErrorMessage, and returned.
func (c *Client) Do(ctx context.Context, req Request, opts ...Options) (*Response, error) {
	opt := Options{ShowSuccessToast: true}
	if len(opts) > 0 {
		opt = opts[0]
	}

	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	resp, err := c.send(ctx, req)
	if err != nil {
		msg := GenericErrorMessage
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Msg != "" {
			msg = apiErr.Msg
		}
		c.notifier.Error(msg)
		return nil, err
	}

	if opt.ShowSuccessToast && resp.Msg != "" {
		c.notifier.Success(resp.Msg)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.resolve(req.URL), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL, err)
	}
	defer httpResp.Body.Close()

	var env Response
	decodeErr := json.NewDecoder(httpResp.Body).Decode(&env)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &Error{StatusCode: httpResp.StatusCode, Msg: env.Msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if !env.Status {
		return nil, &Error{StatusCode: httpResp.StatusCode, Msg: env.Msg}
	}
	return &env, nil
}

func (c *Client) resolve(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return c.baseURL + url
}
