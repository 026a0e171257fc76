package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/h2non/filetype"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 300 * time.Second

	// FallbackImageVersion is the API version retried when the configured
	// one returns 404 on the images endpoint.
	FallbackImageVersion = "2025-04-01-preview"
)

// Timeouts per call.
var (
	textTimeout     = 30 * time.Second
	imageTimeout    = 60 * time.Second
	videoTimeout    = 120 * time.Second
	statusTimeout   = 60 * time.Second
	downloadTimeout = 300 * time.Second
)

var (
	ErrMissingConfig    = errors.New("missing configuration")
	ErrRequest          = errors.New("request error")
	ErrStatus           = errors.New("azure error")
	ErrEmptyResponse    = errors.New("empty response")
	ErrInvalidResponse  = errors.New("invalid response")
	ErrNoImageData      = errors.New("no image data returned")
	ErrMissingPayload   = errors.New("missing b64_json in response")
	ErrUnknownFormat    = errors.New("unknown video response format")
	ErrNoJobID          = errors.New("no job id in response")
	ErrJobStatus        = errors.New("job did not succeed")
	ErrNoGenerations    = errors.New("no generations returned")
	ErrNoGenerationID   = errors.New("no generation id in response")
	ErrDownload         = errors.New("failed to download video")
	ErrContentRetrieval = errors.New("video completed but could not retrieve content")
)

// Error is the failure returned by every capability. Kind is one of the
// package sentinel errors and can be checked with errors.Is.
type Error struct {
	Capability string
	Kind       error
	Status     int
	Detail     string
	Trace      *Trace
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("azure: %s: %v", e.Capability, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Attempt is one HTTP exchange made while serving a call.
type Attempt struct {
	Method      string `json:"method"`
	URL         string `json:"url"`
	APIVersion  string `json:"api_version,omitempty"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
}

// Trace is the debug record of a call.
type Trace struct {
	Route       Route     `json:"route,omitempty"`
	Model       string    `json:"model,omitempty"`
	Size        string    `json:"size,omitempty"`
	Seconds     string    `json:"seconds,omitempty"`
	APIVersion  string    `json:"api_version,omitempty"`
	Attempts    []Attempt `json:"attempts,omitempty"`
	BodyPreview string    `json:"body_preview,omitempty"`
	JobID       string    `json:"job_id,omitempty"`
	PollURL     string    `json:"poll_url,omitempty"`
	LastStatus  string    `json:"last_status,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
}

func (t *Trace) add(r *response) {
	if t == nil || r == nil {
		return
	}
	t.Attempts = append(t.Attempts, Attempt{
		Method:      r.method,
		URL:         r.url,
		Status:      r.status,
		ContentType: r.contentType,
	})
}

// Last returns the most recent attempt.
func (t *Trace) Last() Attempt {
	if t == nil || len(t.Attempts) == 0 {
		return Attempt{}
	}
	return t.Attempts[len(t.Attempts)-1]
}

func (t *Trace) String() string {
	js, _ := json.Marshal(t)
	return string(js)
}

type Config struct {
	Debug        bool
	Client       *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type Client struct {
	client       *http.Client
	debug        bool
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func New(cfg *Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Minute,
		}
	}
	interval := defaultPollInterval
	if cfg.PollInterval > 0 {
		interval = cfg.PollInterval
	}
	timeout := defaultPollTimeout
	if cfg.PollTimeout > 0 {
		timeout = cfg.PollTimeout
	}
	return &Client{
		client:       client,
		debug:        cfg.Debug,
		pollInterval: interval,
		pollTimeout:  timeout,
	}
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

type response struct {
	method      string
	url         string
	status      int
	contentType string
	body        []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// send performs a request with the api-key header. Non 2xx responses are
// returned without error so callers can branch on the status code.
func (c *Client) send(ctx context.Context, method, u, key string, in any, timeout time.Duration) (*response, error) {
	var body []byte
	var reqBody io.Reader
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("azure: couldn't marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}
	logBody := string(body)
	if len(logBody) > 100 {
		logBody = logBody[:100] + "..."
	}
	c.log("azure: do %s %s %s", method, u, logBody)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("azure: couldn't create request: %w", err)
	}
	if in != nil {
		req.Header.Set("content-type", "application/json")
	}
	if key != "" {
		req.Header.Set("api-key", key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure: couldn't %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azure: couldn't read response body: %w", err)
	}
	c.log("azure: response %s %s %d %s", method, u, resp.StatusCode, preview(respBody, 100))
	return &response{
		method:      method,
		url:         u,
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        respBody,
	}, nil
}

// wait blocks for d or until the context is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func preview(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// mimeType sniffs the payload and falls back to the declared content type.
func mimeType(b []byte, declared string) string {
	kind, err := filetype.Match(b)
	if err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return declared
}

// Extension returns the file extension for a payload, with the leading dot.
func Extension(b []byte, fallback string) string {
	kind, err := filetype.Match(b)
	if err == nil && kind != filetype.Unknown {
		return "." + kind.Extension
	}
	return fallback
}
