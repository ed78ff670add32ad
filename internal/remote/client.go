// Package remote is an HTTP client for the spreadsheet-backed job endpoint.
//
// The endpoint is a single script URL (for example a Google Apps Script web
// app) that accepts:
//
//	GET  {url}                    -> JSON array of jobs
//	POST {url}                    -> append a job
//	POST {url}?action=updateJob   -> overwrite the row for a job
//	POST {url}?action=deleteJob   -> delete the row for a job
//
// Writes answer with a small JSON payload, see Response.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/schema"
)

const defaultTimeout = 20 * time.Second

// Version is sent in the User-Agent header.
const Version = "1.0"

// Response is the payload returned by the script for writes.
type Response struct {
	Result  string `json:"result,omitempty"`
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Succeeded reports whether the script confirmed the write. Only "success"
// (any case) in the result field counts.
func (r *Response) Succeeded() bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(r.Result), "success")
}

// Refused reports whether the script answered with a payload that rejects
// the write, such as {"result":"error","message":"Job not found"}. An empty
// or unparseable body is not a refusal.
func (r *Response) Refused() bool {
	if r == nil || r.Succeeded() {
		return false
	}
	if r.Success != nil && !*r.Success {
		return true
	}
	return strings.TrimSpace(r.Result) != "" || r.Error != ""
}

// Describe returns the most useful human-readable text in the payload.
func (r *Response) Describe() string {
	if r == nil {
		return "empty response"
	}
	switch {
	case r.Message != "":
		return r.Message
	case r.Error != "":
		return r.Error
	case r.Result != "":
		return r.Result
	default:
		return "no message"
	}
}

// Config configures a Client.
type Config struct {
	// URL is the script endpoint, e.g. https://script.google.com/macros/s/<id>/exec
	URL string

	// Timeout bounds every request (default: 20s)
	Timeout time.Duration

	// HTTPClient overrides the client used for requests; Timeout is ignored when set
	HTTPClient *http.Client

	// Logger receives request traces when JOBTRACKER_DEBUG_HTTP=true
	Logger *log.Logger
}

// Client talks to the spreadsheet endpoint.
type Client struct {
	base   *url.URL
	client *http.Client
	logger *log.Logger
}

// New creates a Client for the configured endpoint.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote url is not configured")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote url %q: %w", cfg.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", cfg.URL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	return &Client{base: base, client: httpClient, logger: logger}, nil
}

// Upload appends a new job row.
func (c *Client) Upload(ctx context.Context, job *schema.Job) (*Response, error) {
	return c.post(ctx, "", job)
}

// Update overwrites the row for job.
func (c *Client) Update(ctx context.Context, job *schema.Job) (*Response, error) {
	return c.post(ctx, "updateJob", job)
}

// Delete removes the row for job. A nil error only means the HTTP call
// succeeded; check Response.Succeeded for the script's verdict.
func (c *Client) Delete(ctx context.Context, job *schema.Job) (*Response, error) {
	return c.post(ctx, "deleteJob", job)
}

// DownloadAll fetches every job row. Unknown status labels decode leniently.
func (c *Client) DownloadAll(ctx context.Context) ([]*schema.Job, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download jobs: %w", err)
	}

	jobs, err := schema.DecodeJobs(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to download jobs: %w", err)
	}

	// Drop placeholder rows the sheet may return for empty lines.
	out := jobs[:0]
	for _, job := range jobs {
		if job == nil || job.JobURL == "" {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, action string, job *schema.Job) (*Response, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job %d: %w", job.ID, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, action, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	// The script sometimes answers with HTML or nothing at all; treat that as
	// an empty payload rather than a failure.
	resp := &Response{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, resp); err != nil {
			resp = &Response{}
		}
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, action string, body io.Reader) (*http.Request, error) {
	u := *c.base
	if action != "" {
		q := u.Query()
		q.Set("action", action)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("jobtracker/v%s", Version))
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	return req, nil
}

// do performs the request and returns the body of a 2xx response. Anything
// else becomes an *HTTPError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	debug := os.Getenv("JOBTRACKER_DEBUG_HTTP") == "true"
	if debug {
		if dump, err := httputil.DumpRequestOut(req, true); err == nil {
			c.logger.Printf("request:\n%s", dump)
		}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if debug {
		if dump, err := httputil.DumpResponse(res, false); err == nil {
			c.logger.Printf("response:\n%s", dump)
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Body:       truncate(string(body), 512),
		}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
