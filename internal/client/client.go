// Package client talks to the attendance API. Every call is attempted once;
// a failure is returned as an *Error classified for the operator.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/selection"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is an API client bound to one server.
type Client struct {
	baseURL        *url.URL
	apiKey         string
	summaryTimeout time.Duration
	uploadID       string

	http *http.Client
	log  *slog.Logger
}

// New builds a client from the client section of the configuration.
func New(cfg config.ClientConfig, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if log == nil {
		log = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed plant servers
	}

	summaryTimeout := cfg.SummaryTimeout
	if summaryTimeout <= 0 {
		summaryTimeout = 30 * time.Second
	}

	return &Client{
		baseURL:        base,
		apiKey:         cfg.APIKey,
		summaryTimeout: summaryTimeout,
		uploadID:       uuid.NewString(),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		log: log,
	}, nil
}

// UploadID is sent with every batch so the server can group the batches of
// one submission in its logs.
func (c *Client) UploadID() string {
	return c.uploadID
}

// NewUpload starts a new submission id.
func (c *Client) NewUpload() string {
	c.uploadID = uuid.NewString()
	return c.uploadID
}

// SaveBatch posts one batch of rows.
func (c *Client) SaveBatch(ctx context.Context, kind string, rows []core.RowRecord) (*core.BatchResult, error) {
	path := "/api/upload/" + url.PathEscape(kind)
	if kind == core.KindUserShifts {
		path = "/api/saveUserShifts"
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Op: path, Err: err}
	}

	var res core.BatchResult
	if err := c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(body), &res); err != nil {
		return nil, err
	}
	if res.InvalidRows == nil {
		res.InvalidRows = []core.InvalidRow{}
	}
	return &res, nil
}

// Shifts lists the shift filter options.
func (c *Client) Shifts(ctx context.Context) ([]core.ShiftOption, error) {
	var out []core.ShiftOption
	if err := c.do(ctx, http.MethodGet, "/api/shifts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Lines lists the line filter options.
func (c *Client) Lines(ctx context.Context) ([]core.LineOption, error) {
	var out []core.LineOption
	if err := c.do(ctx, http.MethodGet, "/api/lines", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterOptions fetches shifts and lines together. Either failure fails the
// whole call.
func (c *Client) FilterOptions(ctx context.Context) ([]core.ShiftOption, []core.LineOption, error) {
	var (
		shifts []core.ShiftOption
		lines  []core.LineOption
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		shifts, err = c.Shifts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		lines, err = c.Lines(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return shifts, lines, nil
}

// Summary fetches the attendance summary for a validated filter. The
// request is capped at the summary timeout.
func (c *Client) Summary(ctx context.Context, f selection.SummaryFilter) ([]core.SummaryRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.summaryTimeout)
	defer cancel()

	var out []core.SummaryRecord
	if err := c.do(ctx, http.MethodGet, "/api/attendance/overall-summary", f.Params(), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.SummaryRecord{}
	}
	return out, nil
}

// DownloadTemplate copies the upload template for kind to w and returns the
// file name the server suggested.
func (c *Client) DownloadTemplate(ctx context.Context, kind string, w io.Writer) (string, error) {
	path := "/api/template/" + url.PathEscape(kind)
	if kind == core.KindUserShifts {
		path = "/download-template"
	}

	resp, err := c.send(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", transportError(path, err)
	}
	return attachmentName(resp.Header.Get("Content-Disposition")), nil
}

// do sends a request and decodes a JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var netErr net.Error
		if ctx.Err() != nil || errors.As(err, &netErr) {
			return transportError(path, err)
		}
		return &Error{Kind: KindUnexpected, Op: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// send performs the request and turns non-2xx answers into KindServer
// errors. The caller closes the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Op: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(core.HeaderAPIKey, c.apiKey)
	}
	req.Header.Set(core.HeaderUploadID, c.uploadID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "error", err)
		return nil, transportError(path, err)
	}

	c.log.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, serverError(path, resp)
	}
	return resp, nil
}

// serverError reads the server's {"error","code"} body, falling back to the
// status text when the body is not JSON.
func serverError(path string, resp *http.Response) *Error {
	e := &Error{
		Kind:   KindServer,
		Op:     path,
		Status: resp.StatusCode,
		Server: http.StatusText(resp.StatusCode),
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(bytes.TrimSpace(data), &body) == nil {
		if body.Error != "" {
			e.Server = body.Error
		}
		e.Code = body.Code
	}
	return e
}

func attachmentName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
