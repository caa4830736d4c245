// Package rest reads raw records from the ledger HTTP API.
//
// Every listing is a GET returning a bare JSON array. Transient failures
// (transport errors, 5xx, 429) are retried with exponential backoff;
// anything else fails immediately.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
	"ledgerbook/internal/sources"
)

var _ sources.Source = (*Client)(nil)

var ErrStatus = errors.New("unexpected status")

// StatusError carries the HTTP status of a failed listing.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

type Client struct {
	base    *url.URL
	http    *http.Client
	retries uint64
	backoff time.Duration
	logger  *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. to share a transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentSource) }
}

// New creates a client for baseURL, e.g. "https://host/osori".
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("missing REST base url")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse REST base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("REST base url must be http or https, got %q", baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: 10 * time.Second},
		retries: 2,
		backoff: 200 * time.Millisecond,
		logger:  log.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) ListUserTransactions(ctx context.Context, userID string) ([]core.RawRecord, error) {
	return c.list(ctx, "trans", "user", userID)
}

func (c *Client) ListGroups(ctx context.Context, userID string) ([]core.RawRecord, error) {
	return c.list(ctx, "group", "user", userID)
}

func (c *Client) ListGroupTransactions(ctx context.Context, groupID string) ([]core.RawRecord, error) {
	return c.list(ctx, "trans", "group", groupID)
}

func (c *Client) list(ctx context.Context, segments ...string) ([]core.RawRecord, error) {
	endpoint := c.base.JoinPath(segments...).String()

	var out []core.RawRecord
	attempt := 0
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		recs, err := c.get(ctx, endpoint)
		if err != nil {
			if transient(err) {
				c.logger.DebugContext(ctx, "REST listing failed, retrying",
					log.NewFields().WithSource(endpoint).WithError(err).ToSlice()...)
				return retry.RetryableError(err)
			}
			return err
		}
		out = recs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s after %d attempt(s): %w", endpoint, attempt, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]core.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: endpoint, Code: resp.StatusCode}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var recs []core.RawRecord
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return recs, nil
}

// transient reports whether err is worth another attempt.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
