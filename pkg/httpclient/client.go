// Package httpclient wraps resty with the request shape both exchange
// backends share: pre-encoded query strings, raw JSON bodies and per-request
// headers. Queries are pre-encoded by the callers because request signatures
// must cover the exact bytes sent; letting resty re-encode parameters would
// invalidate them.
package httpclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/tradebot/goswap/pkg/ratelimit"
)

// Client is a thin resty wrapper bound to one API base URL.
type Client struct {
	client  *resty.Client
	limiter ratelimit.Limiter
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "goswap")
	return &Client{client: client}
}

// WithLimiter paces every request through the given limiter.
func (c *Client) WithLimiter(l ratelimit.Limiter) *Client {
	c.limiter = l
	return c
}

// RequestOptions carries the per-request pieces. PathWithQuery must already
// contain any encoded query string; Body, when set, is sent verbatim as JSON.
type RequestOptions struct {
	Headers map[string]string
	Body    []byte
}

// Do sends the request and returns the response. Transport failures are the
// only errors; HTTP-level failures are left to the caller, which knows the
// backend's error envelope.
func (c *Client) Do(ctx context.Context, method, pathWithQuery string, opt *RequestOptions) (*resty.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limit")
		}
	}
	req := c.client.R().SetContext(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			req.SetHeader(k, v)
		}
		if opt.Body != nil {
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(opt.Body)
		}
	}

	var (
		resp *resty.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = req.Get(pathWithQuery)
	case http.MethodPost:
		resp, err = req.Post(pathWithQuery)
	case http.MethodDelete:
		resp, err = req.Delete(pathWithQuery)
	default:
		return nil, errors.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, pathWithQuery)
	}
	return resp, nil
}
