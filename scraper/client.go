package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	requestTimeout = 30 * time.Second
	// userAgent mimics a desktop browser; several of the freight sources
	// reject requests with the default Go user agent.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Client is a thin wrapper around http.Client shared by all scrapers: pooled
// transport, fixed user agent and a fixed 30-second timeout. It does not
// retry; the Runner owns the retry loop.
type Client struct {
	http      *http.Client
	streaming *http.Client // no overall deadline, for bulk downloads
}

func NewClient() *Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: requestTimeout,
	}
	return &Client{
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		streaming: &http.Client{
			Transport: transport,
		},
	}
}

// HTTPClient exposes the underlying pooled client for libraries that want to
// drive their own requests (gofeed, readability).
func (c *Client) HTTPClient() *http.Client { return c.http }

// Get performs a GET and returns the body. Network failure, timeout or a
// non-2xx status all surface as *TransportError.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, params, nil)
	if err != nil {
		return nil, err
	}
	return c.do(c.http, req)
}

// PostJSON performs a POST with a JSON-encoded payload and returns the body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding request payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, rawURL, nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(c.http, req)
}

// Stream performs a GET and hands the body back as a reader so that very
// large downloads can be consumed in bounded chunks. The 30-second timeout
// applies to the response headers only; the caller must Close the reader.
func (c *Client) Stream(ctx context.Context, rawURL string, params url.Values) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, params, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.streaming.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		_ = res.Body.Close()
		return nil, &TransportError{URL: rawURL, StatusCode: res.StatusCode, Err: ErrUnexpectedStatus}
	}
	return res.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, params url.Values, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	if params != nil {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	return req, nil
}

func (c *Client) do(hc *http.Client, req *http.Request) ([]byte, error) {
	res, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{URL: req.URL.String(), Err: err}
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &TransportError{URL: req.URL.String(), StatusCode: res.StatusCode, Err: ErrUnexpectedStatus}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{URL: req.URL.String(), Err: err}
	}
	return body, nil
}
