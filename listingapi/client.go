package listingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// APIError carries the raw response body of a rejected request so the submit
// error classifier can inspect it.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("listing api error %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	// get retries transient failures; patch never does. A rejected patch must
	// surface to the user, not be replayed by the transport.
	get   *retryablehttp.Client
	patch *retryablehttp.Client
}

func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 6 * time.Second
	rc.Logger = nil

	pc := retryablehttp.NewClient()
	pc.RetryMax = 0
	// the default retry policy classifies 5xx as retryable and swallows the
	// response once attempts run out; the classifier needs that body
	pc.CheckRetry = neverRetry
	pc.HTTPClient.Timeout = 15 * time.Second
	pc.Logger = nil

	return &Client{
		baseURL: baseURL,
		get:     rc,
		patch:   pc,
	}
}

// GetListing fetches the current server record for a listing.
func (c *Client) GetListing(ctx context.Context, id int64) (Record, error) {
	var rec Record
	u := fmt.Sprintf("%s/listings/%d", c.baseURL, id)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return rec, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.get.Do(req)
	if err != nil {
		return rec, err
	}
	defer resp.Body.Close()
	body, err := ioReadAllLimit(resp.Body, 4<<20) // 4MB guard
	if err != nil {
		return rec, err
	}
	if resp.StatusCode >= 400 {
		return rec, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("decode listing %d: %w", id, err)
	}
	return rec, nil
}

// UpdateListing submits a patch and returns the updated record. A 4xx/5xx
// response comes back as *APIError with the raw body preserved.
func (c *Client) UpdateListing(ctx context.Context, id int64, p Patch) (Record, error) {
	var rec Record
	payload, err := json.Marshal(p)
	if err != nil {
		return rec, err
	}
	u := fmt.Sprintf("%s/listings/%d", c.baseURL, id)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		return rec, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")

	resp, err := c.patch.Do(req)
	if err != nil {
		return rec, err
	}
	defer resp.Body.Close()
	body, err := ioReadAllLimit(resp.Body, 4<<20)
	if err != nil {
		return rec, err
	}
	if resp.StatusCode >= 400 {
		return rec, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("decode updated listing %d: %w", id, err)
	}
	return rec, nil
}

func neverRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	return false, err
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
