package storage

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
	"golang.org/x/time/rate"
)

// NewPhoto is a photo awaiting upload. The binary store never sees the label;
// this client carries it through to the positional result.
type NewPhoto struct {
	Data  []byte
	Label string
}

// UploadedPhoto is one accepted photo, in the same order as submitted.
type UploadedPhoto struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Client talks to the hosted binary photo store. One batched request per
// upload; a failure aborts the whole batch, there are no partial results.
type Client struct {
	uploadURL string
	key       string
	http      *retryablehttp.Client
	limiter   *rate.Limiter // protect upload quota
}

func NewClient(uploadURL, apiKey string) *Client {
	rc := retryablehttp.NewClient()
	// uploads are not idempotent; never replay them. The retry policy is
	// overridden too, or a 5xx would come back as a bare transport error with
	// the store's body discarded.
	rc.RetryMax = 0
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		return false, err
	}
	rc.HTTPClient.Timeout = 60 * time.Second
	rc.Logger = nil

	return &Client{
		uploadURL: uploadURL,
		key:       apiKey,
		http:      rc,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 4),
	}
}

type uploadRequest struct {
	Photos []uploadItem `json:"photos"`
}

type uploadItem struct {
	Base64 []byte `json:"base64"`
}

type uploadResponse struct {
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
	Error string `json:"error"`
}

// Upload sends the batch and pairs each returned URL with the label of the
// photo at the same position. The store replies with one URL per accepted
// item, in submission order; a count mismatch means the batch cannot be
// trusted and is treated as a failure.
func (c *Client) Upload(ctx context.Context, photos []NewPhoto) ([]UploadedPhoto, error) {
	if len(photos) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := uploadRequest{Photos: make([]uploadItem, 0, len(photos))}
	for i, p := range photos {
		if len(p.Data) == 0 {
			return nil, fmt.Errorf("photo %d has no binary content", i)
		}
		body.Photos = append(body.Photos, uploadItem{Base64: p.Data})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	if c.key != "" {
		req.Header.Set("apikey", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := ioReadAllLimit(resp.Body, 1<<20)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("photo store error %d: %s", resp.StatusCode, raw)
	}

	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("photo store rejected batch: %s", out.Error)
	}
	if len(out.Photos) != len(photos) {
		return nil, fmt.Errorf("photo store returned %d results for %d photos", len(out.Photos), len(photos))
	}

	uploaded := make([]UploadedPhoto, 0, len(photos))
	for i, item := range out.Photos {
		if item.URL == "" {
			return nil, fmt.Errorf("photo store returned empty url at position %d", i)
		}
		uploaded = append(uploaded, UploadedPhoto{URL: item.URL, Label: photos[i].Label})
	}
	return uploaded, nil
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
