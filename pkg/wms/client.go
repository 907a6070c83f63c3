package wms

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"time"

	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
)

const maxBodyBytes = 64 << 20

// Result is the outcome of a GetMap request. StatusCode is set whenever the
// server answered, including on error.
type Result struct {
	StatusCode int
	Image      image.Image
	Format     string
	Bytes      int
}

// Client fetches and decodes WMS GetMap responses.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient builds a client with the given request timeout.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// NewClientWithHTTP wraps an existing http.Client.
func NewClientWithHTTP(hc *http.Client, userAgent string) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{http: hc, userAgent: userAgent}
}

// Fetch performs a GET and decodes the body as an image. Any status other
// than 200 yields ErrUnexpectedStatus without reading the body.
func (c *Client) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build wms request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wms request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	result := &Result{StatusCode: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return result, appErrors.Clone(appErrors.ErrUnexpectedStatus, fmt.Sprintf("unexpected status code %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return result, fmt.Errorf("read wms response: %w", err)
	}
	result.Bytes = len(body)

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrDecode.Code, appErrors.ErrDecode.Status, appErrors.ErrDecode.Message)
	}
	result.Image = img
	result.Format = format
	return result, nil
}

// EncodePNG writes img as PNG, the on-disk format of every tile.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
