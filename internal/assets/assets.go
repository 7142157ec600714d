// Package assets fetches and decodes page illustrations.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/internal/logging"
)

// DefaultTimeout bounds one illustration download.
const DefaultTimeout = 15 * time.Second

// MaxBytes is the largest illustration that will be read.
const MaxBytes = 16 << 20

// cacheSize is how many decoded illustrations are kept.
const cacheSize = 16

// Client loads illustrations over http(s) or from local files.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]image.Image
	order []string
}

// NewClient creates a new asset client
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logging.OrNop(logger),
		cache:  make(map[string]image.Image),
	}
}

// Fetch returns the raw bytes behind ref. Supported references are
// http(s) URLs, file URLs and plain paths.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CodeValidation, "invalid asset reference %q", ref)
	}

	switch u.Scheme {
	case "http", "https":
		return c.get(ctx, ref)
	case "file":
		return readFile(u.Path)
	case "":
		return readFile(ref)
	default:
		return nil, apperr.Validationf("unsupported asset scheme %q", u.Scheme)
	}
}

// Image fetches and decodes ref. Decoded images are cached.
func (c *Client) Image(ctx context.Context, ref string) (image.Image, error) {
	if img, ok := c.cached(ref); ok {
		return img, nil
	}

	data, err := c.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, format, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	c.logger.Debug("assets: decoded", "ref", ref, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	c.store(ref, img)
	return img, nil
}

// get performs a GET and reads the body
func (c *Client) get(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.NotFoundf("asset %s not found", ref)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, ref)
	case len(body) > MaxBytes:
		return nil, apperr.Validationf("asset %s is larger than %d bytes", ref, MaxBytes)
	}
	return body, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apperr.NotFoundf("asset %s not found", path)
	}
	if err != nil {
		return nil, err
	}
	if len(data) > MaxBytes {
		return nil, apperr.Validationf("asset %s is larger than %d bytes", path, MaxBytes)
	}
	return data, nil
}

func (c *Client) cached(ref string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.cache[ref]
	return img, ok
}

func (c *Client) store(ref string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cache[ref]; ok {
		return
	}
	if len(c.order) >= cacheSize {
		delete(c.cache, c.order[0])
		c.order = c.order[1:]
	}
	c.cache[ref] = img
	c.order = append(c.order, ref)
}

// Decode decodes png, jpeg, gif or webp data.
func Decode(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}

// Fit scales img down to fit within maxWidth x maxHeight pixels, keeping
// its aspect ratio. Images that already fit are returned unchanged.
func Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	srcWidth, srcHeight := bounds.Dx(), bounds.Dy()
	if maxWidth <= 0 || maxHeight <= 0 || srcWidth == 0 || srcHeight == 0 {
		return img
	}
	if srcWidth <= maxWidth && srcHeight <= maxHeight {
		return img
	}

	dstWidth, dstHeight := maxWidth, srcHeight*maxWidth/srcWidth
	if dstHeight > maxHeight {
		dstWidth, dstHeight = srcWidth*maxHeight/srcHeight, maxHeight
	}
	dstWidth = max(dstWidth, 1)
	dstHeight = max(dstHeight, 1)

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}
