package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

const (
	fetchAttempts = 2
	fetchBackoff  = 500 * time.Millisecond
	fetchTimeout  = 30 * time.Second

	// Guards against loading arbitrarily large responses into memory.
	maxImageBytes = 32 << 20
)

// Fetcher loads the raw bytes behind an image locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// HTTPFetcher downloads http(s) locators with bounded retries and reads
// anything else from the local filesystem.
type HTTPFetcher struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
	maxBytes int64
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: fetchTimeout},
		attempts: fetchAttempts,
		backoff:  fetchBackoff,
		maxBytes: maxImageBytes,
	}
}

// errTooLarge is not retried; the same response would come back.
var errTooLarge = errors.New("image exceeds size limit")

func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if !isRemote(locator) {
		data, err := os.ReadFile(locator)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errResourceUnavailable, err)
		}
		if int64(len(data)) > f.limit() {
			return nil, fmt.Errorf("%w: %v", errResourceUnavailable, errTooLarge)
		}
		return data, nil
	}

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		data, err := f.get(ctx, locator)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if errors.Is(err, errTooLarge) {
			return nil, fmt.Errorf("%w: %v", errResourceUnavailable, err)
		}

		log.Debug().Err(err).Int("attempt", attempt).Str("url", truncate(locator, 80)).Msg("image download failed")

		if attempt < f.attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.backoff):
			}
		}
	}
	return nil, fmt.Errorf("%w: download failed after %d attempts: %v", errResourceUnavailable, f.attempts, lastErr)
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "trendcast/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	// One byte past the limit tells a full payload from a cut-off one.
	limit := f.limit()
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, limit)
	}
	return data, nil
}

func (f *HTTPFetcher) limit() int64 {
	if f.maxBytes <= 0 {
		return maxImageBytes
	}
	return f.maxBytes
}

// checkImage rejects payloads that are not a decodable image, such as HTML
// error pages served with a 200.
func checkImage(data []byte) (FrameSize, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return FrameSize{}, "", fmt.Errorf("%w: not an image: %v", errResourceUnavailable, err)
	}
	return FrameSize{Width: cfg.Width, Height: cfg.Height}, format, nil
}

func isRemote(locator string) bool {
	l := strings.ToLower(locator)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
