package video

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: 5 * time.Second},
		attempts: fetchAttempts,
		backoff:  time.Millisecond,
	}
}

func TestHTTPFetcherRetriesOnce(t *testing.T) {
	png := testPNG(t)
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(png)
	}))
	defer server.Close()

	data, err := newTestFetcher().Fetch(context.Background(), server.URL+"/img.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(data) != len(png) {
		t.Errorf("got %d bytes, want %d", len(data), len(png))
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}

func TestHTTPFetcherGivesUpAfterTwoAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL+"/missing.png")
	if !errors.Is(err, errResourceUnavailable) {
		t.Errorf("expected errResourceUnavailable, got %v", err)
	}
	if calls != fetchAttempts {
		t.Errorf("server saw %d calls, want %d", calls, fetchAttempts)
	}
}

func TestHTTPFetcherRejectsOversizedImage(t *testing.T) {
	png := testPNG(t)
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(png)
	}))
	defer server.Close()

	f := newTestFetcher()
	f.maxBytes = int64(len(png) - 1)
	if _, err := f.Fetch(context.Background(), server.URL+"/big.png"); !errors.Is(err, errResourceUnavailable) {
		t.Errorf("expected oversized image to be rejected, got %v", err)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (oversized responses are not retried)", calls)
	}

	f.maxBytes = int64(len(png))
	data, err := f.Fetch(context.Background(), server.URL+"/exact.png")
	if err != nil {
		t.Fatalf("Fetch at limit: %v", err)
	}
	if len(data) != len(png) {
		t.Errorf("got %d bytes, want %d", len(data), len(png))
	}

	path := filepath.Join(t.TempDir(), "big.png")
	os.WriteFile(path, png, 0644)
	f.maxBytes = 8
	if _, err := f.Fetch(context.Background(), path); !errors.Is(err, errResourceUnavailable) {
		t.Errorf("expected oversized local file to be rejected, got %v", err)
	}
}

func TestHTTPFetcherLocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.png")
	if err := os.WriteFile(path, testPNG(t), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := newTestFetcher().Fetch(context.Background(), path); err != nil {
		t.Errorf("Fetch local: %v", err)
	}
	if _, err := newTestFetcher().Fetch(context.Background(), path+".missing"); !errors.Is(err, errResourceUnavailable) {
		t.Errorf("expected errResourceUnavailable, got %v", err)
	}
}

func TestCheckImage(t *testing.T) {
	size, format, err := checkImage(testPNG(t))
	if err != nil {
		t.Fatalf("checkImage: %v", err)
	}
	if format != "png" || size != (FrameSize{8, 8}) {
		t.Errorf("checkImage = %v %q", size, format)
	}

	if _, _, err := checkImage([]byte("<html>rate limited</html>")); !errors.Is(err, errResourceUnavailable) {
		t.Errorf("expected errResourceUnavailable for html, got %v", err)
	}
}
