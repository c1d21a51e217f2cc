package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testFetcher(opts ...FetcherOption) *Fetcher {
	base := []FetcherOption{
		WithoutSchemeUpgrade(),
		WithBackoffBase(time.Millisecond),
	}
	f := NewFetcher(append(base, opts...)...)
	f.sleep = func(time.Duration) {}
	return f
}

func TestFetchSuccess(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	fetcher := testFetcher()
	data, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != "<rss/>" {
		t.Errorf("Expected body '<rss/>', got: %q", string(data))
	}
	if gotUA == "" {
		t.Error("Expected a User-Agent header")
	}
	if !strings.HasPrefix(gotAccept, "application/rss+xml") {
		t.Errorf("Expected feed mime types first in Accept, got: %q", gotAccept)
	}
}

func TestFetchRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := testFetcher()
	data, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("Expected body 'ok', got: %q", string(data))
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got: %d", calls.Load())
	}
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := testFetcher(WithMaxAttempts(3))
	_, err := fetcher.Run(context.Background(), server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got: %v", err)
	}
	if fetchErr.Status != http.StatusBadGateway {
		t.Errorf("Expected status 502 in error, got: %d", fetchErr.Status)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got: %d", calls.Load())
	}
}

func TestFetchDoesNotRetryPermanentStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := testFetcher()
	_, err := fetcher.Run(context.Background(), server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got: %v", err)
	}
	if fetchErr.Status != http.StatusNotFound {
		t.Errorf("Expected status 404, got: %d", fetchErr.Status)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected exactly 1 attempt for 404, got: %d", calls.Load())
	}
}

func TestFetchTLSFallback(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("insecure ok"))
	}))
	defer server.Close()

	// The test server's certificate is self-signed, so the verifying
	// client fails and the one-shot insecure fallback must kick in.
	fetcher := testFetcher()
	data, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected insecure fallback to succeed, got: %v", err)
	}
	if string(data) != "insecure ok" {
		t.Errorf("Expected body 'insecure ok', got: %q", string(data))
	}
	if calls.Load() != 1 {
		t.Errorf("Expected server reached once (insecure retry only), got: %d", calls.Load())
	}
}

func TestFetchUpgradesScheme(t *testing.T) {
	fetcher := NewFetcher(WithMaxAttempts(1), WithBackoffBase(time.Millisecond))
	fetcher.sleep = func(time.Duration) {}

	// No listener on this port; the point is only that the error
	// reports the rewritten https URL.
	_, err := fetcher.Run(context.Background(), "http://127.0.0.1:1/feed.xml")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got: %v", err)
	}
	if fetchErr.URL != "https://127.0.0.1:1/feed.xml" {
		t.Errorf("Expected https URL in error, got: %s", fetchErr.URL)
	}
}
