package utils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestGetCacheFileName(t *testing.T) {
	tests := []struct {
		url, name, want string
	}{
		{"https://example.com/a/data.txt", "", "data.txt"},
		{"https://example.com/a/data.txt", "[RIR-APNIC]", "RIR-APNIC_data.txt"},
		{"https://example.com/a/data.txt?x=1", "[my feed]", "my_feed_data.txt"},
	}
	for _, tt := range tests {
		if got := GetCacheFileName(tt.url, tt.name); got != tt.want {
			t.Errorf("GetCacheFileName(%q, %q) = %q, want %q", tt.url, tt.name, got, tt.want)
		}
	}
}

func TestGetCachedReader(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		hits.Add(1)
		_, _ = io.WriteString(w, "payload")
	}))
	defer srv.Close()

	ctx := context.Background()
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		r, err := GetCachedReader(ctx, srv.URL+"/data.txt", dir, "[test]")
		if err != nil {
			t.Fatalf("GetCachedReader: %v", err)
		}
		body, _ := io.ReadAll(r)
		_ = r.Close()
		if string(body) != "payload" {
			t.Errorf("body = %q, want payload", body)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1 (second read from cache)", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "test_data.txt")); err != nil {
		t.Errorf("cache file missing: %v", err)
	}

	r, err := GetCachedReader(ctx, srv.URL+"/data.txt", "", "[test]")
	if err != nil {
		t.Fatalf("streaming GetCachedReader: %v", err)
	}
	_ = r.Close()
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2 after streaming", got)
	}

	if _, err := GetCachedReader(ctx, srv.URL+"/missing", dir, "[test]"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}
	if _, err := GetCachedReader(ctx, srv.URL+"/broken", "", "[test]"); err == nil {
		t.Error("expected error for 500 response")
	}
	if _, err := os.Stat(filepath.Join(dir, "test_missing")); !os.IsNotExist(err) {
		t.Errorf("failed download left a file behind: %v", err)
	}
}
