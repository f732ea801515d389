package fetch

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/presenter/internal/config"
)

func canvaProfile(t *testing.T) Profile {
	t.Helper()
	p, err := ProfileFromConfig(config.DefaultConfig().Fetch, "")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	return p
}

func TestProfileFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Fetch

	p, err := ProfileFromConfig(cfg, "")
	if err != nil {
		t.Fatalf("default profile: %v", err)
	}
	if p.Name != config.DefaultFetchProfileName {
		t.Fatalf("name = %q", p.Name)
	}

	// Mutating the returned headers must not leak into the config.
	p.Headers["Referer"] = "changed"
	if cfg.Profiles[config.DefaultFetchProfileName].Headers["Referer"] == "changed" {
		t.Fatalf("profile headers alias config map")
	}

	if _, err := ProfileFromConfig(cfg, "nope"); err == nil || !strings.Contains(err.Error(), "canva") {
		t.Fatalf("expected unknown profile error listing available, got %v", err)
	}
}

func TestFetch_SendsProfileHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("<html>design</html>"))
	}))
	defer srv.Close()

	body, err := New(canvaProfile(t)).Fetch(context.Background(), srv.URL+"/design/abc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != "<html>design</html>" {
		t.Fatalf("body = %q", body)
	}
	if ua := got.Get("User-Agent"); ua != config.DefaultCanvaUserAgent {
		t.Fatalf("User-Agent = %q", ua)
	}
	if ref := got.Get("Referer"); ref != "https://www.canva.com/" {
		t.Fatalf("Referer = %q", ref)
	}
	if origin := got.Get("Origin"); origin != "https://www.canva.com" {
		t.Fatalf("Origin = %q", origin)
	}
}

func TestFetch_HeadersIndependentOfHost(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Host] = r.Header.Clone()
		mu.Unlock()
	}))
	defer srv.Close()

	// Route every hostname to the test server.
	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, srv.Listener.Addr().String())
		},
	}}
	f := New(canvaProfile(t), WithHTTPClient(client))

	hosts := []string{"www.canva.com", "media.example.org"}
	for _, host := range hosts {
		if _, err := f.Fetch(context.Background(), "http://"+host+"/asset"); err != nil {
			t.Fatalf("fetch %s: %v", host, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, host := range hosts {
		h, ok := seen[host]
		if !ok {
			t.Fatalf("no request recorded for %s", host)
		}
		if h.Get("User-Agent") != config.DefaultCanvaUserAgent ||
			h.Get("Referer") != "https://www.canva.com/" ||
			h.Get("Origin") != "https://www.canva.com" {
			t.Fatalf("%s: headers = %v", host, h)
		}
	}
}

func TestFetch_NonSuccessStatusReturnsBody(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte("nope"))
		}))
		body, err := New(canvaProfile(t)).Fetch(context.Background(), srv.URL)
		srv.Close()
		if err != nil {
			t.Fatalf("status %d: unexpected error %v", status, err)
		}
		if body != "nope" {
			t.Fatalf("status %d: body = %q", status, body)
		}
	}
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"connection refused", addr, "request failed"},
		{"malformed url", "://bad", "invalid request"},
		{"unsupported scheme", "ftp://example.com/x", "request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(canvaProfile(t)).Fetch(context.Background(), tt.url)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(canvaProfile(t)).Fetch(ctx, srv.URL); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestFetch_DecodesDeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte{'c', 'a', 'f', 0xe9})
	}))
	defer srv.Close()

	body, err := New(canvaProfile(t)).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != "café" {
		t.Fatalf("body = %q, want café", body)
	}
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		in          []byte
		want        string
	}{
		{"no header", "", []byte("plain"), "plain"},
		{"utf-8", "text/html; charset=utf-8", []byte("ü"), "ü"},
		{"invalid utf-8 replaced", "text/plain", []byte{'a', 0xff, 'b'}, "a�b"},
		{"unknown charset", "text/plain; charset=x-martian", []byte("ok"), "ok"},
		{"bad media type", ";;;", []byte("ok"), "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody(strings.NewReader(string(tt.in)), tt.contentType)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
