// Package fetch retrieves remote documents on behalf of the front-end with a
// browser-like header profile, so sites that refuse embedded or scripted
// clients still serve their content.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/1broseidon/presenter/internal/config"
)

// Profile is a named set of request headers sent with every fetch.
type Profile struct {
	Name      string
	UserAgent string
	Headers   map[string]string
}

// ProfileFromConfig resolves a profile by name. An empty name selects the
// configured default.
func ProfileFromConfig(cfg config.FetchConfig, name string) (Profile, error) {
	if name == "" {
		name = cfg.DefaultProfile
	}
	p, ok := cfg.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown fetch profile %q (available: %s)", name, strings.Join(ProfileNames(cfg), ", "))
	}
	headers := make(map[string]string, len(p.Headers))
	for k, v := range p.Headers {
		headers[k] = v
	}
	return Profile{Name: name, UserAgent: p.UserAgent, Headers: headers}, nil
}

// ProfileNames lists configured profiles in sorted order.
func ProfileNames(cfg config.FetchConfig) []string {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// Fetcher performs single GET requests with a fixed header profile.
type Fetcher struct {
	profile Profile
	client  *http.Client
	timeout time.Duration
}

// New creates a Fetcher bound to profile.
func New(profile Profile, opts ...Option) *Fetcher {
	f := &Fetcher{profile: profile}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// Profile returns the bound header profile.
func (f *Fetcher) Profile() Profile {
	return f.profile
}

// Fetch issues one GET for rawURL and returns the body as text. Any HTTP
// status is a success; only transport and decoding failures are errors.
// Redirects follow the client's default policy and are not retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}
	req.Header.Set("User-Agent", f.profile.UserAgent)
	for k, v := range f.profile.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// decodeBody converts the body to UTF-8 using the charset declared in
// contentType. Undeclared or unknown charsets are read as UTF-8 with invalid
// sequences replaced.
func decodeBody(r io.Reader, contentType string) (string, error) {
	if label := declaredCharset(contentType); label != "" && !isUTF8(label) {
		if enc, _ := charset.Lookup(label); enc != nil {
			data, err := io.ReadAll(enc.NewDecoder().Reader(r))
			if err != nil {
				return "", err
			}
			return string(data), nil
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

func isUTF8(label string) bool {
	switch strings.ToLower(label) {
	case "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}
