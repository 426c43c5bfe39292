package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maypok86/otter"
	"github.com/spf13/afero"
)

// maxBodyBytes bounds a single fetched document.
const maxBodyBytes = 64 << 20

// minCacheSize is the smallest cache WithCache builds. otter admits
// nothing into caches much smaller than this.
const minCacheSize = 32

// Fetcher retrieves raw bytes for a reference. Remote references go through
// an HTTP client, everything else through a filesystem. Results are cached
// by reference when a cache size is configured.
type Fetcher struct {
	client    *http.Client
	userAgent string
	fs        afero.Fs
	cache     *otter.Cache[string, []byte]
	maxBody   int
	logger    *slog.Logger
}

// NewFetcher creates a fetcher with the given request timeout and User-Agent.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		fs:        afero.NewOsFs(),
		maxBody:   maxBodyBytes,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// WithFs replaces the filesystem used for local references.
func (f *Fetcher) WithFs(fs afero.Fs) *Fetcher {
	f.fs = fs
	return f
}

// WithHTTPClient replaces the HTTP client.
func (f *Fetcher) WithHTTPClient(client *http.Client) *Fetcher {
	f.client = client
	return f
}

// WithLogger sets the logger.
func (f *Fetcher) WithLogger(logger *slog.Logger) *Fetcher {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithCache enables an in-memory cache holding up to size documents,
// raised to minCacheSize. A size of zero or less leaves caching disabled.
func (f *Fetcher) WithCache(size int) (*Fetcher, error) {
	if size <= 0 {
		return f, nil
	}
	if size < minCacheSize {
		f.logger.Debug("fetch cache size raised", "requested", size, "size", minCacheSize)
		size = minCacheSize
	}
	cache, err := otter.MustBuilder[string, []byte](size).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch cache: %w", err)
	}
	f.cache = &cache
	return f, nil
}

// Close releases the cache, if any.
func (f *Fetcher) Close() {
	if f.cache != nil {
		f.cache.Close()
	}
}

// Fetch returns the bytes behind ref. Failures are *LoadError.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if f.cache != nil {
		if body, ok := f.cache.Get(ref); ok {
			f.logger.Debug("fetch cache hit", "ref", ref)
			return body, nil
		}
	}

	var body []byte
	var err error
	if IsRemote(ref) {
		body, err = f.fetchHTTP(ctx, ref)
	} else {
		body, err = f.fetchFile(ref)
	}
	if err != nil {
		return nil, loadErr(ref, err)
	}

	if f.cache != nil {
		f.cache.Set(ref, body)
	}
	return body, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBody)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > f.maxBody {
		return nil, fmt.Errorf("document exceeds %d bytes", f.maxBody)
	}
	f.logger.Debug("fetched", "ref", ref, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}

func (f *Fetcher) fetchFile(ref string) ([]byte, error) {
	path := LocalPath(ref)
	info, err := f.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	body, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return body, nil
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// LocalPath returns the filesystem path for a file:// URL or a plain path.
func LocalPath(ref string) string {
	if strings.HasPrefix(ref, "file://") {
		if u, err := url.Parse(ref); err == nil {
			return u.Path
		}
		return strings.TrimPrefix(ref, "file://")
	}
	return ref
}
