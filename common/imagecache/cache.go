// Package imagecache keeps remote product images on local disk.
//
// Files are named by a hash of their URL and tracked in an index persisted
// in a kvstore.Store. The index is loaded once and written through on every
// change. Entries older than the TTL are re-downloaded on
// access and evicted by Sweep, which also runs before a download whenever
// the cached total exceeds the configured cap.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lyzr/storefront/common/device"
	"github.com/lyzr/storefront/common/kvstore"
)

// DefaultTTL is how long a downloaded image stays fresh
const DefaultTTL = 7 * 24 * time.Hour

const partialSuffix = ".part"

// Cache events reported to the Observer
const (
	EventHit            = "hit"
	EventMiss           = "miss"
	EventDownload       = "download"
	EventDownloadFailed = "download_failed"
	EventEvict          = "evict"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Observer receives cache events; n is bytes for downloads, a count otherwise
type Observer interface {
	CacheEvent(event string, n int64)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type nopObserver struct{}

func (nopObserver) CacheEvent(string, int64) {}

// Cache downloads and tracks images on disk
type Cache struct {
	dir        string
	store      kvstore.Store
	httpClient *http.Client
	ttl        time.Duration
	maxBytes   int64
	batchSize  int
	now        func() time.Time
	logger     Logger
	observer   Observer

	mu     sync.Mutex // guards index, loaded and the rename+record step
	index  Index
	loaded bool
	group  singleflight.Group

	// afterRename runs with c.mu held once a download is in place
	afterRename func()
}

// Option configures a Cache
type Option func(*Cache)

// WithHTTPClient sets the client used for downloads
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.httpClient = client }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMaxBytes overrides the size cap taken from the adaptive config
func WithMaxBytes(n int64) Option {
	return func(c *Cache) { c.maxBytes = n }
}

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithObserver sets the event observer
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// New creates a cache rooted at dir. Size cap, preload parallelism and
// download timeout come from cfg.
func New(dir string, store kvstore.Store, cfg device.AdaptiveConfig, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	if store == nil {
		return nil, errors.New("index store is nil")
	}

	c := &Cache{
		dir:        dir,
		store:      store,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		ttl:        DefaultTTL,
		maxBytes:   cfg.CacheSizeBytes(),
		batchSize:  cfg.BatchSize,
		now:        time.Now,
		logger:     nopLogger{},
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.batchSize < 1 {
		c.batchSize = 1
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return c, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// PathFor returns the deterministic local path for url
func (c *Cache) PathFor(rawURL string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%016x%s", xxhash.Sum64String(rawURL), imageExt(rawURL)))
}

// EnsureCached returns a local path for url, downloading it if it is not
// cached or has expired. Returns false for invalid URLs, failed downloads
// and when ctx ends first; a download other callers share keeps running.
func (c *Cache) EnsureCached(ctx context.Context, rawURL string) (string, bool) {
	if !ValidURL(rawURL) {
		return "", false
	}

	if p, ok := c.lookup(ctx, rawURL); ok {
		c.observer.CacheEvent(EventHit, 1)
		return p, true
	}
	c.observer.CacheEvent(EventMiss, 1)

	// Shared downloads ignore caller cancellation; the client timeout bounds them
	ch := c.group.DoChan(rawURL, func() (any, error) {
		dctx := context.WithoutCancel(ctx)
		if p, ok := c.lookup(dctx, rawURL); ok {
			return p, nil
		}
		c.sweepIfOversized(dctx)
		return c.download(dctx, rawURL)
	})

	select {
	case <-ctx.Done():
		c.logger.Debug("image wait abandoned", "url", rawURL, "error", ctx.Err())
		return "", false
	case res := <-ch:
		if res.Err != nil {
			c.observer.CacheEvent(EventDownloadFailed, 1)
			c.logger.Warn("image download failed", "url", rawURL, "error", res.Err, "shared", res.Shared)
			return "", false
		}
		return res.Val.(string), true
	}
}

// Preload caches urls with at most BatchSize downloads in flight and
// returns how many are now cached. Invalid URLs are skipped.
func (c *Cache) Preload(ctx context.Context, urls []string) int {
	var (
		g      errgroup.Group
		cached atomic.Int64
	)
	g.SetLimit(c.batchSize)

	for _, u := range urls {
		if !ValidURL(u) {
			continue
		}
		u := u
		g.Go(func() error {
			if _, ok := c.EnsureCached(ctx, u); ok {
				cached.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(cached.Load())
	c.logger.Debug("image preload finished", "requested", len(urls), "cached", n)
	return n
}

// Clear removes every cached file and resets the index. Downloads still in
// flight complete normally and re-register their entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, IndexKey); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	c.index = Index{}
	c.loaded = true

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache dir: %w", err)
	}

	removed := 0
	for _, de := range entries {
		if !de.Type().IsRegular() || strings.HasSuffix(de.Name(), partialSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", de.Name(), err)
		}
		removed++
	}

	c.logger.Info("image cache cleared", "files", removed)
	return nil
}

// Sweep evicts every entry older than the TTL and returns how many went
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sweepLocked(ctx, c.indexLocked(ctx))
}

// Stats summarizes the cache contents
type Stats struct {
	Dir        string
	Entries    int
	Expired    int
	TotalBytes int64
	MaxBytes   int64
	TTL        time.Duration
}

// Stats returns a snapshot of the index
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(ctx)
	s := Stats{
		Dir:        c.dir,
		Entries:    len(idx),
		TotalBytes: idx.TotalSize(),
		MaxBytes:   c.maxBytes,
		TTL:        c.ttl,
	}
	for _, e := range idx {
		if c.expired(e) {
			s.Expired++
		}
	}
	return s
}

func (c *Cache) expired(e Entry) bool {
	return c.now().Sub(time.UnixMilli(e.Timestamp)) > c.ttl
}

func (c *Cache) lookup(ctx context.Context, rawURL string) (string, bool) {
	key := c.PathFor(rawURL)

	c.mu.Lock()
	e, ok := c.indexLocked(ctx)[key]
	c.mu.Unlock()

	if !ok || e.URL != rawURL || c.expired(e) {
		return "", false
	}
	return e.LocalPath, true
}

func (c *Cache) sweepIfOversized(ctx context.Context) {
	if c.maxBytes <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(ctx)
	total := idx.TotalSize()
	if total <= c.maxBytes {
		return
	}
	n, err := c.sweepLocked(ctx, idx)
	if err != nil {
		c.logger.Warn("image cache sweep failed", "error", err)
		return
	}
	c.logger.Info("image cache swept", "evicted", n, "size_before", total, "max_bytes", c.maxBytes)
}

// sweepLocked evicts expired entries from idx and persists it. Caller holds c.mu.
func (c *Cache) sweepLocked(ctx context.Context, idx Index) (int, error) {
	evicted := 0
	for key, e := range idx {
		if !c.expired(e) {
			continue
		}
		if err := os.Remove(e.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to remove cached image", "path", e.LocalPath, "error", err)
		}
		delete(idx, key)
		evicted++
	}
	if evicted == 0 {
		return 0, nil
	}

	c.observer.CacheEvent(EventEvict, int64(evicted))
	if err := c.saveIndex(ctx, idx); err != nil {
		return evicted, err
	}
	return evicted, nil
}

func (c *Cache) download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	dest := c.PathFor(rawURL)
	tmp, err := os.CreateTemp(c.dir, "download-*"+partialSuffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	// Clear must see the file and its entry together or neither
	c.mu.Lock()
	if err := os.Rename(tmpPath, dest); err != nil {
		c.mu.Unlock()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("move image into place: %w", err)
	}
	if c.afterRename != nil {
		c.afterRename()
	}
	idx := c.indexLocked(ctx)
	idx[dest] = Entry{
		URL:       rawURL,
		LocalPath: dest,
		Timestamp: c.now().UnixMilli(),
		Size:      written,
	}
	if err := c.saveIndex(ctx, idx); err != nil {
		delete(idx, dest)
		_ = os.Remove(dest)
		c.mu.Unlock()
		return "", err
	}
	c.mu.Unlock()

	c.observer.CacheEvent(EventDownload, written)
	c.logger.Debug("image cached", "url", rawURL, "path", dest, "size", written)
	return dest, nil
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".avif": true, ".svg": true,
}

func imageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if imageExts[ext] {
		return ext
	}
	return ""
}
