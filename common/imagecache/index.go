package imagecache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// IndexKey is the key-value store key holding the serialized index
const IndexKey = "image_cache_index"

// Entry records one cached image
type Entry struct {
	URL       string `json:"url"`
	LocalPath string `json:"localPath"`
	Timestamp int64  `json:"timestamp"` // unix millis of download
	Size      int64  `json:"size"`
}

// Index maps local path to entry
type Index map[string]Entry

// TotalSize sums the recorded size of every entry
func (idx Index) TotalSize() int64 {
	var total int64
	for _, e := range idx {
		total += e.Size
	}
	return total
}

// ValidURL reports whether url is something the cache will download
func ValidURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (e Entry) valid(key string) bool {
	return ValidURL(e.URL) &&
		e.LocalPath != "" &&
		e.LocalPath == key &&
		e.Timestamp >= 0 &&
		e.Size >= 0
}

// decodeIndex parses a stored blob. Malformed entries are dropped; a blob
// that is not a JSON object yields an empty index and the parse error.
func decodeIndex(raw []byte) (Index, int, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return Index{}, 0, fmt.Errorf("corrupt index: %w", err)
	}

	idx := make(Index, len(entries))
	dropped := 0
	for key, msg := range entries {
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil || !e.valid(key) {
			dropped++
			continue
		}
		idx[key] = e
	}
	return idx, dropped, nil
}

// indexLocked returns the in-memory index, reading it from the store on
// first use. Caller holds c.mu.
func (c *Cache) indexLocked(ctx context.Context) Index {
	if !c.loaded {
		c.index = c.loadIndex(ctx)
		c.loaded = true
	}
	return c.index
}

// loadIndex reads the index from the store. Any failure is a miss.
func (c *Cache) loadIndex(ctx context.Context) Index {
	raw, ok, err := c.store.Get(ctx, IndexKey)
	if err != nil {
		c.logger.Warn("image cache index unreadable", "error", err)
		return Index{}
	}
	if !ok {
		return Index{}
	}

	idx, dropped, err := decodeIndex(raw)
	if err != nil {
		c.logger.Warn("image cache index discarded", "error", err)
		return idx
	}
	if dropped > 0 {
		c.logger.Warn("image cache index entries dropped", "count", dropped)
	}
	return idx
}

// saveIndex writes the index back. Caller holds c.mu.
func (c *Cache) saveIndex(ctx context.Context, idx Index) error {
	raw, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := c.store.Set(ctx, IndexKey, raw); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}
