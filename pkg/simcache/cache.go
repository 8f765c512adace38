// Package simcache persists pairwise similarity scores between tabs. Scores
// are keyed by the unordered URL pair, so lookups are symmetric.
package simcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
)

const (
	keySeparator    = "||"
	filePermissions = 0o644
	dirPermissions  = 0o755

	// CompressedSuffix marks snapshots stored snappy-compressed.
	CompressedSuffix = ".sz"
)

// Key returns the normalized cache key for the unordered pair (a, b).
func Key(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + keySeparator + b
}

// Cache is a concurrency-safe map from unordered URL pairs to scores.
// Entries are never evicted.
type Cache struct {
	mu     sync.RWMutex
	scores map[string]float64
	path   string
	logger logging.Logger
}

// New creates an empty cache with no backing file.
func New(logger logging.Logger) *Cache {
	return &Cache{
		scores: make(map[string]float64),
		logger: logging.OrDefault(logger).With(logging.Component("simcache")),
	}
}

// Open creates a cache bound to path and loads whatever is stored there.
func Open(path string, logger logging.Logger) *Cache {
	c := New(logger)
	c.path = path
	_ = c.Load(path)
	return c
}

// Path returns the file the cache was opened with.
func (c *Cache) Path() string {
	return c.path
}

// Get returns the score for the pair in either order.
func (c *Cache) Get(a, b string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scores[Key(a, b)]
	return s, ok
}

// Put records the score for the pair. Callers pass values in [0, 1].
func (c *Cache) Put(a, b string, score float64) {
	c.mu.Lock()
	c.scores[Key(a, b)] = score
	c.mu.Unlock()
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores)
}

// Load merges the snapshot at path into memory. A missing or unreadable file
// leaves the cache as it was and is only logged; the cache is an optimization.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Info("No similarity cache on disk, starting empty", logging.Path(path))
		} else {
			c.logger.Warn("Failed to read similarity cache", logging.Path(path), logging.Error(err))
		}
		return nil
	}

	if isCompressed(path) {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			c.logger.Warn("Failed to decompress similarity cache", logging.Path(path), logging.Error(err))
			return nil
		}
	}

	var loaded map[string]float64
	if err := json.Unmarshal(data, &loaded); err != nil {
		c.logger.Warn("Corrupt similarity cache ignored", logging.Path(path), logging.Error(err))
		return nil
	}

	c.mu.Lock()
	for k, v := range loaded {
		c.scores[k] = v
	}
	n := len(c.scores)
	c.mu.Unlock()

	c.logger.Debug("Loaded similarity cache", logging.Path(path), logging.Count(n))
	return nil
}

// Save writes the whole cache to path atomically: the snapshot goes to a
// temporary file which is then renamed over the target.
func (c *Cache) Save(path string) error {
	if path == "" {
		return errors.New("simcache: no path")
	}

	c.mu.RLock()
	data, err := json.Marshal(c.scores)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal similarity cache: %w", err)
	}

	if isCompressed(path) {
		data = snappy.Encode(nil, data)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write similarity cache: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename similarity cache: %w", err)
	}

	return nil
}

// Flush saves to the path the cache was opened with. It is a no-op for
// caches created with New.
func (c *Cache) Flush() error {
	if c.path == "" {
		return nil
	}
	return c.Save(c.path)
}

func isCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}
