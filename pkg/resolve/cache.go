// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheEntries bounds each per-root table when no size is given.
const DefaultCacheEntries = 8192

type (
	// Cache memoizes resolutions and manifests per project root. Tables are
	// never shared between roots, and clearing a root discards its whole
	// table. A Cache is safe for concurrent use by all platform tasks of a
	// build; concurrent misses on the same key may compute the same value
	// twice.
	Cache struct {
		mu         sync.Mutex
		maxEntries int
		roots      map[string]*RootCache
	}

	// RootCache is the table of one project root.
	RootCache struct {
		root        string
		resolutions *lru.Cache[resolutionKey, ResolvedFile]
		manifests   *lru.Cache[string, manifestEntry]

		hits   atomic.Int64
		misses atomic.Int64
	}

	// CacheStats reports lookup counters of a RootCache.
	CacheStats struct {
		Entries int
		Hits    int64
		Misses  int64
	}

	resolutionKey struct {
		// profile is the PlatformContext fingerprint.
		profile        string
		specifier      string
		containingFile string
	}

	manifestEntry struct {
		manifest *Manifest
		err      error
	}
)

// NewCache creates a cache whose per-root tables hold at most maxEntries
// resolutions and maxEntries manifests. Non-positive values use
// DefaultCacheEntries.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		roots:      make(map[string]*RootCache),
	}
}

// Root returns the table for root, creating it on first use.
func (c *Cache) Root(root string) *RootCache {
	key := filepath.Clean(root)

	c.mu.Lock()
	defer c.mu.Unlock()

	if rc, ok := c.roots[key]; ok {
		return rc
	}
	rc := newRootCache(key, c.maxEntries)
	c.roots[key] = rc
	return rc
}

// Clear discards the table of root. Contexts still holding the old table
// keep working against it but it is no longer reachable from c.
func (c *Cache) Clear(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roots, filepath.Clean(root))
}

// ClearAll discards every table.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.roots)
}

func newRootCache(root string, size int) *RootCache {
	// lru.New only fails for non-positive sizes.
	resolutions, _ := lru.New[resolutionKey, ResolvedFile](size)
	manifests, _ := lru.New[string, manifestEntry](size)
	return &RootCache{
		root:        root,
		resolutions: resolutions,
		manifests:   manifests,
	}
}

// Root returns the project root this table belongs to.
func (rc *RootCache) Root() string { return rc.root }

// Stats returns the current counters.
func (rc *RootCache) Stats() CacheStats {
	return CacheStats{
		Entries: rc.resolutions.Len(),
		Hits:    rc.hits.Load(),
		Misses:  rc.misses.Load(),
	}
}

func (rc *RootCache) lookup(key resolutionKey) (ResolvedFile, bool) {
	if rc == nil {
		return ResolvedFile{}, false
	}
	f, ok := rc.resolutions.Get(key)
	if ok {
		rc.hits.Add(1)
	} else {
		rc.misses.Add(1)
	}
	return f, ok
}

func (rc *RootCache) store(key resolutionKey, f ResolvedFile) {
	if rc == nil {
		return
	}
	rc.resolutions.Add(key, f)
}

// manifest returns the manifest of dir, reading it through fsys on a miss.
// Read failures are memoized as well.
func (rc *RootCache) manifest(fsys FileSystem, dir string) (*Manifest, error) {
	if rc == nil {
		return ReadManifest(fsys, dir)
	}
	if e, ok := rc.manifests.Get(dir); ok {
		return e.manifest, e.err
	}
	m, err := ReadManifest(fsys, dir)
	rc.manifests.Add(dir, manifestEntry{manifest: m, err: err})
	return m, err
}
