package ntfs

import (
	"container/list"
	"sync"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// DefaultPathCacheSize is the bound named in spec §4.2: "an LRU cache of at
// most ~50k (DocKey → path) entries".
const DefaultPathCacheSize = 50_000

// pathCache is a fixed-capacity LRU mapping DocKey to a resolved path,
// used to accelerate repeated parent-FRN chasing during MFT enumeration
// and USN event path resolution.
type pathCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[ids.DocKey]*list.Element
}

type pathCacheEntry struct {
	key  ids.DocKey
	path string
}

func newPathCache(capacity int) *pathCache {
	if capacity <= 0 {
		capacity = DefaultPathCacheSize
	}
	return &pathCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[ids.DocKey]*list.Element, capacity),
	}
}

func (c *pathCache) Get(key ids.DocKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*pathCacheEntry).path, true
}

func (c *pathCache) Put(key ids.DocKey, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*pathCacheEntry).path = path
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&pathCacheEntry{key: key, path: path})
	c.items[key] = el

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*pathCacheEntry).key)
	}
}

func (c *pathCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
