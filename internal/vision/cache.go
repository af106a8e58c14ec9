package vision

import (
	"sync"

	"textalert/pkg/models"
)

// objectCacheSize bounds how many downloaded images are held between the
// label and text calls for the same object. Each entry can be up to
// storage.MaxObjectSizeBytes.
const objectCacheSize = 4

// objectCache keeps recently downloaded objects so that text detection after a
// positive label detection does not download the image again. Entries are
// removed when taken, or evicted oldest first once the cache is full; a miss
// only costs another download.
type objectCache struct {
	mu    sync.Mutex
	size  int
	order []models.ObjectReference
	data  map[models.ObjectReference][]byte
}

func newObjectCache(size int) *objectCache {
	return &objectCache{
		size: size,
		data: make(map[models.ObjectReference][]byte, size),
	}
}

func (c *objectCache) get(ref models.ObjectReference) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	content, ok := c.data[ref]
	return content, ok
}

func (c *objectCache) put(ref models.ObjectReference, content []byte) {
	if c.size <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.data[ref]; ok {
		c.data[ref] = content
		return
	}
	for len(c.order) >= c.size {
		delete(c.data, c.order[0])
		c.order = c.order[1:]
	}
	c.order = append(c.order, ref)
	c.data[ref] = content
}

// take returns the cached object and removes it.
func (c *objectCache) take(ref models.ObjectReference) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content, ok := c.data[ref]
	if !ok {
		return nil, false
	}
	delete(c.data, ref)
	for i, r := range c.order {
		if r == ref {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return content, true
}

func (c *objectCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
