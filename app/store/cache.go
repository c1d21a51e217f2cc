package store

import (
	"sort"
)

// Cache is the in-memory working set of entry identifiers already
// covered by a confirmed notification. The runner is its single owner;
// the type itself is not safe for concurrent mutation.
type Cache struct {
	ids map[string]struct{}
}

func NewCache(ids map[string]struct{}) *Cache {
	if ids == nil {
		ids = make(map[string]struct{})
	}
	return &Cache{ids: ids}
}

func (c *Cache) Contains(id string) bool {
	_, ok := c.ids[id]
	return ok
}

func (c *Cache) Add(id string) {
	c.ids[id] = struct{}{}
}

func (c *Cache) Len() int {
	return len(c.ids)
}

// Snapshot returns the current identifiers, sorted so persisted output
// is stable across runs.
func (c *Cache) Snapshot() []string {
	ids := make([]string, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
