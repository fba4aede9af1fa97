package warpd

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"warpdir/internal/model"
)

const defaultCacheSize = 128

// QueryCache remembers query results for one database version. Any mutation
// changes the version, so stale keys are simply never asked for again.
type QueryCache struct {
	lru *lru.Cache[string, []model.Entry]
}

func NewQueryCache(size int) *QueryCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, []model.Entry](size)
	if err != nil {
		return nil
	}
	return &QueryCache{lru: c}
}

func (c *QueryCache) Get(version uint64, matcher, pattern string) ([]model.Entry, bool) {
	if c == nil || c.lru == nil {
		return nil, false
	}
	items, ok := c.lru.Get(makeCacheKey(version, matcher, pattern))
	if !ok {
		return nil, false
	}
	return model.CloneEntries(items), true
}

func (c *QueryCache) Put(version uint64, matcher, pattern string, items []model.Entry) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(makeCacheKey(version, matcher, pattern), model.CloneEntries(items))
}

func (c *QueryCache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *QueryCache) Purge() {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Purge()
}

func makeCacheKey(version uint64, matcher, pattern string) string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "ver=%d|m=%s|q=%s", version, matcher, pattern)
	return b.String()
}
