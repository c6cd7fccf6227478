package ldevents

import "container/list"

// Simple implementation of a fixed-capacity cache of strings, used by the event processor to
// remember recently seen context keys.
type lruCache struct {
	values   map[string]*list.Element
	lruList  *list.List
	capacity int
}

func newLruCache(capacity int) lruCache {
	return lruCache{
		values:   make(map[string]*list.Element),
		lruList:  list.New(),
		capacity: capacity,
	}
}

func (c *lruCache) clear() {
	c.values = make(map[string]*list.Element)
	c.lruList.Init()
}

// Stores a value in the cache if it is not already there, evicting the least recently used value
// if the capacity is exceeded. Returns true if the value was already in the cache. A value that is
// already in the cache becomes the most recently used.
func (c *lruCache) add(value string) bool {
	if e, ok := c.values[value]; ok {
		c.lruList.MoveToFront(e)
		return true
	}
	if c.capacity == 0 {
		return false
	}
	if c.capacity == c.lruList.Len() {
		oldest := c.lruList.Back()
		delete(c.values, oldest.Value.(string))
		c.lruList.Remove(oldest)
	}
	e := c.lruList.PushFront(value)
	c.values[value] = e
	return false
}
