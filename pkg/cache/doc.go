// Package cache provides a generic, thread-safe LRU cache.
//
// When the cache is full, adding an entry evicts the least recently used
// one; an optional callback sees every entry that leaves the cache, which
// is how owners release resources held by cached values.
//
//	c := cache.NewLRUCache[string, *Session](1000)
//	c.SetEvictCallback(func(_ string, s *Session) { s.Close() })
//	s := c.GetOrCreate(userID, func() *Session { return newSession(userID) })
package cache
