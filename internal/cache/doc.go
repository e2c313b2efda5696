// Package cache provides a small generic LRU cache.
//
//	c := cache.New[[32]byte, []uint32](16)
//	words, err := c.Load(key, func() ([]uint32, error) {
//	    return compile(source)
//	})
//
// Load runs the constructor under the cache lock, so concurrent callers
// never build the same entry twice. Failed constructions are not stored.
package cache
