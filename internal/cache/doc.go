// Package cache provides a thread-safe LRU cache bounded by the total size
// of its values rather than by entry count.
//
//	c := cache.New[string, []float64](64<<20, func(v []float64) int64 {
//		return int64(len(v)) * 8
//	})
//	table := c.GetOrCreate(key, build)
//
// It holds derived data that is expensive to compute and reused across
// renders, such as per-geometry remap tables.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
