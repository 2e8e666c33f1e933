package cache

// FilterCache adapts Cache's hit/miss-and-latency contract to the timing
// core's filter-cache contract (spec §6): Load/Store take a request cycle
// and return the cycle the response is available, monotonic in reqCycle
// because both HitLatency and MissLatency are only ever added.
type FilterCache struct {
	cache *Cache
}

// NewFilterCache wraps a freshly built Cache (see New) as a filter cache.
func NewFilterCache(config Config) *FilterCache {
	return &FilterCache{cache: New(config)}
}

// Load resolves a load at addr issued at reqCycle, returning the cycle its
// data is available.
func (f *FilterCache) Load(addr, reqCycle uint64) uint64 {
	_, latency := f.cache.Read(addr)
	return reqCycle + latency
}

// Store resolves a store at addr issued at reqCycle, returning the cycle
// it is visible to a subsequent forwarding load.
func (f *FilterCache) Store(addr, reqCycle uint64) uint64 {
	_, latency := f.cache.Write(addr)
	return reqCycle + latency
}

// ContextSwitch invalidates every virtually-addressed tag, as required
// when the owning thread's architectural state moves to another core.
func (f *FilterCache) ContextSwitch() {
	f.cache.Reset()
}

// Stats exposes the underlying cache's access counters.
func (f *FilterCache) Stats() Statistics {
	return f.cache.Stats()
}
