// Package cache provides cache hierarchy modeling using Akita cache
// components.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64
}

// DefaultL1IConfig returns a Nehalem/Westmere-scale L1 instruction cache:
// 32KB, 4-way, 64B line, 1-cycle hit, ~L2 miss latency.
func DefaultL1IConfig() Config {
	return Config{
		Size:          32 * 1024, // 32KB
		Associativity: 4,         // 4-way
		BlockSize:     64,        // 64B cache line
		HitLatency:    1,         // 1 cycle
		MissLatency:   12,        // ~12 cycles to L2
	}
}

// DefaultL1DConfig returns a Nehalem/Westmere-scale L1 data cache: 32KB,
// 8-way, 64B line, matching the L1D_LAT the timing core hard-codes for its
// own uop-level accounting (this cache's own HitLatency layers underneath
// that fixed core-side latency, not in place of it).
func DefaultL1DConfig() Config {
	return Config{
		Size:          32 * 1024, // 32KB
		Associativity: 8,         // 8-way
		BlockSize:     64,        // 64B cache line
		HitLatency:    1,         // 1-cycle array access
		MissLatency:   12,        // ~12 cycles to L2
	}
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads     uint64
	Writes    uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// StoreForwardLatency is the extra latency (in cycles) when a load must
// forward data from the most recent store to the same address: the data has
// to be checked against pending stores in the store buffer before a
// normal L1 hit can complete.
const StoreForwardLatency uint64 = 1

// Cache is a tag-only set-associative directory: it classifies an access
// as a hit or miss and reports its latency, but never stores or returns
// data. Every caller in this module (FilterCache) only ever needs the
// hit/miss/latency classification, never a byte value, so unlike a real
// data cache this one carries no backing data array, no backing store, and
// no writeback path — there is nothing dirty to write back when a "line"
// is never anything more than a tag.
type Cache struct {
	config Config

	// Akita cache directory for tag/LRU-state management.
	directory *akitacache.DirectoryImpl

	stats Statistics

	// Store buffer tracking for store-to-load forwarding detection.
	// When a store writes to an address, we record it. A subsequent load
	// to the same address incurs extra forwarding latency.
	recentStoreAddr  uint64
	recentStoreValid bool
}

// New creates a new tag-only cache with the given configuration.
func New(config Config) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// blockAddr computes the block-aligned address addr falls in.
func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Read classifies a read at addr as a hit or miss and reports its latency,
// allocating the block into the directory on a miss.
func (c *Cache) Read(addr uint64) (hit bool, latency uint64) {
	c.stats.Reads++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr) // PID=0 for now

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU

		latency = c.config.HitLatency
		// Store-to-load forwarding: when a load reads from an address
		// that was recently stored, the data must be forwarded from the
		// store buffer. This adds extra latency over a normal cache hit.
		if c.recentStoreValid && c.recentStoreAddr == addr {
			latency += StoreForwardLatency
			c.recentStoreValid = false // Consume the forwarding event
		}

		return true, latency
	}

	c.stats.Misses++
	c.allocate(blockAddr)
	return false, c.config.MissLatency
}

// Write classifies a write at addr as a hit or miss (write-allocate) and
// reports its latency, and records addr for a subsequent store-to-load
// forwarding check.
func (c *Cache) Write(addr uint64) (hit bool, latency uint64) {
	c.stats.Writes++

	// Track this store address for store-to-load forwarding detection.
	c.recentStoreAddr = addr
	c.recentStoreValid = true

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU
		return true, c.config.HitLatency
	}

	// Miss - write-allocate: install the block, then report as a miss.
	c.stats.Misses++
	c.allocate(blockAddr)
	return false, c.config.MissLatency
}

// allocate installs blockAddr into the directory, evicting the LRU way of
// its set if the set is already full.
func (c *Cache) allocate(blockAddr uint64) {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		// This shouldn't happen with proper directory setup.
		return
	}

	if victim.IsValid {
		c.stats.Evictions++
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	c.directory.Visit(victim) // Update LRU
}

// Reset invalidates all cache lines and clears statistics and forwarding
// state, standing in for a context switch or thread migration.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
	c.recentStoreValid = false
	c.recentStoreAddr = 0
}
