// Package bench provides an Akita-backed model of the translated-code
// cache a production dispatcher would maintain: a fixed-capacity,
// set-associative store keyed by guest block-entry PC, used to study
// capacity/associativity tradeoffs and eviction rates offline rather than
// inside the translator's hot path.
package bench

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds code-cache configuration parameters. BlockSize models the
// granularity translated blocks are packed at (akin to a cache line): every
// installed translation is charged the full BlockSize whatever its real
// length, and the benchmark harness does not report the resulting internal
// fragmentation.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (translation slab granularity)
	BlockSize int
	// HitLatency in cycles: cost of a chained direct jump to a resident
	// translation.
	HitLatency uint64
	// MissLatency in cycles: cost of falling through to the chain-me
	// dispatcher and re-translating.
	MissLatency uint64
}

// SmallConfig models a tight code-cache budget — the regime where eviction
// dominates and every evicted block forces any chained XDirect tail
// pointing at it back to unchained form (emitter.UnchainXDirect).
func SmallConfig() Config {
	return Config{
		Size:          256 * 1024,
		Associativity: 4,
		BlockSize:     256,
		HitLatency:    1,
		MissLatency:   400, // re-decode + re-select + re-emit, not just a memory fetch
	}
}

// MediumConfig models a code-cache budget sized for a moderate working set
// of hot guest blocks.
func MediumConfig() Config {
	return Config{
		Size:          4 * 1024 * 1024,
		Associativity: 8,
		BlockSize:     256,
		HitLatency:    1,
		MissLatency:   400,
	}
}

// LargeConfig models a generously sized code cache, where capacity misses
// become rare and most re-translations are compulsory (first execution of
// a block).
func LargeConfig() Config {
	return Config{
		Size:          64 * 1024 * 1024,
		Associativity: 16,
		BlockSize:     256,
		HitLatency:    1,
		MissLatency:   400,
	}
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the data read (for load operations).
	Data uint64
	// Evicted is true if a valid block (dirty or clean) was evicted.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
}

// ReinstallBonusLatency is the extra latency (in cycles) charged when a
// block is looked up immediately after a block at the same address was
// installed — modeling a loop back-edge re-entering a translation whose
// metadata is still warm in the directory, as distinct from a cold
// compulsory miss.
const ReinstallBonusLatency uint64 = 1

// Cache models one level of the translated-code cache using Akita's
// associative directory for tag/LRU bookkeeping.
type Cache struct {
	// Configuration
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	// Statistics
	stats Statistics

	// Backing store interface (for fetching on miss and writeback)
	backing BackingStore

	// Tracks the most recent install, for ReinstallBonusLatency detection:
	// a lookup at the same address immediately after an install is a
	// warm re-entry, not a cold miss.
	recentStoreAddr  uint64
	recentStoreValid bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// BackingStore interface for the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint64, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint64, data []byte)
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	// Initialize data storage
	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
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

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// Read performs a cache read operation.
// Returns the access result including hit/miss and latency.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.stats.Reads++

	// Compute block-aligned address for lookup
	blockAddr := (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)

	// Look up in directory using block-aligned address
	block := c.directory.Lookup(0, blockAddr) // PID=0 for now

	if block != nil && block.IsValid {
		// Cache hit
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU

		// Extract data from the block
		offset := addr % uint64(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]
		data := extractData(blockData, offset, size)

		latency := c.config.HitLatency
		if c.recentStoreValid && c.recentStoreAddr == addr {
			latency += ReinstallBonusLatency
			c.recentStoreValid = false // consume the warm-reentry event
		}

		return AccessResult{
			Hit:     true,
			Latency: latency,
			Data:    data,
		}
	}

	// Cache miss
	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0)
}

// Write performs a cache write operation.
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr uint64, size int, data uint64) AccessResult {
	c.stats.Writes++

	// Track this install address for ReinstallBonusLatency detection
	c.recentStoreAddr = addr
	c.recentStoreValid = true

	// Compute block-aligned address for lookup
	blockAddr := (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)

	// Look up in directory using block-aligned address
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		// Cache hit
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU

		// Write data to the block
		offset := addr % uint64(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]
		storeData(blockData, offset, size, data)
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	// Cache miss - write-allocate: fetch block, then write
	c.stats.Misses++
	return c.handleMiss(addr, size, true, data)
}

// handleMiss handles a cache miss by fetching from backing store.
func (c *Cache) handleMiss(addr uint64, size int, isWrite bool, writeData uint64) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	// Compute block-aligned address
	blockAddr := (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)

	// Find victim block
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		// This shouldn't happen with proper directory setup
		return result
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	// Check if we need to evict
	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag // Tag stores block-aligned address

		// Writeback if dirty
		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(victim.Tag, victimData)
		}
	}

	// Fetch from backing store
	if c.backing != nil {
		newData := c.backing.Read(blockAddr, c.config.BlockSize)
		copy(victimData, newData)
	} else {
		// Initialize to zeros if no backing store
		for i := range victimData {
			victimData[i] = 0
		}
	}

	// Update block metadata - store block-aligned address as tag
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	if isWrite {
		// Write data to the newly fetched block
		offset := addr % uint64(c.config.BlockSize)
		storeData(victimData, offset, size, writeData)
		victim.IsDirty = true
	} else {
		// Extract read data
		offset := addr % uint64(c.config.BlockSize)
		result.Data = extractData(victimData, offset, size)
	}

	c.directory.Visit(victim) // Update LRU

	return result
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint64) {
	blockAddr := (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	sets := c.directory.GetSets()
	for _, set := range sets {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				// Tag stores block-aligned address directly
				blockData := c.dataStore[c.blockIndex(block)]
				c.backing.Write(block.Tag, blockData)
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
	c.recentStoreValid = false
	c.recentStoreAddr = 0
}

// extractData extracts a value of the given size from a byte slice.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData stores a value of the given size into a byte slice.
func storeData(data []byte, offset uint64, size int, value uint64) {
	if data == nil || int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}

// CodeCache narrows Cache to the operations a dispatcher benchmark harness
// needs: probe whether a guest block's translation is resident, and
// install a freshly translated one. It never stores real host bytes — the
// harness only cares about occupancy and eviction, not correctness — so
// every access carries a fixed, translation-sized footprint.
type CodeCache struct {
	cache *Cache
	// OnEvict, if set, is called with the BlockSize-aligned address of
	// every slot the underlying directory evicts (the guest entry PC itself
	// when that PC is BlockSize-aligned). A real dispatcher
	// would use this hook to call emitter.UnchainXDirect on every chained
	// tail that still points at the evicted block, since a stale chain
	// would otherwise jump into memory the cache no longer owns.
	OnEvict func(guestPC uint64)
}

// NewCodeCache creates a CodeCache sized by cfg. Every installed
// translation is charged cfg.BlockSize bytes regardless of its real
// encoded length — the harness studies capacity and associativity
// effects, not exact byte accounting.
func NewCodeCache(cfg Config) *CodeCache {
	return &CodeCache{cache: New(cfg, nil)}
}

// Lookup probes whether guestPC's translation is resident, reporting hit
// latency on a hit or miss (re-translation) latency otherwise.
func (cc *CodeCache) Lookup(guestPC uint64) AccessResult {
	c := cc.cache
	blockAddr := (guestPC / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
	if block := c.directory.Lookup(0, blockAddr); block == nil || !block.IsValid {
		// A probe never allocates: only Install makes a translation resident.
		c.stats.Reads++
		c.stats.Misses++
		return AccessResult{Hit: false, Latency: c.config.MissLatency}
	}
	return c.Read(guestPC, c.config.BlockSize)
}

// Install records a freshly completed translation for guestPC, evicting
// an existing entry if the target set is full and invoking OnEvict for
// it.
func (cc *CodeCache) Install(guestPC uint64) AccessResult {
	before := cc.cache.stats.Evictions
	result := cc.cache.Write(guestPC, cc.cache.config.BlockSize, guestPC)
	if cc.cache.stats.Evictions > before && cc.OnEvict != nil {
		cc.OnEvict(result.EvictedAddr)
	}
	return result
}

// Stats returns the underlying cache's access statistics.
func (cc *CodeCache) Stats() Statistics { return cc.cache.Stats() }

// Reset clears the cache's occupancy and statistics, as if starting a
// fresh benchmark run.
func (cc *CodeCache) Reset() { cc.cache.Reset() }
