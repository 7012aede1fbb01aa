package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/asakaida/riskmap/pkg/cache"
	"github.com/asakaida/riskmap/pkg/cache/memorycache"
)

// Collector collects and aggregates metrics for the application.
type Collector struct {
	// API metrics
	apiRequests sync.Map // map[string]*uint64 - method -> count
	apiErrors   sync.Map // map[string]*uint64 - method -> error count
	apiDuration sync.Map // map[string]*durationValue - method -> total duration in seconds

	// Domain metrics
	dispatches     sync.Map // map[string]*uint64 - page kind -> count
	catalogChanges sync.Map // map[string]*uint64 - module -> count

	// Catalog cache (optional)
	mu    sync.RWMutex
	cache cache.Cache
}

// durationValue holds duration with mutex for thread-safe updates.
type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// CacheMetrics holds cache performance metrics.
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	MemoryBytes int64
	Evictions   uint64
}

// APIMetrics holds API request metrics.
type APIMetrics struct {
	RequestCounts        map[string]uint64
	ErrorCounts          map[string]uint64
	TotalDurationSeconds map[string]float64
}

// DomainMetrics holds widget dispatch and catalog change counts.
type DomainMetrics struct {
	Dispatches     map[string]uint64 // page kind -> count
	CatalogChanges map[string]uint64 // module -> count, "" for full reloads
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetCache sets the cache instance for collecting cache metrics.
func (c *Collector) SetCache(cache cache.Cache) {
	c.mu.Lock()
	c.cache = cache
	c.mu.Unlock()
}

// RecordRequest records an API request.
func (c *Collector) RecordRequest(method string) {
	atomic.AddUint64(getOrCreateCounter(&c.apiRequests, method), 1)
}

// RecordError records an API error.
func (c *Collector) RecordError(method string) {
	atomic.AddUint64(getOrCreateCounter(&c.apiErrors, method), 1)
}

// RecordDuration records the duration of an API call in seconds.
func (c *Collector) RecordDuration(method string, durationSeconds float64) {
	val, _ := c.apiDuration.LoadOrStore(method, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// RecordDispatch records a widget dispatch for a page kind.
func (c *Collector) RecordDispatch(kind string) {
	atomic.AddUint64(getOrCreateCounter(&c.dispatches, kind), 1)
}

// RecordCatalogChange records a catalog change notification for a module.
func (c *Collector) RecordCatalogChange(module string) {
	atomic.AddUint64(getOrCreateCounter(&c.catalogChanges, module), 1)
}

// GetCacheMetrics returns current cache metrics.
func (c *Collector) GetCacheMetrics() *CacheMetrics {
	c.mu.RLock()
	current := c.cache
	c.mu.RUnlock()

	if current == nil {
		return &CacheMetrics{}
	}

	metrics := current.Metrics()
	if metrics == nil {
		return &CacheMetrics{}
	}

	result := &CacheMetrics{
		Hits:      metrics.Hits,
		Misses:    metrics.Misses,
		HitRate:   metrics.HitRate(),
		Evictions: metrics.KeysEvicted,
	}

	if memCache, ok := current.(*memorycache.Cache); ok {
		result.KeysCurrent = int64(memCache.Len())
		result.MemoryBytes = memCache.Size()
	}

	return result
}

// GetAPIMetrics returns current API metrics.
func (c *Collector) GetAPIMetrics() *APIMetrics {
	result := &APIMetrics{
		RequestCounts:        snapshotCounters(&c.apiRequests),
		ErrorCounts:          snapshotCounters(&c.apiErrors),
		TotalDurationSeconds: make(map[string]float64),
	}

	c.apiDuration.Range(func(key, value interface{}) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	return result
}

// GetDomainMetrics returns current widget dispatch and catalog change counts.
func (c *Collector) GetDomainMetrics() *DomainMetrics {
	return &DomainMetrics{
		Dispatches:     snapshotCounters(&c.dispatches),
		CatalogChanges: snapshotCounters(&c.catalogChanges),
	}
}

func snapshotCounters(m *sync.Map) map[string]uint64 {
	result := make(map[string]uint64)
	m.Range(func(key, value interface{}) bool {
		result[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})
	return result
}

// getOrCreateCounter gets or creates a counter for the given key.
func getOrCreateCounter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}
