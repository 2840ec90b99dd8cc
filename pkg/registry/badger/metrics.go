package badger

import "time"

// Cache names reported to CacheMetrics.
const (
	CacheBlock = "block"
	CacheIndex = "index"
)

// cacheSampleInterval is how often cache statistics are pushed to the
// metrics sink.
const cacheSampleInterval = 15 * time.Second

// CacheMetrics receives periodic BadgerDB cache statistics.
// Implementations must be safe for concurrent use.
type CacheMetrics interface {
	// RecordCacheStats records one sample of a cache's cumulative hit and
	// miss counts and the resulting hit ratio. Counts only move forward
	// within the lifetime of a store; a reopened store starts over.
	RecordCacheStats(cache string, hits, misses uint64, ratio float64)
}

// sampleCaches forwards Badger's internal cache counters to the metrics
// sink until Close.
func (s *BadgerStore) sampleCaches(m CacheMetrics) {
	defer close(s.sampleDone)

	ticker := time.NewTicker(cacheSampleInterval)
	defer ticker.Stop()

	s.recordCacheStats(m)
	for {
		select {
		case <-s.sampleStop:
			return
		case <-ticker.C:
			s.recordCacheStats(m)
		}
	}
}

// recordCacheStats reads both ristretto caches. A cache disabled by
// configuration has no metrics object and is skipped.
func (s *BadgerStore) recordCacheStats(m CacheMetrics) {
	if bm := s.db.BlockCacheMetrics(); bm != nil {
		m.RecordCacheStats(CacheBlock, bm.Hits(), bm.Misses(), bm.Ratio())
	}
	if im := s.db.IndexCacheMetrics(); im != nil {
		m.RecordCacheStats(CacheIndex, im.Hits(), im.Misses(), im.Ratio())
	}
}
