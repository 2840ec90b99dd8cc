//go:build integration

package badger

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingCacheMetrics struct {
	mu        sync.Mutex
	samples   map[string]int
	lastRatio float64
}

func (r *recordingCacheMetrics) RecordCacheStats(cache string, hits, misses uint64, ratio float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.samples == nil {
		r.samples = make(map[string]int)
	}
	r.samples[cache]++
	r.lastRatio = ratio
}

func (r *recordingCacheMetrics) count(cache string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples[cache]
}

func (r *recordingCacheMetrics) ratio() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRatio
}

func TestRecordCacheStats(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "registry.db"), nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	rec := &recordingCacheMetrics{}
	s.recordCacheStats(rec)

	// The block cache is on by default; the index cache is not, so it
	// must be skipped rather than reported with zeroes.
	if rec.count(CacheBlock) != 1 {
		t.Errorf("block cache samples = %d, want 1", rec.count(CacheBlock))
	}
	if rec.count(CacheIndex) != 0 {
		t.Errorf("index cache samples = %d, want 0", rec.count(CacheIndex))
	}
	if r := rec.ratio(); r < 0 || r > 1 {
		t.Errorf("hit ratio = %f, want within [0, 1]", r)
	}
}

func TestCacheSamplerStartsAndStops(t *testing.T) {
	rec := &recordingCacheMetrics{}
	s, err := New(filepath.Join(t.TempDir(), "registry.db"), rec)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// The sampler records a first sample on startup, before the first
	// tick.
	deadline := time.Now().Add(2 * time.Second)
	for rec.count(CacheBlock) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no block cache sample recorded after open")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Close drains the sampler before closing the database.
	select {
	case <-s.sampleDone:
	default:
		t.Fatal("sampler still running after Close")
	}
}

func TestNoSamplerWithoutSink(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "registry.db"), nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if s.sampleStop != nil {
		t.Error("sampler started despite nil metrics sink")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
}
