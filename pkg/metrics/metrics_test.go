package metrics

import (
	"log"
	"testing"
	"time"

	"github.com/mnohosten/bufferpoold/pkg/storage"
)

func newTestPool(t *testing.T, capacity int) *storage.BufferPool {
	t.Helper()
	store, err := storage.NewFilePageStore(t.TempDir(), 4096)
	if err != nil {
		t.Fatalf("NewFilePageStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return storage.NewBufferPool(capacity, store, log.Default())
}

func TestCollectorRecordFetch(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	c.RecordFetch(500 * time.Microsecond)
	c.RecordFetch(5 * time.Millisecond)

	pool := newTestPool(t, 10)
	metrics := c.GetMetrics(pool)

	fetchLatency := metrics["fetch_latency"].(map[string]interface{})
	buckets := fetchLatency["histogram"].(map[string]uint64)
	if buckets["0-1ms"] != 1 {
		t.Errorf("expected 1 sample in 0-1ms bucket, got %d", buckets["0-1ms"])
	}
	if buckets["1-10ms"] != 1 {
		t.Errorf("expected 1 sample in 1-10ms bucket, got %d", buckets["1-10ms"])
	}
}

func TestCollectorLockTimeouts(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	c.RecordLockTimeout()
	c.RecordLockTimeout()

	pool := newTestPool(t, 10)
	metrics := c.GetMetrics(pool)
	txns := metrics["transactions"].(map[string]interface{})
	if txns["lock_timeouts"].(uint64) != 2 {
		t.Errorf("expected 2 lock timeouts, got %v", txns["lock_timeouts"])
	}
}

func TestCollectorBufferStatsReflectPool(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	pool := newTestPool(t, 2)
	tid := storage.NewTransactionID()
	if _, err := pool.GetPage(tid, storage.PageID{TableID: 1, PageNumber: 0}, storage.ReadOnly); err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if _, err := pool.GetPage(tid, storage.PageID{TableID: 1, PageNumber: 0}, storage.ReadOnly); err != nil {
		t.Fatalf("GetPage (cached): %v", err)
	}

	metrics := c.GetMetrics(pool)
	buf := metrics["buffer"].(map[string]interface{})
	if buf["hits"].(uint64) != 1 {
		t.Errorf("expected 1 cache hit, got %v", buf["hits"])
	}
	if buf["misses"].(uint64) != 1 {
		t.Errorf("expected 1 cache miss, got %v", buf["misses"])
	}
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	c.RecordLockTimeout()
	c.Reset()

	pool := newTestPool(t, 10)
	metrics := c.GetMetrics(pool)
	txns := metrics["transactions"].(map[string]interface{})
	if txns["lock_timeouts"].(uint64) != 0 {
		t.Errorf("expected lock timeouts reset to 0, got %v", txns["lock_timeouts"])
	}
}

func TestTimingHistogramPercentiles(t *testing.T) {
	h := NewTimingHistogram(100)
	for i := 1; i <= 100; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}
	p := h.GetPercentiles()
	if p["p50"] < 40*time.Millisecond || p["p50"] > 60*time.Millisecond {
		t.Errorf("p50 out of expected range: %v", p["p50"])
	}
}
