package metrics

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/mnohosten/bufferpoold/pkg/storage"
)

func TestWriteMetricsIncludesBufferPoolState(t *testing.T) {
	store, err := storage.NewFilePageStore(t.TempDir(), 4096)
	if err != nil {
		t.Fatalf("NewFilePageStore: %v", err)
	}
	defer store.Close()
	pool := storage.NewBufferPool(10, store, log.Default())

	tid := storage.NewTransactionID()
	if _, err := pool.GetPage(tid, storage.PageID{TableID: 1, PageNumber: 0}, storage.ReadOnly); err != nil {
		t.Fatalf("GetPage: %v", err)
	}

	c := NewCollector()
	defer c.Close()
	c.RecordFetch(2 * time.Millisecond)

	var buf bytes.Buffer
	if err := c.WriteMetrics(&buf, pool, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"# TYPE bufferpoold_buffer_pool_size gauge",
		"# TYPE bufferpoold_page_misses_total counter",
		"bufferpoold_page_misses_total 1",
		"bufferpoold_page_fetch_duration_seconds_bucket",
		"bufferpoold_locked_pages",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}
