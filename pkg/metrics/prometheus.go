package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/mnohosten/bufferpoold/pkg/storage"
)

// WriteMetrics writes buffer pool, lock table, and fetch-latency metrics
// in Prometheus text exposition format. Adapted from the teacher's
// pkg/metrics/prometheus.go PrometheusExporter.WriteMetrics, collapsing
// its per-operation (query/insert/update/delete) sections into the
// buffer pool's single GetPage path.
func (c *Collector) WriteMetrics(w io.Writer, pool *storage.BufferPool, startTime time.Time) error {
	const namespace = "bufferpoold"

	if err := writeGauge(w, namespace, "uptime_seconds", "Server uptime in seconds", time.Since(startTime).Seconds()); err != nil {
		return err
	}

	stats := pool.Stats()
	if err := writeGauge(w, namespace, "buffer_pool_size", "Pages currently cached", float64(stats.Size)); err != nil {
		return err
	}
	if err := writeGauge(w, namespace, "buffer_pool_capacity", "Buffer pool capacity in pages", float64(stats.Capacity)); err != nil {
		return err
	}
	if err := writeCounter(w, namespace, "page_hits_total", "GetPage calls served from cache", stats.Hits); err != nil {
		return err
	}
	if err := writeCounter(w, namespace, "page_misses_total", "GetPage calls that read through to the page store", stats.Misses); err != nil {
		return err
	}
	if err := writeCounter(w, namespace, "page_evictions_total", "Clean pages evicted to make room", stats.Evictions); err != nil {
		return err
	}
	if err := writeCounter(w, namespace, "transactions_committed_total", "Transactions completed via commit", stats.Commits); err != nil {
		return err
	}
	if err := writeCounter(w, namespace, "transactions_aborted_total", "GetPage lock timeouts plus transactions completed via abort", stats.Aborts); err != nil {
		return err
	}

	if err := writeGauge(w, namespace, "locked_pages", "Pages with at least one lock holder", float64(pool.LockTable().Size())); err != nil {
		return err
	}

	c.mu.RLock()
	hist := c.fetchTimings
	c.mu.RUnlock()
	if err := writeHistogram(w, namespace, "page_fetch_duration_seconds", "GetPage latency histogram", hist); err != nil {
		return err
	}
	if err := writePercentiles(w, namespace, "page_fetch_duration_seconds", hist); err != nil {
		return err
	}

	res := c.resources.GetStats()
	if err := writeGauge(w, namespace, "memory_heap_bytes", "Heap memory in bytes", float64(res.HeapInUse)); err != nil {
		return err
	}
	if err := writeGauge(w, namespace, "goroutines", "Number of goroutines", float64(res.NumGoroutines)); err != nil {
		return err
	}

	pagesRead, pagesWritten := c.resources.PageIOStats(c.pageSize)
	if err := writeCounter(w, namespace, "pages_read_total", "Pages read from disk through FilePageStore", pagesRead); err != nil {
		return err
	}
	if err := writeCounter(w, namespace, "pages_written_total", "Pages written to disk through FilePageStore", pagesWritten); err != nil {
		return err
	}

	return nil
}

func writeCounter(w io.Writer, namespace, name, help string, value uint64) error {
	metricName := namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", metricName, help, metricName, metricName, value)
	return err
}

func writeGauge(w io.Writer, namespace, name, help string, value float64) error {
	metricName := namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", metricName, help, metricName, metricName, value)
	return err
}

func writeHistogram(w io.Writer, namespace, name, help string, th *TimingHistogram) error {
	metricName := namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", metricName, help, metricName); err != nil {
		return err
	}

	buckets := th.GetBuckets()
	var cumulative uint64
	for _, b := range []struct {
		key string
		le  string
	}{
		{"0-1ms", "0.001"},
		{"1-10ms", "0.01"},
		{"10-100ms", "0.1"},
		{"100-1000ms", "1.0"},
		{">1000ms", "+Inf"},
	} {
		cumulative += buckets[b.key]
		if _, err := fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", metricName, b.le, cumulative); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s_count %d\n", metricName, cumulative)
	return err
}

func writePercentiles(w io.Writer, namespace, baseName string, th *TimingHistogram) error {
	percentiles := th.GetPercentiles()
	for _, p := range []string{"p50", "p95", "p99"} {
		if err := writeGauge(w, namespace, baseName+"_"+p, fmt.Sprintf("%s percentile of %s", p, baseName), percentiles[p].Seconds()); err != nil {
			return err
		}
	}
	return nil
}
