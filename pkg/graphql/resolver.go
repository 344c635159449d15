package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/bufferpoold/pkg/catalog"
	"github.com/mnohosten/bufferpoold/pkg/storage"
)

// Resolver answers read-only introspection queries over a BufferPool: lock
// table holders, cached page occupancy, and registered column histograms.
// It never calls GetPage, CachePage, or TransactionComplete — those mutate
// transactional state, which is out of scope for a read-only API.
// Adapted, field-by-field, from the teacher's pkg/graphql/resolver.go
// Resolver, which closed over *database.Database for document CRUD.
type Resolver struct {
	pool *storage.BufferPool
	hist *catalog.HistogramRegistry
}

// NewResolver creates a Resolver over pool, tracking column histograms in
// registry (nil is treated as an empty registry).
func NewResolver(pool *storage.BufferPool, registry *catalog.HistogramRegistry) *Resolver {
	if registry == nil {
		registry = catalog.NewHistogramRegistry()
	}
	return &Resolver{pool: pool, hist: registry}
}

// BufferStats resolves the bufferStats query.
func (r *Resolver) BufferStats(p graphql.ResolveParams) (interface{}, error) {
	stats := r.pool.Stats()
	return map[string]interface{}{
		"size":      stats.Size,
		"capacity":  stats.Capacity,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"commits":   stats.Commits,
		"aborts":    stats.Aborts,
	}, nil
}

// CachedPages resolves the cachedPages query.
func (r *Resolver) CachedPages(p graphql.ResolveParams) (interface{}, error) {
	pages := r.pool.CachedPages()
	results := make([]map[string]interface{}, len(pages))
	for i, cp := range pages {
		results[i] = map[string]interface{}{
			"tableId":    cp.ID.TableID,
			"pageNumber": cp.ID.PageNumber,
			"dirtyTid":   int64(cp.Dirty),
		}
	}
	return results, nil
}

// LockTable resolves the lockTable query.
func (r *Resolver) LockTable(p graphql.ResolveParams) (interface{}, error) {
	snapshot := r.pool.LockTable().Snapshot()
	results := make([]map[string]interface{}, len(snapshot))
	for i, s := range snapshot {
		holders := make([]int64, len(s.Holders))
		for j, tid := range s.Holders {
			holders[j] = int64(tid)
		}
		results[i] = map[string]interface{}{
			"tableId":    s.PageID.TableID,
			"pageNumber": s.PageID.PageNumber,
			"mode":       s.Mode.String(),
			"holders":    holders,
		}
	}
	return results, nil
}

// Histogram resolves the histogram(column) query.
func (r *Resolver) Histogram(p graphql.ResolveParams) (interface{}, error) {
	column, ok := p.Args["column"].(string)
	if !ok {
		return nil, fmt.Errorf("column is required")
	}

	h, ok := r.hist.Get(column)
	if !ok {
		return nil, fmt.Errorf("no histogram registered for column: %s", column)
	}

	heights := h.Heights()
	buckets := make([]int, len(heights))
	copy(buckets, heights)

	return map[string]interface{}{
		"column":         column,
		"buckets":        buckets,
		"totalTuples":    h.TotalTuples(),
		"avgSelectivity": h.AvgSelectivity(),
	}, nil
}

// HistogramColumns resolves the histogramColumns query.
func (r *Resolver) HistogramColumns(p graphql.ResolveParams) (interface{}, error) {
	return r.hist.Columns(), nil
}

// Tables resolves the tables query.
func (r *Resolver) Tables(cat catalog.Catalog) func(graphql.ResolveParams) (interface{}, error) {
	return func(p graphql.ResolveParams) (interface{}, error) {
		tables := cat.Tables()
		results := make([]map[string]interface{}, 0, len(tables))
		for id, name := range tables {
			results = append(results, map[string]interface{}{"id": id, "name": name})
		}
		return results, nil
	}
}
