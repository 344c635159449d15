package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/bufferpoold/pkg/catalog"
	"github.com/mnohosten/bufferpoold/pkg/storage"
)

// Schema builds the read-only introspection schema over pool: lock table
// holders, cached page occupancy, registered column histograms, and the
// catalog's table names. There is no Mutation type — nothing here writes
// to the buffer pool. Adapted, field-by-field, from the teacher's
// pkg/graphql/schema.go Schema, whose Query/Mutation/Subscription types
// covered document CRUD.
func Schema(pool *storage.BufferPool, cat catalog.Catalog, histograms *catalog.HistogramRegistry) (graphql.Schema, error) {
	bufferStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "BufferStats",
		Description: "Point-in-time buffer pool occupancy and counters",
		Fields: graphql.Fields{
			"size":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Description: "Pages currently cached"},
			"capacity":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Description: "Buffer pool capacity in pages"},
			"hits":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Description: "GetPage calls served from cache"},
			"misses":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Description: "GetPage calls that read through to the page store"},
			"evictions": &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Description: "Clean pages evicted to make room"},
			"commits":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Description: "Transactions completed via commit"},
			"aborts":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Description: "GetPage lock timeouts plus transactions completed via abort"},
		},
	})

	cachedPageType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "CachedPage",
		Description: "One page currently resident in the buffer pool",
		Fields: graphql.Fields{
			"tableId":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"pageNumber": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"dirtyTid":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Description: "0 if clean, else the owning transaction id"},
		},
	})

	lockEntryType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "LockEntry",
		Description: "One page's current lock holders",
		Fields: graphql.Fields{
			"tableId":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"pageNumber": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"mode":       &graphql.Field{Type: graphql.NewNonNull(graphql.String), Description: "Shared or Exclusive"},
			"holders":    &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(graphql.Int))},
		},
	})

	histogramType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Histogram",
		Description: "Selectivity histogram for a single column",
		Fields: graphql.Fields{
			"column":         &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"buckets":        &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(graphql.Int))},
			"totalTuples":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"avgSelectivity": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	tableType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Table",
		Description: "A table registered in the catalog",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	resolver := NewResolver(pool, histograms)

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Query",
		Description: "Root query type for the buffer pool introspection API",
		Fields: graphql.Fields{
			"bufferStats": &graphql.Field{
				Type:        graphql.NewNonNull(bufferStatsType),
				Description: "Current buffer pool occupancy and counters",
				Resolve:     resolver.BufferStats,
			},
			"cachedPages": &graphql.Field{
				Type:        graphql.NewList(cachedPageType),
				Description: "Every page currently resident in the buffer pool",
				Resolve:     resolver.CachedPages,
			},
			"lockTable": &graphql.Field{
				Type:        graphql.NewList(lockEntryType),
				Description: "Current lock holders for every locked page",
				Resolve:     resolver.LockTable,
			},
			"histogram": &graphql.Field{
				Type:        histogramType,
				Description: "Selectivity histogram registered for a column",
				Args: graphql.FieldConfigArgument{
					"column": &graphql.ArgumentConfig{
						Type:        graphql.NewNonNull(graphql.String),
						Description: "Column name the histogram was registered under",
					},
				},
				Resolve: resolver.Histogram,
			},
			"histogramColumns": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(graphql.String)),
				Description: "Names of every column with a registered histogram",
				Resolve:     resolver.HistogramColumns,
			},
			"tables": &graphql.Field{
				Type:        graphql.NewList(tableType),
				Description: "Tables registered in the catalog",
				Resolve:     resolver.Tables(cat),
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create GraphQL schema: %w", err)
	}
	return schema, nil
}
