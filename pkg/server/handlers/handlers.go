package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mnohosten/bufferpoold/pkg/catalog"
	"github.com/mnohosten/bufferpoold/pkg/storage"
)

// Handlers holds the buffer pool, lock table, and catalog the admin
// endpoints introspect. It never mutates transactional state — no handler
// here calls GetPage or TransactionComplete; it only reads Stats/Snapshot.
type Handlers struct {
	Pool    *storage.BufferPool
	Catalog catalog.Catalog
}

// New creates a Handlers bound to pool and cat.
func New(pool *storage.BufferPool, cat catalog.Catalog) *Handlers {
	return &Handlers{Pool: pool, Catalog: cat}
}

// BadRequestError indicates a malformed request.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

// writeError writes an error response with appropriate HTTP status code.
func writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorType := "InternalError"

	if _, ok := err.(*BadRequestError); ok {
		statusCode = http.StatusBadRequest
		errorType = "BadRequest"
	}

	response := map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": err.Error(),
		"code":    statusCode,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter, result interface{}) {
	response := map[string]interface{}{
		"ok":     true,
		"result": result,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
