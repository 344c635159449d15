package handlers

import (
	"net/http"
	"time"
)

// Health returns a health check handler.
func (h *Handlers) Health(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := map[string]interface{}{
			"status": "healthy",
			"uptime": time.Since(startTime).String(),
			"time":   time.Now().Format(time.RFC3339),
		}
		writeSuccess(w, result)
	}
}

// bufferPoolStatsResponse is GET /stats's payload: buffer pool occupancy,
// the number of locked pages, and the catalog's table names.
type bufferPoolStatsResponse struct {
	Buffer struct {
		Size     int `json:"size"`
		Capacity int `json:"capacity"`
	} `json:"buffer"`
	LockedPages int      `json:"lockedPages"`
	Tables      []string `json:"tables"`
}

// Stats returns a point-in-time buffer pool and lock table snapshot.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.Pool.Stats()
	resp := bufferPoolStatsResponse{
		LockedPages: h.Pool.LockTable().Size(),
	}
	resp.Buffer.Size = stats.Size
	resp.Buffer.Capacity = stats.Capacity
	for _, name := range h.Catalog.Tables() {
		resp.Tables = append(resp.Tables, name)
	}
	writeSuccess(w, resp)
}
