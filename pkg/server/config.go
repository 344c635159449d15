package server

import "time"

// Config holds the admin server's configuration settings.
type Config struct {
	Host    string // Server host address
	Port    int    // Server port
	DataDir string // FilePageStore data directory

	BufferSize          int   // Buffer pool capacity in pages
	PageSize            int   // On-disk page size in bytes
	HistogramBuckets    int   // Default bucket count for introspected histograms
	FlushIntervalMillis int64 // Background flush interval; 0 disables the Flusher

	ReadTimeout    time.Duration // HTTP read timeout
	WriteTimeout   time.Duration // HTTP write timeout
	IdleTimeout    time.Duration // HTTP idle timeout
	MaxRequestSize int64         // Maximum request body size in bytes

	EnableCORS     bool     // Enable CORS middleware
	AllowedOrigins []string // CORS allowed origins
	AllowedMethods []string // CORS allowed methods
	AllowedHeaders []string // CORS allowed headers
	EnableLogging  bool     // Enable request logging

	// TLS/SSL configuration
	EnableTLS   bool   // Enable TLS/SSL
	TLSCertFile string // Path to TLS certificate file
	TLSKeyFile  string // Path to TLS private key file

	// GraphQL configuration
	EnableGraphQL bool // Enable read-only GraphQL introspection endpoint

	// Page persistence enrichment (pkg/compression, pkg/encryption)
	EnableCompression  bool
	CompressionAlgo    string
	EnableEncryption   bool
	EncryptionPassword string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:             "localhost",
		Port:             8080,
		DataDir:          "./data",
		BufferSize:          1000, // 1000 pages = ~4MB buffer pool
		PageSize:            4096,
		HistogramBuckets:    10,
		FlushIntervalMillis: 5000,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		IdleTimeout:      120 * time.Second,
		MaxRequestSize:   1 * 1024 * 1024, // 1MB, this server never accepts document bodies
		EnableCORS:       true,
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		EnableLogging:    true,
		EnableTLS:        false, // TLS disabled by default
		EnableGraphQL:    true,
	}
}
