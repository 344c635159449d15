package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mnohosten/bufferpoold/pkg/server"
)

func main() {
	host := flag.String("host", "localhost", "Admin server host address")
	port := flag.Int("port", 8080, "Admin server port")
	dataDir := flag.String("data-dir", "./data", "Data directory for page storage")
	bufferSize := flag.Int("buffer-size", 1000, "Buffer pool size in pages (1 page = 4KB, default 1000 = ~4MB)")
	pageSize := flag.Int("page-size", 4096, "On-disk page size in bytes")
	histogramBuckets := flag.Int("histogram-buckets", 10, "Default bucket count for introspected histograms")
	flushIntervalMillis := flag.Int64("flush-interval-ms", 5000, "Background flush interval in milliseconds; 0 disables it")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin")
	enableTLS := flag.Bool("tls", false, "Enable TLS/SSL")
	tlsCert := flag.String("tls-cert", "", "Path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "Path to TLS private key file")
	enableGraphQL := flag.Bool("graphql", true, "Enable GraphQL introspection endpoint (/graphql) and GraphiQL playground (/graphiql)")
	compressionAlgo := flag.String("compression", "", "Page compression algorithm: none, snappy, zstd, gzip, zlib")
	encryptionPassword := flag.String("encryption-password", "", "Enable AES-256-GCM page encryption derived from this password")
	flag.Parse()

	config := server.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.DataDir = *dataDir
	config.BufferSize = *bufferSize
	config.PageSize = *pageSize
	config.HistogramBuckets = *histogramBuckets
	config.FlushIntervalMillis = *flushIntervalMillis
	config.AllowedOrigins = []string{*corsOrigin}
	config.EnableTLS = *enableTLS
	config.TLSCertFile = *tlsCert
	config.TLSKeyFile = *tlsKey
	config.EnableGraphQL = *enableGraphQL
	if *compressionAlgo != "" {
		config.EnableCompression = true
		config.CompressionAlgo = *compressionAlgo
	}
	if *encryptionPassword != "" {
		config.EnableEncryption = true
		config.EncryptionPassword = *encryptionPassword
	}

	srv, err := server.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
