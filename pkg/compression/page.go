package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/mnohosten/bufferpoold/pkg/storage"
)

const (
	// CompressedPageHeaderSize is the size of the compressed page header
	// [1-byte algorithm][4-byte original size][4-byte compressed size]
	CompressedPageHeaderSize = 9
)

// CompressedPage frames a storage.Page's raw bytes for transport or
// instrumentation outside FilePageStore's own on-disk framing.
type CompressedPage struct {
	compressor *Compressor
}

// NewCompressedPage creates a new compressed page handler
func NewCompressedPage(config *Config) (*CompressedPage, error) {
	compressor, err := NewCompressor(config)
	if err != nil {
		return nil, err
	}

	return &CompressedPage{
		compressor: compressor,
	}, nil
}

// CompressPage compresses a page's raw bytes.
// Returns: [header][compressed data] where header contains metadata
func (cp *CompressedPage) CompressPage(page storage.Page) ([]byte, error) {
	pageData := page.GetPageData()

	compressed, err := cp.compressor.Compress(pageData)
	if err != nil {
		return nil, fmt.Errorf("failed to compress page: %w", err)
	}

	// Header: [1-byte algorithm][4-byte original size][4-byte compressed size]
	result := make([]byte, CompressedPageHeaderSize+len(compressed))
	result[0] = byte(cp.compressor.config.Algorithm)
	binary.LittleEndian.PutUint32(result[1:5], uint32(len(pageData)))
	binary.LittleEndian.PutUint32(result[5:9], uint32(len(compressed)))
	copy(result[CompressedPageHeaderSize:], compressed)

	return result, nil
}

// DecompressPage recovers a page's raw bytes from a CompressPage result.
func (cp *CompressedPage) DecompressPage(data []byte) ([]byte, error) {
	if len(data) < CompressedPageHeaderSize {
		return nil, fmt.Errorf("invalid compressed page data: too short")
	}

	algorithm := Algorithm(data[0])
	originalSize := binary.LittleEndian.Uint32(data[1:5])
	compressedSize := binary.LittleEndian.Uint32(data[5:9])

	if algorithm != cp.compressor.config.Algorithm {
		return nil, fmt.Errorf("algorithm mismatch: expected %v, got %v",
			cp.compressor.config.Algorithm, algorithm)
	}

	if len(data)-CompressedPageHeaderSize != int(compressedSize) {
		return nil, fmt.Errorf("compressed size mismatch: expected %d, got %d",
			compressedSize, len(data)-CompressedPageHeaderSize)
	}

	compressedData := data[CompressedPageHeaderSize:]
	decompressed, err := cp.compressor.Decompress(compressedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress page: %w", err)
	}

	if len(decompressed) != int(originalSize) {
		return nil, fmt.Errorf("decompressed size mismatch: expected %d, got %d",
			originalSize, len(decompressed))
	}

	return decompressed, nil
}

// Close closes the compressed page handler
func (cp *CompressedPage) Close() error {
	return cp.compressor.Close()
}

// PageCompressionStats holds statistics about page compression
type PageCompressionStats struct {
	PageID         storage.PageID
	OriginalSize   int
	CompressedSize int
	Ratio          float64
	SpaceSavings   float64
	Algorithm      string
}

// GetPageCompressionStats returns compression statistics for a page
func (cp *CompressedPage) GetPageCompressionStats(page storage.Page) (*PageCompressionStats, error) {
	pageData := page.GetPageData()

	compressed, err := cp.compressor.Compress(pageData)
	if err != nil {
		return nil, fmt.Errorf("failed to compress page: %w", err)
	}

	originalSize := len(pageData)
	compressedSize := len(compressed)

	return &PageCompressionStats{
		PageID:         page.GetID(),
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
		Ratio:          CompressionRatio(originalSize, compressedSize),
		SpaceSavings:   SpaceSavings(originalSize, compressedSize),
		Algorithm:      cp.compressor.config.Algorithm.String(),
	}, nil
}
