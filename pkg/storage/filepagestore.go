package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mnohosten/bufferpoold/pkg/compression"
	"github.com/mnohosten/bufferpoold/pkg/encryption"
)

// DefaultPageSize is the on-disk block size; settable per store for
// tests (spec §6).
const DefaultPageSize = 4096

// filePage is the concrete Page implementation FilePageStore hands back.
// It carries raw bytes only — tuple/field layout is an out-of-scope
// external concern (spec §1).
type filePage struct {
	id       PageID
	data     []byte
	dirty    TransactionID
	isDirty  bool
}

func (p *filePage) GetID() PageID { return p.id }

func (p *filePage) IsDirty() (TransactionID, bool) {
	return p.dirty, p.isDirty
}

func (p *filePage) MarkDirty(dirty bool, tid TransactionID) {
	p.isDirty = dirty
	if dirty {
		p.dirty = tid
	} else {
		p.dirty = DirtyNone
	}
}

func (p *filePage) GetPageData() []byte { return p.data }

// FilePageStore is a concrete PageStore: one backing file per table
// under a data directory, pages at offset pageNumber*pageSize. It exists
// so BufferPool has something runnable to test against end-to-end
// (spec §6, §8 scenarios E4-E6); production heap-file codecs are out of
// scope for this core.
//
// Grounded on the teacher's pkg/storage/disk_manager.go (ReadAt/WriteAt
// at pageID*PageSize, os.O_CREATE|os.O_RDWR).
type FilePageStore struct {
	dir      string
	pageSize int
	mu       sync.Mutex
	files    map[int]*os.File

	compressor *compression.Compressor
	encryptor  *encryption.Encryptor
	ioTracker  IOTracker
}

// FilePageStoreOption configures optional on-disk transforms.
type FilePageStoreOption func(*FilePageStore) error

// WithIOTracker reports the byte size of every page read from or written
// to disk to t. Used to feed an admin server's resource metrics without
// this package depending on pkg/metrics.
func WithIOTracker(t IOTracker) FilePageStoreOption {
	return func(s *FilePageStore) error {
		s.ioTracker = t
		return nil
	}
}

// WithCompression compresses each page payload before it hits disk and
// decompresses it on read (pkg/compression, klauspost/compress).
func WithCompression(cfg *compression.Config) FilePageStoreOption {
	return func(s *FilePageStore) error {
		c, err := compression.NewCompressor(cfg)
		if err != nil {
			return fmt.Errorf("configure page compression: %w", err)
		}
		s.compressor = c
		return nil
	}
}

// WithEncryption encrypts each page payload at rest (pkg/encryption,
// AES-256-GCM with a PBKDF2-derived key), applied after compression.
func WithEncryption(cfg *encryption.Config) FilePageStoreOption {
	return func(s *FilePageStore) error {
		e, err := encryption.NewEncryptor(cfg)
		if err != nil {
			return fmt.Errorf("configure page encryption: %w", err)
		}
		// The frame header (4 bytes) plus the algorithm's fixed nonce/IV+tag
		// overhead must still fit inside one on-disk page slot.
		if overhead := e.Overhead(); 4+overhead >= s.pageSize {
			return fmt.Errorf("page size %d too small for encryption overhead of %d bytes", s.pageSize, overhead)
		}
		s.encryptor = e
		return nil
	}
}

// NewFilePageStore opens (creating if needed) a data directory backing
// one file per table id.
func NewFilePageStore(dir string, pageSize int, opts ...FilePageStoreOption) (*FilePageStore, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	s := &FilePageStore{
		dir:      dir,
		pageSize: pageSize,
		files:    make(map[int]*os.File),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FilePageStore) fileFor(tableID int) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[tableID]; ok {
		return f, nil
	}
	path := filepath.Join(s.dir, fmt.Sprintf("table-%d.page", tableID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open table file %s: %w", path, err)
	}
	s.files[tableID] = f
	return f, nil
}

// ReadPage reads pid's block from its table's backing file. A page past
// the current end of file reads back as a freshly zeroed page, matching
// the teacher's disk_manager.go "file is smaller => new page" behavior.
func (s *FilePageStore) ReadPage(pid PageID) (Page, error) {
	f, err := s.fileFor(pid.TableID)
	if err != nil {
		return nil, err
	}

	offset := int64(pid.PageNumber) * int64(s.pageSize)
	raw := make([]byte, s.pageSize)
	n, err := f.ReadAt(raw, offset)
	if err != nil && n < s.pageSize {
		// Short/EOF read: treat as a brand-new, all-zero page.
		return &filePage{id: pid, data: make([]byte, s.pageSize)}, nil
	}

	if s.ioTracker != nil {
		s.ioTracker.RecordRead(uint64(s.pageSize))
	}

	data, derr := s.decode(raw)
	if derr != nil {
		return nil, fmt.Errorf("decode page %s: %w", pid, derr)
	}
	return &filePage{id: pid, data: data}, nil
}

// WritePage writes page's current bytes to disk at its page's offset.
func (s *FilePageStore) WritePage(page Page) error {
	pid := page.GetID()
	f, err := s.fileFor(pid.TableID)
	if err != nil {
		return err
	}

	stored, eerr := s.encode(page.GetPageData())
	if eerr != nil {
		return fmt.Errorf("encode page %s: %w", pid, eerr)
	}

	// Stored blocks may be shorter than pageSize once compressed; pad so
	// every table file stays page-aligned for ReadAt/WriteAt arithmetic.
	block := make([]byte, s.pageSize)
	if len(stored) > s.pageSize {
		return fmt.Errorf("encoded page %s exceeds page size", pid)
	}
	copy(block, stored)

	offset := int64(pid.PageNumber) * int64(s.pageSize)
	if _, err := f.WriteAt(block, offset); err != nil {
		return fmt.Errorf("write page %s: %w", pid, err)
	}
	if s.ioTracker != nil {
		s.ioTracker.RecordWrite(uint64(len(block)))
	}
	return nil
}

// encode applies (compression, then encryption) if configured, prefixing
// a length so decode knows how much of the page-sized block is payload.
// With neither configured the page bytes are stored unframed.
func (s *FilePageStore) encode(raw []byte) ([]byte, error) {
	if s.compressor == nil && s.encryptor == nil {
		return raw, nil
	}
	payload := raw
	if s.compressor != nil {
		compressed, err := s.compressor.Compress(payload)
		if err != nil {
			return nil, err
		}
		payload = compressed
	}
	if s.encryptor != nil {
		encrypted, err := s.encryptor.Encrypt(payload)
		if err != nil {
			return nil, err
		}
		payload = encrypted
	}
	framed := make([]byte, 4+len(payload))
	framed[0] = byte(len(payload))
	framed[1] = byte(len(payload) >> 8)
	framed[2] = byte(len(payload) >> 16)
	framed[3] = byte(len(payload) >> 24)
	copy(framed[4:], payload)
	return framed, nil
}

func (s *FilePageStore) decode(block []byte) ([]byte, error) {
	if isAllZero(block) {
		return make([]byte, s.pageSize), nil
	}
	if s.compressor == nil && s.encryptor == nil {
		return block, nil
	}
	n := int(block[0]) | int(block[1])<<8 | int(block[2])<<16 | int(block[3])<<24
	if n < 0 || 4+n > len(block) {
		return nil, fmt.Errorf("corrupt page frame length %d", n)
	}
	payload := block[4 : 4+n]

	if s.encryptor != nil {
		decrypted, err := s.encryptor.Decrypt(payload)
		if err != nil {
			return nil, err
		}
		payload = decrypted
	}
	if s.compressor != nil {
		decompressed, err := s.compressor.Decompress(payload)
		if err != nil {
			return nil, err
		}
		payload = decompressed
	}
	return payload, nil
}

func isAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// Close flushes and closes every open table file.
func (s *FilePageStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, f := range s.files {
		if err := f.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.compressor != nil {
		if err := s.compressor.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
