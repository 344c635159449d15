package storage

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *FilePageStore {
	t.Helper()
	store, err := NewFilePageStore(t.TempDir(), 256)
	if err != nil {
		t.Fatalf("NewFilePageStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBufferPool_GetPageMissThenHit(t *testing.T) {
	store := newTestStore(t)
	pool := NewBufferPool(4, store, nil)
	pid := PageID{TableID: 1, PageNumber: 0}
	tid := NewTransactionID()

	if _, err := pool.GetPage(tid, pid, ReadOnly); err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if _, err := pool.GetPage(tid, pid, ReadOnly); err != nil {
		t.Fatalf("GetPage (second call): %v", err)
	}

	stats := pool.Stats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
}

func TestBufferPool_CommitFlushesDirtyPages(t *testing.T) {
	store := newTestStore(t)
	pool := NewBufferPool(4, store, nil)
	pid := PageID{TableID: 1, PageNumber: 0}
	tid := NewTransactionID()

	page, err := pool.GetPage(tid, pid, ReadWrite)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	copy(page.GetPageData(), []byte("hello"))
	pool.CachePage(tid, page)
	pool.TransactionComplete(tid, true)

	// A fresh pool reading the same store should see the flushed bytes.
	pool2 := NewBufferPool(4, store, nil)
	tid2 := NewTransactionID()
	reread, err := pool2.GetPage(tid2, pid, ReadOnly)
	if err != nil {
		t.Fatalf("GetPage after commit: %v", err)
	}
	if string(reread.GetPageData()[:5]) != "hello" {
		t.Errorf("reread data = %q, want \"hello\"", reread.GetPageData()[:5])
	}

	stats := pool.Stats()
	if stats.Commits != 1 {
		t.Errorf("Commits = %d, want 1", stats.Commits)
	}
}

func TestBufferPool_AbortDiscardsDirtyPages(t *testing.T) {
	store := newTestStore(t)
	pool := NewBufferPool(4, store, nil)
	pid := PageID{TableID: 1, PageNumber: 0}
	tid := NewTransactionID()

	page, err := pool.GetPage(tid, pid, ReadWrite)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	copy(page.GetPageData(), []byte("hello"))
	pool.CachePage(tid, page)
	pool.TransactionComplete(tid, false)

	tid2 := NewTransactionID()
	reread, err := pool.GetPage(tid2, pid, ReadOnly)
	if err != nil {
		t.Fatalf("GetPage after abort: %v", err)
	}
	for _, b := range reread.GetPageData()[:5] {
		if b != 0 {
			t.Fatalf("aborted page should read back as zeroed, got %v", reread.GetPageData()[:5])
		}
	}

	stats := pool.Stats()
	if stats.Aborts != 1 {
		t.Errorf("Aborts = %d, want 1", stats.Aborts)
	}
}

func TestBufferPool_TransactionCompleteReleasesLocks(t *testing.T) {
	store := newTestStore(t)
	pool := NewBufferPool(4, store, nil)
	pid := PageID{TableID: 1, PageNumber: 0}
	tid1 := NewTransactionID()

	if _, err := pool.GetPage(tid1, pid, ReadWrite); err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	pool.TransactionComplete(tid1, true)

	tid2 := NewTransactionID()
	if _, err := pool.GetPage(tid2, pid, ReadWrite); err != nil {
		t.Fatalf("a new transaction should acquire the lock once the old one completed: %v", err)
	}
}

func TestBufferPool_EvictPageAllDirtyReturnsError(t *testing.T) {
	store := newTestStore(t)
	pool := NewBufferPool(1, store, nil)
	pid := PageID{TableID: 1, PageNumber: 0}
	tid := NewTransactionID()

	page, err := pool.GetPage(tid, pid, ReadWrite)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	pool.CachePage(tid, page)

	err = pool.EvictPage()
	var dbErr *DbError
	if !errors.As(err, &dbErr) || dbErr.Kind != AllPagesDirty {
		t.Fatalf("EvictPage with only a dirty page cached = %v, want AllPagesDirty", err)
	}
}

func TestBufferPool_GetPageTimesOutUnderContention(t *testing.T) {
	store := newTestStore(t)
	pool := NewBufferPool(4, store, nil)
	pid := PageID{TableID: 1, PageNumber: 0}
	tid1 := NewTransactionID()
	tid2 := NewTransactionID()

	if _, err := pool.GetPage(tid1, pid, ReadWrite); err != nil {
		t.Fatalf("GetPage: %v", err)
	}

	_, err := pool.GetPage(tid2, pid, ReadWrite)
	if !errors.Is(err, ErrTransactionAborted) {
		t.Fatalf("GetPage under exclusive contention = %v, want ErrTransactionAborted", err)
	}

	stats := pool.Stats()
	if stats.Aborts != 1 {
		t.Errorf("Aborts = %d, want 1 after a timed-out GetPage", stats.Aborts)
	}
}

func TestBufferPool_DiscardPageRemovesWithoutTouchingLocks(t *testing.T) {
	store := newTestStore(t)
	pool := NewBufferPool(4, store, nil)
	pid := PageID{TableID: 1, PageNumber: 0}
	tid := NewTransactionID()

	if _, err := pool.GetPage(tid, pid, ReadOnly); err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	pool.DiscardPage(pid)

	if pool.Stats().Size != 0 {
		t.Errorf("Size = %d, want 0 after DiscardPage", pool.Stats().Size)
	}
	if !pool.HoldsLock(tid, pid) {
		t.Error("DiscardPage should not release the caller's lock")
	}
}

func TestBufferPool_CachedPagesSnapshot(t *testing.T) {
	store := newTestStore(t)
	pool := NewBufferPool(4, store, nil)
	pid := PageID{TableID: 1, PageNumber: 0}
	tid := NewTransactionID()

	if _, err := pool.GetPage(tid, pid, ReadOnly); err != nil {
		t.Fatalf("GetPage: %v", err)
	}

	pages := pool.CachedPages()
	if len(pages) != 1 || pages[0].ID != pid {
		t.Fatalf("CachedPages = %+v, want one entry for %v", pages, pid)
	}
}
