package storage

import (
	"errors"
	"fmt"
)

// ErrTransactionAborted is returned by BufferPool.GetPage when
// LockTable.TryAcquire could not acquire the lock before its per-call
// timeout elapsed. Callers must roll the transaction back with
// BufferPool.TransactionComplete(tid, false).
var ErrTransactionAborted = errors.New("transaction aborted: lock wait timed out")

// NewTransactionAbortedError wraps ErrTransactionAborted with the page and
// transaction that timed out, so callers can log or inspect the conflict
// without string-matching the error text.
func NewTransactionAbortedError(pid PageID, tid TransactionID) error {
	return fmt.Errorf("%w: %s could not acquire lock on %s", ErrTransactionAborted, tid, pid)
}

// DbErrorKind classifies structural failures surfaced by the core (spec
// §7's DbException taxonomy).
type DbErrorKind int

const (
	// AllPagesDirty is raised by evictPage when no clean page exists to
	// reclaim (no-steal leaves eviction with nothing to take).
	AllPagesDirty DbErrorKind = iota
	// MissingRecordID is raised by a caller-facing operator when a
	// tuple has no record id to delete/update.
	MissingRecordID
	// IteratorNotOpen is raised when a cursor/iterator is used before
	// open() or after close().
	IteratorNotOpen
	// InvalidArgument covers malformed constructor/method arguments.
	InvalidArgument
)

func (k DbErrorKind) String() string {
	switch k {
	case AllPagesDirty:
		return "AllPagesDirty"
	case MissingRecordID:
		return "MissingRecordID"
	case IteratorNotOpen:
		return "IteratorNotOpen"
	case InvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// DbError is the core's structural-failure error type (spec §7
// DbException). It is never retried internally; the caller decides what
// to do with it.
type DbError struct {
	Kind DbErrorKind
	Msg  string
}

func (e *DbError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newDbError(kind DbErrorKind, msg string) error {
	return &DbError{Kind: kind, Msg: msg}
}
