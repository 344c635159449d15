package storage

import (
	"fmt"
	"sync/atomic"
)

// PageID identifies a single fixed-size page within a table's backing file.
// Equality is by value: two PageIDs with the same TableID and PageNumber
// name the same page.
type PageID struct {
	TableID    int
	PageNumber int
}

func (p PageID) String() string {
	return fmt.Sprintf("page(%d:%d)", p.TableID, p.PageNumber)
}

// TransactionID uniquely identifies a logical transaction across its
// lifetime. The zero value is never issued by NewTransactionID, so it can
// be used as a "no transaction" sentinel by callers that need one.
type TransactionID uint64

var transactionSeq uint64

// NewTransactionID allocates a fresh, process-wide-unique TransactionID.
func NewTransactionID() TransactionID {
	return TransactionID(atomic.AddUint64(&transactionSeq, 1))
}

func (t TransactionID) String() string {
	return fmt.Sprintf("txn(%d)", uint64(t))
}
