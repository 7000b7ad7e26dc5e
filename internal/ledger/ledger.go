package ledger

import (
	"context"
	"time"
)

// KeyValue is one live ledger entry yielded by a range scan.
type KeyValue struct {
	Key   string
	Value []byte
}

// Revision is one entry of the append-only revision log kept per key.
// Tombstones (IsDelete true) carry no value.
type Revision struct {
	// TxID is the id of the transaction that produced this revision
	TxID string
	// Timestamp is the transaction timestamp of the revision
	Timestamp time.Time
	// IsDelete marks a deletion of the key
	IsDelete bool
	// Value is the serialized record at this revision, nil for tombstones
	Value []byte
}

// Ledger wraps the external key-value store backing the title registry.
// Put and Delete are atomic against the live state and append one revision
// to the per-key log; the log survives deletion of the live entry.
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Ledger=MockLedger
type Ledger interface {
	// Get returns the live value for key, or nil when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes the live value for key at the given transaction timestamp
	// and appends a revision
	Put(ctx context.Context, key string, value []byte, at time.Time) error
	// Delete removes the live entry for key at the given transaction
	// timestamp and appends a tombstone revision
	Delete(ctx context.Context, key string, at time.Time) error
	// Scan yields all live entries with startKey <= key < endKey in
	// ascending key order; empty bounds cover the whole keyspace
	Scan(ctx context.Context, startKey, endKey string) ([]KeyValue, error)
	// History returns every revision recorded for key in chronological
	// order, including revisions that predate a deletion
	History(ctx context.Context, key string) ([]Revision, error)
}
