package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// memoryLedger is an in-memory Ledger used by tests and local development.
// It mirrors the PostgreSQL implementation's semantics: live entries plus
// a per-key append-only revision log that survives deletion.
type memoryLedger struct {
	mu        sync.RWMutex
	entries   map[string][]byte
	revisions map[string][]Revision
}

// NewMemoryLedger creates a new in-memory ledger instance
func NewMemoryLedger() Ledger {
	return &memoryLedger{
		entries:   make(map[string][]byte),
		revisions: make(map[string][]Revision),
	}
}

func (l *memoryLedger) Get(_ context.Context, key string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	value, ok := l.entries[key]
	if !ok {
		return nil, nil
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

func (l *memoryLedger) Put(_ context.Context, key string, value []byte, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)

	l.entries[key] = copied
	l.revisions[key] = append(l.revisions[key], Revision{
		TxID:      ulid.Make().String(),
		Timestamp: at,
		Value:     copied,
	})

	return nil
}

func (l *memoryLedger) Delete(_ context.Context, key string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, key)
	l.revisions[key] = append(l.revisions[key], Revision{
		TxID:      ulid.Make().String(),
		Timestamp: at,
		IsDelete:  true,
	})

	return nil
}

func (l *memoryLedger) Scan(_ context.Context, startKey, endKey string) ([]KeyValue, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.entries))
	for key := range l.entries {
		if startKey != "" && key < startKey {
			continue
		}
		if endKey != "" && key >= endKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]KeyValue, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, KeyValue{Key: key, Value: l.entries[key]})
	}

	return pairs, nil
}

func (l *memoryLedger) History(_ context.Context, key string) ([]Revision, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	revisions := make([]Revision, len(l.revisions[key]))
	copy(revisions, l.revisions[key])
	return revisions, nil
}
