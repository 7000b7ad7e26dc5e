package schema

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEntry represents the ledger_entries table - the live state of the
// registry, one row per key currently present.
type LedgerEntry struct {
	// Key is the content hash identifying the record
	Key string `gorm:"column:key;primaryKey;type:text"`
	// Value is the serialized record as JSON
	Value datatypes.JSON `gorm:"column:value;not null;type:jsonb"`
	// UpdatedAt is the transaction timestamp of the latest write
	UpdatedAt time.Time `gorm:"column:updated_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the LedgerEntry model
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// LedgerRevision represents the ledger_revisions table - the append-only
// revision log. Rows are only ever inserted; deleting a live entry appends
// a tombstone here instead of erasing anything.
type LedgerRevision struct {
	// ID is the internal database primary key; insertion order is
	// chronological order
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TxID is the ULID of the transaction that produced this revision
	TxID string `gorm:"column:tx_id;not null;uniqueIndex;type:text"`
	// Key is the ledger key this revision belongs to
	Key string `gorm:"column:key;not null;index:idx_ledger_revisions_key;type:text"`
	// Value is the serialized record at this revision, null for tombstones
	Value datatypes.JSON `gorm:"column:value;type:jsonb"`
	// IsDelete marks a tombstone revision
	IsDelete bool `gorm:"column:is_delete;not null;default:false"`
	// Timestamp is the transaction timestamp of the revision
	Timestamp time.Time `gorm:"column:timestamp;not null;type:timestamptz"`
}

// TableName specifies the table name for the LedgerRevision model
func (LedgerRevision) TableName() string {
	return "ledger_revisions"
}
