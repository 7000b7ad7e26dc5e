package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sogo28/chaincode-blockchain/internal/ledger/schema"
)

type pgLedger struct {
	db *gorm.DB
}

// NewPGLedger creates a new PostgreSQL-backed ledger instance
func NewPGLedger(db *gorm.DB) Ledger {
	return &pgLedger{db: db}
}

// Migrate creates or updates the ledger tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&schema.LedgerEntry{}, &schema.LedgerRevision{})
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m max lifetime, 10m max idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// Get returns the live value for key, or nil when the key is absent
func (l *pgLedger) Get(ctx context.Context, key string) ([]byte, error) {
	var entry schema.LedgerEntry
	err := l.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return []byte(entry.Value), nil
}

// Put upserts the live entry and appends a revision in one transaction
func (l *pgLedger) Put(ctx context.Context, key string, value []byte, at time.Time) error {
	entry := schema.LedgerEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: at,
	}
	revision := schema.LedgerRevision{
		TxID:      ulid.Make().String(),
		Key:       key,
		Value:     value,
		Timestamp: at,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error; err != nil {
			return err
		}
		return tx.Create(&revision).Error
	})
	if err != nil {
		return fmt.Errorf("failed to put ledger entry: %w", err)
	}

	return nil
}

// Delete removes the live entry and appends a tombstone in one transaction
func (l *pgLedger) Delete(ctx context.Context, key string, at time.Time) error {
	revision := schema.LedgerRevision{
		TxID:      ulid.Make().String(),
		Key:       key,
		IsDelete:  true,
		Timestamp: at,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ?", key).Delete(&schema.LedgerEntry{}).Error; err != nil {
			return err
		}
		return tx.Create(&revision).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}

	return nil
}

// Scan yields all live entries in ascending key order
func (l *pgLedger) Scan(ctx context.Context, startKey, endKey string) ([]KeyValue, error) {
	query := l.db.WithContext(ctx).Model(&schema.LedgerEntry{})
	if startKey != "" {
		query = query.Where("key >= ?", startKey)
	}
	if endKey != "" {
		query = query.Where("key < ?", endKey)
	}

	var entries []schema.LedgerEntry
	if err := query.Order("key ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}

	pairs := make([]KeyValue, 0, len(entries))
	for _, entry := range entries {
		pairs = append(pairs, KeyValue{Key: entry.Key, Value: []byte(entry.Value)})
	}

	return pairs, nil
}

// History returns every revision recorded for key in chronological order
func (l *pgLedger) History(ctx context.Context, key string) ([]Revision, error) {
	var rows []schema.LedgerRevision
	err := l.db.WithContext(ctx).
		Where("key = ?", key).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}

	revisions := make([]Revision, 0, len(rows))
	for _, row := range rows {
		rev := Revision{
			TxID:      row.TxID,
			Timestamp: row.Timestamp,
			IsDelete:  row.IsDelete,
		}
		if !row.IsDelete {
			rev.Value = []byte(row.Value)
		}
		revisions = append(revisions, rev)
	}

	return revisions, nil
}
