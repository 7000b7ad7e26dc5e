package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sogo28/chaincode-blockchain/internal/adapter"
	"github.com/Sogo28/chaincode-blockchain/internal/domain"
	"github.com/Sogo28/chaincode-blockchain/internal/ledger"
	"github.com/Sogo28/chaincode-blockchain/internal/logger"
	"github.com/Sogo28/chaincode-blockchain/internal/messaging"
)

// Engine implements the title record lifecycle over the ledger. It is
// stateless between calls: all state lives in the ledger, each operation
// executes as a single unit against it, and serialization of concurrent
// conflicting operations on the same id is the ledger's concern.
//
//go:generate mockgen -source=engine.go -destination=../mocks/engine.go -package=mocks -mock_names=Engine=MockEngine
type Engine interface {
	// Create registers a new title under the given content hash
	Create(ctx context.Context, id, filePath string, metadataPayload []byte) (*domain.TitleRecord, error)
	// Read returns the live title, without side effects
	Read(ctx context.Context, id string) (*domain.TitleRecord, error)
	// Exists reports whether a live title exists for id
	Exists(ctx context.Context, id string) (bool, error)
	// Update shallow-merges a metadata patch into the title
	Update(ctx context.Context, id string, metadataPatch []byte) (*domain.TitleRecord, error)
	// Transfer moves ownership to newOwner, optionally recording a price
	Transfer(ctx context.Context, id, newOwner string, price int64) (*domain.TitleRecord, error)
	// Delete removes the live title; the ledger's revision log keeps a tombstone
	Delete(ctx context.Context, id string) (*domain.DeleteConfirmation, error)
	// VerifyAuthenticity reports whether a live title exists, absence included
	VerifyAuthenticity(ctx context.Context, id string) (*domain.VerificationResult, error)
	// ListByOwner returns all titles currently held by owner, in ledger key order
	ListByOwner(ctx context.Context, owner string) ([]*domain.TitleRecord, error)
	// ListAll returns all titles, in ledger key order
	ListAll(ctx context.Context) ([]*domain.TitleRecord, error)
	// History returns every ledger revision of the title, oldest first
	History(ctx context.Context, id string) ([]*domain.HistoryRevision, error)
}

type engine struct {
	ledger    ledger.Ledger
	clock     adapter.Clock
	publisher messaging.Publisher
}

// NewEngine creates a new title record engine with its collaborators.
func NewEngine(l ledger.Ledger, clock adapter.Clock, publisher messaging.Publisher) Engine {
	return &engine{
		ledger:    l,
		clock:     clock,
		publisher: publisher,
	}
}

// Create registers a new title under the given content hash
func (e *engine) Create(ctx context.Context, id, filePath string, metadataPayload []byte) (*domain.TitleRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id must not be empty", domain.ErrInvalidInput)
	}

	live, err := e.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if live {
		return nil, fmt.Errorf("%w: id %q", domain.ErrTitleAlreadyExists, id)
	}

	metadata, err := domain.ParseMetadata(metadataPayload)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	record := &domain.TitleRecord{
		ID:         id,
		FilePath:   filePath,
		RecordType: domain.RecordTypeTitle,
		Metadata:   metadata,
		History: []domain.HistoryEntry{{
			Action:    domain.ActionCreation,
			Timestamp: now,
			Details:   fmt.Sprintf("Title created for owner %s", metadata.Owner),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.persist(ctx, record, now); err != nil {
		return nil, err
	}

	e.emit(ctx, domain.EventTypeTitleCreated, id, map[string]any{
		"id":        id,
		"owner":     metadata.Owner,
		"timestamp": now,
	}, now)

	return record, nil
}

// Read returns the live title, without side effects
func (e *engine) Read(ctx context.Context, id string) (*domain.TitleRecord, error) {
	data, err := e.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: id %q", domain.ErrTitleNotFound, id)
	}

	var record domain.TitleRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode title %q: %w", id, err)
	}

	return &record, nil
}

// Exists reports whether a live title exists for id
func (e *engine) Exists(ctx context.Context, id string) (bool, error) {
	data, err := e.ledger.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// Update shallow-merges a metadata patch into the title. A patch that
// changes the owner is recorded as a TRANSFER, anything else as an UPDATE;
// exactly one history entry is appended either way.
func (e *engine) Update(ctx context.Context, id string, metadataPatch []byte) (*domain.TitleRecord, error) {
	record, err := e.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := domain.ParseMetadataPatch(metadataPatch)
	if err != nil {
		return nil, err
	}

	previousOwner := record.Owner()
	merged, err := record.Metadata.Merge(patch)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	entry := domain.HistoryEntry{
		Action:    domain.ActionUpdate,
		Timestamp: now,
		Details:   "Metadata updated",
	}
	if merged.Owner != previousOwner {
		entry.Action = domain.ActionTransfer
		entry.Details = fmt.Sprintf("Ownership transferred from %s to %s", previousOwner, merged.Owner)
	}

	record.Metadata = merged
	record.History = append(record.History, entry)
	record.UpdatedAt = now

	if err := e.persist(ctx, record, now); err != nil {
		return nil, err
	}

	e.emit(ctx, domain.EventTypeTitleUpdated, id, map[string]any{
		"id":        id,
		"owner":     record.Owner(),
		"timestamp": now,
	}, now)

	return record, nil
}

// Transfer moves ownership to newOwner. A transfer to the current owner is
// rejected, and a price is recorded in history only when greater than zero:
// a price of exactly zero is kept absent, matching the wire contract.
func (e *engine) Transfer(ctx context.Context, id, newOwner string, price int64) (*domain.TitleRecord, error) {
	record, err := e.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	if newOwner == "" {
		return nil, fmt.Errorf("%w: new owner must not be empty", domain.ErrInvalidInput)
	}
	if price < 0 {
		return nil, fmt.Errorf("%w: price must be a non-negative integer, got %d", domain.ErrInvalidInput, price)
	}

	previousOwner := record.Owner()
	if newOwner == previousOwner {
		return nil, fmt.Errorf("%w: title %q already belongs to %s", domain.ErrInvalidInput, id, newOwner)
	}

	now := e.clock.Now()
	entry := domain.HistoryEntry{
		Action:    domain.ActionTransfer,
		Timestamp: now,
		Details:   fmt.Sprintf("Ownership transferred from %s to %s", previousOwner, newOwner),
	}
	if price > 0 {
		entry.Price = &price
	}

	record.Metadata.Owner = newOwner
	record.History = append(record.History, entry)
	record.UpdatedAt = now

	if err := e.persist(ctx, record, now); err != nil {
		return nil, err
	}

	e.emit(ctx, domain.EventTypeTitleTransferred, id, map[string]any{
		"id":        id,
		"oldOwner":  previousOwner,
		"newOwner":  newOwner,
		"price":     price,
		"timestamp": now,
	}, now)

	return record, nil
}

// Delete removes the live title from the ledger. The revision log keeps
// every prior revision plus a tombstone, so the title's past stays
// reconstructible even though the live entry is gone.
func (e *engine) Delete(ctx context.Context, id string) (*domain.DeleteConfirmation, error) {
	record, err := e.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if err := e.ledger.Delete(ctx, id, now); err != nil {
		return nil, err
	}

	e.emit(ctx, domain.EventTypeTitleDeleted, id, map[string]any{
		"id":        id,
		"owner":     record.Owner(),
		"timestamp": now,
	}, now)

	return &domain.DeleteConfirmation{
		ID:        id,
		Message:   fmt.Sprintf("Title %s deleted", id),
		Timestamp: now,
	}, nil
}

// VerifyAuthenticity reports whether a live title exists for id. Absence is
// a reportable outcome, not an error.
func (e *engine) VerifyAuthenticity(ctx context.Context, id string) (*domain.VerificationResult, error) {
	live, err := e.Exists(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.VerificationResult{
		ID:          id,
		IsAuthentic: live,
		Timestamp:   e.clock.Now(),
	}, nil
}

// ListByOwner returns all titles currently held by owner, in ledger key order
func (e *engine) ListByOwner(ctx context.Context, owner string) ([]*domain.TitleRecord, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner must not be empty", domain.ErrInvalidInput)
	}
	return e.scanTitles(ctx, owner)
}

// ListAll returns all titles, in ledger key order
func (e *engine) ListAll(ctx context.Context) ([]*domain.TitleRecord, error) {
	return e.scanTitles(ctx, "")
}

// History returns every ledger revision of the title, oldest first. The
// revision log outlives deletion, but history is only served while a live
// title exists for the id.
func (e *engine) History(ctx context.Context, id string) ([]*domain.HistoryRevision, error) {
	live, err := e.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, fmt.Errorf("%w: id %q", domain.ErrTitleNotFound, id)
	}

	revisions, err := e.ledger.History(ctx, id)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.HistoryRevision, 0, len(revisions))
	for _, rev := range revisions {
		entry := &domain.HistoryRevision{
			TxID:      rev.TxID,
			Timestamp: rev.Timestamp,
			IsDelete:  rev.IsDelete,
		}
		if !rev.IsDelete {
			var record domain.TitleRecord
			if err := json.Unmarshal(rev.Value, &record); err != nil {
				logger.Warn("Skipping undecodable revision",
					zap.String("title_id", id),
					zap.String("tx_id", rev.TxID),
					zap.Error(err),
				)
				continue
			}
			entry.Record = &record
		}
		result = append(result, entry)
	}

	return result, nil
}

// scanTitles drains a full-range scan of the ledger, keeping entries that
// decode as title records (and match owner when given). Entries that fail
// to decode are skipped and logged, never failing the whole scan.
func (e *engine) scanTitles(ctx context.Context, owner string) ([]*domain.TitleRecord, error) {
	pairs, err := e.ledger.Scan(ctx, "", "")
	if err != nil {
		return nil, err
	}

	records := make([]*domain.TitleRecord, 0, len(pairs))
	for _, kv := range pairs {
		var record domain.TitleRecord
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			logger.Warn("Skipping undecodable ledger entry",
				zap.String("key", kv.Key),
				zap.Error(err),
			)
			continue
		}
		if record.RecordType != domain.RecordTypeTitle {
			continue
		}
		if owner != "" && record.Owner() != owner {
			continue
		}
		records = append(records, &record)
	}

	return records, nil
}

// persist writes the record back to the ledger under its id.
func (e *engine) persist(ctx context.Context, record *domain.TitleRecord, at time.Time) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode title %q: %w", record.ID, err)
	}
	return e.ledger.Put(ctx, record.ID, data, at)
}

// emit publishes a domain event. Emission is fire-and-forget: failures are
// logged and never fail the originating operation.
func (e *engine) emit(ctx context.Context, eventType domain.EventType, titleID string, payload map[string]any, at time.Time) {
	event := &domain.TitleEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		TitleID:   titleID,
		Payload:   payload,
		Timestamp: at,
	}

	if err := e.publisher.PublishEvent(ctx, event); err != nil {
		logger.Warn("Failed to publish title event",
			zap.String("event_type", string(eventType)),
			zap.String("title_id", titleID),
			zap.Error(err),
		)
	}
}
