package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sogo28/chaincode-blockchain/internal/domain"
	"github.com/Sogo28/chaincode-blockchain/internal/engine"
	"github.com/Sogo28/chaincode-blockchain/internal/ledger"
	"github.com/Sogo28/chaincode-blockchain/internal/mocks"
)

var baseTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type engineFixture struct {
	engine    engine.Engine
	ledger    ledger.Ledger
	clock     *mocks.MockClock
	publisher *mocks.MockPublisher
}

// newFixture wires an engine over the in-memory ledger with a mocked clock
// and publisher. The clock ticks one second per call so successive mutations
// get distinct timestamps.
func newFixture(t *testing.T) *engineFixture {
	ctrl := gomock.NewController(t)

	clock := mocks.NewMockClock(ctrl)
	current := baseTime
	clock.EXPECT().Now().DoAndReturn(func() time.Time {
		now := current
		current = current.Add(time.Second)
		return now
	}).AnyTimes()

	publisher := mocks.NewMockPublisher(ctrl)
	publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	l := ledger.NewMemoryLedger()
	return &engineFixture{
		engine:    engine.NewEngine(l, clock, publisher),
		ledger:    l,
		clock:     clock,
		publisher: publisher,
	}
}

func validMetadata(owner string) []byte {
	return []byte(fmt.Sprintf(`{"owner": %q, "region": "Thies"}`, owner))
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.engine.Create(ctx, "h1", "/docs/titre-h1.pdf", validMetadata("alice"))
	require.NoError(t, err)

	assert.Equal(t, "h1", record.ID)
	assert.Equal(t, "/docs/titre-h1.pdf", record.FilePath)
	assert.Equal(t, domain.RecordTypeTitle, record.RecordType)
	assert.Equal(t, "alice", record.Owner())
	assert.Equal(t, "Thies", record.Metadata.Attributes["region"])
	assert.Equal(t, baseTime, record.CreatedAt)
	assert.Equal(t, record.CreatedAt, record.UpdatedAt)

	require.Len(t, record.History, 1)
	entry := record.History[0]
	assert.Equal(t, domain.ActionCreation, entry.Action)
	assert.Equal(t, baseTime, entry.Timestamp)
	assert.Equal(t, "Title created for owner alice", entry.Details)
	assert.Nil(t, entry.Price)

	stored, err := f.engine.Read(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, record, stored)
}

func TestCreateEmptyID(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Create(context.Background(), "", "/docs/x.pdf", validMetadata("alice"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	_, err = f.engine.Create(ctx, "h1", "/docs/b.pdf", validMetadata("bob"))
	assert.ErrorIs(t, err, domain.ErrTitleAlreadyExists)

	// the rejected attempt must leave the original untouched
	record, err := f.engine.Read(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "alice", record.Owner())
	assert.Equal(t, "/docs/a.pdf", record.FilePath)
	assert.Len(t, record.History, 1)
}

func TestCreateMissingOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Create(context.Background(), "h1", "/docs/a.pdf", []byte(`{"region": "Dakar"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	live, existsErr := f.engine.Exists(context.Background(), "h1")
	require.NoError(t, existsErr)
	assert.False(t, live)
}

func TestCreateMalformedMetadata(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Create(context.Background(), "h1", "/docs/a.pdf", []byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReadNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Read(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTitleNotFound)
}

func TestExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	live, err := f.engine.Exists(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, live)

	_, err = f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	live, err = f.engine.Exists(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, live)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	record, err := f.engine.Update(ctx, "h1", []byte(`{"area": 50}`))
	require.NoError(t, err)

	// patch fields land, untouched fields survive, owner stays
	assert.Equal(t, "alice", record.Owner())
	assert.Equal(t, float64(50), record.Metadata.Attributes["area"])
	assert.Equal(t, "Thies", record.Metadata.Attributes["region"])

	require.Len(t, record.History, 2)
	entry := record.History[1]
	assert.Equal(t, domain.ActionUpdate, entry.Action)
	assert.Equal(t, "Metadata updated", entry.Details)
	assert.Nil(t, entry.Price)

	assert.Equal(t, baseTime, record.CreatedAt)
	assert.True(t, record.UpdatedAt.After(record.CreatedAt))
}

func TestUpdateOwnerChangeIsTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	record, err := f.engine.Update(ctx, "h1", []byte(`{"owner": "bob"}`))
	require.NoError(t, err)

	assert.Equal(t, "bob", record.Owner())
	require.Len(t, record.History, 2)
	entry := record.History[1]
	assert.Equal(t, domain.ActionTransfer, entry.Action)
	assert.Equal(t, "Ownership transferred from alice to bob", entry.Details)
	assert.Nil(t, entry.Price)
}

func TestUpdateRejectsEmptyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	_, err = f.engine.Update(ctx, "h1", []byte(`{"owner": ""}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	record, err := f.engine.Read(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "alice", record.Owner())
	assert.Len(t, record.History, 1)
}

func TestUpdateNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Update(context.Background(), "missing", []byte(`{"area": 50}`))
	assert.ErrorIs(t, err, domain.ErrTitleNotFound)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	record, err := f.engine.Transfer(ctx, "h1", "bob", 100)
	require.NoError(t, err)

	assert.Equal(t, "bob", record.Owner())
	require.Len(t, record.History, 2)
	entry := record.History[1]
	assert.Equal(t, domain.ActionTransfer, entry.Action)
	assert.Equal(t, "Ownership transferred from alice to bob", entry.Details)
	require.NotNil(t, entry.Price)
	assert.Equal(t, int64(100), *entry.Price)
}

func TestTransferZeroPriceRecordedAsAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	record, err := f.engine.Transfer(ctx, "h1", "bob", 0)
	require.NoError(t, err)

	require.Len(t, record.History, 2)
	assert.Nil(t, record.History[1].Price)
}

func TestTransferRejectsNegativePrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	_, err = f.engine.Transfer(ctx, "h1", "bob", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransferRejectsEmptyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	_, err = f.engine.Transfer(ctx, "h1", "", 100)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransferToCurrentOwnerRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	_, err = f.engine.Transfer(ctx, "h1", "alice", 100)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// no history entry for the rejected transfer
	record, err := f.engine.Read(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, record.History, 1)
}

func TestTransferNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Transfer(context.Background(), "missing", "bob", 100)
	assert.ErrorIs(t, err, domain.ErrTitleNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	confirmation, err := f.engine.Delete(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "h1", confirmation.ID)
	assert.Equal(t, "Title h1 deleted", confirmation.Message)

	_, err = f.engine.Read(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrTitleNotFound)

	live, err := f.engine.Exists(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, live)
}

func TestDeleteNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTitleNotFound)
}

func TestRecreateAfterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)
	_, err = f.engine.Delete(ctx, "h1")
	require.NoError(t, err)

	// the id is free again; the new record starts a fresh embedded history
	record, err := f.engine.Create(ctx, "h1", "/docs/b.pdf", validMetadata("carol"))
	require.NoError(t, err)
	assert.Equal(t, "carol", record.Owner())
	assert.Len(t, record.History, 1)

	// the ledger revision log kept the whole story, tombstone included
	revisions, err := f.engine.History(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, revisions, 3)
	assert.False(t, revisions[0].IsDelete)
	assert.True(t, revisions[1].IsDelete)
	assert.Nil(t, revisions[1].Record)
	assert.False(t, revisions[2].IsDelete)
	assert.Equal(t, "carol", revisions[2].Record.Owner())
}

func TestVerifyAuthenticity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.engine.VerifyAuthenticity(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "h1", result.ID)
	assert.False(t, result.IsAuthentic)

	_, err = f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	result, err = f.engine.VerifyAuthenticity(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, result.IsAuthentic)
}

func TestListByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, "h2", "/docs/b.pdf", validMetadata("bob"))
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, "h3", "/docs/c.pdf", validMetadata("alice"))
	require.NoError(t, err)

	records, err := f.engine.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "h1", records[0].ID)
	assert.Equal(t, "h3", records[1].ID)

	records, err = f.engine.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListByOwnerEmptyOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ListByOwner(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListByOwnerTracksTransfers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)
	_, err = f.engine.Transfer(ctx, "h1", "bob", 100)
	require.NoError(t, err)

	records, err := f.engine.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = f.engine.ListByOwner(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "h1", records[0].ID)
}

func TestListAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	records, err := f.engine.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = f.engine.Create(ctx, "h2", "/docs/b.pdf", validMetadata("bob"))
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	records, err = f.engine.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "h1", records[0].ID)
	assert.Equal(t, "h2", records[1].ID)
}

func TestListAllSkipsForeignRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)

	// a ledger entry of another record type and one that does not decode
	require.NoError(t, f.ledger.Put(ctx, "other-1", []byte(`{"id":"other-1","type":"AUTRE"}`), baseTime))
	require.NoError(t, f.ledger.Put(ctx, "broken-1", []byte(`garbage`), baseTime))

	records, err := f.engine.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "h1", records[0].ID)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)
	_, err = f.engine.Update(ctx, "h1", []byte(`{"area": 50}`))
	require.NoError(t, err)
	_, err = f.engine.Transfer(ctx, "h1", "bob", 100)
	require.NoError(t, err)

	revisions, err := f.engine.History(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, revisions, 3)

	// oldest first, each revision carrying the record as of that point
	require.NotNil(t, revisions[0].Record)
	assert.Equal(t, "alice", revisions[0].Record.Owner())
	assert.Len(t, revisions[0].Record.History, 1)

	require.NotNil(t, revisions[1].Record)
	assert.Equal(t, "alice", revisions[1].Record.Owner())
	assert.Len(t, revisions[1].Record.History, 2)

	require.NotNil(t, revisions[2].Record)
	assert.Equal(t, "bob", revisions[2].Record.Owner())
	assert.Len(t, revisions[2].Record.History, 3)

	for i, rev := range revisions {
		assert.NotEmpty(t, rev.TxID, "revision %d", i)
		assert.False(t, rev.IsDelete, "revision %d", i)
	}
	assert.True(t, revisions[0].Timestamp.Before(revisions[1].Timestamp))
	assert.True(t, revisions[1].Timestamp.Before(revisions[2].Timestamp))
}

func TestHistoryNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.History(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTitleNotFound)
}

func TestHistoryRequiresLiveTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)
	_, err = f.engine.Delete(ctx, "h1")
	require.NoError(t, err)

	// revisions survive in the ledger, but history is only served while live
	_, err = f.engine.History(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrTitleNotFound)
}

func TestEventsEmittedPerMutation(t *testing.T) {
	ctrl := gomock.NewController(t)

	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(baseTime).AnyTimes()

	var events []*domain.TitleEvent
	publisher := mocks.NewMockPublisher(ctrl)
	publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event *domain.TitleEvent) error {
			events = append(events, event)
			return nil
		}).AnyTimes()

	e := engine.NewEngine(ledger.NewMemoryLedger(), clock, publisher)
	ctx := context.Background()

	_, err := e.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)
	_, err = e.Update(ctx, "h1", []byte(`{"area": 50}`))
	require.NoError(t, err)
	_, err = e.Transfer(ctx, "h1", "bob", 100)
	require.NoError(t, err)
	_, err = e.Delete(ctx, "h1")
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, domain.EventTypeTitleCreated, events[0].Type)
	assert.Equal(t, domain.EventTypeTitleUpdated, events[1].Type)
	assert.Equal(t, domain.EventTypeTitleTransferred, events[2].Type)
	assert.Equal(t, domain.EventTypeTitleDeleted, events[3].Type)

	for _, event := range events {
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, "h1", event.TitleID)
		assert.Equal(t, baseTime, event.Timestamp)
	}

	transfer := events[2]
	assert.Equal(t, "alice", transfer.Payload["oldOwner"])
	assert.Equal(t, "bob", transfer.Payload["newOwner"])
	assert.Equal(t, int64(100), transfer.Payload["price"])
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	ctrl := gomock.NewController(t)

	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(baseTime).AnyTimes()

	publisher := mocks.NewMockPublisher(ctrl)
	publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("nats unavailable")).AnyTimes()

	e := engine.NewEngine(ledger.NewMemoryLedger(), clock, publisher)
	ctx := context.Background()

	record, err := e.Create(ctx, "h1", "/docs/a.pdf", validMetadata("alice"))
	require.NoError(t, err)
	assert.Equal(t, "h1", record.ID)

	stored, err := e.Read(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Owner())
}

// TestTitleLifecycle runs the full lifecycle of a single title end to end.
func TestTitleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.engine.Create(ctx, "h1", "/docs/titre-h1.pdf", []byte(`{"owner": "alice"}`))
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Owner())

	updated, err := f.engine.Update(ctx, "h1", []byte(`{"area": 50}`))
	require.NoError(t, err)
	assert.Equal(t, float64(50), updated.Metadata.Attributes["area"])

	transferred, err := f.engine.Transfer(ctx, "h1", "bob", 100)
	require.NoError(t, err)
	assert.Equal(t, "bob", transferred.Owner())
	assert.Equal(t, float64(50), transferred.Metadata.Attributes["area"])

	require.Len(t, transferred.History, 3)
	assert.Equal(t, domain.ActionCreation, transferred.History[0].Action)
	assert.Equal(t, domain.ActionUpdate, transferred.History[1].Action)
	assert.Equal(t, domain.ActionTransfer, transferred.History[2].Action)
	require.NotNil(t, transferred.History[2].Price)
	assert.Equal(t, int64(100), *transferred.History[2].Price)

	revisions, err := f.engine.History(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, revisions, 3)

	verification, err := f.engine.VerifyAuthenticity(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, verification.IsAuthentic)

	_, err = f.engine.Delete(ctx, "h1")
	require.NoError(t, err)

	verification, err = f.engine.VerifyAuthenticity(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, verification.IsAuthentic)
}
