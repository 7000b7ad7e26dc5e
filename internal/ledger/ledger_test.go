package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLedgerTests runs the shared ledger contract tests against an
// implementation. Both the in-memory and PostgreSQL ledgers must pass the
// same suite.
func RunLedgerTests(t *testing.T, initLedger func(t *testing.T) Ledger) {
	t.Run("GetAbsentKey", func(t *testing.T) {
		l := initLedger(t)
		value, err := l.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("PutThenGet", func(t *testing.T) {
		l := initLedger(t)
		ctx := context.Background()
		at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

		require.NoError(t, l.Put(ctx, "k1", []byte(`{"a":1}`), at))

		value, err := l.Get(ctx, "k1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(value))
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		l := initLedger(t)
		ctx := context.Background()
		at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

		require.NoError(t, l.Put(ctx, "k1", []byte(`{"v":1}`), at))
		require.NoError(t, l.Put(ctx, "k1", []byte(`{"v":2}`), at.Add(time.Second)))

		value, err := l.Get(ctx, "k1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(value))
	})

	t.Run("DeleteRemovesLiveEntry", func(t *testing.T) {
		l := initLedger(t)
		ctx := context.Background()
		at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

		require.NoError(t, l.Put(ctx, "k1", []byte(`{"v":1}`), at))
		require.NoError(t, l.Delete(ctx, "k1", at.Add(time.Second)))

		value, err := l.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("ScanReturnsKeyOrder", func(t *testing.T) {
		l := initLedger(t)
		ctx := context.Background()
		at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

		require.NoError(t, l.Put(ctx, "c", []byte(`{"v":3}`), at))
		require.NoError(t, l.Put(ctx, "a", []byte(`{"v":1}`), at))
		require.NoError(t, l.Put(ctx, "b", []byte(`{"v":2}`), at))

		pairs, err := l.Scan(ctx, "", "")
		require.NoError(t, err)
		require.Len(t, pairs, 3)
		assert.Equal(t, "a", pairs[0].Key)
		assert.Equal(t, "b", pairs[1].Key)
		assert.Equal(t, "c", pairs[2].Key)
	})

	t.Run("ScanHonorsBounds", func(t *testing.T) {
		l := initLedger(t)
		ctx := context.Background()
		at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

		for _, key := range []string{"a", "b", "c", "d"} {
			require.NoError(t, l.Put(ctx, key, []byte(`{}`), at))
		}

		// start inclusive, end exclusive
		pairs, err := l.Scan(ctx, "b", "d")
		require.NoError(t, err)
		require.Len(t, pairs, 2)
		assert.Equal(t, "b", pairs[0].Key)
		assert.Equal(t, "c", pairs[1].Key)

		pairs, err = l.Scan(ctx, "c", "")
		require.NoError(t, err)
		require.Len(t, pairs, 2)
		assert.Equal(t, "c", pairs[0].Key)
		assert.Equal(t, "d", pairs[1].Key)

		pairs, err = l.Scan(ctx, "", "b")
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "a", pairs[0].Key)
	})

	t.Run("ScanSkipsDeletedEntries", func(t *testing.T) {
		l := initLedger(t)
		ctx := context.Background()
		at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

		require.NoError(t, l.Put(ctx, "a", []byte(`{}`), at))
		require.NoError(t, l.Put(ctx, "b", []byte(`{}`), at))
		require.NoError(t, l.Delete(ctx, "a", at.Add(time.Second)))

		pairs, err := l.Scan(ctx, "", "")
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "b", pairs[0].Key)
	})

	t.Run("HistoryRecordsEveryRevision", func(t *testing.T) {
		l := initLedger(t)
		ctx := context.Background()
		at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

		require.NoError(t, l.Put(ctx, "k1", []byte(`{"v":1}`), at))
		require.NoError(t, l.Put(ctx, "k1", []byte(`{"v":2}`), at.Add(time.Second)))
		require.NoError(t, l.Delete(ctx, "k1", at.Add(2*time.Second)))

		revisions, err := l.History(ctx, "k1")
		require.NoError(t, err)
		require.Len(t, revisions, 3)

		assert.False(t, revisions[0].IsDelete)
		assert.JSONEq(t, `{"v":1}`, string(revisions[0].Value))
		assert.False(t, revisions[1].IsDelete)
		assert.JSONEq(t, `{"v":2}`, string(revisions[1].Value))
		assert.True(t, revisions[2].IsDelete)
		assert.Nil(t, revisions[2].Value)

		assert.NotEmpty(t, revisions[0].TxID)
		assert.NotEqual(t, revisions[0].TxID, revisions[1].TxID)
		assert.NotEqual(t, revisions[1].TxID, revisions[2].TxID)
	})

	t.Run("HistorySurvivesDeletion", func(t *testing.T) {
		l := initLedger(t)
		ctx := context.Background()
		at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

		require.NoError(t, l.Put(ctx, "k1", []byte(`{"v":1}`), at))
		require.NoError(t, l.Delete(ctx, "k1", at.Add(time.Second)))
		require.NoError(t, l.Put(ctx, "k1", []byte(`{"v":2}`), at.Add(2*time.Second)))

		revisions, err := l.History(ctx, "k1")
		require.NoError(t, err)
		require.Len(t, revisions, 3)
		assert.False(t, revisions[0].IsDelete)
		assert.True(t, revisions[1].IsDelete)
		assert.False(t, revisions[2].IsDelete)
	})

	t.Run("HistoryUnknownKeyIsEmpty", func(t *testing.T) {
		l := initLedger(t)
		revisions, err := l.History(context.Background(), "missing")
		require.NoError(t, err)
		assert.Empty(t, revisions)
	})
}
