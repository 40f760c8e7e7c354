package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/store"
	"github.com/bluecrabdb/bluecrab/internal/types"
)

func clockSeq(start time.Time, step time.Duration) store.Now {
	t := start
	first := true
	return func() time.Time {
		if first {
			first = false
			return t
		}
		t = t.Add(step)
		return t
	}
}

func TestSetInsertThenUpdate(t *testing.T) {
	s := store.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))

	outcome, err := s.Set("k", types.I32(1))
	require.NoError(t, err)
	assert.Equal(t, store.Inserted, outcome)

	outcome, err = s.Set("k", types.I32(2))
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)

	v, err := s.Get("k")
	require.NoError(t, err)
	n, ok := v.AsI64()
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func TestSetEmptyKeyInvalidArg(t *testing.T) {
	s := store.New()
	_, err := s.Set("", types.I32(1))
	assert.ErrorIs(t, err, bcerr.ErrInvalidArg)
}

func TestGetMissingNotFound(t *testing.T) {
	s := store.New()
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, bcerr.ErrNotFound)
}

func TestDeletePreservesOrder(t *testing.T) {
	s := store.New()
	_, _ = s.Set("a", types.I32(1))
	_, _ = s.Set("b", types.I32(2))
	_, _ = s.Set("c", types.I32(3))

	require.NoError(t, s.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, s.Keys())
	assert.False(t, s.Has("b"))
}

func TestDeleteMissingNotFound(t *testing.T) {
	s := store.New()
	assert.ErrorIs(t, s.Delete("missing"), bcerr.ErrNotFound)
}

func TestInsertionOrderPreservedAcrossUpdates(t *testing.T) {
	s := store.New()
	_, _ = s.Set("a", types.I32(1))
	_, _ = s.Set("b", types.I32(2))
	_, _ = s.Set("a", types.I32(99))
	assert.Equal(t, []string{"a", "b"}, s.Keys())
}

func TestClear(t *testing.T) {
	s := store.New()
	_, _ = s.Set("a", types.I32(1))
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("a"))
}

func TestMetadataParticipatesInHash(t *testing.T) {
	s := store.New()
	_, _ = s.Set("a", types.I32(1))
	before, err := s.GetEntry("a")
	require.NoError(t, err)

	require.NoError(t, s.SetMetadata("a", "note"))
	after, err := s.GetEntry("a")
	require.NoError(t, err)

	assert.NotEqual(t, before.Hash, after.Hash)
	meta, err := s.GetMetadata("a")
	require.NoError(t, err)
	assert.Equal(t, "note", meta)
}

func TestSetMetadataMissingNotFound(t *testing.T) {
	s := store.New()
	assert.ErrorIs(t, s.SetMetadata("missing", "x"), bcerr.ErrNotFound)
}

func TestGetReturnsDeepCopy(t *testing.T) {
	s := store.New()
	_, _ = s.Set("a", types.Any([]byte{1, 2, 3}))

	v1, err := s.Get("a")
	require.NoError(t, err)
	blob, _ := v1.AsBlob()
	blob[0] = 0xFF

	v2, err := s.Get("a")
	require.NoError(t, err)
	blob2, _ := v2.AsBlob()
	assert.Equal(t, byte(1), blob2[0])
}

func TestEntriesSnapshotDoesNotAliasLiveSet(t *testing.T) {
	s := store.New()
	_, _ = s.Set("a", types.I32(1))

	snapshot := s.Entries()
	_, _ = s.Set("a", types.I32(2))

	n, _ := snapshot[0].Value.AsI64()
	assert.Equal(t, int64(1), n)
}

func TestReplaceInstallsSnapshotOrder(t *testing.T) {
	s := store.New()
	_, _ = s.Set("a", types.I32(1))
	_, _ = s.Set("b", types.I32(2))
	snapshot := s.Entries()

	_, _ = s.Set("c", types.I32(3))
	require.NoError(t, s.Delete("a"))

	s.Replace(snapshot)
	assert.Equal(t, []string{"a", "b"}, s.Keys())
}

func TestFindKeysInsertionOrder(t *testing.T) {
	s := store.New()
	_, _ = s.Set("user_1", types.I32(1))
	_, _ = s.Set("user_2", types.I32(2))
	_, _ = s.Set("admin_1", types.I32(3))

	keys := s.FindKeys(func(k string) bool {
		return len(k) >= 5 && k[:5] == "user_"
	})
	assert.Equal(t, []string{"user_1", "user_2"}, keys)
}

func TestIdempotentSetLawExceptUpdatedAt(t *testing.T) {
	s := store.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	_, _ = s.Set("k", types.Str("v"))
	first, _ := s.GetEntry("k")

	_, _ = s.Set("k", types.Str("v"))
	second, _ := s.GetEntry("k")

	assert.Equal(t, first.Value, second.Value)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.NotEqual(t, first.Hash, second.Hash)

	v, _ := s.Get("k")
	str, _ := v.AsString()
	assert.Equal(t, "v", str)
}
