package history_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/history"
	"github.com/bluecrabdb/bluecrab/internal/types"
)

func clockSeq(start time.Time, step time.Duration) history.Now {
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

func snapshotOf(keys ...string) []*types.Entry {
	out := make([]*types.Entry, len(keys))
	for i, k := range keys {
		out[i] = &types.Entry{Key: k, Value: types.I32(int32(i)), Hash: "HASH" + k}
	}
	return out
}

func TestCommitSetsParentAndAdvancesBranch(t *testing.T) {
	l := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))

	c1, err := l.Commit("first", snapshotOf("a"))
	require.NoError(t, err)
	assert.Equal(t, "", c1.ParentID)
	assert.Equal(t, "main", c1.BranchName)

	c2, err := l.Commit("second", snapshotOf("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ParentID)
	assert.Equal(t, c2.ID, l.CurrentCommit())

	tip, ok := l.BranchTip("main")
	require.True(t, ok)
	assert.Equal(t, c2.ID, tip)
}

func TestCommitEmptyMessageInvalidArg(t *testing.T) {
	l := history.New()
	_, err := l.Commit("", snapshotOf("a"))
	assert.ErrorIs(t, err, bcerr.ErrInvalidArg)
}

func TestCheckoutDoesNotChangeBranch(t *testing.T) {
	l := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c1, _ := l.Commit("A", snapshotOf("a"))
	_, _ = l.Commit("B", snapshotOf("a", "b"))

	got, err := l.Checkout(c1.ID)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, got.ID)
	assert.Equal(t, "main", l.CurrentBranch())
	assert.Equal(t, c1.ID, l.CurrentCommit())
}

func TestCheckoutUnknownNotFound(t *testing.T) {
	l := history.New()
	_, err := l.Checkout("nope")
	assert.ErrorIs(t, err, bcerr.ErrNotFound)
}

func TestLogEntriesNewestFirst(t *testing.T) {
	l := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c1, _ := l.Commit("A", snapshotOf("a"))
	c2, _ := l.Commit("B", snapshotOf("a", "b"))
	c3, _ := l.Commit("C", snapshotOf("a", "b", "c"))

	entries := l.LogEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{c3.ID, c2.ID, c1.ID}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestBranchCreatesLazilyAtCurrentCommit(t *testing.T) {
	l := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c1, _ := l.Commit("A", snapshotOf("a"))

	require.NoError(t, l.Branch("feature"))
	assert.Equal(t, "feature", l.CurrentBranch())
	assert.Equal(t, c1.ID, l.CurrentCommit())

	tip, ok := l.BranchTip("feature")
	require.True(t, ok)
	assert.Equal(t, c1.ID, tip)
}

func TestBranchSwitchRestoresTip(t *testing.T) {
	l := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c1, _ := l.Commit("A", snapshotOf("a"))
	require.NoError(t, l.Branch("feature"))
	c2, _ := l.Commit("B", snapshotOf("a", "b"))

	require.NoError(t, l.Branch("main"))
	assert.Equal(t, c1.ID, l.CurrentCommit())

	require.NoError(t, l.Branch("feature"))
	assert.Equal(t, c2.ID, l.CurrentCommit())
}

func TestBranchEmptyNameInvalidArg(t *testing.T) {
	l := history.New()
	assert.ErrorIs(t, l.Branch(""), bcerr.ErrInvalidArg)
}

func TestTagCommitAndLookup(t *testing.T) {
	l := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c1, _ := l.Commit("A", snapshotOf("a"))

	require.NoError(t, l.TagCommit(c1.ID, "v1"))
	got, err := l.GetTaggedCommit("v1")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, got)
}

func TestTagCommitUnknownCommitNotFound(t *testing.T) {
	l := history.New()
	assert.ErrorIs(t, l.TagCommit("nope", "v1"), bcerr.ErrNotFound)
}

func TestTagRebindReplaces(t *testing.T) {
	l := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c1, _ := l.Commit("A", snapshotOf("a"))
	c2, _ := l.Commit("B", snapshotOf("a", "b"))

	require.NoError(t, l.TagCommit(c1.ID, "v1"))
	require.NoError(t, l.TagCommit(c2.ID, "v1"))

	got, err := l.GetTaggedCommit("v1")
	require.NoError(t, err)
	assert.Equal(t, c2.ID, got)
}

func TestGetTaggedCommitUnknownNotFound(t *testing.T) {
	l := history.New()
	_, err := l.GetTaggedCommit("nope")
	assert.ErrorIs(t, err, bcerr.ErrNotFound)
}

func TestCommitIDChangesWithMessageLaw(t *testing.T) {
	l1 := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c1, _ := l1.Commit("message-a", snapshotOf("a"))

	l2 := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c2, _ := l2.Commit("message-b", snapshotOf("a"))

	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestRestoreRebuildsState(t *testing.T) {
	l := history.NewWithClock(clockSeq(time.Unix(0, 0), time.Second))
	c1, _ := l.Commit("A", snapshotOf("a"))
	require.NoError(t, l.TagCommit(c1.ID, "v1"))

	restored := history.Restore(l.AllCommits(), map[string]string{"main": c1.ID}, "main", c1.ID, l.ListTags())

	assert.Equal(t, c1.ID, restored.CurrentCommit())
	assert.Equal(t, "main", restored.CurrentBranch())

	got, err := restored.GetTaggedCommit("v1")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, got)

	found, err := restored.FindCommit(c1.ID)
	require.NoError(t, err)
	assert.Equal(t, c1.Message, found.Message)
}
