package diffmerge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/diffmerge"
	"github.com/bluecrabdb/bluecrab/internal/types"
)

func entry(key, hash string) *types.Entry {
	return &types.Entry{Key: key, Value: types.Str(key), Hash: hash}
}

func TestDiffReportsRemovedModifiedAdded(t *testing.T) {
	a := []*types.Entry{entry("x", "H1"), entry("y", "H2")}
	b := []*types.Entry{entry("x", "H1B"), entry("z", "H3")}

	changes := diffmerge.Diff(a, b)

	require.Len(t, changes, 3)
	assert.Equal(t, diffmerge.Change{Key: "y", Kind: diffmerge.Removed}, changes[0])
	assert.Equal(t, diffmerge.Change{Key: "x", Kind: diffmerge.Modified}, changes[1])
	assert.Equal(t, diffmerge.Change{Key: "z", Kind: diffmerge.Added}, changes[2])
}

func TestDiffUnchangedNotReported(t *testing.T) {
	a := []*types.Entry{entry("x", "H1")}
	b := []*types.Entry{entry("x", "H1")}
	assert.Empty(t, diffmerge.Diff(a, b))
}

func TestDiffSymmetryLaw(t *testing.T) {
	a := []*types.Entry{entry("x", "H1"), entry("y", "H2")}
	b := []*types.Entry{entry("x", "H1B"), entry("z", "H3")}

	ab := diffmerge.Diff(a, b)
	ba := diffmerge.Diff(b, a)

	kindSwap := map[diffmerge.ChangeKind]diffmerge.ChangeKind{
		diffmerge.Removed:  diffmerge.Added,
		diffmerge.Added:    diffmerge.Removed,
		diffmerge.Modified: diffmerge.Modified,
	}

	require.Len(t, ba, len(ab))
	seen := make(map[string]diffmerge.ChangeKind)
	for _, c := range ba {
		seen[c.Key] = c.Kind
	}
	for _, c := range ab {
		assert.Equal(t, kindSwap[c.Kind], seen[c.Key])
	}
}

func TestMergeInsertsAbsentKeys(t *testing.T) {
	target := []*types.Entry{entry("a", "HA")}
	source := []*types.Entry{entry("a", "HA"), entry("b", "HB")}

	merged, conflicts, err := diffmerge.Merge(source, target, false)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Len(t, merged, 2)
}

func TestMergeAutoResolveSourceWins(t *testing.T) {
	target := []*types.Entry{entry("k", "HTARGET")}
	source := []*types.Entry{entry("k", "HSOURCE")}

	merged, conflicts, err := diffmerge.Merge(source, target, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, conflicts)
	require.Len(t, merged, 1)
	assert.Equal(t, "HSOURCE", merged[0].Hash)
}

func TestMergeWithoutAutoResolveAbortsWithNoPartialState(t *testing.T) {
	target := []*types.Entry{entry("k", "HTARGET"), entry("other", "HOTHER")}
	source := []*types.Entry{entry("k", "HSOURCE"), entry("new", "HNEW")}

	merged, conflicts, err := diffmerge.Merge(source, target, false)
	assert.ErrorIs(t, err, bcerr.ErrConflict)
	assert.Nil(t, merged)
	assert.Equal(t, []string{"k"}, conflicts)
}

func TestMergeResultDoesNotAliasTargetOrSource(t *testing.T) {
	target := []*types.Entry{entry("k", "HTARGET")}
	source := []*types.Entry{entry("k", "HSOURCE")}

	merged, _, err := diffmerge.Merge(source, target, true)
	require.NoError(t, err)

	merged[0].Hash = "MUTATED"
	assert.Equal(t, "HTARGET", target[0].Hash)
	assert.Equal(t, "HSOURCE", source[0].Hash)
}
