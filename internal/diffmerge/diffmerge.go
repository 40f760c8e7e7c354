// Package diffmerge implements a set-difference over two snapshots by
// key and entry hash, and a two-snapshot merge that resets to the
// target and overlays the source, either auto-resolving conflicts or
// aborting with no partial state. The report is built deterministic and
// sorted; "detect" is kept separate from "apply" so an abort never
// touches the target. Conflicts are whole-entry, not per-field.
package diffmerge

import (
	"sort"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/types"
)

// ChangeKind classifies one key's change between two snapshots.
type ChangeKind int

const (
	Removed ChangeKind = iota
	Modified
	Added
)

func (k ChangeKind) String() string {
	switch k {
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case Added:
		return "added"
	default:
		return "unknown"
	}
}

// Change is one reported key difference between snapshot a and snapshot b.
type Change struct {
	Key  string
	Kind ChangeKind
}

// Diff compares snapshots a and b by key and entry hash. Output is a
// deterministic sequence in three segments — removed,
// modified, added — each sorted by key; unchanged keys are not reported.
func Diff(a, b []*types.Entry) []Change {
	aHash := hashByKey(a)
	bHash := hashByKey(b)

	var removedKeys, modifiedKeys, addedKeys []string
	for k := range aHash {
		if _, ok := bHash[k]; !ok {
			removedKeys = append(removedKeys, k)
		}
	}
	for k, bh := range bHash {
		ah, ok := aHash[k]
		switch {
		case !ok:
			addedKeys = append(addedKeys, k)
		case ah != bh:
			modifiedKeys = append(modifiedKeys, k)
		}
	}
	sort.Strings(removedKeys)
	sort.Strings(modifiedKeys)
	sort.Strings(addedKeys)

	out := make([]Change, 0, len(removedKeys)+len(modifiedKeys)+len(addedKeys))
	for _, k := range removedKeys {
		out = append(out, Change{Key: k, Kind: Removed})
	}
	for _, k := range modifiedKeys {
		out = append(out, Change{Key: k, Kind: Modified})
	}
	for _, k := range addedKeys {
		out = append(out, Change{Key: k, Kind: Added})
	}
	return out
}

func hashByKey(entries []*types.Entry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Hash
	}
	return m
}

// Merge resets to target's snapshot and overlays source's entries onto
// it. For each key in source: if absent from target, it is inserted; if
// present with a differing entry hash, it is a conflict.
//
// With autoResolve, source wins every conflict and Merge returns the
// merged snapshot plus the list of keys that were auto-resolved (empty if
// none). Without autoResolve, any conflict aborts the whole merge: Merge
// returns a nil snapshot, the conflicting keys, and an error wrapping
// bcerr.ErrConflict; no partial snapshot is ever produced, and neither
// input slice is modified.
func Merge(source, target []*types.Entry, autoResolve bool) (merged []*types.Entry, conflicts []string, err error) {
	working := types.CloneEntries(target)
	index := make(map[string]int, len(working))
	for i, e := range working {
		index[e.Key] = i
	}

	var conflictKeys []string
	for _, se := range source {
		i, ok := index[se.Key]
		if ok && working[i].Hash != se.Hash {
			conflictKeys = append(conflictKeys, se.Key)
		}
	}
	sort.Strings(conflictKeys)

	if len(conflictKeys) > 0 && !autoResolve {
		return nil, conflictKeys, bcerr.Wrap("diffmerge.Merge", bcerr.ErrConflict, nil)
	}

	for _, se := range source {
		i, ok := index[se.Key]
		if !ok {
			index[se.Key] = len(working)
			working = append(working, se.Clone())
			continue
		}
		if working[i].Hash != se.Hash {
			working[i] = se.Clone()
		}
	}

	return working, conflictKeys, nil
}
