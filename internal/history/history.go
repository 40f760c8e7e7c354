// Package history implements the commit log and the branch/tag
// registry: an append-only list of commits linked by parent_id, a set
// of named branch pointers with one "current" branch, and a set of
// named tag pointers. All three are fields of a single Log value scoped
// to one database handle; there is no package-level state.
package history

import (
	"time"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/hashing"
	"github.com/bluecrabdb/bluecrab/internal/types"
)

const mainBranch = "main"

// Now is the log's time source, overridable in tests.
type Now func() time.Time

// Log owns the commit DAG, the branch registry, and the tag registry for
// one database handle.
type Log struct {
	commits         []*types.Commit
	byID            map[string]*types.Commit
	branchTips      map[string]string // branch name -> tip commit id ("" if empty)
	currentBranch   string
	currentCommitID string // "" before the first commit or while the current branch has no tip
	tags            map[string]string // tag name -> commit id
	now             Now
}

// New returns a Log with a single branch, "main", pointing at no commit.
func New() *Log {
	return &Log{
		byID:          make(map[string]*types.Commit),
		branchTips:    map[string]string{mainBranch: ""},
		currentBranch: mainBranch,
		tags:          make(map[string]string),
		now:           time.Now,
	}
}

// NewWithClock returns an empty Log using a caller-supplied clock.
func NewWithClock(now Now) *Log {
	l := New()
	l.now = now
	return l
}

// Commit captures snapshot as a new commit on the current branch.
// snapshot's entries must already be a deep copy owned by the caller
// (internal/store.Entries does this); Commit takes its own copy on top
// so the stored snapshot never aliases the caller's slice either.
func (l *Log) Commit(message string, snapshot []*types.Entry) (*types.Commit, error) {
	if message == "" {
		return nil, bcerr.Wrap("history.Commit", bcerr.ErrInvalidArg, nil)
	}
	parentID := l.branchTips[l.currentBranch]
	timestamp := l.now()

	hashes := make([]string, len(snapshot))
	for i, e := range snapshot {
		hashes[i] = e.Hash
	}
	id := hashing.CommitID(parentID, message, timestamp.UnixNano(), hashes)

	c := &types.Commit{
		ID:         id,
		ParentID:   parentID,
		BranchName: l.currentBranch,
		Message:    message,
		Timestamp:  timestamp,
		Snapshot:   types.CloneEntries(snapshot),
	}
	l.commits = append(l.commits, c)
	l.byID[id] = c
	l.branchTips[l.currentBranch] = id
	l.currentCommitID = id
	return c.Clone(), nil
}

// FindCommit locates a commit by id through the id index. Fails with
// NotFound if unknown.
func (l *Log) FindCommit(id string) (*types.Commit, error) {
	c, ok := l.byID[id]
	if !ok {
		return nil, bcerr.Wrap("history.FindCommit", bcerr.ErrNotFound, nil)
	}
	return c.Clone(), nil
}

// Checkout moves the current commit pointer to id without changing the
// current branch. Fails with NotFound if id is unknown.
func (l *Log) Checkout(id string) (*types.Commit, error) {
	c, err := l.FindCommit(id)
	if err != nil {
		return nil, bcerr.Wrap("history.Checkout", bcerr.ErrNotFound, err)
	}
	l.currentCommitID = id
	return c, nil
}

// LogEntries yields the commits on the current branch reachable through
// parent_id links, newest first.
func (l *Log) LogEntries() []*types.Commit {
	var out []*types.Commit
	id := l.branchTips[l.currentBranch]
	for id != "" {
		c, ok := l.byID[id]
		if !ok {
			break
		}
		out = append(out, c.Clone())
		id = c.ParentID
	}
	return out
}

// Branch switches the current branch to name, creating it lazily if
// absent. A newly created branch starts at the database's current
// commit; switching to an existing branch restores its own tip.
func (l *Log) Branch(name string) error {
	if name == "" {
		return bcerr.Wrap("history.Branch", bcerr.ErrInvalidArg, nil)
	}
	if _, ok := l.branchTips[name]; !ok {
		l.branchTips[name] = l.currentCommitID
	}
	l.currentBranch = name
	l.currentCommitID = l.branchTips[name]
	return nil
}

// CurrentBranch returns the name of the current branch.
func (l *Log) CurrentBranch() string {
	return l.currentBranch
}

// ListBranches returns every branch name, in no particular order; callers
// that need a stable order should sort the result.
func (l *Log) ListBranches() []string {
	out := make([]string, 0, len(l.branchTips))
	for name := range l.branchTips {
		out = append(out, name)
	}
	return out
}

// CurrentCommit returns the current commit id, or "" before the first
// commit.
func (l *Log) CurrentCommit() string {
	return l.currentCommitID
}

// SetCurrentCommit forces the current commit pointer without touching the
// branch registry.
func (l *Log) SetCurrentCommit(id string) {
	l.currentCommitID = id
}

// BranchTip returns the tip commit id of the branch called name, and
// whether that branch exists.
func (l *Log) BranchTip(name string) (string, bool) {
	id, ok := l.branchTips[name]
	return id, ok
}

// SetBranchTip sets name's tip to id, creating the branch if absent.
func (l *Log) SetBranchTip(name, id string) {
	l.branchTips[name] = id
}

// TagCommit binds tagName to commitID, replacing any existing binding.
// Fails with NotFound if commitID is unknown.
func (l *Log) TagCommit(commitID, tagName string) error {
	if _, ok := l.byID[commitID]; !ok {
		return bcerr.Wrap("history.TagCommit", bcerr.ErrNotFound, nil)
	}
	l.tags[tagName] = commitID
	return nil
}

// GetTaggedCommit returns the commit id bound to tagName. Fails with
// NotFound if no such tag exists.
func (l *Log) GetTaggedCommit(tagName string) (string, error) {
	id, ok := l.tags[tagName]
	if !ok {
		return "", bcerr.Wrap("history.GetTaggedCommit", bcerr.ErrNotFound, nil)
	}
	return id, nil
}

// ListTags returns a copy of the tag-name to commit-id mapping.
func (l *Log) ListTags() map[string]string {
	out := make(map[string]string, len(l.tags))
	for k, v := range l.tags {
		out[k] = v
	}
	return out
}

// AllCommits returns every commit ever made, in creation order. Used by
// persistence.
func (l *Log) AllCommits() []*types.Commit {
	out := make([]*types.Commit, len(l.commits))
	for i, c := range l.commits {
		out[i] = c.Clone()
	}
	return out
}

// Restore rebuilds a Log's internal state from persisted fields (used by
// the persistence codec's load()). commits must already be in creation
// order; it takes ownership of none of its arguments, deep-copying as it
// goes.
func Restore(commits []*types.Commit, branchTips map[string]string, currentBranch, currentCommitID string, tags map[string]string) *Log {
	l := New()
	l.commits = make([]*types.Commit, len(commits))
	l.byID = make(map[string]*types.Commit, len(commits))
	for i, c := range commits {
		cp := c.Clone()
		l.commits[i] = cp
		l.byID[cp.ID] = cp
	}
	l.branchTips = make(map[string]string, len(branchTips))
	for k, v := range branchTips {
		l.branchTips[k] = v
	}
	if _, ok := l.branchTips[mainBranch]; !ok {
		l.branchTips[mainBranch] = ""
	}
	l.currentBranch = currentBranch
	l.currentCommitID = currentCommitID
	l.tags = make(map[string]string, len(tags))
	for k, v := range tags {
		l.tags[k] = v
	}
	return l
}
