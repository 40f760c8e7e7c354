// Package bluecrab implements an embedded, single-process key/value store
// with a typed value model and a Git-style versioned history layered on
// top: a content hash chain, commit/branch/tag history, diff/merge, and
// durable snapshot persistence.
//
// A Database is single-writer, single-threaded (see internal/writeguard):
// concurrent mutators are rejected with an error rather than raced.
package bluecrab

import (
	"context"
	"fmt"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/codec"
	"github.com/bluecrabdb/bluecrab/internal/config"
	"github.com/bluecrabdb/bluecrab/internal/diffmerge"
	"github.com/bluecrabdb/bluecrab/internal/hashing"
	"github.com/bluecrabdb/bluecrab/internal/history"
	"github.com/bluecrabdb/bluecrab/internal/pattern"
	"github.com/bluecrabdb/bluecrab/internal/store"
	"github.com/bluecrabdb/bluecrab/internal/telemetry"
	"github.com/bluecrabdb/bluecrab/internal/types"
	"github.com/bluecrabdb/bluecrab/internal/writeguard"
)

// Re-exported error sentinels, so callers never need to import
// internal/bcerr directly.
var (
	ErrInvalidArg   = bcerr.ErrInvalidArg
	ErrNotFound     = bcerr.ErrNotFound
	ErrConflict     = bcerr.ErrConflict
	ErrIO           = bcerr.ErrIO
	ErrCorrupt      = bcerr.ErrCorrupt
	ErrTypeMismatch = bcerr.ErrTypeMismatch
	ErrUnsupported  = bcerr.ErrUnsupported
)

// Value is the tagged-union cell value. Re-exported from internal/types
// so callers construct values via bluecrab.I32(...) etc.
type Value = types.Value

// Entry is a single key/value row with timestamps, metadata, and hash.
type Entry = types.Entry

// Commit is a frozen snapshot plus identifying metadata.
type Commit = types.Commit

// Value constructors, one per supported type.
var (
	Null     = types.Null
	I8       = types.I8
	I16      = types.I16
	I32      = types.I32
	I64      = types.I64
	U8       = types.U8
	U16      = types.U16
	U32      = types.U32
	U64      = types.U64
	F32      = types.F32
	F64      = types.F64
	Bool     = types.Bool
	Char     = types.Char
	Str      = types.Str
	Size     = types.Size
	DateTime = types.DateTime
	Duration = types.Duration
	Hex      = types.Hex
	Oct      = types.Oct
	Bin      = types.Bin
	Any      = types.Any
)

// SetOutcome reports whether Set inserted a new entry or updated an
// existing one.
type SetOutcome = store.Outcome

const (
	Inserted = store.Inserted
	Updated  = store.Updated
)

// ChangeKind classifies one key's change in a DiffReport.
type ChangeKind = diffmerge.ChangeKind

const (
	Removed  = diffmerge.Removed
	Modified = diffmerge.Modified
	Added    = diffmerge.Added
)

// Change is one reported key difference between two commits.
type Change = diffmerge.Change

// MergeResult reports the outcome of a successful merge: the new commit
// and the keys that were auto-resolved in source's favor (empty if the
// merge introduced no conflicts at all).
type MergeResult struct {
	Commit           *Commit
	AutoResolvedKeys []string
}

// HistoryEntry records one commit's value for a key, as returned by
// Database.History.
type HistoryEntry struct {
	CommitID  string
	Message   string
	Value     Value
	HadKey    bool // false if the key did not exist in this commit's snapshot
}

// Logger is re-exported from internal/config so embedders don't need to
// import it directly.
type Logger = config.Logger

// Options configures a Database. See internal/config.Options.
type Options = config.Options

// DefaultOptions returns zero-cap (unlimited), telemetry-off options.
func DefaultOptions() Options { return config.DefaultOptions() }

// LoadOptionsFile decodes a TOML options file. See internal/config.
func LoadOptionsFile(path string) (Options, error) { return config.LoadOptionsFile(path) }

// Database aggregates the live entry set, commit log, branch registry,
// tag registry, and storage path for one Blue Crab database handle. The
// zero value is not usable; construct one with Init.
type Database struct {
	path    string
	opts    Options
	entries *store.Store
	log     *history.Log
	guard   *writeguard.Guard
}

// Init creates an empty database bound to path. No file is written until
// Save is called; persistence is always an explicit operation.
func Init(path string, opts Options) (*Database, error) {
	if path == "" {
		return nil, bcerr.Wrap("bluecrab.Init", bcerr.ErrInvalidArg, nil)
	}
	db := &Database{
		path:    path,
		opts:    opts,
		entries: store.New(),
		log:     history.New(),
		guard:   writeguard.New(),
	}
	db.opts.Notify("init", map[string]any{"path": path})
	return db, nil
}

func (db *Database) span(ctx context.Context, op string) (context.Context, func(error)) {
	return telemetry.SpanIf(ctx, db.opts.TelemetryEnabled, op)
}

func (db *Database) checkCap(label string, n, max int) error {
	if max > 0 && n > max {
		return bcerr.Wrap(fmt.Sprintf("bluecrab.%s", label), bcerr.ErrInvalidArg, nil)
	}
	return nil
}

// Set inserts or updates key's value. Returns Inserted or Updated. Fails
// with ErrInvalidArg if key is empty or exceeds a configured size cap.
func (db *Database) Set(ctx context.Context, key string, v Value) (SetOutcome, error) {
	_, end := db.span(ctx, "set")
	var err error
	defer func() { end(err) }()

	if err = db.checkCap("Set", len(key), db.opts.MaxKeyBytes); err != nil {
		return 0, err
	}
	if db.opts.MaxValueBytes > 0 {
		if err = db.checkCap("Set", len(v.CanonicalBytes(nil)), db.opts.MaxValueBytes); err != nil {
			return 0, err
		}
	}

	var outcome SetOutcome
	err = db.guard.WithWrite(func() error {
		var serr error
		outcome, serr = db.entries.Set(key, v)
		return serr
	})
	if err != nil {
		if bcerr.Is(err, bcerr.ErrConflict) {
			return 0, err
		}
		err = bcerr.Wrap("bluecrab.Set", bcerr.ErrInvalidArg, err)
		return 0, err
	}
	return outcome, nil
}

// Get returns a deep copy of key's value. Fails with ErrNotFound if
// absent.
func (db *Database) Get(ctx context.Context, key string) (Value, error) {
	_, end := db.span(ctx, "get")
	var err error
	defer func() { end(err) }()
	var v Value
	v, err = db.entries.Get(key)
	return v, err
}

// GetEntry returns a deep copy of key's whole entry.
func (db *Database) GetEntry(ctx context.Context, key string) (*Entry, error) {
	return db.entries.GetEntry(key)
}

// Delete removes key. Fails with ErrNotFound if absent.
func (db *Database) Delete(ctx context.Context, key string) error {
	_, end := db.span(ctx, "delete")
	err := db.guard.WithWrite(func() error { return db.entries.Delete(key) })
	end(err)
	return err
}

// Has reports key's membership in the live set.
func (db *Database) Has(key string) bool {
	return db.entries.Has(key)
}

// Clear removes every live entry, without touching commit history. Fails
// with ErrConflict if another writer currently holds the write ticket.
func (db *Database) Clear() error {
	return db.guard.WithWrite(func() error {
		db.entries.Clear()
		return nil
	})
}

// SetMetadata associates a free-form annotation with key.
func (db *Database) SetMetadata(ctx context.Context, key, metadata string) error {
	if err := db.checkCap("SetMetadata", len(metadata), db.opts.MaxMetadataBytes); err != nil {
		return err
	}
	return db.guard.WithWrite(func() error { return db.entries.SetMetadata(key, metadata) })
}

// GetMetadata returns key's annotation.
func (db *Database) GetMetadata(key string) (string, error) {
	return db.entries.GetMetadata(key)
}

// FindKeys returns the keys matching pattern, in insertion order.
func (db *Database) FindKeys(p string) []string {
	return db.entries.FindKeys(func(key string) bool { return pattern.Match(p, key) })
}

// FindEntries returns deep copies of the entries whose key matches
// pattern, in insertion order.
func (db *Database) FindEntries(p string) []*Entry {
	return db.entries.FindEntries(func(key string) bool { return pattern.Match(p, key) })
}

// Commit captures a snapshot of the live entry set, advances the current
// branch, and returns the new commit's id. Fails with ErrInvalidArg if
// message is empty, or ErrConflict if another writer currently holds the
// write ticket (internal/writeguard).
func (db *Database) Commit(ctx context.Context, message string) (string, error) {
	_, end := db.span(ctx, "commit")
	var err error
	defer func() { end(err) }()

	var id string
	err = db.guard.WithWrite(func() error {
		c, cerr := db.log.Commit(message, db.entries.Entries())
		if cerr != nil {
			return cerr
		}
		id = c.ID
		db.opts.Notify("commit", map[string]any{"id": c.ID, "message": message})
		return nil
	})
	return id, err
}

// Checkout replaces the live entry set with a deep copy of commitID's
// snapshot; the current branch is unchanged. Fails with ErrNotFound if
// commitID is unknown.
func (db *Database) Checkout(ctx context.Context, commitID string) error {
	_, end := db.span(ctx, "checkout")
	err := db.guard.WithWrite(func() error {
		c, cerr := db.log.Checkout(commitID)
		if cerr != nil {
			return cerr
		}
		db.entries.Replace(c.Snapshot)
		db.opts.Notify("checkout", map[string]any{"id": commitID})
		return nil
	})
	end(err)
	return err
}

// Log returns the commits on the current branch, newest first.
func (db *Database) Log() []*Commit {
	return db.log.LogEntries()
}

// Branch switches the current branch to name, creating it lazily if
// absent.
func (db *Database) Branch(ctx context.Context, name string) error {
	_, end := db.span(ctx, "branch")
	err := db.guard.WithWrite(func() error {
		if berr := db.log.Branch(name); berr != nil {
			return berr
		}
		db.opts.Notify("branch", map[string]any{"name": name})
		return nil
	})
	end(err)
	return err
}

// CurrentBranch returns the name of the current branch.
func (db *Database) CurrentBranch() string {
	return db.log.CurrentBranch()
}

// ListBranches returns every branch name.
func (db *Database) ListBranches() []string {
	return db.log.ListBranches()
}

// GetCurrentCommit returns the current commit id, or "" before the first
// commit.
func (db *Database) GetCurrentCommit() string {
	return db.log.CurrentCommit()
}

// TagCommit binds tagName to commitID. Fails with ErrNotFound if
// commitID is unknown.
func (db *Database) TagCommit(ctx context.Context, commitID, tagName string) error {
	_, end := db.span(ctx, "tag_commit")
	err := db.guard.WithWrite(func() error {
		if terr := db.log.TagCommit(commitID, tagName); terr != nil {
			return terr
		}
		db.opts.Notify("tag_commit", map[string]any{"commit_id": commitID, "tag": tagName})
		return nil
	})
	end(err)
	return err
}

// GetTaggedCommit returns the commit id bound to tagName.
func (db *Database) GetTaggedCommit(tagName string) (string, error) {
	return db.log.GetTaggedCommit(tagName)
}

// ListTags returns a copy of the tag-name to commit-id mapping.
func (db *Database) ListTags() map[string]string {
	return db.log.ListTags()
}

// Diff compares the snapshots of commits a and b by key and entry hash.
// Fails with ErrNotFound if either commit is unknown.
func (db *Database) Diff(ctx context.Context, a, b string) ([]Change, error) {
	_, end := db.span(ctx, "diff")
	var err error
	defer func() { end(err) }()

	ca, err := db.log.FindCommit(a)
	if err != nil {
		return nil, err
	}
	cb, err := db.log.FindCommit(b)
	if err != nil {
		return nil, err
	}
	return diffmerge.Diff(ca.Snapshot, cb.Snapshot), nil
}

// Merge resets the live entry set to target's snapshot and overlays
// source's entries onto it. A successful merge concludes with a commit
// whose message is "merge commit" and whose
// parent is the pre-merge current commit. Fails with ErrNotFound if
// either commit is unknown, or ErrConflict if autoResolve is false and
// any key conflicts — in that case the live set is left bit-identical to
// target's snapshot, with no partial state.
func (db *Database) Merge(ctx context.Context, source, target string, autoResolve bool) (*MergeResult, error) {
	_, end := db.span(ctx, "merge")
	var err error
	defer func() { end(err) }()

	cs, err := db.log.FindCommit(source)
	if err != nil {
		return nil, err
	}
	ct, err := db.log.FindCommit(target)
	if err != nil {
		return nil, err
	}

	var result *MergeResult
	err = db.guard.WithWrite(func() error {
		mergedSnapshot, conflicts, merr := diffmerge.Merge(cs.Snapshot, ct.Snapshot, autoResolve)
		if merr != nil {
			db.entries.Replace(ct.Snapshot)
			db.opts.Notify("merge", map[string]any{"source": source, "target": target, "conflicts": conflicts, "aborted": true})
			return merr
		}
		db.entries.Replace(mergedSnapshot)
		c, cerr := db.log.Commit("merge commit", db.entries.Entries())
		if cerr != nil {
			return cerr
		}
		db.opts.Notify("merge", map[string]any{"source": source, "target": target, "conflicts": conflicts, "commit_id": c.ID})
		result = &MergeResult{Commit: c, AutoResolvedKeys: conflicts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Verify recomputes key's hash and compares it to the stored one.
func (db *Database) Verify(key string) (bool, error) {
	e, err := db.entries.GetEntry(key)
	if err != nil {
		return false, err
	}
	return verifyEntry(e), nil
}

// VerifyDB reports whether every live entry verifies.
func (db *Database) VerifyDB() bool {
	ok, _ := db.VerifyDBDetail()
	return ok
}

// VerifyDBDetail reports whether every live entry verifies, plus the
// list of keys that don't.
func (db *Database) VerifyDBDetail() (bool, []string) {
	var mismatches []string
	for _, key := range db.entries.Keys() {
		e, err := db.entries.GetEntry(key)
		if err != nil {
			continue
		}
		if !verifyEntry(e) {
			mismatches = append(mismatches, key)
		}
	}
	return len(mismatches) == 0, mismatches
}

func verifyEntry(e *types.Entry) bool {
	want := hashing.Entry(e.Key, e.Value, e.Metadata, e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano())
	return want == e.Hash
}

// AsOf fetches key's value as of commitID without a full Checkout.
// Fails with ErrNotFound if commitID is unknown or key is absent from
// its snapshot.
func (db *Database) AsOf(commitID, key string) (Value, error) {
	c, err := db.log.FindCommit(commitID)
	if err != nil {
		return Value{}, err
	}
	for _, e := range c.Snapshot {
		if e.Key == key {
			return e.Value.Clone(), nil
		}
	}
	return Value{}, bcerr.Wrap("bluecrab.AsOf", bcerr.ErrNotFound, nil)
}

// History returns, for every commit on the current branch newest first,
// whether key existed and what value it held. This is read-only: it
// adds no new persisted state.
func (db *Database) History(key string) []HistoryEntry {
	commits := db.log.LogEntries()
	out := make([]HistoryEntry, 0, len(commits))
	for _, c := range commits {
		he := HistoryEntry{CommitID: c.ID, Message: c.Message}
		for _, e := range c.Snapshot {
			if e.Key == key {
				he.Value = e.Value.Clone()
				he.HadKey = true
				break
			}
		}
		out = append(out, he)
	}
	return out
}

// Transaction takes an implicit snapshot of the live entry set, runs fn,
// and restores the pre-call entry set if fn returns a non-nil error or
// panics (the panic is re-thrown after rollback). Built entirely on the
// entry store's existing snapshot/restore machinery: no new persisted
// state, no new invariants.
func (db *Database) Transaction(fn func() error) (err error) {
	snapshot := db.entries.Entries()
	defer func() {
		if r := recover(); r != nil {
			db.entries.Replace(snapshot)
			panic(r)
		}
	}()
	if err = fn(); err != nil {
		db.entries.Replace(snapshot)
	}
	return err
}

// Save atomically writes the database to its path.
func (db *Database) Save(ctx context.Context) error {
	_, end := db.span(ctx, "save")
	state := codec.State{
		Entries:         db.entries.Entries(),
		Commits:         db.log.AllCommits(),
		CurrentBranch:   db.log.CurrentBranch(),
		CurrentCommitID: db.log.CurrentCommit(),
		Tags:            db.log.ListTags(),
	}
	err := codec.Save(db.path, state)
	if err == nil {
		db.opts.Notify("save", map[string]any{"path": db.path})
	}
	end(err)
	return err
}

// Load reads a database previously written by Save, replacing path,
// options, the live entry set, and the whole commit/branch/tag history.
func Load(ctx context.Context, path string, opts Options) (*Database, error) {
	_, end := telemetry.SpanIf(ctx, opts.TelemetryEnabled, "load")
	var err error
	defer func() { end(err) }()

	var state codec.State
	state, err = codec.Load(path)
	if err != nil {
		return nil, err
	}

	branchTips := reconstructBranchTips(state.Commits, state.CurrentBranch, state.CurrentCommitID)

	db := &Database{
		path:    path,
		opts:    opts,
		entries: store.New(),
		log:     history.Restore(state.Commits, branchTips, state.CurrentBranch, state.CurrentCommitID, state.Tags),
		guard:   writeguard.New(),
	}
	db.entries.Replace(state.Entries)
	opts.Notify("load", map[string]any{"path": path})
	return db, nil
}

// reconstructBranchTips derives a branch tip for every branch name seen
// among commits (the latest commit, in creation order, carrying that
// branch name), since the on-disk layout persists only the current
// branch's name, not the full registry. A branch that never received
// its own commit cannot be distinguished on reload from the branch it
// forked from.
func reconstructBranchTips(commits []*types.Commit, currentBranch, currentCommitID string) map[string]string {
	tips := map[string]string{"main": ""}
	for _, c := range commits {
		tips[c.BranchName] = c.ID
	}
	if _, ok := tips[currentBranch]; !ok {
		tips[currentBranch] = currentCommitID
	}
	return tips
}
