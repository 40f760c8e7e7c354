// Package codec implements a length-prefixed little-endian binary
// layout for the whole database, written atomically (temp file, fsync,
// rename) and read back bit for bit. Transient I/O errors around the
// write are retried with backoff.Retry/backoff.Permanent.
//
// The file opens with a 4-byte magic ("BCRB") and a u32 format version
// before the entry_count field, so a future format change can be
// rejected cleanly instead of silently misparsed.
package codec

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/types"
)

var magic = [4]byte{'B', 'C', 'R', 'B'}

const formatVersion uint32 = 1

// State is everything save()/load() round-trip for one database: the
// Database aggregate minus the storage path itself, which the caller
// already knows.
type State struct {
	Entries         []*types.Entry
	Commits         []*types.Commit
	CurrentBranch   string
	CurrentCommitID string
	Tags            map[string]string
}

// Save atomically writes state to path: encode into memory, write to a
// temp file in the same directory, fsync, then rename over path. If any
// step fails the target file is left untouched.
func Save(path string, state State) error {
	data := encode(state)

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return bcerr.Wrap("codec.Save", bcerr.ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	writeAndSync := func() error {
		if _, err := tmp.WriteAt(data, 0); err != nil {
			if isRetryableIOError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := tmp.Sync(); err != nil {
			if isRetryableIOError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(writeAndSync, bo); err != nil {
		return bcerr.Wrap("codec.Save", bcerr.ErrIO, err)
	}

	if err := tmp.Close(); err != nil {
		return bcerr.Wrap("codec.Save", bcerr.ErrIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return bcerr.Wrap("codec.Save", bcerr.ErrIO, err)
	}
	return nil
}

// isRetryableIOError reports whether err is a transient, retryable I/O
// error (EINTR: interrupted syscall, EAGAIN: resource temporarily
// unavailable) rather than a persistent failure like a full disk or a
// permissions error.
func isRetryableIOError(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}

// Load reads and decodes the database at path. Fails with ErrIO on a
// filesystem error, ErrCorrupt on truncated or malformed bytes or a wrong
// magic, ErrUnsupported on a future format version, and ErrTypeMismatch on
// an unknown on-disk value type tag.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, bcerr.Wrap("codec.Load", bcerr.ErrIO, err)
	}
	return decode(data)
}

func encode(state State) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU32(&buf, formatVersion)

	writeU64(&buf, uint64(len(state.Entries)))
	for _, e := range state.Entries {
		encodeEntry(&buf, e)
	}

	writeU64(&buf, uint64(len(state.Commits)))
	for _, c := range state.Commits {
		encodeCommit(&buf, c)
	}

	writePlainString(&buf, state.CurrentBranch)
	writePlainString(&buf, state.CurrentCommitID)

	writeU64(&buf, uint64(len(state.Tags)))
	names := make([]string, 0, len(state.Tags))
	for name := range state.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writePlainString(&buf, name)
		writePlainString(&buf, state.Tags[name])
	}

	return buf.Bytes()
}

func decode(data []byte) (State, error) {
	r := &reader{data: data}

	var gotMagic [4]byte
	copy(gotMagic[:], r.bytes(4))
	if r.err != nil {
		return State{}, r.err
	}
	if gotMagic != magic {
		return State{}, bcerr.Wrap("codec.decode", bcerr.ErrCorrupt, nil)
	}
	version := r.u32()
	if r.err != nil {
		return State{}, r.err
	}
	if version != formatVersion {
		return State{}, bcerr.Wrap("codec.decode", bcerr.ErrUnsupported, nil)
	}

	entryCount := r.u64()
	entries := make([]*types.Entry, 0, entryCount)
	for i := uint64(0); i < entryCount && r.err == nil; i++ {
		entries = append(entries, decodeEntry(r))
	}

	commitCount := r.u64()
	commits := make([]*types.Commit, 0, commitCount)
	for i := uint64(0); i < commitCount && r.err == nil; i++ {
		commits = append(commits, decodeCommit(r))
	}

	currentBranch := r.plainString()
	currentCommitID := r.plainString()

	tagCount := r.u64()
	tags := make(map[string]string, tagCount)
	for i := uint64(0); i < tagCount && r.err == nil; i++ {
		name := r.plainString()
		target := r.plainString()
		if r.err == nil {
			tags[name] = target
		}
	}

	if r.err != nil {
		return State{}, r.err
	}

	return State{
		Entries:         entries,
		Commits:         commits,
		CurrentBranch:   currentBranch,
		CurrentCommitID: currentCommitID,
		Tags:            tags,
	}, nil
}

func encodeEntry(buf *bytes.Buffer, e *types.Entry) {
	writeKeyString(buf, e.Key)
	writeU16(buf, uint16(e.Value.Kind()))
	encodeValuePayload(buf, e.Value)
	writeU64(buf, uint64(e.CreatedAt.UnixNano()))
	writeU64(buf, uint64(e.UpdatedAt.UnixNano()))
	writeOptionalNULString(buf, e.Hash)
	writePlainString(buf, e.Metadata)
}

func decodeEntry(r *reader) *types.Entry {
	key := r.keyString()
	kindRaw := r.u16()
	kind := types.Kind(kindRaw)
	if r.err == nil && !kind.Valid() {
		r.fail(bcerr.Wrap("codec.decodeEntry", bcerr.ErrTypeMismatch, nil))
	}
	value := decodeValuePayload(r, kind)
	createdRaw := r.u64()
	updatedRaw := r.u64()
	hash := r.optionalNULString()
	metadata := r.plainString()
	if r.err != nil {
		return nil
	}
	return &types.Entry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Unix(0, int64(createdRaw)),
		UpdatedAt: time.Unix(0, int64(updatedRaw)),
		Metadata:  metadata,
		Hash:      hash,
	}
}

// encodeCommit writes a branch_name field alongside the commit's other
// fields: without it, neither a commit's own branch nor any branch
// registry beyond the single current-branch name the format otherwise
// carries could survive a save/load round trip.
func encodeCommit(buf *bytes.Buffer, c *types.Commit) {
	writeOptionalNULString(buf, c.ID)
	writePlainString(buf, c.Message)
	writeU64(buf, uint64(c.Timestamp.UnixNano()))
	writePlainString(buf, c.ParentID)
	writePlainString(buf, c.BranchName)
	writeU64(buf, uint64(len(c.Snapshot)))
	for _, e := range c.Snapshot {
		encodeEntry(buf, e)
	}
}

func decodeCommit(r *reader) *types.Commit {
	id := r.optionalNULString()
	message := r.plainString()
	timestampRaw := r.u64()
	parentID := r.plainString()
	branchName := r.plainString()
	snapshotCount := r.u64()
	snapshot := make([]*types.Entry, 0, snapshotCount)
	for i := uint64(0); i < snapshotCount && r.err == nil; i++ {
		snapshot = append(snapshot, decodeEntry(r))
	}
	if r.err != nil {
		return nil
	}
	return &types.Commit{
		ID:         id,
		ParentID:   parentID,
		BranchName: branchName,
		Message:    message,
		Timestamp:  time.Unix(0, int64(timestampRaw)),
		Snapshot:   snapshot,
	}
}

// encodeValuePayload writes the type-specific bytes for v. Fixed-width
// kinds use their exact byte count with no length prefix, since the
// decoder already knows the width from the type tag. Variable-width
// kinds (the textual and blob variants) get a u64 length prefix, since
// the on-disk form must be self-delimiting.
func encodeValuePayload(buf *bytes.Buffer, v types.Value) {
	switch v.Kind() {
	case types.KindString, types.KindHex, types.KindOct, types.KindBin, types.KindAny:
		payload := v.CanonicalBytes(nil)
		writeU64(buf, uint64(len(payload)))
		buf.Write(payload)
	default:
		buf.Write(v.CanonicalBytes(nil))
	}
}

func decodeValuePayload(r *reader, kind types.Kind) types.Value {
	switch kind {
	case types.KindNull:
		return types.Null()
	case types.KindI8:
		return types.I8(int8(r.u8()))
	case types.KindU8:
		return types.U8(r.u8())
	case types.KindBool:
		return types.Bool(r.u8() != 0)
	case types.KindChar:
		return types.Char(rune(r.u8()))
	case types.KindI16:
		return types.I16(int16(r.u16()))
	case types.KindU16:
		return types.U16(r.u16())
	case types.KindI32:
		return types.I32(int32(r.u32()))
	case types.KindU32:
		return types.U32(r.u32())
	case types.KindF32:
		return types.F32(math.Float32frombits(r.u32()))
	case types.KindI64:
		return types.I64(int64(r.u64()))
	case types.KindU64:
		return types.U64(r.u64())
	case types.KindF64:
		return types.F64(math.Float64frombits(r.u64()))
	case types.KindSize:
		return types.Size(r.u64())
	case types.KindDateTime:
		return types.DateTime(int64(r.u64()))
	case types.KindDuration:
		return types.Duration(int64(r.u64()))
	case types.KindString:
		return types.Str(r.plainString())
	case types.KindHex:
		return types.Hex(r.plainString())
	case types.KindOct:
		return types.Oct(r.plainString())
	case types.KindBin:
		return types.Bin(r.plainString())
	case types.KindAny:
		return types.Any(r.plainBytes())
	default:
		r.fail(bcerr.Wrap("codec.decodeValuePayload", bcerr.ErrTypeMismatch, nil))
		return types.Null()
	}
}
