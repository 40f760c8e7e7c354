// Package hashing implements Blue Crab's canonical, platform-independent
// content hash: a 64-bit FNV-1a mix over an entry's canonical byte form,
// finished with an invertible avalanche step and formatted as 16
// uppercase hex characters. The same primitive, applied to a different
// canonical byte stream, derives commit ids.
package hashing

import (
	"fmt"
	"hash/fnv"

	"github.com/bluecrabdb/bluecrab/internal/types"
)

// avalanche is the MurmurHash3 64-bit finalizer: two multiplies and three
// xor-shifts, each step individually invertible, so the whole mix is
// invertible.
func avalanche(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func format(sum uint64) string {
	return fmt.Sprintf("%016X", avalanche(sum))
}

// EntryCanonicalBytes builds the canonical byte stream for an entry's
// hash: key bytes, the 2-byte little-endian type tag, the value's
// type-specific bytes, the metadata bytes, then 8 bytes each of
// created_at and updated_at (both little-endian nanosecond epoch).
func EntryCanonicalBytes(key string, v types.Value, metadata string, createdAt, updatedAt int64) []byte {
	buf := make([]byte, 0, len(key)+2+16+len(metadata)+16)
	buf = append(buf, key...)
	tag := uint16(v.Kind())
	buf = append(buf, byte(tag), byte(tag>>8))
	buf = v.CanonicalBytes(buf)
	buf = append(buf, metadata...)
	buf = appendU64LE(buf, uint64(createdAt))
	buf = appendU64LE(buf, uint64(updatedAt))
	return buf
}

// Entry computes the canonical 16-hex-character hash of an entry's fields.
func Entry(key string, v types.Value, metadata string, createdAt, updatedAt int64) string {
	h := fnv.New64a()
	_, _ = h.Write(EntryCanonicalBytes(key, v, metadata, createdAt, updatedAt))
	return format(h.Sum64())
}

// CommitID derives a deterministic commit id from the parent id, message,
// timestamp, and the snapshot entries' hashes in order. Changing any one
// of these changes the id. The id is a hash and carries no ordering:
// comparing two ids says nothing about which commit was made first.
func CommitID(parentID, message string, timestamp int64, snapshotHashes []string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(parentID))
	_, _ = h.Write([]byte(message))
	var tsBuf [8]byte
	putU64LE(tsBuf[:], uint64(timestamp))
	_, _ = h.Write(tsBuf[:])
	for _, hh := range snapshotHashes {
		_, _ = h.Write([]byte(hh))
	}
	return format(h.Sum64())
}

func appendU64LE(dst []byte, n uint64) []byte {
	return append(dst,
		byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
		byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
}

func putU64LE(dst []byte, n uint64) {
	dst[0] = byte(n)
	dst[1] = byte(n >> 8)
	dst[2] = byte(n >> 16)
	dst[3] = byte(n >> 24)
	dst[4] = byte(n >> 32)
	dst[5] = byte(n >> 40)
	dst[6] = byte(n >> 48)
	dst[7] = byte(n >> 56)
}
