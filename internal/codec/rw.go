package codec

import (
	"bytes"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
)

func writeU16(buf *bytes.Buffer, n uint16) {
	buf.WriteByte(byte(n))
	buf.WriteByte(byte(n >> 8))
}

func writeU32(buf *bytes.Buffer, n uint32) {
	buf.WriteByte(byte(n))
	buf.WriteByte(byte(n >> 8))
	buf.WriteByte(byte(n >> 16))
	buf.WriteByte(byte(n >> 24))
}

func writeU64(buf *bytes.Buffer, n uint64) {
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(n >> (8 * uint(i))))
	}
}

// writeKeyString writes a key with its length including the trailing
// NUL. Keys are never empty (the entry store rejects an empty key), so
// the NUL is always present.
func writeKeyString(buf *bytes.Buffer, s string) {
	writeU64(buf, uint64(len(s)+1))
	buf.WriteString(s)
	buf.WriteByte(0)
}

// writeOptionalNULString writes a length-prefixed string that carries a
// trailing NUL only when non-empty. Used for both an entry's hash and a
// commit's id, which share this encoding.
func writeOptionalNULString(buf *bytes.Buffer, s string) {
	if s == "" {
		writeU64(buf, 0)
		return
	}
	writeU64(buf, uint64(len(s)+1))
	buf.WriteString(s)
	buf.WriteByte(0)
}

// writePlainString writes a plain length-prefixed string with no NUL
// terminator, for every other textual field in the layout (message,
// parent_id, branch, current_commit, metadata, tag name/target).
func writePlainString(buf *bytes.Buffer, s string) {
	writeU64(buf, uint64(len(s)))
	buf.WriteString(s)
}

// reader decodes the codec's binary layout, accumulating the first error
// it hits; every method becomes a no-op once err is set, so callers can
// chain reads and check err once at the end.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) corrupt() {
	r.fail(bcerr.Wrap("codec.read", bcerr.ErrCorrupt, nil))
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.off {
		r.corrupt()
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return uint16(b[0]) | uint16(b[1])<<8
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (r *reader) u64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	var n uint64
	for i := 0; i < 8; i++ {
		n |= uint64(b[i]) << (8 * uint(i))
	}
	return n
}

// keyString reads a writeKeyString field and strips the trailing NUL.
func (r *reader) keyString() string {
	n := r.u64()
	b := r.bytes(int(n))
	if b == nil || len(b) == 0 {
		if r.err == nil {
			r.corrupt()
		}
		return ""
	}
	return string(b[:len(b)-1])
}

// optionalNULString reads a writeOptionalNULString field.
func (r *reader) optionalNULString() string {
	n := r.u64()
	if r.err != nil || n == 0 {
		return ""
	}
	b := r.bytes(int(n))
	if b == nil {
		return ""
	}
	return string(b[:len(b)-1])
}

// plainString reads a writePlainString field.
func (r *reader) plainString() string {
	n := r.u64()
	b := r.bytes(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// plainBytes reads a length-prefixed byte blob, returning a copy so the
// result doesn't alias the decode buffer.
func (r *reader) plainBytes() []byte {
	n := r.u64()
	b := r.bytes(int(n))
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
