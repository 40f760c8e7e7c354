package types

import "math"

// Value is a tagged-union representation of one cell value. Exactly one
// of the backing fields is meaningful at a time, selected by kind; the
// rest are left at their zero value. String-carrying and blob-carrying
// variants own their bytes — Clone performs a deep copy so that a live
// Value never aliases a snapshot's.
type Value struct {
	kind Kind
	i    int64   // i8/i16/i32/i64/char/bool/datetime/duration
	u    uint64  // u8/u16/u32/u64/size
	f32  float32 // f32
	f64  float64 // f64
	s    string  // cstr/hex/oct/bin textual form
	blob []byte  // any
}

// Kind returns the variant currently held.
func (v Value) Kind() Kind { return v.kind }

// Null is the zero Value; it is also Value{}'s default.
func Null() Value { return Value{kind: KindNull} }

func I8(n int8) Value   { return Value{kind: KindI8, i: int64(n)} }
func I16(n int16) Value { return Value{kind: KindI16, i: int64(n)} }
func I32(n int32) Value { return Value{kind: KindI32, i: int64(n)} }
func I64(n int64) Value { return Value{kind: KindI64, i: n} }

func U8(n uint8) Value   { return Value{kind: KindU8, u: uint64(n)} }
func U16(n uint16) Value { return Value{kind: KindU16, u: uint64(n)} }
func U32(n uint32) Value { return Value{kind: KindU32, u: uint64(n)} }
func U64(n uint64) Value { return Value{kind: KindU64, u: n} }

func F32(n float32) Value { return Value{kind: KindF32, f32: n} }
func F64(n float64) Value { return Value{kind: KindF64, f64: n} }

func Bool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{kind: KindBool, i: i}
}

func Char(r rune) Value { return Value{kind: KindChar, i: int64(byte(r))} }

func Str(s string) Value { return Value{kind: KindString, s: s} }

func Size(n uint64) Value { return Value{kind: KindSize, u: n} }

// DateTime holds a wall-clock epoch in nanoseconds.
func DateTime(epochNanos int64) Value { return Value{kind: KindDateTime, i: epochNanos} }

// Duration holds a signed nanosecond count.
func Duration(nanos int64) Value { return Value{kind: KindDuration, i: nanos} }

func Hex(text string) Value { return Value{kind: KindHex, s: text} }
func Oct(text string) Value { return Value{kind: KindOct, s: text} }
func Bin(text string) Value { return Value{kind: KindBin, s: text} }

// Any wraps an opaque byte blob. The slice is copied so the Value owns it.
func Any(blob []byte) Value {
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return Value{kind: KindAny, blob: cp}
}

// AsI64 returns the value as a signed 64-bit integer for any integer, bool,
// char, datetime, or duration variant. The second return is false for any
// other kind.
func (v Value) AsI64() (int64, bool) {
	switch v.kind {
	case KindI8, KindI16, KindI32, KindI64, KindBool, KindChar, KindDateTime, KindDuration:
		return v.i, true
	default:
		return 0, false
	}
}

// AsU64 returns the value as an unsigned 64-bit integer for any unsigned
// integer or size variant.
func (v Value) AsU64() (uint64, bool) {
	switch v.kind {
	case KindU8, KindU16, KindU32, KindU64, KindSize:
		return v.u, true
	default:
		return 0, false
	}
}

// AsF32 returns the raw float32, valid only for KindF32.
func (v Value) AsF32() (float32, bool) {
	if v.kind != KindF32 {
		return 0, false
	}
	return v.f32, true
}

// AsF64 returns the raw float64, valid only for KindF64.
func (v Value) AsF64() (float64, bool) {
	if v.kind != KindF64 {
		return 0, false
	}
	return v.f64, true
}

// AsBool reports the boolean value, valid only for KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.i != 0, true
}

// AsString returns the textual payload for KindString, KindHex, KindOct, or
// KindBin.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString, KindHex, KindOct, KindBin:
		return v.s, true
	default:
		return "", false
	}
}

// AsBlob returns a defensive copy of the opaque payload, valid only for
// KindAny.
func (v Value) AsBlob() ([]byte, bool) {
	if v.kind != KindAny {
		return nil, false
	}
	cp := make([]byte, len(v.blob))
	copy(cp, v.blob)
	return cp, true
}

// Clone performs a deep copy: the returned Value shares no heap-backed
// payload with v.
func (v Value) Clone() Value {
	cp := v
	if v.blob != nil {
		cp.blob = make([]byte, len(v.blob))
		copy(cp.blob, v.blob)
	}
	return cp
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindI8, KindI16, KindI32, KindI64, KindBool, KindChar, KindDateTime, KindDuration:
		return v.i == other.i
	case KindU8, KindU16, KindU32, KindU64, KindSize:
		return v.u == other.u
	case KindF32:
		return math.Float32bits(v.f32) == math.Float32bits(other.f32)
	case KindF64:
		return math.Float64bits(v.f64) == math.Float64bits(other.f64)
	case KindString, KindHex, KindOct, KindBin:
		return v.s == other.s
	case KindAny:
		if len(v.blob) != len(other.blob) {
			return false
		}
		for i := range v.blob {
			if v.blob[i] != other.blob[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CanonicalBytes appends the type-specific encoding for v to dst and
// returns the extended slice. This is the single source of truth both
// the hasher and the persistence codec use for a value's payload, so
// the two can never drift apart.
func (v Value) CanonicalBytes(dst []byte) []byte {
	switch v.kind {
	case KindNull:
		return dst
	case KindI8:
		return append(dst, byte(int8(v.i)))
	case KindU8:
		return append(dst, byte(v.u))
	case KindBool:
		b := byte(0)
		if v.i != 0 {
			b = 1
		}
		return append(dst, b)
	case KindChar:
		return append(dst, byte(v.i))
	case KindI16:
		return appendU16LE(dst, uint16(int16(v.i)))
	case KindU16:
		return appendU16LE(dst, uint16(v.u))
	case KindI32:
		return appendU32LE(dst, uint32(int32(v.i)))
	case KindU32:
		return appendU32LE(dst, uint32(v.u))
	case KindF32:
		return appendU32LE(dst, math.Float32bits(v.f32))
	case KindI64, KindDateTime, KindDuration:
		return appendU64LE(dst, uint64(v.i))
	case KindU64, KindSize:
		return appendU64LE(dst, v.u)
	case KindF64:
		return appendU64LE(dst, math.Float64bits(v.f64))
	case KindString, KindHex, KindOct, KindBin:
		return append(dst, v.s...)
	case KindAny:
		return append(dst, v.blob...)
	default:
		return dst
	}
}

func appendU16LE(dst []byte, n uint16) []byte {
	return append(dst, byte(n), byte(n>>8))
}

func appendU32LE(dst []byte, n uint32) []byte {
	return append(dst, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
}

func appendU64LE(dst []byte, n uint64) []byte {
	return append(dst,
		byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
		byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
}
